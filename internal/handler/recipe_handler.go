package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/recipebox/internal/metrics"
	"github.com/hitoshi/recipebox/internal/middleware"
	"github.com/hitoshi/recipebox/internal/model"
	"github.com/hitoshi/recipebox/internal/recipe"
)

// RecipeServiceInterface はレシピハンドラーが必要とするサービスインターフェース。
type RecipeServiceInterface interface {
	List(ctx context.Context, ownerID string) ([]*model.Recipe, error)
	Get(ctx context.Context, ownerID, recipeID string) (*model.Recipe, error)
	Create(ctx context.Context, ownerID, ownerUsername string, input recipe.Input) (*model.Recipe, error)
	Update(ctx context.Context, ownerID, recipeID string, input recipe.Input, requireAll bool) (*model.Recipe, error)
	Delete(ctx context.Context, ownerID, recipeID string) error
}

// RecipeUserResolver はレシピ作成時に所有者のユーザー名を解決するインターフェース。
type RecipeUserResolver interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// RecipeHandler はレシピ管理のHTTPハンドラー。
type RecipeHandler struct {
	service   RecipeServiceInterface
	users     RecipeUserResolver
	collector metrics.MetricsCollector // nilの場合はメトリクスを記録しない
}

// NewRecipeHandler はRecipeHandlerを生成する。
func NewRecipeHandler(service RecipeServiceInterface, users RecipeUserResolver, collector metrics.MetricsCollector) *RecipeHandler {
	return &RecipeHandler{
		service:   service,
		users:     users,
		collector: collector,
	}
}

// recipeRequest はレシピ作成・更新リクエストのボディ。
// nilのフィールドは「未指定」として扱う。
type recipeRequest struct {
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	Ingredients  *string `json:"ingredients"`
	Instructions *string `json:"instructions"`
	ImageURL     *string `json:"image_url"`
	ExternalLink *string `json:"external_link"`
	CuisineType  *string `json:"cuisine_type"`
}

// recipeResponse はレシピ情報のAPIレスポンス。
type recipeResponse struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Ingredients   string    `json:"ingredients"`
	Instructions  string    `json:"instructions"`
	ImageURL      string    `json:"image_url"`
	ExternalLink  string    `json:"external_link"`
	CuisineType   string    `json:"cuisine_type"`
	OwnerUsername string    `json:"owner_username"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// List はログインユーザーが所有するレシピの一覧を返す。
// GET /api/recipes/
func (h *RecipeHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIError(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	recipes, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]recipeResponse, 0, len(recipes))
	for _, rec := range recipes {
		responses = append(responses, toRecipeResponse(rec))
	}

	writeJSONResponse(w, http.StatusOK, responses)
}

// Get はレシピ詳細を取得する。
// GET /api/recipes/{id}/
func (h *RecipeHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIError(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	recipeID := chi.URLParam(r, "id")

	rec, err := h.service.Get(r.Context(), userID, recipeID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toRecipeResponse(rec))
}

// Create はレシピを作成する。所有者はログインユーザーに固定される。
// POST /api/recipes/
func (h *RecipeHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIError(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req recipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyError(w)
		return
	}

	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	rec, err := h.service.Create(r.Context(), userID, user.Username, toRecipeInput(req))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if h.collector != nil {
		h.collector.RecordRecipeCreated()
	}

	writeJSONResponse(w, http.StatusCreated, toRecipeResponse(rec))
}

// Update はレシピを全体更新する。必須フィールドの指定を要求する。
// PUT /api/recipes/{id}/
func (h *RecipeHandler) Update(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, true)
}

// Patch はレシピを部分更新する。指定されたフィールドのみ差し替える。
// PATCH /api/recipes/{id}/
func (h *RecipeHandler) Patch(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, false)
}

func (h *RecipeHandler) update(w http.ResponseWriter, r *http.Request, requireAll bool) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIError(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	recipeID := chi.URLParam(r, "id")

	var req recipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyError(w)
		return
	}

	rec, err := h.service.Update(r.Context(), userID, recipeID, toRecipeInput(req), requireAll)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toRecipeResponse(rec))
}

// Delete はレシピを削除する。
// DELETE /api/recipes/{id}/
func (h *RecipeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIError(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	recipeID := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), userID, recipeID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- ヘルパー関数 ---

// toRecipeInput はリクエストボディをサービス層の入力値に変換する。
func toRecipeInput(req recipeRequest) recipe.Input {
	return recipe.Input{
		Title:        req.Title,
		Description:  req.Description,
		Ingredients:  req.Ingredients,
		Instructions: req.Instructions,
		ImageURL:     req.ImageURL,
		ExternalLink: req.ExternalLink,
		CuisineType:  req.CuisineType,
	}
}

// toRecipeResponse はmodel.RecipeからAPIレスポンスに変換する。
func toRecipeResponse(rec *model.Recipe) recipeResponse {
	return recipeResponse{
		ID:            rec.ID,
		Title:         rec.Title,
		Description:   rec.Description,
		Ingredients:   rec.Ingredients,
		Instructions:  rec.Instructions,
		ImageURL:      rec.ImageURL,
		ExternalLink:  rec.ExternalLink,
		CuisineType:   rec.CuisineType,
		OwnerUsername: rec.OwnerUsername,
		CreatedAt:     rec.CreatedAt,
		UpdatedAt:     rec.UpdatedAt,
	}
}

// writeJSONResponse はJSONレスポンスを書き込む。
func writeJSONResponse(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// writeAPIError は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIError(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

// writeInvalidBodyError はリクエストボディの解析失敗エラーを書き込む。
func writeInvalidBodyError(w http.ResponseWriter) {
	writeAPIError(w, http.StatusBadRequest, &model.APIError{
		Code:     model.ErrCodeValidationFailed,
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIError(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIError(w, http.StatusInternalServerError, model.NewInternalError())
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeValidationFailed, model.ErrCodeInvalidCredentials:
		return http.StatusBadRequest
	case model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodeAccountDisabled, model.ErrCodeCSRFFailed:
		return http.StatusForbidden
	case model.ErrCodeUserNotFound, model.ErrCodeRecipeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
