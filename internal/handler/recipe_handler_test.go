package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/recipebox/internal/model"
	"github.com/hitoshi/recipebox/internal/recipe"
)

// --- モック定義 ---

// mockRecipeService はRecipeServiceInterfaceのモック実装。
type mockRecipeService struct {
	listFn   func(ctx context.Context, ownerID string) ([]*model.Recipe, error)
	getFn    func(ctx context.Context, ownerID, recipeID string) (*model.Recipe, error)
	createFn func(ctx context.Context, ownerID, ownerUsername string, input recipe.Input) (*model.Recipe, error)
	updateFn func(ctx context.Context, ownerID, recipeID string, input recipe.Input, requireAll bool) (*model.Recipe, error)
	deleteFn func(ctx context.Context, ownerID, recipeID string) error
}

var _ RecipeServiceInterface = (*mockRecipeService)(nil)

func (m *mockRecipeService) List(ctx context.Context, ownerID string) ([]*model.Recipe, error) {
	if m.listFn != nil {
		return m.listFn(ctx, ownerID)
	}
	return nil, nil
}

func (m *mockRecipeService) Get(ctx context.Context, ownerID, recipeID string) (*model.Recipe, error) {
	if m.getFn != nil {
		return m.getFn(ctx, ownerID, recipeID)
	}
	return nil, nil
}

func (m *mockRecipeService) Create(ctx context.Context, ownerID, ownerUsername string, input recipe.Input) (*model.Recipe, error) {
	if m.createFn != nil {
		return m.createFn(ctx, ownerID, ownerUsername, input)
	}
	return nil, nil
}

func (m *mockRecipeService) Update(ctx context.Context, ownerID, recipeID string, input recipe.Input, requireAll bool) (*model.Recipe, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, ownerID, recipeID, input, requireAll)
	}
	return nil, nil
}

func (m *mockRecipeService) Delete(ctx context.Context, ownerID, recipeID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, ownerID, recipeID)
	}
	return nil
}

// mockUserResolver はRecipeUserResolverのモック実装。
type mockUserResolver struct {
	getByIDFn func(ctx context.Context, id string) (*model.User, error)
}

var _ RecipeUserResolver = (*mockUserResolver)(nil)

func (m *mockUserResolver) GetByID(ctx context.Context, id string) (*model.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return &model.User{ID: id, Username: "tanaka"}, nil
}

func testRecipe() *model.Recipe {
	return &model.Recipe{
		ID:            "6f1e9355-5729-4b0f-8cf4-b591b0e2f1a3",
		UserID:        "user-1",
		OwnerUsername: "tanaka",
		Title:         "肉じゃが",
		Description:   "定番の家庭料理",
		Ingredients:   "じゃがいも、牛肉、玉ねぎ",
		Instructions:  "材料を切って煮込む",
		CuisineType:   "和食",
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
}

// --- GET /api/recipes/ テスト ---

func TestRecipeHandler_List_ReturnsOwnedRecipes(t *testing.T) {
	svc := &mockRecipeService{
		listFn: func(ctx context.Context, ownerID string) ([]*model.Recipe, error) {
			if ownerID != "user-1" {
				t.Errorf("ownerID = %q, want %q", ownerID, "user-1")
			}
			return []*model.Recipe{testRecipe()}, nil
		},
	}

	h := NewRecipeHandler(svc, &mockUserResolver{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/recipes/", nil)
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.List(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var got []recipeResponse
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len(recipes) = %d, want 1", len(got))
	}
	if got[0].Title != "肉じゃが" {
		t.Errorf("title = %q, want %q", got[0].Title, "肉じゃが")
	}
	if got[0].OwnerUsername != "tanaka" {
		t.Errorf("owner_username = %q, want %q", got[0].OwnerUsername, "tanaka")
	}
}

func TestRecipeHandler_List_Empty_ReturnsEmptyArray(t *testing.T) {
	svc := &mockRecipeService{
		listFn: func(ctx context.Context, ownerID string) ([]*model.Recipe, error) {
			return nil, nil
		},
	}

	h := NewRecipeHandler(svc, &mockUserResolver{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/recipes/", nil)
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.List(w, req)

	// nullではなく空配列を返すこと
	if body := w.Body.String(); body != "[]\n" {
		t.Errorf("body = %q, want %q", body, "[]\n")
	}
}

// --- GET /api/recipes/{id}/ テスト ---

func TestRecipeHandler_Get_Success(t *testing.T) {
	rec := testRecipe()
	svc := &mockRecipeService{
		getFn: func(ctx context.Context, ownerID, recipeID string) (*model.Recipe, error) {
			if recipeID != rec.ID {
				t.Errorf("recipeID = %q, want %q", recipeID, rec.ID)
			}
			return rec, nil
		},
	}

	h := NewRecipeHandler(svc, &mockUserResolver{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/recipes/"+rec.ID+"/", nil)
	req = withUserID(req, "user-1")
	req = withChiURLParam(req, "id", rec.ID)
	w := httptest.NewRecorder()

	h.Get(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestRecipeHandler_Get_NotFound_Returns404(t *testing.T) {
	svc := &mockRecipeService{
		getFn: func(ctx context.Context, ownerID, recipeID string) (*model.Recipe, error) {
			return nil, model.NewRecipeNotFoundError(recipeID)
		},
	}

	h := NewRecipeHandler(svc, &mockUserResolver{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/recipes/other-users-recipe/", nil)
	req = withUserID(req, "user-1")
	req = withChiURLParam(req, "id", "other-users-recipe")
	w := httptest.NewRecorder()

	h.Get(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// --- POST /api/recipes/ テスト ---

func TestRecipeHandler_Create_Success(t *testing.T) {
	svc := &mockRecipeService{
		createFn: func(ctx context.Context, ownerID, ownerUsername string, input recipe.Input) (*model.Recipe, error) {
			if ownerID != "user-1" {
				t.Errorf("ownerID = %q, want %q", ownerID, "user-1")
			}
			if ownerUsername != "tanaka" {
				t.Errorf("ownerUsername = %q, want %q", ownerUsername, "tanaka")
			}
			if input.Title == nil || *input.Title != "肉じゃが" {
				t.Errorf("input.Title = %v, want %q", input.Title, "肉じゃが")
			}
			return testRecipe(), nil
		},
	}

	h := NewRecipeHandler(svc, &mockUserResolver{}, nil)

	body := `{"title": "肉じゃが", "ingredients": "じゃがいも", "instructions": "煮込む"}`
	req := httptest.NewRequest(http.MethodPost, "/api/recipes/", bytes.NewBufferString(body))
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.Create(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", w.Code, http.StatusCreated)
	}
}

func TestRecipeHandler_Create_ValidationError_Returns400(t *testing.T) {
	svc := &mockRecipeService{
		createFn: func(ctx context.Context, ownerID, ownerUsername string, input recipe.Input) (*model.Recipe, error) {
			return nil, model.NewFieldError("title", "タイトルは必須です。")
		},
	}

	h := NewRecipeHandler(svc, &mockUserResolver{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/recipes/", bytes.NewBufferString(`{}`))
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.Create(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestRecipeHandler_Create_NoAuth_Returns401(t *testing.T) {
	h := NewRecipeHandler(&mockRecipeService{}, &mockUserResolver{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/recipes/", bytes.NewBufferString(`{}`))
	w := httptest.NewRecorder()

	h.Create(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

// --- PUT / PATCH /api/recipes/{id}/ テスト ---

func TestRecipeHandler_Update_PassesRequireAll(t *testing.T) {
	var gotRequireAll bool
	svc := &mockRecipeService{
		updateFn: func(ctx context.Context, ownerID, recipeID string, input recipe.Input, requireAll bool) (*model.Recipe, error) {
			gotRequireAll = requireAll
			return testRecipe(), nil
		},
	}

	h := NewRecipeHandler(svc, &mockUserResolver{}, nil)

	body := `{"title": "肉じゃが", "ingredients": "じゃがいも", "instructions": "煮込む"}`
	req := httptest.NewRequest(http.MethodPut, "/api/recipes/recipe-1/", bytes.NewBufferString(body))
	req = withUserID(req, "user-1")
	req = withChiURLParam(req, "id", "recipe-1")
	w := httptest.NewRecorder()

	h.Update(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !gotRequireAll {
		t.Error("PUT should require all fields")
	}
}

func TestRecipeHandler_Patch_PartialUpdate(t *testing.T) {
	var gotRequireAll bool
	svc := &mockRecipeService{
		updateFn: func(ctx context.Context, ownerID, recipeID string, input recipe.Input, requireAll bool) (*model.Recipe, error) {
			gotRequireAll = requireAll
			if input.Title == nil || *input.Title != "新しいタイトル" {
				t.Errorf("input.Title = %v, want %q", input.Title, "新しいタイトル")
			}
			if input.Ingredients != nil {
				t.Error("unspecified fields should be nil")
			}
			return testRecipe(), nil
		},
	}

	h := NewRecipeHandler(svc, &mockUserResolver{}, nil)

	body := `{"title": "新しいタイトル"}`
	req := httptest.NewRequest(http.MethodPatch, "/api/recipes/recipe-1/", bytes.NewBufferString(body))
	req = withUserID(req, "user-1")
	req = withChiURLParam(req, "id", "recipe-1")
	w := httptest.NewRecorder()

	h.Patch(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotRequireAll {
		t.Error("PATCH should not require all fields")
	}
}

// --- DELETE /api/recipes/{id}/ テスト ---

func TestRecipeHandler_Delete_Returns204(t *testing.T) {
	svc := &mockRecipeService{
		deleteFn: func(ctx context.Context, ownerID, recipeID string) error {
			if ownerID != "user-1" {
				t.Errorf("ownerID = %q, want %q", ownerID, "user-1")
			}
			return nil
		},
	}

	h := NewRecipeHandler(svc, &mockUserResolver{}, nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/recipes/recipe-1/", nil)
	req = withUserID(req, "user-1")
	req = withChiURLParam(req, "id", "recipe-1")
	w := httptest.NewRecorder()

	h.Delete(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
}

func TestRecipeHandler_Delete_NotFound_Returns404(t *testing.T) {
	svc := &mockRecipeService{
		deleteFn: func(ctx context.Context, ownerID, recipeID string) error {
			return model.NewRecipeNotFoundError(recipeID)
		},
	}

	h := NewRecipeHandler(svc, &mockUserResolver{}, nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/recipes/missing/", nil)
	req = withUserID(req, "user-1")
	req = withChiURLParam(req, "id", "missing")
	w := httptest.NewRecorder()

	h.Delete(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// --- handleServiceError テスト ---

func TestHandleServiceError_MapsCodesToStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"バリデーションエラー", model.NewFieldError("title", "必須です。"), http.StatusBadRequest},
		{"認証情報不正", model.NewInvalidCredentialsError(), http.StatusBadRequest},
		{"未認証", model.NewUnauthorizedError(), http.StatusUnauthorized},
		{"無効化アカウント", model.NewAccountDisabledError(), http.StatusForbidden},
		{"ユーザー未検出", model.NewUserNotFoundError(), http.StatusNotFound},
		{"レシピ未検出", model.NewRecipeNotFoundError("x"), http.StatusNotFound},
		{"内部エラー", context.DeadlineExceeded, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handleServiceError(w, tt.err)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}
