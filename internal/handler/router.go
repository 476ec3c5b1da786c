package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/recipebox/internal/metrics"
	"github.com/hitoshi/recipebox/internal/middleware"
)

// HealthChecker はヘルスチェックで依存先の死活を確認するインターフェース。
// *sql.DB が満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger *slog.Logger

	// HealthChecker はnil許容。nilの場合はプロセス死活のみ返す。
	HealthChecker HealthChecker

	// ミドルウェア依存
	SessionFinder       middleware.SessionFinder
	SessionCookieConfig middleware.SessionCookieConfig
	CSRFConfig          middleware.CSRFConfig
	CORSAllowedOrigin   string
	RateLimiter         *middleware.RateLimiter

	// メトリクス（どちらもnil許容）
	Collector      metrics.MetricsCollector
	MetricsHandler http.Handler

	// サービス
	AuthService   AuthServiceInterface
	UserService   UserServiceInterface
	RecipeService RecipeServiceInterface
	UserResolver  RecipeUserResolver
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → Metrics → SecurityHeaders → CORS → CSRF
//
// 認証が必要なルートではさらに Session → RateLimit(General) が適用される。
// 認証不要のルート（登録・ログイン・パスワード再設定）には
// IPアドレス単位のRateLimit(Auth)が適用される。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	if deps.Collector != nil {
		r.Use(metrics.NewHTTPMiddleware(deps.Collector))
	}
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

	authHandler := NewAuthHandler(deps.AuthService, deps.SessionCookieConfig, deps.Collector)
	userHandler := NewUserHandler(deps.UserService)
	recipeHandler := NewRecipeHandler(deps.RecipeService, deps.UserResolver, deps.Collector)

	// --- 運用系エンドポイント ---

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if deps.HealthChecker != nil {
			if err := deps.HealthChecker.PingContext(r.Context()); err != nil {
				deps.Logger.Error("health check failed", slog.String("error", err.Error()))
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status":"unavailable"}`))
				return
			}
		}
		w.Write([]byte(`{"status":"ok"}`))
	})

	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// CSRFトークン取得（認証不要）
	r.Method(http.MethodGet, "/api/csrf/", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

	// --- 認証不要のルート ---
	// ミドルウェアスタック: RateLimit(Auth) IPアドレス単位
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.AuthMiddleware())

		r.Post("/api/users/register/", authHandler.Register)
		r.Post("/api/users/login/", authHandler.Login)
		r.Post("/api/users/password-reset-request/", authHandler.RequestPasswordReset)
		r.Post("/api/users/password-reset-confirm/", authHandler.ConfirmPasswordReset)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General) ユーザー単位
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder, deps.SessionCookieConfig))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Post("/api/users/logout/", authHandler.Logout)
		r.Post("/api/users/change-password/", authHandler.ChangePassword)
		r.Get("/api/users/me/", authHandler.Me)

		// ユーザープロフィール（/me/ は静的ルートとして優先される）
		r.Get("/api/users/{username}/", userHandler.GetProfile)

		// レシピ管理
		r.Route("/api/recipes", func(r chi.Router) {
			r.Get("/", recipeHandler.List)
			r.Post("/", recipeHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", recipeHandler.Get)
				r.Put("/", recipeHandler.Update)
				r.Patch("/", recipeHandler.Patch)
				r.Delete("/", recipeHandler.Delete)
			})
		})
	})

	return r
}
