package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inkwell/inkwell/internal/analytics"
	"github.com/inkwell/inkwell/internal/auth"
	"github.com/inkwell/inkwell/internal/cache"
	"github.com/inkwell/inkwell/internal/config"
	"github.com/inkwell/inkwell/internal/domain/comment"
	"github.com/inkwell/inkwell/internal/domain/user"
	"github.com/inkwell/inkwell/internal/http/handlers"
	"github.com/inkwell/inkwell/internal/http/middlewares"
	"github.com/inkwell/inkwell/internal/observability"
	"github.com/inkwell/inkwell/internal/repo/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const maxRequestBody = 1 << 20 // 1 MiB

// NewRouter wires repositories, handlers and the middleware chain.
func NewRouter(cfg config.Config, log *slog.Logger, pool *pgxpool.Pool, rdb *redis.Client, prom *observability.Prom, jwtManager *auth.Manager) (*gin.Engine, error) {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(maxRequestBody))
	r.Use(otelgin.Middleware("inkwell-api"))

	if prom != nil {
		r.Use(prom.GinHandleMiddleware())
	}

	// health + metrics
	ping := func(ctx context.Context) error {
		if pool == nil {
			return nil
		}
		return pool.Ping(ctx)
	}

	healthHandler := handlers.NewHealthHandler(ping)
	r.GET("/healthz", healthHandler.Healthz)
	r.GET("/readyz", healthHandler.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// repositories
	usersRepo := postgres.NewUsersRepo(pool)
	postsRepo := postgres.NewPostsRepo(pool, prom)
	categoriesRepo := postgres.NewCategoriesRepo(pool)
	tagsRepo := postgres.NewTagsRepo(pool)
	commentsRepo := postgres.NewCommentsRepo(pool, prom)
	jobsRepo := postgres.NewJobsRepo(pool, prom)

	var views *analytics.Views
	if rdb != nil {
		views = analytics.NewViews(rdb)
	}

	// handlers
	authHandler := handlers.NewAuthHandler(usersRepo, jwtManager, cfg)
	postsHandler := handlers.NewPostsHandler(postsRepo, jobsRepo, views, cache.New(10*time.Second))
	categoriesHandler := handlers.NewCategoriesHandler(categoriesRepo)
	tagsHandler := handlers.NewTagsHandler(tagsRepo)
	commentsHandler := handlers.NewCommentsHandler(commentsRepo, postsRepo, jobsRepo)
	usersHandler := handlers.NewUsersHandler(usersRepo)
	analyticsHandler := handlers.NewAnalyticsHandler(postsRepo, commentsRepo, usersRepo, views)
	pagesHandler := handlers.NewPagesHandler()

	gate := middlewares.NewAuthGate(jwtManager, usersRepo, prom, log)

	// rate limiting: tighter window on credential endpoints
	loginLimiter := middlewares.NewRateLimiter(10, time.Minute)
	writeLimiter := middlewares.NewRateLimiter(60, time.Minute)

	api := r.Group("/api")
	api.Use(middlewares.RequireJSON())
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/signup", loginLimiter.RateLimiterMiddleware(middlewares.KeyByIP), authHandler.SignUp)
			authGroup.POST("/login", loginLimiter.RateLimiterMiddleware(middlewares.KeyByIP), authHandler.Login)
			authGroup.POST("/logout", authHandler.Logout)
			authGroup.GET("/me", gate.Require(), authHandler.Me)
			authGroup.PUT("/profile", gate.Require(), authHandler.UpdateProfile)
		}

		// public reads; optional auth so the posts handler can tell an
		// anonymous visitor from an author looking at their own drafts
		api.GET("/posts", gate.Optional(), postsHandler.ListPosts)
		api.GET("/posts/:id", gate.Optional(), postsHandler.GetPostById)
		api.GET("/posts/:id/comments", commentsHandler.ListComments)
		api.GET("/categories", categoriesHandler.ListCategories)
		api.GET("/tags", tagsHandler.ListTags)

		// guest comment submission, write-limited by IP
		api.POST("/posts/:id/comments", writeLimiter.RateLimiterMiddleware(middlewares.KeyByIP), commentsHandler.SubmitComment)

		// authoring requires author or admin
		authoring := api.Group("")
		authoring.Use(gate.Require(user.RoleAuthor, user.RoleAdmin))
		authoring.Use(writeLimiter.RateLimiterMiddleware(middlewares.KeyByUserOrIP))
		{
			authoring.POST("/posts", postsHandler.CreatePost)
			authoring.PUT("/posts/:id", postsHandler.UpdatePost)
			authoring.DELETE("/posts/:id", postsHandler.DeletePost)
		}

		// admin surface: taxonomy, moderation, analytics
		admin := api.Group("/admin")
		admin.Use(gate.Require(user.RoleAdmin))
		{
			admin.POST("/categories", categoriesHandler.CreateCategory)
			admin.PUT("/categories/:id", categoriesHandler.UpdateCategory)
			admin.DELETE("/categories/:id", categoriesHandler.DeleteCategory)

			admin.POST("/tags", tagsHandler.CreateTag)
			admin.PUT("/tags/:id", tagsHandler.UpdateTag)
			admin.DELETE("/tags/:id", tagsHandler.DeleteTag)

			admin.GET("/comments", commentsHandler.ModerationQueue)
			admin.POST("/comments/:id/approve", commentsHandler.Moderate(comment.StatusApproved))
			admin.POST("/comments/:id/reject", commentsHandler.Moderate(comment.StatusRejected))
			admin.POST("/comments/:id/spam", commentsHandler.Moderate(comment.StatusSpam))

			admin.PUT("/users/:id/role", usersHandler.UpdateRole)

			admin.GET("/analytics", analyticsHandler.Dashboard)
		}
	}

	// browser page shells behind the cookie guard
	r.Use(middlewares.RouteGuard(jwtManager))
	r.GET("/", pagesHandler.Home)
	r.GET("/about", pagesHandler.About)
	r.GET("/signin", pagesHandler.SignIn)
	r.GET("/dashboard", pagesHandler.Dashboard)
	r.GET("/dashboard/*rest", pagesHandler.Dashboard)
	r.GET("/admin", pagesHandler.Admin)
	r.GET("/admin/*rest", pagesHandler.Admin)
	r.GET("/profile", pagesHandler.Profile)
	r.GET("/settings", pagesHandler.Settings)

	return r, nil
}
