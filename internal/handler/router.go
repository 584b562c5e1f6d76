package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/scoresheet-api/internal/middleware"
	"github.com/noah-isme/scoresheet-api/internal/service"
	"github.com/noah-isme/scoresheet-api/pkg/config"
	"github.com/noah-isme/scoresheet-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/scoresheet-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/scoresheet-api/pkg/middleware/requestid"
)

// RouterDeps carries everything the router needs to wire routes.
type RouterDeps struct {
	Config   *config.Config
	Logger   *zap.Logger
	Auth     *service.AuthService
	Subjects *service.SubjectService
	Criteria *service.CriteriaService
	Groups   *service.GroupService
	Exports  *service.ExportService
	Metrics  *service.MetricsService
}

// NewRouter builds the gin engine with all middleware and routes attached.
// Everything under the API prefix except /auth/signup, /auth/signin and the
// export download requires a session cookie.
func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(deps.Logger))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.Metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authHandler := NewAuthHandler(deps.Auth, cfg.Session.CookieName, cfg.Session.CookieSecure)
	subjectHandler := NewSubjectHandler(deps.Subjects)
	criteriaHandler := NewCriteriaHandler(deps.Criteria)
	groupHandler := NewGroupHandler(deps.Groups)

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/signup", authHandler.SignUp)
		auth.POST("/signin", authHandler.SignIn)
		auth.POST("/signout", authHandler.SignOut)
		auth.GET("/check", middleware.OptionalSession(deps.Auth, cfg.Session.CookieName), authHandler.Check)
	}

	requireSession := middleware.Session(deps.Auth, cfg.Session.CookieName, cfg.Session.CookieSecure)

	authed := api.Group("", requireSession)
	{
		authed.GET("/auth/me", authHandler.Me)
		authed.POST("/auth/refresh", authHandler.Refresh)

		authed.GET("/subjects", subjectHandler.List)
		authed.POST("/subjects", subjectHandler.Create)
		authed.GET("/subjects/:id", subjectHandler.Get)
		authed.PUT("/subjects/:id", subjectHandler.Update)
		authed.DELETE("/subjects/:id", subjectHandler.Delete)

		authed.GET("/subjects/:id/criteria", criteriaHandler.List)
		authed.POST("/subjects/:id/criteria", criteriaHandler.Create)
		authed.PUT("/criteria/:id", criteriaHandler.Update)
		authed.DELETE("/criteria/:id", criteriaHandler.Delete)

		authed.GET("/subjects/:id/groups", groupHandler.ListBySubject)
		authed.POST("/subjects/:id/groups", groupHandler.Create)
		authed.GET("/groups/:id", groupHandler.Get)
		authed.PUT("/groups/:id", groupHandler.Update)
		authed.DELETE("/groups/:id", groupHandler.Delete)
		authed.POST("/groups/:id/recompute", groupHandler.Recompute)

		authed.POST("/groups/:id/learners", groupHandler.AddLearner)
		authed.PUT("/groups/:id/learners/:learnerId", groupHandler.UpdateLearner)
		authed.DELETE("/groups/:id/learners/:learnerId", groupHandler.DeleteLearner)

		authed.POST("/groups/:id/columns", groupHandler.AddColumn)
		authed.PUT("/groups/:id/columns/:columnId", groupHandler.UpdateColumn)
		authed.DELETE("/groups/:id/columns/:columnId", groupHandler.DeleteColumn)

		authed.PUT("/groups/:id/scores", groupHandler.EnterScore)
	}

	if deps.Exports != nil {
		exportHandler := NewExportHandler(deps.Exports)
		authed.POST("/groups/:id/exports", exportHandler.Create)
		authed.GET("/exports/:id", exportHandler.Status)
		// Download links are pre-signed, so they bypass the session check.
		api.GET("/exports/download", exportHandler.Download)
	}

	return r
}
