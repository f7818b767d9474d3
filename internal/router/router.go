package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-enrollment-api/internal/handler"
	"github.com/noah-isme/sma-enrollment-api/internal/middleware"
	"github.com/noah-isme/sma-enrollment-api/internal/models"
	"github.com/noah-isme/sma-enrollment-api/internal/service"
	"github.com/noah-isme/sma-enrollment-api/pkg/config"
	"github.com/noah-isme/sma-enrollment-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-enrollment-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-enrollment-api/pkg/middleware/requestid"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Enrollment   *handler.EnrollmentHandler
	Batch        *handler.BatchHandler
	Availability *handler.AvailabilityHandler
	Metrics      *handler.MetricsHandler
}

// Deps carries the shared collaborators needed by middleware.
type Deps struct {
	Config  *config.Config
	Logger  *zap.Logger
	Tokens  middleware.TokenValidator
	Metrics *service.MetricsService
}

var (
	staff  = []models.UserRole{models.RoleSuperAdmin, models.RoleAdmin, models.RoleTeacher}
	admins = []models.UserRole{models.RoleSuperAdmin, models.RoleAdmin}
)

// New builds the Gin engine with global middleware and every API route.
func New(deps Deps, h Handlers) *gin.Engine {
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

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	if cfg.Metrics.Enabled {
		r.GET("/metrics", h.Metrics.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(deps.Tokens))
	{
		api.POST("/enrollments", middleware.Audit(deps.Logger, "enroll", "enrollment"), h.Enrollment.Create)
		api.DELETE("/enrollments/:id", middleware.Audit(deps.Logger, "withdraw", "enrollment"), h.Enrollment.Delete)

		api.GET("/students/:id/timetable", middleware.SelfOrPrivileged("id"), h.Enrollment.Timetable)
		api.GET("/courses/:id/occupancy", h.Enrollment.Occupancy)

		batch := api.Group("", middleware.RequireRoles(staff...))
		batch.POST("/courses/:id/enrollments/batch", middleware.Audit(deps.Logger, "enroll_batch", "course"), h.Batch.Enroll)
		batch.POST("/courses/:id/enrollments/batch/async", middleware.Audit(deps.Logger, "enroll_batch_async", "course"), h.Batch.Submit)
		batch.GET("/enrollment-batches/:id", h.Batch.Get)

		api.GET("/availability", h.Availability.Find)
		api.GET("/classrooms/:id/schedule", h.Availability.ClassroomSchedule)
		api.DELETE("/availability/cache", middleware.RequireRoles(admins...), middleware.Audit(deps.Logger, "invalidate", "availability_cache"), h.Availability.Invalidate)
	}

	return r
}
