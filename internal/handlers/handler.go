package handlers

import (
	"controlling_incubator/internal/logger"
	"controlling_incubator/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger) *Handler {
	return &Handler{services: services, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", h.health)

	h.registerAuthRoutes(router)

	// Versioned API endpoints (protected)
	h.registerAPIRoutes(router)

	// Snapshot and notification stream on the same port
	router.GET("/ws", h.wsAuthMiddleware, h.wsConnect)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.userIdMiddleware)
	{
		h.registerStateRoutes(api)
		h.registerCommandRoutes(api)
		h.registerIncubationRoutes(api)
		h.registerConnectionRoutes(api)
		h.registerLogRoutes(api)
	}
}

func (h *Handler) registerStateRoutes(api *gin.RouterGroup) {
	api.GET("/readings", h.getReadings)
	api.GET("/targets", h.getTargets)
	api.GET("/status", h.getDeviceStatus)
	api.GET("/history", h.getHistory)
	api.GET("/profiles", h.getProfiles)
}

func (h *Handler) registerCommandRoutes(api *gin.RouterGroup) {
	commands := api.Group("/commands")
	{
		// Body example: {"target_temperature":37.8}
		commands.POST("/temperature", h.setTemperature)
		// Body example: {"name":"Ayam (38°C)"}
		commands.POST("/profile", h.applyProfile)
		commands.POST("/buzzer", h.setBuzzer)
		commands.POST("/relay", h.setRelayTiming)
	}
}

func (h *Handler) registerIncubationRoutes(api *gin.RouterGroup) {
	inc := api.Group("/incubation")
	{
		inc.POST("/start-date", h.setStartDate)
		inc.POST("/reset", h.resetBatch)
	}
}

func (h *Handler) registerConnectionRoutes(api *gin.RouterGroup) {
	api.GET("/connection", h.getConnection)
	api.POST("/connection/connect", h.connect)
	api.POST("/connection/disconnect", h.disconnect)
	api.GET("/credentials", h.getCredentials)
	api.DELETE("/credentials", h.clearCredentials)
}

func (h *Handler) registerLogRoutes(api *gin.RouterGroup) {
	logs := api.Group("/logs")
	{
		logs.GET("/", h.getLogs)
	}
}
