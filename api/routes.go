package api

import (
	"github.com/gin-gonic/gin"

	"opinion-etl/config"
	"opinion-etl/utils"
)

// MaxBodyBytes caps request bodies; batch payloads carry whole opinion lists.
const MaxBodyBytes = 50 << 20

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, logger *utils.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(RecoveryMiddleware(logger))
	router.Use(RequestLogger(logger))
	router.Use(CORSMiddleware(cfg.AllowedOrigins))
	router.Use(BodyLimit(MaxBodyBytes))

	router.GET("/health", handler.HealthCheck)

	// Pipeline stages
	router.POST("/search", handler.Search)
	router.POST("/extract", handler.Extract)
	router.POST("/transform", handler.Transform)
	router.POST("/load", handler.Load)
	router.POST("/runs", handler.Run)

	products := router.Group("/products")
	{
		products.GET("", handler.ListProducts)
		products.DELETE("", handler.DeleteAll)
		products.PATCH("/:productId", handler.RefreshProduct)
		products.DELETE("/:productId", handler.DeleteProduct)
	}

	opinions := router.Group("/opinions")
	{
		opinions.GET("", handler.ListOpinions)
		opinions.DELETE("", handler.DeleteAllOpinions)
		opinions.DELETE("/:opinionId", handler.DeleteOpinion)
	}

	router.NoRoute(handler.NotFound)

	return router
}
