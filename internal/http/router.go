// README: HTTP router registration.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"poring/internal/config"
	"poring/internal/http/handlers"
	"poring/internal/http/middleware"
	"poring/internal/modules/bike"
	"poring/internal/modules/chat"
	"poring/internal/modules/hub"
	"poring/internal/modules/mission"
	"poring/internal/modules/rental"
	"poring/internal/modules/user"
)

type RouterDeps struct {
	Hubs     *hub.Service
	Bikes    *bike.Store
	Users    *user.Store
	Rentals  *rental.Service
	Missions *mission.Service
	Chat     *chat.Service

	Logger *slog.Logger
	Ops    config.OpsConfig
}

func NewRouter(deps RouterDeps) http.Handler {
	reg := prometheus.NewRegistry()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logging(deps.Logger))
	r.Use(middleware.Metrics(reg))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	api := r.Group("/api")

	hubHandler := handlers.NewHubHandler(deps.Hubs, deps.Bikes, deps.Ops.FullBatteryLevel, deps.Ops.RecommendRadiusKm)
	api.GET("/hubs", hubHandler.Board)
	api.GET("/available-bikes", hubHandler.Availability)
	api.GET("/available-nearby-bikes", hubHandler.Nearby)
	api.GET("/rent-recommend", hubHandler.Recommend)

	rentalHandler := handlers.NewRentalHandler(deps.Rentals, deps.Hubs)
	api.POST("/rentals", rentalHandler.Start)
	api.POST("/rentals/return", rentalHandler.Return)

	missionHandler := handlers.NewMissionHandler(deps.Missions)
	api.POST("/missions/prepare", missionHandler.Prepare)
	api.POST("/missions/complete", missionHandler.Complete)

	userHandler := handlers.NewUserHandler(deps.Users)
	api.GET("/users/:id/summary", userHandler.Summary)

	chatHandler := handlers.NewChatHandler(deps.Chat)
	api.POST("/chat", chatHandler.Message)

	return r
}
