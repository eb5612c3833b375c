package api

import (
	"github.com/gin-gonic/gin"
)

// SetupRouter initializes the Gin router and sets up the routes.
func SetupRouter(h *Handler) *gin.Engine {
	r := gin.Default()
	r.Use(ErrorMiddleware())

	r.GET("/health", h.Health)

	api := r.Group("/api")
	{
		api.POST("/auth/login", h.Login)
		api.GET("/leaderboard", h.GetLeaderboard)

		authed := api.Group("", h.AuthMiddleware())
		{
			authed.GET("/mining/status", h.MiningStatus)
			authed.POST("/mining/start", h.MiningStart)
			authed.POST("/mining/stop", h.MiningStop)
			authed.POST("/mining/collect", h.MiningCollect)
			authed.POST("/mining/upgrade", h.MiningUpgrade)
			authed.GET("/mining/rewards", h.MiningRewards)

			authed.GET("/ads/eligible", h.AdsEligible)
			authed.POST("/ads/watch", h.AdsWatch)
			authed.GET("/ads/history", h.AdsHistory)

			authed.GET("/user/profile", h.GetProfile)
			authed.PUT("/user/profile", h.UpdateProfile)

			authed.GET("/leaderboard/rank", h.GetRank)
		}
	}

	// WebSocket route
	r.GET("/ws", func(c *gin.Context) {
		h.ws.HandleWebSocket(c.Writer, c.Request)
	})

	return r
}
