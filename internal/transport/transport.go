package transport

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mcp-events/ticketflow/internal/transport/middleware"
)

func InitRoutes(
	eventHandler *EventHandler,
	purchaseHandler *PurchaseHandler,
	orderHandler *OrderHandler,
	adminHandler *AdminHandler,
	tokenParser middleware.TokenParser,
) *gin.Engine {

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())
	router.Use(middleware.Timeout(30))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	{
		events := api.Group("/events")
		{
			events.GET("", eventHandler.GetActiveEvents)
			events.GET("/:id", eventHandler.GetEvent)
		}

		purchase := api.Group("/purchase")
		{
			sessions := purchase.Group("/sessions")
			{
				sessions.POST("", purchaseHandler.OpenSession)
				sessions.GET("/:id", purchaseHandler.GetSession)
				sessions.PUT("/:id/participant", purchaseHandler.SaveParticipant)
				sessions.POST("/:id/advance", purchaseHandler.Advance)
				sessions.POST("/:id/back", purchaseHandler.Back)
				sessions.POST("/:id/submit", purchaseHandler.Submit)
				sessions.POST("/:id/consent", purchaseHandler.SetConsent)
				sessions.POST("/:id/finalize", purchaseHandler.Finalize)
				sessions.DELETE("/:id", purchaseHandler.CloseSession)
			}
		}

		api.POST("/participants/check", purchaseHandler.CheckParticipants)

		orders := api.Group("/orders")
		{
			orders.POST("", orderHandler.CreateOrder)
			orders.POST("/:id/capture", orderHandler.CaptureOrder)
		}

		admin := api.Group("/admin")
		{
			admin.POST("/login", adminHandler.Login)

			authorized := admin.Group("", middleware.AdminAuth(tokenParser))
			{
				authorized.GET("/events", eventHandler.GetAllEvents)
				authorized.POST("/events", eventHandler.CreateEvent)
				authorized.PUT("/events/:id", eventHandler.UpdateEvent)
				authorized.DELETE("/events/:id", eventHandler.DeleteEvent)

				authorized.GET("/purchases", adminHandler.GetPurchases)
				authorized.GET("/events/:id/tickets", adminHandler.GetEventTickets)
				authorized.POST("/tickets/:id/checkin", adminHandler.CheckInTicket)

				authorized.GET("/members", adminHandler.GetMembers)
				authorized.POST("/members", adminHandler.CreateMember)

				authorized.POST("/events/:id/notify", adminHandler.StartBroadcast)
				authorized.GET("/jobs/:id", adminHandler.GetJob)
				authorized.DELETE("/jobs/:id", adminHandler.CancelJob)
			}
		}
	}

	return router
}
