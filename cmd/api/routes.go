package main

import (
	"github.com/gin-gonic/gin"

	"chat-platform/internal/httpapi"
	"chat-platform/internal/ws"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, wsHandler *ws.Handler, authMW gin.HandlerFunc) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)

	// The websocket endpoint authenticates via query token, not the bearer
	// middleware: browsers cannot set headers on websocket upgrades.
	r.GET("/ws", wsHandler.Serve)

	// protected API
	api := r.Group("/")
	api.Use(authMW)
	{
		users := api.Group("/users")
		{
			users.GET("", h.ListUsers)
			users.PUT("/me", h.UpdateMe)
			users.PUT("/me/status", h.UpdateMyStatus)
			users.GET("/:id", h.GetUser)
		}

		groups := api.Group("/groups")
		{
			groups.POST("", h.CreateGroup)
			groups.GET("", h.ListMyGroups)
			groups.GET("/:id", h.GetGroup)
			groups.DELETE("/:id", h.DeleteGroup)
			groups.POST("/:id/members", h.AddGroupMember)
			groups.DELETE("/:id/members/:userId", h.RemoveGroupMember)

			groups.POST("/:id/messages", h.SendGroupMessage)
			groups.GET("/:id/messages", h.ListGroupMessages)

			groups.POST("/:id/calls/start", h.StartGroupCall)
			groups.POST("/:id/calls/:callId/join", h.JoinGroupCall)
			groups.POST("/:id/calls/:callId/leave", h.LeaveGroupCall)
			groups.POST("/:id/calls/:callId/mute", h.MuteGroupCall)
		}

		dms := api.Group("/dms")
		{
			dms.POST("", h.CreateDM)
			dms.GET("", h.ListMyDMs)
			dms.POST("/:id/messages", h.SendDMMessage)
			dms.GET("/:id/messages", h.ListDMMessages)
		}

		messages := api.Group("/messages")
		{
			messages.PATCH("/:id", h.EditMessage)
			messages.DELETE("/:id", h.DeleteMessage)
		}

		calls := api.Group("/calls")
		{
			calls.POST("/initiate", h.InitiateCall)
			calls.GET("/:id", h.GetCall)
			calls.POST("/:id/accept", h.AcceptCall)
			calls.POST("/:id/reject", h.RejectCall)
			calls.POST("/:id/end", h.EndCall)
		}
	}
}
