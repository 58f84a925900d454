package ws

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"chat-platform/internal/auth"
	"chat-platform/internal/config"
	"chat-platform/internal/presence"
)

// Presence is the slice of the presence tracker the handler drives on
// connect and disconnect.
type Presence interface {
	UpdateStatus(ctx context.Context, userID string, status presence.Status)
}

// ConnectBudget rate-limits connection attempts per user. A nil budget
// admits everything; a budget error fails open.
type ConnectBudget func(ctx context.Context, userID string) (bool, error)

// Handler owns the /ws endpoint: it authenticates the upgrade request,
// registers the session, and runs the two pumps until disconnect.
type Handler struct {
	registry *Registry
	router   *Router
	presence Presence
	tokens   *auth.Manager
	budget   ConnectBudget
	cfg      config.WSConfig
	log      *slog.Logger
	upgrader websocket.Upgrader
}

func NewHandler(registry *Registry, router *Router, pres Presence, tokens *auth.Manager, budget ConnectBudget, cfg config.WSConfig, log *slog.Logger) *Handler {
	return &Handler{
		registry: registry,
		router:   router,
		presence: pres,
		tokens:   tokens,
		budget:   budget,
		cfg:      cfg,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Token auth gates the upgrade; origin is not part of the policy.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Serve handles GET /ws?token=<access token>.
func (h *Handler) Serve(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	claims, err := h.tokens.Verify(token, auth.TokenTypeAccess, time.Now())
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	userID := claims.UserID

	if h.budget != nil {
		allowed, err := h.budget(c.Request.Context(), userID)
		if err != nil {
			h.log.Warn("connect budget check failed", "userId", userID, "error", err)
		} else if !allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many connection attempts"})
			return
		}
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "userId", userID, "error", err)
		return
	}

	s := newSession(userID, conn, h.cfg, h.log)
	h.registry.Register(userID, s)
	h.presence.UpdateStatus(context.Background(), userID, presence.StatusOnline)
	h.log.Info("websocket connected", "userId", userID)

	go s.writePump()
	s.readPump(func(raw []byte) {
		h.router.HandleFrame(context.Background(), userID, raw)
	})

	// A reconnect may have superseded this session; only the current session
	// going away flips the user offline.
	if h.registry.Deregister(userID, s) {
		h.presence.UpdateStatus(context.Background(), userID, presence.StatusOffline)
	}
	h.log.Info("websocket disconnected", "userId", userID)
}
