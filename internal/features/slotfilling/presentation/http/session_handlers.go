package http

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"hello-prompt-agent/internal/features/slotfilling/application"
	"hello-prompt-agent/internal/features/slotfilling/domain"
	"hello-prompt-agent/internal/pkg/logger"
)

// TurnRequest is the body of POST /api/turn.
type TurnRequest struct {
	Text string `json:"text" binding:"required"`
}

// SessionResponse is the body of GET /api/session.
type SessionResponse struct {
	State        *domain.ConversationState `json:"state"`
	MissingSlots []string                  `json:"missing_slots"`
}

// SessionHandler exposes one engine over HTTP. Turns are serialized.
type SessionHandler struct {
	mu     sync.Mutex
	engine *application.Engine
	log    *logger.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(engine *application.Engine, log *logger.Logger) *SessionHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &SessionHandler{
		engine: engine,
		log:    log,
	}
}

// Register mounts the handlers on group.
func (h *SessionHandler) Register(group gin.IRouter) {
	group.POST("/turn", h.TurnHandler)
	group.GET("/session", h.GetSessionHandler)
	group.POST("/session/reset", h.ResetHandler)
	group.POST("/session/export", h.ExportHandler)
}

// TurnHandler handles one conversation turn.
func (h *SessionHandler) TurnHandler(c *gin.Context) {
	var req TurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.mu.Lock()
	res := h.engine.Step(c.Request.Context(), req.Text)
	h.mu.Unlock()

	c.JSON(http.StatusOK, res)
}

// GetSessionHandler handles fetching the current session state.
func (h *SessionHandler) GetSessionHandler(c *gin.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	state := h.engine.State()
	missing := application.MissingSlots(state, h.engine.Registry())
	if missing == nil {
		missing = []string{}
	}
	c.JSON(http.StatusOK, SessionResponse{State: state, MissingSlots: missing})
}

// ResetHandler handles starting a fresh session.
func (h *SessionHandler) ResetHandler(c *gin.Context) {
	h.mu.Lock()
	res := h.engine.Reset()
	h.mu.Unlock()

	c.JSON(http.StatusOK, res)
}

// ExportHandler handles writing a session snapshot to disk.
func (h *SessionHandler) ExportHandler(c *gin.Context) {
	h.mu.Lock()
	path, err := h.engine.Export(c.Request.Context())
	h.mu.Unlock()

	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Message})
			return
		}
		h.log.Error("Failed to export session", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export session: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": path})
}
