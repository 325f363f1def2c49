package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hello-prompt-agent/internal/features/config/domain"
)

// ConfigHandler serves the configuration loaded at startup.
type ConfigHandler struct {
	registry *domain.TemplateRegistry
	assist   domain.AssistConfig
}

// templatesResponse is the JSON view of a TemplateRegistry.
type templatesResponse struct {
	Modes         []domain.Mode       `json:"modes"`
	RequiredSlots map[string][]string `json:"required_slots"`
	SlotPriority  []string            `json:"slot_priority"`
	Questions     map[string]string   `json:"questions"`
	Warnings      []string            `json:"warnings,omitempty"`
}

// NewConfigHandler creates a new ConfigHandler.
func NewConfigHandler(registry *domain.TemplateRegistry, assist domain.AssistConfig) *ConfigHandler {
	return &ConfigHandler{
		registry: registry,
		assist:   assist,
	}
}

// Register mounts the handlers on group.
func (h *ConfigHandler) Register(group gin.IRouter) {
	group.GET("/templates", h.GetTemplatesHandler)
	group.GET("/assist", h.GetAssistConfigHandler)
}

// GetTemplatesHandler handles fetching the template registry.
func (h *ConfigHandler) GetTemplatesHandler(c *gin.Context) {
	modes := h.registry.Modes()
	resp := templatesResponse{
		Modes:         modes,
		RequiredSlots: make(map[string][]string, len(modes)),
		SlotPriority:  h.registry.SlotPriority(),
		Questions:     map[string]string{},
		Warnings:      h.registry.Warnings(),
	}
	for _, m := range modes {
		resp.RequiredSlots[m.Key()] = h.registry.RequiredSlots(m.Key())
	}
	for _, k := range h.registry.QuestionKeys() {
		resp.Questions[k] = h.registry.Question(k)
	}
	c.JSON(http.StatusOK, resp)
}

// GetAssistConfigHandler handles fetching the assist configuration.
func (h *ConfigHandler) GetAssistConfigHandler(c *gin.Context) {
	c.JSON(http.StatusOK, h.assist)
}
