package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"kylas-whatsapp-bridge/internal/database"
	"kylas-whatsapp-bridge/internal/models"
	"kylas-whatsapp-bridge/internal/wapiy"

	"github.com/gin-gonic/gin"
)

type TemplateHandler struct {
	Accounts  *database.AccountStore
	Templates *database.TemplateStore
	Log       *slog.Logger
}

func NewTemplateHandler(accounts *database.AccountStore, templates *database.TemplateStore, log *slog.Logger) *TemplateHandler {
	return &TemplateHandler{Accounts: accounts, Templates: templates, Log: log}
}

type saveTemplateRequest struct {
	UserID   string            `json:"userId" binding:"required"`
	Template wapiy.TemplateObj `json:"template" binding:"required"`
}

// SaveTemplate appends a template definition to the user's saved list.
func (h *TemplateHandler) SaveTemplate(c *gin.Context) {
	var req saveTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User ID and template are required"})
		return
	}

	if _, err := h.Accounts.FindByUserID(req.UserID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found in the database"})
		return
	}

	set, err := h.Templates.FindByUserID(req.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if set == nil {
		set = &models.TemplateSet{KylasUserID: req.UserID, Templates: "[]"}
	}

	var templates []wapiy.TemplateObj
	if err := json.Unmarshal([]byte(set.Templates), &templates); err != nil {
		templates = nil
	}
	templates = append(templates, req.Template)

	data, err := json.Marshal(templates)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	set.Templates = string(data)

	if err := h.Templates.Save(set); err != nil {
		h.Log.Error("failed to save template", "kylas_user_id", req.UserID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	h.Log.Info("template saved", "kylas_user_id", req.UserID, "name", req.Template.Name)
	c.JSON(http.StatusOK, gin.H{"message": "Template saved successfully"})
}

// GetTemplates returns the user's saved templates.
func (h *TemplateHandler) GetTemplates(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User ID is required"})
		return
	}

	if _, err := h.Accounts.FindByUserID(userID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found in the database"})
		return
	}

	set, err := h.Templates.FindByUserID(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if set == nil {
		c.JSON(http.StatusOK, gin.H{"templates": []wapiy.TemplateObj{}})
		return
	}

	var templates []wapiy.TemplateObj
	if err := json.Unmarshal([]byte(set.Templates), &templates); err != nil {
		templates = []wapiy.TemplateObj{}
	}

	c.JSON(http.StatusOK, gin.H{"templates": templates})
}
