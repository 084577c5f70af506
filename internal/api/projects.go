package api

import (
	"log/slog"
	"net/http"

	"kylas-whatsapp-bridge/internal/database"
	"kylas-whatsapp-bridge/internal/wapiy"

	"github.com/gin-gonic/gin"
)

type ProjectHandler struct {
	Provider *wapiy.Client
	Accounts *database.AccountStore
	Log      *slog.Logger
}

func NewProjectHandler(provider *wapiy.Client, accounts *database.AccountStore, log *slog.Logger) *ProjectHandler {
	return &ProjectHandler{Provider: provider, Accounts: accounts, Log: log}
}

type projectView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Connected bool   `json:"connected"`
}

// GetProjects lists the provider projects of the user's business, flagging
// the one already connected.
func (h *ProjectHandler) GetProjects(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Kylas User ID is required"})
		return
	}

	acc, err := h.Accounts.FindByUserID(userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if acc.BusinessID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Business ID not found"})
		return
	}

	projects, err := h.Provider.ListProjects(c.Request.Context(), acc.BusinessID)
	if err != nil {
		h.Log.Error("project list fetch failed", "business_id", acc.BusinessID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch projects"})
		return
	}

	views := make([]projectView, 0, len(projects))
	for _, p := range projects {
		views = append(views, projectView{
			ID:        p.ProjectID,
			Name:      p.ProjectName,
			Connected: acc.ProjectID == p.ProjectID,
		})
	}

	c.JSON(http.StatusOK, gin.H{"projects": views})
}

type connectProjectRequest struct {
	UserID    string `json:"userId" binding:"required"`
	ProjectID string `json:"projectId" binding:"required"`
}

// ConnectProject links a provider project to the account. Messaging
// operations are blocked until this has happened.
func (h *ProjectHandler) ConnectProject(c *gin.Context) {
	var req connectProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User ID and Project ID are required"})
		return
	}

	acc, err := h.Accounts.FindByUserID(req.UserID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	acc.ProjectID = req.ProjectID
	if err := h.Accounts.Save(acc); err != nil {
		h.Log.Error("failed to connect project", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to connect project"})
		return
	}

	h.Log.Info("project connected", "kylas_user_id", req.UserID, "project_id", req.ProjectID)
	c.JSON(http.StatusOK, gin.H{"message": "Project connected successfully!", "projectId": req.ProjectID})
}
