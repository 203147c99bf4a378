package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"checkin-backend/models"
	"checkin-backend/services"
)

type SettingsController struct {
	Settings *services.SettingsService
}

func NewSettingsController(settings *services.SettingsService) *SettingsController {
	return &SettingsController{Settings: settings}
}

// GET /api/settings. Staff get the settings without the API key.
func (c *SettingsController) Get(ctx *gin.Context) {
	if currentProfile(ctx).IsAdmin() {
		ctx.JSON(http.StatusOK, gin.H{"settings": c.Settings.Get()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"settings": c.Settings.Public()})
}

// PUT /api/settings
func (c *SettingsController) Update(ctx *gin.Context) {
	var payload models.Settings
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		badRequest(ctx, err.Error())
		return
	}
	saved, err := c.Settings.Update(ctx.Request.Context(), payload)
	if services.CodeOf(err) == services.CodeSyncFailure {
		// Saved locally; other devices catch up later.
		ctx.JSON(http.StatusOK, gin.H{"settings": saved, "syncError": err.Error()})
		return
	}
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"settings": saved})
}
