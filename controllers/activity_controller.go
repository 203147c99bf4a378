package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"checkin-backend/services"
)

type ActivityController struct {
	Activity *services.ActivityService
}

func NewActivityController(activity *services.ActivityService) *ActivityController {
	return &ActivityController{Activity: activity}
}

// GET /api/activity?limit=50
func (c *ActivityController) Recent(ctx *gin.Context) {
	limit, err := strconv.Atoi(ctx.DefaultQuery("limit", "50"))
	if err != nil || limit < 0 {
		badRequest(ctx, "limit must be a non-negative integer")
		return
	}
	entries, err := c.Activity.Recent(ctx.Request.Context(), limit)
	if err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, "", entries)
}
