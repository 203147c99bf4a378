package controllers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"checkin-backend/services"
)

type TeamController struct {
	Team *services.TeamService
}

func NewTeamController(team *services.TeamService) *TeamController {
	return &TeamController{Team: team}
}

// GET /api/team
func (c *TeamController) List(ctx *gin.Context) {
	members, err := c.Team.List(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, "", members)
}

// POST /api/team
func (c *TeamController) Add(ctx *gin.Context) {
	var payload services.AddMemberInput
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		badRequest(ctx, err.Error())
		return
	}
	m, err := c.Team.Add(ctx.Request.Context(), payload)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, APIResponse{Status: "success", Message: "member added", Data: m})
}

// POST /api/team/csv accepts multipart "file" or a text/csv body.
func (c *TeamController) ImportCSV(ctx *gin.Context) {
	var r io.Reader = ctx.Request.Body
	if fh, err := ctx.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			badRequest(ctx, err.Error())
			return
		}
		defer f.Close()
		r = f
	}
	res, err := c.Team.ImportCSV(ctx.Request.Context(), r)
	if err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, "team imported", res)
}

// PATCH /api/team/:id
func (c *TeamController) Update(ctx *gin.Context) {
	var payload services.UpdateMemberInput
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		badRequest(ctx, err.Error())
		return
	}
	m, err := c.Team.Update(ctx.Request.Context(), ctx.Param("id"), payload)
	if err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, "member updated", m)
}

// DELETE /api/team/:id
func (c *TeamController) Remove(ctx *gin.Context) {
	if err := c.Team.Remove(ctx.Request.Context(), ctx.Param("id")); err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, "member removed", nil)
}

// POST /api/team/:id/reset-password
func (c *TeamController) ResetPassword(ctx *gin.Context) {
	m, err := c.Team.ResetPassword(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, "password reset", m)
}
