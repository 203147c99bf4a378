package controllers

import (
	"time"

	"github.com/gin-gonic/gin"

	"checkin-backend/services"
)

type AuthController struct {
	Auth *services.AuthService
	Team *services.TeamService
}

func NewAuthController(auth *services.AuthService, team *services.TeamService) *AuthController {
	return &AuthController{Auth: auth, Team: team}
}

type loginPayload struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type sessionResponse struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expiresAt"`
	Profile   services.Profile `json:"profile"`
}

// POST /api/auth/login
func (c *AuthController) Login(ctx *gin.Context) {
	var payload loginPayload
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		badRequest(ctx, err.Error())
		return
	}
	rc := ctx.Request.Context()
	if err := c.Auth.Authenticate(rc, payload.Email, payload.Password); err != nil {
		respondError(ctx, err)
		return
	}
	profile, err := c.Team.Resolve(rc, payload.Email)
	if err != nil {
		respondError(ctx, err)
		return
	}
	token, exp, err := c.Auth.IssueToken(profile.Principal())
	if err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, "signed in", sessionResponse{Token: token, ExpiresAt: exp, Profile: profile})
}

type changePasswordPayload struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

// POST /api/auth/password
func (c *AuthController) ChangePassword(ctx *gin.Context) {
	var payload changePasswordPayload
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		badRequest(ctx, err.Error())
		return
	}
	rc := ctx.Request.Context()
	profile := currentProfile(ctx)
	if err := c.Auth.ChangePassword(rc, profile.Email, payload.CurrentPassword, payload.NewPassword); err != nil {
		respondError(ctx, err)
		return
	}
	if err := c.Team.PasswordChanged(rc, profile.Email); err != nil {
		respondError(ctx, err)
		return
	}
	profile.MustChangePassword = false
	respondOK(ctx, "password changed", profile)
}

// GET /api/auth/me
func (c *AuthController) Me(ctx *gin.Context) {
	respondOK(ctx, "", currentProfile(ctx))
}
