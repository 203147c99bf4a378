package controllers

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"checkin-backend/models"
	"checkin-backend/services"
)

type GuestController struct {
	Guests    *services.GuestService
	Mutations *services.MutationApplier
	Waivers   *services.WaiverVerifier
	Now       func() time.Time
}

func NewGuestController(guests *services.GuestService, mutations *services.MutationApplier, waivers *services.WaiverVerifier) *GuestController {
	return &GuestController{Guests: guests, Mutations: mutations, Waivers: waivers, Now: time.Now}
}

// GET /api/guests?q=&filter=&limit=
func (c *GuestController) List(ctx *gin.Context) {
	category, err := services.ParseCategory(ctx.Query("filter"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	limit := 0
	if raw := ctx.Query("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit < 0 {
			badRequest(ctx, "limit must be a non-negative integer")
			return
		}
	}
	res := services.Search(c.Guests.List(), ctx.Query("q"), category, limit)
	respondOK(ctx, "", res)
}

// GET /api/guests/stats
func (c *GuestController) Stats(ctx *gin.Context) {
	respondOK(ctx, "", c.Guests.Counts())
}

type guestDetail struct {
	Guest       models.GuestRecord                  `json:"guest"`
	Permissions map[models.Field]services.Decision `json:"permissions"`
}

// GET /api/guests/:order
func (c *GuestController) Get(ctx *gin.Context) {
	g, err := c.Guests.Get(ctx.Param("order"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, "", guestDetail{Guest: g, Permissions: services.Permissions(g)})
}

// POST /api/guests/:order/toggle/:field
func (c *GuestController) Toggle(ctx *gin.Context) {
	field, err := models.ParseField(ctx.Param("field"))
	if err != nil {
		badRequest(ctx, err.Error())
		return
	}
	res, err := c.Mutations.ApplyToggle(ctx.Request.Context(), ctx.Param("order"), field, currentProfile(ctx).Actor())
	if err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, field.ActionLabel(), res)
}

type waiverPayload struct {
	Value string `json:"value"`
}

// PUT /api/guests/:order/waiver
func (c *GuestController) SetWaiver(ctx *gin.Context) {
	var payload waiverPayload
	if ctx.Request.ContentLength != 0 {
		if err := ctx.ShouldBindJSON(&payload); err != nil {
			badRequest(ctx, err.Error())
			return
		}
	}
	if payload.Value == "" {
		payload.Value = services.WaiverSigned
	}
	res, err := c.Mutations.SetWaiver(ctx.Request.Context(), ctx.Param("order"), payload.Value, currentProfile(ctx).Actor())
	if err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, "waiver updated", res)
}

// GET /api/guests/:order/waiver-check
func (c *GuestController) CheckWaiver(ctx *gin.Context) {
	found, err := c.Waivers.CheckOrder(ctx.Request.Context(), ctx.Param("order"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, "", gin.H{"orderNumber": services.NormalizeOrderNumber(ctx.Param("order")), "found": found})
}

type quickImportPayload struct {
	Text string `json:"text" binding:"required"`
}

// POST /api/guests/quick-import
func (c *GuestController) QuickImport(ctx *gin.Context) {
	var payload quickImportPayload
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		badRequest(ctx, err.Error())
		return
	}
	rows := services.ParseQuickImport(payload.Text)
	if len(rows) == 0 {
		badRequest(ctx, "no guests found in text")
		return
	}
	guests := services.BuildQuickImport(rows, c.Now())
	if err := c.Guests.AddManual(ctx.Request.Context(), guests); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, APIResponse{Status: "success", Message: "guests added", Data: guests})
}

type streamFrame struct {
	Counts services.Counts       `json:"counts"`
	Guests []models.GuestRecord `json:"guests"`
}

// GET /api/guests/stream pushes the full guest list after every change.
func (c *GuestController) Stream(ctx *gin.Context) {
	updates := make(chan []models.GuestRecord, 1)
	cancel := c.Guests.Watch(func(gs []models.GuestRecord) {
		// Keep only the newest snapshot for slow clients.
		select {
		case <-updates:
		default:
		}
		select {
		case updates <- gs:
		default:
		}
	})
	defer cancel()

	ticker := time.NewTicker(25 * time.Second)
	defer ticker.Stop()

	// The server write timeout would otherwise cut the stream.
	_ = http.NewResponseController(ctx.Writer).SetWriteDeadline(time.Time{})

	ctx.Header("Cache-Control", "no-cache")
	ctx.Header("X-Accel-Buffering", "no")
	ctx.Stream(func(w io.Writer) bool {
		select {
		case gs := <-updates:
			ctx.SSEvent("guests", streamFrame{Counts: services.CountGuests(gs), Guests: gs})
			return true
		case <-ticker.C:
			ctx.SSEvent("ping", c.Now().UTC().Format(time.RFC3339))
			return true
		case <-ctx.Request.Context().Done():
			return false
		}
	})
}
