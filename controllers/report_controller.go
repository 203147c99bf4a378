package controllers

import (
	"github.com/gin-gonic/gin"

	"checkin-backend/services"
)

type ReportController struct {
	Guests *services.GuestService
}

func NewReportController(guests *services.GuestService) *ReportController {
	return &ReportController{Guests: guests}
}

// GET /api/reports?mode=all|week|range&week=&start=&end=
func (c *ReportController) Get(ctx *gin.Context) {
	filter := services.ReportFilter{
		Mode:  services.ReportMode(ctx.DefaultQuery("mode", string(services.ReportAll))),
		Week:  ctx.Query("week"),
		Start: ctx.Query("start"),
		End:   ctx.Query("end"),
	}
	rep, err := services.BuildReport(c.Guests.List(), filter)
	if err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, "", rep)
}

type weekOption struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// GET /api/reports/weeks
func (c *ReportController) Weeks(ctx *gin.Context) {
	weeks := services.AvailableWeeks(c.Guests.List())
	out := make([]weekOption, 0, len(weeks))
	for _, w := range weeks {
		out = append(out, weekOption{Key: w, Label: services.WeekLabel(w)})
	}
	respondOK(ctx, "", out)
}
