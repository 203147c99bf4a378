package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"checkin-backend/models"
	"checkin-backend/services"
)

// maxWorkbookSize bounds spreadsheet uploads.
const maxWorkbookSize = 32 << 20

type AdminController struct {
	Guests   *services.GuestService
	Importer *services.Importer
	Waivers  *services.WaiverVerifier
}

func NewAdminController(guests *services.GuestService, importer *services.Importer, waivers *services.WaiverVerifier) *AdminController {
	return &AdminController{Guests: guests, Importer: importer, Waivers: waivers}
}

// upload guards the one-time overwrite: once the shared store holds
// guests, replacing them needs an explicit replace=true.
func (c *AdminController) upload(ctx *gin.Context, guests []models.GuestRecord) bool {
	replace, _ := strconv.ParseBool(ctx.Query("replace"))
	has, err := c.Guests.HasData(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return false
	}
	if has && !replace {
		respondError(ctx, services.NewError(services.CodeAlreadyExists, "guests already uploaded; pass replace=true to overwrite every record"))
		return false
	}
	if err := c.Guests.Upload(ctx.Request.Context(), guests); err != nil {
		respondError(ctx, err)
		return false
	}
	return true
}

// POST /api/admin/import (multipart "file"; query raw_sheet, dry_run, replace)
func (c *AdminController) Import(ctx *gin.Context) {
	fh, err := ctx.FormFile("file")
	if err != nil {
		badRequest(ctx, "missing workbook in form field \"file\"")
		return
	}
	if fh.Size > maxWorkbookSize {
		badRequest(ctx, "workbook is too large")
		return
	}
	f, err := fh.Open()
	if err != nil {
		badRequest(ctx, err.Error())
		return
	}
	defer f.Close()

	res, err := c.Importer.ImportWorkbook(f, ctx.Query("raw_sheet"))
	if err != nil {
		respondError(ctx, err)
		return
	}

	if dry, _ := strconv.ParseBool(ctx.Query("dry_run")); dry {
		respondOK(ctx, "preview only", res)
		return
	}
	if !c.upload(ctx, res.Guests) {
		return
	}
	respondOK(ctx, "workbook imported", res)
}

// POST /api/admin/upload with a JSON array of guest records.
func (c *AdminController) Upload(ctx *gin.Context) {
	var guests []models.GuestRecord
	if err := ctx.ShouldBindJSON(&guests); err != nil {
		badRequest(ctx, err.Error())
		return
	}
	for i := range guests {
		guests[i].OrderNumber = services.NormalizeOrderNumber(guests[i].OrderNumber)
		if guests[i].OrderNumber == "" && guests[i].ID == "" {
			badRequest(ctx, "record "+strconv.Itoa(i)+" has neither orderNumber nor id")
			return
		}
		guests[i].SyncStatus()
	}
	if !c.upload(ctx, guests) {
		return
	}
	ctx.JSON(http.StatusOK, APIResponse{Status: "success", Message: "guests uploaded", Data: gin.H{"count": len(guests)}})
}

// POST /api/admin/waivers/verify
func (c *AdminController) VerifyWaivers(ctx *gin.Context) {
	res, err := c.Waivers.VerifyAll(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, "waivers verified", res)
}
