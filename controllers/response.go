package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"checkin-backend/middleware"
	"checkin-backend/services"
	"checkin-backend/utils"
)

// APIResponse is the success envelope.
type APIResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func respondOK(ctx *gin.Context, message string, data interface{}) {
	ctx.JSON(http.StatusOK, APIResponse{Status: "success", Message: message, Data: data})
}

func statusFor(code services.Code) int {
	switch code {
	case services.CodeNotFound:
		return http.StatusNotFound
	case services.CodeGateDenied, services.CodeWaiverLinkRequired, services.CodeAlreadyExists:
		return http.StatusConflict
	case services.CodeSyncFailure, services.CodeVerificationFailure:
		return http.StatusBadGateway
	case services.CodeImportValidationFailure:
		return http.StatusUnprocessableEntity
	case services.CodeInvalidArgument:
		return http.StatusBadRequest
	case services.CodePermissionDenied:
		return http.StatusForbidden
	case services.CodeUnauthenticated:
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// respondError renders a domain error. Gate denials get their own shape so
// the dashboard can tell "finish the waiver first" apart from a failure.
func respondError(ctx *gin.Context, err error) {
	var e *services.Error
	if !errors.As(err, &e) {
		_ = ctx.Error(err)
		utils.JSONError(ctx, http.StatusInternalServerError, err.Error())
		return
	}
	if e.Code == services.CodeGateDenied {
		ctx.JSON(http.StatusConflict, gin.H{
			"status":      "denied",
			"reason":      e.Metadata["reason"],
			"field":       e.Metadata["field"],
			"orderNumber": e.Metadata["orderNumber"],
		})
		return
	}
	status := statusFor(e.Code)
	if status >= http.StatusInternalServerError {
		_ = ctx.Error(err)
	}
	utils.JSONErrorCode(ctx, status, string(e.Code), e.Error(), e.Metadata)
}

func badRequest(ctx *gin.Context, message string) {
	utils.JSONErrorCode(ctx, http.StatusBadRequest, string(services.CodeInvalidArgument), message, nil)
}

// currentProfile is set by middleware.RequireAuth on every protected route.
func currentProfile(ctx *gin.Context) services.Profile {
	p, _ := middleware.CurrentProfile(ctx)
	return p
}
