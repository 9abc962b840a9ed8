package controller

import (
	"strconv"

	"github.com/garka/garka-backend/internal/app/service"
	apperrors "github.com/garka/garka-backend/internal/errors"
	"github.com/garka/garka-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

// parseIDParam reads a positive uint path parameter, answering 400 itself
// when it is not one.
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// viewerFrom builds the caller identity set by the auth middleware.
func viewerFrom(c *gin.Context) (service.Viewer, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return service.Viewer{}, false
	}
	role, _ := middleware.GetUserRole(c)
	return service.Viewer{UserID: userID, Role: role}, true
}

// respondError logs err with the request logger and writes the mapped response.
func respondError(c *gin.Context, err error, context string, fields map[string]interface{}) {
	log := middleware.GetLoggerFromContext(c)
	info := apperrors.ParseError(err, context)
	if info.Status >= 500 {
		log.Error("Failed to "+context, err, fields)
	} else {
		if fields == nil {
			fields = map[string]interface{}{}
		}
		fields["error"] = err.Error()
		log.Warn("Rejected "+context, fields)
	}
	apperrors.RespondWithError(c, info.Status, info.Code, info.Message)
}
