package routes

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"eventmanager/services"
)

var statusByKind = map[services.Kind]int{
	services.KindNotFound:     http.StatusNotFound,
	services.KindConflict:     http.StatusConflict,
	services.KindForbidden:    http.StatusForbidden,
	services.KindValidation:   http.StatusBadRequest,
	services.KindUnauthorized: http.StatusUnauthorized,
}

// writeError maps service errors to their status and message. Anything else
// is logged and hidden behind a generic 500.
func (d *deps) writeError(c *gin.Context, err error) {
	var se *services.Error
	if errors.As(err, &se) {
		c.JSON(statusByKind[se.Kind], gin.H{"message": se.Message})
		return
	}
	_ = c.Error(err)
	d.Logger.Error().Err(err).
		Str("method", c.Request.Method).
		Str("route", c.FullPath()).
		Msg("request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"message": "Something went wrong. Try again later."})
}

func badRequest(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"message": "Could not parse request data."})
}
