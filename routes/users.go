package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"eventmanager/middlewares"
)

// GET /api/users/me
func (d *deps) me(c *gin.Context) {
	info, err := d.Auth.Me(c.Request.Context(), middlewares.CurrentUserID(c))
	if err != nil {
		d.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// GET /api/users/me/registrations
func (d *deps) myRegistrations(c *gin.Context) {
	regs, err := d.Registrations.ListForUser(c.Request.Context(), middlewares.CurrentUserID(c))
	if err != nil {
		d.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, regs)
}

// GET /api/users/me/events
func (d *deps) myEvents(c *gin.Context) {
	events, err := d.Events.ListByOrganizer(c.Request.Context(), middlewares.CurrentUserID(c))
	if err != nil {
		d.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}
