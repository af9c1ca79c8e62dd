package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"eventmanager/middlewares"
)

// POST /api/events/:id/register
func (d *deps) registerForEvent(c *gin.Context) {
	eventID := c.Param("id")
	if err := d.Registrations.Register(c.Request.Context(), middlewares.CurrentUserID(c), eventID); err != nil {
		d.writeError(c, err)
		return
	}
	d.Invalidator.PurgeEvent(c.Request.Context(), eventID)
	c.JSON(http.StatusOK, gin.H{"message": "Successfully registered for event."})
}

// DELETE /api/events/:id/register
func (d *deps) cancelRegistration(c *gin.Context) {
	eventID := c.Param("id")
	if err := d.Registrations.Deregister(c.Request.Context(), middlewares.CurrentUserID(c), eventID); err != nil {
		d.writeError(c, err)
		return
	}
	d.Invalidator.PurgeEvent(c.Request.Context(), eventID)
	c.JSON(http.StatusOK, gin.H{"message": "Successfully deregistered from event."})
}

// GET /api/events/:id/registrations
func (d *deps) eventRegistrations(c *gin.Context) {
	regs, err := d.Registrations.ListForEvent(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		d.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, regs)
}

// GET /api/events/:id/registrations/status
func (d *deps) registrationStatus(c *gin.Context) {
	ok, err := d.Registrations.Status(c.Request.Context(), middlewares.CurrentUserID(c), c.Param("id"))
	if err != nil {
		d.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"isRegistered": ok})
}
