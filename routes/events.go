package routes

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"eventmanager/models"
	"eventmanager/services"
)

// GET /api/events?category=&organizerId=
func (d *deps) getEvents(c *gin.Context) {
	f := models.EventFilter{Category: c.Query("category")}
	if raw := c.Query("organizerId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"message": "organizerId must be a positive integer."})
			return
		}
		f.OrganizerID = id
	}

	events, err := d.Events.List(c.Request.Context(), f)
	if err != nil {
		d.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

// GET /api/events/:id
func (d *deps) getEvent(c *gin.Context) {
	event, err := d.Events.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		d.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

// POST /api/events
func (d *deps) createEvent(c *gin.Context) {
	var in services.EventInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c)
		return
	}
	event, err := d.Events.Create(c.Request.Context(), actorFrom(c), in)
	if err != nil {
		d.writeError(c, err)
		return
	}
	d.Invalidator.PurgeEvent(c.Request.Context(), event.ID)
	c.JSON(http.StatusCreated, event)
}

// PUT /api/events/:id
func (d *deps) updateEvent(c *gin.Context) {
	var in services.EventInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c)
		return
	}
	event, err := d.Events.Update(c.Request.Context(), actorFrom(c), c.Param("id"), in)
	if err != nil {
		d.writeError(c, err)
		return
	}
	d.Invalidator.PurgeEvent(c.Request.Context(), event.ID)
	c.JSON(http.StatusOK, event)
}

// DELETE /api/events/:id
func (d *deps) deleteEvent(c *gin.Context) {
	id := c.Param("id")
	if err := d.Events.Delete(c.Request.Context(), actorFrom(c), id); err != nil {
		d.writeError(c, err)
		return
	}
	d.Invalidator.PurgeEvent(c.Request.Context(), id)
	c.Status(http.StatusNoContent)
}
