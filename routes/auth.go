package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"eventmanager/services"
)

// POST /api/auth/register
func (d *deps) signup(c *gin.Context) {
	var in services.SignupInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c)
		return
	}
	if _, err := d.Auth.Signup(c.Request.Context(), in); err != nil {
		d.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully!"})
}

// POST /api/auth/login
func (d *deps) login(c *gin.Context) {
	var in services.LoginInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c)
		return
	}
	info, token, err := d.Auth.Login(c.Request.Context(), in)
	if err != nil {
		d.writeError(c, err)
		return
	}
	d.setSessionCookie(c, token, int(d.Tokens.Expiry().Seconds()))
	c.JSON(http.StatusOK, info)
}

// POST /api/auth/logout
func (d *deps) logout(c *gin.Context) {
	d.setSessionCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"message": "Logout successful!"})
}

func (d *deps) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(d.Cookie.Name, value, maxAge, d.Cookie.Path, "", d.Cookie.Secure, true)
}
