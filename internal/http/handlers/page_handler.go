// Page HTTP handlers.
//
// This file serves the HTML pages and the favicon. Templates are registered
// on the engine by the router (see web.MustTemplates), so handlers refer to
// them by file name.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/unicode/norm"

	"github.com/tbourn/go-water-backend/internal/http/middleware"
	"github.com/tbourn/go-water-backend/internal/web"
)

// FaviconContentType is the media type the icon is served with.
const FaviconContentType = "image/vnd.microsoft.icon"

// Index renders the landing page.
func (h *Handlers) Index(c *gin.Context) {
	middleware.LoggerFrom(c).Debug().Msg("request for index page received")
	c.HTML(http.StatusOK, "index.html", nil)
}

// Chart renders the chart page, which loads its data from the JSON API.
func (h *Handlers) Chart(c *gin.Context) {
	middleware.LoggerFrom(c).Debug().Msg("request for chart page received")
	c.HTML(http.StatusOK, "chart.html", nil)
}

// Favicon serves the embedded icon.
func (h *Handlers) Favicon(c *gin.Context) {
	b, err := web.Favicon()
	if err != nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "favicon not found")
		return
	}
	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, FaviconContentType, b)
}

// Hello renders a greeting for the posted form field "name". A missing or
// empty name redirects to the index page.
func (h *Handlers) Hello(c *gin.Context) {
	name := norm.NFC.String(c.PostForm("name"))
	if name == "" {
		middleware.LoggerFrom(c).Info().Msg("request for hello page received with no name or blank name, redirecting")
		c.Redirect(http.StatusFound, "/")
		return
	}
	// The name itself is not logged.
	middleware.LoggerFrom(c).Info().Int("name_len", len(name)).Msg("request for hello page received")
	c.HTML(http.StatusOK, "hello.html", gin.H{"Name": name})
}
