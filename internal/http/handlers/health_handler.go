// Health HTTP handlers.
//
// Liveness never touches the database. Readiness opens a fresh connection
// exactly like a data request would, so a ready instance has working wallet
// files and credentials.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-water-backend/internal/services"
)

// HealthResponse is the liveness body.
type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}

// ReadyResponse is the readiness body.
type ReadyResponse struct {
	Status string                 `json:"status" example:"ready"`
	View   services.ReadinessInfo `json:"view"`
}

// Health godoc
// @ID          health
// @Summary     Liveness probe
// @Tags        Health
// @Produce     json
// @Success     200  {object}  handlers.HealthResponse
// @Router      /health [get]
func (h *Handlers) Health(c *gin.Context) {
	ok(c, http.StatusOK, HealthResponse{Status: "ok"})
}

// Ready godoc
// @ID          ready
// @Summary     Readiness probe
// @Description Opens a database connection and reads one row of the view; row count and latest date are reported when DB_READY_STATS is set.
// @Tags        Health
// @Produce     json
// @Success     200  {object}  handlers.ReadyResponse
// @Failure     503  {object}  handlers.ErrorResponse  "Database unavailable"
// @Router      /ready [get]
func (h *Handlers) Ready(c *gin.Context) {
	info, err := h.svc.Ping(c.Request.Context())
	if err != nil {
		fail(c, http.StatusServiceUnavailable, ErrCodeDBUnavailable, err.Error())
		return
	}
	ok(c, http.StatusOK, ReadyResponse{Status: "ready", View: info})
}
