// Consumption HTTP handlers.
//
// This file exposes the read-only JSON endpoints over the reporting view:
//   - GET /api/water-consumption-data?page=N  (chart series, 100 rows from offset N)
//   - GET /fetch-view-data                    (every row, every column)
//
// Handlers are transport-thin: they validate input, call the query service,
// and translate results into HTTP responses. Any database failure becomes a
// 500 carrying the driver message in "error".
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-water-backend/internal/domain"
	"github.com/tbourn/go-water-backend/internal/repo"
	"github.com/tbourn/go-water-backend/internal/services"
	"github.com/tbourn/go-water-backend/internal/utils"
)

// ConsumptionService is the query contract consumed by the handlers.
//
// Implementations must be safe for concurrent use and honor ctx for
// cancellation.
type ConsumptionService interface {
	// Page returns up to 100 records ordered by date, skipping page rows.
	Page(ctx context.Context, page int) (domain.ConsumptionSeries, error)
	// AllRows returns every row of the view.
	AllRows(ctx context.Context) ([]domain.Row, error)
	// Ping checks that a connection can be opened and the view read.
	Ping(ctx context.Context) (services.ReadinessInfo, error)
}

// Handlers groups the HTTP endpoints. It depends on the service interface to
// keep transport concerns separate from data access.
type Handlers struct {
	svc ConsumptionService
}

// New constructs a Handlers bound to svc.
func New(svc ConsumptionService) *Handlers {
	return &Handlers{svc: svc}
}

// WaterConsumptionData godoc
// @ID          getWaterConsumptionData
// @Summary     Chart series for the consumption view
// @Description Returns up to 100 records ordered by consumption date ascending, skipping `page` rows.
// @Description Note that `page` is a row offset: page=100 returns rows 101-200.
// @Tags        Consumption
// @Produce     json
//
// @Param       page  query  int  false  "Row offset"  minimum(0) default(0)
//
// @Success     200  {object}  domain.ConsumptionSeries
// @Failure     400  {object}  handlers.ErrorResponse  "Malformed or negative page"
// @Failure     500  {object}  handlers.ErrorResponse  "Database error"
// @Router      /api/water-consumption-data [get]
func (h *Handlers) WaterConsumptionData(c *gin.Context) {
	page, err := utils.ParseNonNegative(c.Query("page"), 0)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "page "+err.Error())
		return
	}

	series, err := h.svc.Page(c.Request.Context(), page)
	if err != nil {
		h.dbFailure(c, err)
		return
	}
	ok(c, http.StatusOK, series)
}

// FetchViewData godoc
// @ID          fetchViewData
// @Summary     Every row of the consumption view
// @Description Returns all rows as objects keyed by the column names reported by the database. The result is not paginated.
// @Tags        Consumption
// @Produce     json
//
// @Success     200  {array}   object
// @Failure     500  {object}  handlers.ErrorResponse  "Database error"
// @Router      /fetch-view-data [get]
func (h *Handlers) FetchViewData(c *gin.Context) {
	rows, err := h.svc.AllRows(c.Request.Context())
	if err != nil {
		h.dbFailure(c, err)
		return
	}
	ok(c, http.StatusOK, rows)
}

// dbFailure maps service errors to HTTP. The driver message is passed
// through for both connection and query failures.
func (h *Handlers) dbFailure(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidPage):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case repo.IsConnectionError(err):
		fail(c, http.StatusInternalServerError, ErrCodeDBUnavailable, err.Error())
	default:
		fail(c, http.StatusInternalServerError, ErrCodeQueryFailed, err.Error())
	}
}
