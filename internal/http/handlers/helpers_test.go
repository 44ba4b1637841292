package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-water-backend/internal/domain"
	"github.com/tbourn/go-water-backend/internal/services"
	"github.com/tbourn/go-water-backend/internal/web"
)

// fakeSvc records calls and returns canned results.
type fakeSvc struct {
	series  domain.ConsumptionSeries
	rows    []domain.Row
	info    services.ReadinessInfo
	err     error
	gotPage int
	calls   int
}

func (f *fakeSvc) Page(_ context.Context, page int) (domain.ConsumptionSeries, error) {
	f.calls++
	f.gotPage = page
	return f.series, f.err
}

func (f *fakeSvc) AllRows(context.Context) ([]domain.Row, error) {
	f.calls++
	return f.rows, f.err
}

func (f *fakeSvc) Ping(context.Context) (services.ReadinessInfo, error) {
	f.calls++
	return f.info, f.err
}

func newEngine(svc ConsumptionService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.SetHTMLTemplate(web.MustTemplates())
	h := New(svc)
	r.GET("/", h.Index)
	r.GET("/chart", h.Chart)
	r.GET("/favicon.ico", h.Favicon)
	r.POST("/hello", h.Hello)
	r.GET("/api/water-consumption-data", h.WaterConsumptionData)
	r.GET("/fetch-view-data", h.FetchViewData)
	r.GET("/health", h.Health)
	r.GET("/ready", h.Ready)
	return r
}

func doGET(r http.Handler, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func doForm(r http.Handler, target string, form url.Values) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.ServeHTTP(w, req)
	return w
}

func ptrF(f float64) *float64 { return &f }
func ptrS(s string) *string   { return &s }

