// Package services – ConsumptionService
//
// This file implements the query service behind the public data endpoints.
// Every call acquires its own database connection, runs a single statement
// against the reporting view, and releases the connection before returning.
// Release is tied to successful acquisition: a failed Open never triggers a
// Close, and a successful Open is closed exactly once on every exit path.
//
// Observability: public methods are OpenTelemetry-instrumented and record
// repository latency in Prometheus.
package services

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-water-backend/internal/config"
	"github.com/tbourn/go-water-backend/internal/domain"
	"github.com/tbourn/go-water-backend/internal/observability"
	"github.com/tbourn/go-water-backend/internal/repo"
)

// DefaultPageSize is the fixed number of records per page.
const DefaultPageSize = 100

// ReadinessInfo summarizes the view for the readiness probe. Rows and
// Latest are only filled when statistics are enabled.
type ReadinessInfo struct {
	HasRows bool       `json:"has_rows"`
	Rows    *int64     `json:"rows,omitempty"`
	Latest  *time.Time `json:"latest,omitempty"`
}

// ConsumptionService serves the reporting view through per-call connections.
type ConsumptionService struct {
	// Connector opens one connection per call.
	Connector repo.Connector
	// View is the reporting view name.
	View string
	// PageSize caps the number of records per page.
	PageSize int
	// QueryTimeout bounds connect plus query; zero means no extra bound.
	QueryTimeout time.Duration
	// ReadyStats makes Ping count rows and read the latest date.
	ReadyStats bool
}

// NewConsumptionService builds a service from the database configuration.
func NewConsumptionService(c repo.Connector, cfg config.DBConfig) *ConsumptionService {
	view := cfg.View
	if view == "" {
		view = config.DefaultView
	}
	return &ConsumptionService{
		Connector:    c,
		View:         view,
		PageSize:     DefaultPageSize,
		QueryTimeout: cfg.QueryTimeout,
		ReadyStats:   cfg.ReadyStats,
	}
}

// Page returns up to PageSize records ordered by date, skipping page rows.
// The page value is used as a row offset, not a page index.
func (s *ConsumptionService) Page(ctx context.Context, page int) (series domain.ConsumptionSeries, err error) {
	ctx, span := observability.Tracer().Start(ctx, "ConsumptionService.Page",
		trace.WithAttributes(
			attribute.Int("page", page),
			attribute.String("db.view", s.View),
		),
	)
	defer func() { endSpan(span, err) }()

	if page < 0 {
		return domain.ConsumptionSeries{}, ErrInvalidPage
	}

	err = s.withConn(ctx, "page", func(ctx context.Context, db *gorm.DB) error {
		recs, qerr := repo.ListConsumptionPage(ctx, db, s.View, page, s.pageSize())
		if qerr != nil {
			return qerr
		}
		series = domain.NewConsumptionSeries(recs)
		span.SetAttributes(attribute.Int("rows", series.Len()))
		return nil
	})
	if err != nil {
		return domain.ConsumptionSeries{}, err
	}
	return series, nil
}

// AllRows returns every row of the view as column → value maps. The result
// is unbounded.
func (s *ConsumptionService) AllRows(ctx context.Context) (rows []domain.Row, err error) {
	ctx, span := observability.Tracer().Start(ctx, "ConsumptionService.AllRows",
		trace.WithAttributes(attribute.String("db.view", s.View)),
	)
	defer func() { endSpan(span, err) }()

	err = s.withConn(ctx, "all_rows", func(ctx context.Context, db *gorm.DB) error {
		var qerr error
		rows, qerr = repo.FetchAllRows(ctx, db, s.View)
		span.SetAttributes(attribute.Int("rows", len(rows)))
		return qerr
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Ping opens a connection and reads one row of the view. With ReadyStats it
// also counts rows and reads the latest date, which scans the whole view.
func (s *ConsumptionService) Ping(ctx context.Context) (info ReadinessInfo, err error) {
	ctx, span := observability.Tracer().Start(ctx, "ConsumptionService.Ping",
		trace.WithAttributes(attribute.Bool("stats", s.ReadyStats)),
	)
	defer func() { endSpan(span, err) }()

	if !s.ReadyStats {
		err = s.withConn(ctx, "probe", func(ctx context.Context, db *gorm.DB) error {
			var qerr error
			info.HasRows, qerr = repo.ViewHasRows(ctx, db, s.View)
			return qerr
		})
		return info, err
	}

	err = s.withConn(ctx, "stats", func(ctx context.Context, db *gorm.DB) error {
		n, latest, qerr := repo.ConsumptionStats(ctx, db, s.View)
		info = ReadinessInfo{HasRows: n > 0, Rows: &n, Latest: latest}
		return qerr
	})
	return info, err
}

// withConn scopes one connection around fn.
func (s *ConsumptionService) withConn(ctx context.Context, op string, fn func(context.Context, *gorm.DB) error) error {
	if s.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.QueryTimeout)
		defer cancel()
	}

	conn, err := s.Connector.Open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Warn().Err(cerr).Str("op", op).Msg("closing database connection")
		}
	}()

	start := time.Now()
	err = fn(ctx, conn.DB)
	observability.ObserveQuery(op, observability.Result(err), time.Since(start))
	return err
}

func (s *ConsumptionService) pageSize() int {
	if s.PageSize <= 0 {
		return DefaultPageSize
	}
	return s.PageSize
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
