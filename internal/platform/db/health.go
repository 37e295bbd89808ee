package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

const defaultHealthTimeout = 5 * time.Second

// PoolStats is a snapshot of pool usage.
type PoolStats struct {
	TotalConns      int32   `json:"total_conns"`
	IdleConns       int32   `json:"idle_conns"`
	AcquiredConns   int32   `json:"acquired_conns"`
	MaxConns        int32   `json:"max_conns"`
	Saturation      float64 `json:"saturation"`
	AcquireCount    int64   `json:"acquire_count"`
	AcquireDuration string  `json:"acquire_duration"`
}

func poolStats(stat *pgxpool.Stat) *PoolStats {
	out := &PoolStats{
		TotalConns:      stat.TotalConns(),
		IdleConns:       stat.IdleConns(),
		AcquiredConns:   stat.AcquiredConns(),
		MaxConns:        stat.MaxConns(),
		AcquireCount:    stat.AcquireCount(),
		AcquireDuration: stat.AcquireDuration().String(),
	}
	if out.MaxConns > 0 {
		out.Saturation = float64(out.AcquiredConns) / float64(out.MaxConns)
	}
	return out
}

// Pinger is the part of a pool the health check needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthReport is the body of /health/db.
type HealthReport struct {
	Status  string     `json:"status"`
	Latency string     `json:"latency"`
	Error   string     `json:"error,omitempty"`
	Pool    *PoolStats `json:"pool,omitempty"`
}

func (r HealthReport) Healthy() bool { return r.Status == "healthy" }

// Checker pings the database under a deadline. Stats is optional.
type Checker struct {
	Pinger  Pinger
	Stats   func() *PoolStats
	Timeout time.Duration
}

func NewChecker(pool *pgxpool.Pool) *Checker {
	return &Checker{
		Pinger: pool,
		Stats:  func() *PoolStats { return poolStats(pool.Stat()) },
	}
}

func (h *Checker) Check(ctx context.Context) HealthReport {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = defaultHealthTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := h.Pinger.Ping(ctx)
	report := HealthReport{Status: "healthy", Latency: time.Since(start).String()}
	if err != nil {
		report.Status = "unhealthy"
		report.Error = err.Error()
	}
	if h.Stats != nil {
		report.Pool = h.Stats()
	}
	return report
}

// Handler serves the report, answering 503 when the ping fails.
func (h *Checker) Handler() echo.HandlerFunc {
	return func(c echo.Context) error {
		report := h.Check(c.Request().Context())
		if !report.Healthy() {
			return c.JSON(http.StatusServiceUnavailable, report)
		}
		return c.JSON(http.StatusOK, report)
	}
}
