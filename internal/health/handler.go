package health

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"mt-stocktrade/internal/httputil"
)

type Handler struct {
	pool        *pgxpool.Pool
	startedAt   time.Time
	httpAddr    string
	internalTok string
}

func NewHandler(pool *pgxpool.Pool, startedAt time.Time, httpAddr, internalToken string) *Handler {
	start := startedAt.UTC()
	if start.IsZero() {
		start = time.Now().UTC()
	}
	return &Handler{
		pool:        pool,
		startedAt:   start,
		httpAddr:    strings.TrimSpace(httpAddr),
		internalTok: strings.TrimSpace(internalToken),
	}
}

type liveResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	UptimeSec int64  `json:"uptime_sec"`
}

type readinessResponse struct {
	Status    string  `json:"status"`
	Timestamp string  `json:"timestamp"`
	UptimeSec int64   `json:"uptime_sec"`
	Database  dbStats `json:"database"`
}

type dbStats struct {
	Reachable bool   `json:"reachable"`
	PingMs    int64  `json:"ping_ms"`
	Error     string `json:"error,omitempty"`
}

func (h *Handler) uptime(now time.Time) time.Duration {
	up := now.Sub(h.startedAt)
	if up < 0 {
		return 0
	}
	return up
}

func (h *Handler) requireInternalToken(w http.ResponseWriter, r *http.Request) bool {
	if h.internalTok == "" {
		httputil.WriteJSON(w, http.StatusServiceUnavailable, httputil.ErrorResponse{Error: "internal token is not configured"})
		return false
	}
	provided := strings.TrimSpace(r.Header.Get("X-Internal-Token"))
	if len(provided) != len(h.internalTok) ||
		subtle.ConstantTimeCompare([]byte(provided), []byte(h.internalTok)) != 1 {
		httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "invalid internal token"})
		return false
	}
	return true
}

func (h *Handler) pingDB(ctx context.Context) dbStats {
	if h.pool == nil {
		return dbStats{Error: "pool is not configured"}
	}
	pingCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	start := time.Now()
	err := h.pool.Ping(pingCtx)
	out := dbStats{PingMs: time.Since(start).Milliseconds()}
	if err != nil {
		out.Error = err.Error()
	} else {
		out.Reachable = true
	}
	return out
}

// Live is a lightweight liveness endpoint and does not touch the database.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	httputil.WriteJSON(w, http.StatusOK, liveResponse{
		Status:    "ok",
		Timestamp: now.Format(time.RFC3339),
		UptimeSec: int64(h.uptime(now).Seconds()),
	})
}

// Ready checks database reachability and returns 503 when the ping fails.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	db := h.pingDB(r.Context())
	status, httpStatus := "ok", http.StatusOK
	if !db.Reachable {
		status, httpStatus = "degraded", http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, httpStatus, readinessResponse{
		Status:    status,
		Timestamp: now.Format(time.RFC3339),
		UptimeSec: int64(h.uptime(now).Seconds()),
		Database:  db,
	})
}

// Metrics returns basic Prometheus-compatible text metrics, protected by X-Internal-Token.
func (h *Handler) Metrics(w http.ResponseWriter, r *http.Request) {
	if !h.requireInternalToken(w, r) {
		return
	}

	now := time.Now().UTC()
	db := h.pingDB(r.Context())
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	dbUp := 0
	if db.Reachable {
		dbUp = 1
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "stocktrade_up 1\n")
	_, _ = fmt.Fprintf(w, "stocktrade_uptime_seconds %d\n", int64(h.uptime(now).Seconds()))
	_, _ = fmt.Fprintf(w, "stocktrade_db_up %d\n", dbUp)
	_, _ = fmt.Fprintf(w, "stocktrade_db_ping_milliseconds %d\n", db.PingMs)
	_, _ = fmt.Fprintf(w, "stocktrade_go_goroutines %d\n", runtime.NumGoroutine())
	_, _ = fmt.Fprintf(w, "stocktrade_go_mem_alloc_bytes %d\n", mem.Alloc)
	_, _ = fmt.Fprintf(w, "stocktrade_go_mem_sys_bytes %d\n", mem.Sys)
	_, _ = fmt.Fprintf(w, "stocktrade_go_gc_count %d\n", mem.NumGC)
	_, _ = fmt.Fprintf(w, "stocktrade_process_pid %d\n", os.Getpid())

	if h.pool != nil {
		stat := h.pool.Stat()
		_, _ = fmt.Fprintf(w, "stocktrade_db_pool_total_conns %d\n", stat.TotalConns())
		_, _ = fmt.Fprintf(w, "stocktrade_db_pool_idle_conns %d\n", stat.IdleConns())
		_, _ = fmt.Fprintf(w, "stocktrade_db_pool_acquired_conns %d\n", stat.AcquiredConns())
		_, _ = fmt.Fprintf(w, "stocktrade_db_pool_max_conns %d\n", stat.MaxConns())
	}
}
