package metrics

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/process"
)

const _maxProfile = 30 * time.Second

// Handler routes the exporter endpoints:
//
//	GET /metrics                 Prometheus exposition
//	GET /healthz                 liveness
//	GET /api/components          latest state of every component
//	GET /api/components/{name}   latest state of one component
//	GET /api/resource            CPU and RSS of this process
//	GET /api/profile?seconds=N   CPU profile of this process, as JSON
func (m *Metrics) Handler() http.Handler {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/healthz", m.health).Methods(http.MethodGet)
	r.HandleFunc("/api/components", m.listComponents).Methods(http.MethodGet)
	r.HandleFunc("/api/components/{name}", m.component).Methods(http.MethodGet)
	r.HandleFunc("/api/resource", m.resource).Methods(http.MethodGet)
	r.HandleFunc("/api/profile", m.profile).Methods(http.MethodGet)
	return r
}

// Serve listens on addr and serves Handler until ctx is cancelled. It
// returns once the listener is bound.
func (m *Metrics) Serve(ctx context.Context, addr string) (net.Addr, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	srv := &http.Server{
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics: server error", "err", err)
		}
	}()
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			slog.Warn("metrics: shutdown", "err", err)
		}
	}()

	slog.Info("metrics: listening", "addr", ln.Addr().String())
	return ln.Addr(), nil
}

func (m *Metrics) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "components": len(m.Components())})
}

func (m *Metrics) listComponents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, m.Components())
}

func (m *Metrics) component(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	c, ok := m.Component(name)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "component " + name + " not found"})
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Metrics) resource(w http.ResponseWriter, r *http.Request) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	cpu, err := p.CPUPercentWithContext(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	mem, err := p.MemoryInfoWithContext(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, resourceRsp{CPUPercent: cpu, MemorySize: mem.RSS})
}

func (m *Metrics) profile(w http.ResponseWriter, r *http.Request) {
	d := time.Second
	if s := r.URL.Query().Get("seconds"); s != "" {
		n, err := strconv.ParseFloat(s, 64)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "seconds must be a positive number"})
			return
		}
		d = min(time.Duration(n*float64(time.Second)), _maxProfile)
	}

	var buf bytes.Buffer
	if err := pprof.StartCPUProfile(&buf); err != nil {
		// another profile is running
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}
	select {
	case <-time.After(d):
	case <-r.Context().Done():
	}
	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, prof)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("metrics: write response", "err", err)
	}
}
