package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/voicetray/vigil/internal/logstore"
	"github.com/voicetray/vigil/internal/manager"
	"github.com/voicetray/vigil/internal/metrics"
	"github.com/voicetray/vigil/internal/supervisor"
)

// Router provides the local control API over the process manager.
// Endpoints (all under basePath):
//
//	POST /server/start      POST /autotype/start
//	POST /server/stop       POST /autotype/stop
//	POST /server/restart    POST /autotype/restart
//	GET  /server/status     GET  /autotype/status
//	GET  /status            both services
//	GET  /events?limit=n    recent event ring
//	GET  /logs?component=server&limit=n   captured output (when stored)
//	GET  /metrics           Prometheus exposition
type Router struct {
	mgr      *manager.Manager
	sink     logstore.Sink
	basePath string
}

// entryReader is satisfied by the sqlite and postgres stores; reading
// captured output back is not part of the Sink contract.
type entryReader interface {
	Recent(ctx context.Context, component string, limit int) ([]logstore.Entry, error)
}

// NewRouter constructs a Router. sink may be nil; /logs then returns 404.
func NewRouter(mgr *manager.Manager, sink logstore.Sink, basePath string) *Router {
	return &Router{mgr: mgr, sink: sink, basePath: sanitizeBase(basePath)}
}

// Handler returns an http.Handler powered by gin that can be mounted in
// any server or mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)

	srv := serviceOps{
		start:   r.mgr.StartServer,
		stop:    r.mgr.StopServer,
		restart: r.mgr.RestartServer,
		status:  r.mgr.ServerStatus,
	}
	at := serviceOps{
		start:   r.mgr.StartAutotype,
		stop:    r.mgr.StopAutotype,
		restart: r.mgr.RestartAutotype,
		status:  r.mgr.AutotypeStatus,
	}
	for path, ops := range map[string]serviceOps{"/server": srv, "/autotype": at} {
		ops := ops
		group.POST(path+"/start", ops.handleStart)
		group.POST(path+"/stop", ops.handleStop)
		group.POST(path+"/restart", ops.handleRestart)
		group.GET(path+"/status", ops.handleStatus)
	}
	group.GET("/status", r.handleStatuses)
	group.GET("/events", r.handleEvents)
	group.GET("/logs", r.handleLogs)
	group.GET("/metrics", gin.WrapH(metrics.Handler()))
	return g
}

// NewServer runs a standalone HTTP server on addr for this router.
// Callers shut it down via http.Server.Shutdown.
func NewServer(addr, basePath string, mgr *manager.Manager, sink logstore.Sink) *http.Server {
	r := NewRouter(mgr, sink, basePath)
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = server.ListenAndServe() }()
	return server
}

type errorResp struct {
	Error string `json:"error"`
}

type okResp struct {
	OK  bool `json:"ok"`
	PID int  `json:"pid,omitempty"`
}

type serviceOps struct {
	start   func(context.Context) (int, error)
	stop    func(context.Context) error
	restart func(context.Context) (int, error)
	status  func() manager.ServiceStatus
}

func (o serviceOps) handleStart(c *gin.Context) {
	pid, err := o.start(c.Request.Context())
	if err != nil {
		writeJSON(c, errCode(err), errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true, PID: pid})
}

func (o serviceOps) handleStop(c *gin.Context) {
	if err := o.stop(c.Request.Context()); err != nil {
		writeJSON(c, errCode(err), errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (o serviceOps) handleRestart(c *gin.Context) {
	pid, err := o.restart(c.Request.Context())
	if err != nil {
		writeJSON(c, errCode(err), errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true, PID: pid})
}

func (o serviceOps) handleStatus(c *gin.Context) {
	writeJSON(c, http.StatusOK, o.status())
}

func (r *Router) handleStatuses(c *gin.Context) {
	writeJSON(c, http.StatusOK, r.mgr.Statuses())
}

func (r *Router) handleEvents(c *gin.Context) {
	limit := 0
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeJSON(c, http.StatusBadRequest, errorResp{Error: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	writeJSON(c, http.StatusOK, r.mgr.Events().Recent(limit))
}

func (r *Router) handleLogs(c *gin.Context) {
	reader, ok := r.sink.(entryReader)
	if !ok {
		writeJSON(c, http.StatusNotFound, errorResp{Error: "log persistence is not enabled"})
		return
	}
	component := c.Query("component")
	if component == "" {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "component query param required"})
		return
	}
	limit := 100
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeJSON(c, http.StatusBadRequest, errorResp{Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}
	entries, err := reader.Recent(c.Request.Context(), component, limit)
	if err != nil {
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, entries)
}

// errCode maps lifecycle errors to HTTP codes. Policy rejections are
// conflicts, not bad requests.
func errCode(err error) int {
	switch {
	case errors.Is(err, supervisor.ErrCircuitOpen), errors.Is(err, supervisor.ErrRestartLimit):
		return http.StatusConflict
	case errors.Is(err, supervisor.ErrShuttingDown):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}
