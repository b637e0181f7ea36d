package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-reminder-scheduler/internal/scheduler"
)

// DefaultReadyTimeout bounds all readiness checks of one /readyz request.
const DefaultReadyTimeout = 2 * time.Second

// Check is one named readiness dependency.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// StatusProvider is implemented by *scheduler.Poller.
type StatusProvider interface {
	Status() scheduler.Status
}

// Ops serves the liveness, readiness and poller status endpoints.
type Ops struct {
	Checks       []Check
	Pollers      []StatusProvider
	ReadyTimeout time.Duration
}

// CheckResult is the per-dependency entry of a readiness answer.
type CheckResult struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// ReadyResponse is the body of /readyz.
type ReadyResponse struct {
	Status string        `json:"status"`
	Checks []CheckResult `json:"checks"`
}

// Health always answers 200 while the process serves HTTP.
func (o *Ops) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready runs every check and answers 503 when any fails.
func (o *Ops) Ready(c *gin.Context) {
	timeout := o.ReadyTimeout
	if timeout <= 0 {
		timeout = DefaultReadyTimeout
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	defer cancel()

	resp := ReadyResponse{Status: "ready", Checks: make([]CheckResult, 0, len(o.Checks))}
	for _, chk := range o.Checks {
		res := CheckResult{Name: chk.Name, OK: true}
		if err := chk.Ping(ctx); err != nil {
			res.OK = false
			res.Error = err.Error()
			resp.Status = "not_ready"
		}
		resp.Checks = append(resp.Checks, res)
	}

	status := http.StatusOK
	if resp.Status != "ready" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}

// PollerStatus lists the status of every poller in registration order.
func (o *Ops) PollerStatus(c *gin.Context) {
	out := make([]scheduler.Status, 0, len(o.Pollers))
	for _, p := range o.Pollers {
		out = append(out, p.Status())
	}
	c.JSON(http.StatusOK, gin.H{"pollers": out})
}
