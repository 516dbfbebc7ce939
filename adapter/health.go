// Package adapter integrates dataports with external monitoring systems.
package adapter

import (
	"fmt"
	"net/http"

	"github.com/heptiolabs/healthcheck"
)

// PortStats is the view of a dataport the health checks need.
type PortStats interface {
	Size() int
	Capacity() int
}

// Health exposes /live and /ready endpoints reporting on registered
// dataports.
type Health struct {
	handler healthcheck.Handler
}

// NewHealth returns a Health with no checks registered.
func NewHealth() *Health {
	return &Health{handler: healthcheck.NewHandler()}
}

// AddGoroutineBudget adds a liveness check failing when the process exceeds
// max goroutines, a common symptom of pump workers leaking.
func (h *Health) AddGoroutineBudget(max int) {
	h.handler.AddLivenessCheck("goroutine-count", healthcheck.GoroutineCountCheck(max))
}

// AddPortCheck adds a readiness check asserting the named port's occupancy
// invariant: 0 <= size <= capacity. A violated invariant means one side of
// the channel broke the SPSC discipline.
func (h *Health) AddPortCheck(name string, port PortStats) {
	h.handler.AddReadinessCheck("dataport-"+name, func() error {
		size := port.Size()
		capacity := port.Capacity()
		if size < 0 || size > capacity {
			return fmt.Errorf("dataport %s occupancy %d outside [0,%d]", name, size, capacity)
		}
		return nil
	})
}

// AddPortPressureCheck adds a readiness check failing while the named port
// sits completely full, i.e. its consumer stopped draining.
func (h *Health) AddPortPressureCheck(name string, port PortStats) {
	h.handler.AddReadinessCheck("dataport-"+name+"-pressure", func() error {
		if size := port.Size(); size == port.Capacity() {
			return fmt.Errorf("dataport %s full at %d bytes, consumer stalled", name, size)
		}
		return nil
	})
}

// Handler returns the HTTP handler serving /live and /ready.
func (h *Health) Handler() http.Handler {
	return h.handler
}
