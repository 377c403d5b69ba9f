package actuator

import (
	"time"

	"cluster-service/internal/router"
	"cluster-service/internal/types"
)

type statusGate struct {
	c *Controller
}

// StatusGate returns the subscriber that enables or disables the
// controller from status snapshots. While disabled every request reads as
// off, so the next Update turns the outputs off.
func (c *Controller) StatusGate() router.Subscriber[types.StatusSnapshot] {
	return c.gate
}

func (g *statusGate) Receive(s types.StatusSnapshot, _ time.Time) {
	g.c.mu.Lock()
	defer g.c.mu.Unlock()

	if g.c.enabled == s.OutputsEnabled {
		return
	}
	g.c.enabled = s.OutputsEnabled
	g.c.logger.Debugf("Outputs enabled: %v (state %s)", s.OutputsEnabled, s.State)
	if !s.OutputsEnabled {
		g.c.leftReq, g.c.rightReq = false, false
		g.c.syncDue = false
	}
}
