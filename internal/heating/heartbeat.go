package heating

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// heartbeat emits a periodic liveness ping while the boiler is active. The
// external safety relay de-energizes the boiler when pings stop arriving, so
// the absence of heartbeats is the safety signal. Start cancels any prior
// timer before arming a new one, so restarts never leave two tickers running.
type heartbeat struct {
	mu   sync.Mutex
	stop chan struct{}
}

func (h *heartbeat) Start(interval time.Duration, ping func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stop != nil {
		close(h.stop)
	}
	stop := make(chan struct{})
	h.stop = stop

	// First ping goes out immediately; the relay should see liveness as soon
	// as the boiler is commanded on.
	ping()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				ping()
			}
		}
	}()

	log.Info().Dur("interval", interval).Msg("Heartbeat watchdog started")
}

func (h *heartbeat) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stop != nil {
		close(h.stop)
		h.stop = nil
		log.Info().Msg("Heartbeat watchdog stopped")
	}
}

func (h *heartbeat) Running() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stop != nil
}
