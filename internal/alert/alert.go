// Package alert fans out enforcement events to webhook and NATS sinks.
// Dispatch never blocks the decision path.
package alert

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/ppiankov/sentinel/internal/config"
)

// Event is the payload delivered to alert sinks.
type Event struct {
	Timestamp  string   `json:"timestamp"`
	EventID    string   `json:"event_id"`
	ActorID    string   `json:"actor_id"`
	ActionType string   `json:"action_type"`
	Level      string   `json:"level"`
	Score      float64  `json:"score"`
	Decision   string   `json:"decision"`
	Factors    []string `json:"factors"`
	ConfigHash string   `json:"config_hash,omitempty"`
}

// Dispatcher fans out events to the configured sinks.
type Dispatcher struct {
	webhooks []config.Webhook
	nc       *nats.Conn
	subject  string
	wg       sync.WaitGroup
}

// NewDispatcher creates a Dispatcher from alert configuration, connecting
// to NATS when a URL is configured. Returns nil when no sinks are
// configured (callers should nil-check).
func NewDispatcher(cfg config.Alerts) (*Dispatcher, error) {
	d := &Dispatcher{webhooks: cfg.Webhooks}

	if cfg.NATS.URL != "" {
		nc, err := nats.Connect(cfg.NATS.URL, nats.Name("sentinel"))
		if err != nil {
			return nil, fmt.Errorf("alert: connect nats: %w", err)
		}
		d.nc = nc
		d.subject = cfg.NATS.Subject
		if d.subject == "" {
			d.subject = "sentinel.events"
		}
	}

	if len(d.webhooks) == 0 && d.nc == nil {
		return nil, nil
	}
	return d, nil
}

// Dispatch sends the event to all sinks whose decision filter matches.
// Fires goroutines — does not block the caller.
func (d *Dispatcher) Dispatch(event Event) {
	for _, wh := range d.webhooks {
		if matches(wh.Decisions, event.Decision) {
			d.wg.Add(1)
			go func(wh config.Webhook) {
				defer d.wg.Done()
				if err := Send(wh, event); err != nil {
					fmt.Fprintf(os.Stderr, "warning: alert webhook: %v\n", err)
				}
			}(wh)
		}
	}

	if d.nc != nil {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			payload, err := json.Marshal(event)
			if err != nil {
				return
			}
			if err := d.nc.Publish(d.subject, payload); err != nil {
				fmt.Fprintf(os.Stderr, "warning: alert nats publish: %v\n", err)
			}
		}()
	}
}

// Wait blocks until every dispatched delivery has been attempted.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Close drains the NATS connection if one exists.
func (d *Dispatcher) Close() {
	if d.nc != nil {
		d.nc.Close()
	}
}

func matches(decisions []string, decision string) bool {
	if len(decisions) == 0 {
		return true
	}
	for _, d := range decisions {
		if d == decision {
			return true
		}
	}
	return false
}
