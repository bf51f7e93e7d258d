// Package sentinel drives one complete analysis cycle: score each layer,
// aggregate, decide, assemble a SecurityEvent, and hand it to the ledger.
package sentinel

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/sentinel/internal/alert"
	"github.com/ppiankov/sentinel/internal/config"
	"github.com/ppiankov/sentinel/internal/ledger"
	"github.com/ppiankov/sentinel/internal/metrics"
	"github.com/ppiankov/sentinel/internal/model"
	"github.com/ppiankov/sentinel/internal/scorer"
	"github.com/ppiankov/sentinel/internal/threat"
)

// ErrInvalidRequest is returned when a required field is missing.
// No event is created and no ledger write is attempted.
var ErrInvalidRequest = errors.New("invalid request")

// Evidence map keys, one per scorer layer.
const (
	LayerInputPatterns = "input_patterns"
	LayerBehavior      = "behavior"
	LayerIntent        = "intent"
)

// Request is one action submitted for analysis.
type Request struct {
	ActorID    string
	ActionType string
	RawInput   string
	Rationale  string
	Metadata   model.ActionMetadata
}

// Engine holds immutable configuration snapshots and the ledger sink.
// Scoring is pure, so concurrent Analyze calls share no mutable state
// beyond the snapshot pointer, swapped atomically on reload.
type Engine struct {
	mu         sync.RWMutex
	rules      *scorer.Rules
	bands      config.Bands
	configHash string

	sink   ledger.Sink
	alerts *alert.Dispatcher
	m      *metrics.Metrics
	wg     sync.WaitGroup

	now   func() time.Time
	newID func() string
}

// New creates an Engine from configuration. sink, alerts, and m may be nil.
func New(cfg *config.Config, configHash string, sink ledger.Sink, alerts *alert.Dispatcher, m *metrics.Metrics) (*Engine, error) {
	rules, err := scorer.Compile(cfg)
	if err != nil {
		return nil, err
	}
	return &Engine{
		rules:      rules,
		bands:      cfg.Bands,
		configHash: configHash,
		sink:       sink,
		alerts:     alerts,
		m:          m,
		now:        time.Now,
		newID:      uuid.NewString,
	}, nil
}

// Reload atomically swaps the rule set and bands. Called by the
// hot-reloader on config file change.
func (e *Engine) Reload(cfg *config.Config, configHash string) error {
	rules, err := scorer.Compile(cfg)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.rules = rules
	e.bands = cfg.Bands
	e.configHash = configHash
	e.mu.Unlock()
	return nil
}

// Analyze runs all three scorer layers over the request, aggregates,
// decides, and returns the assembled SecurityEvent. The ledger write is
// issued without blocking the caller; Wait drains in-flight writes.
// All layers always run — an allow decision still carries full evidence.
func (e *Engine) Analyze(ctx context.Context, req Request) (model.SecurityEvent, error) {
	if req.ActorID == "" {
		e.m.IncInvalidRequest()
		return model.SecurityEvent{}, fmt.Errorf("%w: missing actor id", ErrInvalidRequest)
	}
	if req.ActionType == "" {
		e.m.IncInvalidRequest()
		return model.SecurityEvent{}, fmt.Errorf("%w: missing action type", ErrInvalidRequest)
	}

	e.mu.RLock()
	rules := e.rules
	bands := e.bands
	configHash := e.configHash
	e.mu.RUnlock()

	now := e.now().UTC()

	input := rules.ScoreInput(req.RawInput)
	behavior := rules.ScoreBehavior(req.ActorID, req.ActionType, req.Metadata, now)
	intent := rules.ScoreIntent(req.ActionType, req.Rationale)

	combined := threat.Aggregate([]model.LayerResult{input, behavior, intent}, bands)
	decision := threat.Decide(combined.Level)

	event := model.SecurityEvent{
		ID:         e.newID(),
		Timestamp:  now,
		ActorID:    req.ActorID,
		ActionType: req.ActionType,
		Threat:     combined,
		Decision:   decision,
		Evidence: map[string]model.LayerEvidence{
			LayerInputPatterns: {Input: req.RawInput, Score: input.Score, Factors: input.Factors},
			LayerBehavior:      {Input: req.Metadata, Score: behavior.Score, Factors: behavior.Factors},
			LayerIntent:        {Input: req.ActionType, Score: intent.Score, Factors: intent.Factors},
		},
		ConfigHash: configHash,
		Metadata:   req.Metadata,
	}

	e.m.IncAnalysis(string(decision))
	e.record(event)
	e.notify(event)

	return event, nil
}

// record hands the event to the ledger sink on a tracked goroutine. The
// decision has already been made; a durability failure is a warning, never
// a change to the returned enforcement action.
func (e *Engine) record(event model.SecurityEvent) {
	if e.sink == nil {
		return
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if _, err := e.sink.Write(event); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}
	}()
}

func (e *Engine) notify(event model.SecurityEvent) {
	if e.alerts == nil || event.Decision == model.Allow {
		return
	}
	e.alerts.Dispatch(alert.Event{
		Timestamp:  event.Timestamp.Format("2006-01-02T15:04:05.000Z"),
		EventID:    event.ID,
		ActorID:    event.ActorID,
		ActionType: event.ActionType,
		Level:      string(event.Threat.Level),
		Score:      event.Threat.Score,
		Decision:   string(event.Decision),
		Factors:    event.Threat.Factors,
		ConfigHash: event.ConfigHash,
	})
}

// Wait blocks until all in-flight ledger writes have been attempted.
func (e *Engine) Wait() {
	e.wg.Wait()
}
