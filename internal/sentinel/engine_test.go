package sentinel

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/ppiankov/sentinel/internal/config"
	"github.com/ppiankov/sentinel/internal/model"
)

// recordingSink is a test double counting ledger writes.
type recordingSink struct {
	mu     sync.Mutex
	events []model.SecurityEvent
	err    error
}

func (s *recordingSink) Write(event model.SecurityEvent) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return "sha256:test", s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func newTestEngine(t *testing.T, sink *recordingSink) *Engine {
	t.Helper()
	engine, err := New(config.Default(), "sha256:testcfg", sink, nil, nil)
	if err != nil {
		t.Fatalf("create engine: %v", err)
	}
	// Fixed daytime clock keeps the unusual-hours rule quiet.
	engine.now = func() time.Time {
		return time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC)
	}
	return engine
}

func TestSuspiciousInputStillAllowed(t *testing.T) {
	sink := &recordingSink{}
	engine := newTestEngine(t, sink)

	event, err := engine.Analyze(context.Background(), Request{
		ActorID:    "u1",
		ActionType: "post_comment",
		RawInput:   "<script>alert(1)</script>",
		Metadata:   model.ActionMetadata{RequestsPerMinute: 10, IPCount: 1},
	})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	// One layer firing at 0.5 averages to ~0.167: below every band.
	if want := 0.5 / 3; math.Abs(event.Threat.Score-want) > 1e-9 {
		t.Errorf("expected score %v, got %v", want, event.Threat.Score)
	}
	if event.Threat.Level != model.LevelNone {
		t.Errorf("expected level none, got %s", event.Threat.Level)
	}
	if event.Decision != model.Allow {
		t.Errorf("expected allow, got %s", event.Decision)
	}

	// The allow decision must still carry full evidence
	ev, ok := event.Evidence[LayerInputPatterns]
	if !ok {
		t.Fatal("missing input_patterns evidence")
	}
	if !hasFactor(ev.Factors, "XSS_PATTERN") {
		t.Errorf("expected XSS_PATTERN in evidence, got %v", ev.Factors)
	}
	if !hasFactor(event.Threat.Factors, "XSS_PATTERN") {
		t.Errorf("expected XSS_PATTERN in combined factors, got %v", event.Threat.Factors)
	}

	engine.Wait()
	if sink.count() != 1 {
		t.Errorf("expected one ledger write, got %d", sink.count())
	}
}

func TestAllLayersFiringBlocks(t *testing.T) {
	sink := &recordingSink{}
	engine := newTestEngine(t, sink)

	event, err := engine.Analyze(context.Background(), Request{
		ActorID:    "u1",
		ActionType: "exploit access",
		RawInput:   "<script>alert(1)</script>",
		Metadata:   model.ActionMetadata{RequestsPerMinute: 200, IPCount: 10},
	})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	if event.Threat.Level.Rank() < model.LevelHigh.Rank() {
		t.Errorf("expected level at least high, got %s (score %v)", event.Threat.Level, event.Threat.Score)
	}
	if event.Decision != model.Block {
		t.Errorf("expected block, got %s", event.Decision)
	}

	for _, layer := range []string{LayerInputPatterns, LayerBehavior, LayerIntent} {
		if ev := event.Evidence[layer]; ev.Score <= 0 {
			t.Errorf("expected layer %s to fire, score %v", layer, ev.Score)
		}
	}
}

func TestMissingActorIsInvalidRequest(t *testing.T) {
	sink := &recordingSink{}
	engine := newTestEngine(t, sink)

	_, err := engine.Analyze(context.Background(), Request{
		ActionType: "post_comment",
	})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}

	engine.Wait()
	if sink.count() != 0 {
		t.Errorf("invalid request must not reach the ledger, got %d writes", sink.count())
	}
}

func TestMissingActionIsInvalidRequest(t *testing.T) {
	sink := &recordingSink{}
	engine := newTestEngine(t, sink)

	_, err := engine.Analyze(context.Background(), Request{ActorID: "u1"})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if sink.count() != 0 {
		t.Errorf("expected zero ledger writes, got %d", sink.count())
	}
}

func TestLedgerFailureNeverChangesDecision(t *testing.T) {
	sink := &recordingSink{err: errors.New("disk full")}
	engine := newTestEngine(t, sink)

	event, err := engine.Analyze(context.Background(), Request{
		ActorID:    "u1",
		ActionType: "post_comment",
	})
	if err != nil {
		t.Fatalf("durability failure must not surface as a request error: %v", err)
	}
	if event.Decision != model.Allow {
		t.Errorf("expected allow, got %s", event.Decision)
	}

	engine.Wait()
	if sink.count() != 1 {
		t.Errorf("expected the write to still be attempted, got %d", sink.count())
	}
}

func TestReloadSwapsRules(t *testing.T) {
	sink := &recordingSink{}
	engine := newTestEngine(t, sink)

	cfg := config.Default()
	cfg.Keywords = []config.KeywordRule{{Keyword: "frobnicate", Weight: 0.9}}
	if err := engine.Reload(cfg, "sha256:v2"); err != nil {
		t.Fatalf("reload: %v", err)
	}

	event, err := engine.Analyze(context.Background(), Request{
		ActorID:    "u1",
		ActionType: "frobnicate the database",
	})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if ev := event.Evidence[LayerIntent]; ev.Score != 0.9 {
		t.Errorf("expected reloaded keyword weight 0.9, got %v", ev.Score)
	}
	if event.ConfigHash != "sha256:v2" {
		t.Errorf("expected new config hash on event, got %s", event.ConfigHash)
	}
}

func TestConcurrentAnalyses(t *testing.T) {
	sink := &recordingSink{}
	engine := newTestEngine(t, sink)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.Analyze(context.Background(), Request{
				ActorID:    "u1",
				ActionType: "post_comment",
				RawInput:   "' OR 1=1 --",
			})
			if err != nil {
				t.Errorf("analyze: %v", err)
			}
		}()
	}
	wg.Wait()
	engine.Wait()

	if sink.count() != 50 {
		t.Errorf("expected 50 ledger writes, got %d", sink.count())
	}
}

func hasFactor(factors []string, want string) bool {
	for _, f := range factors {
		if f == want {
			return true
		}
	}
	return false
}
