package ledger

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ppiankov/sentinel/internal/metrics"
	"github.com/ppiankov/sentinel/internal/model"
)

// EventType is the audit chain tag for Sentinel assessments. Other
// subsystems sharing the chain use their own tags.
const EventType = "threat_assessment"

// Sink persists a security event and returns a content-addressed
// reference. Implemented by Writer; test doubles implement it to count
// and inspect writes.
type Sink interface {
	Write(event model.SecurityEvent) (string, error)
}

// Writer persists events to the operational store and the audit chain.
// The decision has already been returned by the time a write runs, so
// neither backend's failure ever unwinds into the decision path: store
// failures are logged and swallowed, chain failures are reported as a
// warning-grade error to the caller of Write.
type Writer struct {
	store *Store
	chain *Chain
	m     *metrics.Metrics
}

// NewWriter creates a Writer over the given backends. Either backend may
// be nil, in which case it is skipped.
func NewWriter(store *Store, chain *Chain, m *metrics.Metrics) *Writer {
	return &Writer{store: store, chain: chain, m: m}
}

// ContentHash serializes the event and returns its "sha256:<hex>"
// reference together with the serialized payload. Struct field order makes
// the serialization deterministic, so a recomputed hash that differs from
// a stored one signals corruption.
func ContentHash(event model.SecurityEvent) (string, json.RawMessage, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return "", nil, fmt.Errorf("ledger: marshal event: %w", err)
	}
	return HashLine(payload), payload, nil
}

// Write persists the event to both backends and returns the content hash
// reference. Duplicate event ids are no-op successes in both backends.
func (w *Writer) Write(event model.SecurityEvent) (string, error) {
	ref, payload, err := ContentHash(event)
	if err != nil {
		return "", err
	}

	if w.store != nil {
		if err := w.store.Append(event); err != nil {
			// Best-effort: the operational store must never abort the request.
			fmt.Fprintf(os.Stderr, "warning: operational store write failed: %v\n", err)
			w.m.IncStoreWriteError()
		}
	}

	if w.chain != nil {
		if _, err := w.chain.Append(event.ID, EventType, event.ActorID, ref, payload); err != nil {
			w.m.IncChainWriteError()
			return ref, fmt.Errorf("ledger: audit chain append: %w", err)
		}
	}

	return ref, nil
}

// Close closes both backends.
func (w *Writer) Close() error {
	var firstErr error
	if w.store != nil {
		if err := w.store.Close(); err != nil {
			firstErr = err
		}
	}
	if w.chain != nil {
		if err := w.chain.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
