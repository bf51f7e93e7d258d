package ledger

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/ppiankov/sentinel/internal/model"
)

func TestWriterPersistsToBothBackends(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenStore(filepath.Join(dir, "events.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	chain, err := OpenChain(filepath.Join(dir, "audit.jsonl"))
	if err != nil {
		t.Fatalf("open chain: %v", err)
	}
	writer := NewWriter(store, chain, nil)
	defer writer.Close()

	event := testEvent("ev-1", "u1", model.LevelHigh, time.Now())
	ref, err := writer.Write(event)
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	// The reference is the content hash of the serialized event
	payload, _ := json.Marshal(event)
	if want := HashLine(payload); ref != want {
		t.Errorf("reference %s does not match content hash %s", ref, want)
	}

	n, err := store.Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("expected one stored event, got %d", n)
	}

	entries, err := Tail(filepath.Join(dir, "audit.jsonl"), 0)
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one chain entry, got %d", len(entries))
	}
	if entries[0].EventID != "ev-1" || entries[0].EventType != EventType {
		t.Errorf("unexpected chain entry: %+v", entries[0])
	}
	if entries[0].ContentHash != ref {
		t.Errorf("chain content hash %s != reference %s", entries[0].ContentHash, ref)
	}
}

func TestWriterIdempotentOnEventID(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenStore(filepath.Join(dir, "events.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	chain, err := OpenChain(filepath.Join(dir, "audit.jsonl"))
	if err != nil {
		t.Fatalf("open chain: %v", err)
	}
	writer := NewWriter(store, chain, nil)
	defer writer.Close()

	event := testEvent("ev-1", "u1", model.LevelLow, time.Now())
	if _, err := writer.Write(event); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if _, err := writer.Write(event); err != nil {
		t.Fatalf("second write: %v", err)
	}

	n, _ := store.Count()
	if n != 1 {
		t.Errorf("expected one stored event, got %d", n)
	}
	entries, _ := Tail(filepath.Join(dir, "audit.jsonl"), 0)
	if len(entries) != 1 {
		t.Errorf("expected one chain entry, got %d", len(entries))
	}
}

func TestWriterChainOnly(t *testing.T) {
	chain, err := OpenChain(filepath.Join(t.TempDir(), "audit.jsonl"))
	if err != nil {
		t.Fatalf("open chain: %v", err)
	}
	writer := NewWriter(nil, chain, nil)
	defer writer.Close()

	if _, err := writer.Write(testEvent("ev-1", "u1", model.LevelLow, time.Now())); err != nil {
		t.Fatalf("write: %v", err)
	}
}
