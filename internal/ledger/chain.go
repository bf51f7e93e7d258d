// Package ledger persists security events durably: an operational SQLite
// store queryable by actor, time range, and level, and an append-only
// hash-chained JSONL audit chain shared with other subsystems.
package ledger

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// GenesisHash is the prev_hash for the first entry in a new audit chain.
const GenesisHash = "sha256:0000000000000000000000000000000000000000000000000000000000000000"

// ChainEntry is one line in the hash-chained JSONL audit chain.
// Field order is fixed by the struct so json.Marshal output is
// deterministic and reproducibly hashable. event_type is a short tag;
// other subsystems append their own types to the same chain.
type ChainEntry struct {
	Timestamp   string          `json:"ts"`
	EventID     string          `json:"event_id"`
	EventType   string          `json:"event_type"`
	ActorID     string          `json:"actor_id"`
	ContentHash string          `json:"content_hash"`
	EventData   json.RawMessage `json:"event_data"`
	PrevHash    string          `json:"prev_hash"`
}

// Chain is an append-only JSONL audit chain with SHA-256 hash linking.
// Each entry's prev_hash is the hash of the previous entry's JSON line,
// making tampering detectable. Appends with an already-recorded event id
// are no-op successes.
type Chain struct {
	path     string
	file     *os.File
	prevHash string
	seen     map[string]bool
	mu       sync.Mutex
}

// OpenChain opens (or creates) an audit chain file for appending.
// An existing file is scanned to recover the chain tail and the set of
// already-recorded event ids.
func OpenChain(path string) (*Chain, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("ledger: create directory: %w", err)
	}

	prevHash := GenesisHash
	seen := make(map[string]bool)

	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("ledger: read existing chain: %w", err)
		}
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		var lastLine []byte
		for scanner.Scan() {
			lastLine = make([]byte, len(scanner.Bytes()))
			copy(lastLine, scanner.Bytes())

			var entry ChainEntry
			if err := json.Unmarshal(lastLine, &entry); err == nil && entry.EventID != "" {
				seen[entry.EventID] = true
			}
		}
		f.Close()
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("ledger: scan existing chain: %w", err)
		}
		if len(lastLine) > 0 {
			prevHash = HashLine(lastLine)
		}
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("ledger: open chain: %w", err)
	}

	return &Chain{
		path:     path,
		file:     file,
		prevHash: prevHash,
		seen:     seen,
	}, nil
}

// Append writes one entry to the chain and returns the hash of the written
// line as the entry reference. A duplicate event id is a no-op success and
// returns an empty reference.
func (c *Chain) Append(eventID, eventType, actorID, contentHash string, payload json.RawMessage) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.seen[eventID] {
		return "", nil
	}

	entry := ChainEntry{
		Timestamp:   time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
		EventID:     eventID,
		EventType:   eventType,
		ActorID:     actorID,
		ContentHash: contentHash,
		EventData:   payload,
		PrevHash:    c.prevHash,
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return "", fmt.Errorf("ledger: marshal chain entry: %w", err)
	}

	if _, err := c.file.Write(append(line, '\n')); err != nil {
		return "", fmt.Errorf("ledger: write chain entry: %w", err)
	}

	if err := c.file.Sync(); err != nil {
		return "", fmt.Errorf("ledger: sync chain: %w", err)
	}

	c.prevHash = HashLine(line)
	c.seen[eventID] = true
	return c.prevHash, nil
}

// Close flushes and closes the underlying file.
func (c *Chain) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.file.Close()
}

// HashLine returns "sha256:<hex>" of the given bytes.
func HashLine(line []byte) string {
	h := sha256.Sum256(line)
	return "sha256:" + hex.EncodeToString(h[:])
}
