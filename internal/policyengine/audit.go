package policyengine

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/relaymind/conduit/pkg/models"
)

// GenesisHash seeds the first entry's PreviousHash, so the chain invariant
// (Ei.PreviousHash == E{i-1}.EntryHash) holds uniformly from E1 onward.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000"

// AuditLog is the append-only, hash-chained command/tool audit trail. Each
// entry's hash covers the previous entry's hash plus its own canonical JSON
// encoding, so any tampering or reordering breaks the chain (spec
// invariant 9). Writes are fsynced so a crash mid-write yields at worst a
// trailing truncated line, tolerated and ignored on load.
type AuditLog struct {
	mu       sync.Mutex
	path     string
	lastHash string
}

// OpenAuditLog opens (creating if needed) the audit file at path and
// recovers the last hash in the chain by replaying existing entries.
func OpenAuditLog(path string) (*AuditLog, error) {
	a := &AuditLog{path: path, lastHash: GenesisHash}

	f, err := os.OpenFile(path, os.O_RDONLY|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("policyengine: open audit log: %w", err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	for {
		var entry models.CommandAuditEntry
		if err := dec.Decode(&entry); err != nil {
			break // EOF, or a trailing truncated line: tolerated.
		}
		a.lastHash = entry.EntryHash
	}
	return a, nil
}

// Append computes entry's hash chain fields and writes it as one JSON line.
func (a *AuditLog) Append(entry *models.CommandAuditEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	entry.PreviousHash = a.lastHash
	hash, err := entryHash(entry)
	if err != nil {
		return fmt.Errorf("policyengine: hash audit entry: %w", err)
	}
	entry.EntryHash = hash

	f, err := os.OpenFile(a.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("policyengine: open audit log for append: %w", err)
	}
	defer f.Close()

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("policyengine: marshal audit entry: %w", err)
	}
	line = append(line, '\n')
	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("policyengine: write audit entry: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("policyengine: fsync audit entry: %w", err)
	}

	a.lastHash = entry.EntryHash
	return nil
}

// entryHash computes SHA-256(previous_hash || canonical_json(entry with
// EntryHash blanked)); PreviousHash stays in the canonical JSON as well.
func entryHash(entry *models.CommandAuditEntry) (string, error) {
	canon, err := canonicalJSON(entry)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write([]byte(entry.PreviousHash))
	h.Write(canon)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// canonicalJSON renders entry (with EntryHash blanked, since it isn't known
// yet) as JSON with map keys in sorted order, for deterministic hashing.
func canonicalJSON(entry *models.CommandAuditEntry) ([]byte, error) {
	clone := *entry
	clone.EntryHash = ""

	raw, err := json.Marshal(clone)
	if err != nil {
		return nil, err
	}
	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return marshalSorted(generic)
}

func marshalSorted(m map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf := []byte{'{'}
	for i, k := range keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		kb, _ := json.Marshal(k)
		buf = append(buf, kb...)
		buf = append(buf, ':')
		vb, err := json.Marshal(m[k])
		if err != nil {
			return nil, err
		}
		buf = append(buf, vb...)
	}
	buf = append(buf, '}')
	return buf, nil
}

// VerifyChain validates that entries form an unbroken hash chain starting
// from GenesisHash, as required by spec invariant 9. Returns the index of
// the first broken entry, or -1 if the whole chain is valid.
func VerifyChain(entries []models.CommandAuditEntry) int {
	prev := GenesisHash
	for i, e := range entries {
		if e.PreviousHash != prev {
			return i
		}
		want, err := entryHash(&e)
		if err != nil || want != e.EntryHash {
			return i
		}
		prev = e.EntryHash
	}
	return -1
}
