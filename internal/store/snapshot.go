package store

import (
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/Puranjay-del-Mishra/weatheragent/internal/subscription"
)

// SnapshotFile is the fixed, versioned name the draft snapshot lives
// under when the configured path is a directory default. Bump the
// suffix when the draft shape changes incompatibly.
const SnapshotFile = "weatheragent-drafts.v1.json"

// persist writes all drafts to the snapshot file. Failures are logged
// and swallowed; persistence is best-effort and never blocks an edit.
func (s *MemoryStore) persist() {
	if s.snapshotPath == "" {
		return
	}

	// Serialize writers and go through a rename so an overlapping
	// persist can never tear the file. The map is copied inside the
	// persist lock so later snapshots always contain earlier saves.
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.RLock()
	out := make(map[string]subscription.Draft, len(s.drafts))
	for id, d := range s.drafts {
		out[id] = d
	}
	s.mu.RUnlock()

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		log.Printf("store: snapshot marshal failed: %v", err)
		return
	}

	tmp := s.snapshotPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		log.Printf("store: snapshot write failed: %v", err)
		return
	}
	if err := os.Rename(tmp, s.snapshotPath); err != nil {
		log.Printf("store: snapshot rename failed: %v", err)
	}
}

// LoadSnapshot restores drafts from the snapshot file, merging each
// record field-by-field onto fresh defaults so missing or invalid
// fields fall back cleanly. A missing or unreadable file is not an
// error; the store simply starts empty.
func (s *MemoryStore) LoadSnapshot(defaultTZ string, now time.Time) {
	if s.snapshotPath == "" {
		return
	}

	data, err := os.ReadFile(s.snapshotPath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("store: snapshot read failed: %v", err)
		}
		return
	}

	var records map[string]json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		log.Printf("store: snapshot decode failed, starting empty: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Records are decoded one at a time so a malformed entry only
	// costs itself, never its siblings; within a record, wrong-typed
	// fields fall back to defaults via the lenient Persisted decode.
	for id, raw := range records {
		var p subscription.Persisted
		if err := json.Unmarshal(raw, &p); err != nil {
			log.Printf("store: snapshot record %s is malformed, skipping: %v", id, err)
			continue
		}
		def := subscription.NewDraft(defaultTZ, now)
		def.ID = id
		s.drafts[id] = subscription.Restore(p, def)
	}
}
