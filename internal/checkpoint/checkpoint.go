// Package checkpoint persists the set of already-processed announcement ids
// so an interrupted batch run can resume without repeating work.
package checkpoint

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Store defines checkpoint persistence. Load never fails: a missing or
// unreadable checkpoint yields an empty set.
type Store interface {
	Load() map[string]bool
	Save(processed map[string]bool) error
	Clear() error
}

// checkpointFile is the on-disk JSON shape.
type checkpointFile struct {
	ProcessedIDs []string  `json:"processed_ids"`
	Timestamp    time.Time `json:"timestamp"`
}

// FileStore is a Store backed by a single JSON file.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore at the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the checkpoint. Absence is not an error; corrupt files are
// logged and treated as empty.
func (s *FileStore) Load() map[string]bool {
	processed := make(map[string]bool)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			zap.L().Warn("checkpoint: unreadable, starting fresh",
				zap.String("path", s.path),
				zap.Error(err),
			)
		}
		return processed
	}

	var cf checkpointFile
	if err := json.Unmarshal(data, &cf); err != nil {
		zap.L().Warn("checkpoint: corrupt, starting fresh",
			zap.String("path", s.path),
			zap.Error(err),
		)
		return processed
	}

	for _, id := range cf.ProcessedIDs {
		processed[id] = true
	}

	zap.L().Info("checkpoint: loaded",
		zap.String("path", s.path),
		zap.Int("processed", len(processed)),
	)
	return processed
}

// Save overwrites the checkpoint with the full processed set. The write is
// atomic: a temp file in the same directory is renamed over the target, so a
// crash mid-save leaves the previous checkpoint intact.
func (s *FileStore) Save(processed map[string]bool) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return eris.Wrap(err, "checkpoint: create directory")
	}

	ids := make([]string, 0, len(processed))
	for id := range processed {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	data, err := json.Marshal(checkpointFile{
		ProcessedIDs: ids,
		Timestamp:    time.Now().UTC(),
	})
	if err != nil {
		return eris.Wrap(err, "checkpoint: marshal")
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return eris.Wrap(err, "checkpoint: write temp file")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return eris.Wrap(err, "checkpoint: replace file")
	}
	return nil
}

// Clear removes the checkpoint after a fully successful batch run.
func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return eris.Wrap(err, "checkpoint: remove file")
	}
	return nil
}
