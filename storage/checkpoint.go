package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Checkpoint records how far a pipeline run got. LastCompletedBatch is -1
// before the first batch commits.
type Checkpoint struct {
	LastCompletedBatch int       `json:"last_completed_batch"`
	TotalBatches       int       `json:"total_batches"`
	Source             string    `json:"source"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Fresh returns the checkpoint of a run that has not started.
func Fresh(source string, total int) Checkpoint {
	return Checkpoint{LastCompletedBatch: -1, TotalBatches: total, Source: source}
}

// Done reports whether batch idx was committed by an earlier run.
func (c Checkpoint) Done(idx int) bool { return idx <= c.LastCompletedBatch }

// Complete reports whether every batch was committed.
func (c Checkpoint) Complete() bool {
	return c.TotalBatches > 0 && c.LastCompletedBatch >= c.TotalBatches-1
}

// CheckpointFile persists a Checkpoint as JSON.
type CheckpointFile struct {
	path string
}

// NewCheckpointFile returns a checkpoint store at path.
func NewCheckpointFile(path string) *CheckpointFile {
	return &CheckpointFile{path: path}
}

// Load returns the stored checkpoint, or ok=false when there is none.
func (f *CheckpointFile) Load() (cp Checkpoint, ok bool, err error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return Checkpoint{}, false, nil
	}
	if err != nil {
		return Checkpoint{}, false, fmt.Errorf("checkpoint: read %q: %w", f.path, err)
	}
	if err := json.Unmarshal(data, &cp); err != nil {
		return Checkpoint{}, false, fmt.Errorf("checkpoint: decode %q: %w", f.path, err)
	}
	return cp, true, nil
}

// Save writes cp atomically.
func (f *CheckpointFile) Save(cp Checkpoint) error {
	cp.UpdatedAt = time.Now().UTC()
	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return fmt.Errorf("checkpoint: create dir: %w", err)
	}
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("checkpoint: encode: %w", err)
	}
	if err := writeFileAtomic(f.path, data); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	return nil
}

// Reset removes the checkpoint file.
func (f *CheckpointFile) Reset() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checkpoint: remove %q: %w", f.path, err)
	}
	return nil
}
