package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/r3d91ll/urnlab/pkg/design"
	"github.com/r3d91ll/urnlab/pkg/errors"
	"github.com/r3d91ll/urnlab/pkg/ledger"
)

// Snapshot is the exported view of a session, including the hidden mixtures
// of the random urns, so a run can be audited afterwards.
type Snapshot struct {
	ID         string              `json:"id"`
	Seed       uint64              `json:"seed"`
	StartedAt  time.Time           `json:"started_at"`
	EndedAt    *time.Time          `json:"ended_at,omitempty"`
	Mode       design.Mode         `json:"mode"`
	Assignment int                 `json:"assignment_index"`
	Conditions []*design.Condition `json:"conditions"`
	TrialOrder []string            `json:"trial_order"`
	BallImages map[string]string   `json:"ball_images,omitempty"`
	Record     *ledger.Record      `json:"record"`
}

// Snapshot returns the current session state for export.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	order := make([]string, len(c.plan.Trials))
	for i, t := range c.plan.Trials {
		order[i] = t.Name + ":" + t.Condition.Name
	}
	s := Snapshot{
		ID:         c.id,
		Seed:       c.seed,
		StartedAt:  c.startedAt,
		Mode:       c.plan.Mode,
		Assignment: c.plan.Index,
		Conditions: c.plan.All,
		TrialOrder: order,
		BallImages: c.plan.BallImages,
		Record:     c.record,
	}
	if !c.endedAt.IsZero() {
		ended := c.endedAt
		s.EndedAt = &ended
	}
	return s
}

// Export writes <dir>/<session id>/session.json and returns its path.
func (c *Controller) Export(dir string) (string, error) {
	exportDir := filepath.Join(dir, c.id)
	if err := os.MkdirAll(exportDir, 0755); err != nil {
		return "", errors.WrapIO(err, errors.ErrExportFailed, "failed to create export directory").
			WithContext("path", exportDir)
	}

	data, err := json.MarshalIndent(c.Snapshot(), "", "  ")
	if err != nil {
		return "", errors.WrapIO(err, errors.ErrExportFailed, "failed to encode session")
	}

	path := filepath.Join(exportDir, "session.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", errors.WrapIO(err, errors.ErrExportFailed, "failed to write session export").
			WithContext("path", path)
	}
	c.logger.Info("session exported", "path", path)
	return path, nil
}
