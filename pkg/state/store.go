package state

import (
	"encoding/json"
	"os"
	"path/filepath"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Store persists CycleState as JSON. Saves are atomic (write a temp file,
// fsync, rename) so a power loss mid-write leaves either the prior
// complete state or the new one, never a torn mixture.
type Store struct {
	filepath string
}

func NewStore(path string) *Store {
	return &Store{filepath: path}
}

// Load reads the persisted state. A missing file is not an error: the
// appliance simply starts from a zero state, which forces a full refresh
// on the first cycle.
func (s *Store) Load() (CycleState, error) {
	var st CycleState

	b, err := os.ReadFile(s.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			logrus.Debugf("no state file at %s, starting fresh", s.filepath)
			return st, nil
		}
		return st, pkgerrors.Wrapf(err, "failed to read state file %s", s.filepath)
	}

	if err := json.Unmarshal(b, &st); err != nil {
		// A corrupt state file should not brick the appliance. Log and
		// start over.
		logrus.Errorf("state file %s is corrupt, starting fresh: %v", s.filepath, err)
		return CycleState{}, nil
	}

	return st, nil
}

// Save writes the state atomically.
func (s *Store) Save(st CycleState) error {
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return pkgerrors.Wrap(err, "failed to marshal state")
	}

	dir := filepath.Dir(s.filepath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return pkgerrors.Wrapf(err, "failed to create state dir %s", dir)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.filepath)+".tmp-*")
	if err != nil {
		return pkgerrors.Wrap(err, "failed to create temp state file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return pkgerrors.Wrap(err, "failed to write temp state file")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return pkgerrors.Wrap(err, "failed to sync temp state file")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return pkgerrors.Wrap(err, "failed to close temp state file")
	}

	if err := os.Rename(tmpName, s.filepath); err != nil {
		_ = os.Remove(tmpName)
		return pkgerrors.Wrapf(err, "failed to rename state file into place")
	}

	return nil
}
