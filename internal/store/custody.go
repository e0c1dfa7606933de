package store

import (
	"path/filepath"

	"github.com/casetrace/casetrace-go/internal/errors"
	"github.com/casetrace/casetrace-go/internal/models"
)

// LoadCustody returns the validated chain-of-custody log for sha.
func (s *Store) LoadCustody(sha string) (*models.CustodyChain, error) {
	var chain models.CustodyChain
	if err := readJSONValidated(filepath.Join(s.derivedDir(sha), "chain_of_custody.json"), &chain); err != nil {
		return nil, err
	}
	return &chain, nil
}

// AppendCustody appends one event to the chain under the per-SHA lock.
// The chain is append-only; this is the only mutation path.
func (s *Store) AppendCustody(sha string, event models.CustodyEvent) error {
	unlock := s.locks.lock(sha)
	defer unlock()
	return s.appendCustodyLocked(sha, event)
}

// appendCustodyLocked performs the serialized read-modify-write. Caller
// holds the per-SHA lock.
func (s *Store) appendCustodyLocked(sha string, event models.CustodyEvent) error {
	prev, err := s.LoadCustody(sha)
	if err != nil {
		return err
	}
	if !event.Action.Valid() {
		return errors.StoreIntegrityErrorf(nil, "unknown custody action %q", event.Action)
	}

	next := &models.CustodyChain{
		SHA256: prev.SHA256,
		Events: append(append([]models.CustodyEvent(nil), prev.Events...), event),
	}
	if err := models.ValidateCustodyAppend(prev, next); err != nil {
		return errors.StoreIntegrityError(err, "custody append rejected")
	}
	return writeJSONAtomic(filepath.Join(s.derivedDir(sha), "chain_of_custody.json"), next)
}
