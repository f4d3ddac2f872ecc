// Package settings provides the persisted parental-control settings store.
//
// The store is the single source of truth for the parental PIN, the
// restricted-mode flag, and the selected video IDs. Every mutation is
// written through to durable storage; on a write failure the in-memory
// state keeps the previous committed value.
package settings

import (
	"encoding/json"
	"strconv"
	"sync"

	zlog "github.com/rs/zerolog/log"

	"github.com/ayasaka/kidreel/internal/domain/apperr"
	"github.com/ayasaka/kidreel/internal/infra/storage"
)

// Storage keys. External code must not touch these directly.
const (
	keyPIN        = "parental_pin"
	keyRestricted = "restricted_mode"
	keySelected   = "selected_ids"
)

// State is a read-only snapshot of the persisted settings.
type State struct {
	PinSet     bool
	Restricted bool
	Selected   []string
}

// Store holds the parental-control settings with thread-safe access.
type Store struct {
	mu sync.RWMutex
	kv storage.KV

	pin        string
	pinSet     bool
	restricted bool
	selected   []string
}

// New creates a store over the given durable KV. Call Load before
// serving any gated content.
func New(kv storage.KV) *Store {
	return &Store{kv: kv, selected: make([]string, 0)}
}

// Load reads the persisted settings into memory. Missing or corrupt
// entries fail open to their zero-value defaults; failures are logged,
// never returned.
func (s *Store) Load() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pin = ""
	s.pinSet = false
	if v, ok, err := s.kv.GetItem(keyPIN); err != nil {
		zlog.Warn().Msgf("settings: failed to read %s, using default: %v", keyPIN, err)
	} else if ok {
		s.pin = v
		s.pinSet = true
	}

	s.restricted = false
	if v, ok, err := s.kv.GetItem(keyRestricted); err != nil {
		zlog.Warn().Msgf("settings: failed to read %s, using default: %v", keyRestricted, err)
	} else if ok {
		b, perr := strconv.ParseBool(v)
		if perr != nil {
			zlog.Warn().Msgf("settings: corrupt %s value %q, using default", keyRestricted, v)
		} else {
			s.restricted = b
		}
	}

	s.selected = make([]string, 0)
	if v, ok, err := s.kv.GetItem(keySelected); err != nil {
		zlog.Warn().Msgf("settings: failed to read %s, using default: %v", keySelected, err)
	} else if ok {
		var ids []string
		if jerr := json.Unmarshal([]byte(v), &ids); jerr != nil {
			zlog.Warn().Msgf("settings: corrupt %s value, using default: %v", keySelected, jerr)
		} else {
			s.selected = dedupe(ids)
		}
	}

	return s.snapshotLocked()
}

// Snapshot returns the current in-memory state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() State {
	sel := make([]string, len(s.selected))
	copy(sel, s.selected)
	return State{PinSet: s.pinSet, Restricted: s.restricted, Selected: sel}
}

// IsPinSet reports whether a parental PIN has been set.
func (s *Store) IsPinSet() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pinSet
}

// SetPin persists candidate as the new PIN. On a persistence failure the
// previous PIN (or its absence) stays in effect.
func (s *Store) SetPin(candidate string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.SetItem(keyPIN, candidate); err != nil {
		return &apperr.PersistenceError{Key: keyPIN, Err: err}
	}
	s.pin = candidate
	s.pinSet = true
	return nil
}

// VerifyPin checks candidate against the stored PIN. Returns false when
// no PIN is set, including for an empty candidate. Never touches storage.
func (s *Store) VerifyPin(candidate string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.pinSet {
		return false
	}
	return s.pin == candidate
}

// ToggleSelection adds id to the selection, or removes it when already
// present. The full resulting list is persisted on every toggle. Returns
// the updated selection.
func (s *Store) ToggleSelection(id string) ([]string, error) {
	ids, _, err := s.ToggleSelectionCapped(id, -1)
	return ids, err
}

// ToggleSelectionCapped is ToggleSelection with a cap on additions: a
// new id is refused once limit selections exist (reported by the second
// result, with the list unchanged). Removal is never capped; a negative
// limit disables the cap. The check and the mutation share one critical
// section, so concurrent callers cannot both squeeze past the cap.
func (s *Store) ToggleSelectionCapped(id string, limit int) ([]string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]string, 0, len(s.selected)+1)
	found := false
	for _, v := range s.selected {
		if v == id {
			found = true
			continue
		}
		next = append(next, v)
	}
	if !found {
		if limit >= 0 && len(s.selected) >= limit {
			return s.selectedCopyLocked(), true, nil
		}
		next = append(next, id)
	}

	raw, err := json.Marshal(next)
	if err != nil {
		return s.selectedCopyLocked(), false, &apperr.PersistenceError{Key: keySelected, Err: err}
	}
	if err := s.kv.SetItem(keySelected, string(raw)); err != nil {
		return s.selectedCopyLocked(), false, &apperr.PersistenceError{Key: keySelected, Err: err}
	}

	s.selected = next
	return s.selectedCopyLocked(), false, nil
}

// ToggleRestrictedMode flips and persists the restricted-mode flag.
// Returns the updated flag.
func (s *Store) ToggleRestrictedMode() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := !s.restricted
	if err := s.kv.SetItem(keyRestricted, strconv.FormatBool(next)); err != nil {
		return s.restricted, &apperr.PersistenceError{Key: keyRestricted, Err: err}
	}
	s.restricted = next
	return s.restricted, nil
}

// RestrictedMode reports whether restricted mode is on.
func (s *Store) RestrictedMode() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.restricted
}

// Selected returns a copy of the selected IDs in insertion order.
func (s *Store) Selected() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedCopyLocked()
}

// IsSelected reports whether id is currently selected.
func (s *Store) IsSelected(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, v := range s.selected {
		if v == id {
			return true
		}
	}
	return false
}

// SelectedCount returns the number of selected IDs.
func (s *Store) SelectedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.selected)
}

// Clear erases all persisted settings and resets memory to defaults.
// The underlying MultiRemove is all-or-nothing; on failure the previous
// state stays in effect and the error is surfaced.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.MultiRemove([]string{keyPIN, keyRestricted, keySelected}); err != nil {
		return &apperr.PersistenceError{Key: "settings", Err: err}
	}
	s.pin = ""
	s.pinSet = false
	s.restricted = false
	s.selected = make([]string, 0)
	return nil
}

func (s *Store) selectedCopyLocked() []string {
	out := make([]string, len(s.selected))
	copy(out, s.selected)
	return out
}

// dedupe removes duplicate IDs keeping first occurrence order. Persisted
// data is not trusted to uphold the no-duplicates invariant.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
