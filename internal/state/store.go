package state

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// StoreName is the fixed key under which the snapshot is persisted.
const StoreName = "canvas-store"

// Snapshot is the full shared state. A nil slot was never received (or was cleared).
type Snapshot struct {
	DoctorPreferences *DoctorPreferences `json:"doctorPreferences"`
	PatientData       *PatientData       `json:"patientData"`
	UserData          *UserData          `json:"userData"`
}

// Empty reports whether no slot is set.
func (s Snapshot) Empty() bool {
	return s.DoctorPreferences == nil && s.PatientData == nil && s.UserData == nil
}

// Persister durably stores snapshots. Load reports ok=false when nothing was stored yet.
type Persister interface {
	Load(ctx context.Context) (snap Snapshot, ok bool, err error)
	Save(ctx context.Context, snap Snapshot) error
}

// Store holds the three shared slots. Mutations go through the setters only; each
// one is persisted before it becomes visible, so a failed write leaves the previous
// snapshot in place.
type Store struct {
	mu        sync.RWMutex
	snap      Snapshot
	persister Persister
}

// NewStore returns an empty store. A nil persister keeps state in memory only.
func NewStore(p Persister) *Store {
	return &Store{persister: p}
}

// Open reloads the last persisted snapshot.
func (s *Store) Open(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	snap, ok, err := s.persister.Load(ctx)
	if err != nil {
		return fmt.Errorf("load canvas store: %w", err)
	}
	if !ok {
		return nil
	}
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
	slog.Debug("canvas store restored",
		"doctorPreferences", snap.DoctorPreferences != nil,
		"patientData", snap.PatientData != nil,
		"userData", snap.UserData != nil)
	return nil
}

// Get returns a copy of the current snapshot.
func (s *Store) Get() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

func (s *Store) SetDoctorPreferences(ctx context.Context, v DoctorPreferences) error {
	return s.update(ctx, func(snap *Snapshot) { snap.DoctorPreferences = &v })
}

func (s *Store) SetPatientData(ctx context.Context, v PatientData) error {
	return s.update(ctx, func(snap *Snapshot) { snap.PatientData = &v })
}

func (s *Store) SetUserData(ctx context.Context, v UserData) error {
	return s.update(ctx, func(snap *Snapshot) { snap.UserData = &v })
}

// Clear resets every slot to absent.
func (s *Store) Clear(ctx context.Context) error {
	return s.update(ctx, func(snap *Snapshot) { *snap = Snapshot{} })
}

func (s *Store) update(ctx context.Context, mutate func(*Snapshot)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.snap
	mutate(&next)
	if s.persister != nil {
		if err := s.persister.Save(ctx, next); err != nil {
			return fmt.Errorf("persist canvas store: %w", err)
		}
	}
	s.snap = next
	return nil
}
