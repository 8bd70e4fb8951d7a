// Package memorystore is an in-memory implementation of lifecycle.Store.
// It exists for tests and single-process development setups; a mutex
// stands in for the database's transaction boundary, so the atomicity
// contract of RedeemInstance holds here too.
package memorystore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/open-rails/entitlekit/entitlements"
	"github.com/open-rails/entitlekit/lifecycle"
)

type Store struct {
	mu          sync.Mutex
	users       map[uuid.UUID]struct{}
	types       map[uuid.UUID]entitlements.Type
	instances   map[uuid.UUID]entitlements.Instance
	byCode      map[string]uuid.UUID
	redemptions map[uuid.UUID]entitlements.Redemption // keyed by instance id
}

func New() *Store {
	return &Store{
		users:       make(map[uuid.UUID]struct{}),
		types:       make(map[uuid.UUID]entitlements.Type),
		instances:   make(map[uuid.UUID]entitlements.Instance),
		byCode:      make(map[string]uuid.UUID),
		redemptions: make(map[uuid.UUID]entitlements.Redemption),
	}
}

// AddUser seeds a user id. Registration proper lives outside this kit.
func (s *Store) AddUser(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id] = struct{}{}
}

func (s *Store) UserExists(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.users[id]
	return ok, nil
}

func (s *Store) CreateType(_ context.Context, t *entitlements.Type) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.types[t.ID] = *t
	return nil
}

func (s *Store) TypeByID(_ context.Context, id uuid.UUID) (*entitlements.Type, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.types[id]
	if !ok {
		return nil, lifecycle.ErrNotFound
	}
	out := t
	return &out, nil
}

func (s *Store) ActiveTypes(_ context.Context) ([]entitlements.Type, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entitlements.Type
	for _, t := range s.types {
		if t.Active {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) DeactivateType(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.types[id]
	if !ok {
		return lifecycle.ErrNotFound
	}
	t.Active = false
	s.types[id] = t
	return nil
}

func (s *Store) InsertInstance(_ context.Context, inst *entitlements.Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instances[inst.ID] = *inst
	s.byCode[inst.Code] = inst.ID
	return nil
}

func (s *Store) InstanceByCode(_ context.Context, code string) (*entitlements.Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byCode[code]
	if !ok {
		return nil, lifecycle.ErrNotFound
	}
	inst := s.instances[id]
	return &inst, nil
}

func (s *Store) InstanceByID(_ context.Context, id uuid.UUID) (*entitlements.Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.instances[id]
	if !ok {
		return nil, lifecycle.ErrNotFound
	}
	out := inst
	return &out, nil
}

func (s *Store) InstancesByUser(_ context.Context, userID uuid.UUID) ([]entitlements.Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entitlements.Instance
	for _, inst := range s.instances {
		if inst.UserID == userID {
			out = append(out, inst)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedAt.After(out[j].IssuedAt) })
	return out, nil
}

func (s *Store) ActivateIssued(_ context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, inst := range s.instances {
		if inst.UserID == userID && inst.Status == entitlements.StatusIssued {
			inst.Status = entitlements.StatusActive
			t := at
			inst.ActivatedAt = &t
			s.instances[id] = inst
			n++
		}
	}
	return n, nil
}

func (s *Store) MarkExpired(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.instances[id]
	if !ok {
		return lifecycle.ErrNotFound
	}
	if inst.Status != entitlements.StatusExpired {
		inst.Status = entitlements.StatusExpired
		s.instances[id] = inst
	}
	return nil
}

func (s *Store) ExpireOverdue(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, inst := range s.instances {
		switch inst.Status {
		case entitlements.StatusIssued, entitlements.StatusActive:
			if inst.ExpiresAt != nil && now.After(*inst.ExpiresAt) {
				inst.Status = entitlements.StatusExpired
				s.instances[id] = inst
				n++
			}
		}
	}
	return n, nil
}

func (s *Store) RedemptionByInstance(_ context.Context, instanceID uuid.UUID) (*entitlements.Redemption, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	red, ok := s.redemptions[instanceID]
	if !ok {
		return nil, lifecycle.ErrNotFound
	}
	out := red
	return &out, nil
}

// RedeemInstance inserts the redemption and flips the instance to REDEEMED
// under one lock acquisition, mirroring the single database transaction of
// the durable implementation. The redemptions map key doubles as the
// uniqueness constraint on the instance reference, and the status guard
// rejects instances a concurrent sweep or cancellation already moved out
// of ACTIVE.
func (s *Store) RedeemInstance(_ context.Context, red *entitlements.Redemption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.redemptions[red.InstanceID]; exists {
		return lifecycle.ErrAlreadyRedeemed
	}
	inst, ok := s.instances[red.InstanceID]
	if !ok {
		return lifecycle.ErrNotFound
	}
	if inst.Status != entitlements.StatusActive {
		return lifecycle.ErrInvalidState
	}
	s.redemptions[red.InstanceID] = *red
	inst.Status = entitlements.StatusRedeemed
	s.instances[red.InstanceID] = inst
	return nil
}
