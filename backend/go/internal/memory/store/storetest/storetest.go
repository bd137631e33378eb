// Package storetest provides an in-memory store.Store for tests.
package storetest

import (
	"context"
	"sort"
	"sync"

	"couplecoach/backend/go/internal/memory/store"
	"couplecoach/backend/go/internal/models"

	"gorm.io/datatypes"
)

// Op names a Store method.
type Op string

const (
	OpListUserSessions     Op = "ListUserSessions"
	OpListCoupleSessions   Op = "ListCoupleSessions"
	OpGetCoupleID          Op = "GetCoupleID"
	OpResetPersonalContext Op = "ResetPersonalContext"
	OpResetSharedContext   Op = "ResetSharedContext"
	OpRevokeConsent        Op = "RevokeConsent"
)

// IsWrite reports whether op mutates the store.
func (op Op) IsWrite() bool {
	switch op {
	case OpResetPersonalContext, OpResetSharedContext, OpRevokeConsent:
		return true
	}
	return false
}

// Call records one invocation and its identifier argument.
type Call struct {
	Op  Op
	Arg string
}

// Store is a goroutine-safe in-memory store.Store. Writes to unknown rows are
// no-ops, matching an UPDATE that matches zero rows.
type Store struct {
	mu       sync.Mutex
	users    map[string]*models.User
	couples  map[string]*models.Couple
	sessions []models.SessionRecord
	failures map[Op]error
	calls    []Call
}

var _ store.Store = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{
		users:    make(map[string]*models.User),
		couples:  make(map[string]*models.Couple),
		failures: make(map[Op]error),
	}
}

// AddUser stores a copy of u.
func (s *Store) AddUser(u *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.users[u.ID] = &cp
}

// AddCouple stores a copy of c.
func (s *Store) AddCouple(c *models.Couple) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.couples[c.ID] = &cp
}

// AddSessions appends session records.
func (s *Store) AddSessions(records ...models.SessionRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = append(s.sessions, records...)
}

// FailOn makes every later call of op return err. A nil err clears the failure.
func (s *Store) FailOn(op Op, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

// Calls returns all recorded calls in order.
func (s *Store) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// Writes returns the recorded calls that mutate the store.
func (s *Store) Writes() []Call {
	var writes []Call
	for _, c := range s.Calls() {
		if c.Op.IsWrite() {
			writes = append(writes, c)
		}
	}
	return writes
}

// User returns a copy of the stored user.
func (s *Store) User(id string) (models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, false
	}
	return *u, true
}

// Couple returns a copy of the stored couple.
func (s *Store) Couple(id string) (models.Couple, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.couples[id]
	if !ok {
		return models.Couple{}, false
	}
	return *c, true
}

// record must be called with mu held.
func (s *Store) record(op Op, arg string) error {
	s.calls = append(s.calls, Call{Op: op, Arg: arg})
	return s.failures[op]
}

func (s *Store) ListUserSessions(_ context.Context, userID string) ([]models.SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record(OpListUserSessions, userID); err != nil {
		return nil, err
	}
	return s.filter(func(r models.SessionRecord) bool {
		return r.UserID == userID
	}), nil
}

func (s *Store) ListCoupleSessions(_ context.Context, coupleID string) ([]models.SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record(OpListCoupleSessions, coupleID); err != nil {
		return nil, err
	}
	return s.filter(func(r models.SessionRecord) bool {
		return r.Type == models.SessionCouple && r.CoupleID != nil && *r.CoupleID == coupleID
	}), nil
}

// filter returns analyzed records matching keep, newest first.
func (s *Store) filter(keep func(models.SessionRecord) bool) []models.SessionRecord {
	var out []models.SessionRecord
	for _, r := range s.sessions {
		if r.Analysis != nil && keep(r) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (s *Store) GetCoupleID(_ context.Context, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record(OpGetCoupleID, userID); err != nil {
		return "", err
	}
	u, ok := s.users[userID]
	if !ok {
		return "", store.ErrUserNotFound
	}
	if u.CoupleID == nil {
		return "", nil
	}
	return *u.CoupleID, nil
}

func (s *Store) ResetPersonalContext(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record(OpResetPersonalContext, userID); err != nil {
		return err
	}
	if u, ok := s.users[userID]; ok {
		u.PersonalContext = datatypes.NewJSONType(models.EmptyPersonalContext())
	}
	return nil
}

func (s *Store) ResetSharedContext(_ context.Context, coupleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record(OpResetSharedContext, coupleID); err != nil {
		return err
	}
	if c, ok := s.couples[coupleID]; ok {
		c.SharedContext = datatypes.NewJSONType(models.EmptySharedContext())
	}
	return nil
}

func (s *Store) RevokeConsent(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record(OpRevokeConsent, userID); err != nil {
		return err
	}
	if u, ok := s.users[userID]; ok {
		u.MemoryConsent = false
	}
	return nil
}
