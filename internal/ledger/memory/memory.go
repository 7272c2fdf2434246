// Package memory provides a mutex-guarded in-memory ledger store, used
// by tests and as the default development backend.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"despesas/internal/core"
	"despesas/internal/ledger"
)

type userData struct {
	records []core.RawRecord
	budgets []core.Budget
}

type Store struct {
	mu    sync.Mutex
	users map[string]*userData
	next  int
}

var _ ledger.Store = (*Store)(nil)

func New() *Store {
	return &Store{users: make(map[string]*userData)}
}

func (s *Store) user(id string) *userData {
	u, ok := s.users[id]
	if !ok {
		u = &userData{}
		s.users[id] = u
	}
	return u
}

func (s *Store) FetchRecords(_ context.Context, userID string) ([]core.RawRecord, error) {
	if userID == "" {
		return nil, ledger.ErrNotAuthenticated
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.RawRecord(nil), s.user(userID).records...), nil
}

func (s *Store) FetchBudgets(_ context.Context, userID string) ([]core.Budget, error) {
	if userID == "" {
		return nil, ledger.ErrNotAuthenticated
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Budget(nil), s.user(userID).budgets...), nil
}

func (s *Store) CreateRecord(_ context.Context, userID string, raw core.RawRecord) (string, error) {
	if userID == "" {
		return "", ledger.ErrNotAuthenticated
	}
	if _, err := raw.Parse(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	raw.ID = fmt.Sprintf("mem:%d", s.next)
	u := s.user(userID)
	u.records = append(u.records, raw)
	return raw.ID, nil
}

func (s *Store) UpdateRecord(_ context.Context, userID, id string, raw core.RawRecord) error {
	if userID == "" {
		return ledger.ErrNotAuthenticated
	}
	raw.ID = id
	if _, err := raw.Parse(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	for i, r := range u.records {
		if r.ID == id {
			u.records[i] = raw
			return nil
		}
	}
	return ledger.ErrNotFound
}

func (s *Store) DeleteRecord(_ context.Context, userID, id string) error {
	if userID == "" {
		return ledger.ErrNotAuthenticated
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	for i, r := range u.records {
		if r.ID == id {
			u.records = append(u.records[:i], u.records[i+1:]...)
			return nil
		}
	}
	return ledger.ErrNotFound
}

func (s *Store) UpsertBudget(_ context.Context, userID string, key core.MonthKey, amount decimal.Decimal) error {
	if userID == "" {
		return ledger.ErrNotAuthenticated
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	for i, b := range u.budgets {
		if b.MonthKey == key {
			u.budgets[i].Amount = amount
			return nil
		}
	}
	u.budgets = append(u.budgets, core.Budget{MonthKey: key, Amount: amount})
	return nil
}
