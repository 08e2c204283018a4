package cache

import (
	"context"
	"sync"
	"time"

	"salesbook/internal/core"
	"salesbook/internal/sheets"
)

// TransactionStore caches each owner's full transaction list in front of
// another store. Every write through it drops that owner's entry, so the
// next read is a full re-fetch.
type TransactionStore struct {
	next  sheets.TransactionStore
	lists *LRUCache[[]core.Transaction]

	// gens counts writes per owner. A list fetched while the count moved
	// is returned but never cached.
	mu   sync.Mutex
	gens map[string]uint64
}

func NewTransactionStore(next sheets.TransactionStore, maxOwners int, ttl time.Duration) *TransactionStore {
	return &TransactionStore{
		next:  next,
		lists: NewLRUCache[[]core.Transaction](maxOwners, ttl),
		gens:  map[string]uint64{},
	}
}

// Cache exposes the underlying LRU so a Manager can sweep it.
func (s *TransactionStore) Cache() *LRUCache[[]core.Transaction] {
	return s.lists
}

func (s *TransactionStore) ListTransactions(ctx context.Context, owner string) ([]core.Transaction, error) {
	if rows, ok := s.lists.Get(owner); ok {
		return append([]core.Transaction(nil), rows...), nil
	}
	gen := s.generation(owner)
	rows, err := s.next.ListTransactions(ctx, owner)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.gens[owner] == gen {
		s.lists.Set(owner, append([]core.Transaction(nil), rows...))
	}
	s.mu.Unlock()
	return rows, nil
}

func (s *TransactionStore) InsertTransactions(ctx context.Context, owner string, rows []core.Transaction) ([]core.Transaction, error) {
	s.bump(owner)
	defer s.bump(owner)
	return s.next.InsertTransactions(ctx, owner, rows)
}

func (s *TransactionStore) DeleteTransactions(ctx context.Context, owner string, ids []string) (int, error) {
	s.bump(owner)
	defer s.bump(owner)
	return s.next.DeleteTransactions(ctx, owner, ids)
}

// Invalidate drops owner's cached list.
func (s *TransactionStore) Invalidate(owner string) {
	s.bump(owner)
}

func (s *TransactionStore) generation(owner string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gens[owner]
}

// bump advances owner's generation and drops its cached list. Writes call
// it on entry and on exit, so a read overlapping any part of the write
// cannot store what it fetched.
func (s *TransactionStore) bump(owner string) {
	s.mu.Lock()
	s.gens[owner]++
	s.lists.Delete(owner)
	s.mu.Unlock()
}
