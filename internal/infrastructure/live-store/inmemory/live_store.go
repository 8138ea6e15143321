package inmemorylivestore

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodix/custodiad/internal/core/ports"
)

type liveStore struct {
	gates *depositGateStore
}

func NewLiveStore() ports.LiveStore {
	return &liveStore{
		gates: &depositGateStore{
			open: make(map[string]struct{}),
		},
	}
}

func (s *liveStore) DepositGates() ports.DepositGateStore {
	return s.gates
}

type depositGateStore struct {
	lock sync.Mutex
	open map[string]struct{}
}

func (s *depositGateStore) Open(ctx context.Context, key string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if _, ok := s.open[key]; ok {
		return fmt.Errorf("deposit gate for %s already open", key)
	}
	s.open[key] = struct{}{}
	return nil
}

func (s *depositGateStore) Close(ctx context.Context, key string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.open, key)
	return nil
}

func (s *depositGateStore) IsOpen(ctx context.Context, key string) (bool, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	_, ok := s.open[key]
	return ok, nil
}
