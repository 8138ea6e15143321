package inmemorysuccession

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodix/custodiad/internal/core/ports"
)

// Registry is an in-memory succession registry, used in dev mode and tests.
// Production deployments point the daemon at a real identity registry; the
// protocol only depends on the ports.SuccessionRegistry contract.
type Registry struct {
	lock          sync.RWMutex
	registered    map[string]struct{}
	successors    map[string]string
	reputations   map[string]int64
	payments      map[string]uint64
	notifications []string
}

func NewSuccessionRegistry() *Registry {
	return &Registry{
		registered:  make(map[string]struct{}),
		successors:  make(map[string]string),
		reputations: make(map[string]int64),
		payments:    make(map[string]uint64),
	}
}

var _ ports.SuccessionRegistry = (*Registry)(nil)

func (r *Registry) Register(addrs ...string) {
	r.lock.Lock()
	defer r.lock.Unlock()
	for _, addr := range addrs {
		r.registered[addr] = struct{}{}
	}
}

func (r *Registry) SetSuccessor(addr, successor string) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.successors[addr] = successor
}

func (r *Registry) SetReputation(addr string, reputation int64) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.reputations[addr] = reputation
}

func (r *Registry) PaymentsFrom(addr string) uint64 {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.payments[addr]
}

func (r *Registry) Notifications() []string {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return append([]string{}, r.notifications...)
}

func (r *Registry) IsRegistered(ctx context.Context, addr string) (bool, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	_, ok := r.registered[addr]
	return ok, nil
}

func (r *Registry) HasSuccessor(ctx context.Context, addr string) (bool, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	_, ok := r.successors[addr]
	return ok, nil
}

func (r *Registry) SuccessorOf(ctx context.Context, addr string) (string, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	successor, ok := r.successors[addr]
	if !ok {
		return "", fmt.Errorf("no successor for %s", addr)
	}
	return successor, nil
}

func (r *Registry) IsSuccessor(ctx context.Context, addr, candidate string) (bool, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.successors[addr] == candidate, nil
}

func (r *Registry) ReputationOf(ctx context.Context, addr string) (int64, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.reputations[addr], nil
}

func (r *Registry) ProcessPayment(ctx context.Context, from string, amount uint64) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.payments[from] += amount
	return nil
}

func (r *Registry) NotifyEvidenceTemplateUpdated(
	ctx context.Context, requestType int, template string,
) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.notifications = append(
		r.notifications, fmt.Sprintf("%d:%s", requestType, template),
	)
	return nil
}
