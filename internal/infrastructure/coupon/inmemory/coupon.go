package inmemorycoupon

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodix/custodiad/internal/core/ports"
)

// Service is an in-memory coupon ledger for dev mode and tests.
type Service struct {
	lock     sync.Mutex
	balances map[string]uint64
}

func NewCouponService() *Service {
	return &Service{balances: make(map[string]uint64)}
}

var _ ports.CouponService = (*Service)(nil)

func (s *Service) Credit(addr string, amount uint64) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.balances[addr] += amount
}

func (s *Service) BalanceOf(ctx context.Context, addr string) (uint64, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.balances[addr], nil
}

func (s *Service) BurnOne(ctx context.Context, addr string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.balances[addr] == 0 {
		return fmt.Errorf("no coupons for %s", addr)
	}
	s.balances[addr]--
	return nil
}
