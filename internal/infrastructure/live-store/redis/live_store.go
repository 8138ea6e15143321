package redislivestore

import (
	"context"
	"fmt"
	"time"

	"github.com/custodix/custodiad/internal/core/ports"
	"github.com/redis/go-redis/v9"
)

const (
	gateKeyPrefix = "custodiad:deposit-gate:"

	// A gate is only meant to live for the duration of one deposit call;
	// the TTL is a safety net against a crashed process leaving it open.
	gateTTL = time.Minute
)

type liveStore struct {
	gates *depositGateStore
}

func NewLiveStore(rdb *redis.Client) ports.LiveStore {
	return &liveStore{
		gates: &depositGateStore{rdb: rdb},
	}
}

func (s *liveStore) DepositGates() ports.DepositGateStore {
	return s.gates
}

type depositGateStore struct {
	rdb *redis.Client
}

func (s *depositGateStore) Open(ctx context.Context, key string) error {
	ok, err := s.rdb.SetNX(ctx, gateKeyPrefix+key, 1, gateTTL).Result()
	if err != nil {
		return fmt.Errorf("failed to open deposit gate: %w", err)
	}
	if !ok {
		return fmt.Errorf("deposit gate for %s already open", key)
	}
	return nil
}

func (s *depositGateStore) Close(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, gateKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to close deposit gate: %w", err)
	}
	return nil
}

func (s *depositGateStore) IsOpen(ctx context.Context, key string) (bool, error) {
	n, err := s.rdb.Exists(ctx, gateKeyPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check deposit gate: %w", err)
	}
	return n > 0, nil
}
