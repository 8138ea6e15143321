package ports

import "context"

// DepositGateStore tracks the transient acceptance gates opened for the
// duration of a deposit call. A gate left open would let the protocol accept
// unrelated unsolicited transfers, so every open must be paired with a close
// on all exit paths.
type DepositGateStore interface {
	// Open opens the gate for the given key. It fails if the gate is
	// already open.
	Open(ctx context.Context, key string) error
	Close(ctx context.Context, key string) error
	IsOpen(ctx context.Context, key string) (bool, error)
}

type LiveStore interface {
	DepositGates() DepositGateStore
}
