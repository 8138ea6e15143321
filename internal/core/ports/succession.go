package ports

import "context"

// SuccessionRegistry is the external identity registry. It answers whether an
// address is a registered user, resolves delegation/inheritance of identities
// (succession), processes protocol payments and receives notifications when
// evidence templates change.
//
// The registry must guarantee succession chains are acyclic and finite; the
// core additionally bounds its walks.
type SuccessionRegistry interface {
	IsRegistered(ctx context.Context, addr string) (bool, error)
	HasSuccessor(ctx context.Context, addr string) (bool, error)
	SuccessorOf(ctx context.Context, addr string) (string, error)
	IsSuccessor(ctx context.Context, addr, candidate string) (bool, error)
	ReputationOf(ctx context.Context, addr string) (int64, error)
	ProcessPayment(ctx context.Context, from string, amount uint64) error
	NotifyEvidenceTemplateUpdated(ctx context.Context, requestType int, template string) error
}
