package domain

import "context"

type RequestRepository interface {
	Upsert(ctx context.Context, request Request) error
	Get(ctx context.Context, id string) (*Request, error)
	// GetByTokenId returns the request currently bound to the token, nil if
	// none exists.
	GetByTokenId(ctx context.Context, tokenId string) (*Request, error)
	// GetByDisputeHandle returns the request correlated to an arbitrator
	// case, nil if the handle is unknown.
	GetByDisputeHandle(ctx context.Context, disputeHandle string) (*Request, error)
	// GetExpiredInitial returns unanswered requests whose timeout elapsed
	// before the given unix time.
	GetExpiredInitial(ctx context.Context, before int64) ([]Request, error)
	DeleteByTokenId(ctx context.Context, tokenId string) error
	Close()
}
