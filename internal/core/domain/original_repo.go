package domain

import "context"

type OriginalRepository interface {
	Add(ctx context.Context, original Original) error
	Get(ctx context.Context, protectedId string) (*Original, error)
	GetAll(ctx context.Context) ([]Original, error)
	GetByContract(ctx context.Context, sourceContract string) ([]Original, error)
	UpdateRecordedOwner(ctx context.Context, protectedId, newOwner string) error
	Delete(ctx context.Context, protectedId string) error
	Close()
}
