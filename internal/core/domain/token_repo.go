package domain

import "context"

type TokenRepository interface {
	Add(ctx context.Context, token ProtectedToken) error
	Get(ctx context.Context, id string) (*ProtectedToken, error)
	Update(ctx context.Context, token ProtectedToken) error
	Delete(ctx context.Context, id string) error
	Close()
}
