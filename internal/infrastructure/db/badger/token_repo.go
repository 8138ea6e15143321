package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/custodix/custodiad/internal/core/domain"
	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"
)

const tokenStoreDir = "tokens"

type tokenRepository struct {
	store *badgerhold.Store
}

func NewTokenRepository(config ...interface{}) (domain.TokenRepository, error) {
	if len(config) != 2 {
		return nil, fmt.Errorf("invalid config")
	}
	baseDir, ok := config[0].(string)
	if !ok {
		return nil, fmt.Errorf("invalid base directory")
	}
	var logger badger.Logger
	if config[1] != nil {
		logger, ok = config[1].(badger.Logger)
		if !ok {
			return nil, fmt.Errorf("invalid logger")
		}
	}

	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, tokenStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open token store: %s", err)
	}

	return &tokenRepository{store}, nil
}

func (r *tokenRepository) Close() {
	// nolint:all
	r.store.Close()
}

func (r *tokenRepository) Add(ctx context.Context, token domain.ProtectedToken) error {
	if err := r.store.Insert(token.Id, token); err != nil {
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return fmt.Errorf("token %s already exists", token.Id)
		}
		return fmt.Errorf("failed to add token: %w", err)
	}
	return nil
}

func (r *tokenRepository) Get(ctx context.Context, id string) (*domain.ProtectedToken, error) {
	var token domain.ProtectedToken
	if err := r.store.Get(id, &token); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get token: %w", err)
	}
	return &token, nil
}

func (r *tokenRepository) Update(ctx context.Context, token domain.ProtectedToken) error {
	if err := r.store.Update(token.Id, token); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return fmt.Errorf("token %s not found", token.Id)
		}
		return fmt.Errorf("failed to update token: %w", err)
	}
	return nil
}

func (r *tokenRepository) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(id, domain.ProtectedToken{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return fmt.Errorf("token %s not found", id)
		}
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}
