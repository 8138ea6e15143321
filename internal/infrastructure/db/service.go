package db

import (
	"fmt"

	"github.com/custodix/custodiad/internal/core/domain"
	"github.com/custodix/custodiad/internal/core/ports"
	badgerdb "github.com/custodix/custodiad/internal/infrastructure/db/badger"
)

var (
	originalStoreTypes = map[string]func(...interface{}) (domain.OriginalRepository, error){
		"badger": badgerdb.NewOriginalRepository,
	}
	tokenStoreTypes = map[string]func(...interface{}) (domain.TokenRepository, error){
		"badger": badgerdb.NewTokenRepository,
	}
	requestStoreTypes = map[string]func(...interface{}) (domain.RequestRepository, error){
		"badger": badgerdb.NewRequestRepository,
	}
	settingsStoreTypes = map[string]func(...interface{}) (domain.SettingsRepository, error){
		"badger": badgerdb.NewSettingsRepository,
	}
)

type ServiceConfig struct {
	DataStoreType   string
	DataStoreConfig []interface{}
}

type service struct {
	originalStore domain.OriginalRepository
	tokenStore    domain.TokenRepository
	requestStore  domain.RequestRepository
	settingsStore domain.SettingsRepository
}

func NewService(config ServiceConfig) (ports.RepoManager, error) {
	originalFactory, ok := originalStoreTypes[config.DataStoreType]
	if !ok {
		return nil, fmt.Errorf("original store type not supported")
	}
	tokenFactory, ok := tokenStoreTypes[config.DataStoreType]
	if !ok {
		return nil, fmt.Errorf("token store type not supported")
	}
	requestFactory, ok := requestStoreTypes[config.DataStoreType]
	if !ok {
		return nil, fmt.Errorf("request store type not supported")
	}
	settingsFactory, ok := settingsStoreTypes[config.DataStoreType]
	if !ok {
		return nil, fmt.Errorf("settings store type not supported")
	}

	originalStore, err := originalFactory(config.DataStoreConfig...)
	if err != nil {
		return nil, fmt.Errorf("failed to open original store: %w", err)
	}
	tokenStore, err := tokenFactory(config.DataStoreConfig...)
	if err != nil {
		return nil, fmt.Errorf("failed to open token store: %w", err)
	}
	requestStore, err := requestFactory(config.DataStoreConfig...)
	if err != nil {
		return nil, fmt.Errorf("failed to open request store: %w", err)
	}
	settingsStore, err := settingsFactory(config.DataStoreConfig...)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings store: %w", err)
	}

	return &service{
		originalStore: originalStore,
		tokenStore:    tokenStore,
		requestStore:  requestStore,
		settingsStore: settingsStore,
	}, nil
}

func (s *service) Originals() domain.OriginalRepository {
	return s.originalStore
}

func (s *service) Tokens() domain.TokenRepository {
	return s.tokenStore
}

func (s *service) Requests() domain.RequestRepository {
	return s.requestStore
}

func (s *service) Settings() domain.SettingsRepository {
	return s.settingsStore
}

func (s *service) Close() {
	s.originalStore.Close()
	s.tokenStore.Close()
	s.requestStore.Close()
	s.settingsStore.Close()
}
