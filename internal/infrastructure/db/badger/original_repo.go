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

const originalStoreDir = "originals"

type originalRepository struct {
	store *badgerhold.Store
}

func NewOriginalRepository(config ...interface{}) (domain.OriginalRepository, error) {
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
		dir = filepath.Join(baseDir, originalStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open original store: %s", err)
	}

	return &originalRepository{store}, nil
}

func (r *originalRepository) Close() {
	// nolint:all
	r.store.Close()
}

func (r *originalRepository) Add(ctx context.Context, original domain.Original) error {
	record := toDBOriginal(original)
	if err := r.store.Insert(record.ProtectedId, record); err != nil {
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return fmt.Errorf("original %s already exists", original.ProtectedId)
		}
		return fmt.Errorf("failed to add original: %w", err)
	}
	return nil
}

func (r *originalRepository) Get(
	ctx context.Context, protectedId string,
) (*domain.Original, error) {
	var record Original
	if err := r.store.Get(protectedId, &record); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get original: %w", err)
	}
	original := toDomainOriginal(record)
	return &original, nil
}

func (r *originalRepository) GetAll(ctx context.Context) ([]domain.Original, error) {
	var records []Original
	if err := r.store.Find(&records, nil); err != nil {
		return nil, fmt.Errorf("failed to list originals: %w", err)
	}
	originals := make([]domain.Original, 0, len(records))
	for _, record := range records {
		originals = append(originals, toDomainOriginal(record))
	}
	return originals, nil
}

func (r *originalRepository) GetByContract(
	ctx context.Context, sourceContract string,
) ([]domain.Original, error) {
	var records []Original
	query := badgerhold.Where("SourceContract").Eq(sourceContract)
	if err := r.store.Find(&records, query); err != nil {
		return nil, fmt.Errorf("failed to get originals by contract: %w", err)
	}
	originals := make([]domain.Original, 0, len(records))
	for _, record := range records {
		originals = append(originals, toDomainOriginal(record))
	}
	return originals, nil
}

func (r *originalRepository) UpdateRecordedOwner(
	ctx context.Context, protectedId, newOwner string,
) error {
	var record Original
	if err := r.store.Get(protectedId, &record); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return fmt.Errorf("original %s not found", protectedId)
		}
		return fmt.Errorf("failed to get original: %w", err)
	}
	record.RecordedOwner = newOwner
	if err := r.store.Update(protectedId, record); err != nil {
		return fmt.Errorf("failed to update original: %w", err)
	}
	return nil
}

func (r *originalRepository) Delete(ctx context.Context, protectedId string) error {
	if err := r.store.Delete(protectedId, Original{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return fmt.Errorf("original %s not found", protectedId)
		}
		return fmt.Errorf("failed to delete original: %w", err)
	}
	return nil
}

// Original represents a custody record in the database
type Original struct {
	ProtectedId    string `badgerhold:"key"`
	Kind           uint8
	SourceContract string `badgerholdIndex:"SourceContract"`
	SourceId       string
	Quantity       uint64
	RecordedOwner  string
	Tier           uint8
	ArbitratorId   string
	CreatedAt      int64
}

func toDBOriginal(original domain.Original) Original {
	return Original{
		ProtectedId:    original.ProtectedId,
		Kind:           uint8(original.Asset.Kind),
		SourceContract: original.Asset.SourceContract,
		SourceId:       original.Asset.SourceId,
		Quantity:       original.Asset.Quantity,
		RecordedOwner:  original.RecordedOwner,
		Tier:           uint8(original.Tier),
		ArbitratorId:   original.ArbitratorId,
		CreatedAt:      original.CreatedAt,
	}
}

func toDomainOriginal(record Original) domain.Original {
	return domain.Original{
		ProtectedId: record.ProtectedId,
		Asset: domain.Asset{
			Kind:           domain.AssetKind(record.Kind),
			SourceContract: record.SourceContract,
			SourceId:       record.SourceId,
			Quantity:       record.Quantity,
		},
		RecordedOwner: record.RecordedOwner,
		Tier:          domain.Tier(record.Tier),
		ArbitratorId:  record.ArbitratorId,
		CreatedAt:     record.CreatedAt,
	}
}
