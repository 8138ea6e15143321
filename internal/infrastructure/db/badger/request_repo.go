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

const requestStoreDir = "requests"

type requestRepository struct {
	store *badgerhold.Store
}

func NewRequestRepository(config ...interface{}) (domain.RequestRepository, error) {
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
		dir = filepath.Join(baseDir, requestStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open request store: %s", err)
	}

	return &requestRepository{store}, nil
}

func (r *requestRepository) Close() {
	// nolint:all
	r.store.Close()
}

func (r *requestRepository) Upsert(ctx context.Context, request domain.Request) error {
	// One request per token: the token id is the storage key, so a new
	// request for a token replaces the resolved one and the token-id lookup
	// never returns more than one row.
	record := toDBRequest(request)
	if err := r.store.Upsert(record.SubjectTokenId, record); err != nil {
		return fmt.Errorf("failed to upsert request: %w", err)
	}
	return nil
}

func (r *requestRepository) Get(ctx context.Context, id string) (*domain.Request, error) {
	var record Request
	if err := r.store.FindOne(&record, badgerhold.Where("Id").Eq(id)); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	request := toDomainRequest(record)
	return &request, nil
}

func (r *requestRepository) GetByTokenId(
	ctx context.Context, tokenId string,
) (*domain.Request, error) {
	var record Request
	if err := r.store.Get(tokenId, &record); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get request by token id: %w", err)
	}
	request := toDomainRequest(record)
	return &request, nil
}

func (r *requestRepository) GetByDisputeHandle(
	ctx context.Context, disputeHandle string,
) (*domain.Request, error) {
	if disputeHandle == "" {
		return nil, nil
	}
	var record Request
	query := badgerhold.Where("DisputeHandle").Eq(disputeHandle)
	if err := r.store.FindOne(&record, query); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get request by dispute handle: %w", err)
	}
	request := toDomainRequest(record)
	return &request, nil
}

func (r *requestRepository) GetExpiredInitial(
	ctx context.Context, before int64,
) ([]domain.Request, error) {
	var records []Request
	query := badgerhold.Where("Status").Eq(uint8(domain.RequestStatusInitial)).
		And("TimeoutAt").Gt(int64(0)).
		And("TimeoutAt").Le(before)
	if err := r.store.Find(&records, query); err != nil {
		return nil, fmt.Errorf("failed to list expired requests: %w", err)
	}
	requests := make([]domain.Request, 0, len(records))
	for _, record := range records {
		requests = append(requests, toDomainRequest(record))
	}
	return requests, nil
}

func (r *requestRepository) DeleteByTokenId(ctx context.Context, tokenId string) error {
	if err := r.store.Delete(tokenId, Request{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to delete request: %w", err)
	}
	return nil
}

// Request represents a request in the database, keyed by subject token id.
type Request struct {
	SubjectTokenId   string `badgerhold:"key"`
	Id               string `badgerholdIndex:"Id"`
	Type             uint8
	ProposedNewOwner string
	Status           uint8
	TimeoutAt        int64
	ArbitratorId     string
	ArbitratorConfig []byte
	DisputeHandle    string `badgerholdIndex:"DisputeHandle"`
	EvidenceTemplate string
	CreatedAt        int64
	ResolvedAt       int64
}

func toDBRequest(request domain.Request) Request {
	return Request{
		SubjectTokenId:   request.SubjectTokenId,
		Id:               request.Id,
		Type:             uint8(request.Type),
		ProposedNewOwner: request.ProposedNewOwner,
		Status:           uint8(request.Status),
		TimeoutAt:        request.TimeoutAt,
		ArbitratorId:     request.ArbitratorId,
		ArbitratorConfig: request.ArbitratorConfig,
		DisputeHandle:    request.DisputeHandle,
		EvidenceTemplate: request.EvidenceTemplate,
		CreatedAt:        request.CreatedAt,
		ResolvedAt:       request.ResolvedAt,
	}
}

func toDomainRequest(record Request) domain.Request {
	return domain.Request{
		Id:               record.Id,
		Type:             domain.RequestType(record.Type),
		SubjectTokenId:   record.SubjectTokenId,
		ProposedNewOwner: record.ProposedNewOwner,
		Status:           domain.RequestStatus(record.Status),
		TimeoutAt:        record.TimeoutAt,
		ArbitratorId:     record.ArbitratorId,
		ArbitratorConfig: record.ArbitratorConfig,
		DisputeHandle:    record.DisputeHandle,
		EvidenceTemplate: record.EvidenceTemplate,
		CreatedAt:        record.CreatedAt,
		ResolvedAt:       record.ResolvedAt,
	}
}
