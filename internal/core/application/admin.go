package application

import (
	"context"
	"fmt"
	"time"

	"github.com/custodix/custodiad/internal/core/domain"
	"github.com/custodix/custodiad/internal/core/ports"
	"github.com/custodix/custodiad/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type AdminService interface {
	GetSettings(ctx context.Context) (*domain.Settings, error)
	UpdateSettings(ctx context.Context, settings domain.Settings) error
	LoadEvidenceTemplate(
		ctx context.Context, requestType domain.RequestType, template string,
	) error
	ListProtections(ctx context.Context) ([]domain.Original, error)
	TokenURI(ctx context.Context, tokenId string) (string, error)
	// RecoverStrayTokens releases fungible assets accidentally sent to the
	// protocol outside any protection. It refuses to touch a contract that
	// backs a live custody record.
	RecoverStrayTokens(ctx context.Context, contract string, amount uint64, dest string) error
}

type adminService struct {
	repoManager ports.RepoManager
	registry    ports.SuccessionRegistry
	bank        ports.AssetBank
}

func NewAdminService(
	repoManager ports.RepoManager, registry ports.SuccessionRegistry, bank ports.AssetBank,
) AdminService {
	return &adminService{
		repoManager: repoManager,
		registry:    registry,
		bank:        bank,
	}
}

func (a *adminService) GetSettings(ctx context.Context) (*domain.Settings, error) {
	return a.repoManager.Settings().Get(ctx)
}

func (a *adminService) UpdateSettings(ctx context.Context, settings domain.Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	settings.UpdatedAt = time.Now()
	return a.repoManager.Settings().Upsert(ctx, settings)
}

func (a *adminService) LoadEvidenceTemplate(
	ctx context.Context, requestType domain.RequestType, template string,
) error {
	settings, err := a.repoManager.Settings().Get(ctx)
	if err != nil {
		return err
	}
	if settings == nil {
		defaults := domain.DefaultSettings()
		settings = &defaults
	}
	if err := settings.SetEvidenceTemplate(requestType, template); err != nil {
		return err
	}
	settings.UpdatedAt = time.Now()
	if err := a.repoManager.Settings().Upsert(ctx, *settings); err != nil {
		return err
	}

	if err := a.registry.NotifyEvidenceTemplateUpdated(
		ctx, int(requestType), template,
	); err != nil {
		// The registry notification is best effort, the template is already
		// the source of truth here.
		log.WithError(err).Warn("failed to notify registry of evidence template update")
	}
	return nil
}

func (a *adminService) ListProtections(ctx context.Context) ([]domain.Original, error) {
	return a.repoManager.Originals().GetAll(ctx)
}

func (a *adminService) TokenURI(ctx context.Context, tokenId string) (string, error) {
	original, err := a.repoManager.Originals().Get(ctx, tokenId)
	if err != nil {
		return "", err
	}
	if original == nil {
		return "", errors.TOKEN_NOT_FOUND.New("no custody record for token %s", tokenId).
			WithMetadata(errors.TokenMetadata{TokenId: tokenId})
	}

	settings, err := a.repoManager.Settings().Get(ctx)
	if err != nil {
		return "", err
	}
	baseURI := ""
	if settings != nil {
		baseURI = settings.BaseURI
	}

	switch original.Asset.Kind {
	case domain.AssetKindFungible:
		return fmt.Sprintf("%s%s", baseURI, original.Asset.SourceContract), nil
	default:
		return fmt.Sprintf(
			"%s%s/%s", baseURI, original.Asset.SourceContract, original.Asset.SourceId,
		), nil
	}
}

func (a *adminService) RecoverStrayTokens(
	ctx context.Context, contract string, amount uint64, dest string,
) error {
	if amount == 0 {
		return errors.INVALID_ASSET.New("recovery amount must be positive")
	}
	registered, err := a.registry.IsRegistered(ctx, dest)
	if err != nil {
		return err
	}
	if !registered {
		return errors.UNREGISTERED_ADDRESS.New("address %s is not registered", dest).
			WithMetadata(errors.AddressMetadata{Address: dest})
	}

	backing, err := a.repoManager.Originals().GetByContract(ctx, contract)
	if err != nil {
		return err
	}
	if len(backing) > 0 {
		return errors.STRAY_RECOVERY_FORBIDDEN.New(
			"contract %s backs %d custody records", contract, len(backing),
		).WithMetadata(errors.StrayRecoveryMetadata{Contract: contract, Amount: amount})
	}

	balance, err := a.bank.CustodyTokenBalance(ctx, contract)
	if err != nil {
		return err
	}
	if balance < amount {
		return errors.STRAY_RECOVERY_FORBIDDEN.New(
			"custody holds %d of %s, cannot recover %d", balance, contract, amount,
		).WithMetadata(errors.StrayRecoveryMetadata{Contract: contract, Amount: amount})
	}

	if err := a.bank.ReleaseTokens(ctx, contract, amount, dest); err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"contract": contract,
		"amount":   amount,
		"dest":     dest,
	}).Info("stray tokens recovered")
	return nil
}
