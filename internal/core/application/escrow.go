package application

import (
	"context"

	"github.com/custodix/custodiad/internal/core/domain"
	"github.com/custodix/custodiad/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// depositAsset pulls the underlying asset into custody. The acceptance gate
// is open strictly for the duration of the call: closed on every exit path,
// so the protocol never silently accepts unsolicited transfers.
func (s *service) depositAsset(
	ctx context.Context, protectedId string, asset domain.Asset, from string,
) error {
	gates := s.liveStore.DepositGates()
	if err := gates.Open(ctx, protectedId); err != nil {
		return errors.DEPOSIT_GATE_BUSY.Wrap(err).
			WithMetadata(errors.TokenMetadata{TokenId: protectedId})
	}
	defer func() {
		if err := gates.Close(ctx, protectedId); err != nil {
			log.WithError(err).Warnf("failed to close deposit gate for %s", protectedId)
		}
	}()

	var err error
	switch asset.Kind {
	case domain.AssetKindNonFungibleUnique:
		err = s.bank.DepositNFT(ctx, asset.SourceContract, asset.SourceId, from)
	case domain.AssetKindNonFungibleMultiple:
		err = s.bank.DepositNFTUnits(
			ctx, asset.SourceContract, asset.SourceId, asset.Quantity, from,
		)
	case domain.AssetKindFungible:
		err = s.bank.DepositTokens(ctx, asset.SourceContract, asset.Quantity, from)
	default:
		err = errors.INVALID_ASSET.New("unknown asset kind %d", asset.Kind)
	}
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"token": protectedId,
		"kind":  asset.Kind.String(),
		"from":  from,
	}).Debug("asset taken into custody")
	return nil
}

// releaseAsset pushes the underlying asset out of custody per its kind.
func (s *service) releaseAsset(ctx context.Context, asset domain.Asset, to string) error {
	switch asset.Kind {
	case domain.AssetKindNonFungibleUnique:
		return s.bank.ReleaseNFT(ctx, asset.SourceContract, asset.SourceId, to)
	case domain.AssetKindNonFungibleMultiple:
		return s.bank.ReleaseNFTUnits(ctx, asset.SourceContract, asset.SourceId, asset.Quantity, to)
	case domain.AssetKindFungible:
		return s.bank.ReleaseTokens(ctx, asset.SourceContract, asset.Quantity, to)
	default:
		return errors.INVALID_ASSET.New("unknown asset kind %d", asset.Kind)
	}
}

// releaseAndForget unwraps a protected token: the custody record, the
// request bound to the token and the token itself are deleted before the
// asset leaves custody, so a replayed unwrap fails on the missing record
// and can never double-release. If any step after the first delete fails,
// the already-deleted records are restored: the release never happened, so
// putting them back keeps the double-release guarantee and lets the caller
// retry the unwrap.
func (s *service) releaseAndForget(
	ctx context.Context, original *domain.Original, dest string,
) error {
	if err := s.checkRegistered(ctx, dest); err != nil {
		return err
	}

	// Snapshot the records for compensation before touching anything.
	token, err := s.getToken(ctx, original.ProtectedId)
	if err != nil {
		return err
	}
	request, err := s.repoManager.Requests().GetByTokenId(ctx, original.ProtectedId)
	if err != nil {
		return errors.INTERNAL_ERROR.Wrap(err)
	}

	if err := s.repoManager.Requests().DeleteByTokenId(ctx, original.ProtectedId); err != nil {
		return errors.INTERNAL_ERROR.Wrap(err)
	}
	if err := s.repoManager.Originals().Delete(ctx, original.ProtectedId); err != nil {
		s.restoreProtection(ctx, nil, nil, request)
		return errors.INTERNAL_ERROR.Wrap(err)
	}
	if err := s.repoManager.Tokens().Delete(ctx, original.ProtectedId); err != nil {
		s.restoreProtection(ctx, original, nil, request)
		return errors.INTERNAL_ERROR.Wrap(err)
	}

	if err := s.releaseAsset(ctx, original.Asset, dest); err != nil {
		s.restoreProtection(ctx, original, token, request)
		return err
	}

	log.WithFields(log.Fields{
		"token": original.ProtectedId,
		"kind":  original.Asset.Kind.String(),
		"dest":  dest,
	}).Info("protected token unwrapped, asset released from custody")
	return nil
}

// restoreProtection puts deleted unwrap records back after a failed release.
// Restore failures are logged loudly: they mean the ledger lost a record for
// an asset still sitting in custody.
func (s *service) restoreProtection(
	ctx context.Context, original *domain.Original, token *domain.ProtectedToken,
	request *domain.Request,
) {
	if original != nil {
		if err := s.repoManager.Originals().Add(ctx, *original); err != nil {
			log.WithError(err).Errorf(
				"failed to restore custody record for %s after aborted unwrap",
				original.ProtectedId,
			)
		}
	}
	if token != nil {
		if err := s.repoManager.Tokens().Add(ctx, *token); err != nil {
			log.WithError(err).Errorf(
				"failed to restore protected token %s after aborted unwrap", token.Id,
			)
		}
	}
	if request != nil {
		if err := s.repoManager.Requests().Upsert(ctx, *request); err != nil {
			log.WithError(err).Errorf(
				"failed to restore request %s after aborted unwrap", request.Id,
			)
		}
	}
}
