package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodix/custodiad/internal/core/domain"
	"github.com/custodix/custodiad/internal/core/ports"
	"github.com/custodix/custodiad/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Service is the wrap-and-escrow protocol surface. Calls are serialized:
// every state-changing operation runs to completion before the next starts,
// and every call reads and writes persisted state only. A request can stay
// Initial or Disputed across arbitrarily many calls while waiting for an
// answer, a timeout or an external ruling.
type Service interface {
	Protect(
		ctx context.Context, caller string, asset domain.Asset, tier domain.Tier,
		arbitratorId string, payment uint64,
	) (string, error)
	Transfer(ctx context.Context, caller, tokenId, dest string) error
	Approve(ctx context.Context, caller, tokenId, operator string) error
	Burn(ctx context.Context, caller, tokenId, dest string, payment uint64) error
	AskOwnershipAdjustment(
		ctx context.Context, caller, tokenId, newOwner, arbitratorId string,
	) error
	AnswerOwnershipAdjustment(
		ctx context.Context, caller, tokenId string, accept bool, payment uint64,
	) error
	AskOwnershipAdjustmentArbitrate(
		ctx context.Context, caller, tokenId string, payment uint64,
	) error
	AskOwnershipRestoreArbitrate(
		ctx context.Context, caller, tokenId string, payment uint64,
	) error
	ApplyRuling(ctx context.Context, disputeHandle string) error
	GetProtection(ctx context.Context, tokenId string) (*ProtectionDetails, error)
	RecognizedOwner(ctx context.Context, tokenId string) (string, error)
	Stop()
}

type service struct {
	repoManager ports.RepoManager
	registry    ports.SuccessionRegistry
	arbitrators ports.ArbitratorDirectory
	coupons     ports.CouponService
	bank        ports.AssetBank
	liveStore   ports.LiveStore

	answerTimeout      time.Duration
	maxSuccessionDepth int

	// One state-changing call at a time, matching the platform model the
	// protocol assumes.
	mu sync.Mutex
}

func NewService(
	repoManager ports.RepoManager, registry ports.SuccessionRegistry,
	arbitrators ports.ArbitratorDirectory, coupons ports.CouponService,
	bank ports.AssetBank, liveStore ports.LiveStore,
	answerTimeout time.Duration, maxSuccessionDepth int,
) (Service, error) {
	if repoManager == nil || registry == nil || arbitrators == nil ||
		coupons == nil || bank == nil || liveStore == nil {
		return nil, fmt.Errorf("missing service dependencies")
	}
	if answerTimeout <= 0 {
		answerTimeout = domain.AnswerTimeout
	}
	if maxSuccessionDepth <= 0 {
		maxSuccessionDepth = 32
	}
	return &service{
		repoManager:        repoManager,
		registry:           registry,
		arbitrators:        arbitrators,
		coupons:            coupons,
		bank:               bank,
		liveStore:          liveStore,
		answerTimeout:      answerTimeout,
		maxSuccessionDepth: maxSuccessionDepth,
	}, nil
}

func (s *service) Stop() {
	s.repoManager.Close()
}

func (s *service) Protect(
	ctx context.Context, caller string, asset domain.Asset, tier domain.Tier,
	arbitratorId string, payment uint64,
) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := asset.Validate(); err != nil {
		return "", errors.INVALID_ASSET.Wrap(err)
	}
	if err := s.checkRegistered(ctx, caller); err != nil {
		return "", err
	}

	settings, err := s.settings(ctx)
	if err != nil {
		return "", err
	}

	if tier == domain.TierUltra && settings.MinUltraReputation > 0 {
		reputation, err := s.registry.ReputationOf(ctx, caller)
		if err != nil {
			return "", errors.INTERNAL_ERROR.Wrap(err)
		}
		if reputation < settings.MinUltraReputation {
			return "", errors.REPUTATION_TOO_LOW.New(
				"ultra tier requires reputation %d, %s has %d",
				settings.MinUltraReputation, caller, reputation,
			).WithMetadata(errors.ReputationMetadata{
				Address:  caller,
				Required: settings.MinUltraReputation,
				Got:      reputation,
			})
		}
	}

	// Validate the arbitrator binding up front so a token is never minted
	// with an arbitrator that cannot be resolved later.
	if _, _, err := s.arbitrators.ArbitratorFor(ctx, arbitratorId); err != nil {
		return "", errors.ARBITRATOR_NOT_FOUND.Wrap(err)
	}

	if err := s.settleProtectionFee(ctx, caller, settings.ProtectFee(tier), payment); err != nil {
		return "", err
	}

	original := domain.NewOriginal(asset, tier, caller, arbitratorId)
	token := domain.NewProtectedToken(original.ProtectedId, caller)

	if err := s.repoManager.Originals().Add(ctx, original); err != nil {
		return "", errors.INTERNAL_ERROR.Wrap(err)
	}
	if err := s.repoManager.Tokens().Add(ctx, token); err != nil {
		// nolint:errcheck
		s.repoManager.Originals().Delete(ctx, original.ProtectedId)
		return "", errors.INTERNAL_ERROR.Wrap(err)
	}

	if err := s.depositAsset(ctx, original.ProtectedId, asset, caller); err != nil {
		// nolint:errcheck
		s.repoManager.Tokens().Delete(ctx, original.ProtectedId)
		// nolint:errcheck
		s.repoManager.Originals().Delete(ctx, original.ProtectedId)
		return "", err
	}

	log.WithFields(log.Fields{
		"token": original.ProtectedId,
		"tier":  tier.String(),
		"kind":  asset.Kind.String(),
		"owner": caller,
	}).Info("asset protected")
	return original.ProtectedId, nil
}

func (s *service) Transfer(ctx context.Context, caller, tokenId, dest string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, err := s.getToken(ctx, tokenId)
	if err != nil {
		return err
	}
	if dest == "" {
		return errors.UNREGISTERED_ADDRESS.New("missing destination")
	}
	if err := s.checkRegistered(ctx, dest); err != nil {
		return err
	}
	if err := s.checkAuthorized(ctx, caller, token); err != nil {
		return err
	}
	if err := s.checkTransferable(ctx, tokenId, time.Now()); err != nil {
		return err
	}

	token.TransferTo(dest)
	if err := s.repoManager.Tokens().Update(ctx, *token); err != nil {
		return errors.INTERNAL_ERROR.Wrap(err)
	}

	log.WithFields(log.Fields{
		"token": tokenId,
		"from":  caller,
		"dest":  dest,
	}).Debug("protected token transferred")
	return nil
}

func (s *service) Approve(ctx context.Context, caller, tokenId, operator string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, err := s.getToken(ctx, tokenId)
	if err != nil {
		return err
	}
	if err := s.checkAuthorized(ctx, caller, token); err != nil {
		return err
	}
	if operator != "" {
		if err := s.checkRegistered(ctx, operator); err != nil {
			return err
		}
	}

	token.Approved = operator
	if err := s.repoManager.Tokens().Update(ctx, *token); err != nil {
		return errors.INTERNAL_ERROR.Wrap(err)
	}
	return nil
}

func (s *service) Burn(
	ctx context.Context, caller, tokenId, dest string, payment uint64,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, original, err := s.getProtected(ctx, tokenId)
	if err != nil {
		return err
	}
	if err := s.checkAuthorized(ctx, caller, token); err != nil {
		return err
	}

	// Unwrapping is reserved to the recognized original owner, resolved
	// through the succession chain.
	recognized, err := s.resolveSuccession(ctx, original.RecordedOwner)
	if err != nil {
		return err
	}
	if caller != recognized {
		return errors.NOT_AUTHORIZED.New(
			"%s is not the recognized owner of token %s", caller, tokenId,
		).WithMetadata(errors.AddressMetadata{Address: caller})
	}

	if err := s.checkNoLiveRequest(ctx, tokenId); err != nil {
		return err
	}

	if dest == "" {
		dest = caller
	}
	if err := s.checkRegistered(ctx, dest); err != nil {
		return err
	}

	if original.Tier == domain.TierBasic {
		return s.releaseAndForget(ctx, original, dest)
	}

	// Ultra tier: unwrapping is the highest-stakes action and always goes
	// through arbitration, even when requester and recognized owner agree.
	request, err := s.newRequest(ctx, domain.RequestTypeBurn, original, dest)
	if err != nil {
		return err
	}
	return s.escalate(ctx, request, payment)
}

func (s *service) AskOwnershipAdjustment(
	ctx context.Context, caller, tokenId, newOwner, arbitratorId string,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, original, err := s.getProtected(ctx, tokenId)
	if err != nil {
		return err
	}
	if err := s.checkAuthorized(ctx, caller, token); err != nil {
		return err
	}
	if err := s.checkNoLiveRequest(ctx, tokenId); err != nil {
		return err
	}

	recognized, err := s.resolveSuccession(ctx, original.RecordedOwner)
	if err != nil {
		return err
	}
	if caller == recognized {
		return errors.ALREADY_RECOGNIZED_OWNER.New(
			"%s already is the recognized owner of token %s", caller, tokenId,
		).WithMetadata(errors.AddressMetadata{Address: caller})
	}

	if original.Tier == domain.TierUltra {
		if newOwner == "" {
			return errors.UNREGISTERED_ADDRESS.New(
				"ultra tier requires an explicit destination",
			)
		}
		if newOwner == caller {
			return errors.SELF_TARGET_FORBIDDEN.New(
				"ultra tier destination must differ from the caller",
			).WithMetadata(errors.AddressMetadata{Address: caller})
		}
	}
	if newOwner == "" {
		newOwner = caller
	}
	if err := s.checkRegistered(ctx, newOwner); err != nil {
		return err
	}

	settings, err := s.settings(ctx)
	if err != nil {
		return err
	}
	arbitratorConfig, err := s.arbitratorConfig(ctx, arbitratorId)
	if err != nil {
		return err
	}

	request := domain.NewRequest(
		domain.RequestTypeOwnershipAdjustment, tokenId, newOwner, arbitratorId,
		arbitratorConfig, settings.EvidenceTemplate(domain.RequestTypeOwnershipAdjustment),
		s.answerTimeout,
	)
	if err := s.repoManager.Requests().Upsert(ctx, request); err != nil {
		return errors.INTERNAL_ERROR.Wrap(err)
	}

	log.WithFields(log.Fields{
		"token":   tokenId,
		"request": request.Id,
		"holder":  caller,
		"owner":   recognized,
	}).Info("ownership adjustment requested")
	return nil
}

func (s *service) AnswerOwnershipAdjustment(
	ctx context.Context, caller, tokenId string, accept bool, payment uint64,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, original, err := s.getProtected(ctx, tokenId)
	if err != nil {
		return err
	}
	request, err := s.getRequestOfType(ctx, tokenId, domain.RequestTypeOwnershipAdjustment)
	if err != nil {
		return err
	}
	if request.IsTerminal() {
		return terminalReplay(request)
	}
	if request.Status != domain.RequestStatusInitial {
		return wrongStatus(request)
	}

	recognized, err := s.resolveSuccession(ctx, original.RecordedOwner)
	if err != nil {
		return err
	}
	if caller != recognized {
		return errors.NOT_AUTHORIZED.New(
			"only the recognized owner may answer, got %s", caller,
		).WithMetadata(errors.AddressMetadata{Address: caller})
	}

	if !accept {
		if err := request.Reject(); err != nil {
			return errors.INTERNAL_ERROR.Wrap(err)
		}
		if err := s.repoManager.Requests().Upsert(ctx, *request); err != nil {
			return errors.INTERNAL_ERROR.Wrap(err)
		}
		log.WithFields(log.Fields{
			"token":   tokenId,
			"request": request.Id,
		}).Info("ownership adjustment rejected by owner")
		return nil
	}

	// Ultra tier never resolves cooperatively: an accepting owner only
	// unlocks the path to arbitration.
	if original.Tier == domain.TierUltra {
		return s.escalate(ctx, request, payment)
	}

	return s.applyAdjustmentAcceptance(ctx, original, request)
}

func (s *service) AskOwnershipAdjustmentArbitrate(
	ctx context.Context, caller, tokenId string, payment uint64,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, _, err := s.getProtected(ctx, tokenId)
	if err != nil {
		return err
	}
	if err := s.checkAuthorized(ctx, caller, token); err != nil {
		return err
	}
	request, err := s.getRequestOfType(ctx, tokenId, domain.RequestTypeOwnershipAdjustment)
	if err != nil {
		return err
	}
	if request.Status == domain.RequestStatusAccepted || request.ArbitrationFinal() {
		return terminalReplay(request)
	}
	if request.Status == domain.RequestStatusDisputed {
		return wrongStatus(request)
	}

	now := time.Now()
	if !request.CanEscalate(now) {
		return errors.TIMEOUT_NOT_ELAPSED.New(
			"request %s can be escalated after %d", request.Id, request.TimeoutAt,
		).WithMetadata(errors.TimeoutMetadata{
			TimeoutAt: request.TimeoutAt,
			Now:       now.Unix(),
		})
	}

	return s.escalate(ctx, request, payment)
}

func (s *service) AskOwnershipRestoreArbitrate(
	ctx context.Context, caller, tokenId string, payment uint64,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, original, err := s.getProtected(ctx, tokenId)
	if err != nil {
		return err
	}

	recognized, err := s.resolveSuccession(ctx, original.RecordedOwner)
	if err != nil {
		return err
	}
	if caller != recognized {
		return errors.NOT_AUTHORIZED.New(
			"only the recognized owner may ask restoration, got %s", caller,
		).WithMetadata(errors.AddressMetadata{Address: caller})
	}

	// Restoration exists for owners who lost the protected token. An owner
	// still controlling it has nothing to restore.
	authorized, err := s.isAuthorizedForToken(ctx, caller, token)
	if err != nil {
		return err
	}
	if authorized {
		return errors.ALREADY_RECOGNIZED_OWNER.New(
			"%s still controls token %s, nothing to restore", caller, tokenId,
		).WithMetadata(errors.AddressMetadata{Address: caller})
	}

	if err := s.checkNoLiveRequest(ctx, tokenId); err != nil {
		return err
	}

	// The holder is potentially adversarial, so there is no cooperative
	// path: the request goes straight to arbitration.
	request, err := s.newRequest(ctx, domain.RequestTypeOwnershipRestore, original, caller)
	if err != nil {
		return err
	}
	return s.escalate(ctx, request, payment)
}

func (s *service) ApplyRuling(ctx context.Context, disputeHandle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	request, err := s.repoManager.Requests().GetByDisputeHandle(ctx, disputeHandle)
	if err != nil {
		return errors.INTERNAL_ERROR.Wrap(err)
	}
	if request == nil {
		return errors.REQUEST_NOT_FOUND.New("no request for dispute handle %s", disputeHandle)
	}
	if request.IsTerminal() {
		return terminalReplay(request)
	}
	if request.Status != domain.RequestStatusDisputed {
		return wrongStatus(request)
	}

	arbitrator, _, err := s.arbitrators.ArbitratorFor(ctx, request.ArbitratorId)
	if err != nil {
		return errors.ARBITRATOR_NOT_FOUND.Wrap(err)
	}
	ruled, outcome, err := arbitrator.RulingFor(ctx, disputeHandle)
	if err != nil {
		return errors.INTERNAL_ERROR.Wrap(err)
	}
	if !ruled {
		return errors.RULING_NOT_READY.New(
			"arbitrator has not ruled on dispute %s yet", disputeHandle,
		).WithMetadata(errors.DisputeMetadata{DisputeHandle: disputeHandle})
	}

	original, err := s.getOriginal(ctx, request.SubjectTokenId)
	if err != nil {
		return err
	}

	if outcome != ports.RulingAccept {
		if err := request.Reject(); err != nil {
			return errors.INTERNAL_ERROR.Wrap(err)
		}
		if err := s.repoManager.Requests().Upsert(ctx, *request); err != nil {
			return errors.INTERNAL_ERROR.Wrap(err)
		}
		log.WithFields(log.Fields{
			"token":   request.SubjectTokenId,
			"request": request.Id,
			"dispute": disputeHandle,
			"outcome": outcome,
		}).Info("ruling applied, request rejected")
		return nil
	}

	switch request.Type {
	case domain.RequestTypeOwnershipAdjustment:
		return s.applyAdjustmentAcceptance(ctx, original, request)
	case domain.RequestTypeOwnershipRestore:
		return s.applyRestoreAcceptance(ctx, original, request)
	case domain.RequestTypeBurn:
		if err := request.Accept(); err != nil {
			return errors.INTERNAL_ERROR.Wrap(err)
		}
		if err := s.repoManager.Requests().Upsert(ctx, *request); err != nil {
			return errors.INTERNAL_ERROR.Wrap(err)
		}
		return s.releaseAndForget(ctx, original, request.ProposedNewOwner)
	default:
		return errors.INTERNAL_ERROR.New("unknown request type %d", request.Type)
	}
}

func (s *service) GetProtection(
	ctx context.Context, tokenId string,
) (*ProtectionDetails, error) {
	token, original, err := s.getProtected(ctx, tokenId)
	if err != nil {
		return nil, err
	}
	request, err := s.repoManager.Requests().GetByTokenId(ctx, tokenId)
	if err != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(err)
	}
	return &ProtectionDetails{
		Original: *original,
		Token:    *token,
		Request:  request,
	}, nil
}

func (s *service) RecognizedOwner(ctx context.Context, tokenId string) (string, error) {
	original, err := s.getOriginal(ctx, tokenId)
	if err != nil {
		return "", err
	}
	return s.resolveSuccession(ctx, original.RecordedOwner)
}

// applyAdjustmentAcceptance finalizes an accepted ownership adjustment:
// the proposed new owner becomes the recorded owner and, if the
// burn-on-resolution policy is on, the token is unwrapped to them in the
// same call.
func (s *service) applyAdjustmentAcceptance(
	ctx context.Context, original *domain.Original, request *domain.Request,
) error {
	if err := request.Accept(); err != nil {
		return errors.INTERNAL_ERROR.Wrap(err)
	}
	if err := s.repoManager.Originals().UpdateRecordedOwner(
		ctx, original.ProtectedId, request.ProposedNewOwner,
	); err != nil {
		return errors.INTERNAL_ERROR.Wrap(err)
	}
	original.RecordedOwner = request.ProposedNewOwner
	if err := s.repoManager.Requests().Upsert(ctx, *request); err != nil {
		return errors.INTERNAL_ERROR.Wrap(err)
	}

	log.WithFields(log.Fields{
		"token":    original.ProtectedId,
		"request":  request.Id,
		"newOwner": request.ProposedNewOwner,
	}).Info("ownership adjustment accepted")

	settings, err := s.settings(ctx)
	if err != nil {
		return err
	}
	if !settings.BurnOnResolution {
		return nil
	}
	return s.releaseAndForget(ctx, original, request.ProposedNewOwner)
}

// applyRestoreAcceptance hands the protected token back to the recognized
// owner and, policy permitting, unwraps it.
func (s *service) applyRestoreAcceptance(
	ctx context.Context, original *domain.Original, request *domain.Request,
) error {
	owner, err := s.resolveSuccession(ctx, original.RecordedOwner)
	if err != nil {
		return err
	}
	if err := s.checkRegistered(ctx, owner); err != nil {
		return err
	}

	token, err := s.getToken(ctx, original.ProtectedId)
	if err != nil {
		return err
	}

	if err := request.Accept(); err != nil {
		return errors.INTERNAL_ERROR.Wrap(err)
	}
	token.TransferTo(owner)
	if err := s.repoManager.Tokens().Update(ctx, *token); err != nil {
		return errors.INTERNAL_ERROR.Wrap(err)
	}
	if err := s.repoManager.Requests().Upsert(ctx, *request); err != nil {
		return errors.INTERNAL_ERROR.Wrap(err)
	}

	log.WithFields(log.Fields{
		"token":   original.ProtectedId,
		"request": request.Id,
		"owner":   owner,
	}).Info("protected token restored to recognized owner")

	settings, err := s.settings(ctx)
	if err != nil {
		return err
	}
	if !settings.BurnOnResolution {
		return nil
	}
	return s.releaseAndForget(ctx, original, owner)
}

// newRequest builds a request that is meant to be escalated right away, with
// the arbitrator binding inherited from the token's protection arbitrator.
func (s *service) newRequest(
	ctx context.Context, requestType domain.RequestType, original *domain.Original,
	proposedNewOwner string,
) (*domain.Request, error) {
	settings, err := s.settings(ctx)
	if err != nil {
		return nil, err
	}
	arbitratorConfig, err := s.arbitratorConfig(ctx, original.ArbitratorId)
	if err != nil {
		return nil, err
	}
	request := domain.NewRequest(
		requestType, original.ProtectedId, proposedNewOwner, original.ArbitratorId,
		arbitratorConfig, settings.EvidenceTemplate(requestType), 0,
	)
	return &request, nil
}

func (s *service) arbitratorConfig(ctx context.Context, arbitratorId string) ([]byte, error) {
	_, config, err := s.arbitrators.ArbitratorFor(ctx, arbitratorId)
	if err != nil {
		return nil, errors.ARBITRATOR_NOT_FOUND.Wrap(err)
	}
	return config, nil
}

// escalate opens a dispute with the bound arbitrator, forwarding the
// caller's payment and the evidence template bound at creation, and persists
// the Disputed request under the arbitrator's locally-stable handle.
func (s *service) escalate(
	ctx context.Context, request *domain.Request, payment uint64,
) error {
	arbitrator, _, err := s.arbitrators.ArbitratorFor(ctx, request.ArbitratorId)
	if err != nil {
		return errors.ARBITRATOR_NOT_FOUND.Wrap(err)
	}

	externalCaseId, err := arbitrator.CreateDispute(
		ctx, request.ArbitratorConfig, request.EvidenceTemplate,
		ports.NumRulingOutcomes, payment,
	)
	if err != nil {
		return errors.INTERNAL_ERROR.Wrap(err)
	}
	disputeHandle, err := arbitrator.MapExternalToLocal(ctx, externalCaseId)
	if err != nil {
		return errors.INTERNAL_ERROR.Wrap(err)
	}

	if err := request.Escalate(disputeHandle); err != nil {
		return errors.INTERNAL_ERROR.Wrap(err)
	}
	if err := s.repoManager.Requests().Upsert(ctx, *request); err != nil {
		return errors.INTERNAL_ERROR.Wrap(err)
	}

	log.WithFields(log.Fields{
		"token":   request.SubjectTokenId,
		"request": request.Id,
		"type":    request.Type.String(),
		"dispute": disputeHandle,
	}).Info("request escalated to arbitration")
	return nil
}

func (s *service) settleProtectionFee(
	ctx context.Context, caller string, fee, payment uint64,
) error {
	balance, err := s.coupons.BalanceOf(ctx, caller)
	if err != nil {
		return errors.INTERNAL_ERROR.Wrap(err)
	}
	if balance > 0 {
		if err := s.coupons.BurnOne(ctx, caller); err != nil {
			return errors.INTERNAL_ERROR.Wrap(err)
		}
		return nil
	}
	if payment < fee {
		return errors.INSUFFICIENT_FEE.New(
			"protection fee is %d, got %d", fee, payment,
		).WithMetadata(errors.FeeMetadata{Required: fee, Got: payment})
	}
	if payment == 0 {
		return nil
	}
	if err := s.registry.ProcessPayment(ctx, caller, payment); err != nil {
		return errors.INTERNAL_ERROR.Wrap(err)
	}
	return nil
}

func (s *service) settings(ctx context.Context) (*domain.Settings, error) {
	settings, err := s.repoManager.Settings().Get(ctx)
	if err != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(err)
	}
	if settings == nil {
		defaults := domain.DefaultSettings()
		return &defaults, nil
	}
	return settings, nil
}

func (s *service) getToken(ctx context.Context, tokenId string) (*domain.ProtectedToken, error) {
	token, err := s.repoManager.Tokens().Get(ctx, tokenId)
	if err != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(err)
	}
	if token == nil {
		return nil, errors.TOKEN_NOT_FOUND.New("no protected token %s", tokenId).
			WithMetadata(errors.TokenMetadata{TokenId: tokenId})
	}
	return token, nil
}

func (s *service) getOriginal(ctx context.Context, tokenId string) (*domain.Original, error) {
	original, err := s.repoManager.Originals().Get(ctx, tokenId)
	if err != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(err)
	}
	if original == nil {
		return nil, errors.TOKEN_NOT_FOUND.New("no custody record for token %s", tokenId).
			WithMetadata(errors.TokenMetadata{TokenId: tokenId})
	}
	return original, nil
}

func (s *service) getProtected(
	ctx context.Context, tokenId string,
) (*domain.ProtectedToken, *domain.Original, error) {
	token, err := s.getToken(ctx, tokenId)
	if err != nil {
		return nil, nil, err
	}
	original, err := s.getOriginal(ctx, tokenId)
	if err != nil {
		return nil, nil, err
	}
	return token, original, nil
}

func (s *service) getRequestOfType(
	ctx context.Context, tokenId string, requestType domain.RequestType,
) (*domain.Request, error) {
	request, err := s.repoManager.Requests().GetByTokenId(ctx, tokenId)
	if err != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(err)
	}
	if request == nil || request.Type != requestType {
		return nil, errors.REQUEST_NOT_FOUND.New(
			"no %s request for token %s", requestType, tokenId,
		).WithMetadata(errors.TokenMetadata{TokenId: tokenId})
	}
	return request, nil
}

func (s *service) checkNoLiveRequest(ctx context.Context, tokenId string) error {
	request, err := s.repoManager.Requests().GetByTokenId(ctx, tokenId)
	if err != nil {
		return errors.INTERNAL_ERROR.Wrap(err)
	}
	if request != nil && request.IsLive() {
		return errors.REQUEST_ALREADY_LIVE.New(
			"token %s already has a live %s request", tokenId, request.Type,
		).WithMetadata(errors.RequestMetadata{
			RequestId: request.Id,
			TokenId:   tokenId,
		})
	}
	return nil
}

func terminalReplay(request *domain.Request) error {
	return errors.TERMINAL_REPLAY.New(
		"request %s already resolved as %s", request.Id, request.Status,
	).WithMetadata(errors.RequestStatusMetadata{
		RequestId: request.Id,
		Status:    request.Status.String(),
	})
}

func wrongStatus(request *domain.Request) error {
	return errors.WRONG_REQUEST_STATUS.New(
		"request %s is %s", request.Id, request.Status,
	).WithMetadata(errors.RequestStatusMetadata{
		RequestId: request.Id,
		Status:    request.Status.String(),
	})
}
