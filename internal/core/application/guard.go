package application

import (
	"context"
	"time"

	"github.com/custodix/custodiad/internal/core/domain"
	"github.com/custodix/custodiad/pkg/errors"
)

// resolveSuccession walks the identity-succession chain from addr to its
// final link. The registry guarantees the chain is acyclic; the walk is
// still bounded so a misbehaving registry cannot stall a call.
func (s *service) resolveSuccession(ctx context.Context, addr string) (string, error) {
	current := addr
	for i := 0; i < s.maxSuccessionDepth; i++ {
		hasSuccessor, err := s.registry.HasSuccessor(ctx, current)
		if err != nil {
			return "", errors.INTERNAL_ERROR.Wrap(err)
		}
		if !hasSuccessor {
			return current, nil
		}
		successor, err := s.registry.SuccessorOf(ctx, current)
		if err != nil {
			return "", errors.INTERNAL_ERROR.Wrap(err)
		}
		current = successor
	}
	return "", errors.SUCCESSION_TOO_DEEP.New(
		"succession chain from %s exceeds %d links", addr, s.maxSuccessionDepth,
	).WithMetadata(errors.SuccessionMetadata{
		StartAddress: addr,
		MaxDepth:     s.maxSuccessionDepth,
	})
}

// isAuthorizedForToken reports whether caller may act on the protected
// token. A caller superseded by a successor is never authorized regardless
// of raw holdership or approval; conversely a registered successor of the
// holder or of the approved operator is authorized without explicit
// approval.
func (s *service) isAuthorizedForToken(
	ctx context.Context, caller string, token *domain.ProtectedToken,
) (bool, error) {
	superseded, err := s.registry.HasSuccessor(ctx, caller)
	if err != nil {
		return false, errors.INTERNAL_ERROR.Wrap(err)
	}
	if superseded {
		return false, nil
	}

	effectiveHolder, err := s.resolveSuccession(ctx, token.Holder)
	if err != nil {
		return false, err
	}
	if caller == effectiveHolder {
		return true, nil
	}

	if token.Approved == "" {
		return false, nil
	}
	effectiveOperator, err := s.resolveSuccession(ctx, token.Approved)
	if err != nil {
		return false, err
	}
	return caller == effectiveOperator, nil
}

func (s *service) checkAuthorized(
	ctx context.Context, caller string, token *domain.ProtectedToken,
) error {
	authorized, err := s.isAuthorizedForToken(ctx, caller, token)
	if err != nil {
		return err
	}
	if !authorized {
		return errors.NOT_AUTHORIZED.New(
			"%s is neither effective holder nor approved operator of token %s",
			caller, token.Id,
		).WithMetadata(errors.AddressMetadata{Address: caller})
	}
	return nil
}

func (s *service) checkRegistered(ctx context.Context, addr string) error {
	registered, err := s.registry.IsRegistered(ctx, addr)
	if err != nil {
		return errors.INTERNAL_ERROR.Wrap(err)
	}
	if !registered {
		return errors.UNREGISTERED_ADDRESS.New("address %s is not registered", addr).
			WithMetadata(errors.AddressMetadata{Address: addr})
	}
	return nil
}

// checkTransferable blocks any movement of a protected token while a
// request for it is disputed, or unanswered past its timeout.
func (s *service) checkTransferable(ctx context.Context, tokenId string, now time.Time) error {
	request, err := s.repoManager.Requests().GetByTokenId(ctx, tokenId)
	if err != nil {
		return errors.INTERNAL_ERROR.Wrap(err)
	}
	if request == nil {
		return nil
	}
	if request.BlocksTransfer(now) {
		return errors.TRANSFER_LOCKED.New(
			"token %s has an unresolved %s request", tokenId, request.Type,
		).WithMetadata(errors.RequestMetadata{
			RequestId: request.Id,
			TokenId:   tokenId,
		})
	}
	return nil
}
