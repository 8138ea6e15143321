package application_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/custodix/custodiad/internal/core/application"
	"github.com/custodix/custodiad/internal/core/domain"
	"github.com/custodix/custodiad/internal/core/ports"
	inmemoryarbitrator "github.com/custodix/custodiad/internal/infrastructure/arbitrator/inmemory"
	inmemorybank "github.com/custodix/custodiad/internal/infrastructure/assetbank/inmemory"
	inmemorycoupon "github.com/custodix/custodiad/internal/infrastructure/coupon/inmemory"
	"github.com/custodix/custodiad/internal/infrastructure/db"
	inmemorylivestore "github.com/custodix/custodiad/internal/infrastructure/live-store/inmemory"
	inmemorysuccession "github.com/custodix/custodiad/internal/infrastructure/succession/inmemory"
	"github.com/custodix/custodiad/pkg/errors"
	"github.com/stretchr/testify/require"
)

const (
	alice   = "alice"
	bob     = "bob"
	carol   = "carol"
	mallory = "mallory"

	nftContract   = "nft-contract"
	nftId         = "nft-1"
	unitContract  = "edition-contract"
	unitId        = "edition-1"
	tokenContract = "erc20-contract"

	arbitratorId = "arbitrator-1"
)

type testEnv struct {
	svc         application.Service
	admin       application.AdminService
	repoManager ports.RepoManager
	registry    *inmemorysuccession.Registry
	arbitrator  *inmemoryarbitrator.Arbitrator
	coupons     *inmemorycoupon.Service
	bank        *inmemorybank.Bank
}

func newTestEnv(t *testing.T, answerTimeout time.Duration) *testEnv {
	return newTestEnvWithBank(t, answerTimeout, nil)
}

// newTestEnvWithBank lets a test interpose on the asset bank, e.g. to make
// releases fail.
func newTestEnvWithBank(
	t *testing.T, answerTimeout time.Duration,
	wrapBank func(ports.AssetBank) ports.AssetBank,
) *testEnv {
	repoManager, err := db.NewService(db.ServiceConfig{
		DataStoreType:   "badger",
		DataStoreConfig: []interface{}{"", nil},
	})
	require.NoError(t, err)
	t.Cleanup(repoManager.Close)

	registry := inmemorysuccession.NewSuccessionRegistry()
	registry.Register(alice, bob, carol, mallory)

	arbitrator := inmemoryarbitrator.NewArbitrator()
	directory := inmemoryarbitrator.NewDirectory()
	directory.Add(arbitratorId, arbitrator, []byte("arbitrator-config"))

	coupons := inmemorycoupon.NewCouponService()
	bank := inmemorybank.NewAssetBank()
	bank.MintNFT(nftContract, nftId, alice)
	bank.MintTokens(tokenContract, 1000, alice)

	var bankPort ports.AssetBank = bank
	if wrapBank != nil {
		bankPort = wrapBank(bank)
	}

	svc, err := application.NewService(
		repoManager, registry, directory, coupons, bankPort,
		inmemorylivestore.NewLiveStore(), answerTimeout, 0,
	)
	require.NoError(t, err)

	return &testEnv{
		svc:         svc,
		admin:       application.NewAdminService(repoManager, registry, bankPort),
		repoManager: repoManager,
		registry:    registry,
		arbitrator:  arbitrator,
		coupons:     coupons,
		bank:        bank,
	}
}

func uniqueNFT() domain.Asset {
	return domain.Asset{
		Kind:           domain.AssetKindNonFungibleUnique,
		SourceContract: nftContract,
		SourceId:       nftId,
		Quantity:       1,
	}
}

func protect(t *testing.T, env *testEnv, tier domain.Tier) string {
	tokenId, err := env.svc.Protect(
		context.Background(), alice, uniqueNFT(), tier, arbitratorId, 0,
	)
	require.NoError(t, err)
	require.NotEmpty(t, tokenId)
	return tokenId
}

func requireCode[MT any](t *testing.T, err error, code errors.Code[MT]) {
	require.Error(t, err)
	typed, ok := err.(errors.Error)
	require.True(t, ok, "expected typed error, got %v", err)
	require.Equal(t, code.Name, typed.CodeName())
}

func TestProtectAndBurnRoundTrip(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 0)

	tokenId := protect(t, env, domain.TierBasic)

	// The underlying asset moved into custody.
	require.Equal(t, "", env.bank.NFTOwner(nftContract, nftId))

	details, err := env.svc.GetProtection(ctx, tokenId)
	require.NoError(t, err)
	require.Equal(t, alice, details.Token.Holder)
	require.Equal(t, alice, details.Original.RecordedOwner)
	require.Equal(t, domain.TierBasic, details.Original.Tier)
	require.Nil(t, details.Request)

	// Basic tier burns cooperatively when requester and recognized owner
	// coincide.
	require.NoError(t, env.svc.Burn(ctx, alice, tokenId, "", 0))
	require.Equal(t, alice, env.bank.NFTOwner(nftContract, nftId))

	// All records are gone, a replayed burn fails on the missing token.
	err = env.svc.Burn(ctx, alice, tokenId, "", 0)
	requireCode(t, err, errors.TOKEN_NOT_FOUND)
}

func TestProtectPreconditions(t *testing.T) {
	ctx := context.Background()

	t.Run("unregistered caller", func(t *testing.T) {
		env := newTestEnv(t, 0)
		env.bank.MintNFT(nftContract, "nft-2", "nobody")
		asset := uniqueNFT()
		asset.SourceId = "nft-2"
		_, err := env.svc.Protect(ctx, "nobody", asset, domain.TierBasic, arbitratorId, 0)
		requireCode(t, err, errors.UNREGISTERED_ADDRESS)
	})

	t.Run("invalid asset", func(t *testing.T) {
		env := newTestEnv(t, 0)
		asset := uniqueNFT()
		asset.Quantity = 3
		_, err := env.svc.Protect(ctx, alice, asset, domain.TierBasic, arbitratorId, 0)
		requireCode(t, err, errors.INVALID_ASSET)
	})

	t.Run("unknown arbitrator", func(t *testing.T) {
		env := newTestEnv(t, 0)
		_, err := env.svc.Protect(ctx, alice, uniqueNFT(), domain.TierBasic, "missing", 0)
		requireCode(t, err, errors.ARBITRATOR_NOT_FOUND)
	})

	t.Run("insufficient fee", func(t *testing.T) {
		env := newTestEnv(t, 0)
		require.NoError(t, env.admin.UpdateSettings(ctx, domain.Settings{
			BurnOnResolution: true,
			ProtectBasicFee:  10,
		}))
		_, err := env.svc.Protect(ctx, alice, uniqueNFT(), domain.TierBasic, arbitratorId, 5)
		requireCode(t, err, errors.INSUFFICIENT_FEE)
	})

	t.Run("coupon covers the fee", func(t *testing.T) {
		env := newTestEnv(t, 0)
		require.NoError(t, env.admin.UpdateSettings(ctx, domain.Settings{
			BurnOnResolution: true,
			ProtectBasicFee:  10,
		}))
		env.coupons.Credit(alice, 1)

		_, err := env.svc.Protect(ctx, alice, uniqueNFT(), domain.TierBasic, arbitratorId, 0)
		require.NoError(t, err)

		balance, err := env.coupons.BalanceOf(ctx, alice)
		require.NoError(t, err)
		require.Zero(t, balance)
		// No payment was forwarded to the registry.
		require.Zero(t, env.registry.PaymentsFrom(alice))
	})

	t.Run("fee payment forwarded to registry", func(t *testing.T) {
		env := newTestEnv(t, 0)
		require.NoError(t, env.admin.UpdateSettings(ctx, domain.Settings{
			BurnOnResolution: true,
			ProtectBasicFee:  10,
		}))
		_, err := env.svc.Protect(ctx, alice, uniqueNFT(), domain.TierBasic, arbitratorId, 10)
		require.NoError(t, err)
		require.Equal(t, uint64(10), env.registry.PaymentsFrom(alice))
	})

	t.Run("ultra tier reputation gate", func(t *testing.T) {
		env := newTestEnv(t, 0)
		require.NoError(t, env.admin.UpdateSettings(ctx, domain.Settings{
			BurnOnResolution:   true,
			MinUltraReputation: 50,
		}))
		env.registry.SetReputation(alice, 10)
		_, err := env.svc.Protect(ctx, alice, uniqueNFT(), domain.TierUltra, arbitratorId, 0)
		requireCode(t, err, errors.REPUTATION_TOO_LOW)

		env.registry.SetReputation(alice, 50)
		_, err = env.svc.Protect(ctx, alice, uniqueNFT(), domain.TierUltra, arbitratorId, 0)
		require.NoError(t, err)
	})
}

func TestTransferAndApprove(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 0)
	tokenId := protect(t, env, domain.TierBasic)

	t.Run("holder transfers", func(t *testing.T) {
		require.NoError(t, env.svc.Transfer(ctx, alice, tokenId, bob))
		details, err := env.svc.GetProtection(ctx, tokenId)
		require.NoError(t, err)
		require.Equal(t, bob, details.Token.Holder)
	})

	t.Run("former holder is no longer authorized", func(t *testing.T) {
		err := env.svc.Transfer(ctx, alice, tokenId, carol)
		requireCode(t, err, errors.NOT_AUTHORIZED)
	})

	t.Run("unregistered destination", func(t *testing.T) {
		err := env.svc.Transfer(ctx, bob, tokenId, "nobody")
		requireCode(t, err, errors.UNREGISTERED_ADDRESS)
	})

	t.Run("approved operator transfers and approval clears", func(t *testing.T) {
		require.NoError(t, env.svc.Approve(ctx, bob, tokenId, carol))
		require.NoError(t, env.svc.Transfer(ctx, carol, tokenId, carol))

		details, err := env.svc.GetProtection(ctx, tokenId)
		require.NoError(t, err)
		require.Equal(t, carol, details.Token.Holder)
		require.Empty(t, details.Token.Approved)

		// bob's old approval no longer exists for carol's token.
		err = env.svc.Transfer(ctx, bob, tokenId, bob)
		requireCode(t, err, errors.NOT_AUTHORIZED)
	})
}

func TestSuccession(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 0)
	tokenId := protect(t, env, domain.TierBasic)

	// carol succeeds alice: carol is now the effective holder, alice is
	// superseded and loses all authority.
	env.registry.SetSuccessor(alice, carol)

	err := env.svc.Transfer(ctx, alice, tokenId, bob)
	requireCode(t, err, errors.NOT_AUTHORIZED)

	require.NoError(t, env.svc.Transfer(ctx, carol, tokenId, bob))

	// The recognized owner follows the succession chain too.
	owner, err := env.svc.RecognizedOwner(ctx, tokenId)
	require.NoError(t, err)
	require.Equal(t, carol, owner)
}

func TestOwnershipAdjustmentCooperative(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*testEnv, string) {
		env := newTestEnv(t, 0)
		tokenId := protect(t, env, domain.TierBasic)
		require.NoError(t, env.svc.Transfer(ctx, alice, tokenId, bob))
		return env, tokenId
	}

	t.Run("recognized owner cannot ask", func(t *testing.T) {
		env := newTestEnv(t, 0)
		tokenId := protect(t, env, domain.TierBasic)
		err := env.svc.AskOwnershipAdjustment(ctx, alice, tokenId, "", arbitratorId)
		requireCode(t, err, errors.ALREADY_RECOGNIZED_OWNER)
	})

	t.Run("accept adjusts owner and unwraps", func(t *testing.T) {
		env, tokenId := setup(t)
		require.NoError(t, env.svc.AskOwnershipAdjustment(ctx, bob, tokenId, "", arbitratorId))

		// Only one live request per token.
		err := env.svc.AskOwnershipAdjustment(ctx, bob, tokenId, "", arbitratorId)
		requireCode(t, err, errors.REQUEST_ALREADY_LIVE)

		// Only the recognized owner may answer.
		err = env.svc.AnswerOwnershipAdjustment(ctx, bob, tokenId, true, 0)
		requireCode(t, err, errors.NOT_AUTHORIZED)

		require.NoError(t, env.svc.AnswerOwnershipAdjustment(ctx, alice, tokenId, true, 0))

		// Burn-on-resolution is on by default: the asset went straight to bob
		// and the protection is gone.
		require.Equal(t, bob, env.bank.NFTOwner(nftContract, nftId))
		_, err = env.svc.GetProtection(ctx, tokenId)
		requireCode(t, err, errors.TOKEN_NOT_FOUND)
	})

	t.Run("accept without burn-on-resolution keeps the token", func(t *testing.T) {
		env, tokenId := setup(t)
		require.NoError(t, env.admin.UpdateSettings(ctx, domain.Settings{
			BurnOnResolution: false,
		}))
		require.NoError(t, env.svc.AskOwnershipAdjustment(ctx, bob, tokenId, "", arbitratorId))
		require.NoError(t, env.svc.AnswerOwnershipAdjustment(ctx, alice, tokenId, true, 0))

		require.Equal(t, "", env.bank.NFTOwner(nftContract, nftId))
		details, err := env.svc.GetProtection(ctx, tokenId)
		require.NoError(t, err)
		require.Equal(t, bob, details.Original.RecordedOwner)
		require.Equal(t, domain.RequestStatusAccepted, details.Request.Status)

		// The accepted request is terminal, a replayed answer fails.
		err = env.svc.AnswerOwnershipAdjustment(ctx, bob, tokenId, true, 0)
		requireCode(t, err, errors.TERMINAL_REPLAY)
	})

	t.Run("reject keeps custody and allows escalation", func(t *testing.T) {
		env, tokenId := setup(t)
		require.NoError(t, env.svc.AskOwnershipAdjustment(ctx, bob, tokenId, "", arbitratorId))
		require.NoError(t, env.svc.AnswerOwnershipAdjustment(ctx, alice, tokenId, false, 0))

		require.Equal(t, "", env.bank.NFTOwner(nftContract, nftId))
		details, err := env.svc.GetProtection(ctx, tokenId)
		require.NoError(t, err)
		require.Equal(t, domain.RequestStatusRejected, details.Request.Status)

		// A cooperative rejection is not final: the holder forces arbitration.
		require.NoError(t, env.svc.AskOwnershipAdjustmentArbitrate(ctx, bob, tokenId, 0))
		details, err = env.svc.GetProtection(ctx, tokenId)
		require.NoError(t, err)
		require.Equal(t, domain.RequestStatusDisputed, details.Request.Status)
		require.NotEmpty(t, details.Request.DisputeHandle)
	})
}

func TestOwnershipAdjustmentArbitration(t *testing.T) {
	ctx := context.Background()

	disputed := func(t *testing.T) (*testEnv, string, string) {
		env := newTestEnv(t, 0)
		tokenId := protect(t, env, domain.TierBasic)
		require.NoError(t, env.svc.Transfer(ctx, alice, tokenId, bob))
		require.NoError(t, env.svc.AskOwnershipAdjustment(ctx, bob, tokenId, "", arbitratorId))
		require.NoError(t, env.svc.AnswerOwnershipAdjustment(ctx, alice, tokenId, false, 0))
		require.NoError(t, env.svc.AskOwnershipAdjustmentArbitrate(ctx, bob, tokenId, 0))

		details, err := env.svc.GetProtection(ctx, tokenId)
		require.NoError(t, err)
		return env, tokenId, details.Request.DisputeHandle
	}

	t.Run("ruling not ready", func(t *testing.T) {
		env, _, handle := disputed(t)
		err := env.svc.ApplyRuling(ctx, handle)
		requireCode(t, err, errors.RULING_NOT_READY)
		require.True(t, errors.IsClass(err, errors.ClassExternalNotReady))
	})

	t.Run("unknown dispute handle", func(t *testing.T) {
		env, _, _ := disputed(t)
		err := env.svc.ApplyRuling(ctx, "no-such-dispute")
		requireCode(t, err, errors.REQUEST_NOT_FOUND)
	})

	t.Run("accept ruling adjusts owner and unwraps", func(t *testing.T) {
		env, tokenId, handle := disputed(t)
		require.NoError(t, env.arbitrator.Rule(handle, ports.RulingAccept))
		require.NoError(t, env.svc.ApplyRuling(ctx, handle))

		require.Equal(t, bob, env.bank.NFTOwner(nftContract, nftId))
		_, err := env.svc.GetProtection(ctx, tokenId)
		requireCode(t, err, errors.TOKEN_NOT_FOUND)

		// The request record was unwrapped away together with the token.
		err = env.svc.ApplyRuling(ctx, handle)
		requireCode(t, err, errors.REQUEST_NOT_FOUND)
	})

	t.Run("reject ruling is final", func(t *testing.T) {
		env, tokenId, handle := disputed(t)
		require.NoError(t, env.arbitrator.Rule(handle, ports.RulingReject))
		require.NoError(t, env.svc.ApplyRuling(ctx, handle))

		// Nothing moved.
		require.Equal(t, "", env.bank.NFTOwner(nftContract, nftId))
		details, err := env.svc.GetProtection(ctx, tokenId)
		require.NoError(t, err)
		require.Equal(t, alice, details.Original.RecordedOwner)
		require.Equal(t, domain.RequestStatusRejected, details.Request.Status)
		require.True(t, details.Request.ArbitrationFinal())

		// An arbitration rejection cannot be escalated again.
		err = env.svc.AskOwnershipAdjustmentArbitrate(ctx, bob, tokenId, 0)
		requireCode(t, err, errors.TERMINAL_REPLAY)

		// Replaying the ruling is idempotent in effect.
		err = env.svc.ApplyRuling(ctx, handle)
		requireCode(t, err, errors.TERMINAL_REPLAY)
		require.True(t, errors.IsClass(err, errors.ClassTerminalReplay))
	})

	t.Run("refused ruling resolves against the requester", func(t *testing.T) {
		env, tokenId, handle := disputed(t)
		require.NoError(t, env.arbitrator.Rule(handle, ports.RulingRefused))
		require.NoError(t, env.svc.ApplyRuling(ctx, handle))

		details, err := env.svc.GetProtection(ctx, tokenId)
		require.NoError(t, err)
		require.Equal(t, domain.RequestStatusRejected, details.Request.Status)
		require.Equal(t, "", env.bank.NFTOwner(nftContract, nftId))
	})
}

func TestAnswerTimeout(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, time.Second)
	tokenId := protect(t, env, domain.TierBasic)
	require.NoError(t, env.svc.Transfer(ctx, alice, tokenId, bob))
	require.NoError(t, env.svc.AskOwnershipAdjustment(ctx, bob, tokenId, "", arbitratorId))

	// Before the timeout the owner still has the floor: no forced
	// arbitration, and the token moves freely.
	err := env.svc.AskOwnershipAdjustmentArbitrate(ctx, bob, tokenId, 0)
	requireCode(t, err, errors.TIMEOUT_NOT_ELAPSED)

	time.Sleep(1100 * time.Millisecond)

	// Past the timeout the unanswered request locks the token and unlocks
	// arbitration.
	err = env.svc.Transfer(ctx, bob, tokenId, carol)
	requireCode(t, err, errors.TRANSFER_LOCKED)

	require.NoError(t, env.svc.AskOwnershipAdjustmentArbitrate(ctx, bob, tokenId, 0))
	details, err := env.svc.GetProtection(ctx, tokenId)
	require.NoError(t, err)
	require.Equal(t, domain.RequestStatusDisputed, details.Request.Status)

	// A disputed token is locked for good until the ruling lands.
	err = env.svc.Transfer(ctx, bob, tokenId, carol)
	requireCode(t, err, errors.TRANSFER_LOCKED)
}

func TestUltraAdjustmentRules(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 0)
	tokenId := protect(t, env, domain.TierUltra)
	require.NoError(t, env.svc.Transfer(ctx, alice, tokenId, bob))

	t.Run("requires explicit destination", func(t *testing.T) {
		err := env.svc.AskOwnershipAdjustment(ctx, bob, tokenId, "", arbitratorId)
		requireCode(t, err, errors.UNREGISTERED_ADDRESS)
	})

	t.Run("destination must differ from caller", func(t *testing.T) {
		err := env.svc.AskOwnershipAdjustment(ctx, bob, tokenId, bob, arbitratorId)
		requireCode(t, err, errors.SELF_TARGET_FORBIDDEN)
	})

	t.Run("owner acceptance only unlocks arbitration", func(t *testing.T) {
		require.NoError(t, env.svc.AskOwnershipAdjustment(ctx, bob, tokenId, carol, arbitratorId))
		require.NoError(t, env.svc.AnswerOwnershipAdjustment(ctx, alice, tokenId, true, 0))

		details, err := env.svc.GetProtection(ctx, tokenId)
		require.NoError(t, err)
		require.Equal(t, domain.RequestStatusDisputed, details.Request.Status)
		// Still alice's record until the arbitrator says otherwise.
		require.Equal(t, alice, details.Original.RecordedOwner)
		require.Equal(t, "", env.bank.NFTOwner(nftContract, nftId))
	})
}

func TestUltraBurnAlwaysArbitrates(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 0)
	tokenId := protect(t, env, domain.TierUltra)

	require.NoError(t, env.svc.Burn(ctx, alice, tokenId, "", 0))

	// No release yet: the burn is pending arbitration even though requester
	// and recognized owner coincide.
	require.Equal(t, "", env.bank.NFTOwner(nftContract, nftId))
	details, err := env.svc.GetProtection(ctx, tokenId)
	require.NoError(t, err)
	require.Equal(t, domain.RequestTypeBurn, details.Request.Type)
	require.Equal(t, domain.RequestStatusDisputed, details.Request.Status)
	handle := details.Request.DisputeHandle

	t.Run("reject keeps custody", func(t *testing.T) {
		require.NoError(t, env.arbitrator.Rule(handle, ports.RulingReject))
		require.NoError(t, env.svc.ApplyRuling(ctx, handle))
		require.Equal(t, "", env.bank.NFTOwner(nftContract, nftId))

		details, err := env.svc.GetProtection(ctx, tokenId)
		require.NoError(t, err)
		require.Equal(t, domain.RequestStatusRejected, details.Request.Status)
	})

	t.Run("accepted burn releases to the requested destination", func(t *testing.T) {
		// A terminal request does not block a new one.
		require.NoError(t, env.svc.Burn(ctx, alice, tokenId, bob, 0))
		details, err := env.svc.GetProtection(ctx, tokenId)
		require.NoError(t, err)
		handle := details.Request.DisputeHandle

		require.NoError(t, env.arbitrator.Rule(handle, ports.RulingAccept))
		require.NoError(t, env.svc.ApplyRuling(ctx, handle))
		require.Equal(t, bob, env.bank.NFTOwner(nftContract, nftId))

		_, err = env.svc.GetProtection(ctx, tokenId)
		requireCode(t, err, errors.TOKEN_NOT_FOUND)
	})
}

func TestOwnershipRestore(t *testing.T) {
	ctx := context.Background()

	lost := func(t *testing.T) (*testEnv, string) {
		env := newTestEnv(t, 0)
		tokenId := protect(t, env, domain.TierBasic)
		require.NoError(t, env.svc.Transfer(ctx, alice, tokenId, mallory))
		return env, tokenId
	}

	t.Run("owner still holding has nothing to restore", func(t *testing.T) {
		env := newTestEnv(t, 0)
		tokenId := protect(t, env, domain.TierBasic)
		err := env.svc.AskOwnershipRestoreArbitrate(ctx, alice, tokenId, 0)
		requireCode(t, err, errors.ALREADY_RECOGNIZED_OWNER)
	})

	t.Run("only the recognized owner may ask", func(t *testing.T) {
		env, tokenId := lost(t)
		err := env.svc.AskOwnershipRestoreArbitrate(ctx, bob, tokenId, 0)
		requireCode(t, err, errors.NOT_AUTHORIZED)
	})

	t.Run("accepted restore returns the asset to the owner", func(t *testing.T) {
		env, tokenId := lost(t)
		require.NoError(t, env.svc.AskOwnershipRestoreArbitrate(ctx, alice, tokenId, 0))

		details, err := env.svc.GetProtection(ctx, tokenId)
		require.NoError(t, err)
		require.Equal(t, domain.RequestTypeOwnershipRestore, details.Request.Type)
		require.Equal(t, domain.RequestStatusDisputed, details.Request.Status)
		handle := details.Request.DisputeHandle

		require.NoError(t, env.arbitrator.Rule(handle, ports.RulingAccept))
		require.NoError(t, env.svc.ApplyRuling(ctx, handle))

		// Burn-on-resolution is on: restored and unwrapped in one go.
		require.Equal(t, alice, env.bank.NFTOwner(nftContract, nftId))
	})

	t.Run("rejected restore leaves the holder in place", func(t *testing.T) {
		env, tokenId := lost(t)
		require.NoError(t, env.svc.AskOwnershipRestoreArbitrate(ctx, alice, tokenId, 0))
		details, err := env.svc.GetProtection(ctx, tokenId)
		require.NoError(t, err)
		handle := details.Request.DisputeHandle

		require.NoError(t, env.arbitrator.Rule(handle, ports.RulingReject))
		require.NoError(t, env.svc.ApplyRuling(ctx, handle))

		details, err = env.svc.GetProtection(ctx, tokenId)
		require.NoError(t, err)
		require.Equal(t, mallory, details.Token.Holder)
		require.Equal(t, "", env.bank.NFTOwner(nftContract, nftId))
	})
}

func TestBurnPreconditions(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 0)
	tokenId := protect(t, env, domain.TierBasic)
	require.NoError(t, env.svc.Transfer(ctx, alice, tokenId, bob))

	// bob holds the token but alice is still the recognized owner: neither
	// can burn alone.
	err := env.svc.Burn(ctx, bob, tokenId, "", 0)
	requireCode(t, err, errors.NOT_AUTHORIZED)
	err = env.svc.Burn(ctx, alice, tokenId, "", 0)
	requireCode(t, err, errors.NOT_AUTHORIZED)

	// Once the adjustment goes through without unwrapping, bob is both
	// holder and recognized owner and may burn.
	require.NoError(t, env.admin.UpdateSettings(ctx, domain.Settings{
		BurnOnResolution: false,
	}))
	require.NoError(t, env.svc.AskOwnershipAdjustment(ctx, bob, tokenId, "", arbitratorId))
	require.NoError(t, env.svc.AnswerOwnershipAdjustment(ctx, alice, tokenId, true, 0))

	require.NoError(t, env.svc.Burn(ctx, bob, tokenId, "", 0))
	require.Equal(t, bob, env.bank.NFTOwner(nftContract, nftId))
}

// flakyBank fails a configured number of NFT releases before behaving
// normally again.
type flakyBank struct {
	ports.AssetBank
	failures int
}

func (b *flakyBank) ReleaseNFT(ctx context.Context, contract, id, to string) error {
	if b.failures > 0 {
		b.failures--
		return fmt.Errorf("bank unavailable")
	}
	return b.AssetBank.ReleaseNFT(ctx, contract, id, to)
}

func TestUnwrapSurvivesReleaseFailure(t *testing.T) {
	ctx := context.Background()
	flaky := &flakyBank{failures: 1}
	env := newTestEnvWithBank(t, 0, func(bank ports.AssetBank) ports.AssetBank {
		flaky.AssetBank = bank
		return flaky
	})
	tokenId := protect(t, env, domain.TierBasic)

	// The bank errors, the unwrap aborts, nothing is lost: the asset stays
	// in custody and every record is still in place.
	require.Error(t, env.svc.Burn(ctx, alice, tokenId, "", 0))
	require.Equal(t, "", env.bank.NFTOwner(nftContract, nftId))

	details, err := env.svc.GetProtection(ctx, tokenId)
	require.NoError(t, err)
	require.Equal(t, alice, details.Token.Holder)
	require.Equal(t, alice, details.Original.RecordedOwner)

	// Once the bank recovers, the retried unwrap goes through exactly once.
	require.NoError(t, env.svc.Burn(ctx, alice, tokenId, "", 0))
	require.Equal(t, alice, env.bank.NFTOwner(nftContract, nftId))
	_, err = env.svc.GetProtection(ctx, tokenId)
	requireCode(t, err, errors.TOKEN_NOT_FOUND)
}

func TestAcceptedAdjustmentSurvivesReleaseFailure(t *testing.T) {
	ctx := context.Background()
	flaky := &flakyBank{failures: 1}
	env := newTestEnvWithBank(t, 0, func(bank ports.AssetBank) ports.AssetBank {
		flaky.AssetBank = bank
		return flaky
	})
	tokenId := protect(t, env, domain.TierBasic)
	require.NoError(t, env.svc.Transfer(ctx, alice, tokenId, bob))
	require.NoError(t, env.svc.AskOwnershipAdjustment(ctx, bob, tokenId, "", arbitratorId))

	// The acceptance lands but the burn-on-resolution release fails: the
	// error surfaces, the accepted state and all records survive.
	require.Error(t, env.svc.AnswerOwnershipAdjustment(ctx, alice, tokenId, true, 0))
	require.Equal(t, "", env.bank.NFTOwner(nftContract, nftId))

	details, err := env.svc.GetProtection(ctx, tokenId)
	require.NoError(t, err)
	require.Equal(t, bob, details.Original.RecordedOwner)
	require.Equal(t, domain.RequestStatusAccepted, details.Request.Status)

	// bob is now both holder and recognized owner and retrieves the asset.
	require.NoError(t, env.svc.Burn(ctx, bob, tokenId, "", 0))
	require.Equal(t, bob, env.bank.NFTOwner(nftContract, nftId))
}

func TestMultiUnitAndFungibleEscrow(t *testing.T) {
	ctx := context.Background()

	t.Run("multi-unit nft round trip", func(t *testing.T) {
		env := newTestEnv(t, 0)
		env.bank.MintNFTUnits(unitContract, unitId, 10, alice)

		tokenId, err := env.svc.Protect(ctx, alice, domain.Asset{
			Kind:           domain.AssetKindNonFungibleMultiple,
			SourceContract: unitContract,
			SourceId:       unitId,
			Quantity:       7,
		}, domain.TierBasic, arbitratorId, 0)
		require.NoError(t, err)

		// Custody grew by the declared quantity, alice keeps the rest.
		require.Equal(t, uint64(7), env.bank.NFTUnitBalanceOf(unitContract, unitId, ""))
		require.Equal(t, uint64(3), env.bank.NFTUnitBalanceOf(unitContract, unitId, alice))

		require.NoError(t, env.svc.Burn(ctx, alice, tokenId, "", 0))
		require.Zero(t, env.bank.NFTUnitBalanceOf(unitContract, unitId, ""))
		require.Equal(t, uint64(10), env.bank.NFTUnitBalanceOf(unitContract, unitId, alice))
	})

	t.Run("fungible custody balance", func(t *testing.T) {
		env := newTestEnv(t, 0)

		tokenId, err := env.svc.Protect(ctx, alice, domain.Asset{
			Kind:           domain.AssetKindFungible,
			SourceContract: tokenContract,
			Quantity:       400,
		}, domain.TierBasic, arbitratorId, 0)
		require.NoError(t, err)

		custody, err := env.bank.CustodyTokenBalance(ctx, tokenContract)
		require.NoError(t, err)
		require.Equal(t, uint64(400), custody)
		require.Equal(t, uint64(600), env.bank.TokenBalanceOf(tokenContract, alice))

		require.NoError(t, env.svc.Burn(ctx, alice, tokenId, bob, 0))
		require.Equal(t, uint64(400), env.bank.TokenBalanceOf(tokenContract, bob))
		custody, err = env.bank.CustodyTokenBalance(ctx, tokenContract)
		require.NoError(t, err)
		require.Zero(t, custody)
	})
}
