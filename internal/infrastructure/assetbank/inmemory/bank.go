package inmemorybank

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodix/custodiad/internal/core/ports"
)

// Bank is an in-memory asset custodian for dev mode and tests. It tracks,
// per asset, which account holds it and how much of it sits in custody, and
// fails any release that exceeds the custody balance.
type Bank struct {
	lock sync.Mutex
	// nftOwners maps contract/id to the owning account, "" meaning custody.
	nftOwners map[string]string
	// unitHoldings maps contract/id/account to a unit count; the custody
	// account is the empty string.
	unitHoldings map[string]uint64
	// tokenHoldings maps contract/account to a fungible amount.
	tokenHoldings map[string]uint64
}

func NewAssetBank() *Bank {
	return &Bank{
		nftOwners:     make(map[string]string),
		unitHoldings:  make(map[string]uint64),
		tokenHoldings: make(map[string]uint64),
	}
}

var _ ports.AssetBank = (*Bank)(nil)

func nftKey(contract, id string) string {
	return contract + "/" + id
}

func unitKey(contract, id, account string) string {
	return contract + "/" + id + "/" + account
}

func tokenKey(contract, account string) string {
	return contract + "/" + account
}

// MintNFT seeds an NFT into an account.
func (b *Bank) MintNFT(contract, id, owner string) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.nftOwners[nftKey(contract, id)] = owner
}

// MintNFTUnits seeds semi-fungible units into an account.
func (b *Bank) MintNFTUnits(contract, id string, quantity uint64, owner string) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.unitHoldings[unitKey(contract, id, owner)] += quantity
}

// MintTokens seeds fungible tokens into an account.
func (b *Bank) MintTokens(contract string, quantity uint64, owner string) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.tokenHoldings[tokenKey(contract, owner)] += quantity
}

// NFTOwner reports who holds an NFT, "" meaning custody.
func (b *Bank) NFTOwner(contract, id string) string {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.nftOwners[nftKey(contract, id)]
}

// NFTUnitBalanceOf reports an account's unit count for a semi-fungible
// asset, "" meaning custody.
func (b *Bank) NFTUnitBalanceOf(contract, id, account string) uint64 {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.unitHoldings[unitKey(contract, id, account)]
}

// TokenBalanceOf reports an account's fungible balance for a contract.
func (b *Bank) TokenBalanceOf(contract, account string) uint64 {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.tokenHoldings[tokenKey(contract, account)]
}

func (b *Bank) DepositNFT(ctx context.Context, contract, id, from string) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	key := nftKey(contract, id)
	if b.nftOwners[key] != from {
		return fmt.Errorf("%s does not hold nft %s", from, key)
	}
	b.nftOwners[key] = ""
	return nil
}

func (b *Bank) DepositNFTUnits(
	ctx context.Context, contract, id string, quantity uint64, from string,
) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	src := unitKey(contract, id, from)
	if b.unitHoldings[src] < quantity {
		return fmt.Errorf("%s holds fewer than %d units of %s/%s", from, quantity, contract, id)
	}
	b.unitHoldings[src] -= quantity
	b.unitHoldings[unitKey(contract, id, "")] += quantity
	return nil
}

func (b *Bank) DepositTokens(
	ctx context.Context, contract string, quantity uint64, from string,
) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	src := tokenKey(contract, from)
	if b.tokenHoldings[src] < quantity {
		return fmt.Errorf("%s holds fewer than %d tokens of %s", from, quantity, contract)
	}
	b.tokenHoldings[src] -= quantity
	b.tokenHoldings[tokenKey(contract, "")] += quantity
	return nil
}

func (b *Bank) ReleaseNFT(ctx context.Context, contract, id, to string) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	key := nftKey(contract, id)
	if b.nftOwners[key] != "" {
		return fmt.Errorf("nft %s is not in custody", key)
	}
	b.nftOwners[key] = to
	return nil
}

func (b *Bank) ReleaseNFTUnits(
	ctx context.Context, contract, id string, quantity uint64, to string,
) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	custody := unitKey(contract, id, "")
	if b.unitHoldings[custody] < quantity {
		return fmt.Errorf("custody holds fewer than %d units of %s/%s", quantity, contract, id)
	}
	b.unitHoldings[custody] -= quantity
	b.unitHoldings[unitKey(contract, id, to)] += quantity
	return nil
}

func (b *Bank) ReleaseTokens(
	ctx context.Context, contract string, quantity uint64, to string,
) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	custody := tokenKey(contract, "")
	if b.tokenHoldings[custody] < quantity {
		return fmt.Errorf("custody holds fewer than %d tokens of %s", quantity, contract)
	}
	b.tokenHoldings[custody] -= quantity
	b.tokenHoldings[tokenKey(contract, to)] += quantity
	return nil
}

func (b *Bank) CustodyTokenBalance(ctx context.Context, contract string) (uint64, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.tokenHoldings[tokenKey(contract, "")], nil
}
