package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type AssetKind uint8

const (
	AssetKindUnknown AssetKind = iota
	AssetKindNonFungibleUnique
	AssetKindNonFungibleMultiple
	AssetKindFungible
)

func (k AssetKind) String() string {
	return []string{
		"Unknown",
		"NonFungibleUnique",
		"NonFungibleMultiple",
		"Fungible",
	}[k]
}

type Tier uint8

const (
	TierBasic Tier = iota
	TierUltra
)

func (t Tier) String() string {
	return []string{
		"Basic",
		"Ultra",
	}[t]
}

// Asset describes the underlying asset taken into custody. SourceId is
// meaningless for fungible assets, Quantity for unique NFTs.
type Asset struct {
	Kind           AssetKind
	SourceContract string
	SourceId       string
	Quantity       uint64
}

func (a Asset) Validate() error {
	if a.SourceContract == "" {
		return fmt.Errorf("missing source contract")
	}
	switch a.Kind {
	case AssetKindNonFungibleUnique:
		if a.SourceId == "" {
			return fmt.Errorf("missing source id for unique nft")
		}
		if a.Quantity != 1 {
			return fmt.Errorf("unique nft quantity must be 1, got %d", a.Quantity)
		}
	case AssetKindNonFungibleMultiple:
		if a.SourceId == "" {
			return fmt.Errorf("missing source id for multi-unit nft")
		}
		if a.Quantity == 0 {
			return fmt.Errorf("multi-unit nft quantity must be positive")
		}
	case AssetKindFungible:
		if a.Quantity == 0 {
			return fmt.Errorf("fungible quantity must be positive")
		}
	default:
		return fmt.Errorf("unknown asset kind %d", a.Kind)
	}
	return nil
}

// Original is the custody-ledger record backing a protected token. It is
// created together with the token on protect and deleted together with it on
// unwrap. RecordedOwner is the address last confirmed as true owner of the
// underlying asset; Tier is immutable after protection. ArbitratorId is the
// arbitrator chosen at protection time, used for requests raised without an
// explicit binding (burn, restoration).
type Original struct {
	ProtectedId   string
	Asset         Asset
	RecordedOwner string
	Tier          Tier
	ArbitratorId  string
	CreatedAt     int64
}

func NewOriginal(asset Asset, tier Tier, owner, arbitratorId string) Original {
	return Original{
		ProtectedId:   uuid.New().String(),
		Asset:         asset,
		RecordedOwner: owner,
		Tier:          tier,
		ArbitratorId:  arbitratorId,
		CreatedAt:     time.Now().Unix(),
	}
}
