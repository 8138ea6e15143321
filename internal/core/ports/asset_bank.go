package ports

import "context"

// AssetBank moves underlying assets between user accounts and protocol
// custody. Deposits pull from the given account into custody, releases push
// from custody to the given account. Kind dispatch happens at the call site.
type AssetBank interface {
	DepositNFT(ctx context.Context, contract, id, from string) error
	DepositNFTUnits(ctx context.Context, contract, id string, quantity uint64, from string) error
	DepositTokens(ctx context.Context, contract string, quantity uint64, from string) error

	ReleaseNFT(ctx context.Context, contract, id, to string) error
	ReleaseNFTUnits(ctx context.Context, contract, id string, quantity uint64, to string) error
	ReleaseTokens(ctx context.Context, contract string, quantity uint64, to string) error

	// CustodyTokenBalance returns the fungible amount of the given contract
	// currently held in custody.
	CustodyTokenBalance(ctx context.Context, contract string) (uint64, error)
}
