package ports

import "context"

// Ruling outcomes as reported by arbitrator endpoints. Refused means the
// arbitrator declined to rule, which resolves the dispute against the
// requester just like an explicit rejection.
const (
	RulingRefused uint8 = 0
	RulingAccept  uint8 = 1
	RulingReject  uint8 = 2
)

// NumRulingOutcomes is the number of decisive outcomes a dispute is created
// with (accept, reject).
const NumRulingOutcomes = 2

// Arbitrator is the endpoint contract of one external dispute-resolution
// oracle. Its internal deliberation is opaque.
type Arbitrator interface {
	// CreateDispute opens a case and returns the arbitrator's external case
	// id. The payment funds the arbitration, the evidence template is passed
	// verbatim.
	CreateDispute(
		ctx context.Context, configPayload []byte, evidenceTemplate string,
		numOutcomes uint32, payment uint64,
	) (string, error)
	// MapExternalToLocal translates an external case id into the locally
	// stable handle used for ruling lookups.
	MapExternalToLocal(ctx context.Context, externalCaseId string) (string, error)
	// RulingFor returns whether a final verdict exists for the handle and,
	// if so, its outcome.
	RulingFor(ctx context.Context, localHandle string) (bool, uint8, error)
}

// ArbitratorDirectory maps an arbitrator identifier to its endpoint and
// opaque configuration payload.
type ArbitratorDirectory interface {
	ArbitratorFor(ctx context.Context, id string) (Arbitrator, []byte, error)
}
