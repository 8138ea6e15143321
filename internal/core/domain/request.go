package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type RequestType uint8

const (
	RequestTypeUnknown RequestType = iota
	RequestTypeOwnershipAdjustment
	RequestTypeOwnershipRestore
	RequestTypeBurn
)

func (t RequestType) String() string {
	return []string{
		"Unknown",
		"OwnershipAdjustment",
		"OwnershipRestore",
		"Burn",
	}[t]
}

type RequestStatus uint8

const (
	RequestStatusInitial RequestStatus = iota
	RequestStatusAccepted
	RequestStatusRejected
	RequestStatusDisputed
)

func (s RequestStatus) String() string {
	return []string{
		"Initial",
		"Accepted",
		"Rejected",
		"Disputed",
	}[s]
}

// AnswerTimeout is how long the recognized owner has to answer an
// ownership-adjustment request before the holder may force arbitration.
const AnswerTimeout = 2 * 24 * time.Hour

// Request tracks one ownership-adjustment, ownership-restoration or burn
// request for a protected token. At most one live (Initial or Disputed)
// request exists per token. Accepted is always final. Rejected is final once
// the rejection came from arbitration (DisputeHandle set); a cooperative
// rejection can still be escalated by the holder.
type Request struct {
	Id               string
	Type             RequestType
	SubjectTokenId   string
	ProposedNewOwner string
	Status           RequestStatus
	TimeoutAt        int64
	ArbitratorId     string
	ArbitratorConfig []byte
	DisputeHandle    string
	EvidenceTemplate string
	CreatedAt        int64
	ResolvedAt       int64
}

func NewRequest(
	requestType RequestType, tokenId, proposedNewOwner, arbitratorId string,
	arbitratorConfig []byte, evidenceTemplate string, timeout time.Duration,
) Request {
	now := time.Now()
	var timeoutAt int64
	if timeout > 0 {
		timeoutAt = now.Add(timeout).Unix()
	}
	return Request{
		Id:               uuid.New().String(),
		Type:             requestType,
		SubjectTokenId:   tokenId,
		ProposedNewOwner: proposedNewOwner,
		Status:           RequestStatusInitial,
		TimeoutAt:        timeoutAt,
		ArbitratorId:     arbitratorId,
		ArbitratorConfig: arbitratorConfig,
		EvidenceTemplate: evidenceTemplate,
		CreatedAt:        now.Unix(),
	}
}

func (r Request) IsLive() bool {
	return r.Status == RequestStatusInitial || r.Status == RequestStatusDisputed
}

func (r Request) IsTerminal() bool {
	return r.Status == RequestStatusAccepted || r.Status == RequestStatusRejected
}

// ArbitrationFinal reports whether the request was closed by an external
// ruling, in which case no further transition is ever possible.
func (r Request) ArbitrationFinal() bool {
	return r.IsTerminal() && r.DisputeHandle != ""
}

func (r Request) TimeoutElapsed(now time.Time) bool {
	return r.TimeoutAt > 0 && now.Unix() >= r.TimeoutAt
}

// CanEscalate reports whether the holder may force the request into
// arbitration: either the owner rejected cooperatively, or the answer
// timeout elapsed with no answer.
func (r Request) CanEscalate(now time.Time) bool {
	if r.Status == RequestStatusRejected && r.DisputeHandle == "" {
		return true
	}
	return r.Status == RequestStatusInitial && r.TimeoutElapsed(now)
}

// BlocksTransfer reports whether the request makes the protected token
// non-transferable: disputes always do, and so does an unanswered request
// whose timeout elapsed, since the holder may escalate it at any moment.
func (r Request) BlocksTransfer(now time.Time) bool {
	if r.Status == RequestStatusDisputed {
		return true
	}
	return r.Status == RequestStatusInitial && r.TimeoutElapsed(now)
}

func (r *Request) Escalate(disputeHandle string) error {
	if disputeHandle == "" {
		return fmt.Errorf("missing dispute handle")
	}
	switch {
	case r.Status == RequestStatusInitial:
	case r.Status == RequestStatusRejected && r.DisputeHandle == "":
	default:
		return fmt.Errorf("cannot escalate request in status %s", r.Status)
	}
	r.Status = RequestStatusDisputed
	r.DisputeHandle = disputeHandle
	r.ResolvedAt = 0
	return nil
}

func (r *Request) Accept() error {
	if r.Status != RequestStatusInitial && r.Status != RequestStatusDisputed {
		return fmt.Errorf("cannot accept request in status %s", r.Status)
	}
	r.Status = RequestStatusAccepted
	r.ResolvedAt = time.Now().Unix()
	return nil
}

func (r *Request) Reject() error {
	if r.Status != RequestStatusInitial && r.Status != RequestStatusDisputed {
		return fmt.Errorf("cannot reject request in status %s", r.Status)
	}
	r.Status = RequestStatusRejected
	r.ResolvedAt = time.Now().Unix()
	return nil
}
