package inmemoryarbitrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodix/custodiad/internal/core/ports"
	"github.com/google/uuid"
)

// Directory is an in-memory arbitrator directory for dev mode and tests.
type Directory struct {
	lock        sync.RWMutex
	arbitrators map[string]*Arbitrator
	configs     map[string][]byte
}

func NewDirectory() *Directory {
	return &Directory{
		arbitrators: make(map[string]*Arbitrator),
		configs:     make(map[string][]byte),
	}
}

var _ ports.ArbitratorDirectory = (*Directory)(nil)

func (d *Directory) Add(id string, arbitrator *Arbitrator, configPayload []byte) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.arbitrators[id] = arbitrator
	d.configs[id] = configPayload
}

func (d *Directory) ArbitratorFor(
	ctx context.Context, id string,
) (ports.Arbitrator, []byte, error) {
	d.lock.RLock()
	defer d.lock.RUnlock()
	arbitrator, ok := d.arbitrators[id]
	if !ok {
		return nil, nil, fmt.Errorf("unknown arbitrator %s", id)
	}
	return arbitrator, d.configs[id], nil
}

type dispute struct {
	externalId string
	evidence   string
	payment    uint64
	ruled      bool
	outcome    uint8
}

// Arbitrator is an in-memory binary-outcome oracle. Rulings are injected
// with Rule; until then RulingFor reports the case as pending.
type Arbitrator struct {
	lock     sync.RWMutex
	disputes map[string]*dispute // by local handle
	handles  map[string]string   // external id -> local handle
}

func NewArbitrator() *Arbitrator {
	return &Arbitrator{
		disputes: make(map[string]*dispute),
		handles:  make(map[string]string),
	}
}

var _ ports.Arbitrator = (*Arbitrator)(nil)

func (a *Arbitrator) CreateDispute(
	ctx context.Context, configPayload []byte, evidenceTemplate string,
	numOutcomes uint32, payment uint64,
) (string, error) {
	a.lock.Lock()
	defer a.lock.Unlock()

	externalId := uuid.New().String()
	localHandle := fmt.Sprintf("case-%s", uuid.New().String())
	a.handles[externalId] = localHandle
	a.disputes[localHandle] = &dispute{
		externalId: externalId,
		evidence:   evidenceTemplate,
		payment:    payment,
	}
	return externalId, nil
}

func (a *Arbitrator) MapExternalToLocal(
	ctx context.Context, externalCaseId string,
) (string, error) {
	a.lock.RLock()
	defer a.lock.RUnlock()
	localHandle, ok := a.handles[externalCaseId]
	if !ok {
		return "", fmt.Errorf("unknown external case %s", externalCaseId)
	}
	return localHandle, nil
}

func (a *Arbitrator) RulingFor(
	ctx context.Context, localHandle string,
) (bool, uint8, error) {
	a.lock.RLock()
	defer a.lock.RUnlock()
	d, ok := a.disputes[localHandle]
	if !ok {
		return false, 0, fmt.Errorf("unknown dispute %s", localHandle)
	}
	return d.ruled, d.outcome, nil
}

// Rule records the final verdict for a pending case.
func (a *Arbitrator) Rule(localHandle string, outcome uint8) error {
	a.lock.Lock()
	defer a.lock.Unlock()
	d, ok := a.disputes[localHandle]
	if !ok {
		return fmt.Errorf("unknown dispute %s", localHandle)
	}
	d.ruled = true
	d.outcome = outcome
	return nil
}

// LastHandle returns the local handle of the most recently created dispute.
func (a *Arbitrator) LastHandle() string {
	a.lock.RLock()
	defer a.lock.RUnlock()
	last := ""
	for _, handle := range a.handles {
		last = handle
	}
	return last
}

// Evidence returns the evidence template a case was created with.
func (a *Arbitrator) Evidence(localHandle string) string {
	a.lock.RLock()
	defer a.lock.RUnlock()
	if d, ok := a.disputes[localHandle]; ok {
		return d.evidence
	}
	return ""
}
