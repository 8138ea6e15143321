package domain

import (
	"fmt"
	"time"
)

// Settings is the administrable configuration gating core behavior: the
// protection fee schedule, the burn-on-resolution policy, the Ultra-tier
// reputation threshold and the evidence templates forwarded verbatim to
// arbitrators.
type Settings struct {
	BaseURI            string
	BurnOnResolution   bool
	MinUltraReputation int64
	ProtectBasicFee    uint64
	ProtectUltraFee    uint64

	AdjustmentEvidenceTemplate string
	RestoreEvidenceTemplate    string
	BurnEvidenceTemplate       string

	UpdatedAt time.Time
}

func DefaultSettings() Settings {
	return Settings{
		BurnOnResolution:   true,
		MinUltraReputation: 0,
		ProtectBasicFee:    0,
		ProtectUltraFee:    0,
	}
}

func (s Settings) Validate() error {
	if s.MinUltraReputation < 0 {
		return fmt.Errorf("min ultra reputation must not be negative")
	}
	return nil
}

func (s Settings) ProtectFee(tier Tier) uint64 {
	if tier == TierUltra {
		return s.ProtectUltraFee
	}
	return s.ProtectBasicFee
}

func (s Settings) EvidenceTemplate(requestType RequestType) string {
	switch requestType {
	case RequestTypeOwnershipAdjustment:
		return s.AdjustmentEvidenceTemplate
	case RequestTypeOwnershipRestore:
		return s.RestoreEvidenceTemplate
	case RequestTypeBurn:
		return s.BurnEvidenceTemplate
	}
	return ""
}

func (s *Settings) SetEvidenceTemplate(requestType RequestType, template string) error {
	switch requestType {
	case RequestTypeOwnershipAdjustment:
		s.AdjustmentEvidenceTemplate = template
	case RequestTypeOwnershipRestore:
		s.RestoreEvidenceTemplate = template
	case RequestTypeBurn:
		s.BurnEvidenceTemplate = template
	default:
		return fmt.Errorf("unknown request type %d", requestType)
	}
	return nil
}
