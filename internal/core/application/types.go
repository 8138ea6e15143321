package application

import "github.com/custodix/custodiad/internal/core/domain"

// ProtectionDetails is the full view over one protected token: the custody
// record, the claim token and the request currently bound to it, if any.
type ProtectionDetails struct {
	Original domain.Original
	Token    domain.ProtectedToken
	Request  *domain.Request
}
