package domain

import "time"

// ProtectedToken is the substitute claim token minted against an Original.
// Holder is the current owner of the claim, Approved an optional operator
// allowed to act on the holder's behalf. Approval is cleared on transfer.
type ProtectedToken struct {
	Id        string
	Holder    string
	Approved  string
	CreatedAt int64
}

func NewProtectedToken(id, holder string) ProtectedToken {
	return ProtectedToken{
		Id:        id,
		Holder:    holder,
		CreatedAt: time.Now().Unix(),
	}
}

func (t *ProtectedToken) TransferTo(dest string) {
	t.Holder = dest
	t.Approved = ""
}
