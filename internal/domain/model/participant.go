package model

import "regexp"

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// ValidAddress reports whether s is a well-formed participant address.
// Malformed addresses are rejected before any remote call.
func ValidAddress(s string) bool {
	return addressPattern.MatchString(s)
}

// Participant is the per-user, per-epoch record held by the ledger.
type Participant struct {
	Address            string  `json:"address"`
	Epoch              uint64  `json:"epoch"`
	Balance            int64   `json:"balance"`
	Entries            int     `json:"entries"`
	BestScore          float64 `json:"best_score"`
	BestConversationID string  `json:"best_conversation_id,omitempty"`
}

// SufficientBalance reports whether the participant can cover fee. The flag
// is always derived from the balance, never stored alongside it.
func (p Participant) SufficientBalance(fee int64) bool {
	return p.Balance >= fee
}

// RemainingQuota returns how many scored interactions the participant may
// still enter this epoch, never negative.
func (p Participant) RemainingQuota(quota int) int {
	remaining := quota - p.Entries
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Eligibility is the composed answer to "can this user participate".
type Eligibility struct {
	Address           string `json:"address"`
	SufficientBalance bool   `json:"sufficient_balance"`
	RemainingQuota    int    `json:"remaining_quota"`
	CanParticipate    bool   `json:"can_participate"`
	Reason            string `json:"reason,omitempty"`
}

// Eligibility reasons reported when participation is denied.
const (
	ReasonInsufficientBalance = "insufficient_balance"
	ReasonQuotaExhausted      = "quota_exhausted"
)

// Evaluate composes the participant's eligibility against fee and quota.
func (p Participant) Evaluate(fee int64, quota int) Eligibility {
	el := Eligibility{
		Address:           p.Address,
		SufficientBalance: p.SufficientBalance(fee),
		RemainingQuota:    p.RemainingQuota(quota),
	}
	switch {
	case !el.SufficientBalance:
		el.Reason = ReasonInsufficientBalance
	case el.RemainingQuota == 0:
		el.Reason = ReasonQuotaExhausted
	default:
		el.CanParticipate = true
	}
	return el
}
