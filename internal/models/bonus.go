package models

// BonusPolicy grants extra credit on confirmed deposits at or above
// MinimumAmount. Percentage is a whole percent, amounts are cents.
type BonusPolicy struct {
	Active        bool  `json:"active"`
	Percentage    int64 `json:"percentage"`
	MinimumAmount int64 `json:"minimum_amount"`
}

// BonusFor returns the extra credit a confirmed deposit of amount earns.
func (p BonusPolicy) BonusFor(amount int64) int64 {
	if !p.Active || amount < p.MinimumAmount {
		return 0
	}
	return amount * p.Percentage / 100
}
