package repository

import "context"

type DepositRepository interface {
	// CreditOnce records a confirmed charge and credits amount+bonus to the
	// account in one transaction. A charge id that was already recorded is a
	// no-op returning applied=false, so webhook retries never double-credit.
	CreditOnce(ctx context.Context, chargeID string, accountID, amount, bonus int64) (applied bool, err error)
}
