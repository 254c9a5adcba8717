package repository

import (
	"context"

	"github.com/andrewseusebio/Rc-Store/internal/models"
)

type AccountRepository interface {
	// GetOrCreate upserts the account. The first-seen timestamp is recorded
	// once; display name and handle follow the latest event.
	GetOrCreate(ctx context.Context, id int64, displayName, handle string) (*models.Account, error)
	GetByID(ctx context.Context, id int64) (*models.Account, error)
	// ChangeBalance applies delta (credit positive, debit negative) and fails
	// instead of letting the balance go negative.
	ChangeBalance(ctx context.Context, id, delta int64) (newBalance int64, err error)
	GetBalance(ctx context.Context, id int64) (int64, error)
	SetBanned(ctx context.Context, id int64, banned bool) error
}
