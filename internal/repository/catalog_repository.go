package repository

import (
	"context"

	"github.com/andrewseusebio/Rc-Store/internal/models"
)

type CatalogRepository interface {
	GetPrice(ctx context.Context, product string) (int64, error)
	SetPrice(ctx context.Context, product string, price int64) error
	GetBonusPolicy(ctx context.Context) (models.BonusPolicy, error)
	SetBonusPolicy(ctx context.Context, policy models.BonusPolicy) error
}
