package ports

import (
	"context"

	"github.com/bnema/perch/internal/domain"
)

type AccountRepository interface {
	Save(ctx context.Context, account domain.Account) error
	GetByID(ctx context.Context, id domain.AccountID) (domain.Account, error)
	List(ctx context.Context) ([]domain.Account, error)
	Delete(ctx context.Context, id domain.AccountID) error
}
