package account

import (
	"context"

	domain "rollbook/internal/domain/account"
)

// Store persists Account state and the activation tokens issued for it.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Account, error)
	GetByEmail(ctx context.Context, email string) (domain.Account, error)
	GetByGoogleID(ctx context.Context, googleID string) (domain.Account, error)
	Save(ctx context.Context, value domain.Account) error
	Count(ctx context.Context) (int, error)
	SaveActivationToken(ctx context.Context, token domain.ActivationToken) error
	GetActivationTokenByToken(ctx context.Context, token string) (domain.ActivationToken, error)
	InvalidateTokensForAccount(ctx context.Context, accountID string) error
}
