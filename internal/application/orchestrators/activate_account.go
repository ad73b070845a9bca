package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"rollbook/internal/domain/account"
)

// AccountStoreForActivate defines the store interface needed by ActivateAccount.
type AccountStoreForActivate interface {
	GetByID(ctx context.Context, id string) (account.Account, error)
	Save(ctx context.Context, a account.Account) error
	GetActivationTokenByToken(ctx context.Context, token string) (account.ActivationToken, error)
	SaveActivationToken(ctx context.Context, token account.ActivationToken) error
	InvalidateTokensForAccount(ctx context.Context, accountID string) error
}

// ActivateAccountInput carries input for the activation orchestrator.
type ActivateAccountInput struct {
	Token    string
	Password string
}

// ActivateAccountDeps holds dependencies for ActivateAccount.
type ActivateAccountDeps struct {
	AccountStore AccountStoreForActivate
	Now          func() time.Time
}

var ErrTokenUsed = errors.New("activation link has already been used")

// CheckActivationToken validates a token for the activation page without
// consuming it.
// PRE: token is non-empty
// POST: Returns nil only for a token that ExecuteActivateAccount would accept
func CheckActivationToken(ctx context.Context, token string, deps ActivateAccountDeps) error {
	tok, err := deps.AccountStore.GetActivationTokenByToken(ctx, token)
	if err != nil {
		return account.ErrTokenInvalid
	}
	if tok.Used {
		return ErrTokenUsed
	}
	if tok.IsExpired(deps.Now()) {
		return account.ErrTokenExpired
	}
	return nil
}

// ExecuteActivateAccount consumes an activation token, sets the account's
// first password and activates it.
// PRE: Token and Password are non-empty
// POST: Account is active with the new password; every token for the account
// is invalidated
func ExecuteActivateAccount(ctx context.Context, input ActivateAccountInput, deps ActivateAccountDeps) (LoginResult, error) {
	if input.Token == "" || input.Password == "" {
		return LoginResult{}, errors.New("token and password are required")
	}

	tok, err := deps.AccountStore.GetActivationTokenByToken(ctx, input.Token)
	if err != nil {
		return LoginResult{}, account.ErrTokenInvalid
	}
	if tok.Used {
		return LoginResult{}, ErrTokenUsed
	}
	if tok.IsExpired(deps.Now()) {
		return LoginResult{}, account.ErrTokenExpired
	}

	acct, err := deps.AccountStore.GetByID(ctx, tok.AccountID)
	if err != nil {
		return LoginResult{}, err
	}

	if err := acct.Activate(); err != nil {
		return LoginResult{}, err
	}
	if err := acct.SetPassword(input.Password); err != nil {
		return LoginResult{}, err
	}
	acct.PasswordChangeRequired = false

	if err := deps.AccountStore.Save(ctx, acct); err != nil {
		return LoginResult{}, err
	}

	tok.Invalidate()
	if err := deps.AccountStore.SaveActivationToken(ctx, tok); err != nil {
		return LoginResult{}, err
	}
	if err := deps.AccountStore.InvalidateTokensForAccount(ctx, tok.AccountID); err != nil {
		return LoginResult{}, err
	}

	slog.Info("auth_event", "event", "account_activated", "account_id", acct.ID, "email", acct.Email)

	return LoginResult{
		AccountID: acct.ID,
		Email:     acct.Email,
		Name:      acct.Name,
		Role:      acct.Role,
	}, nil
}
