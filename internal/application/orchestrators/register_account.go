package orchestrators

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"rollbook/internal/domain/account"
	"rollbook/internal/domain/outbox"
)

// ActivationTokenTTL is how long an activation link stays valid.
const ActivationTokenTTL = 72 * time.Hour

// AccountStoreForRegister defines the store interface needed by RegisterAccount.
type AccountStoreForRegister interface {
	GetByEmail(ctx context.Context, email string) (account.Account, error)
	Save(ctx context.Context, a account.Account) error
	SaveActivationToken(ctx context.Context, token account.ActivationToken) error
	InvalidateTokensForAccount(ctx context.Context, accountID string) error
}

// OutboxStoreForRegister defines the outbox store interface needed by RegisterAccount.
type OutboxStoreForRegister interface {
	Save(ctx context.Context, e outbox.Entry) error
}

// RegisterAccountInput carries input for the registration orchestrator.
type RegisterAccountInput struct {
	Email string
	Name  string
}

// RegisterAccountDeps holds dependencies for RegisterAccount.
type RegisterAccountDeps struct {
	AccountStore AccountStoreForRegister
	OutboxStore  OutboxStoreForRegister
	BaseURL      string // absolute origin for the activation link
	GenerateID   func() string
	Now          func() time.Time
}

var ErrEmailAlreadyExists = errors.New("an account with this email already exists")

// ExecuteRegisterAccount registers a student account pending activation and
// queues the activation email. The password is chosen on the activation page,
// not here. Registering again while still pending issues a fresh link and
// invalidates the old one, which doubles as the resend path.
// PRE: Email is non-empty
// POST: A pending account and one valid activation token exist; the
// activation email is queued for delivery
func ExecuteRegisterAccount(ctx context.Context, input RegisterAccountInput, deps RegisterAccountDeps) (string, error) {
	if input.Email == "" {
		return "", errors.New("email cannot be empty")
	}

	acct, err := deps.AccountStore.GetByEmail(ctx, input.Email)
	switch {
	case err == nil && !acct.IsPendingActivation():
		return "", ErrEmailAlreadyExists
	case err == nil:
		// Still pending: reuse the account, void the earlier links.
		if err := deps.AccountStore.InvalidateTokensForAccount(ctx, acct.ID); err != nil {
			return "", err
		}
	default:
		acct = account.Account{
			ID:        deps.GenerateID(),
			Email:     input.Email,
			Name:      input.Name,
			Role:      account.RoleStudent,
			Status:    account.StatusPendingActivation,
			CreatedAt: deps.Now(),
		}
		if err := acct.Validate(); err != nil {
			return "", err
		}
		if err := deps.AccountStore.Save(ctx, acct); err != nil {
			return "", err
		}
	}

	tokenStr := deps.GenerateID()
	tok := account.ActivationToken{
		ID:        deps.GenerateID(),
		AccountID: acct.ID,
		Token:     tokenStr,
		ExpiresAt: deps.Now().Add(ActivationTokenTTL),
		CreatedAt: deps.Now(),
	}
	if err := deps.AccountStore.SaveActivationToken(ctx, tok); err != nil {
		return "", err
	}

	if err := enqueueActivationEmail(ctx, deps, acct, tokenStr); err != nil {
		return "", err
	}

	slog.Info("auth_event", "event", "account_registered", "email", acct.Email)
	return acct.ID, nil
}

// enqueueActivationEmail queues the activation mail through the outbox so a
// provider outage delays delivery instead of losing it.
func enqueueActivationEmail(ctx context.Context, deps RegisterAccountDeps, acct account.Account, token string) error {
	link := deps.BaseURL + "/activate?token=" + token
	payload, err := json.Marshal(EmailPayload{
		To:      acct.Email,
		Subject: "Activate your attendance account",
		HTML: fmt.Sprintf(
			"<p>Hi %s,</p><p>Follow <a href=%q>this link</a> to choose a password and activate your account. The link is valid for %d hours.</p>",
			displayName(acct), link, int(ActivationTokenTTL.Hours())),
	})
	if err != nil {
		return err
	}

	entry := outbox.Entry{
		ID:         deps.GenerateID(),
		ActionType: outbox.ActionTypeEmail,
		Payload:    string(payload),
		Status:     outbox.StatusPending,
		CreatedAt:  deps.Now(),
	}
	if err := entry.Validate(); err != nil {
		return err
	}
	return deps.OutboxStore.Save(ctx, entry)
}

func displayName(acct account.Account) string {
	if acct.Name != "" {
		return acct.Name
	}
	return acct.Email
}
