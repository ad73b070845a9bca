package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"rollbook/internal/domain/account"
)

// GoogleClaims are the identity fields extracted from a verified Google ID
// token.
type GoogleClaims struct {
	Sub   string // Google's stable subject identifier
	Email string
	Name  string
}

// GoogleVerifier validates a Google ID token and extracts its claims.
type GoogleVerifier interface {
	Verify(ctx context.Context, idToken string) (GoogleClaims, error)
}

// AccountStoreForGoogleLogin defines the store interface needed by LoginGoogle.
type AccountStoreForGoogleLogin interface {
	GetByGoogleID(ctx context.Context, googleID string) (account.Account, error)
	GetByEmail(ctx context.Context, email string) (account.Account, error)
	Save(ctx context.Context, a account.Account) error
}

// LoginGoogleInput carries input for the Google sign-in orchestrator.
type LoginGoogleInput struct {
	IDToken string // credential posted by Google Identity Services
}

// LoginGoogleDeps holds dependencies for LoginGoogle.
type LoginGoogleDeps struct {
	AccountStore AccountStoreForGoogleLogin
	Verifier     GoogleVerifier
	GenerateID   func() string
	Now          func() time.Time
}

var ErrGoogleTokenInvalid = errors.New("google sign-in could not be verified")

// ExecuteLoginGoogle signs an account in with a Google ID token. The account
// is found by Google ID first, then linked by email, and created as an active
// student when neither exists. A pending account signing in this way is
// activated: Google has already verified ownership of the email address.
// PRE: Verifier is configured with the deployment's client ID
// POST: Returns account info for session creation; the account exists, is
// active and carries the Google ID
func ExecuteLoginGoogle(ctx context.Context, input LoginGoogleInput, deps LoginGoogleDeps) (LoginResult, error) {
	if input.IDToken == "" {
		return LoginResult{}, ErrGoogleTokenInvalid
	}

	claims, err := deps.Verifier.Verify(ctx, input.IDToken)
	if err != nil {
		slog.Info("auth_event", "event", "google_login_failed", "reason", "verify_failed", "error", err.Error())
		return LoginResult{}, ErrGoogleTokenInvalid
	}
	if claims.Sub == "" || claims.Email == "" {
		slog.Info("auth_event", "event", "google_login_failed", "reason", "missing_claims")
		return LoginResult{}, ErrGoogleTokenInvalid
	}

	acct, err := deps.AccountStore.GetByGoogleID(ctx, claims.Sub)
	if err != nil {
		acct, err = deps.AccountStore.GetByEmail(ctx, claims.Email)
		if err != nil {
			return createGoogleAccount(ctx, claims, deps)
		}
		acct.LinkGoogle(claims.Sub)
	}

	if acct.IsLocked() {
		slog.Info("auth_event", "event", "login_blocked", "email", acct.Email, "reason", "locked")
		return LoginResult{}, ErrAccountLocked
	}
	if acct.IsPendingActivation() {
		if err := acct.Activate(); err != nil {
			return LoginResult{}, err
		}
	}
	acct.ResetFailedLogins()

	if err := deps.AccountStore.Save(ctx, acct); err != nil {
		return LoginResult{}, err
	}

	slog.Info("auth_event", "event", "google_login_success", "email", acct.Email, "role", acct.Role)

	return LoginResult{
		AccountID:              acct.ID,
		Email:                  acct.Email,
		Name:                   acct.Name,
		Role:                   acct.Role,
		PasswordChangeRequired: acct.PasswordChangeRequired,
	}, nil
}

// createGoogleAccount registers a brand-new active student from verified
// Google claims. No password is set; the account signs in with Google until
// one is.
func createGoogleAccount(ctx context.Context, claims GoogleClaims, deps LoginGoogleDeps) (LoginResult, error) {
	acct := account.Account{
		ID:        deps.GenerateID(),
		Email:     claims.Email,
		Name:      claims.Name,
		GoogleID:  claims.Sub,
		Role:      account.RoleStudent,
		Status:    account.StatusActive,
		CreatedAt: deps.Now(),
	}
	if err := acct.Validate(); err != nil {
		return LoginResult{}, err
	}
	if err := deps.AccountStore.Save(ctx, acct); err != nil {
		return LoginResult{}, err
	}

	slog.Info("auth_event", "event", "google_account_created", "email", acct.Email)

	return LoginResult{
		AccountID: acct.ID,
		Email:     acct.Email,
		Name:      acct.Name,
		Role:      acct.Role,
	}, nil
}
