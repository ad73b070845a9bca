package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"rollbook/internal/domain/account"
)

// mockAccountStoreForOrch implements the account store interfaces for testing.
type mockAccountStoreForOrch struct {
	accounts map[string]account.Account         // by ID
	tokens   map[string]account.ActivationToken // by token string
	saveErr  error
}

// GetByID implements the account store.
// POST: returns the stored account or an error
func (m *mockAccountStoreForOrch) GetByID(_ context.Context, id string) (account.Account, error) {
	a, ok := m.accounts[id]
	if !ok {
		return account.Account{}, errors.New("not found")
	}
	return a, nil
}

// GetByEmail implements the account store.
// POST: returns the stored account or an error
func (m *mockAccountStoreForOrch) GetByEmail(_ context.Context, email string) (account.Account, error) {
	for _, a := range m.accounts {
		if a.Email == email {
			return a, nil
		}
	}
	return account.Account{}, errors.New("not found")
}

// GetByGoogleID implements the account store.
// POST: returns the account linked to the Google subject or an error
func (m *mockAccountStoreForOrch) GetByGoogleID(_ context.Context, googleID string) (account.Account, error) {
	for _, a := range m.accounts {
		if googleID != "" && a.GoogleID == googleID {
			return a, nil
		}
	}
	return account.Account{}, errors.New("not found")
}

// Save implements the account store.
// POST: account is persisted by ID, or saveErr
func (m *mockAccountStoreForOrch) Save(_ context.Context, a account.Account) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.accounts[a.ID] = a
	return nil
}

// Count implements the account store.
// POST: returns the number of stored accounts
func (m *mockAccountStoreForOrch) Count(_ context.Context) (int, error) {
	return len(m.accounts), nil
}

// SaveActivationToken implements the account store.
// POST: token is persisted by token string
func (m *mockAccountStoreForOrch) SaveActivationToken(_ context.Context, t account.ActivationToken) error {
	m.tokens[t.Token] = t
	return nil
}

// GetActivationTokenByToken implements the account store.
// POST: returns the stored token or an error
func (m *mockAccountStoreForOrch) GetActivationTokenByToken(_ context.Context, token string) (account.ActivationToken, error) {
	t, ok := m.tokens[token]
	if !ok {
		return account.ActivationToken{}, errors.New("not found")
	}
	return t, nil
}

// InvalidateTokensForAccount implements the account store.
// POST: every token for the account is marked used
func (m *mockAccountStoreForOrch) InvalidateTokensForAccount(_ context.Context, accountID string) error {
	for k, t := range m.tokens {
		if t.AccountID == accountID {
			t.Used = true
			m.tokens[k] = t
		}
	}
	return nil
}

func newMockAccountStore() *mockAccountStoreForOrch {
	return &mockAccountStoreForOrch{
		accounts: make(map[string]account.Account),
		tokens:   make(map[string]account.ActivationToken),
	}
}

// seqIDs returns a generator yielding "id-1", "id-2", ... so tests can tell
// the generated IDs apart.
func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

// --- ExecuteRegisterAccount tests ---

// TestExecuteRegisterAccount_Valid tests registering a new student account.
func TestExecuteRegisterAccount_Valid(t *testing.T) {
	store := newMockAccountStore()
	out := newMockOutboxStore()
	deps := RegisterAccountDeps{
		AccountStore: store,
		OutboxStore:  out,
		BaseURL:      "https://rollbook.test",
		GenerateID:   seqIDs(),
		Now:          fixedNow,
	}

	accountID, err := ExecuteRegisterAccount(context.Background(), RegisterAccountInput{
		Email: "alice@example.com",
		Name:  "Alice",
	}, deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	acct, ok := store.accounts[accountID]
	if !ok {
		t.Fatal("expected account to be persisted")
	}
	if acct.Status != account.StatusPendingActivation {
		t.Errorf("expected pending status, got %q", acct.Status)
	}
	if acct.Role != account.RoleStudent {
		t.Errorf("expected student role, got %q", acct.Role)
	}
	if acct.HasPassword() {
		t.Error("expected no password before activation")
	}

	if len(store.tokens) != 1 {
		t.Fatalf("expected one activation token, got %d", len(store.tokens))
	}
	var tok account.ActivationToken
	for _, v := range store.tokens {
		tok = v
	}
	if tok.AccountID != accountID {
		t.Errorf("expected token for %s, got %s", accountID, tok.AccountID)
	}
	if tok.Used {
		t.Error("expected a fresh unused token")
	}
	if got := tok.ExpiresAt.Sub(fixedTime); got != ActivationTokenTTL {
		t.Errorf("expected 72h expiry, got %v", got)
	}

	if len(out.entries) != 1 {
		t.Fatalf("expected one queued email, got %d", len(out.entries))
	}
	for _, entry := range out.entries {
		if !strings.Contains(entry.Payload, "alice@example.com") {
			t.Errorf("expected mail addressed to the account, got %s", entry.Payload)
		}
		if !strings.Contains(entry.Payload, "https://rollbook.test/activate?token="+tok.Token) {
			t.Errorf("expected activation link in payload, got %s", entry.Payload)
		}
	}
}

// TestExecuteRegisterAccount_DuplicateActive tests that an already activated
// email cannot register again.
func TestExecuteRegisterAccount_DuplicateActive(t *testing.T) {
	store := newMockAccountStore()
	store.accounts["a1"] = account.Account{
		ID: "a1", Email: "alice@example.com", Role: account.RoleStudent,
		Status: account.StatusActive,
	}
	deps := RegisterAccountDeps{
		AccountStore: store,
		OutboxStore:  newMockOutboxStore(),
		BaseURL:      "https://rollbook.test",
		GenerateID:   seqIDs(),
		Now:          fixedNow,
	}

	_, err := ExecuteRegisterAccount(context.Background(), RegisterAccountInput{Email: "alice@example.com"}, deps)
	if !errors.Is(err, ErrEmailAlreadyExists) {
		t.Errorf("expected ErrEmailAlreadyExists, got %v", err)
	}
	if len(store.tokens) != 0 {
		t.Error("expected no token to be issued")
	}
}

// TestExecuteRegisterAccount_ResendWhilePending tests that registering again
// while pending issues a fresh link and voids the old one.
func TestExecuteRegisterAccount_ResendWhilePending(t *testing.T) {
	store := newMockAccountStore()
	store.accounts["a1"] = account.Account{
		ID: "a1", Email: "alice@example.com", Role: account.RoleStudent,
		Status: account.StatusPendingActivation,
	}
	store.tokens["old-token"] = account.ActivationToken{
		ID: "t1", AccountID: "a1", Token: "old-token",
		ExpiresAt: fixedTime.Add(ActivationTokenTTL),
	}
	out := newMockOutboxStore()
	deps := RegisterAccountDeps{
		AccountStore: store,
		OutboxStore:  out,
		BaseURL:      "https://rollbook.test",
		GenerateID:   seqIDs(),
		Now:          fixedNow,
	}

	accountID, err := ExecuteRegisterAccount(context.Background(), RegisterAccountInput{Email: "alice@example.com"}, deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if accountID != "a1" {
		t.Errorf("expected the pending account to be reused, got %s", accountID)
	}
	if len(store.accounts) != 1 {
		t.Errorf("expected no second account, got %d", len(store.accounts))
	}
	if !store.tokens["old-token"].Used {
		t.Error("expected the old token to be invalidated")
	}

	fresh := 0
	for _, tok := range store.tokens {
		if !tok.Used {
			fresh++
		}
	}
	if fresh != 1 {
		t.Errorf("expected exactly one fresh token, got %d", fresh)
	}
	if len(out.entries) != 1 {
		t.Errorf("expected one queued email, got %d", len(out.entries))
	}
}

// TestExecuteRegisterAccount_InvalidEmail tests rejection of malformed emails.
func TestExecuteRegisterAccount_InvalidEmail(t *testing.T) {
	store := newMockAccountStore()
	deps := RegisterAccountDeps{
		AccountStore: store,
		OutboxStore:  newMockOutboxStore(),
		BaseURL:      "https://rollbook.test",
		GenerateID:   seqIDs(),
		Now:          fixedNow,
	}

	if _, err := ExecuteRegisterAccount(context.Background(), RegisterAccountInput{Email: "not-an-email"}, deps); err == nil {
		t.Error("expected error for email without @")
	}
	if len(store.tokens) != 0 {
		t.Error("expected no token to be issued")
	}
}

// TestExecuteRegisterAccount_EmptyEmail tests rejection of empty input.
func TestExecuteRegisterAccount_EmptyEmail(t *testing.T) {
	deps := RegisterAccountDeps{
		AccountStore: newMockAccountStore(),
		OutboxStore:  newMockOutboxStore(),
		BaseURL:      "https://rollbook.test",
		GenerateID:   seqIDs(),
		Now:          fixedNow,
	}

	if _, err := ExecuteRegisterAccount(context.Background(), RegisterAccountInput{}, deps); err == nil {
		t.Error("expected error for empty email")
	}
}
