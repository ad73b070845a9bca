package account

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"rollbook/internal/adapters/storage"
	domain "rollbook/internal/domain/account"
)

const dateLayout = "2006-01-02T15:04:05.999999999Z07:00"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new account store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

const accountColumns = "id, email, name, password_hash, google_id, role, status, created_at, failed_logins, locked_until, password_change_required"

// GetByID retrieves an Account by its ID.
// PRE: id is non-empty
// POST: Returns the entity or an error if not found
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Account, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM account WHERE id = ?", id)

	entity, err := scanAccount(row.Scan)
	if err == sql.ErrNoRows {
		return domain.Account{}, fmt.Errorf("account not found: %w", err)
	}
	return entity, err
}

// GetByEmail retrieves an Account by email.
// PRE: email is non-empty
// POST: Returns the entity or an error if not found
func (s *SQLiteStore) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM account WHERE email = ?", email)

	entity, err := scanAccount(row.Scan)
	if err == sql.ErrNoRows {
		return domain.Account{}, fmt.Errorf("account not found: %w", err)
	}
	return entity, err
}

// GetByGoogleID retrieves an Account by its linked Google identity.
// PRE: googleID is non-empty
// POST: Returns the entity or an error if not found
func (s *SQLiteStore) GetByGoogleID(ctx context.Context, googleID string) (domain.Account, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM account WHERE google_id = ?", googleID)

	entity, err := scanAccount(row.Scan)
	if err == sql.ErrNoRows {
		return domain.Account{}, fmt.Errorf("account not found: %w", err)
	}
	return entity, err
}

// Save persists an Account to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Account) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	fields := []string{"id", "email", "name", "password_hash", "google_id", "role", "status", "created_at", "failed_logins", "locked_until", "password_change_required"}
	placeholders := []string{"?", "?", "?", "?", "?", "?", "?", "?", "?", "?", "?"}
	updates := []string{
		"email=excluded.email",
		"name=excluded.name",
		"password_hash=excluded.password_hash",
		"google_id=excluded.google_id",
		"role=excluded.role",
		"status=excluded.status",
		"failed_logins=excluded.failed_logins",
		"locked_until=excluded.locked_until",
		"password_change_required=excluded.password_change_required",
	}

	query := fmt.Sprintf(
		"INSERT INTO account (%s) VALUES (%s) ON CONFLICT(id) DO UPDATE SET %s",
		strings.Join(fields, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(updates, ", "),
	)

	var lockedUntil any
	if !entity.LockedUntil.IsZero() {
		lockedUntil = entity.LockedUntil.Format(dateLayout)
	}

	_, err = tx.ExecContext(ctx, query,
		entity.ID,
		entity.Email,
		entity.Name,
		entity.PasswordHash,
		entity.GoogleID,
		entity.Role,
		entity.Status,
		entity.CreatedAt.Format(dateLayout),
		entity.FailedLogins,
		lockedUntil,
		boolToInt(entity.PasswordChangeRequired),
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// Count returns the total number of accounts.
// PRE: none
// POST: Returns total account count
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM account").Scan(&count)
	return count, err
}

// SaveActivationToken persists an activation token.
// PRE: token has non-empty ID, AccountID and Token
// POST: Token is persisted (insert, or update of the used flag)
func (s *SQLiteStore) SaveActivationToken(ctx context.Context, token domain.ActivationToken) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO activation_token (id, account_id, token, expires_at, used, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET used=excluded.used`,
		token.ID,
		token.AccountID,
		token.Token,
		token.ExpiresAt.Format(dateLayout),
		boolToInt(token.Used),
		token.CreatedAt.Format(dateLayout),
	)
	return err
}

// GetActivationTokenByToken retrieves an activation token by its token string.
// PRE: token is non-empty
// POST: Returns the token or an error if not found
func (s *SQLiteStore) GetActivationTokenByToken(ctx context.Context, token string) (domain.ActivationToken, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, account_id, token, expires_at, used, created_at
		 FROM activation_token WHERE token = ?`, token)

	entity, err := scanActivationToken(row.Scan)
	if err == sql.ErrNoRows {
		return domain.ActivationToken{}, fmt.Errorf("activation token not found: %w", err)
	}
	return entity, err
}

// InvalidateTokensForAccount marks every token for an account as used.
// PRE: accountID is non-empty
// POST: No outstanding token for the account can activate it
func (s *SQLiteStore) InvalidateTokensForAccount(ctx context.Context, accountID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE activation_token SET used = 1 WHERE account_id = ?`, accountID)
	return err
}

// scanAccount extracts an Account from a row scanner function.
func scanAccount(scan func(dest ...any) error) (domain.Account, error) {
	var entity domain.Account
	var createdAt string
	var lockedUntil sql.NullString
	var passwordChangeRequired int
	err := scan(
		&entity.ID,
		&entity.Email,
		&entity.Name,
		&entity.PasswordHash,
		&entity.GoogleID,
		&entity.Role,
		&entity.Status,
		&createdAt,
		&entity.FailedLogins,
		&lockedUntil,
		&passwordChangeRequired,
	)
	if err != nil {
		return domain.Account{}, err
	}
	entity.CreatedAt, _ = parseTime(createdAt)
	if lockedUntil.Valid && lockedUntil.String != "" {
		entity.LockedUntil, _ = parseTime(lockedUntil.String)
	}
	entity.PasswordChangeRequired = passwordChangeRequired != 0
	return entity, nil
}

// scanActivationToken extracts an ActivationToken from a row scanner function.
func scanActivationToken(scan func(dest ...any) error) (domain.ActivationToken, error) {
	var entity domain.ActivationToken
	var expiresAt, createdAt string
	var used int
	err := scan(
		&entity.ID,
		&entity.AccountID,
		&entity.Token,
		&expiresAt,
		&used,
		&createdAt,
	)
	if err != nil {
		return domain.ActivationToken{}, err
	}
	entity.ExpiresAt, _ = parseTime(expiresAt)
	entity.CreatedAt, _ = parseTime(createdAt)
	entity.Used = used != 0
	return entity, nil
}

func parseTime(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
	}
	for _, f := range formats {
		t, err := time.Parse(f, s)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse time: %s", s)
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
