package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/prn-tf/socrp-membership/internal/domain"
	"github.com/prn-tf/socrp-membership/internal/repository"
)

// accountRepository implements repository.AccountRepository for SQLite.
type accountRepository struct {
	db *DB
}

// NewAccountRepository creates a new SQLite account repository.
func NewAccountRepository(db *DB) repository.AccountRepository {
	return &accountRepository{db: db}
}

const accountColumns = `id, email, full_name, phone, membership_id, password_hash,
	is_verified, is_active, is_blocked, is_staff, created_at, updated_at`

// Create inserts a new account.
func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		account.ID,
		domain.NormalizeEmail(account.Email),
		account.FullName,
		account.Phone,
		account.MembershipID,
		account.PasswordHash,
		boolToInt(account.IsVerified),
		boolToInt(account.IsActive),
		boolToInt(account.IsBlocked),
		boolToInt(account.IsStaff),
		formatTime(account.CreatedAt),
		formatTime(account.UpdatedAt),
	)
	if err != nil {
		switch {
		case isUniqueViolationOn(err, "accounts.email"):
			return domain.ErrDuplicateEmail
		case isUniqueViolationOn(err, "accounts.membership_id"):
			return domain.ErrDuplicateMembershipID
		}
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// GetByID retrieves an account by ID.
func (r *accountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = ?`
	return r.getOne(ctx, query, id)
}

// GetByEmail retrieves an account by email.
func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = ?`
	return r.getOne(ctx, query, domain.NormalizeEmail(email))
}

func (r *accountRepository) getOne(ctx context.Context, query string, arg any) (*domain.Account, error) {
	account, err := scanAccount(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if isNoRows(err) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

// Update persists the mutable fields of an account.
func (r *accountRepository) Update(ctx context.Context, account *domain.Account) error {
	query := `
		UPDATE accounts
		SET full_name = ?, phone = ?, is_active = ?, is_staff = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		account.FullName,
		account.Phone,
		boolToInt(account.IsActive),
		boolToInt(account.IsStaff),
		formatTime(account.UpdatedAt),
		account.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}

	return requireAffected(result)
}

// SetBlocked sets or clears the blocked flag.
func (r *accountRepository) SetBlocked(ctx context.Context, id string, blocked bool) error {
	query := `UPDATE accounts SET is_blocked = ?, updated_at = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, boolToInt(blocked), formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("failed to set blocked flag: %w", err)
	}

	return requireAffected(result)
}

// MarkVerified flips verified and active only if they are not both set already.
func (r *accountRepository) MarkVerified(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE accounts
		SET is_verified = 1, is_active = 1, updated_at = ?
		WHERE id = ? AND NOT (is_verified = 1 AND is_active = 1)
	`

	result, err := r.db.ExecContext(ctx, query, formatTime(time.Now()), id)
	if err != nil {
		return false, fmt.Errorf("failed to mark account verified: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 1 {
		return true, nil
	}

	var exists int
	err = r.db.QueryRowContext(ctx, `SELECT 1 FROM accounts WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		if isNoRows(err) {
			return false, repository.ErrNotFound
		}
		return false, fmt.Errorf("failed to check account existence: %w", err)
	}
	return false, nil
}

// List returns accounts with filtering and pagination.
func (r *accountRepository) List(ctx context.Context, opts repository.AccountListOptions) (*repository.ListResult[domain.Account], error) {
	where, args := accountFilter(opts)

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count accounts: %w", err)
	}

	query := `SELECT ` + accountColumns + ` FROM accounts` + where +
		` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, append(args, opts.Limit, opts.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var items []*domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		items = append(items, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}

	return &repository.ListResult[domain.Account]{
		Items:  items,
		Total:  total,
		Offset: opts.Offset,
		Limit:  opts.Limit,
	}, nil
}

// Stats returns aggregate account counts.
func (r *accountRepository) Stats(ctx context.Context) (*domain.AccountStats, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN is_active = 1 AND is_blocked = 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN is_blocked = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN is_active = 0 AND is_blocked = 0 THEN 1 ELSE 0 END), 0)
		FROM accounts
	`

	stats := &domain.AccountStats{}
	err := r.db.QueryRowContext(ctx, query).Scan(
		&stats.TotalUsers,
		&stats.ActiveUsers,
		&stats.BlockedUsers,
		&stats.PendingUsers,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compute account stats: %w", err)
	}
	return stats, nil
}

// accountFilter builds the WHERE clause for list queries.
func accountFilter(opts repository.AccountListOptions) (string, []any) {
	var clauses []string
	var args []any

	switch opts.Status {
	case domain.StatusActive:
		clauses = append(clauses, "is_active = 1 AND is_blocked = 0")
	case domain.StatusBlocked:
		clauses = append(clauses, "is_blocked = 1")
	case domain.StatusPending:
		clauses = append(clauses, "is_active = 0 AND is_blocked = 0")
	}

	if s := strings.TrimSpace(opts.Search); s != "" {
		pattern := "%" + escapeLike(strings.ToLower(s)) + "%"
		clauses = append(clauses, `(LOWER(full_name) LIKE ? ESCAPE '\' OR email LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// escapeLike escapes LIKE wildcards in user input.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// requireAffected maps a zero-row update to ErrNotFound.
func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*domain.Account, error) {
	account := &domain.Account{}
	var isVerified, isActive, isBlocked, isStaff int
	var createdAt, updatedAt string

	err := row.Scan(
		&account.ID,
		&account.Email,
		&account.FullName,
		&account.Phone,
		&account.MembershipID,
		&account.PasswordHash,
		&isVerified,
		&isActive,
		&isBlocked,
		&isStaff,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	account.IsVerified = isVerified == 1
	account.IsActive = isActive == 1
	account.IsBlocked = isBlocked == 1
	account.IsStaff = isStaff == 1

	if account.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if account.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return account, nil
}

// Ensure accountRepository implements repository.AccountRepository
var _ repository.AccountRepository = (*accountRepository)(nil)
