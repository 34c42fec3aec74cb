package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/prn-tf/socrp-membership/internal/domain"
	"github.com/prn-tf/socrp-membership/internal/repository"
)

// accountRepository implements repository.AccountRepository.
type accountRepository struct {
	db *DB
}

// NewAccountRepository creates a new PostgreSQL account repository.
func NewAccountRepository(db *DB) repository.AccountRepository {
	return &accountRepository{db: db}
}

const accountColumns = `id, email, full_name, phone, membership_id, password_hash,
	is_verified, is_active, is_blocked, is_staff, created_at, updated_at`

// Create inserts a new account.
func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		account.ID,
		domain.NormalizeEmail(account.Email),
		account.FullName,
		account.Phone,
		account.MembershipID,
		account.PasswordHash,
		account.IsVerified,
		account.IsActive,
		account.IsBlocked,
		account.IsStaff,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			switch constraint {
			case constraintAccountEmail:
				return domain.ErrDuplicateEmail
			case constraintAccountMembershipID:
				return domain.ErrDuplicateMembershipID
			}
		}
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// GetByID retrieves an account by ID.
func (r *accountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, repository.ErrNotFound
	}
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetByEmail retrieves an account by email.
func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE LOWER(email) = $1`
	return r.getOne(ctx, query, domain.NormalizeEmail(email))
}

func (r *accountRepository) getOne(ctx context.Context, query string, arg any) (*domain.Account, error) {
	account, err := scanAccount(r.db.Pool.QueryRow(ctx, query, arg))
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
		SET full_name = $2, phone = $3, is_active = $4, is_staff = $5, updated_at = $6
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query,
		account.ID,
		account.FullName,
		account.Phone,
		account.IsActive,
		account.IsStaff,
		account.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// SetBlocked sets or clears the blocked flag.
func (r *accountRepository) SetBlocked(ctx context.Context, id string, blocked bool) error {
	if _, err := uuid.Parse(id); err != nil {
		return repository.ErrNotFound
	}

	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE accounts SET is_blocked = $2, updated_at = $3 WHERE id = $1`,
		id, blocked, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to set blocked flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// MarkVerified flips verified and active only if they are not both set already.
func (r *accountRepository) MarkVerified(ctx context.Context, id string) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, repository.ErrNotFound
	}

	query := `
		UPDATE accounts
		SET is_verified = TRUE, is_active = TRUE, updated_at = $2
		WHERE id = $1 AND NOT (is_verified AND is_active)
	`

	tag, err := r.db.Pool.Exec(ctx, query, id, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("failed to mark account verified: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	var exists bool
	err = r.db.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check account existence: %w", err)
	}
	if !exists {
		return false, repository.ErrNotFound
	}
	return false, nil
}

// List returns accounts with filtering and pagination.
func (r *accountRepository) List(ctx context.Context, opts repository.AccountListOptions) (*repository.ListResult[domain.Account], error) {
	where, args := accountFilter(opts)

	var total int64
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM accounts`+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count accounts: %w", err)
	}

	n := len(args)
	query := `SELECT ` + accountColumns + ` FROM accounts` + where +
		` ORDER BY created_at DESC, id LIMIT $` + strconv.Itoa(n+1) + ` OFFSET $` + strconv.Itoa(n+2)

	rows, err := r.db.Pool.Query(ctx, query, append(args, opts.Limit, opts.Offset)...)
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
			COUNT(*) FILTER (WHERE is_active AND NOT is_blocked),
			COUNT(*) FILTER (WHERE is_blocked),
			COUNT(*) FILTER (WHERE NOT is_active AND NOT is_blocked)
		FROM accounts
	`

	stats := &domain.AccountStats{}
	err := r.db.Pool.QueryRow(ctx, query).Scan(
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
		clauses = append(clauses, "is_active AND NOT is_blocked")
	case domain.StatusBlocked:
		clauses = append(clauses, "is_blocked")
	case domain.StatusPending:
		clauses = append(clauses, "NOT is_active AND NOT is_blocked")
	}

	if s := strings.TrimSpace(opts.Search); s != "" {
		args = append(args, "%"+escapeLike(strings.ToLower(s))+"%")
		p := "$" + strconv.Itoa(len(args))
		clauses = append(clauses, "(LOWER(full_name) LIKE "+p+" OR LOWER(email) LIKE "+p+")")
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// escapeLike escapes LIKE wildcards; backslash is the default escape in PostgreSQL.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	account := &domain.Account{}
	err := row.Scan(
		&account.ID,
		&account.Email,
		&account.FullName,
		&account.Phone,
		&account.MembershipID,
		&account.PasswordHash,
		&account.IsVerified,
		&account.IsActive,
		&account.IsBlocked,
		&account.IsStaff,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	account.CreatedAt = account.CreatedAt.UTC()
	account.UpdatedAt = account.UpdatedAt.UTC()
	return account, nil
}

// Ensure accountRepository implements repository.AccountRepository
var _ repository.AccountRepository = (*accountRepository)(nil)
