package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/prn-tf/socrp-membership/internal/domain"
	"github.com/prn-tf/socrp-membership/internal/repository"
)

// shareLinkRepository implements repository.ShareLinkRepository for SQLite.
type shareLinkRepository struct {
	db *DB
}

// NewShareLinkRepository creates a new SQLite share link repository.
func NewShareLinkRepository(db *DB) repository.ShareLinkRepository {
	return &shareLinkRepository{db: db}
}

// Create inserts a new share link.
func (r *shareLinkRepository) Create(ctx context.Context, link *domain.ShareLink) error {
	query := `
		INSERT INTO share_links (id, account_id, token_hash, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		link.ID,
		link.AccountID,
		link.TokenHash,
		formatTime(link.ExpiresAt),
		formatTime(link.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrShareLinkExists
		}
		if isForeignKeyViolation(err) {
			return domain.ErrAccountNotFound
		}
		return fmt.Errorf("failed to create share link: %w", err)
	}

	return nil
}

// GetByTokenHash retrieves a share link by token digest.
func (r *shareLinkRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.ShareLink, error) {
	query := `
		SELECT id, account_id, token_hash, expires_at, created_at
		FROM share_links
		WHERE token_hash = ?
	`

	link, err := scanShareLink(r.db.QueryRowContext(ctx, query, tokenHash))
	if err != nil {
		if isNoRows(err) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get share link: %w", err)
	}
	return link, nil
}

// ListByAccount returns the owner's links with access counts.
func (r *shareLinkRepository) ListByAccount(ctx context.Context, accountID string) ([]*repository.ShareLinkSummary, error) {
	query := `
		SELECT l.id, l.account_id, l.token_hash, l.expires_at, l.created_at,
			(SELECT COUNT(*) FROM share_link_accesses a WHERE a.share_link_id = l.id)
		FROM share_links l
		WHERE l.account_id = ?
		ORDER BY l.created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list share links: %w", err)
	}
	defer rows.Close()

	var summaries []*repository.ShareLinkSummary
	for rows.Next() {
		var (
			link                 domain.ShareLink
			expiresAt, createdAt string
			count                int64
		)
		if err := rows.Scan(&link.ID, &link.AccountID, &link.TokenHash, &expiresAt, &createdAt, &count); err != nil {
			return nil, fmt.Errorf("failed to scan share link: %w", err)
		}
		if link.ExpiresAt, err = parseTime(expiresAt); err != nil {
			return nil, fmt.Errorf("failed to parse expires_at: %w", err)
		}
		if link.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		summaries = append(summaries, &repository.ShareLinkSummary{Link: &link, AccessCount: count})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating share links: %w", err)
	}

	return summaries, nil
}

// RecordAccess appends an access log entry.
func (r *shareLinkRepository) RecordAccess(ctx context.Context, access *domain.ShareLinkAccess) error {
	query := `
		INSERT INTO share_link_accesses (share_link_id, ip_address, user_agent, accessed_at)
		VALUES (?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		access.ShareLinkID,
		nullString(access.IPAddress),
		nullString(access.UserAgent),
		formatTime(access.AccessedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to record share link access: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}
	access.ID = id

	return nil
}

// CountAccesses returns the number of access entries for a link.
func (r *shareLinkRepository) CountAccesses(ctx context.Context, shareLinkID string) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM share_link_accesses WHERE share_link_id = ?`, shareLinkID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count share link accesses: %w", err)
	}
	return count, nil
}

func scanShareLink(row rowScanner) (*domain.ShareLink, error) {
	link := &domain.ShareLink{}
	var expiresAt, createdAt string

	if err := row.Scan(&link.ID, &link.AccountID, &link.TokenHash, &expiresAt, &createdAt); err != nil {
		return nil, err
	}

	var err error
	if link.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return nil, fmt.Errorf("failed to parse expires_at: %w", err)
	}
	if link.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	return link, nil
}

// nullString stores empty strings as NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Ensure shareLinkRepository implements repository.ShareLinkRepository
var _ repository.ShareLinkRepository = (*shareLinkRepository)(nil)
