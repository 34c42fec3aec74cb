package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/prn-tf/socrp-membership/internal/domain"
	"github.com/prn-tf/socrp-membership/internal/repository"
)

// shareLinkRepository implements repository.ShareLinkRepository.
type shareLinkRepository struct {
	db *DB
}

// NewShareLinkRepository creates a new PostgreSQL share link repository.
func NewShareLinkRepository(db *DB) repository.ShareLinkRepository {
	return &shareLinkRepository{db: db}
}

// Create inserts a new share link.
func (r *shareLinkRepository) Create(ctx context.Context, link *domain.ShareLink) error {
	query := `
		INSERT INTO share_links (id, account_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.Pool.Exec(ctx, query, link.ID, link.AccountID, link.TokenHash, link.ExpiresAt, link.CreatedAt)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
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
		WHERE token_hash = $1
	`

	link, err := scanShareLink(r.db.Pool.QueryRow(ctx, query, tokenHash))
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
	if _, err := uuid.Parse(accountID); err != nil {
		return nil, nil
	}

	query := `
		SELECT l.id, l.account_id, l.token_hash, l.expires_at, l.created_at, COUNT(a.id)
		FROM share_links l
		LEFT JOIN share_link_accesses a ON a.share_link_id = l.id
		WHERE l.account_id = $1
		GROUP BY l.id
		ORDER BY l.created_at DESC
	`

	rows, err := r.db.Pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list share links: %w", err)
	}
	defer rows.Close()

	var summaries []*repository.ShareLinkSummary
	for rows.Next() {
		link := &domain.ShareLink{}
		var count int64
		if err := rows.Scan(&link.ID, &link.AccountID, &link.TokenHash, &link.ExpiresAt, &link.CreatedAt, &count); err != nil {
			return nil, fmt.Errorf("failed to scan share link: %w", err)
		}
		link.ExpiresAt = link.ExpiresAt.UTC()
		link.CreatedAt = link.CreatedAt.UTC()
		summaries = append(summaries, &repository.ShareLinkSummary{Link: link, AccessCount: count})
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
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := r.db.Pool.QueryRow(ctx, query,
		access.ShareLinkID,
		nullable(access.IPAddress),
		nullable(access.UserAgent),
		access.AccessedAt,
	).Scan(&access.ID)
	if err != nil {
		return fmt.Errorf("failed to record share link access: %w", err)
	}

	return nil
}

// CountAccesses returns the number of access entries for a link.
func (r *shareLinkRepository) CountAccesses(ctx context.Context, shareLinkID string) (int64, error) {
	var count int64
	err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM share_link_accesses WHERE share_link_id = $1`, shareLinkID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count share link accesses: %w", err)
	}
	return count, nil
}

func scanShareLink(row pgx.Row) (*domain.ShareLink, error) {
	link := &domain.ShareLink{}
	if err := row.Scan(&link.ID, &link.AccountID, &link.TokenHash, &link.ExpiresAt, &link.CreatedAt); err != nil {
		return nil, err
	}
	link.ExpiresAt = link.ExpiresAt.UTC()
	link.CreatedAt = link.CreatedAt.UTC()
	return link, nil
}

// nullable stores empty strings as NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Ensure shareLinkRepository implements repository.ShareLinkRepository
var _ repository.ShareLinkRepository = (*shareLinkRepository)(nil)
