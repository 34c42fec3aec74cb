package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/prn-tf/socrp-membership/internal/domain"
	"github.com/prn-tf/socrp-membership/internal/repository"
)

// profileRepository implements repository.ProfileRepository.
type profileRepository struct {
	db *DB
}

// NewProfileRepository creates a new PostgreSQL profile repository.
func NewProfileRepository(db *DB) repository.ProfileRepository {
	return &profileRepository{db: db}
}

// GetByAccountID loads the profile and its nested lists from one snapshot.
func (r *profileRepository) GetByAccountID(ctx context.Context, accountID string) (*domain.Profile, error) {
	if _, err := uuid.Parse(accountID); err != nil {
		return nil, repository.ErrNotFound
	}

	var profile *domain.Profile
	opts := pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}

	err := r.db.WithTx(ctx, opts, func(tx pgx.Tx) error {
		p, err := getProfileRow(ctx, tx, accountID)
		if err != nil {
			return err
		}
		if p.Educations, err = listEducations(ctx, tx, accountID); err != nil {
			return err
		}
		if p.Experiences, err = listExperiences(ctx, tx, accountID); err != nil {
			return err
		}
		profile = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	return profile, nil
}

func getProfileRow(ctx context.Context, q Querier, accountID string) (*domain.Profile, error) {
	query := `
		SELECT account_id, date_of_birth, gender, contact, address, skills, languages, photo_key, resume_key
		FROM profiles
		WHERE account_id = $1
	`

	p := &domain.Profile{}
	var gender *string
	err := q.QueryRow(ctx, query, accountID).Scan(
		&p.AccountID,
		&p.DateOfBirth,
		&gender,
		&p.Contact,
		&p.Address,
		&p.Skills,
		&p.Languages,
		&p.PhotoKey,
		&p.ResumeKey,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if gender != nil {
		p.Gender = domain.Gender(*gender)
	}

	return p, nil
}

func listEducations(ctx context.Context, q Querier, accountID string) ([]domain.Education, error) {
	query := `
		SELECT degree, university, year_of_completion, marks_cgpa
		FROM educations
		WHERE account_id = $1
		ORDER BY year_of_completion DESC, id
	`

	rows, err := q.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list educations: %w", err)
	}
	defer rows.Close()

	educations := []domain.Education{}
	for rows.Next() {
		var e domain.Education
		if err := rows.Scan(&e.Degree, &e.University, &e.YearOfCompletion, &e.MarksCGPA); err != nil {
			return nil, fmt.Errorf("failed to scan education: %w", err)
		}
		educations = append(educations, e)
	}
	return educations, rows.Err()
}

func listExperiences(ctx context.Context, q Querier, accountID string) ([]domain.WorkExperience, error) {
	query := `
		SELECT company_name, designation, start_date, end_date, responsibilities
		FROM work_experiences
		WHERE account_id = $1
		ORDER BY start_date DESC, id
	`

	rows, err := q.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list work experiences: %w", err)
	}
	defer rows.Close()

	experiences := []domain.WorkExperience{}
	for rows.Next() {
		var w domain.WorkExperience
		var end *time.Time
		if err := rows.Scan(&w.CompanyName, &w.Designation, &w.StartDate, &end, &w.Responsibilities); err != nil {
			return nil, fmt.Errorf("failed to scan work experience: %w", err)
		}
		w.EndDate = end
		experiences = append(experiences, w)
	}
	return experiences, rows.Err()
}

// Ensure profileRepository implements repository.ProfileRepository
var _ repository.ProfileRepository = (*profileRepository)(nil)
