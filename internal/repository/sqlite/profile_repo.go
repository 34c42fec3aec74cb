package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/prn-tf/socrp-membership/internal/domain"
	"github.com/prn-tf/socrp-membership/internal/repository"
)

// dateLayout is the stored form of calendar dates.
const dateLayout = "2006-01-02"

// profileRepository implements repository.ProfileRepository for SQLite.
type profileRepository struct {
	db *DB
}

// NewProfileRepository creates a new SQLite profile repository.
func NewProfileRepository(db *DB) repository.ProfileRepository {
	return &profileRepository{db: db}
}

// GetByAccountID loads the profile and its nested lists in one read transaction.
func (r *profileRepository) GetByAccountID(ctx context.Context, accountID string) (*domain.Profile, error) {
	var profile *domain.Profile

	err := r.db.WithTx(ctx, nil, func(tx *sql.Tx) error {
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

func getProfileRow(ctx context.Context, tx *sql.Tx, accountID string) (*domain.Profile, error) {
	query := `
		SELECT account_id, date_of_birth, gender, contact, address, skills, languages, photo_key, resume_key
		FROM profiles
		WHERE account_id = ?
	`

	p := &domain.Profile{}
	var dob sql.NullString
	var gender string
	err := tx.QueryRowContext(ctx, query, accountID).Scan(
		&p.AccountID,
		&dob,
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

	p.Gender = domain.Gender(gender)
	if dob.Valid && dob.String != "" {
		t, err := time.Parse(dateLayout, dob.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse date_of_birth: %w", err)
		}
		p.DateOfBirth = &t
	}

	return p, nil
}

func listEducations(ctx context.Context, tx *sql.Tx, accountID string) ([]domain.Education, error) {
	query := `
		SELECT degree, university, year_of_completion, marks_cgpa
		FROM educations
		WHERE account_id = ?
		ORDER BY year_of_completion DESC, id
	`

	rows, err := tx.QueryContext(ctx, query, accountID)
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

func listExperiences(ctx context.Context, tx *sql.Tx, accountID string) ([]domain.WorkExperience, error) {
	query := `
		SELECT company_name, designation, start_date, end_date, responsibilities
		FROM work_experiences
		WHERE account_id = ?
		ORDER BY start_date DESC, id
	`

	rows, err := tx.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list work experiences: %w", err)
	}
	defer rows.Close()

	experiences := []domain.WorkExperience{}
	for rows.Next() {
		var w domain.WorkExperience
		var start string
		var end sql.NullString
		if err := rows.Scan(&w.CompanyName, &w.Designation, &start, &end, &w.Responsibilities); err != nil {
			return nil, fmt.Errorf("failed to scan work experience: %w", err)
		}
		if w.StartDate, err = time.Parse(dateLayout, start); err != nil {
			return nil, fmt.Errorf("failed to parse start_date: %w", err)
		}
		if end.Valid && end.String != "" {
			t, err := time.Parse(dateLayout, end.String)
			if err != nil {
				return nil, fmt.Errorf("failed to parse end_date: %w", err)
			}
			w.EndDate = &t
		}
		experiences = append(experiences, w)
	}
	return experiences, rows.Err()
}

// Ensure profileRepository implements repository.ProfileRepository
var _ repository.ProfileRepository = (*profileRepository)(nil)
