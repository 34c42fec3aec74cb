package domain

import "time"

// Gender codes stored on profiles.
type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
	GenderOther  Gender = "O"
)

// Profile holds the extended member data attached to an account.
type Profile struct {
	AccountID   string
	DateOfBirth *time.Time
	Gender      Gender
	Contact     string
	Address     string
	Skills      string
	Languages   string

	// PhotoKey and ResumeKey are object keys in file storage, empty when unset.
	PhotoKey  string
	ResumeKey string

	Educations  []Education
	Experiences []WorkExperience
}

// Education is one degree on a profile.
type Education struct {
	Degree           string `json:"degree"`
	University       string `json:"university"`
	YearOfCompletion int    `json:"year_of_completion"`
	MarksCGPA        string `json:"marks_cgpa"`
}

// WorkExperience is one position on a profile. EndDate is nil for a current role.
type WorkExperience struct {
	CompanyName      string     `json:"company_name"`
	Designation      string     `json:"designation"`
	StartDate        time.Time  `json:"start_date"`
	EndDate          *time.Time `json:"end_date,omitempty"`
	Responsibilities string     `json:"responsibilities"`
}

// ProfileView is the read-only projection served to share-link viewers.
// It deliberately omits email, contact, address and date of birth.
type ProfileView struct {
	FullName    string           `json:"full_name"`
	PhotoURL    string           `json:"profile_photo,omitempty"`
	ResumeURL   string           `json:"resume,omitempty"`
	Skills      string           `json:"skills"`
	Languages   string           `json:"languages"`
	Educations  []Education      `json:"educations"`
	Experiences []WorkExperience `json:"experiences"`
}

// OwnProfileView is what an authenticated member sees about themselves.
type OwnProfileView struct {
	ProfileView
	Email        string `json:"email"`
	MembershipID string `json:"membership_id"`
	IsVerified   bool   `json:"is_verified"`
}

// NewProfileView projects an account and its profile. profile may be nil
// when the member has not filled anything in yet.
func NewProfileView(account *Account, profile *Profile) ProfileView {
	view := ProfileView{
		FullName:    account.FullName,
		Educations:  []Education{},
		Experiences: []WorkExperience{},
	}
	if profile == nil {
		return view
	}
	view.Skills = profile.Skills
	view.Languages = profile.Languages
	if profile.Educations != nil {
		view.Educations = profile.Educations
	}
	if profile.Experiences != nil {
		view.Experiences = profile.Experiences
	}
	return view
}
