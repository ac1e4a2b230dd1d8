// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// Availability enumerates when a user is free to meet for a swap.
type Availability string

const (
	AvailabilityWeekdays Availability = "weekdays"
	AvailabilityWeekends Availability = "weekends"
	AvailabilityEvenings Availability = "evenings"
	AvailabilityFlexible Availability = "flexible"
)

// Role enumerates account roles.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// SkillKind distinguishes skills a user teaches from skills they want to learn.
type SkillKind string

const (
	SkillOffered SkillKind = "offered"
	SkillWanted  SkillKind = "wanted"
)

// Skill is a single skill entry on a user's profile. Category is optional
// free text ("Development", "Design", ...).
type Skill struct {
	ID       uint      `gorm:"primaryKey" json:"-"`
	UserID   uint      `gorm:"not null;index:idx_skills_user" json:"-"`
	Name     string    `gorm:"not null;index:idx_skills_name" json:"name"`
	Category string    `json:"category,omitempty"`
	Kind     SkillKind `gorm:"type:varchar(10);not null;index:idx_skills_kind" json:"-"`
}

// TableName specifies the table name for GORM
func (Skill) TableName() string {
	return "skills"
}

// User represents an account and its public profile in the skill directory.
type User struct {
	ID             uint         `gorm:"primaryKey" json:"id"`
	Name           string       `gorm:"not null" json:"name"`
	Email          string       `gorm:"uniqueIndex;not null" json:"email"`
	Password       string       `gorm:"not null" json:"-"`
	ProfilePicture string       `json:"profile_picture"`
	Location       string       `gorm:"index" json:"location"`
	Bio            string       `gorm:"type:text" json:"bio"`
	Availability   Availability `gorm:"type:varchar(20);default:'flexible'" json:"availability"`
	IsPublic       bool         `gorm:"default:true" json:"is_public"`
	IsActive       bool         `gorm:"default:true;index" json:"is_active"`
	Role           Role         `gorm:"type:varchar(10);default:'user'" json:"role"`
	Rating         float64      `gorm:"default:0;index" json:"rating"`
	TotalRatings   int          `gorm:"default:0" json:"total_ratings"`

	Skills []Skill `gorm:"foreignKey:UserID" json:"skills,omitempty"`

	// Reset fields are never serialized.
	ResetPasswordToken   string     `json:"-"`
	ResetPasswordExpires *time.Time `json:"-"`

	JoinedAt   time.Time `gorm:"autoCreateTime" json:"joined_at"`
	LastActive time.Time `gorm:"autoCreateTime" json:"last_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// onlineWindow is how recently a user must have been active to count as online.
const onlineWindow = 15 * time.Minute

// ApplyRating folds a new rating into the running mean.
// rating' = (rating*totalRatings + newRating) / (totalRatings+1)
func (u *User) ApplyRating(newRating float64) {
	u.Rating = (u.Rating*float64(u.TotalRatings) + newRating) / float64(u.TotalRatings+1)
	u.TotalRatings++
}

// SkillsOffered returns the names of the skills the user teaches.
func (u *User) SkillsOffered() []string {
	return u.skillNames(SkillOffered)
}

// SkillsWanted returns the names of the skills the user wants to learn.
func (u *User) SkillsWanted() []string {
	return u.skillNames(SkillWanted)
}

func (u *User) skillNames(kind SkillKind) []string {
	names := make([]string, 0, len(u.Skills))
	for _, s := range u.Skills {
		if s.Kind == kind {
			names = append(names, s.Name)
		}
	}
	return names
}

// IsOnline reports whether the user was active within the online window.
func (u *User) IsOnline(now time.Time) bool {
	return now.Sub(u.LastActive) < onlineWindow
}

// MemberSince returns the join timestamp, falling back to the record
// creation time for accounts imported without one.
func (u *User) MemberSince() time.Time {
	if !u.JoinedAt.IsZero() {
		return u.JoinedAt
	}
	return u.CreatedAt
}

// Profile is the public-safe projection of a User returned by search and
// directory endpoints. It never carries credentials or reset fields.
type Profile struct {
	ID             uint         `json:"id"`
	Name           string       `json:"name"`
	Email          string       `json:"email,omitempty"`
	ProfilePicture string       `json:"profile_picture"`
	Location       string       `json:"location"`
	Bio            string       `json:"bio"`
	Availability   Availability `json:"availability"`
	Rating         float64      `json:"rating"`
	TotalRatings   int          `json:"total_ratings"`
	SkillsOffered  []string     `json:"skills_offered"`
	SkillsWanted   []string     `json:"skills_wanted"`
	SkillCount     int          `json:"skill_count"`
	IsOnline       bool         `json:"is_online"`
	MemberSince    time.Time    `json:"member_since"`
	LastActive     time.Time    `json:"last_active"`
}

// ToProfile builds the public projection, annotated relative to now.
func (u *User) ToProfile(now time.Time) Profile {
	offered := u.SkillsOffered()
	return Profile{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		ProfilePicture: u.ProfilePicture,
		Location:       u.Location,
		Bio:            u.Bio,
		Availability:   u.Availability,
		Rating:         u.Rating,
		TotalRatings:   u.TotalRatings,
		SkillsOffered:  offered,
		SkillsWanted:   u.SkillsWanted(),
		SkillCount:     len(offered),
		IsOnline:       u.IsOnline(now),
		MemberSince:    u.MemberSince(),
		LastActive:     u.LastActive,
	}
}

// ValidAvailability reports whether v is one of the accepted availability values.
func ValidAvailability(v Availability) bool {
	switch v {
	case AvailabilityWeekdays, AvailabilityWeekends, AvailabilityEvenings, AvailabilityFlexible:
		return true
	}
	return false
}
