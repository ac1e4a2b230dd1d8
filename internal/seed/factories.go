package seed

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"skillswap/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// skillCatalog groups realistic skill names by category. Seeded users draw
// their offered and wanted skills from here so that searches and swap
// matching have overlapping data to work with.
var skillCatalog = map[string][]string{
	"music":     {"Guitar", "Piano", "Violin", "Singing", "Music Production", "DJing", "Drums"},
	"languages": {"Spanish", "French", "German", "Japanese", "Mandarin", "Italian", "Portuguese"},
	"tech":      {"Python", "JavaScript", "Go", "Web Design", "Data Analysis", "Linux", "SQL"},
	"crafts":    {"Knitting", "Woodworking", "Pottery", "Sewing", "Calligraphy", "Origami"},
	"cooking":   {"Baking", "Italian Cooking", "Sushi Making", "Vegan Cooking", "Barbecue"},
	"fitness":   {"Yoga", "Rock Climbing", "Swimming", "Chess", "Photography", "Salsa Dancing"},
}

var seedLocations = []string{
	"Berlin", "London", "Madrid", "Lisbon", "Amsterdam",
	"Paris", "Vienna", "Prague", "Dublin", "Copenhagen",
}

var availabilities = []models.Availability{
	models.AvailabilityWeekdays,
	models.AvailabilityWeekends,
	models.AvailabilityEvenings,
	models.AvailabilityFlexible,
}

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by Seed and by tests.
type Factory struct {
	db   *gorm.DB
	rand *rand.Rand

	// password hash shared by all seeded users; bcrypt per user would slow
	// large seeds down considerably
	passwordHash string
}

// NewFactory creates a Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB) *Factory {
	gofakeit.Seed(time.Now().UnixNano())
	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	return &Factory{
		db:           db,
		rand:         rand.New(rand.NewSource(time.Now().UnixNano())),
		passwordHash: string(hash),
	}
}

// CreateUser constructs and persists a sample user with a random profile and
// a handful of offered and wanted skills. Optional override functions may
// modify the generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	name := gofakeit.Name()
	joined := time.Now().Add(-time.Duration(f.rand.Intn(365*24)) * time.Hour)

	user := &models.User{
		Name:           name,
		Email:          uniqueEmail(name),
		Password:       f.passwordHash,
		ProfilePicture: fmt.Sprintf("https://i.pravatar.cc/150?u=%s", gofakeit.UUID()),
		Location:       seedLocations[f.rand.Intn(len(seedLocations))],
		Bio:            gofakeit.Sentence(12),
		Availability:   availabilities[f.rand.Intn(len(availabilities))],
		IsPublic:       true,
		IsActive:       true,
		Role:           models.RoleUser,
		JoinedAt:       joined,
		LastActive:     time.Now().Add(-time.Duration(f.rand.Intn(72)) * time.Hour),
		Skills:         f.randomSkills(),
	}

	for _, override := range overrides {
		override(user)
	}

	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// randomSkills picks 1-3 offered and 1-3 wanted skills from the catalog,
// making sure the same name does not land on both sides.
func (f *Factory) randomSkills() []models.Skill {
	taken := make(map[string]bool)
	var skills []models.Skill

	pick := func(kind models.SkillKind, n int) {
		for i := 0; i < n; i++ {
			category := randomKey(f.rand, skillCatalog)
			names := skillCatalog[category]
			name := names[f.rand.Intn(len(names))]
			if taken[name] {
				continue
			}
			taken[name] = true
			skills = append(skills, models.Skill{Name: name, Category: category, Kind: kind})
		}
	}

	pick(models.SkillOffered, 1+f.rand.Intn(3))
	pick(models.SkillWanted, 1+f.rand.Intn(3))
	return skills
}

// CreateSwap persists a swap request between two users in the given lifecycle
// state, with the timestamps that state implies.
func (f *Factory) CreateSwap(requester, recipient *models.User, status models.SwapStatus) (*models.SwapRequest, error) {
	created := time.Now().Add(-time.Duration(1+f.rand.Intn(60*24)) * time.Hour)

	swap := &models.SwapRequest{
		RequesterID:    requester.ID,
		RecipientID:    recipient.ID,
		RequesterSkill: skillNameFor(requester, models.SkillOffered, f.rand),
		RecipientSkill: skillNameFor(recipient, models.SkillOffered, f.rand),
		Message:        gofakeit.Sentence(10),
		Status:         status,
		CreatedAt:      created,
	}

	switch status {
	case models.SwapStatusAccepted:
		t := created.Add(time.Hour)
		swap.AcceptedAt = &t
	case models.SwapStatusCompleted:
		accepted := created.Add(time.Hour)
		completed := accepted.Add(48 * time.Hour)
		swap.AcceptedAt = &accepted
		swap.CompletedAt = &completed
		swap.Notes = gofakeit.Sentence(8)
	case models.SwapStatusCancelled:
		t := created.Add(2 * time.Hour)
		swap.CancelledAt = &t
	}

	if err := f.db.Create(swap).Error; err != nil {
		return nil, err
	}
	return swap, nil
}

// RateCompletedSwap applies mutual ratings for a completed swap and updates
// both participants' running averages.
func (f *Factory) RateCompletedSwap(swap *models.SwapRequest) error {
	if swap.Status != models.SwapStatusCompleted {
		return fmt.Errorf("swap %d is %s, not completed", swap.ID, swap.Status)
	}

	for _, id := range []uint{swap.RequesterID, swap.RecipientID} {
		var user models.User
		if err := f.db.First(&user, id).Error; err != nil {
			return err
		}
		user.ApplyRating(float64(3 + f.rand.Intn(3)))
		if err := f.db.Model(&user).Updates(map[string]any{
			"rating":        user.Rating,
			"total_ratings": user.TotalRatings,
		}).Error; err != nil {
			return err
		}
	}
	return nil
}

func uniqueEmail(name string) string {
	local := strings.ToLower(strings.ReplaceAll(name, " ", "."))
	return fmt.Sprintf("%s.%d@%s", local, gofakeit.Number(100, 99999), gofakeit.DomainName())
}

func randomKey(r *rand.Rand, m map[string][]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys[r.Intn(len(keys))]
}

// skillNameFor returns one of the user's skills of the given kind, or a
// catalog fallback when the user has none.
func skillNameFor(u *models.User, kind models.SkillKind, r *rand.Rand) string {
	var names []string
	for _, s := range u.Skills {
		if s.Kind == kind {
			names = append(names, s.Name)
		}
	}
	if len(names) == 0 {
		return skillCatalog["music"][r.Intn(len(skillCatalog["music"]))]
	}
	return names[r.Intn(len(names))]
}
