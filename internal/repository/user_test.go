package repository

import (
	"context"
	"testing"
	"time"

	"skillswap/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetByEmailCaseInsensitive(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	createUser(t, db, &models.User{Name: "Alice", Email: "alice@example.com"})

	user, err := repo.GetByEmail(ctx, "ALICE@Example.COM")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "Alice", user.Name)
}

func TestGetByEmailMissingReturnsNilNil(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)

	user, err := repo.GetByEmail(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestGetByIDNotFound(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)

	_, err := repo.GetByID(context.Background(), 999)
	require.Error(t, err)
	appErr, ok := err.(*models.AppError)
	require.True(t, ok)
	assert.Equal(t, models.CodeNotFound, appErr.Code)
}

func TestReplaceSkills(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	u := createUser(t, db, &models.User{Name: "Bob", Email: "bob@example.com"})
	require.NoError(t, repo.ReplaceSkills(ctx, u.ID, []models.Skill{
		{Name: "Go", Category: "Development", Kind: models.SkillOffered},
		{Name: "Spanish", Kind: models.SkillWanted},
	}))

	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Go"}, got.SkillsOffered())
	assert.Equal(t, []string{"Spanish"}, got.SkillsWanted())

	// A replace drops the previous set entirely.
	require.NoError(t, repo.ReplaceSkills(ctx, u.ID, []models.Skill{
		{Name: "Piano", Kind: models.SkillOffered},
	}))
	got, err = repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Piano"}, got.SkillsOffered())
	assert.Empty(t, got.SkillsWanted())
}

func TestSearchExcludesCallerPrivateAndInactive(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	caller := createUser(t, db, &models.User{Name: "Caller", Email: "caller@example.com"})
	createUser(t, db, &models.User{Name: "Visible", Email: "visible@example.com"})
	private := createUser(t, db, &models.User{Name: "Private", Email: "private@example.com"})
	inactive := createUser(t, db, &models.User{Name: "Gone", Email: "gone@example.com"})
	require.NoError(t, db.Model(private).Update("is_public", false).Error)
	require.NoError(t, db.Model(inactive).Update("is_active", false).Error)

	users, total, err := repo.Search(ctx, caller.ID, SearchFilters{}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, users, 1)
	assert.Equal(t, "Visible", users[0].Name)
}

func TestSearchKeywordMatchesNameBioAndSkills(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	byName := createUser(t, db, &models.User{Name: "Guitar Greg", Email: "greg@example.com"})
	byBio := createUser(t, db, &models.User{Name: "Sam", Email: "sam@example.com", Bio: "I teach guitar on weekends"})
	bySkill := createUser(t, db, &models.User{Name: "Kim", Email: "kim@example.com"})
	createUser(t, db, &models.User{Name: "Unrelated", Email: "other@example.com"})
	require.NoError(t, repo.ReplaceSkills(ctx, bySkill.ID, []models.Skill{
		{Name: "Guitar", Kind: models.SkillOffered},
	}))

	users, total, err := repo.Search(ctx, 0, SearchFilters{Keyword: "GUITAR"}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	names := map[string]bool{}
	for _, u := range users {
		names[u.Name] = true
	}
	assert.True(t, names[byName.Name])
	assert.True(t, names[byBio.Name])
	assert.True(t, names[bySkill.Name])
}

func TestSearchFiltersAndSort(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	low := createUser(t, db, &models.User{Name: "Low", Email: "low@example.com", Location: "Berlin"})
	high := createUser(t, db, &models.User{Name: "High", Email: "high@example.com", Location: "Berlin"})
	createUser(t, db, &models.User{Name: "Elsewhere", Email: "else@example.com", Location: "Lisbon"})
	require.NoError(t, db.Model(low).Update("rating", 2.0).Error)
	require.NoError(t, db.Model(high).Update("rating", 4.5).Error)

	users, total, err := repo.Search(ctx, 0, SearchFilters{
		Location: "berlin",
		SortBy:   "rating",
	}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, users, 2)
	assert.Equal(t, "High", users[0].Name)

	// Rating bounds.
	users, total, err = repo.Search(ctx, 0, SearchFilters{MinRating: 4.0}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "High", users[0].Name)
}

func TestSearchPaginationStable(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	for _, name := range []string{"A", "B", "C", "D", "E"} {
		createUser(t, db, &models.User{Name: name, Email: name + "@example.com"})
	}

	seen := map[uint]bool{}
	for page := 1; page <= 3; page++ {
		users, total, err := repo.Search(ctx, 0, SearchFilters{SortBy: "rating"}, page, 2)
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		for _, u := range users {
			assert.False(t, seen[u.ID], "user %d appeared twice across pages", u.ID)
			seen[u.ID] = true
		}
	}
	assert.Len(t, seen, 5)
}

func TestFindBySkillOfferedOnly(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	teacher := createUser(t, db, &models.User{Name: "Teaches", Email: "teaches@example.com"})
	learner := createUser(t, db, &models.User{Name: "Wants", Email: "wants@example.com"})
	require.NoError(t, repo.ReplaceSkills(ctx, teacher.ID, []models.Skill{
		{Name: "Photography", Kind: models.SkillOffered},
	}))
	require.NoError(t, repo.ReplaceSkills(ctx, learner.ID, []models.Skill{
		{Name: "Photography", Kind: models.SkillWanted},
	}))

	users, total, err := repo.FindBySkill(ctx, 0, "photo", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, users, 1)
	assert.Equal(t, "Teaches", users[0].Name)
}

func TestFindOfferingAnyRatingFloorAndOrder(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	star := createUser(t, db, &models.User{Name: "Star", Email: "star@example.com"})
	good := createUser(t, db, &models.User{Name: "Good", Email: "good@example.com"})
	weak := createUser(t, db, &models.User{Name: "Weak", Email: "weak@example.com"})
	for _, u := range []*models.User{star, good, weak} {
		require.NoError(t, repo.ReplaceSkills(ctx, u.ID, []models.Skill{
			{Name: "Cooking", Kind: models.SkillOffered},
		}))
	}
	require.NoError(t, db.Model(star).Update("rating", 4.8).Error)
	require.NoError(t, db.Model(good).Update("rating", 3.5).Error)
	require.NoError(t, db.Model(weak).Update("rating", 2.0).Error)

	users, err := repo.FindOfferingAny(ctx, 0, []string{"cooking"}, 3.0, 10)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "Star", users[0].Name)
	assert.Equal(t, "Good", users[1].Name)
}

func TestTopRatedExcludes(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	first := createUser(t, db, &models.User{Name: "First", Email: "first@example.com"})
	second := createUser(t, db, &models.User{Name: "Second", Email: "second@example.com"})
	require.NoError(t, db.Model(first).Update("rating", 5.0).Error)
	require.NoError(t, db.Model(second).Update("rating", 4.0).Error)

	users, err := repo.TopRated(ctx, 0, []uint{first.ID}, 10)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "Second", users[0].Name)
}

func TestSuggestions(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	u := createUser(t, db, &models.User{Name: "Jazz Joe", Email: "joe@example.com", Location: "Jakarta"})
	require.NoError(t, repo.ReplaceSkills(ctx, u.ID, []models.Skill{
		{Name: "Jazz Piano", Kind: models.SkillOffered},
		{Name: "Java", Kind: models.SkillWanted},
	}))
	hidden := createUser(t, db, &models.User{Name: "Jazz Hidden", Email: "hidden@example.com", Location: "Jaipur"})
	require.NoError(t, db.Model(hidden).Update("is_public", false).Error)

	skills, err := repo.SkillSuggestions(ctx, "ja", 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Jazz Piano", "Java"}, skills)

	locations, err := repo.LocationSuggestions(ctx, "ja", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"Jakarta"}, locations)

	users, err := repo.UserSuggestions(ctx, "jazz", 10)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "Jazz Joe", users[0].Name)
}

func TestTouchLastActive(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	u := createUser(t, db, &models.User{Name: "Toucher", Email: "touch@example.com"})
	at := time.Now().Add(-time.Hour).Truncate(time.Second)
	require.NoError(t, repo.TouchLastActive(ctx, u.ID, at))

	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.WithinDuration(t, at, got.LastActive, time.Second)
}
