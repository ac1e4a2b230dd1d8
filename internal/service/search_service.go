package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"skillswap/internal/cache"
	"skillswap/internal/featureflags"
	"skillswap/internal/models"
	"skillswap/internal/observability"
	"skillswap/internal/repository"
)

const (
	defaultPageSize    = 20
	maxPageSize        = 100
	minSuggestionLen   = 2
	maxSuggestions     = 10
	featuredMinRating  = 3.0
	featuredCacheTTL   = 5 * time.Minute
	suggestionCacheTTL = time.Minute

	// featuredCacheFlag gates the per-caller featured result cache so the
	// cache path can be rolled out or pulled without a deploy.
	featuredCacheFlag = "featured_cache"
)

// Pagination describes a page of results.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// SearchResult is a page of profiles plus its pagination metadata.
type SearchResult struct {
	Users      []models.Profile `json:"users"`
	Pagination Pagination       `json:"pagination"`
}

// Suggestions groups autocomplete matches by kind.
type Suggestions struct {
	Skills    []string         `json:"skills"`
	Locations []string         `json:"locations"`
	Users     []models.Profile `json:"users"`
}

// SearchService provides directory search, featured users and autocomplete.
type SearchService struct {
	userRepo repository.UserRepository
	flags    *featureflags.Manager
}

// NewSearchService returns a new SearchService. flags may be nil, which
// leaves every rollout flag off.
func NewSearchService(userRepo repository.UserRepository, flags *featureflags.Manager) *SearchService {
	return &SearchService{userRepo: userRepo, flags: flags}
}

// SearchUsers runs a filtered directory search. The caller's own profile is
// never part of the results.
func (s *SearchService) SearchUsers(ctx context.Context, callerID uint, f repository.SearchFilters, page, limit int) (*SearchResult, error) {
	page, limit = normalizePage(page, limit)
	if f.MinRating < 0 || f.MinRating > 5 || f.MaxRating < 0 || f.MaxRating > 5 {
		return nil, models.NewValidationError("Rating bounds must be between 0 and 5")
	}
	if f.Availability != "" && !models.ValidAvailability(f.Availability) {
		return nil, models.NewValidationError("Invalid availability value")
	}

	users, total, err := s.userRepo.Search(ctx, callerID, f, page, limit)
	if err != nil {
		return nil, err
	}
	observability.SearchQueries.WithLabelValues("search").Inc()
	return buildResult(users, page, limit, total), nil
}

// GetUsersBySkill lists users offering the given skill, best rated first.
func (s *SearchService) GetUsersBySkill(ctx context.Context, callerID uint, skill string, page, limit int) (*SearchResult, error) {
	skill = strings.TrimSpace(skill)
	if skill == "" {
		return nil, models.NewValidationError("Skill is required")
	}
	page, limit = normalizePage(page, limit)

	users, total, err := s.userRepo.FindBySkill(ctx, callerID, skill, page, limit)
	if err != nil {
		return nil, err
	}
	observability.SearchQueries.WithLabelValues("skill").Inc()
	return buildResult(users, page, limit, total), nil
}

// GetFeaturedUsers recommends users offering what the caller wants to learn,
// backfilled with top-rated profiles when the match list comes up short.
// Results are cached per caller when the featured_cache flag is on.
func (s *SearchService) GetFeaturedUsers(ctx context.Context, callerID uint, limit int) ([]models.Profile, error) {
	if limit <= 0 || limit > maxPageSize {
		limit = 10
	}

	var profiles []models.Profile
	if s.flags.Enabled(featuredCacheFlag, callerID) {
		key := fmt.Sprintf("featured:user:%d:%d", callerID, limit)
		err := cache.CacheAside(ctx, key, &profiles, featuredCacheTTL, func() error {
			matched, err := s.featuredMatches(ctx, callerID, limit)
			if err != nil {
				return err
			}
			profiles = matched
			return nil
		})
		if err != nil {
			return nil, err
		}
	} else {
		matched, err := s.featuredMatches(ctx, callerID, limit)
		if err != nil {
			return nil, err
		}
		profiles = matched
	}
	observability.SearchQueries.WithLabelValues("featured").Inc()
	return profiles, nil
}

func (s *SearchService) featuredMatches(ctx context.Context, callerID uint, limit int) ([]models.Profile, error) {
	caller, err := s.userRepo.GetByID(ctx, callerID)
	if err != nil {
		return nil, err
	}

	matched, err := s.userRepo.FindOfferingAny(ctx, callerID, caller.SkillsWanted(), featuredMinRating, limit)
	if err != nil {
		return nil, err
	}

	if len(matched) < limit {
		exclude := make([]uint, 0, len(matched))
		for _, u := range matched {
			exclude = append(exclude, u.ID)
		}
		fill, err := s.userRepo.TopRated(ctx, callerID, exclude, limit-len(matched))
		if err != nil {
			return nil, err
		}
		matched = append(matched, fill...)
	}

	return toProfiles(matched), nil
}

// GetSuggestions returns autocomplete matches for the query, which must be
// at least two characters long.
func (s *SearchService) GetSuggestions(ctx context.Context, query, kind string) (*Suggestions, error) {
	out := &Suggestions{
		Skills:    []string{},
		Locations: []string{},
		Users:     []models.Profile{},
	}
	query = strings.TrimSpace(query)
	if len(query) < minSuggestionLen {
		return nil, models.NewValidationError("Suggestion query must be at least 2 characters")
	}

	if kind == "" {
		kind = "all"
	}
	switch kind {
	case "skills", "locations", "users", "all":
	default:
		return nil, models.NewValidationError("Suggestion type must be skills, locations or users")
	}

	key := fmt.Sprintf("suggest:%s:%s", kind, strings.ToLower(query))
	err := cache.CacheAside(ctx, key, out, suggestionCacheTTL, func() error {
		return s.loadSuggestions(ctx, query, kind, out)
	})
	if err != nil {
		return nil, err
	}
	observability.SearchQueries.WithLabelValues("suggestions").Inc()
	return out, nil
}

func (s *SearchService) loadSuggestions(ctx context.Context, query, kind string, out *Suggestions) error {
	if kind == "skills" || kind == "all" {
		skills, err := s.userRepo.SkillSuggestions(ctx, query, maxSuggestions)
		if err != nil {
			return err
		}
		if skills != nil {
			out.Skills = skills
		}
	}
	if kind == "locations" || kind == "all" {
		locations, err := s.userRepo.LocationSuggestions(ctx, query, maxSuggestions)
		if err != nil {
			return err
		}
		if locations != nil {
			out.Locations = locations
		}
	}
	if kind == "users" || kind == "all" {
		users, err := s.userRepo.UserSuggestions(ctx, query, maxSuggestions)
		if err != nil {
			return err
		}
		out.Users = toProfiles(users)
	}
	return nil
}

// InvalidateFeatured drops the caller's cached featured list, used after
// profile edits that change what the caller wants to learn.
func (s *SearchService) InvalidateFeatured(ctx context.Context, callerID uint) {
	keys := make([]string, 0, 2)
	for _, limit := range []int{10, defaultPageSize} {
		keys = append(keys, fmt.Sprintf("featured:user:%d:%d", callerID, limit))
	}
	cache.Invalidate(ctx, keys...)
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

func buildResult(users []models.User, page, limit int, total int64) *SearchResult {
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &SearchResult{
		Users: toProfiles(users),
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
			HasPrev:    page > 1,
		},
	}
}

func toProfiles(users []models.User) []models.Profile {
	now := time.Now()
	profiles := make([]models.Profile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, u.ToProfile(now))
	}
	return profiles
}
