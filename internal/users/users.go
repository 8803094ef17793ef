// Package users manages player profiles and the stats leaderboard.
package users

import (
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"heroindex/internal"
	"heroindex/internal/logging"
	"heroindex/internal/storage"
	"heroindex/internal/util"
)

const (
	MinStat = 25
	MaxStat = 100
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrMissingCredentials = errors.New("email and password are required")
	ErrInvalidStats       = errors.New("stats must cover every user stat within range")
)

// RollStats draws every user stat uniformly from [MinStat, MaxStat]. A nil
// rng uses the shared source.
func RollStats(rng *rand.Rand) map[string]int {
	intn := rand.Intn
	if rng != nil {
		intn = rng.Intn
	}
	out := make(map[string]int, len(internal.UserStatNames))
	for _, name := range internal.UserStatNames {
		out[name] = intn(MaxStat-MinStat+1) + MinStat
	}
	return out
}

type SignupInput struct {
	FirstName string         `json:"firstName"`
	LastName  string         `json:"lastName"`
	Email     string         `json:"email"`
	Password  string         `json:"password"`
	HeroName  string         `json:"heroName"`
	Bio       string         `json:"bio"`
	Stats     map[string]int `json:"stats,omitempty"`
}

type Service struct {
	db     *storage.DB
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
	roll   func() map[string]int
}

func NewService(db *storage.DB, logger *zap.Logger) *Service {
	return &Service{
		db:     db,
		logger: logging.OrNop(logger),
		now:    time.Now,
		newID:  uuid.NewString,
		roll:   func() map[string]int { return RollStats(nil) },
	}
}

// Signup creates a profile. The password is only checked for presence and
// is never stored. Stats are rolled unless the input carries a re-rolled set.
func (s *Service) Signup(in SignupInput) (internal.UserProfile, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		return internal.UserProfile{}, ErrMissingCredentials
	}

	stats := in.Stats
	if len(stats) == 0 {
		stats = s.roll()
	} else if err := validateStats(stats); err != nil {
		return internal.UserProfile{}, err
	}

	u := internal.UserProfile{
		UID:       s.newID(),
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Email:     email,
		HeroName:  strings.TrimSpace(in.HeroName),
		Bio:       in.Bio,
		Stats:     stats,
		CreatedAt: s.now().UTC().Format(time.RFC3339),
	}
	if err := s.db.UpsertUser(u); err != nil {
		return internal.UserProfile{}, fmt.Errorf("store user: %w", err)
	}
	s.logger.Info("user signed up", zap.String("uid", u.UID), zap.Int("totalStats", u.TotalStats()))
	return u, nil
}

// validateStats accepts exactly the UserStatNames keys, each within
// [MinStat, MaxStat].
func validateStats(stats map[string]int) error {
	if len(stats) != len(internal.UserStatNames) {
		return fmt.Errorf("%w: want %d stats, got %d", ErrInvalidStats, len(internal.UserStatNames), len(stats))
	}
	for _, name := range internal.UserStatNames {
		v, ok := stats[name]
		if !ok {
			return fmt.Errorf("%w: missing %s", ErrInvalidStats, name)
		}
		if v < MinStat || v > MaxStat {
			return fmt.Errorf("%w: %s=%d", ErrInvalidStats, name, v)
		}
	}
	return nil
}

func (s *Service) Get(uid string) (internal.UserProfile, error) {
	u, err := s.db.GetUser(uid)
	if err != nil {
		return internal.UserProfile{}, err
	}
	if u == nil {
		return internal.UserProfile{}, ErrNotFound
	}
	return *u, nil
}

func (s *Service) UpdateBio(uid, bio string) error {
	ok, err := s.db.UpdateUserBio(uid, bio)
	if err != nil {
		return fmt.Errorf("update bio: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// Leaderboard ranks every user by total stats, highest first, ties broken
// by hero name. Ranks come from the full board so a search keeps each
// user's place; term filters by hero name substring.
func (s *Service) Leaderboard(term string) ([]internal.LeaderboardEntry, error) {
	all, err := s.db.ListUsers()
	if err != nil {
		return nil, err
	}

	entries := make([]internal.LeaderboardEntry, 0, len(all))
	for _, u := range all {
		entries = append(entries, internal.LeaderboardEntry{User: u, TotalStats: u.TotalStats()})
	}
	slices.SortStableFunc(entries, func(a, b internal.LeaderboardEntry) int {
		if a.TotalStats != b.TotalStats {
			return b.TotalStats - a.TotalStats
		}
		return strings.Compare(strings.ToLower(a.User.HeroName), strings.ToLower(b.User.HeroName))
	})

	term = strings.ToLower(strings.TrimSpace(term))
	out := entries[:0]
	for i, e := range entries {
		e.Rank = i + 1
		if term != "" && !strings.Contains(strings.ToLower(e.User.HeroName), term) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Seed creates n demo users with fake names. The same seed yields the same
// profiles apart from their ids.
func (s *Service) Seed(n int, seed int64) ([]internal.UserProfile, error) {
	faker := gofakeit.New(seed)
	rng := rand.New(rand.NewSource(seed))

	out := make([]internal.UserProfile, 0, n)
	for i := 0; i < n; i++ {
		u, err := s.Signup(SignupInput{
			FirstName: faker.FirstName(),
			LastName:  faker.LastName(),
			Email:     faker.Email(),
			Password:  faker.Password(true, true, true, false, false, 12),
			HeroName:  util.TitleCase(faker.Adjective() + " " + faker.Animal()),
			Bio:       faker.Sentence(8),
			Stats:     RollStats(rng),
		})
		if err != nil {
			return out, err
		}
		out = append(out, u)
	}
	s.logger.Info("seeded users", zap.Int("count", len(out)))
	return out, nil
}
