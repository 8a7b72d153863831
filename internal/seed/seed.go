// Package seed fills an empty database with demo users and tweets.
package seed

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/sirupsen/logrus"

	"tweeter/internal/pagination"
	"tweeter/internal/service"
)

const (
	DefaultUsers     = 20
	maxTweetsPerUser = 10
	seedPassword     = "password"
)

var (
	firstNames = []string{"Ada", "Grace", "Linus", "Ken", "Rob", "Barbara", "Edsger", "Margaret", "Dennis", "Frances", "Alan", "Radia"}
	lastNames  = []string{"Lovelace", "Hopper", "Torvalds", "Thompson", "Pike", "Liskov", "Dijkstra", "Hamilton", "Ritchie", "Allen", "Turing", "Perlman"}
	words      = []string{"gopher", "channel", "deploy", "coffee", "review", "merge", "latency", "cache", "shipping", "weekend", "refactor", "bug", "tests", "green", "today", "finally"}
)

// Seeder replaces every user with freshly generated ones.
type Seeder struct {
	users  service.UserService
	tweets service.TweetService
	rng    *rand.Rand
	logger *logrus.Logger
}

func New(users service.UserService, tweets service.TweetService, rng *rand.Rand, logger *logrus.Logger) *Seeder {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Seeder{users: users, tweets: tweets, rng: rng, logger: logger}
}

// Run destroys all users, which removes their tweets too, and then creates n
// users with up to nine tweets each.
func (s *Seeder) Run(ctx context.Context, n int) error {
	if err := s.destroyAll(ctx); err != nil {
		return err
	}

	for i := 0; i < n; i++ {
		name := s.name()
		user, err := s.users.Register(ctx, service.RegisterInput{
			Name:                 name,
			Email:                fmt.Sprintf("%s.%d@example.com", strings.ToLower(strings.ReplaceAll(name, " ", ".")), i+1),
			Password:             seedPassword,
			PasswordConfirmation: seedPassword,
		})
		if err != nil {
			return fmt.Errorf("seed user %d: %w", i+1, err)
		}

		count := s.rng.IntN(maxTweetsPerUser)
		for j := 0; j < count; j++ {
			if _, err := s.tweets.Create(ctx, user.ID, service.TweetInput{Body: s.sentence()}); err != nil {
				return fmt.Errorf("seed tweet for %s: %w", user.Email, err)
			}
		}
		s.logger.Infof("Generated %s with %d tweets", user.Name, count)
	}
	return nil
}

func (s *Seeder) destroyAll(ctx context.Context) error {
	for {
		page, err := s.users.List(ctx, pagination.New(1, 100))
		if err != nil {
			return fmt.Errorf("list users: %w", err)
		}
		if len(page.Items) == 0 {
			return nil
		}
		for _, u := range page.Items {
			if err := s.users.Destroy(ctx, u.ID, u.ID); err != nil {
				return fmt.Errorf("destroy user %d: %w", u.ID, err)
			}
		}
	}
}

func (s *Seeder) name() string {
	return firstNames[s.rng.IntN(len(firstNames))] + " " + lastNames[s.rng.IntN(len(lastNames))]
}

func (s *Seeder) sentence() string {
	n := 3 + s.rng.IntN(8)
	parts := make([]string, n)
	for i := range parts {
		parts[i] = words[s.rng.IntN(len(words))]
	}
	return strings.ToUpper(parts[0][:1]) + strings.Join(parts, " ")[1:] + "."
}
