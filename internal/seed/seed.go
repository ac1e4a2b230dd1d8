// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"fmt"
	"log"

	"skillswap/internal/models"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers    int
	NumSwaps    int
	ShouldClean bool
}

// Seed populates the database with demo users, skills and swap requests in a
// mix of lifecycle states. Completed swaps also get mutual ratings so that
// search ranking and featured lists have data to chew on.
func Seed(db *gorm.DB, opts Options) error {
	if opts.NumUsers <= 0 {
		opts.NumUsers = 25
	}
	if opts.NumSwaps <= 0 {
		opts.NumSwaps = opts.NumUsers * 2
	}

	log.Printf("Seeding database with %d users and %d swap requests...", opts.NumUsers, opts.NumSwaps)

	if opts.ShouldClean {
		if err := clearData(db); err != nil {
			log.Printf("warning: could not clear existing data: %v", err)
		}
	}

	factory := NewFactory(db)

	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		user, err := factory.CreateUser()
		if err != nil {
			return fmt.Errorf("failed to create users: %w", err)
		}
		users = append(users, user)
	}
	log.Printf("created %d users", len(users))

	if len(users) < 2 {
		return nil
	}

	statuses := []models.SwapStatus{
		models.SwapStatusPending,
		models.SwapStatusPending,
		models.SwapStatusAccepted,
		models.SwapStatusCompleted,
		models.SwapStatusCompleted,
		models.SwapStatusRejected,
		models.SwapStatusCancelled,
	}

	created := 0
	for i := 0; created < opts.NumSwaps && i < opts.NumSwaps*3; i++ {
		requester := users[factory.rand.Intn(len(users))]
		recipient := users[factory.rand.Intn(len(users))]
		if requester.ID == recipient.ID {
			continue
		}

		status := statuses[factory.rand.Intn(len(statuses))]
		swap, err := factory.CreateSwap(requester, recipient, status)
		if err != nil {
			return fmt.Errorf("failed to create swap requests: %w", err)
		}
		created++

		if status == models.SwapStatusCompleted {
			if err := factory.RateCompletedSwap(swap); err != nil {
				return fmt.Errorf("failed to rate completed swap: %w", err)
			}
		}
	}
	log.Printf("created %d swap requests", created)

	log.Println("Seeding complete")
	return nil
}

// clearData removes previously seeded rows. Child tables go first so foreign
// keys do not block the deletes.
func clearData(db *gorm.DB) error {
	for _, table := range []string{"swap_requests", "skills", "users"} {
		if err := db.Exec(fmt.Sprintf("DELETE FROM %s", table)).Error; err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}
