package application

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/bnema/perch/internal/domain"
	"github.com/bnema/perch/internal/ports"
)

const dispatchTimeout = 30 * time.Second

// Scheduler queues posts for future submission. A cron job wakes once a
// minute, pulls due entries from the store and hands them to the worker
// as ordinary submit commands.
type Scheduler struct {
	store    ports.ScheduleStore
	repo     ports.AccountRepository
	commands chan<- Command
	clock    ports.Clock
	logger   *slog.Logger
	cron     *cron.Cron
}

func NewScheduler(store ports.ScheduleStore, repo ports.AccountRepository, commands chan<- Command, clock ports.Clock, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		store:    store,
		repo:     repo,
		commands: commands,
		clock:    clock,
		logger:   logger,
		cron:     cron.New(),
	}
}

// Start begins the minutely dispatch loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("@every 1m", s.dispatchDue); err != nil {
		return fmt.Errorf("register dispatch job: %w", err)
	}
	s.cron.Start()
	return nil
}

// Stop halts the loop; an in-flight dispatch completes first.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Schedule persists a post for later submission to the given networks.
func (s *Scheduler) Schedule(ctx context.Context, content string, networks []domain.Network, at time.Time) (ports.ScheduledPost, error) {
	if at.Before(s.clock.Now()) {
		return ports.ScheduledPost{}, fmt.Errorf("scheduled time %s is in the past", at.Format(time.RFC3339))
	}
	post := ports.ScheduledPost{
		ID:           uuid.NewString(),
		Content:      content,
		Networks:     networks,
		ScheduledFor: at.UTC(),
		CreatedAt:    s.clock.Now().UTC(),
	}
	if err := s.store.SaveScheduled(ctx, post); err != nil {
		return ports.ScheduledPost{}, fmt.Errorf("save scheduled post: %w", err)
	}
	return post, nil
}

func (s *Scheduler) dispatchDue() {
	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()

	due, err := s.store.DueScheduled(ctx, s.clock.Now())
	if err != nil {
		s.logger.Error("list due posts", "error", err)
		return
	}
	if len(due) == 0 {
		return
	}

	accounts, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("list accounts for scheduled posts", "error", err)
		return
	}

	for _, post := range due {
		targets := accountsForNetworks(accounts, post.Networks)
		if len(targets) == 0 {
			s.logger.Warn("no accounts match scheduled post", "id", post.ID)
		} else {
			s.commands <- SubmitPost{Content: post.Content, Accounts: targets}
		}
		if err := s.store.MarkPosted(ctx, post.ID); err != nil {
			s.logger.Error("mark scheduled post", "id", post.ID, "error", err)
		}
	}
}

func accountsForNetworks(accounts []domain.Account, networks []domain.Network) []domain.Account {
	var out []domain.Account
	for _, account := range accounts {
		if slices.Contains(networks, account.Network) {
			out = append(out, account)
		}
	}
	return out
}
