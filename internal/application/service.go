package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bnema/perch/internal/domain"
	"github.com/bnema/perch/internal/ports"
)

// AccountService manages stored accounts and their credentials.
type AccountService struct {
	repo    ports.AccountRepository
	secrets ports.SecretStore
	clock   ports.Clock
	logger  *slog.Logger
}

func NewAccountService(repo ports.AccountRepository, secrets ports.SecretStore, clock ports.Clock, logger *slog.Logger) *AccountService {
	return &AccountService{repo: repo, secrets: secrets, clock: clock, logger: logger}
}

// Add stores the account and its credential. The secret lands first; if
// persisting the account then fails the secret is rolled back so no
// orphaned credential lingers in the store. The first account ever added
// becomes the default.
func (s *AccountService) Add(ctx context.Context, account domain.Account, secret string) error {
	existing, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("list accounts: %w", err)
	}
	if len(existing) == 0 {
		account.Default = true
	}

	if err := s.secrets.Put(ctx, account.SecretKey(), secret); err != nil {
		return fmt.Errorf("store credential: %w", err)
	}
	if err := s.repo.Save(ctx, account); err != nil {
		if delErr := s.secrets.Delete(ctx, account.SecretKey()); delErr != nil {
			s.logger.Warn("rollback credential", "key", account.SecretKey(), "error", delErr)
		}
		return fmt.Errorf("save account: %w", err)
	}
	return nil
}

func (s *AccountService) List(ctx context.Context) ([]domain.Account, error) {
	return s.repo.List(ctx)
}

func (s *AccountService) Get(ctx context.Context, id domain.AccountID) (domain.Account, error) {
	return s.repo.GetByID(ctx, id)
}

// Remove deletes the account and then its credential. A failed credential
// delete is logged, not returned: the account is already gone and the
// stale secret is harmless.
func (s *AccountService) Remove(ctx context.Context, id domain.AccountID) error {
	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("find account: %w", err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if err := s.secrets.Delete(ctx, account.SecretKey()); err != nil {
		s.logger.Warn("delete credential", "key", account.SecretKey(), "error", err)
	}
	return nil
}

// SetDefault marks one account as the default and clears the flag on every
// other account, across all networks. A single global default is
// intentional: "post to default" always has exactly one meaning.
func (s *AccountService) SetDefault(ctx context.Context, id domain.AccountID) error {
	accounts, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("list accounts: %w", err)
	}

	found := false
	for _, account := range accounts {
		wantDefault := account.ID == id
		if wantDefault {
			found = true
		}
		if account.Default == wantDefault {
			continue
		}
		account.Default = wantDefault
		if err := s.repo.Save(ctx, account); err != nil {
			return fmt.Errorf("update account %s: %w", account.ID, err)
		}
	}
	if !found {
		return domain.ErrAccountNotFound
	}
	return nil
}

// DefaultAccount returns the flagged default, falling back to the first
// stored account when none is flagged.
func (s *AccountService) DefaultAccount(ctx context.Context) (domain.Account, error) {
	accounts, err := s.repo.List(ctx)
	if err != nil {
		return domain.Account{}, fmt.Errorf("list accounts: %w", err)
	}
	for _, account := range accounts {
		if account.Default {
			return account, nil
		}
	}
	if len(accounts) > 0 {
		return accounts[0], nil
	}
	return domain.Account{}, domain.ErrAccountNotFound
}

// TouchLastUsed stamps the account with the current time.
func (s *AccountService) TouchLastUsed(ctx context.Context, id domain.AccountID) error {
	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("find account: %w", err)
	}
	now := s.clock.Now().UTC()
	account.LastUsed = &now
	if err := s.repo.Save(ctx, account); err != nil {
		return fmt.Errorf("save account: %w", err)
	}
	return nil
}
