package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/perch/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeRepo struct {
	accounts map[domain.AccountID]domain.Account
	order    []domain.AccountID
	saveErr  error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{accounts: make(map[domain.AccountID]domain.Account)}
}

func (r *fakeRepo) Save(ctx context.Context, account domain.Account) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	if _, ok := r.accounts[account.ID]; !ok {
		r.order = append(r.order, account.ID)
	}
	r.accounts[account.ID] = account
	return nil
}

func (r *fakeRepo) GetByID(ctx context.Context, id domain.AccountID) (domain.Account, error) {
	account, ok := r.accounts[id]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}
	return account, nil
}

func (r *fakeRepo) List(ctx context.Context) ([]domain.Account, error) {
	out := make([]domain.Account, 0, len(r.accounts))
	for _, id := range r.order {
		out = append(out, r.accounts[id])
	}
	return out, nil
}

func (r *fakeRepo) Delete(ctx context.Context, id domain.AccountID) error {
	if _, ok := r.accounts[id]; !ok {
		return domain.ErrAccountNotFound
	}
	delete(r.accounts, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

type fakeSecrets struct {
	values map[string]string
}

func newFakeSecrets() *fakeSecrets {
	return &fakeSecrets{values: make(map[string]string)}
}

func (s *fakeSecrets) Get(ctx context.Context, key string) (string, error) {
	value, ok := s.values[key]
	if !ok {
		return "", domain.ErrCredentialsNotFound
	}
	return value, nil
}

func (s *fakeSecrets) Put(ctx context.Context, key, value string) error {
	s.values[key] = value
	return nil
}

func (s *fakeSecrets) Delete(ctx context.Context, key string) error {
	delete(s.values, key)
	return nil
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func newTestService(repo *fakeRepo, secrets *fakeSecrets) *AccountService {
	clock := fixedClock{now: time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)}
	return NewAccountService(repo, secrets, clock, discardLogger())
}

func TestAddFirstAccountBecomesDefault(t *testing.T) {
	repo := newFakeRepo()
	secrets := newFakeSecrets()
	service := newTestService(repo, secrets)
	ctx := context.Background()

	first := domain.NewAccount(domain.NetworkMastodon, "alice", "https://masto.example", "Alice")
	require.NoError(t, service.Add(ctx, first, "token-1"))

	stored, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, stored.Default)

	secret, err := secrets.Get(ctx, first.SecretKey())
	require.NoError(t, err)
	assert.Equal(t, "token-1", secret)

	second := domain.NewAccount(domain.NetworkBluesky, "alice.bsky.social", "", "Alice")
	require.NoError(t, service.Add(ctx, second, "app-pass"))
	stored, err = repo.GetByID(ctx, second.ID)
	require.NoError(t, err)
	assert.False(t, stored.Default)
}

func TestAddRollsBackSecretOnSaveFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.saveErr = errors.New("disk full")
	secrets := newFakeSecrets()
	service := newTestService(repo, secrets)
	ctx := context.Background()

	account := domain.NewAccount(domain.NetworkMastodon, "alice", "https://masto.example", "Alice")
	err := service.Add(ctx, account, "token")
	require.Error(t, err)

	_, err = secrets.Get(ctx, account.SecretKey())
	assert.ErrorIs(t, err, domain.ErrCredentialsNotFound)
}

func TestRemoveDeletesAccountAndSecret(t *testing.T) {
	repo := newFakeRepo()
	secrets := newFakeSecrets()
	service := newTestService(repo, secrets)
	ctx := context.Background()

	account := domain.NewAccount(domain.NetworkMastodon, "alice", "https://masto.example", "Alice")
	require.NoError(t, service.Add(ctx, account, "token"))

	require.NoError(t, service.Remove(ctx, account.ID))
	_, err := repo.GetByID(ctx, account.ID)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	_, err = secrets.Get(ctx, account.SecretKey())
	assert.ErrorIs(t, err, domain.ErrCredentialsNotFound)
}

func TestRemoveUnknownAccount(t *testing.T) {
	service := newTestService(newFakeRepo(), newFakeSecrets())
	err := service.Remove(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestSetDefaultClearsEveryNetwork(t *testing.T) {
	repo := newFakeRepo()
	secrets := newFakeSecrets()
	service := newTestService(repo, secrets)
	ctx := context.Background()

	masto := domain.NewAccount(domain.NetworkMastodon, "alice", "https://masto.example", "Alice")
	bsky := domain.NewAccount(domain.NetworkBluesky, "alice.bsky.social", "", "Alice")
	other := domain.NewAccount(domain.NetworkMastodon, "bob", "https://masto.example", "Bob")
	require.NoError(t, service.Add(ctx, masto, "t1"))
	require.NoError(t, service.Add(ctx, bsky, "t2"))
	require.NoError(t, service.Add(ctx, other, "t3"))

	// The default moves from the Mastodon account to the Bluesky one;
	// no account on any network keeps the old flag.
	require.NoError(t, service.SetDefault(ctx, bsky.ID))

	accounts, err := repo.List(ctx)
	require.NoError(t, err)
	for _, account := range accounts {
		assert.Equal(t, account.ID == bsky.ID, account.Default, "account %s", account.Handle)
	}
}

func TestSetDefaultUnknownAccount(t *testing.T) {
	repo := newFakeRepo()
	service := newTestService(repo, newFakeSecrets())
	ctx := context.Background()

	account := domain.NewAccount(domain.NetworkMastodon, "alice", "https://masto.example", "Alice")
	require.NoError(t, service.Add(ctx, account, "t"))

	err := service.SetDefault(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestDefaultAccountFallsBackToFirst(t *testing.T) {
	repo := newFakeRepo()
	service := newTestService(repo, newFakeSecrets())
	ctx := context.Background()

	_, err := service.DefaultAccount(ctx)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)

	first := domain.NewAccount(domain.NetworkMastodon, "alice", "https://masto.example", "Alice")
	second := domain.NewAccount(domain.NetworkBluesky, "bob.bsky.social", "", "Bob")
	first.Default = false
	require.NoError(t, repo.Save(ctx, first))
	require.NoError(t, repo.Save(ctx, second))

	got, err := service.DefaultAccount(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	require.NoError(t, service.SetDefault(ctx, second.ID))
	got, err = service.DefaultAccount(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)
}

func TestTouchLastUsed(t *testing.T) {
	repo := newFakeRepo()
	service := newTestService(repo, newFakeSecrets())
	ctx := context.Background()

	account := domain.NewAccount(domain.NetworkMastodon, "alice", "https://masto.example", "Alice")
	require.NoError(t, repo.Save(ctx, account))

	require.NoError(t, service.TouchLastUsed(ctx, account.ID))
	stored, err := repo.GetByID(ctx, account.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastUsed)
	assert.Equal(t, time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC), *stored.LastUsed)
}
