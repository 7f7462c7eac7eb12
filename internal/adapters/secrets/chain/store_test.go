package chain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/perch/internal/domain"
)

// stubStore records calls and returns canned values per operation.
type stubStore struct {
	getValue  string
	getErr    error
	putErr    error
	deleteErr error

	getCalls    int
	putCalls    int
	deleteCalls int
}

func (s *stubStore) Get(ctx context.Context, key string) (string, error) {
	s.getCalls++
	return s.getValue, s.getErr
}

func (s *stubStore) Put(ctx context.Context, key, value string) error {
	s.putCalls++
	return s.putErr
}

func (s *stubStore) Delete(ctx context.Context, key string) error {
	s.deleteCalls++
	return s.deleteErr
}

const testKey = "perch/mastodon/acc-1"

func TestStoreGetUsesPrimaryWhenItSucceeds(t *testing.T) {
	t.Parallel()

	primary := &stubStore{getValue: "from-pass"}
	fallback := &stubStore{}
	store := NewStore(primary, fallback)

	value, err := store.Get(context.Background(), testKey)
	require.NoError(t, err)
	assert.Equal(t, "from-pass", value)
	assert.Zero(t, fallback.getCalls)
}

func TestStoreGetFallsBackWhenPrimaryFails(t *testing.T) {
	t.Parallel()

	primary := &stubStore{getErr: errors.New("pass unavailable")}
	fallback := &stubStore{getValue: "from-file"}
	store := NewStore(primary, fallback)

	value, err := store.Get(context.Background(), testKey)
	require.NoError(t, err)
	assert.Equal(t, "from-file", value)
}

func TestStoreGetReturnsCombinedErrorWhenBothBackendsFail(t *testing.T) {
	t.Parallel()

	primary := &stubStore{getErr: errors.New("pass failed")}
	fallback := &stubStore{getErr: errors.New("file failed")}
	store := NewStore(primary, fallback)

	_, err := store.Get(context.Background(), testKey)
	require.Error(t, err)
	assert.ErrorContains(t, err, "primary backend")
	assert.ErrorContains(t, err, "fallback backend")
	assert.ErrorContains(t, err, "pass failed")
	assert.ErrorContains(t, err, "file failed")
}

func TestStoreGetKeepsSentinelWhenBothBackendsMissKey(t *testing.T) {
	t.Parallel()

	primary := &stubStore{getErr: domain.ErrCredentialsNotFound}
	fallback := &stubStore{getErr: domain.ErrCredentialsNotFound}
	store := NewStore(primary, fallback)

	_, err := store.Get(context.Background(), testKey)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCredentialsNotFound)
}

func TestStorePutFallsBackWhenPrimaryFails(t *testing.T) {
	t.Parallel()

	primary := &stubStore{putErr: errors.New("pass failed")}
	fallback := &stubStore{}
	store := NewStore(primary, fallback)

	err := store.Put(context.Background(), testKey, "secret")
	require.NoError(t, err)
	assert.Equal(t, 1, fallback.putCalls)
}

func TestStorePutDoesNotCallFallbackWhenPrimarySucceeds(t *testing.T) {
	t.Parallel()

	primary := &stubStore{}
	fallback := &stubStore{}
	store := NewStore(primary, fallback)

	err := store.Put(context.Background(), testKey, "secret")
	require.NoError(t, err)
	assert.Zero(t, fallback.putCalls)
}

func TestStoreDeleteFallsBackWhenPrimaryFails(t *testing.T) {
	t.Parallel()

	primary := &stubStore{deleteErr: errors.New("pass failed")}
	fallback := &stubStore{}
	store := NewStore(primary, fallback)

	err := store.Delete(context.Background(), testKey)
	require.NoError(t, err)
	assert.Equal(t, 1, fallback.deleteCalls)
}

func TestStoreDeleteDoesNotCallFallbackWhenPrimarySucceeds(t *testing.T) {
	t.Parallel()

	primary := &stubStore{}
	fallback := &stubStore{}
	store := NewStore(primary, fallback)

	err := store.Delete(context.Background(), testKey)
	require.NoError(t, err)
	assert.Zero(t, fallback.deleteCalls)
}

func TestStoreGetDoesNotFallbackOnCanceledContextError(t *testing.T) {
	t.Parallel()

	primary := &stubStore{getErr: context.Canceled}
	fallback := &stubStore{}
	store := NewStore(primary, fallback)

	_, err := store.Get(context.Background(), testKey)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, fallback.getCalls)
}

func TestNewStoreCheckedRejectsNilBackends(t *testing.T) {
	t.Parallel()

	_, err := NewStoreChecked(nil, &stubStore{})
	require.Error(t, err)

	_, err = NewStoreChecked(&stubStore{}, nil)
	require.Error(t, err)
}
