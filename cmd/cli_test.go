package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommandPrintsVersion(t *testing.T) {
	home := t.TempDir()

	stdout, _, err := executeCLI(t, home, "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "dev")
}

func TestAccountListWithoutAccounts(t *testing.T) {
	home := t.TempDir()

	stdout, _, err := executeCLI(t, home, "account", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No accounts configured")
}

func TestAccountListShowsConfiguredAccounts(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeAccountsFixture(home))

	stdout, _, err := executeCLI(t, home, "account", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "acc-masto")
	assert.Contains(t, stdout, "mastodon")
	assert.Contains(t, stdout, "acc-bsky")
	assert.Contains(t, stdout, "* acc-masto")
}

func TestAccountSetDefaultSwitchesMarker(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeAccountsFixture(home))

	_, _, err := executeCLI(t, home, "account", "set-default", "acc-bsky")
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, home, "account", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "* acc-bsky")
	assert.NotContains(t, stdout, "* acc-masto")
}

func TestAccountSetDefaultUnknownAccountFails(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeAccountsFixture(home))

	_, _, err := executeCLI(t, home, "account", "set-default", "acc-nope")
	require.Error(t, err)
}

func TestAccountRemoveDropsAccount(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeAccountsFixture(home))

	_, _, err := executeCLI(t, home, "account", "remove", "acc-bsky")
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, home, "account", "list")
	require.NoError(t, err)
	assert.NotContains(t, stdout, "acc-bsky")
	assert.Contains(t, stdout, "acc-masto")
}

func TestTimelineCachedWithEmptyCache(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeAccountsFixture(home))

	stdout, _, err := executeCLI(t, home, "timeline", "--cached")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Timeline")
}

func TestPostWithoutAccountsFails(t *testing.T) {
	home := t.TempDir()

	_, _, err := executeCLI(t, home, "post", "hello fediverse")
	require.Error(t, err)
}

func TestScheduleAddRejectsPastTime(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeAccountsFixture(home))

	_, _, err := executeCLI(t, home,
		"schedule", "add", "later post",
		"--at", "2020-01-01T00:00:00Z",
	)
	require.Error(t, err)
}

func TestScheduleAddRequiresAtFlag(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeAccountsFixture(home))

	_, _, err := executeCLI(t, home, "schedule", "add", "later post")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag(s) \"at\" not set")
}

func executeCLI(t *testing.T, home string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", home)

	root := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func writeAccountsFixture(home string) error {
	configDir := filepath.Join(home, ".perch")
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return err
	}

	accounts := `version = 1

[[accounts]]
id = "acc-masto"
network = "mastodon"
display_name = "Primary"
handle = "primary@mastodon.social"
server = "https://mastodon.social"
default = true
created_at = "2026-08-01T12:00:00Z"

[[accounts]]
id = "acc-bsky"
network = "bluesky"
display_name = "Secondary"
handle = "secondary.bsky.social"
default = false
created_at = "2026-08-02T12:00:00Z"
`

	return os.WriteFile(filepath.Join(configDir, "accounts.toml"), []byte(accounts), 0o600)
}
