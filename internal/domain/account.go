package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type AccountID string

// Account is a stored identity on one network.
type Account struct {
	ID          AccountID
	Network     Network
	DisplayName string
	Handle      string
	// Server is the instance URL for Mastodon and the PDS origin for
	// Bluesky. Empty means the network default.
	Server    string
	Default   bool
	AvatarURL string
	CreatedAt time.Time
	LastUsed  *time.Time
}

func NewAccount(network Network, handle, server, displayName string) Account {
	return Account{
		ID:          AccountID(uuid.NewString()),
		Network:     network,
		DisplayName: displayName,
		Handle:      handle,
		Server:      server,
		CreatedAt:   time.Now().UTC(),
	}
}

// SecretKey is the secret-store key holding this account's credential.
func (a Account) SecretKey() string {
	return fmt.Sprintf("perch/%s/%s", a.Network, a.ID)
}

// FullHandle renders the handle with its instance for display.
func (a Account) FullHandle() string {
	if a.Network != NetworkMastodon {
		return "@" + a.Handle
	}
	if strings.Contains(a.Handle, "@") {
		return a.Handle
	}
	domain := strings.TrimPrefix(a.Server, "https://")
	domain = strings.TrimPrefix(domain, "http://")
	domain = strings.TrimSuffix(domain, "/")
	return fmt.Sprintf("@%s@%s", a.Handle, domain)
}
