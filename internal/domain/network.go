package domain

import (
	"fmt"
	"strings"
)

// Network identifies one of the supported social networks. The set is closed:
// dispatch over it is always an exhaustive switch, never open-ended.
type Network string

const (
	NetworkMastodon Network = "mastodon"
	NetworkBluesky  Network = "bluesky"
)

func Networks() []Network {
	return []Network{NetworkMastodon, NetworkBluesky}
}

func (n Network) DisplayName() string {
	switch n {
	case NetworkMastodon:
		return "Mastodon"
	case NetworkBluesky:
		return "Bluesky"
	default:
		return string(n)
	}
}

func (n Network) Valid() bool {
	return n == NetworkMastodon || n == NetworkBluesky
}

func ParseNetwork(s string) (Network, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mastodon", "masto":
		return NetworkMastodon, nil
	case "bluesky", "bsky":
		return NetworkBluesky, nil
	default:
		return "", fmt.Errorf("unknown network %q (want mastodon or bluesky)", s)
	}
}
