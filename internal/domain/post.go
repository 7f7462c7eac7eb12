package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Post is the unified post model shared by every network adapter.
type Post struct {
	// ID is a locally generated identifier used for caching; NetworkID is
	// the backend's own identifier.
	ID        string
	NetworkID string
	Network   Network

	AuthorHandle string
	AuthorName   string
	AuthorAvatar string

	// Content is plain text; ContentRaw keeps the original markup
	// (HTML for Mastodon) when the backend returned any.
	Content    string
	ContentRaw string

	CreatedAt time.Time
	URL       string

	IsRepost     bool
	RepostAuthor string

	LikeCount   int
	RepostCount int
	ReplyCount  int

	Liked    bool
	Reposted bool

	// ReplyToID holds the parent reference for replies. Depending on the
	// network it is either a native id or an at:// URI.
	ReplyToID string

	Media []MediaAttachment

	// CID and URI address a Bluesky record. Both are required to mutate
	// it (like, repost); fetched Bluesky posts always carry them.
	CID string
	URI string
}

type MediaAttachment struct {
	URL        string
	PreviewURL string
	Type       MediaType
	AltText    string
}

type MediaType string

const (
	MediaImage   MediaType = "image"
	MediaVideo   MediaType = "video"
	MediaGifv    MediaType = "gifv"
	MediaAudio   MediaType = "audio"
	MediaUnknown MediaType = "unknown"
)

func ParseMediaType(s string) MediaType {
	switch s {
	case "image", "video", "gifv", "audio":
		return MediaType(s)
	default:
		return MediaUnknown
	}
}

// NewPost returns a Post with a fresh local id.
func NewPost(network Network, networkID string) Post {
	return Post{
		ID:        uuid.NewString(),
		NetworkID: networkID,
		Network:   network,
		CreatedAt: time.Now().UTC(),
	}
}

// HasRecordRef reports whether the post carries the content-addressed pair
// needed to mutate a Bluesky record.
func (p Post) HasRecordRef() bool {
	return p.CID != "" && p.URI != ""
}

// ApplyLiked flips the viewer's liked flag and adjusts the like counter by
// one in the matching direction, never dropping below zero.
func (p *Post) ApplyLiked(liked bool) {
	if p.Liked == liked {
		return
	}
	p.Liked = liked
	if liked {
		p.LikeCount++
		return
	}
	if p.LikeCount > 0 {
		p.LikeCount--
	}
}

// ApplyReposted mirrors ApplyLiked for the repost flag and counter.
func (p *Post) ApplyReposted(reposted bool) {
	if p.Reposted == reposted {
		return
	}
	p.Reposted = reposted
	if reposted {
		p.RepostCount++
		return
	}
	if p.RepostCount > 0 {
		p.RepostCount--
	}
}

// Preview returns a single-line excerpt for list display.
func (p Post) Preview(maxLen int) string {
	content := strings.ReplaceAll(p.Content, "\n", " ")
	if len(content) <= maxLen {
		return content
	}
	if maxLen <= 3 {
		return content[:maxLen]
	}
	return content[:maxLen-3] + "..."
}

// RelativeTime renders the post age compactly ("5m", "2h", "3d").
func (p Post) RelativeTime(now time.Time) string {
	d := now.Sub(p.CreatedAt)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	default:
		return p.CreatedAt.Format("Jan 02")
	}
}
