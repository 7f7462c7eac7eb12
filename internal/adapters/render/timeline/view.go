package timeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/perch/internal/application"
	"github.com/bnema/perch/internal/domain"
)

type RenderOptions struct {
	Now time.Time
	// ContentWidth truncates post bodies for list display; zero keeps
	// them whole.
	ContentWidth int
}

func renderView(posts []domain.Post, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("Timeline"),
		s.header.Render(fmt.Sprintf("posts: %d", len(posts))),
	}

	if len(posts) == 0 {
		lines = append(lines, s.empty.Render("Nothing here yet. Refresh or add an account."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, post := range posts {
		lines = append(lines, s.section.Render(renderPost(post, opts, s, 0)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// RenderThread lays out a conversation: the root post, then each reply
// indented by its depth.
func RenderThread(root domain.Post, items []application.ThreadItem, opts RenderOptions) string {
	s := newStyles()
	lines := []string{renderPost(root, opts, s, 0)}
	for _, item := range items {
		lines = append(lines, s.section.Render(renderPost(item.Post, opts, s, item.Depth+1)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderPost(post domain.Post, opts RenderOptions, s styles, indent int) string {
	var parts []string

	if post.IsRepost && post.RepostAuthor != "" {
		parts = append(parts, s.repost.Render(fmt.Sprintf("↻ %s reposted", post.RepostAuthor)))
	}

	parts = append(parts, headerLine(post, opts, s))
	parts = append(parts, s.content.Render(contentText(post, opts)))

	if len(post.Media) > 0 {
		parts = append(parts, s.media.Render(mediaLine(post.Media)))
	}

	parts = append(parts, counterLine(post, s))

	block := lipgloss.JoinVertical(lipgloss.Left, parts...)
	if indent > 0 {
		block = lipgloss.NewStyle().PaddingLeft(indent * 2).Render(block)
	}
	return block
}

func headerLine(post domain.Post, opts RenderOptions, s styles) string {
	name := post.AuthorName
	if name == "" {
		name = post.AuthorHandle
	}

	segments := []string{
		networkBadge(post.Network, s),
		" ",
		s.author.Render(name),
	}
	if post.AuthorHandle != "" {
		segments = append(segments, " ", s.handle.Render("@"+strings.TrimPrefix(post.AuthorHandle, "@")))
	}
	if !opts.Now.IsZero() {
		segments = append(segments, " ", s.timestamp.Render("· "+post.RelativeTime(opts.Now)))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, segments...)
}

func networkBadge(network domain.Network, s styles) string {
	switch network {
	case domain.NetworkMastodon:
		return s.mastodon.Render("[M]")
	case domain.NetworkBluesky:
		return s.bluesky.Render("[B]")
	default:
		return "[?]"
	}
}

func contentText(post domain.Post, opts RenderOptions) string {
	if opts.ContentWidth > 0 {
		return post.Preview(opts.ContentWidth)
	}
	return post.Content
}

func mediaLine(media []domain.MediaAttachment) string {
	labels := make([]string, 0, len(media))
	for _, m := range media {
		label := string(m.Type)
		if m.AltText != "" {
			label += ": " + m.AltText
		}
		labels = append(labels, "["+label+"]")
	}
	return strings.Join(labels, " ")
}

func counterLine(post domain.Post, s styles) string {
	like := s.counters
	if post.Liked {
		like = s.countersOn
	}
	repost := s.counters
	if post.Reposted {
		repost = s.countersOn
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.counters.Render(fmt.Sprintf("replies %d", post.ReplyCount)),
		"  ",
		repost.Render(fmt.Sprintf("reposts %d", post.RepostCount)),
		"  ",
		like.Render(fmt.Sprintf("likes %d", post.LikeCount)),
	)
}
