package timeline

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title      lipgloss.Style
	header     lipgloss.Style
	author     lipgloss.Style
	handle     lipgloss.Style
	timestamp  lipgloss.Style
	content    lipgloss.Style
	repost     lipgloss.Style
	counters   lipgloss.Style
	countersOn lipgloss.Style
	mastodon   lipgloss.Style
	bluesky    lipgloss.Style
	section    lipgloss.Style
	empty      lipgloss.Style
	media      lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:      lipgloss.NewStyle().Bold(true),
		header:     lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		author:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252")),
		handle:     lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		timestamp:  lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		content:    lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		repost:     lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("114")),
		counters:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		countersOn: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		mastodon:   lipgloss.NewStyle().Foreground(lipgloss.Color("99")),
		bluesky:    lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		section:    lipgloss.NewStyle().MarginTop(1),
		empty:      lipgloss.NewStyle().Faint(true),
		media:      lipgloss.NewStyle().Foreground(lipgloss.Color("108")),
	}
}
