package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	timelinerender "github.com/bnema/perch/internal/adapters/render/timeline"
	"github.com/bnema/perch/internal/application"
	"github.com/bnema/perch/internal/domain"
)

func newTuiCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive timeline",
		RunE: func(cmd *cobra.Command, _ []string) error {
			accounts, err := app.accounts.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(accounts) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No accounts configured. Run 'perch account add' first.")
				return nil
			}

			worker, stopWorker := app.newWorker()
			defer stopWorker()

			cached, err := app.cache.RecentPosts(cmd.Context(), 40)
			if err != nil {
				app.logger.Warn("load cached posts", "error", err)
			}

			program := tea.NewProgram(
				newTuiModel(app, worker, accounts, cached),
				tea.WithAltScreen(),
			)
			_, err = program.Run()
			return err
		},
	}
}

type tuiMode int

const (
	modeList tuiMode = iota
	modeThread
	modeCompose
)

type resultMsg struct {
	result application.Result
}

type tuiModel struct {
	app      *app
	worker   *application.Worker
	accounts []domain.Account

	mode    tuiMode
	posts   []domain.Post
	cursor  int
	status  string
	loading bool

	threadRoot domain.Post
	thread     []application.ThreadItem

	composer textarea.Model
	replyTo  *domain.Post

	spinner spinner.Model
	height  int
}

func newTuiModel(app *app, worker *application.Worker, accounts []domain.Account, cached []domain.Post) tuiModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	composer := textarea.New()
	composer.Placeholder = "What's happening?"
	composer.CharLimit = 500

	return tuiModel{
		app:      app,
		worker:   worker,
		accounts: accounts,
		posts:    cached,
		spinner:  sp,
		composer: composer,
		height:   24,
	}
}

func (m tuiModel) Init() tea.Cmd {
	return tea.Batch(
		m.refresh(),
		m.waitForResult(),
		m.spinner.Tick,
	)
}

// waitForResult bridges the worker's result queue into the bubbletea
// message loop. It re-arms itself after every delivery.
func (m tuiModel) waitForResult() tea.Cmd {
	results := m.worker.Results()
	return func() tea.Msg {
		return resultMsg{result: <-results}
	}
}

func (m tuiModel) refresh() tea.Cmd {
	commands := m.worker.Commands()
	accounts := m.accounts
	return func() tea.Msg {
		commands <- application.RefreshTimeline{Accounts: accounts}
		return nil
	}
}

func (m tuiModel) send(cmd application.Command) tea.Cmd {
	commands := m.worker.Commands()
	return func() tea.Msg {
		commands <- cmd
		return nil
	}
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height
		m.composer.SetWidth(msg.Width - 4)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case resultMsg:
		m = m.applyResult(msg.result)
		return m, m.waitForResult()

	case tea.KeyMsg:
		if m.mode == modeCompose {
			return m.updateCompose(msg)
		}
		return m.updateBrowse(msg)
	}

	return m, nil
}

func (m tuiModel) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "esc":
		if m.mode == modeThread {
			m.mode = modeList
			m.thread = nil
		}
		return m, nil

	case "j", "down":
		if m.cursor < len(m.posts)-1 {
			m.cursor++
		}
		return m, nil

	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case "r":
		m.loading = true
		m.status = "refreshing..."
		return m, m.refresh()

	case "l":
		post, account, ok := m.selected()
		if !ok {
			return m, nil
		}
		if post.Liked {
			return m, m.send(application.UnlikePost{Post: post, Account: account})
		}
		return m, m.send(application.LikePost{Post: post, Account: account})

	case "b":
		post, account, ok := m.selected()
		if !ok {
			return m, nil
		}
		if post.Reposted {
			return m, m.send(application.UnrepostPost{Post: post, Account: account})
		}
		return m, m.send(application.RepostPost{Post: post, Account: account})

	case "enter":
		post, account, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.mode = modeThread
		m.threadRoot = post
		m.thread = nil
		m.status = "loading conversation..."
		return m, m.send(application.FetchConversation{Post: post, Account: account})

	case "p":
		m.mode = modeCompose
		m.replyTo = nil
		m.composer.Reset()
		return m, m.composer.Focus()

	case "R":
		post, _, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.mode = modeCompose
		m.replyTo = &post
		m.composer.Reset()
		return m, m.composer.Focus()
	}

	return m, nil
}

func (m tuiModel) updateCompose(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeList
		m.composer.Blur()
		return m, nil

	case "ctrl+s":
		content := strings.TrimSpace(m.composer.Value())
		if content == "" {
			return m, nil
		}
		targets := m.composeTargets()
		cmd := application.SubmitPost{Content: content, Accounts: targets, ReplyTo: m.replyTo}
		m.mode = modeList
		m.composer.Blur()
		m.status = "posting..."
		return m, m.send(cmd)
	}

	var cmd tea.Cmd
	m.composer, cmd = m.composer.Update(msg)
	return m, cmd
}

// composeTargets picks where a submission goes: replies target accounts
// on the parent's network, fresh posts go to the default account.
func (m tuiModel) composeTargets() []domain.Account {
	if m.replyTo != nil {
		var targets []domain.Account
		for _, account := range m.accounts {
			if account.Network == m.replyTo.Network {
				targets = append(targets, account)
			}
		}
		return targets
	}

	for _, account := range m.accounts {
		if account.Default {
			return []domain.Account{account}
		}
	}
	return m.accounts[:1]
}

func (m tuiModel) selected() (domain.Post, domain.Account, bool) {
	if m.mode == modeThread {
		return m.threadRoot, m.accountFor(m.threadRoot.Network), true
	}
	if m.cursor >= len(m.posts) {
		return domain.Post{}, domain.Account{}, false
	}
	post := m.posts[m.cursor]
	return post, m.accountFor(post.Network), true
}

func (m tuiModel) accountFor(network domain.Network) domain.Account {
	for _, account := range m.accounts {
		if account.Network == network {
			return account
		}
	}
	return domain.Account{}
}

func (m tuiModel) applyResult(result application.Result) tuiModel {
	switch r := result.(type) {
	case application.TimelineRefreshed:
		m.posts = r.Posts
		m.loading = false
		m.status = fmt.Sprintf("%d posts", len(r.Posts))
		if m.cursor >= len(m.posts) {
			m.cursor = 0
		}
		go m.cachePosts(r.Posts)

	case application.ContextFetched:
		m.thread = r.Thread
		m.status = fmt.Sprintf("%d replies", len(r.Thread))

	case application.PostLiked:
		m.patchPost(r.NetworkID, func(p *domain.Post) { p.ApplyLiked(true) })
	case application.PostUnliked:
		m.patchPost(r.NetworkID, func(p *domain.Post) { p.ApplyLiked(false) })
	case application.PostReposted:
		m.patchPost(r.NetworkID, func(p *domain.Post) { p.ApplyReposted(true) })
	case application.PostUnreposted:
		m.patchPost(r.NetworkID, func(p *domain.Post) { p.ApplyReposted(false) })

	case application.Posted:
		m.status = fmt.Sprintf("posted to %d account(s)", len(r.Posts))

	case application.StatusResult:
		m.loading = false
		m.status = r.Message

	case application.ErrorResult:
		m.loading = false
		m.status = "error: " + r.Message
	}
	return m
}

// patchPost applies a local state delta instead of refetching.
func (m *tuiModel) patchPost(networkID string, apply func(*domain.Post)) {
	for i := range m.posts {
		if m.posts[i].NetworkID == networkID {
			apply(&m.posts[i])
		}
	}
	if m.threadRoot.NetworkID == networkID {
		apply(&m.threadRoot)
	}
}

func (m tuiModel) cachePosts(posts []domain.Post) {
	if err := m.app.cache.SavePosts(context.Background(), posts); err != nil {
		m.app.logger.Warn("cache posts", "error", err)
	}
}

var statusBarStyle = lipgloss.NewStyle().Faint(true)

func (m tuiModel) View() string {
	var body string
	switch m.mode {
	case modeCompose:
		title := "Compose"
		if m.replyTo != nil {
			title = "Reply to @" + m.replyTo.AuthorHandle
		}
		body = lipgloss.JoinVertical(lipgloss.Left,
			lipgloss.NewStyle().Bold(true).Render(title),
			m.composer.View(),
			statusBarStyle.Render("ctrl+s send · esc cancel"),
		)

	case modeThread:
		body = timelinerender.RenderThread(m.threadRoot, m.thread, timelinerender.RenderOptions{
			Now:          m.app.now(),
			ContentWidth: 100,
		})

	default:
		body = m.listView()
	}

	statusLine := m.status
	if m.loading {
		statusLine = m.spinner.View() + " " + statusLine
	}
	return body + "\n" + statusBarStyle.Render(statusLine)
}

func (m tuiModel) listView() string {
	if len(m.posts) == 0 {
		return statusBarStyle.Render("timeline empty; press r to refresh")
	}

	visible := m.height - 3
	if visible < 1 {
		visible = 1
	}
	start := 0
	if m.cursor >= visible {
		start = m.cursor - visible + 1
	}
	end := start + visible
	if end > len(m.posts) {
		end = len(m.posts)
	}

	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		post := m.posts[i]
		marker := "  "
		if i == m.cursor {
			marker = "> "
		}
		flags := ""
		if post.Liked {
			flags += "♥"
		}
		if post.Reposted {
			flags += "↻"
		}
		line := fmt.Sprintf("%s%-20s %s %s %s",
			marker,
			"@"+post.AuthorHandle,
			post.RelativeTime(m.app.now()),
			post.Preview(80),
			flags,
		)
		if i == m.cursor {
			line = lipgloss.NewStyle().Bold(true).Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
