package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/bnema/perch/internal/domain"
)

// queueCapacity bounds both the command and result queues. Commands are
// rate-limited by human input, so a full queue blocking the producer is
// acceptable.
const queueCapacity = 32

const timelineFetchLimit = 40

// Command is a request for the worker. Each value is consumed exactly
// once.
type Command interface{ isCommand() }

type RefreshTimeline struct {
	Accounts []domain.Account
}

type FetchConversation struct {
	Post    domain.Post
	Account domain.Account
}

type LikePost struct {
	Post    domain.Post
	Account domain.Account
}

type UnlikePost struct {
	Post    domain.Post
	Account domain.Account
}

type RepostPost struct {
	Post    domain.Post
	Account domain.Account
}

type UnrepostPost struct {
	Post    domain.Post
	Account domain.Account
}

type SubmitPost struct {
	Content  string
	Accounts []domain.Account
	// ReplyTo, when set, turns the submission into a reply on accounts
	// whose network matches the target's. Other accounts get a plain post.
	ReplyTo *domain.Post
}

type Shutdown struct{}

func (RefreshTimeline) isCommand()   {}
func (FetchConversation) isCommand() {}
func (LikePost) isCommand()          {}
func (UnlikePost) isCommand()        {}
func (RepostPost) isCommand()        {}
func (UnrepostPost) isCommand()      {}
func (SubmitPost) isCommand()        {}
func (Shutdown) isCommand()          {}

// Result is the worker's answer to a command. Data results always precede
// the summary status or error result for the same command.
type Result interface{ isResult() }

type TimelineRefreshed struct {
	Posts []domain.Post
}

type ContextFetched struct {
	Root   domain.Post
	Thread []ThreadItem
}

// PostLiked and friends are keyed by the post's network-native id so the
// consumer can patch its own copy of the post.
type PostLiked struct{ NetworkID string }

type PostUnliked struct{ NetworkID string }

type PostReposted struct{ NetworkID string }

type PostUnreposted struct{ NetworkID string }

type Posted struct {
	Posts []domain.Post
}

type StatusResult struct {
	Message string
}

type ErrorResult struct {
	Message string
}

func (TimelineRefreshed) isResult() {}
func (ContextFetched) isResult()    {}
func (PostLiked) isResult()         {}
func (PostUnliked) isResult()       {}
func (PostReposted) isResult()      {}
func (PostUnreposted) isResult()    {}
func (Posted) isResult()            {}
func (StatusResult) isResult()      {}
func (ErrorResult) isResult()       {}

// Worker executes commands strictly one at a time on its own goroutine.
// The interactive loop enqueues commands and polls results; it never
// touches the network itself.
type Worker struct {
	resolver Resolver
	logger   *slog.Logger
	commands chan Command
	results  chan Result
}

func NewWorker(resolver Resolver, logger *slog.Logger) *Worker {
	return &Worker{
		resolver: resolver,
		logger:   logger,
		commands: make(chan Command, queueCapacity),
		results:  make(chan Result, queueCapacity),
	}
}

func (w *Worker) Commands() chan<- Command { return w.commands }

func (w *Worker) Results() <-chan Result { return w.results }

// Run consumes commands until a Shutdown command or context cancellation.
// Shutdown exits immediately without draining queued commands.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-w.commands:
			if _, ok := cmd.(Shutdown); ok {
				return
			}
			w.execute(ctx, cmd)
		}
	}
}

func (w *Worker) execute(ctx context.Context, cmd Command) {
	switch c := cmd.(type) {
	case RefreshTimeline:
		w.refreshTimeline(ctx, c)
	case FetchConversation:
		w.fetchConversation(ctx, c)
	case LikePost:
		w.interact(ctx, c.Account, c.Post, "like")
	case UnlikePost:
		w.interact(ctx, c.Account, c.Post, "unlike")
	case RepostPost:
		w.interact(ctx, c.Account, c.Post, "repost")
	case UnrepostPost:
		w.interact(ctx, c.Account, c.Post, "unrepost")
	case SubmitPost:
		w.submitPost(ctx, c)
	default:
		w.logger.Warn("unknown command", "type", fmt.Sprintf("%T", cmd))
	}
}

// refreshTimeline fetches every account's timeline, skipping accounts
// whose credentials or fetch fail, and merges the rest newest first.
func (w *Worker) refreshTimeline(ctx context.Context, cmd RefreshTimeline) {
	var posts []domain.Post
	var failures []string

	for _, account := range cmd.Accounts {
		client, err := w.resolver.Resolve(ctx, account)
		if err != nil {
			w.logger.Warn("resolve client", "account", account.FullHandle(), "error", err)
			failures = append(failures, err.Error())
			continue
		}
		fetched, err := client.Timeline(ctx, timelineFetchLimit)
		if err != nil {
			w.logger.Warn("fetch timeline", "account", account.FullHandle(), "error", err)
			failures = append(failures, fmt.Sprintf("%s: %v", account.FullHandle(), err))
			continue
		}
		posts = append(posts, fetched...)
	}

	// Ties keep per-account fetch order.
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})

	if len(posts) == 0 && len(failures) > 0 {
		w.emit(ErrorResult{Message: strings.Join(failures, "; ")})
		return
	}
	w.emit(TimelineRefreshed{Posts: posts})
	if len(failures) > 0 {
		w.emit(StatusResult{Message: strings.Join(failures, "; ")})
	}
}

// fetchConversation is best effort: any failure is logged and swallowed,
// because conversations are supplementary and must never disturb the main
// flow with an error banner.
func (w *Worker) fetchConversation(ctx context.Context, cmd FetchConversation) {
	client, err := w.resolver.Resolve(ctx, cmd.Account)
	if err != nil {
		w.logger.Warn("resolve client for conversation", "error", err)
		return
	}
	replies, err := client.Context(ctx, cmd.Post)
	if err != nil {
		w.logger.Warn("fetch conversation", "post", cmd.Post.NetworkID, "error", err)
		return
	}
	w.emit(ContextFetched{
		Root:   cmd.Post,
		Thread: BuildThread(cmd.Post, replies),
	})
}

func (w *Worker) interact(ctx context.Context, account domain.Account, post domain.Post, verb string) {
	client, err := w.resolver.Resolve(ctx, account)
	if err != nil {
		w.emit(ErrorResult{Message: fmt.Sprintf("%s failed: %v", verb, err)})
		return
	}

	var success Result
	switch verb {
	case "like":
		err = client.Like(ctx, post)
		success = PostLiked{NetworkID: post.NetworkID}
	case "unlike":
		err = client.Unlike(ctx, post)
		success = PostUnliked{NetworkID: post.NetworkID}
	case "repost":
		err = client.Repost(ctx, post)
		success = PostReposted{NetworkID: post.NetworkID}
	case "unrepost":
		err = client.Unrepost(ctx, post)
		success = PostUnreposted{NetworkID: post.NetworkID}
	}
	if err != nil {
		w.emit(ErrorResult{Message: fmt.Sprintf("%s failed: %v", verb, err)})
		return
	}
	w.emit(success)
}

// submitPost publishes to every target account in order. A reply target
// only applies to accounts on the target's own network.
func (w *Worker) submitPost(ctx context.Context, cmd SubmitPost) {
	var posted []domain.Post
	var failures []string

	for _, account := range cmd.Accounts {
		client, err := w.resolver.Resolve(ctx, account)
		if err != nil {
			failures = append(failures, err.Error())
			continue
		}

		var post domain.Post
		if cmd.ReplyTo != nil && cmd.ReplyTo.Network == account.Network {
			post, err = client.Reply(ctx, cmd.Content, *cmd.ReplyTo)
		} else {
			post, err = client.Publish(ctx, cmd.Content)
		}
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", account.FullHandle(), err))
			continue
		}
		posted = append(posted, post)
	}

	if len(posted) > 0 {
		w.emit(Posted{Posts: posted})
	}
	if len(failures) > 0 {
		w.emit(ErrorResult{Message: strings.Join(failures, "; ")})
		return
	}
	w.emit(StatusResult{Message: fmt.Sprintf("posted to %d account(s)", len(posted))})
}

func (w *Worker) emit(result Result) {
	w.results <- result
}
