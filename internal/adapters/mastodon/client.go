package mastodon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/bnema/perch/internal/domain"
	"github.com/bnema/perch/internal/ports"
)

const maxResponseBytes = 1 << 20

// Client talks to a Mastodon instance's REST API. Every call carries the
// access token as a bearer header.
type Client struct {
	instance    string
	accessToken string
	httpClient  *http.Client
}

var _ ports.SocialClient = (*Client)(nil)

func NewClient(instance, accessToken string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		instance:    strings.TrimSuffix(instance, "/"),
		accessToken: accessToken,
		httpClient:  httpClient,
	}
}

func (c *Client) apiURL(endpoint string) string {
	return c.instance + "/api/v1" + endpoint
}

func (c *Client) Timeline(ctx context.Context, limit int) ([]domain.Post, error) {
	var statuses []statusPayload
	err := c.get(ctx, fmt.Sprintf("/timelines/home?limit=%d", limit), &statuses)
	if err != nil {
		return nil, fmt.Errorf("fetch timeline: %w", err)
	}

	posts := make([]domain.Post, 0, len(statuses))
	for _, status := range statuses {
		posts = append(posts, status.toPost())
	}
	return posts, nil
}

func (c *Client) Context(ctx context.Context, post domain.Post) ([]domain.Post, error) {
	var payload struct {
		Ancestors   []statusPayload `json:"ancestors"`
		Descendants []statusPayload `json:"descendants"`
	}
	err := c.get(ctx, fmt.Sprintf("/statuses/%s/context", post.NetworkID), &payload)
	if err != nil {
		return nil, fmt.Errorf("fetch context: %w", err)
	}

	// Only downstream replies are shown; ancestors are dropped.
	replies := make([]domain.Post, 0, len(payload.Descendants))
	for _, status := range payload.Descendants {
		replies = append(replies, status.toPost())
	}
	return replies, nil
}

func (c *Client) Publish(ctx context.Context, content string) (domain.Post, error) {
	return c.submitStatus(ctx, content, "")
}

func (c *Client) Reply(ctx context.Context, content string, target domain.Post) (domain.Post, error) {
	return c.submitStatus(ctx, content, target.NetworkID)
}

func (c *Client) submitStatus(ctx context.Context, content, inReplyTo string) (domain.Post, error) {
	request := struct {
		Status     string `json:"status"`
		Visibility string `json:"visibility"`
		InReplyTo  string `json:"in_reply_to_id,omitempty"`
	}{Status: content, Visibility: "public", InReplyTo: inReplyTo}

	var status statusPayload
	if err := c.post(ctx, "/statuses", request, &status); err != nil {
		return domain.Post{}, fmt.Errorf("submit status: %w", err)
	}
	return status.toPost(), nil
}

func (c *Client) Like(ctx context.Context, post domain.Post) error {
	if err := c.post(ctx, fmt.Sprintf("/statuses/%s/favourite", post.NetworkID), nil, nil); err != nil {
		return fmt.Errorf("like post: %w", err)
	}
	return nil
}

func (c *Client) Unlike(ctx context.Context, post domain.Post) error {
	if err := c.post(ctx, fmt.Sprintf("/statuses/%s/unfavourite", post.NetworkID), nil, nil); err != nil {
		return fmt.Errorf("unlike post: %w", err)
	}
	return nil
}

func (c *Client) Repost(ctx context.Context, post domain.Post) error {
	if err := c.post(ctx, fmt.Sprintf("/statuses/%s/reblog", post.NetworkID), nil, nil); err != nil {
		return fmt.Errorf("repost: %w", err)
	}
	return nil
}

func (c *Client) Unrepost(ctx context.Context, post domain.Post) error {
	if err := c.post(ctx, fmt.Sprintf("/statuses/%s/unreblog", post.NetworkID), nil, nil); err != nil {
		return fmt.Errorf("unrepost: %w", err)
	}
	return nil
}

func (c *Client) VerifyCredentials(ctx context.Context) (domain.Account, error) {
	var payload accountPayload
	if err := c.get(ctx, "/accounts/verify_credentials", &payload); err != nil {
		return domain.Account{}, fmt.Errorf("verify credentials: %w", err)
	}

	account := domain.NewAccount(domain.NetworkMastodon, payload.Username, c.instance, payload.DisplayName)
	account.AvatarURL = payload.Avatar
	return account, nil
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	return c.do(ctx, http.MethodGet, endpoint, nil, out)
}

func (c *Client) post(ctx context.Context, endpoint string, body, out any) error {
	return c.do(ctx, http.MethodPost, endpoint, body, out)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiURL(endpoint), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		return &domain.RequestError{
			Network: domain.NetworkMastodon,
			Status:  resp.StatusCode,
			Body:    strings.TrimSpace(string(text)),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// ==================== API payloads ====================

type statusPayload struct {
	ID               string          `json:"id"`
	CreatedAt        string          `json:"created_at"`
	Content          string          `json:"content"`
	URL              string          `json:"url"`
	Account          accountPayload  `json:"account"`
	Reblog           *statusPayload  `json:"reblog"`
	FavouritesCount  int             `json:"favourites_count"`
	ReblogsCount     int             `json:"reblogs_count"`
	RepliesCount     int             `json:"replies_count"`
	Favourited       bool            `json:"favourited"`
	Reblogged        bool            `json:"reblogged"`
	InReplyToID      string          `json:"in_reply_to_id"`
	MediaAttachments []mediaPayload  `json:"media_attachments"`
}

type accountPayload struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Avatar      string `json:"avatar"`
	Acct        string `json:"acct"`
}

type mediaPayload struct {
	URL         string `json:"url"`
	PreviewURL  string `json:"preview_url"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

var tagPattern = regexp.MustCompile(`<[^>]+>`)

func (s statusPayload) toPost() domain.Post {
	// A timeline item wrapping a reblog is unwrapped: the inner post is
	// kept and tagged with the booster's display name.
	if s.Reblog != nil {
		post := s.Reblog.toPost()
		post.IsRepost = true
		post.RepostAuthor = s.Account.DisplayName
		return post
	}

	createdAt, err := time.Parse(time.RFC3339, s.CreatedAt)
	if err != nil {
		createdAt = time.Now().UTC()
	}

	handle := s.Account.Acct
	if handle == "" {
		handle = s.Account.Username
	}

	post := domain.NewPost(domain.NetworkMastodon, s.ID)
	post.AuthorHandle = handle
	post.AuthorName = s.Account.DisplayName
	post.AuthorAvatar = s.Account.Avatar
	post.Content = stripHTML(s.Content)
	post.ContentRaw = s.Content
	post.CreatedAt = createdAt
	post.URL = s.URL
	post.LikeCount = s.FavouritesCount
	post.RepostCount = s.ReblogsCount
	post.ReplyCount = s.RepliesCount
	post.Liked = s.Favourited
	post.Reposted = s.Reblogged
	post.ReplyToID = s.InReplyToID

	for _, m := range s.MediaAttachments {
		post.Media = append(post.Media, domain.MediaAttachment{
			URL:        m.URL,
			PreviewURL: m.PreviewURL,
			Type:       domain.ParseMediaType(m.Type),
			AltText:    m.Description,
		})
	}
	return post
}

// stripHTML turns the instance's rich markup into plain text: line breaks
// and paragraph boundaries become newlines, remaining tags are removed and
// entities are decoded.
func stripHTML(content string) string {
	replacer := strings.NewReplacer(
		"<br>", "\n",
		"<br/>", "\n",
		"<br />", "\n",
		"</p><p>", "\n\n",
	)
	content = replacer.Replace(content)
	content = tagPattern.ReplaceAllString(content, "")
	return html.UnescapeString(content)
}
