package bluesky

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bnema/perch/internal/domain"
	"github.com/bnema/perch/internal/ports"
)

const (
	// DefaultPDS is the flagship personal data server.
	DefaultPDS = "https://bsky.social"

	collectionPost   = "app.bsky.feed.post"
	collectionLike   = "app.bsky.feed.like"
	collectionRepost = "app.bsky.feed.repost"

	maxResponseBytes = 1 << 20
	listRecordsLimit = 100
)

// Client talks to an AT Protocol personal data server. Posts are
// content-addressed: every mutation needs the target's (cid, uri) pair,
// and undoing an interaction means finding and deleting the viewer's own
// interaction record.
type Client struct {
	pds        string
	accessJwt  string
	did        string
	handle     string
	httpClient *http.Client
}

var _ ports.SocialClient = (*Client)(nil)

// Login opens a session with an app password and returns an authenticated
// client.
func Login(ctx context.Context, pds, identifier, appPassword string, httpClient *http.Client) (*Client, error) {
	if pds == "" {
		pds = DefaultPDS
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	c := &Client{
		pds:        strings.TrimSuffix(pds, "/"),
		httpClient: httpClient,
	}

	request := struct {
		Identifier string `json:"identifier"`
		Password   string `json:"password"`
	}{Identifier: identifier, Password: appPassword}

	var session struct {
		AccessJwt string `json:"accessJwt"`
		DID       string `json:"did"`
		Handle    string `json:"handle"`
	}
	if err := c.post(ctx, "com.atproto.server.createSession", request, &session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	c.accessJwt = session.AccessJwt
	c.did = session.DID
	c.handle = session.Handle
	return c, nil
}

// DID returns the session's decentralized identifier.
func (c *Client) DID() string { return c.did }

func (c *Client) Timeline(ctx context.Context, limit int) ([]domain.Post, error) {
	query := url.Values{"limit": {fmt.Sprint(limit)}}

	var payload struct {
		Feed []feedItem `json:"feed"`
	}
	if err := c.get(ctx, "app.bsky.feed.getTimeline", query, &payload); err != nil {
		return nil, fmt.Errorf("fetch timeline: %w", err)
	}

	posts := make([]domain.Post, 0, len(payload.Feed))
	for _, item := range payload.Feed {
		posts = append(posts, item.toPost())
	}
	return posts, nil
}

func (c *Client) Context(ctx context.Context, post domain.Post) ([]domain.Post, error) {
	if !post.HasRecordRef() {
		return nil, domain.ErrMissingRecordRef
	}

	query := url.Values{"uri": {post.URI}, "depth": {"10"}}

	var payload struct {
		Thread threadNode `json:"thread"`
	}
	if err := c.get(ctx, "app.bsky.feed.getPostThread", query, &payload); err != nil {
		return nil, fmt.Errorf("fetch thread: %w", err)
	}

	var replies []domain.Post
	collectReplies(payload.Thread, post.URI, &replies)
	return replies, nil
}

// collectReplies walks the thread tree depth first, appending every reply
// below the root with its parent's at:// URI as the reply reference.
func collectReplies(node threadNode, parentURI string, out *[]domain.Post) {
	for _, child := range node.Replies {
		if child.Post == nil {
			continue
		}
		reply := child.Post.toPost()
		reply.ReplyToID = parentURI
		*out = append(*out, reply)
		collectReplies(child, child.Post.URI, out)
	}
}

func (c *Client) Publish(ctx context.Context, content string) (domain.Post, error) {
	record := postRecord{
		Type:      collectionPost,
		Text:      content,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	return c.createPost(ctx, record)
}

func (c *Client) Reply(ctx context.Context, content string, target domain.Post) (domain.Post, error) {
	if !target.HasRecordRef() {
		return domain.Post{}, domain.ErrMissingRecordRef
	}

	ref := recordRef{URI: target.URI, CID: target.CID}
	record := postRecord{
		Type:      collectionPost,
		Text:      content,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Reply: &replyRefs{
			Root:   ref,
			Parent: ref,
		},
	}
	return c.createPost(ctx, record)
}

func (c *Client) createPost(ctx context.Context, record postRecord) (domain.Post, error) {
	request := struct {
		Repo       string     `json:"repo"`
		Collection string     `json:"collection"`
		Record     postRecord `json:"record"`
	}{Repo: c.did, Collection: collectionPost, Record: record}

	var created recordRef
	if err := c.post(ctx, "com.atproto.repo.createRecord", request, &created); err != nil {
		return domain.Post{}, fmt.Errorf("create post record: %w", err)
	}

	post := domain.NewPost(domain.NetworkBluesky, created.URI)
	post.AuthorHandle = c.handle
	post.Content = record.Text
	post.URI = created.URI
	post.CID = created.CID
	if record.Reply != nil {
		post.ReplyToID = record.Reply.Parent.URI
	}
	return post, nil
}

func (c *Client) Like(ctx context.Context, post domain.Post) error {
	if err := c.createInteraction(ctx, collectionLike, post); err != nil {
		return fmt.Errorf("like post: %w", err)
	}
	return nil
}

func (c *Client) Unlike(ctx context.Context, post domain.Post) error {
	if err := c.deleteInteraction(ctx, collectionLike, post); err != nil {
		return fmt.Errorf("unlike post: %w", err)
	}
	return nil
}

func (c *Client) Repost(ctx context.Context, post domain.Post) error {
	if err := c.createInteraction(ctx, collectionRepost, post); err != nil {
		return fmt.Errorf("repost: %w", err)
	}
	return nil
}

func (c *Client) Unrepost(ctx context.Context, post domain.Post) error {
	if err := c.deleteInteraction(ctx, collectionRepost, post); err != nil {
		return fmt.Errorf("unrepost: %w", err)
	}
	return nil
}

// createInteraction writes a like or repost record pointing at the target
// post. The target's record reference is checked before any request goes
// out.
func (c *Client) createInteraction(ctx context.Context, collection string, post domain.Post) error {
	if !post.HasRecordRef() {
		return domain.ErrMissingRecordRef
	}

	request := struct {
		Repo       string            `json:"repo"`
		Collection string            `json:"collection"`
		Record     interactionRecord `json:"record"`
	}{
		Repo:       c.did,
		Collection: collection,
		Record: interactionRecord{
			Type:      collection,
			Subject:   recordRef{URI: post.URI, CID: post.CID},
			CreatedAt: time.Now().UTC().Format(time.RFC3339),
		},
	}
	return c.post(ctx, "com.atproto.repo.createRecord", request, nil)
}

// deleteInteraction undoes a like or repost by listing the viewer's own
// interaction records, matching on the subject URI, and deleting the hit.
// No matching record is treated as success: the interaction is already
// gone.
func (c *Client) deleteInteraction(ctx context.Context, collection string, post domain.Post) error {
	if !post.HasRecordRef() {
		return domain.ErrMissingRecordRef
	}

	query := url.Values{
		"repo":       {c.did},
		"collection": {collection},
		"limit":      {fmt.Sprint(listRecordsLimit)},
	}

	var payload struct {
		Records []struct {
			URI   string `json:"uri"`
			Value struct {
				Subject recordRef `json:"subject"`
			} `json:"value"`
		} `json:"records"`
	}
	if err := c.get(ctx, "com.atproto.repo.listRecords", query, &payload); err != nil {
		return fmt.Errorf("list %s records: %w", collection, err)
	}

	rkey := ""
	for _, record := range payload.Records {
		if record.Value.Subject.URI == post.URI {
			rkey = recordKey(record.URI)
			break
		}
	}
	if rkey == "" {
		return nil
	}

	request := struct {
		Repo       string `json:"repo"`
		Collection string `json:"collection"`
		RKey       string `json:"rkey"`
	}{Repo: c.did, Collection: collection, RKey: rkey}
	if err := c.post(ctx, "com.atproto.repo.deleteRecord", request, nil); err != nil {
		return fmt.Errorf("delete record %s: %w", rkey, err)
	}
	return nil
}

// recordKey extracts the rkey, the last path segment of an at:// URI.
func recordKey(uri string) string {
	idx := strings.LastIndex(uri, "/")
	if idx < 0 {
		return uri
	}
	return uri[idx+1:]
}

func (c *Client) VerifyCredentials(ctx context.Context) (domain.Account, error) {
	query := url.Values{"actor": {c.did}}

	var profile struct {
		Handle      string `json:"handle"`
		DisplayName string `json:"displayName"`
		Avatar      string `json:"avatar"`
	}
	if err := c.get(ctx, "app.bsky.actor.getProfile", query, &profile); err != nil {
		return domain.Account{}, fmt.Errorf("fetch profile: %w", err)
	}

	account := domain.NewAccount(domain.NetworkBluesky, profile.Handle, c.pds, profile.DisplayName)
	account.AvatarURL = profile.Avatar
	return account, nil
}

func (c *Client) get(ctx context.Context, method string, query url.Values, out any) error {
	endpoint := c.pds + "/xrpc/" + method
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	return c.do(ctx, http.MethodGet, endpoint, nil, out)
}

func (c *Client) post(ctx context.Context, method string, body, out any) error {
	return c.do(ctx, http.MethodPost, c.pds+"/xrpc/"+method, body, out)
}

func (c *Client) do(ctx context.Context, httpMethod, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, httpMethod, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if c.accessJwt != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessJwt)
	}
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
			Network: domain.NetworkBluesky,
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

type recordRef struct {
	URI string `json:"uri"`
	CID string `json:"cid"`
}

type replyRefs struct {
	Root   recordRef `json:"root"`
	Parent recordRef `json:"parent"`
}

type postRecord struct {
	Type      string     `json:"$type"`
	Text      string     `json:"text"`
	CreatedAt string     `json:"createdAt"`
	Reply     *replyRefs `json:"reply,omitempty"`
}

type interactionRecord struct {
	Type      string    `json:"$type"`
	Subject   recordRef `json:"subject"`
	CreatedAt string    `json:"createdAt"`
}

type feedItem struct {
	Post   postView `json:"post"`
	Reason *struct {
		Type string `json:"$type"`
		By   struct {
			Handle      string `json:"handle"`
			DisplayName string `json:"displayName"`
		} `json:"by"`
	} `json:"reason"`
}

type postView struct {
	URI    string `json:"uri"`
	CID    string `json:"cid"`
	Author struct {
		DID         string `json:"did"`
		Handle      string `json:"handle"`
		DisplayName string `json:"displayName"`
		Avatar      string `json:"avatar"`
	} `json:"author"`
	Record struct {
		Text      string `json:"text"`
		CreatedAt string `json:"createdAt"`
		Reply     *struct {
			Parent recordRef `json:"parent"`
		} `json:"reply"`
	} `json:"record"`
	Embed *struct {
		Images []struct {
			Fullsize string `json:"fullsize"`
			Thumb    string `json:"thumb"`
			Alt      string `json:"alt"`
		} `json:"images"`
	} `json:"embed"`
	LikeCount   int `json:"likeCount"`
	RepostCount int `json:"repostCount"`
	ReplyCount  int `json:"replyCount"`
	Viewer      struct {
		Like   string `json:"like"`
		Repost string `json:"repost"`
	} `json:"viewer"`
}

type threadNode struct {
	Post    *postView    `json:"post"`
	Replies []threadNode `json:"replies"`
}

func (i feedItem) toPost() domain.Post {
	post := i.Post.toPost()
	if i.Reason != nil && strings.HasSuffix(i.Reason.Type, "reasonRepost") {
		post.IsRepost = true
		post.RepostAuthor = i.Reason.By.DisplayName
		if post.RepostAuthor == "" {
			post.RepostAuthor = i.Reason.By.Handle
		}
	}
	return post
}

func (v postView) toPost() domain.Post {
	createdAt, err := time.Parse(time.RFC3339, v.Record.CreatedAt)
	if err != nil {
		createdAt = time.Now().UTC()
	}

	post := domain.NewPost(domain.NetworkBluesky, v.URI)
	post.AuthorHandle = v.Author.Handle
	post.AuthorName = v.Author.DisplayName
	post.AuthorAvatar = v.Author.Avatar
	post.Content = v.Record.Text
	post.CreatedAt = createdAt
	post.URL = webURL(v.URI, v.Author.Handle)
	post.LikeCount = v.LikeCount
	post.RepostCount = v.RepostCount
	post.ReplyCount = v.ReplyCount
	post.Liked = v.Viewer.Like != ""
	post.Reposted = v.Viewer.Repost != ""
	post.CID = v.CID
	post.URI = v.URI
	if v.Record.Reply != nil {
		post.ReplyToID = v.Record.Reply.Parent.URI
	}

	if v.Embed != nil {
		for _, img := range v.Embed.Images {
			post.Media = append(post.Media, domain.MediaAttachment{
				URL:        img.Fullsize,
				PreviewURL: img.Thumb,
				Type:       domain.MediaImage,
				AltText:    img.Alt,
			})
		}
	}
	return post
}

// webURL converts an at:// post URI into the public web link.
func webURL(uri, handle string) string {
	rkey := recordKey(uri)
	if rkey == "" || handle == "" {
		return ""
	}
	return fmt.Sprintf("https://bsky.app/profile/%s/post/%s", handle, rkey)
}
