package mastodon

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/bnema/perch/internal/domain"
)

const (
	appName     = "perch"
	redirectURI = "urn:ietf:wg:oauth:2.0:oob"
	oauthScopes = "read write follow"
)

// AppCredentials identify a dynamically registered OAuth application on a
// single instance.
type AppCredentials struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// OAuthFlow drives the out-of-band authorization code flow: register the
// app, send the user to AuthorizeURL, then exchange the pasted code.
type OAuthFlow struct {
	instance   string
	httpClient *http.Client
}

func NewOAuthFlow(instance string, httpClient *http.Client) *OAuthFlow {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &OAuthFlow{
		instance:   strings.TrimSuffix(instance, "/"),
		httpClient: httpClient,
	}
}

// RegisterApp creates an application on the instance and returns its
// client credentials.
func (f *OAuthFlow) RegisterApp(ctx context.Context) (AppCredentials, error) {
	form := url.Values{
		"client_name":   {appName},
		"redirect_uris": {redirectURI},
		"scopes":        {oauthScopes},
	}

	var creds AppCredentials
	if err := f.postForm(ctx, "/api/v1/apps", form, &creds); err != nil {
		return AppCredentials{}, fmt.Errorf("register app: %w", err)
	}
	return creds, nil
}

// AuthorizeURL is the page the user must visit to obtain an authorization
// code.
func (f *OAuthFlow) AuthorizeURL(creds AppCredentials) string {
	query := url.Values{
		"client_id":     {creds.ClientID},
		"redirect_uri":  {redirectURI},
		"response_type": {"code"},
		"scope":         {oauthScopes},
	}
	return f.instance + "/oauth/authorize?" + query.Encode()
}

// ExchangeCode trades an authorization code for an access token.
func (f *OAuthFlow) ExchangeCode(ctx context.Context, creds AppCredentials, code string) (string, error) {
	form := url.Values{
		"client_id":     {creds.ClientID},
		"client_secret": {creds.ClientSecret},
		"redirect_uri":  {redirectURI},
		"grant_type":    {"authorization_code"},
		"code":          {strings.TrimSpace(code)},
		"scope":         {oauthScopes},
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := f.postForm(ctx, "/oauth/token", form, &payload); err != nil {
		return "", fmt.Errorf("exchange code: %w", err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("exchange code: empty access token in response")
	}
	return payload.AccessToken, nil
}

func (f *OAuthFlow) postForm(ctx context.Context, endpoint string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.instance+endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := f.httpClient.Do(req)
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

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
