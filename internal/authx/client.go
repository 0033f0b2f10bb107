// Package authx implements the OAuth2 client side of the AuthX
// authorization-code flow: authorize URL construction, code exchange, and
// the bearer-token profile fetch.
package authx

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// ErrRemoteIdentityFetch marks network or protocol failures while talking
// to AuthX. It is propagated to the caller, never recovered locally.
var ErrRemoteIdentityFetch = errors.New("remote identity fetch failed")

const (
	authorizePath = "/oauth/authorize"
	tokenPath     = "/oauth/token"
	userPath      = "/api/user"

	requestTimeout = 10 * time.Second
)

// Client drives the authorization-code exchange against a single AuthX
// issuer and maps the profile response into an Identity.
type Client struct {
	oauthConfig *oauth2.Config
	baseURL     string
	httpClient  *http.Client
}

func New(
	baseURL string,
	clientID string,
	clientSecret string,
	redirectURL string,
	verifyTLS bool,
) (*Client, error) {

	if baseURL == "" || clientID == "" || clientSecret == "" || redirectURL == "" {
		return nil, errors.New("authx oauth config missing required fields")
	}

	baseURL = strings.TrimRight(baseURL, "/")

	oauthCfg := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint: oauth2.Endpoint{
			AuthURL:  baseURL + authorizePath,
			TokenURL: baseURL + tokenPath,
		},
		Scopes: []string{"user:read"},
	}

	transport := http.DefaultTransport
	if !verifyTLS {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
		}
	}

	return &Client{
		oauthConfig: oauthCfg,
		baseURL:     baseURL,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   requestTimeout,
		},
	}, nil
}

// AuthCodeURL builds the authorization redirect URL for the given state
// token. Pure URL construction, no network call.
func (c *Client) AuthCodeURL(state string) string {
	return c.oauthConfig.AuthCodeURL(state)
}

// ExchangeCode exchanges the authorization code for an access token, fetches
// the remote profile, and returns the normalized identity. This method MUST
// NOT create users, sessions, or perform linking logic.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*Identity, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	token, err := c.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: token exchange: %v", ErrRemoteIdentityFetch, err)
	}

	raw, err := c.fetchUser(ctx, token.AccessToken)
	if err != nil {
		return nil, err
	}

	return &Identity{
		ID:       StringValue(raw["id"]),
		Name:     StringValue(raw["name"]),
		Nickname: StringValue(raw["nickname"]),
		Email:    StringValue(raw["email"]),
		Avatar:   StringValue(raw["avatar"]),
		Raw:      raw,
	}, nil
}

func (c *Client) fetchUser(ctx context.Context, accessToken string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+userPath, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build profile request: %v", ErrRemoteIdentityFetch, err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: profile request: %v", ErrRemoteIdentityFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: profile endpoint returned %d", ErrRemoteIdentityFetch, resp.StatusCode)
	}

	var raw map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: decode profile: %v", ErrRemoteIdentityFetch, err)
	}

	return raw, nil
}
