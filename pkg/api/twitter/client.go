// Package twitter is a cookie-session client for the x.com web API.
package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/spyrux/persona-bot/pkg/x/httpx"
)

// DefaultBearerToken is the public token embedded in the x.com web client.
const DefaultBearerToken = "AAAAAAAAAAAAAAAAAAAAANRILgAAAAAAnNwIzUejRCOuH5E6I8xnZz4puTs%3D1Zv7ttfk8LF81IUq16cHjhLTvJu4FA33AGWWjCpTnA"

type Endpoints struct {
	API     string // v1.1 REST + onboarding, e.g. https://api.x.com
	GraphQL string // e.g. https://x.com/i/api/graphql
	Upload  string // e.g. https://upload.x.com/i/media/upload.json
}

var DefaultEndpoints = Endpoints{
	API:     "https://api.x.com",
	GraphQL: "https://x.com/i/api/graphql",
	Upload:  "https://upload.x.com/i/media/upload.json",
}

// EndpointsFromBase points every endpoint at one host, used against fakes.
func EndpointsFromBase(base string) Endpoints {
	base = strings.TrimRight(base, "/")
	return Endpoints{
		API:     base,
		GraphQL: base + "/graphql",
		Upload:  base + "/upload",
	}
}

type Options struct {
	HTTPClient  *http.Client
	BearerToken string
	Endpoints   Endpoints
	UserAgent   string
}

type Client struct {
	httpClient *http.Client
	bearer     string
	endpoints  Endpoints
	userAgent  string

	mu         sync.Mutex
	cookies    map[string]string
	guestToken string
	username   string
}

func NewClient(opts Options) (*Client, error) {
	hc := opts.HTTPClient
	if hc == nil {
		var err error
		hc, err = httpx.NewClient(httpx.ClientOptions{Timeout: 30 * time.Second, UseEnvProxy: true})
		if err != nil {
			return nil, err
		}
	}
	bearer := strings.TrimSpace(opts.BearerToken)
	if bearer == "" {
		bearer = DefaultBearerToken
	}
	ep := opts.Endpoints
	if ep.API == "" {
		ep.API = DefaultEndpoints.API
	}
	if ep.GraphQL == "" {
		ep.GraphQL = DefaultEndpoints.GraphQL
	}
	if ep.Upload == "" {
		ep.Upload = DefaultEndpoints.Upload
	}
	ua := strings.TrimSpace(opts.UserAgent)
	if ua == "" {
		ua = httpx.RandomBrowserUserAgent()
	}
	return &Client{
		httpClient: hc,
		bearer:     bearer,
		endpoints:  ep,
		userAgent:  ua,
		cookies:    map[string]string{},
	}, nil
}

func (c *Client) cookie(name string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cookies[name]
}

// IsLoggedIn reports whether the session carries an auth token.
func (c *Client) IsLoggedIn() bool {
	return c.cookie("auth_token") != "" && c.cookie("ct0") != ""
}

func (c *Client) headers(extra map[string]string) map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()

	h := map[string]string{
		"Authorization":             "Bearer " + c.bearer,
		"User-Agent":                c.userAgent,
		"Accept":                    "*/*",
		"Accept-Language":           "en-US,en;q=0.9",
		"x-twitter-active-user":     "yes",
		"x-twitter-client-language": "en",
	}
	if ct0 := c.cookies["ct0"]; ct0 != "" {
		h["x-csrf-token"] = ct0
	}
	if c.cookies["auth_token"] != "" {
		h["x-twitter-auth-type"] = "OAuth2Session"
	} else if c.guestToken != "" {
		h["x-guest-token"] = c.guestToken
	}
	if len(c.cookies) > 0 {
		parts := make([]string, 0, len(c.cookies))
		for k, v := range c.cookies {
			parts = append(parts, k+"="+v)
		}
		h["Cookie"] = strings.Join(parts, "; ")
	}
	for k, v := range extra {
		h[k] = v
	}
	return h
}

func (c *Client) doRequest(ctx context.Context, method, urlString string, body []byte, extra map[string]string) (status int, responseBody []byte, err error) {
	var bodyReader io.Reader
	if len(body) > 0 {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, urlString, bodyReader)
	if err != nil {
		return 0, nil, err
	}
	for k, v := range c.headers(extra) {
		if strings.TrimSpace(v) == "" {
			continue
		}
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	c.mu.Lock()
	for _, ck := range resp.Cookies() {
		if ck.MaxAge < 0 || ck.Value == "" {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck.Value
	}
	c.mu.Unlock()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, bodyBytes, nil
}

// do wraps doRequest and maps statuses onto the package errors.
func (c *Client) do(ctx context.Context, method, urlString string, body []byte, extra map[string]string) ([]byte, error) {
	status, resp, err := c.doRequest(ctx, method, urlString, body, extra)
	if err != nil {
		return nil, err
	}
	return resp, checkStatus(status, resp)
}

func checkStatus(status int, body []byte) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %w", ErrUnauthorized, &HTTPError{Status: status, Body: string(body)})
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %w", ErrNotFound, &HTTPError{Status: status, Body: string(body)})
	default:
		return &HTTPError{Status: status, Body: string(body)}
	}
}

func (c *Client) postJSON(ctx context.Context, urlString string, payload any) ([]byte, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodPost, urlString, b, map[string]string{"Content-Type": "application/json"})
}

type graphQLOp struct {
	QueryID string
	Name    string
}

var (
	opHomeTimeline        = graphQLOp{"HJFjzBgCs16TqxewQOeLNg", "HomeTimeline"}
	opSearchTimeline      = graphQLOp{"gkjsKepM6gl_HmFWoWKfgg", "SearchTimeline"}
	opTweetResultByRestID = graphQLOp{"7xflPyRiUxGVbJd4uWmbfg", "TweetResultByRestId"}
	opCreateTweet         = graphQLOp{"a1p9RWpkYKBjWv_I3WzS-A", "CreateTweet"}
	opFavoriteTweet       = graphQLOp{"lI07N6Otwv1PhnEgXILM7A", "FavoriteTweet"}
	opCreateRetweet       = graphQLOp{"ojPdsZsimiJrUGLR1sjUtA", "CreateRetweet"}
)

func (op graphQLOp) url(base string) string {
	return strings.TrimRight(base, "/") + "/" + op.QueryID + "/" + op.Name
}

func (c *Client) graphQLGet(ctx context.Context, op graphQLOp, variables map[string]any) ([]byte, error) {
	vb, err := json.Marshal(variables)
	if err != nil {
		return nil, err
	}
	fb, err := json.Marshal(defaultFeatures)
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("variables", string(vb))
	q.Set("features", string(fb))
	return c.do(ctx, http.MethodGet, op.url(c.endpoints.GraphQL)+"?"+q.Encode(), nil, nil)
}

func (c *Client) graphQLPost(ctx context.Context, op graphQLOp, variables map[string]any, withFeatures bool) ([]byte, error) {
	payload := map[string]any{
		"variables": variables,
		"queryId":   op.QueryID,
	}
	if withFeatures {
		payload["features"] = defaultFeatures
	}
	return c.postJSON(ctx, op.url(c.endpoints.GraphQL), payload)
}

var defaultFeatures = map[string]bool{
	"rweb_tipjar_consumption_enabled":                                         true,
	"responsive_web_graphql_exclude_directive_enabled":                        true,
	"verified_phone_label_enabled":                                            false,
	"creator_subscriptions_tweet_preview_api_enabled":                         true,
	"responsive_web_graphql_timeline_navigation_enabled":                      true,
	"responsive_web_graphql_skip_user_profile_image_extensions_enabled":       false,
	"communities_web_enable_tweet_community_results_fetch":                    true,
	"c9s_tweet_anatomy_moderator_badge_enabled":                               true,
	"articles_preview_enabled":                                                true,
	"tweetypie_unmention_optimization_enabled":                                true,
	"responsive_web_edit_tweet_api_enabled":                                   true,
	"graphql_is_translatable_rweb_tweet_is_translatable_enabled":              true,
	"view_counts_everywhere_api_enabled":                                      true,
	"longform_notetweets_consumption_enabled":                                 true,
	"responsive_web_twitter_article_tweet_consumption_enabled":                true,
	"tweet_awards_web_tipping_enabled":                                        false,
	"creator_subscriptions_quote_tweet_preview_enabled":                       false,
	"freedom_of_speech_not_reach_fetch_enabled":                               true,
	"standardized_nudges_misinfo":                                             true,
	"tweet_with_visibility_results_prefer_gql_limited_actions_policy_enabled": true,
	"rweb_video_timestamps_enabled":                                           true,
	"longform_notetweets_rich_text_read_enabled":                              true,
	"longform_notetweets_inline_media_enabled":                                true,
	"responsive_web_enhance_cards_enabled":                                    false,
}
