package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
)

func (c *Client) FetchHomeTimeline(ctx context.Context, limit int) ([]Tweet, error) {
	if limit <= 0 {
		limit = 20
	}
	body, err := c.graphQLGet(ctx, opHomeTimeline, map[string]any{
		"count":                  limit,
		"includePromotedContent": false,
		"latestControlAvailable": true,
		"requestContext":         "launch",
		"withCommunity":          true,
	})
	if err != nil {
		return nil, fmt.Errorf("home timeline: %w", err)
	}
	return decodeHomeTimeline(body, limit)
}

// SearchLatest runs a "Latest" search, e.g. "@handle" for mentions.
func (c *Client) SearchLatest(ctx context.Context, query string, limit int) ([]Tweet, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("empty search query")
	}
	if limit <= 0 {
		limit = 20
	}
	body, err := c.graphQLGet(ctx, opSearchTimeline, map[string]any{
		"rawQuery":    query,
		"count":       limit,
		"querySource": "typed_query",
		"product":     "Latest",
	})
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	return decodeSearchTimeline(body, limit)
}

func (c *Client) GetTweet(ctx context.Context, id string) (Tweet, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Tweet{}, ErrNotFound
	}
	body, err := c.graphQLGet(ctx, opTweetResultByRestID, map[string]any{
		"tweetId":                id,
		"withCommunity":          false,
		"includePromotedContent": false,
		"withVoice":              false,
	})
	if err != nil {
		return Tweet{}, fmt.Errorf("get tweet %s: %w", id, err)
	}
	tw, err := decodeTweetResult(body)
	if err != nil {
		return Tweet{}, fmt.Errorf("get tweet %s: %w", id, err)
	}
	return tw, nil
}

func (c *Client) SendTweet(ctx context.Context, text string, opts TweetOptions) (Tweet, error) {
	if strings.TrimSpace(text) == "" && len(opts.MediaIDs) == 0 {
		return Tweet{}, fmt.Errorf("empty tweet")
	}

	entities := make([]any, 0, len(opts.MediaIDs))
	for _, id := range opts.MediaIDs {
		entities = append(entities, map[string]any{"media_id": id, "tagged_users": []any{}})
	}
	vars := map[string]any{
		"tweet_text":              text,
		"dark_request":            false,
		"media":                   map[string]any{"media_entities": entities, "possibly_sensitive": false},
		"semantic_annotation_ids": []any{},
	}
	if opts.InReplyToID != "" {
		vars["reply"] = map[string]any{
			"in_reply_to_tweet_id":   opts.InReplyToID,
			"exclude_reply_user_ids": []any{},
		}
	}
	if opts.QuoteURL != "" {
		vars["attachment_url"] = opts.QuoteURL
	}

	body, err := c.graphQLPost(ctx, opCreateTweet, vars, true)
	if err != nil {
		return Tweet{}, fmt.Errorf("create tweet: %w", err)
	}
	return decodeCreateTweet(body)
}

func (c *Client) Like(ctx context.Context, id string) error {
	body, err := c.graphQLPost(ctx, opFavoriteTweet, map[string]any{"tweet_id": id}, false)
	if err != nil {
		return fmt.Errorf("like %s: %w", id, err)
	}
	return mutationErrors(body)
}

func (c *Client) Retweet(ctx context.Context, id string) error {
	body, err := c.graphQLPost(ctx, opCreateRetweet, map[string]any{"tweet_id": id, "dark_request": false}, false)
	if err != nil {
		return fmt.Errorf("retweet %s: %w", id, err)
	}
	return mutationErrors(body)
}

func mutationErrors(body []byte) error {
	var resp struct {
		Errors []graphQLError `json:"errors"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("decode mutation response: %w", err)
	}
	return graphQLErrors(resp.Errors)
}

// UploadImage uploads a single image and returns its media id.
func (c *Client) UploadImage(ctx context.Context, data []byte, mimeType string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty image")
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("media_category", "tweet_image"); err != nil {
		return "", err
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="media"; filename="image"`)
	h.Set("Content-Type", mimeType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	body, err := c.do(ctx, http.MethodPost, c.endpoints.Upload, buf.Bytes(), map[string]string{
		"Content-Type": mw.FormDataContentType(),
	})
	if err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	var resp struct {
		MediaIDString string `json:"media_id_string"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if resp.MediaIDString == "" {
		return "", fmt.Errorf("upload response missing media_id_string")
	}
	return resp.MediaIDString, nil
}
