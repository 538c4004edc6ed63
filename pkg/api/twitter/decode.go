package twitter

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const tweetTimeLayout = time.RubyDate

type homeTimelineResponse struct {
	Errors []graphQLError `json:"errors"`
	Data   struct {
		Home struct {
			HomeTimelineURT struct {
				Instructions []timelineInstruction `json:"instructions"`
			} `json:"home_timeline_urt"`
		} `json:"home"`
	} `json:"data"`
}

type searchTimelineResponse struct {
	Errors []graphQLError `json:"errors"`
	Data   struct {
		SearchByRawQuery struct {
			SearchTimeline struct {
				Timeline struct {
					Instructions []timelineInstruction `json:"instructions"`
				} `json:"timeline"`
			} `json:"search_timeline"`
		} `json:"search_by_raw_query"`
	} `json:"data"`
}

type tweetResultResponse struct {
	Errors []graphQLError `json:"errors"`
	Data   struct {
		TweetResult struct {
			Result *tweetResult `json:"result"`
		} `json:"tweetResult"`
	} `json:"data"`
}

type createTweetResponse struct {
	Errors []graphQLError `json:"errors"`
	Data   struct {
		CreateTweet struct {
			TweetResults struct {
				Result *tweetResult `json:"result"`
			} `json:"tweet_results"`
		} `json:"create_tweet"`
	} `json:"data"`
}

func decodeHomeTimeline(body []byte, limit int) ([]Tweet, error) {
	var resp homeTimelineResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode home timeline: %w", err)
	}
	if err := graphQLErrors(resp.Errors); err != nil {
		return nil, err
	}
	return tweetsFromInstructions(resp.Data.Home.HomeTimelineURT.Instructions, limit)
}

func decodeSearchTimeline(body []byte, limit int) ([]Tweet, error) {
	var resp searchTimelineResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode search timeline: %w", err)
	}
	if err := graphQLErrors(resp.Errors); err != nil {
		return nil, err
	}
	return tweetsFromInstructions(resp.Data.SearchByRawQuery.SearchTimeline.Timeline.Instructions, limit)
}

func decodeTweetResult(body []byte) (Tweet, error) {
	var resp tweetResultResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Tweet{}, fmt.Errorf("decode tweet result: %w", err)
	}
	tw, ok, err := tweetFromResult("", resp.Data.TweetResult.Result)
	if err != nil {
		return Tweet{}, err
	}
	if !ok {
		if err := graphQLErrors(resp.Errors); err != nil {
			return Tweet{}, err
		}
		return Tweet{}, ErrNotFound
	}
	return tw, nil
}

func decodeCreateTweet(body []byte) (Tweet, error) {
	var resp createTweetResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Tweet{}, fmt.Errorf("decode create tweet: %w", err)
	}
	if err := graphQLErrors(resp.Errors); err != nil {
		return Tweet{}, err
	}
	tw, ok, err := tweetFromResult("create_tweet", resp.Data.CreateTweet.TweetResults.Result)
	if err != nil {
		return Tweet{}, err
	}
	if !ok {
		return Tweet{}, &DecodeError{EntryID: "create_tweet", Field: "tweet_results.result"}
	}
	return tw, nil
}

func graphQLErrors(errs []graphQLError) error {
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, fmt.Sprintf("%d: %s", e.Code, e.Message))
	}
	return &HTTPError{Status: 200, Body: strings.Join(msgs, "; ")}
}

// tweetsFromInstructions walks timeline instructions in order. Cursors, user
// modules and tombstones are skipped; a tweet entry missing a required field
// aborts the whole page.
func tweetsFromInstructions(instructions []timelineInstruction, limit int) ([]Tweet, error) {
	var out []Tweet
	add := func(entryID string, ic *itemContent) error {
		if ic == nil || ic.ItemType != "TimelineTweet" {
			return nil
		}
		tw, ok, err := tweetFromResult(entryID, ic.TweetResults.Result)
		if err != nil {
			return err
		}
		if ok {
			out = append(out, tw)
		}
		return nil
	}

	for _, ins := range instructions {
		entries := ins.Entries
		if ins.Entry != nil {
			entries = append(entries, *ins.Entry)
		}
		for _, e := range entries {
			if err := add(e.EntryID, e.Content.ItemContent); err != nil {
				return nil, err
			}
			for _, it := range e.Content.Items {
				if err := add(e.EntryID, it.Item.ItemContent); err != nil {
					return nil, err
				}
			}
		}
	}

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// tweetFromResult returns ok=false for absent results and tombstones.
func tweetFromResult(entryID string, r *tweetResult) (Tweet, bool, error) {
	if r == nil {
		return Tweet{}, false, nil
	}
	switch r.TypeName {
	case "TweetWithVisibilityResults":
		return tweetFromResult(entryID, r.Tweet)
	case "TweetTombstone", "TweetUnavailable":
		return Tweet{}, false, nil
	}

	if strings.TrimSpace(r.RestID) == "" {
		return Tweet{}, false, &DecodeError{EntryID: entryID, Field: "rest_id"}
	}
	if r.Legacy == nil || strings.TrimSpace(r.Legacy.IDStr) == "" {
		return Tweet{}, false, &DecodeError{EntryID: entryID, Field: "legacy.id_str"}
	}
	text := r.Legacy.FullText
	if note := r.NoteTweet.NoteTweetResults.Result.Text; note != "" {
		text = note
	}
	if strings.TrimSpace(text) == "" {
		return Tweet{}, false, &DecodeError{EntryID: entryID, Field: "legacy.full_text"}
	}

	user := r.Core.UserResults.Result
	tw := Tweet{
		ID:             r.RestID,
		ConversationID: r.Legacy.ConversationIDStr,
		UserID:         firstNonEmpty(r.Legacy.UserIDStr, user.RestID),
		Username:       firstNonEmpty(user.Core.ScreenName, user.Legacy.ScreenName),
		Name:           firstNonEmpty(user.Core.Name, user.Legacy.Name),
		Text:           text,
		InReplyToID:    r.Legacy.InReplyToStatusIDStr,
		QuotedID:       r.Legacy.QuotedStatusIDStr,
	}
	if s := strings.TrimSpace(r.Legacy.CreatedAt); s != "" {
		ts, err := time.Parse(tweetTimeLayout, s)
		if err != nil {
			return Tweet{}, false, &DecodeError{EntryID: entryID, Field: "legacy.created_at"}
		}
		tw.CreatedAt = ts
	}
	for _, m := range r.Legacy.ExtendedEntities.Media {
		if m.Type == "photo" && m.MediaURLHTTPS != "" {
			tw.Photos = append(tw.Photos, m.MediaURLHTTPS)
		}
	}
	return tw, true, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
