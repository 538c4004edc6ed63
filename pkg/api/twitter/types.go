package twitter

import "time"

type Tweet struct {
	ID             string
	ConversationID string
	UserID         string
	Username       string
	Name           string
	Text           string
	CreatedAt      time.Time

	// InReplyToID is empty when the tweet does not reply to anything.
	InReplyToID string
	QuotedID    string
	Photos      []string
}

func (t Tweet) PermanentURL() string {
	user := t.Username
	if user == "" {
		user = "i/web"
	}
	return "https://x.com/" + user + "/status/" + t.ID
}

type User struct {
	ID       string `json:"id_str"`
	Username string `json:"screen_name"`
	Name     string `json:"name"`
}

// Session is the persisted login state.
type Session struct {
	Cookies  map[string]string `json:"cookies"`
	Username string            `json:"username,omitempty"`
}

type Credentials struct {
	Username      string
	Password      string
	Email         string
	TwoFactorCode string

	// CookieString ("auth_token=...; ct0=...") skips the login flow.
	CookieString string
}

type TweetOptions struct {
	InReplyToID string
	// QuoteURL is the permanent URL of the quoted tweet.
	QuoteURL string
	MediaIDs []string
}

// raw GraphQL shapes

type graphQLError struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

type timelineInstruction struct {
	Type    string          `json:"type"`
	Entries []timelineEntry `json:"entries"`
	Entry   *timelineEntry  `json:"entry"`
}

type timelineEntry struct {
	EntryID string `json:"entryId"`
	Content struct {
		EntryType   string       `json:"entryType"`
		ItemContent *itemContent `json:"itemContent"`
		Items       []struct {
			Item struct {
				ItemContent *itemContent `json:"itemContent"`
			} `json:"item"`
		} `json:"items"`
	} `json:"content"`
}

type itemContent struct {
	ItemType     string `json:"itemType"`
	TweetResults struct {
		Result *tweetResult `json:"result"`
	} `json:"tweet_results"`
}

type tweetResult struct {
	TypeName string       `json:"__typename"`
	RestID   string       `json:"rest_id"`
	Tweet    *tweetResult `json:"tweet"`
	Core     struct {
		UserResults struct {
			Result struct {
				RestID string `json:"rest_id"`
				Core   struct {
					ScreenName string `json:"screen_name"`
					Name       string `json:"name"`
				} `json:"core"`
				Legacy struct {
					ScreenName string `json:"screen_name"`
					Name       string `json:"name"`
				} `json:"legacy"`
			} `json:"result"`
		} `json:"user_results"`
	} `json:"core"`
	Legacy    *tweetLegacy `json:"legacy"`
	NoteTweet struct {
		NoteTweetResults struct {
			Result struct {
				Text string `json:"text"`
			} `json:"result"`
		} `json:"note_tweet_results"`
	} `json:"note_tweet"`
}

type tweetLegacy struct {
	IDStr                string `json:"id_str"`
	FullText             string `json:"full_text"`
	CreatedAt            string `json:"created_at"`
	ConversationIDStr    string `json:"conversation_id_str"`
	UserIDStr            string `json:"user_id_str"`
	InReplyToStatusIDStr string `json:"in_reply_to_status_id_str"`
	QuotedStatusIDStr    string `json:"quoted_status_id_str"`
	ExtendedEntities     struct {
		Media []struct {
			Type          string `json:"type"`
			MediaURLHTTPS string `json:"media_url_https"`
		} `json:"media"`
	} `json:"extended_entities"`
}
