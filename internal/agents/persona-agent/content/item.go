// Package content holds the platform-neutral shapes the agent reasons about.
package content

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spyrux/persona-bot/pkg/api/twitter"
)

type Source string

const SourceTwitter Source = "twitter"

type ChannelKind string

const (
	ChannelText  ChannelKind = "text"
	ChannelVoice ChannelKind = "voice"
)

type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// itemNamespace scopes the v5 ids of content items.
var itemNamespace = uuid.MustParse("6f0b3a2e-5d7c-4f14-9b4c-2f6d1a8e9c30")

// Item is one post or reply observed on (or sent to) a platform.
type Item struct {
	ID          uuid.UUID
	Source      Source
	SourceID    string
	ChannelKind ChannelKind
	ChannelID   string
	AccountID   string
	Username    string
	Role        Role
	Text        string
	CreatedAt   time.Time

	// ParentID is the SourceID of the item this one replies to; empty when none.
	ParentID string
	Media    []string
}

// ItemID derives the stable id of (source, sourceID).
func ItemID(source Source, sourceID string) uuid.UUID {
	return uuid.NewSHA1(itemNamespace, []byte(string(source)+":"+sourceID))
}

func (it Item) HasParent() bool {
	return strings.TrimSpace(it.ParentID) != ""
}

func (it Item) HasMedia() bool {
	return len(it.Media) > 0
}

// FromTweet converts a decoded tweet. Role is RoleUser; callers mark the
// bot's own tweets.
func FromTweet(tw twitter.Tweet) Item {
	channel := tw.ConversationID
	if channel == "" {
		channel = tw.ID
	}
	return Item{
		ID:          ItemID(SourceTwitter, tw.ID),
		Source:      SourceTwitter,
		SourceID:    tw.ID,
		ChannelKind: ChannelText,
		ChannelID:   channel,
		AccountID:   tw.UserID,
		Username:    tw.Username,
		Role:        RoleUser,
		Text:        tw.Text,
		CreatedAt:   tw.CreatedAt,
		ParentID:    tw.InReplyToID,
		Media:       append([]string(nil), tw.Photos...),
	}
}

// Thread is a reply chain ordered oldest first; the last element is the leaf.
type Thread struct {
	Items []Item
}

func (t Thread) Len() int { return len(t.Items) }

func (t Thread) Leaf() (Item, bool) {
	if len(t.Items) == 0 {
		return Item{}, false
	}
	return t.Items[len(t.Items)-1], true
}

// Ancestors returns every item except the leaf.
func (t Thread) Ancestors() []Item {
	if len(t.Items) <= 1 {
		return nil
	}
	return t.Items[:len(t.Items)-1]
}
