package infra

import "time"

const (
	ServiceType = "persona-agent"

	DefaultTimezone = "Local"

	DefaultPostWeight     = 2
	DefaultTimelineWeight = 2
	DefaultTimelineLimit  = 5
	DefaultMentionsLimit  = 10
	DefaultThreadDepth    = 10

	DefaultItemDelayMin = 60 * time.Second
	DefaultItemDelayMax = 180 * time.Second
	DefaultLoopDelayMin = 900 * time.Second
	DefaultLoopDelayMax = 3600 * time.Second

	// TweetMaxChars is the length of one dispatched segment.
	TweetMaxChars = 280

	// SnippetCount is how many knowledge snippets a generation request carries.
	SnippetCount = 4

	ImageGenerationTimeout = 300 * time.Second
)
