package moderation

import "time"

// Message is the slice of an inbound chat message the auto-moderation
// engine needs. The gateway layer fills it in.
type Message struct {
	ID          string
	ChannelID   string
	GuildID     string
	AuthorID    string
	AuthorBot   bool
	AuthorAdmin bool
	Content     string
	Attachments []string
}

// Result is the output of a single detector.
type Result struct {
	Violated bool
	Type     RuleType
	Action   Action
	Details  Details
}

type Details struct {
	Words          []string
	URLs           []string
	MessageCount   int
	CapsPercentage float64
}

// None is the result of a detector that found nothing.
func None(ruleType RuleType) Result {
	return Result{Type: ruleType}
}

type SpamCounter struct {
	GuildID       string
	UserID        string
	MessageCount  int
	LastMessageAt time.Time
}

type Violation struct {
	ID          int64
	GuildID     string
	UserID      string
	RuleType    RuleType
	Content     string
	ActionTaken string
	CreatedAt   time.Time
}
