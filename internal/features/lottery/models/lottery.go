package models

import (
	"errors"
	"time"
)

var (
	ErrInvalidJoinConfig   = errors.New("exactly one join method must be configured")
	ErrInvalidDrawConfig   = errors.New("exactly one draw method must be configured")
	ErrInvalidThreshold    = errors.New("participant threshold must be greater than 0")
	ErrDeadlineNotInFuture = errors.New("draw time must be in the future")
	ErrNoRequiredGroups    = errors.New("private chat join method requires at least one group")
	ErrLotteryNotEditable  = errors.New("lottery settings are frozen after publishing")
	ErrNoPrizeTiers        = errors.New("lottery must have at least one prize tier to be published")
)

// JoinMethod is the rule by which a user becomes eligible.
type JoinMethod string

const (
	JoinMethodPrivateChat  JoinMethod = "private_chat"  // confirm membership in required groups via private chat
	JoinMethodKeyword      JoinMethod = "keyword"       // send the configured keyword in the configured group
	JoinMethodMessageCount JoinMethod = "message_count" // send N messages in the group within a trailing window
)

// DrawMethod is the trigger condition for running the draw.
type DrawMethod string

const (
	DrawMethodThreshold DrawMethod = "threshold" // draw once the eligible count reaches the target
	DrawMethodDeadline  DrawMethod = "deadline"  // draw at a fixed wall-clock time
)

// LotteryStatus represents the lifecycle state of a lottery.
type LotteryStatus string

const (
	LotteryStatusDraft     LotteryStatus = "draft"
	LotteryStatusOpen      LotteryStatus = "open"
	LotteryStatusDrawing   LotteryStatus = "drawing"
	LotteryStatusCompleted LotteryStatus = "completed"
	LotteryStatusCancelled LotteryStatus = "cancelled"
)

// JoinConfig holds the parameters of the active join method. Exactly one
// method is active per lottery; the fields of the other methods stay zero.
type JoinConfig struct {
	Method JoinMethod `json:"method"`

	// private_chat
	RequiredGroups []int64 `json:"required_groups,omitempty"`

	// keyword
	KeywordGroupID int64  `json:"keyword_group_id,omitempty"`
	Keyword        string `json:"keyword,omitempty"`

	// message_count
	MessageGroupID     int64 `json:"message_group_id,omitempty"`
	MessageCount       int   `json:"message_count,omitempty"`
	MessageWindowHours int   `json:"message_window_hours,omitempty"`
}

// DrawConfig holds the parameters of the active draw method.
type DrawConfig struct {
	Method            DrawMethod `json:"method"`
	ParticipantTarget int        `json:"participant_target,omitempty"`
	DrawTime          time.Time  `json:"draw_time,omitempty"`
}

// Lottery represents one giveaway campaign.
type Lottery struct {
	ID          string                `json:"id"`
	SN          string                `json:"sn"` // short serial number shown in notifications
	CreatorID   int64                 `json:"creator_id"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Join        JoinConfig            `json:"join"`
	Draw        DrawConfig            `json:"draw"`
	Templates   NotificationTemplates `json:"templates"`
	Status      LotteryStatus         `json:"status"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// IsOpen reports whether the lottery accepts join events.
func (l *Lottery) IsOpen() bool {
	return l.Status == LotteryStatusOpen
}

// TiersMutable reports whether prize tiers may still be changed.
func (l *Lottery) TiersMutable() bool {
	return l.Status == LotteryStatusDraft || l.Status == LotteryStatusOpen
}

// Cancellable reports whether the lottery can still be cancelled. Once the
// draw has started the result is on its way and cancellation is refused.
func (l *Lottery) Cancellable() bool {
	return l.Status == LotteryStatusDraft || l.Status == LotteryStatusOpen
}

// GroupIDs returns every group the lottery touches, for result announcements.
func (l *Lottery) GroupIDs() []int64 {
	seen := make(map[int64]struct{})
	var groups []int64
	add := func(id int64) {
		if id == 0 {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		groups = append(groups, id)
	}
	for _, id := range l.Join.RequiredGroups {
		add(id)
	}
	add(l.Join.KeywordGroupID)
	add(l.Join.MessageGroupID)
	return groups
}

// Validate checks the join and draw configuration of a new lottery.
func (c *JoinConfig) Validate() error {
	switch c.Method {
	case JoinMethodPrivateChat:
		if len(c.RequiredGroups) == 0 {
			return ErrNoRequiredGroups
		}
	case JoinMethodKeyword:
		if c.KeywordGroupID == 0 || c.Keyword == "" {
			return ErrInvalidJoinConfig
		}
	case JoinMethodMessageCount:
		if c.MessageGroupID == 0 || c.MessageCount <= 0 || c.MessageWindowHours <= 0 {
			return ErrInvalidJoinConfig
		}
	default:
		return ErrInvalidJoinConfig
	}
	return nil
}

func (c *DrawConfig) Validate(now time.Time) error {
	switch c.Method {
	case DrawMethodThreshold:
		if c.ParticipantTarget <= 0 {
			return ErrInvalidThreshold
		}
	case DrawMethodDeadline:
		if !c.DrawTime.After(now) {
			return ErrDeadlineNotInFuture
		}
	default:
		return ErrInvalidDrawConfig
	}
	return nil
}

// LotteryCreate represents data for creating a new lottery.
type LotteryCreate struct {
	Title       string                 `json:"title" binding:"required,min=1,max=100"`
	Description string                 `json:"description" binding:"max=1000"`
	Join        JoinConfig             `json:"join" binding:"required"`
	Draw        DrawConfig             `json:"draw" binding:"required"`
	Templates   *NotificationTemplates `json:"templates,omitempty"`
	Tiers       []PrizeTierCreate      `json:"tiers,omitempty"`
}

// LotteryResponse is the API representation of a lottery.
type LotteryResponse struct {
	ID            string                `json:"id"`
	SN            string                `json:"sn"`
	CreatorID     int64                 `json:"creator_id"`
	Title         string                `json:"title"`
	Description   string                `json:"description"`
	Join          JoinConfig            `json:"join"`
	Draw          DrawConfig            `json:"draw"`
	Templates     NotificationTemplates `json:"templates"`
	Status        LotteryStatus         `json:"status"`
	EligibleCount int64                 `json:"eligible_count"`
	Tiers         []PrizeTier           `json:"tiers"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}
