package models

import "time"

// EligibilityOutcome is the result of evaluating a join event.
type EligibilityOutcome string

const (
	OutcomeIneligible EligibilityOutcome = "ineligible"
	OutcomePending    EligibilityOutcome = "pending"
	OutcomeEligible   EligibilityOutcome = "eligible"
)

// JoinEventKind distinguishes the two shapes of inbound events.
type JoinEventKind string

const (
	// EventPrivateConfirm is the user asking the bot (in private chat) to
	// verify their membership in the required groups.
	EventPrivateConfirm JoinEventKind = "private_confirm"
	// EventGroupMessage is a message observed in a group the bot watches.
	EventGroupMessage JoinEventKind = "group_message"
)

// JoinEvent is a raw event from the messaging platform, fed to the
// eligibility evaluator.
type JoinEvent struct {
	Kind        JoinEventKind `json:"kind"`
	UserID      int64         `json:"user_id"`
	DisplayName string        `json:"display_name,omitempty"`
	GroupID     int64         `json:"group_id,omitempty"`
	Text        string        `json:"text,omitempty"`
	SentAt      time.Time     `json:"sent_at"`
}

// Evidence records what satisfied (or is accumulating towards) the join rule.
type Evidence struct {
	MatchedKeyword  string  `json:"matched_keyword,omitempty"`
	MessageCount    int     `json:"message_count,omitempty"`
	GroupID         int64   `json:"group_id,omitempty"`
	ConfirmedGroups []int64 `json:"confirmed_groups,omitempty"`
}

// ParticipationRecord is the durable record of one user's participation in
// one lottery. There is at most one record per (lottery, user) pair.
type ParticipationRecord struct {
	LotteryID   string    `json:"lottery_id"`
	UserID      int64     `json:"user_id"`
	DisplayName string    `json:"display_name"`
	JoinedAt    time.Time `json:"joined_at"`
	Eligible    bool      `json:"eligible"`
	Evidence    Evidence  `json:"evidence"`
}

// ParticipantFilter narrows participant listings.
type ParticipantFilter struct {
	Eligible *bool  // nil = any
	Keyword  string // free-text match over display name and evidence keyword
}

// ParticipantPage is one page of participant records.
type ParticipantPage struct {
	Records  []ParticipationRecord `json:"records"`
	Total    int64                 `json:"total"`
	Page     int                   `json:"page"`
	PageSize int                   `json:"page_size"`
}
