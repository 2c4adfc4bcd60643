package model

import (
	"sort"
	"time"
)

// EvalStatus is the evaluation state of a conversation.
type EvalStatus string

const (
	EvalPending   EvalStatus = "pending"
	EvalEvaluated EvalStatus = "evaluated"
)

// MaxScore bounds every evaluation result.
const MaxScore = 100.0

// Message is one entry in a conversation's ordered sequence.
type Message struct {
	Seq     int       `json:"seq"`
	Role    string    `json:"role"`
	Content string    `json:"content"`
	SentAt  time.Time `json:"sent_at"`
}

// Conversation is one scored exchange between a participant and the agent.
// Messages are append-only and ordered by Seq. Once evaluated, Score and
// Status never change.
type Conversation struct {
	ID           string     `json:"id"`
	Address      string     `json:"address"`
	Epoch        uint64     `json:"epoch"`
	Messages     []Message  `json:"messages"`
	FeePaid      int64      `json:"fee_paid"`
	Status       EvalStatus `json:"status"`
	Score        float64    `json:"score,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	LastActiveAt time.Time  `json:"last_active_at"`
}

// Evaluated reports whether the conversation has a final score.
func (c Conversation) Evaluated() bool {
	return c.Status == EvalEvaluated
}

// SortMessages orders the message sequence in place by Seq. Decoded wire
// payloads are normalized through this before leaving the gateway.
func (c *Conversation) SortMessages() {
	sort.Slice(c.Messages, func(i, j int) bool {
		return c.Messages[i].Seq < c.Messages[j].Seq
	})
}
