package ledger

import (
	"encoding/json"
	"time"

	"github.com/okian/agon/internal/domain/model"
)

// Wire envelope and payload shapes for the authority's RPC surface. The
// payload types exist only at this boundary: decode happens here and typed
// domain values are what cross into the cache and controller. The ledger
// simulator reuses these shapes to stay protocol-compatible.

// RPC method names on the authority surface.
const (
	MethodGetEpochState    = "getEpochState"
	MethodGetParticipant   = "getParticipant"
	MethodGetCharacter     = "getCharacter"
	MethodGetConversations = "getConversations"
	MethodSetCharacter     = "setCharacter"
	MethodSelectWinner     = "selectWinner"
	MethodDistributePrize  = "distributePrize"
	MethodStartNewEpoch    = "startNewEpoch"
	MethodRecordScore      = "recordScore"
)

// Request is the RPC call envelope.
type Request struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// RPCError is the typed failure half of a response.
type RPCError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Response is the RPC result envelope.
type Response struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  *RPCError       `json:"error,omitempty"`
}

// EpochPayload mirrors the authority's epoch snapshot. Timestamps travel
// as unix seconds.
type EpochPayload struct {
	Number           uint64 `json:"number"`
	StartTime        int64  `json:"start_time"`
	EndTime          int64  `json:"end_time"`
	PrizePool        int64  `json:"prize_pool"`
	CyclePool        int64  `json:"cycle_pool"`
	Rollover         int64  `json:"rollover"`
	Participants     int    `json:"participants"`
	Winner           string `json:"winner,omitempty"`
	WinnerPrize      int64  `json:"winner_prize"`
	Fee              int64  `json:"fee"`
	PrizeDistributed bool   `json:"prize_distributed"`
}

// ToModel converts the payload to the domain record.
func (p EpochPayload) ToModel() model.Epoch {
	return model.Epoch{
		Number:           p.Number,
		StartTime:        time.Unix(p.StartTime, 0).UTC(),
		EndTime:          time.Unix(p.EndTime, 0).UTC(),
		PrizePool:        p.PrizePool,
		CyclePool:        p.CyclePool,
		Rollover:         p.Rollover,
		Participants:     p.Participants,
		Winner:           p.Winner,
		WinnerPrize:      p.WinnerPrize,
		Fee:              p.Fee,
		PrizeDistributed: p.PrizeDistributed,
	}
}

// EpochPayloadFrom builds the wire shape from a domain epoch.
func EpochPayloadFrom(e model.Epoch) EpochPayload {
	return EpochPayload{
		Number:           e.Number,
		StartTime:        e.StartTime.Unix(),
		EndTime:          e.EndTime.Unix(),
		PrizePool:        e.PrizePool,
		CyclePool:        e.CyclePool,
		Rollover:         e.Rollover,
		Participants:     e.Participants,
		Winner:           e.Winner,
		WinnerPrize:      e.WinnerPrize,
		Fee:              e.Fee,
		PrizeDistributed: e.PrizeDistributed,
	}
}

// ParticipantPayload mirrors the authority's per-user record.
type ParticipantPayload struct {
	Address            string  `json:"address"`
	Epoch              uint64  `json:"epoch"`
	Balance            int64   `json:"balance"`
	Entries            int     `json:"entries"`
	BestScore          float64 `json:"best_score"`
	BestConversationID string  `json:"best_conversation_id,omitempty"`
}

// ToModel converts the payload to the domain record.
func (p ParticipantPayload) ToModel() model.Participant {
	return model.Participant(p)
}

// ParticipantPayloadFrom builds the wire shape from a domain participant.
func ParticipantPayloadFrom(p model.Participant) ParticipantPayload {
	return ParticipantPayload(p)
}

// MessagePayload is one conversation message on the wire.
type MessagePayload struct {
	Seq     int    `json:"seq"`
	Role    string `json:"role"`
	Content string `json:"content"`
	SentAt  int64  `json:"sent_at"`
}

// ConversationPayload mirrors one scored exchange.
type ConversationPayload struct {
	ID           string           `json:"id"`
	Address      string           `json:"address"`
	Epoch        uint64           `json:"epoch"`
	Messages     []MessagePayload `json:"messages"`
	FeePaid      int64            `json:"fee_paid"`
	Status       string           `json:"status"`
	Score        float64          `json:"score,omitempty"`
	StartedAt    int64            `json:"started_at"`
	LastActiveAt int64            `json:"last_active_at"`
}

// ToModel converts the payload to the domain record, normalizing message
// order by sequence number.
func (p ConversationPayload) ToModel() model.Conversation {
	msgs := make([]model.Message, len(p.Messages))
	for i, m := range p.Messages {
		msgs[i] = model.Message{
			Seq:     m.Seq,
			Role:    m.Role,
			Content: m.Content,
			SentAt:  time.Unix(m.SentAt, 0).UTC(),
		}
	}
	c := model.Conversation{
		ID:           p.ID,
		Address:      p.Address,
		Epoch:        p.Epoch,
		Messages:     msgs,
		FeePaid:      p.FeePaid,
		Status:       model.EvalStatus(p.Status),
		Score:        p.Score,
		StartedAt:    time.Unix(p.StartedAt, 0).UTC(),
		LastActiveAt: time.Unix(p.LastActiveAt, 0).UTC(),
	}
	c.SortMessages()
	return c
}

// ConversationPayloadFrom builds the wire shape from a domain conversation.
func ConversationPayloadFrom(c model.Conversation) ConversationPayload {
	msgs := make([]MessagePayload, len(c.Messages))
	for i, m := range c.Messages {
		msgs[i] = MessagePayload{
			Seq:     m.Seq,
			Role:    m.Role,
			Content: m.Content,
			SentAt:  m.SentAt.Unix(),
		}
	}
	return ConversationPayload{
		ID:           c.ID,
		Address:      c.Address,
		Epoch:        c.Epoch,
		Messages:     msgs,
		FeePaid:      c.FeePaid,
		Status:       string(c.Status),
		Score:        c.Score,
		StartedAt:    c.StartedAt.Unix(),
		LastActiveAt: c.LastActiveAt.Unix(),
	}
}

// CharacterPayload mirrors the authority's flattened descriptor shape:
// trait names and values travel as parallel arrays with an explicit count.
type CharacterPayload struct {
	Name        string   `json:"name"`
	Task        string   `json:"task"`
	TraitNames  []string `json:"trait_names"`
	TraitValues []int    `json:"trait_values"`
	TraitCount  int      `json:"trait_count"`
}

// ToModel converts the payload to the domain descriptor. Extra values
// beyond TraitCount are dropped.
func (p CharacterPayload) ToModel() model.Character {
	n := p.TraitCount
	if n > len(p.TraitNames) {
		n = len(p.TraitNames)
	}
	if n > len(p.TraitValues) {
		n = len(p.TraitValues)
	}
	traits := make([]model.Trait, n)
	for i := 0; i < n; i++ {
		traits[i] = model.Trait{Name: p.TraitNames[i], Intensity: p.TraitValues[i]}
	}
	return model.Character{Name: p.Name, Task: p.Task, Traits: traits}
}

// CharacterPayloadFrom builds the wire shape from a domain descriptor.
func CharacterPayloadFrom(c model.Character) CharacterPayload {
	names := make([]string, len(c.Traits))
	values := make([]int, len(c.Traits))
	for i, t := range c.Traits {
		names[i] = t.Name
		values[i] = t.Intensity
	}
	return CharacterPayload{
		Name:        c.Name,
		Task:        c.Task,
		TraitNames:  names,
		TraitValues: values,
		TraitCount:  len(c.Traits),
	}
}

// Param shapes for calls that take arguments.

// AddressParams selects a participant by address.
type AddressParams struct {
	Address string `json:"address"`
}

// RecordScoreParams submits an evaluation result.
type RecordScoreParams struct {
	ConversationID string  `json:"conversation_id"`
	Score          float64 `json:"score"`
}
