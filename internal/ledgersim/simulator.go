// Package ledgersim is an in-memory stand-in for the on-chain competition
// authority. It speaks the same RPC surface the gateway consumes, enforces
// the same transition rules, and exists for local development and
// end-to-end testing against a controllable ledger.
package ledgersim

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/okian/agon/internal/adapters/ledger"
	"github.com/okian/agon/internal/domain/model"
	"github.com/okian/agon/pkg/logger"
)

const defaultEpochDuration = 7 * 24 * time.Hour

// Simulator holds authoritative competition state behind an RPC handler.
type Simulator struct {
	mu sync.Mutex

	epoch         model.Epoch
	closed        bool
	participants  map[string]model.Participant
	conversations map[string][]model.Conversation

	character    model.Character
	characterSet bool

	operatorToken string
	paused        bool
	epochDuration time.Duration
	now           func() time.Time
	log           logger.Logger
}

// New creates a simulator with one open epoch.
func New(opts ...Option) *Simulator {
	s := &Simulator{
		participants:  map[string]model.Participant{},
		conversations: map[string][]model.Conversation{},
		epochDuration: defaultEpochDuration,
		now:           time.Now,
		log:           logger.Get().Named("ledgersim"),
	}
	for _, opt := range opts {
		opt(s)
	}
	start := s.now().UTC()
	s.epoch = model.Epoch{
		Number:    1,
		StartTime: start,
		EndTime:   start.Add(s.epochDuration),
		Fee:       10_000,
	}
	return s
}

// Handler returns the RPC endpoint. Mount it wherever the process serves
// HTTP; the gateway posts to {base}/rpc.
func (s *Simulator) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/rpc", s.handleRPC)
	return mux
}

// Pause makes every write fail with the paused code until Resume.
func (s *Simulator) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = true
}

// Resume lifts a pause.
func (s *Simulator) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = false
}

func (s *Simulator) handleRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req ledger.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRPCError(w, ledger.CodeValidation, "malformed request envelope")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch req.Method {
	case ledger.MethodGetEpochState:
		writeRPCResult(w, ledger.EpochPayloadFrom(s.epoch))
	case ledger.MethodGetParticipant:
		s.handleGetParticipant(w, req.Params)
	case ledger.MethodGetCharacter:
		s.handleGetCharacter(w)
	case ledger.MethodGetConversations:
		s.handleGetConversations(w, req.Params)
	case ledger.MethodSetCharacter:
		s.handleWrite(w, r, func(w http.ResponseWriter) { s.handleSetCharacter(w, req.Params) })
	case ledger.MethodSelectWinner:
		s.handleWrite(w, r, s.handleSelectWinner)
	case ledger.MethodDistributePrize:
		s.handleWrite(w, r, s.handleDistributePrize)
	case ledger.MethodStartNewEpoch:
		s.handleWrite(w, r, s.handleStartNewEpoch)
	case ledger.MethodRecordScore:
		s.handleWrite(w, r, func(w http.ResponseWriter) { s.handleRecordScore(w, req.Params) })
	default:
		writeRPCError(w, ledger.CodeValidation, "unknown method "+req.Method)
	}
}

// handleWrite enforces the operator token and pause flag shared by every
// mutating method. Callers hold s.mu.
func (s *Simulator) handleWrite(w http.ResponseWriter, r *http.Request, next func(http.ResponseWriter)) {
	if s.operatorToken != "" {
		presented, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || presented != s.operatorToken {
			writeRPCError(w, ledger.CodeUnauthorized, "operator token required")
			return
		}
	}
	if s.paused {
		writeRPCError(w, ledger.CodePaused, "ledger paused")
		return
	}
	next(w)
}

func (s *Simulator) handleGetParticipant(w http.ResponseWriter, raw json.RawMessage) {
	var params ledger.AddressParams
	if err := json.Unmarshal(raw, &params); err != nil || !model.ValidAddress(params.Address) {
		writeRPCError(w, ledger.CodeValidation, "invalid address")
		return
	}
	p, ok := s.participants[params.Address]
	if !ok {
		p = model.Participant{Address: params.Address, Epoch: s.epoch.Number}
	}
	writeRPCResult(w, ledger.ParticipantPayloadFrom(p))
}

func (s *Simulator) handleGetCharacter(w http.ResponseWriter) {
	if !s.characterSet {
		writeRPCResult(w, nil)
		return
	}
	writeRPCResult(w, ledger.CharacterPayloadFrom(s.character))
}

func (s *Simulator) handleGetConversations(w http.ResponseWriter, raw json.RawMessage) {
	var params ledger.AddressParams
	if err := json.Unmarshal(raw, &params); err != nil || !model.ValidAddress(params.Address) {
		writeRPCError(w, ledger.CodeValidation, "invalid address")
		return
	}
	convs := s.conversations[params.Address]
	payloads := make([]ledger.ConversationPayload, len(convs))
	for i, c := range convs {
		payloads[i] = ledger.ConversationPayloadFrom(c)
	}
	writeRPCResult(w, payloads)
}

func (s *Simulator) handleSetCharacter(w http.ResponseWriter, raw json.RawMessage) {
	var payload ledger.CharacterPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		writeRPCError(w, ledger.CodeValidation, "malformed character")
		return
	}
	c := payload.ToModel()
	if err := c.Validate(); err != nil {
		writeRPCError(w, ledger.CodeValidation, err.Error())
		return
	}
	if s.characterSet {
		writeRPCError(w, ledger.CodeCharacterAlreadySet, "character already set for epoch "+strconv.FormatUint(s.epoch.Number, 10))
		return
	}
	s.character = c
	s.characterSet = true
	writeRPCResult(w, nil)
}

// handleSelectWinner closes scoring for the ended epoch. The winner is the
// highest evaluated score across all conversations; ties go to the earlier
// conversation. With no evaluated conversations the epoch closes winnerless
// and the pool rolls over.
func (s *Simulator) handleSelectWinner(w http.ResponseWriter) {
	if s.now().Before(s.epoch.EndTime) {
		writeRPCError(w, ledger.CodeEpochNotEnded, "epoch "+strconv.FormatUint(s.epoch.Number, 10)+" still open")
		return
	}
	if s.closed {
		writeRPCError(w, ledger.CodeWinnerAlreadySelected, "winner already selected")
		return
	}

	var best *model.Conversation
	for _, convs := range s.conversations {
		for i := range convs {
			c := &convs[i]
			if !c.Evaluated() {
				continue
			}
			if best == nil || c.Score > best.Score ||
				(c.Score == best.Score && c.StartedAt.Before(best.StartedAt)) {
				best = c
			}
		}
	}

	s.closed = true
	if best != nil {
		s.epoch.Winner = best.Address
		s.epoch.WinnerPrize = s.epoch.PrizePool
	}
	writeRPCResult(w, nil)
}

func (s *Simulator) handleDistributePrize(w http.ResponseWriter) {
	if s.epoch.Winner == "" {
		writeRPCError(w, ledger.CodeNoWinnerSelected, "no winner selected")
		return
	}
	if s.epoch.PrizeDistributed {
		// Repeat distribution is a no-op.
		writeRPCResult(w, nil)
		return
	}
	p := s.participants[s.epoch.Winner]
	p.Address = s.epoch.Winner
	p.Balance += s.epoch.WinnerPrize
	s.participants[s.epoch.Winner] = p
	s.epoch.PrizeDistributed = true
	writeRPCResult(w, nil)
}

func (s *Simulator) handleStartNewEpoch(w http.ResponseWriter) {
	if !s.closed {
		writeRPCError(w, ledger.CodeEpochStillOpen, "epoch "+strconv.FormatUint(s.epoch.Number, 10)+" not closed")
		return
	}
	if s.epoch.Winner != "" && !s.epoch.PrizeDistributed {
		writeRPCError(w, ledger.CodeEpochStillOpen, "prize not distributed")
		return
	}

	rollover := int64(0)
	if s.epoch.Winner == "" {
		rollover = s.epoch.PrizePool
	}
	start := s.epoch.EndTime
	s.epoch = model.Epoch{
		Number:    s.epoch.Number + 1,
		StartTime: start,
		EndTime:   start.Add(s.epochDuration),
		PrizePool: rollover,
		Rollover:  rollover,
		Fee:       s.epoch.Fee,
	}
	s.closed = false
	s.characterSet = false
	s.character = model.Character{}
	s.conversations = map[string][]model.Conversation{}
	for addr, p := range s.participants {
		p.Epoch = s.epoch.Number
		p.Entries = 0
		p.BestScore = 0
		p.BestConversationID = ""
		s.participants[addr] = p
	}
	writeRPCResult(w, nil)
}

func (s *Simulator) handleRecordScore(w http.ResponseWriter, raw json.RawMessage) {
	var params ledger.RecordScoreParams
	if err := json.Unmarshal(raw, &params); err != nil {
		writeRPCError(w, ledger.CodeValidation, "malformed params")
		return
	}
	if params.Score < 0 || params.Score > model.MaxScore {
		writeRPCError(w, ledger.CodeValidation, "score out of range")
		return
	}

	for addr, convs := range s.conversations {
		for i := range convs {
			if convs[i].ID != params.ConversationID {
				continue
			}
			convs[i].Score = params.Score
			convs[i].Status = model.EvalEvaluated

			p := s.participants[addr]
			if params.Score > p.BestScore {
				p.BestScore = params.Score
				p.BestConversationID = params.ConversationID
				s.participants[addr] = p
			}
			writeRPCResult(w, nil)
			return
		}
	}
	writeRPCError(w, ledger.CodeValidation, "unknown conversation "+params.ConversationID)
}

func writeRPCResult(w http.ResponseWriter, v any) {
	resp := ledger.Response{}
	if v != nil {
		raw, err := json.Marshal(v)
		if err != nil {
			writeRPCError(w, ledger.CodeValidation, "encode result: "+err.Error())
			return
		}
		resp.Result = raw
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(resp)
}

func writeRPCError(w http.ResponseWriter, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(ledger.Response{
		Error: &ledger.RPCError{Code: code, Message: message},
	})
}
