package ledgersim

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/okian/agon/internal/domain/model"
)

const (
	addressBytes     = 20
	seedBalanceMin   = 5_000
	seedBalanceRange = 200_000
)

var (
	// ErrInsufficientBalance rejects a conversation the user cannot pay for.
	ErrInsufficientBalance = errors.New("insufficient balance for entry fee")

	// ErrUnknownParticipant rejects a conversation for an unseeded address.
	ErrUnknownParticipant = errors.New("unknown participant")
)

// randomAddress returns a fresh well-formed participant address.
func randomAddress() string {
	buf := make([]byte, addressBytes)
	_, _ = rand.Read(buf)
	return "0x" + hex.EncodeToString(buf)
}

// randomBalance picks a seeded balance in micro-units.
func randomBalance() int64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(seedBalanceRange))
	return seedBalanceMin + n.Int64()
}

// SeedParticipants registers count synthetic participants with random
// balances and returns their addresses.
func (s *Simulator) SeedParticipants(count int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	addresses := make([]string, count)
	for i := range addresses {
		addr := randomAddress()
		s.participants[addr] = model.Participant{
			Address: addr,
			Epoch:   s.epoch.Number,
			Balance: randomBalance(),
		}
		addresses[i] = addr
	}
	return addresses
}

// AddParticipant registers one participant with an explicit balance.
func (s *Simulator) AddParticipant(address string, balance int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.participants[address] = model.Participant{
		Address: address,
		Epoch:   s.epoch.Number,
		Balance: balance,
	}
}

// StartConversation charges the entry fee, counts the entry and opens a
// pending conversation for the address. Returns its id.
func (s *Simulator) StartConversation(address string, messages []model.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.participants[address]
	if !ok {
		return "", ErrUnknownParticipant
	}
	if p.Balance < s.epoch.Fee {
		return "", ErrInsufficientBalance
	}

	p.Balance -= s.epoch.Fee
	p.Entries++
	s.participants[address] = p
	s.epoch.PrizePool += s.epoch.Fee
	if p.Entries == 1 {
		s.epoch.Participants++
	}

	now := s.now().UTC()
	conv := model.Conversation{
		ID:           uuid.New().String(),
		Address:      address,
		Epoch:        s.epoch.Number,
		Messages:     messages,
		FeePaid:      s.epoch.Fee,
		Status:       model.EvalPending,
		StartedAt:    now,
		LastActiveAt: now,
	}
	s.conversations[address] = append(s.conversations[address], conv)
	return conv.ID, nil
}

// EndEpochNow moves the epoch end into the past so transition flows can be
// exercised without waiting a week.
func (s *Simulator) EndEpochNow() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch.EndTime = s.now().UTC().Add(-time.Second)
}

// EpochNumber reports the current epoch for assertions and logs.
func (s *Simulator) EpochNumber() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch.Number
}
