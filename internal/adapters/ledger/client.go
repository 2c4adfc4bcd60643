package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okian/agon/internal/adapters/ledger/endpoint"
	"github.com/okian/agon/internal/domain/model"
	"github.com/okian/agon/pkg/logger"
	"github.com/okian/agon/pkg/metrics"
)

// Default client configuration constants.
const (
	defaultRetryAttempts  = 3
	defaultRetryBackoff   = time.Second
	defaultRequestTimeout = 10 * time.Second
	rpcPath               = "/rpc"
)

// Client implements Gateway over the authority's HTTP RPC surface, using
// the endpoint pool for failover.
type Client struct {
	pool          *endpoint.Pool
	hc            *http.Client
	attempts      int
	backoff       time.Duration
	operatorToken string
	log           logger.Logger
}

// NewClient creates a gateway client over pool with configuration options.
func NewClient(pool *endpoint.Pool, opts ...Option) *Client {
	c := &Client{
		pool:     pool,
		hc:       &http.Client{Timeout: defaultRequestTimeout},
		attempts: defaultRetryAttempts,
		backoff:  defaultRetryBackoff,
		log:      logger.Get().Named("ledger"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ Gateway = (*Client)(nil)

// EpochState implements Gateway.
func (c *Client) EpochState(ctx context.Context) (model.Epoch, error) {
	var payload EpochPayload
	if err := c.read(ctx, MethodGetEpochState, nil, &payload); err != nil {
		return model.Epoch{}, err
	}
	return payload.ToModel(), nil
}

// Participant implements Gateway.
func (c *Client) Participant(ctx context.Context, address string) (model.Participant, error) {
	if !model.ValidAddress(address) {
		return model.Participant{}, fmt.Errorf("%w: bad address %q", ErrValidation, address)
	}
	var payload ParticipantPayload
	if err := c.read(ctx, MethodGetParticipant, AddressParams{Address: address}, &payload); err != nil {
		return model.Participant{}, err
	}
	return payload.ToModel(), nil
}

// Character implements Gateway. A null result means no descriptor is set.
func (c *Client) Character(ctx context.Context) (model.Character, bool, error) {
	var payload *CharacterPayload
	if err := c.read(ctx, MethodGetCharacter, nil, &payload); err != nil {
		return model.Character{}, false, err
	}
	if payload == nil {
		return model.Character{}, false, nil
	}
	return payload.ToModel(), true, nil
}

// Conversations implements Gateway.
func (c *Client) Conversations(ctx context.Context, address string) ([]model.Conversation, error) {
	if !model.ValidAddress(address) {
		return nil, fmt.Errorf("%w: bad address %q", ErrValidation, address)
	}
	var payloads []ConversationPayload
	if err := c.read(ctx, MethodGetConversations, AddressParams{Address: address}, &payloads); err != nil {
		return nil, err
	}
	out := make([]model.Conversation, len(payloads))
	for i, p := range payloads {
		out[i] = p.ToModel()
	}
	return out, nil
}

// SetCharacter implements Gateway.
func (c *Client) SetCharacter(ctx context.Context, character model.Character) error {
	if err := character.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return c.write(ctx, MethodSetCharacter, CharacterPayloadFrom(character))
}

// SelectWinner implements Gateway.
func (c *Client) SelectWinner(ctx context.Context) error {
	return c.write(ctx, MethodSelectWinner, nil)
}

// DistributePrize implements Gateway.
func (c *Client) DistributePrize(ctx context.Context) error {
	return c.write(ctx, MethodDistributePrize, nil)
}

// StartNewEpoch implements Gateway.
func (c *Client) StartNewEpoch(ctx context.Context) error {
	return c.write(ctx, MethodStartNewEpoch, nil)
}

// RecordScore implements Gateway.
func (c *Client) RecordScore(ctx context.Context, conversationID string, score float64) error {
	if conversationID == "" {
		return fmt.Errorf("%w: missing conversation id", ErrValidation)
	}
	if score < 0 || score > model.MaxScore {
		return fmt.Errorf("%w: score %.2f out of range", ErrValidation, score)
	}
	return c.write(ctx, MethodRecordScore, RecordScoreParams{ConversationID: conversationID, Score: score})
}

// read performs a retried call: up to the configured attempt budget, with
// one endpoint rotation after each failed attempt and a fixed backoff
// between attempts. A typed authority error is authoritative and returned
// without further attempts. Exhaustion yields ErrUnavailable wrapping the
// last underlying error.
func (c *Client) read(ctx context.Context, method string, params, out any) error {
	start := time.Now()
	defer func() {
		metrics.RecordLedgerCallDuration(method, float64(time.Since(start).Milliseconds()))
	}()

	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		if attempt > 1 {
			if err := sleepCtx(ctx, c.backoff); err != nil {
				break
			}
		}

		ep := c.pool.Current()
		err := c.post(ctx, ep, method, params, out)
		if err == nil {
			metrics.RecordLedgerCall(method, "ok")
			return nil
		}
		if authoritative(err) {
			metrics.RecordLedgerCall(method, "rejected")
			return fmt.Errorf("%s: %w", method, err)
		}

		lastErr = err
		c.log.Warn(ctx, "ledger read failed",
			logger.String("method", method),
			logger.String("endpoint", ep),
			logger.Int("attempt", attempt),
			logger.Error(err),
		)
		if attempt < c.attempts {
			next := c.pool.Rotate()
			metrics.RecordLedgerFailover()
			c.log.Info(ctx, "rotated ledger endpoint", logger.String("endpoint", next))
		}
	}

	metrics.RecordLedgerCall(method, "unavailable")
	metrics.RecordLedgerUnavailable()
	return fmt.Errorf("%s exhausted %d attempts: %w: %w", method, c.attempts, ErrUnavailable, lastErr)
}

// write performs a single non-retried call. A failed write surfaces
// immediately with its typed reason; retrying mutations here would risk
// double execution.
func (c *Client) write(ctx context.Context, method string, params any) error {
	start := time.Now()
	defer func() {
		metrics.RecordLedgerCallDuration(method, float64(time.Since(start).Milliseconds()))
	}()

	if err := c.post(ctx, c.pool.Current(), method, params, nil); err != nil {
		outcome := "error"
		if authoritative(err) {
			outcome = "rejected"
		}
		metrics.RecordLedgerCall(method, outcome)
		return fmt.Errorf("%s: %w", method, err)
	}
	metrics.RecordLedgerCall(method, "ok")
	return nil
}

// post executes one RPC exchange against the given endpoint and decodes
// the result into out when non-nil.
func (c *Client) post(ctx context.Context, base, method string, params, out any) error {
	var raw json.RawMessage
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("marshal params: %w", err)
		}
		raw = b
	}
	body, err := json.Marshal(Request{Method: method, Params: raw})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+rpcPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	if c.operatorToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.operatorToken)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("endpoint %s: %w", base, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("endpoint %s: unexpected status %d", base, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("endpoint %s: read body: %w", base, err)
	}
	var env Response
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("endpoint %s: decode envelope: %w", base, err)
	}
	if env.Error != nil {
		if kind, ok := codeToErr[env.Error.Code]; ok {
			return fmt.Errorf("%w: %s", kind, env.Error.Message)
		}
		return fmt.Errorf("authority error %s: %s", env.Error.Code, env.Error.Message)
	}
	if out != nil && len(env.Result) > 0 {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return fmt.Errorf("endpoint %s: decode result: %w", base, err)
		}
	}
	return nil
}

// authoritative reports whether err carries a typed answer from the
// authority rather than a transport failure. Authoritative errors must not
// be retried.
func authoritative(err error) bool {
	for _, kind := range []error{
		ErrUnauthorized, ErrPaused, ErrCharacterAlreadySet, ErrEpochNotEnded,
		ErrWinnerAlreadySelected, ErrNoWinnerSelected, ErrEpochStillOpen, ErrValidation,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
