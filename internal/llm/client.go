package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ppiankov/cardaudit/internal/repair"
	"github.com/ppiankov/cardaudit/internal/worker"
)

// Resolver maps a "provider/model" identifier to a provider and bare model name
type Resolver interface {
	Resolve(ctx context.Context, modelID string) (Provider, string, error)
}

// JSONCaller is the call surface the extraction and scoring stages depend on
type JSONCaller interface {
	CallJSON(ctx context.Context, modelID string, msgs []Message, decode func(map[string]any) error) error
}

// Client wraps provider calls with rate limiting, retry and response repair
type Client struct {
	resolver  Resolver
	limiter   *worker.Limiter
	policy    Policy
	maxTokens int
	logger    *zap.Logger
}

// ClientOptions configures a Client
type ClientOptions struct {
	Limiter   *worker.Limiter // nil disables rate limiting
	Policy    Policy
	MaxTokens int
	Logger    *zap.Logger
}

// NewClient creates a client over resolver
func NewClient(resolver Resolver, opts ClientOptions) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	policy := opts.Policy
	if policy.Attempts == 0 {
		policy = DefaultPolicy()
	}
	if policy.Retryable == nil {
		policy.Retryable = Retryable
	}

	return &Client{
		resolver:  resolver,
		limiter:   opts.Limiter,
		policy:    policy,
		maxTokens: opts.MaxTokens,
		logger:    logger,
	}
}

// CallJSON sends msgs to modelID and hands the repaired JSON object to decode.
// Each attempt waits on the provider's rate limiter, calls the provider,
// repairs the output and decodes it; a decode error fails the attempt.
// After the retry budget is spent the error wraps ErrCallExhausted.
func (c *Client) CallJSON(ctx context.Context, modelID string, msgs []Message, decode func(map[string]any) error) error {
	provider, name, err := c.resolver.Resolve(ctx, modelID)
	if err != nil {
		return fmt.Errorf("resolve model %s: %w", modelID, err)
	}

	log := c.logger.With(
		zap.String("call_id", uuid.NewString()),
		zap.String("provider", provider.Name()),
		zap.String("model", name),
	)

	policy := c.policy
	policy.OnRetry = func(attempt int, err error, wait time.Duration) {
		log.Warn("LLM attempt failed",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.String("error_type", string(ClassifyError(err))),
			zap.Error(err),
		)
	}

	_, err = Retry(ctx, policy, func(ctx context.Context, attempt int) (struct{}, error) {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx, provider.Name()); err != nil {
				return struct{}{}, fmt.Errorf("rate limiter: %w", err)
			}
		}

		start := time.Now()
		resp, err := provider.Complete(ctx, CompletionRequest{
			Model:     name,
			Messages:  msgs,
			MaxTokens: c.maxTokens,
		})
		if err != nil {
			return struct{}{}, err
		}
		if strings.TrimSpace(resp.Content) == "" {
			return struct{}{}, ErrEmptyResponse
		}

		obj, err := repair.Parse(resp.Content)
		if err != nil {
			return struct{}{}, err
		}
		if err := decode(obj); err != nil {
			return struct{}{}, fmt.Errorf("decode response: %w", err)
		}

		log.Debug("LLM call succeeded",
			zap.Int("attempt", attempt),
			zap.Int("tokens", resp.TokensUsed),
			zap.Duration("elapsed", time.Since(start)),
		)
		return struct{}{}, nil
	})
	if err != nil {
		log.Error("LLM call failed", zap.Error(err))
		return err
	}
	return nil
}
