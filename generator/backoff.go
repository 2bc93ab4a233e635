package generator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// ErrRetriesExhausted is returned by Caller.Call once every attempt has failed.
// Callers treat it as an empty batch, not as a fatal error.
var ErrRetriesExhausted = errors.New("llm call failed after all retries")

const (
	DefaultMaxRetries = 5
	DefaultBaseDelay  = 4 * time.Second
	// MaxBackoff caps a single delay so large attempt numbers cannot overflow.
	MaxBackoff = time.Hour

	errTextLimit = 100
)

// CallerOptions 配置重试与退避行为；零值字段使用默认值。
type CallerOptions struct {
	MaxRetries int
	BaseDelay  time.Duration
	// Limiter paces attempts; nil means unpaced.
	Limiter *rate.Limiter
	Logger  *log.Logger
	// Sleep and Jitter are test seams.
	Sleep  func(ctx context.Context, d time.Duration) error
	Jitter func() float64
}

// Caller wraps an LLMClient with bounded retries and exponential backoff with jitter.
type Caller struct {
	llm        LLMClient
	maxRetries int
	baseDelay  time.Duration
	limiter    *rate.Limiter
	logger     *log.Logger
	sleep      func(ctx context.Context, d time.Duration) error
	jitter     func() float64
}

func NewCaller(llm LLMClient, opts CallerOptions) (*Caller, error) {
	if llm == nil {
		return nil, errors.New("llm client is required")
	}
	c := &Caller{
		llm:        llm,
		maxRetries: opts.MaxRetries,
		baseDelay:  opts.BaseDelay,
		limiter:    opts.Limiter,
		logger:     opts.Logger,
		sleep:      opts.Sleep,
		jitter:     opts.Jitter,
	}
	if c.maxRetries <= 0 {
		c.maxRetries = DefaultMaxRetries
	}
	if c.baseDelay <= 0 {
		c.baseDelay = DefaultBaseDelay
	}
	if c.logger == nil {
		c.logger = log.Default()
	}
	if c.sleep == nil {
		c.sleep = sleepContext
	}
	if c.jitter == nil {
		c.jitter = rand.Float64
	}
	return c, nil
}

// Backoff returns the delay after the failed attempt with 0-based index attempt,
// excluding jitter. It saturates at MaxBackoff.
func (c *Caller) Backoff(attempt int) time.Duration {
	d := c.baseDelay
	for i := 0; i < attempt; i++ {
		if d >= MaxBackoff/2 {
			return MaxBackoff
		}
		d *= 2
	}
	return min(d, MaxBackoff)
}

// Call 调用模型，失败时按 base*2^attempt + jitter 退避重试。
// Exhausting all retries yields ErrRetriesExhausted; a cancelled ctx yields ctx.Err().
func (c *Caller) Call(ctx context.Context, prompt Prompt) (string, error) {
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return "", err
			}
		}
		text, err := c.llm.Complete(ctx, prompt)
		if err == nil {
			text = strings.TrimSpace(text)
			if text != "" {
				return text, nil
			}
			err = errors.New("response contains no text")
		}

		wait := c.Backoff(attempt) + time.Duration(c.jitter()*float64(time.Second))
		c.logger.Printf("[ERROR] api error: %s... retrying in %.1fs (attempt %d/%d)",
			truncate(err.Error(), errTextLimit), wait.Seconds(), attempt+1, c.maxRetries)
		if err := c.sleep(ctx, wait); err != nil {
			return "", err
		}
	}
	c.logger.Printf("[ERROR] failed after %d attempts", c.maxRetries)
	return "", fmt.Errorf("%w (%d attempts)", ErrRetriesExhausted, c.maxRetries)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
