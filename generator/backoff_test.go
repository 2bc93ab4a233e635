package generator

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestNewCallerRequiresClient(t *testing.T) {
	_, err := NewCaller(nil, CallerOptions{})
	require.Error(t, err)
}

func TestNewCallerDefaults(t *testing.T) {
	c, err := NewCaller(&stubLLM{}, CallerOptions{})
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxRetries, c.maxRetries)
	assert.Equal(t, DefaultBaseDelay, c.baseDelay)
	assert.Equal(t, 4*time.Second, c.Backoff(0))
	assert.Equal(t, 16*time.Second, c.Backoff(2))
}

func TestBackoffSaturates(t *testing.T) {
	c := newTestCaller(&stubLLM{}, 40)

	prev := time.Duration(0)
	for attempt := 0; attempt < 40; attempt++ {
		d := c.Backoff(attempt)
		assert.Positive(t, d, "attempt %d", attempt)
		assert.GreaterOrEqual(t, d, prev, "attempt %d", attempt)
		assert.LessOrEqual(t, d, MaxBackoff, "attempt %d", attempt)
		prev = d
	}
	assert.Equal(t, MaxBackoff, c.Backoff(32))
	assert.Equal(t, MaxBackoff, c.Backoff(1000))
}

func TestCallExhaustsRetries(t *testing.T) {
	const n = 4
	llm := &stubLLM{errs: []error{
		errors.New("quota"), errors.New("network"), errors.New("503"), errors.New("timeout"),
	}}
	var sleeps []time.Duration
	c, err := NewCaller(llm, CallerOptions{
		MaxRetries: n,
		BaseDelay:  2 * time.Second,
		Logger:     quietLogger(),
		Sleep: func(_ context.Context, d time.Duration) error {
			sleeps = append(sleeps, d)
			return nil
		},
		Jitter: func() float64 { return 0 },
	})
	require.NoError(t, err)

	text, err := c.Call(context.Background(), Prompt{User: "x"})

	assert.Empty(t, text)
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.Equal(t, n, llm.calls)
	require.Len(t, sleeps, n)
	for k, d := range sleeps {
		assert.Equal(t, 2*time.Second*time.Duration(1<<k), d, "attempt %d", k)
		if k > 0 {
			assert.Greater(t, d, sleeps[k-1])
		}
	}
}

func TestCallRecoversAfterFailures(t *testing.T) {
	llm := &stubLLM{
		errs:      []error{errors.New("boom"), errors.New("boom")},
		responses: []string{"  A long enough sentence | OBJ \n"},
	}
	c := newTestCaller(llm, 5)

	text, err := c.Call(context.Background(), Prompt{User: "x"})

	require.NoError(t, err)
	assert.Equal(t, "A long enough sentence | OBJ", text)
	assert.Equal(t, 3, llm.calls)
}

func TestCallTreatsEmptyTextAsFailure(t *testing.T) {
	llm := &stubLLM{responses: []string{"   \n  "}}
	c := newTestCaller(llm, 3)

	_, err := c.Call(context.Background(), Prompt{})

	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.Equal(t, 3, llm.calls)
}

func TestCallAddsJitter(t *testing.T) {
	var got time.Duration
	c, err := NewCaller(&stubLLM{errs: []error{errors.New("x")}}, CallerOptions{
		MaxRetries: 1,
		BaseDelay:  time.Second,
		Logger:     quietLogger(),
		Sleep: func(_ context.Context, d time.Duration) error {
			got = d
			return nil
		},
		Jitter: func() float64 { return 0.5 },
	})
	require.NoError(t, err)

	_, _ = c.Call(context.Background(), Prompt{})
	assert.Equal(t, 1500*time.Millisecond, got)
}

func TestCallStopsOnCancelledContext(t *testing.T) {
	llm := &stubLLM{errs: []error{errors.New("x"), errors.New("x"), errors.New("x")}}
	c, err := NewCaller(llm, CallerOptions{MaxRetries: 3, BaseDelay: time.Hour, Logger: quietLogger()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Call(ctx, Prompt{})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, llm.calls)
}

func TestCallWaitsOnLimiter(t *testing.T) {
	llm := &stubLLM{responses: []string{"ok text here"}}
	c, err := NewCaller(llm, CallerOptions{
		Limiter: rate.NewLimiter(rate.Inf, 1),
		Logger:  quietLogger(),
	})
	require.NoError(t, err)

	text, err := c.Call(context.Background(), Prompt{})
	require.NoError(t, err)
	assert.Equal(t, "ok text here", text)
}

func TestCallLogsTruncatedError(t *testing.T) {
	var buf bytes.Buffer
	long := strings.Repeat("e", 300)
	c, err := NewCaller(&stubLLM{errs: []error{errors.New(long), errors.New(long)}}, CallerOptions{
		MaxRetries: 2,
		Logger:     log.New(&buf, "", 0),
		Sleep:      func(context.Context, time.Duration) error { return nil },
		Jitter:     func() float64 { return 0 },
	})
	require.NoError(t, err)

	_, _ = c.Call(context.Background(), Prompt{})

	out := buf.String()
	assert.Contains(t, out, "(attempt 1/2)")
	assert.Contains(t, out, "(attempt 2/2)")
	assert.Contains(t, out, "failed after 2 attempts")
	assert.Contains(t, out, strings.Repeat("e", 100)+"...")
	assert.NotContains(t, out, strings.Repeat("e", 101))
}
