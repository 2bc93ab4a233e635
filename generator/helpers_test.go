package generator

import (
	"context"
	"io"
	"log"
	"math/rand/v2"
	"time"
)

// stubLLM returns scripted errors first, then cycles through responses.
type stubLLM struct {
	responses []string
	errs      []error
	calls     int
	prompts   []Prompt
}

func (s *stubLLM) Complete(_ context.Context, p Prompt) (string, error) {
	i := s.calls
	s.calls++
	s.prompts = append(s.prompts, p)
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if len(s.responses) == 0 {
		return "", nil
	}
	return s.responses[i%len(s.responses)], nil
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func newTestCaller(llm LLMClient, maxRetries int) *Caller {
	c, err := NewCaller(llm, CallerOptions{
		MaxRetries: maxRetries,
		BaseDelay:  time.Second,
		Logger:     quietLogger(),
		Sleep:      func(context.Context, time.Duration) error { return nil },
		Jitter:     func() float64 { return 0 },
	})
	if err != nil {
		panic(err)
	}
	return c
}

func newTestGenerator(llm LLMClient, topics []string, strategies ...Strategy) *BatchGenerator {
	g, err := NewBatchGenerator(newTestCaller(llm, 1), NewParser(ParseOptions{}, strategies...), BatchOptions{
		Topics: topics,
		Rand:   rand.New(rand.NewPCG(1, 2)),
		Logger: quietLogger(),
	})
	if err != nil {
		panic(err)
	}
	return g
}
