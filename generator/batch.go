package generator

import (
	"context"
	"errors"
	"log"
	"math/rand/v2"
	"strings"
)

// DefaultTopics is the topic catalog used to diversify generation requests.
var DefaultTopics = []string{
	"politics", "technology", "science", "education",
	"health", "economy", "environment", "culture",
	"sports", "entertainment", "social_media", "travel",
	"food", "fashion", "literature", "history",
}

const DefaultTopicCount = 3

// BatchGenerator 负责一次“选话题 → 构造提示词 → 调用模型 → 解析”。
type BatchGenerator struct {
	caller  *Caller
	parser  *Parser
	topics  []string
	perCall int
	rng     *rand.Rand
	logger  *log.Logger
}

// BatchOptions configures a BatchGenerator; zero values take defaults.
type BatchOptions struct {
	Topics           []string
	SentencesPerCall int
	Rand             *rand.Rand
	Logger           *log.Logger
}

func NewBatchGenerator(caller *Caller, parser *Parser, opts BatchOptions) (*BatchGenerator, error) {
	if caller == nil {
		return nil, errors.New("caller is required")
	}
	if parser == nil {
		parser = NewParser(ParseOptions{})
	}
	g := &BatchGenerator{
		caller:  caller,
		parser:  parser,
		topics:  opts.Topics,
		perCall: opts.SentencesPerCall,
		rng:     opts.Rand,
		logger:  opts.Logger,
	}
	if len(g.topics) == 0 {
		g.topics = DefaultTopics
	}
	if g.perCall <= 0 {
		g.perCall = DefaultSentencesPerCall
	}
	if g.rng == nil {
		g.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if g.logger == nil {
		g.logger = log.Default()
	}
	return g, nil
}

// Topics returns the catalog in order.
func (g *BatchGenerator) Topics() []string {
	return g.topics
}

// Generate samples topicCount distinct topics and produces one labeled batch.
func (g *BatchGenerator) Generate(ctx context.Context, language string, label Label, topicCount int) []LabeledSentence {
	return g.GenerateRequest(ctx, GenerationRequest{
		Language: language,
		Label:    label,
		Topics:   g.SampleTopics(topicCount),
	})
}

// SampleTopics picks min(n, len(catalog)) distinct topics.
func (g *BatchGenerator) SampleTopics(n int) []string {
	if n <= 0 {
		return nil
	}
	if n > len(g.topics) {
		n = len(g.topics)
	}
	idx := g.rng.Perm(len(g.topics))[:n]
	out := make([]string, n)
	for i, j := range idx {
		out[i] = g.topics[j]
	}
	return out
}

// GenerateRequest 用给定话题生成一批；调用失败返回空批次，不中断整体流程。
func (g *BatchGenerator) GenerateRequest(ctx context.Context, req GenerationRequest) []LabeledSentence {
	prompt, err := BuildBatchPrompt(req, g.perCall)
	if err != nil {
		g.logger.Printf("[WARN] cannot build prompt for %s/%s: %v", req.Language, req.Label, err)
		return nil
	}
	return g.run(ctx, req.Language, req.Label, prompt, req.Topics)
}

// GeneratePrompt runs a pre-built prompt; label is the parse fallback and may be empty.
func (g *BatchGenerator) GeneratePrompt(ctx context.Context, language string, label Label, prompt Prompt) []LabeledSentence {
	return g.run(ctx, language, label, prompt, nil)
}

func (g *BatchGenerator) run(ctx context.Context, language string, label Label, prompt Prompt, topics []string) []LabeledSentence {
	text, err := g.caller.Call(ctx, prompt)
	if err != nil || text == "" {
		g.logger.Printf("[WARN] failed to generate content for %s/%s", language, label)
		return nil
	}
	lines := g.parser.Parse(text, label)
	topicText := "general"
	if len(topics) > 0 {
		topicText = strings.Join(topics, ", ")
	}
	g.logger.Printf("[INFO] generated %d %s sentences for %s with topics: %s", len(lines), label, language, topicText)
	return lines
}
