package generator

import (
	"context"
	"errors"
	"log"
)

const (
	DefaultGroupSize  = 4
	DefaultMinSamples = 250
	// DefaultMaxBatches bounds AccumulateRandom when every call comes back empty.
	DefaultMaxBatches = 100
)

// Phase names the accumulation step a batch belongs to.
type Phase string

const (
	PhaseGeneral   Phase = "general"
	PhaseTopics    Phase = "topics"
	PhaseRandom    Phase = "random"
	PhasePromptSet Phase = "promptset"
)

// BatchEvent is reported to the Observer after every batch.
type BatchEvent struct {
	Language string
	Phase    Phase
	Label    Label
	Topics   []string
	Added    int
	Total    int
	Target   int
}

// Observer 接收累积进度（进度条、日志等）。
type Observer interface {
	Batch(ev BatchEvent)
}

// Accumulator drives the BatchGenerator until the corpus reaches a target size.
type Accumulator struct {
	gen       *BatchGenerator
	groupSize int
	observer  Observer
	logger    *log.Logger
}

type AccumulatorOptions struct {
	GroupSize int
	Observer  Observer
	Logger    *log.Logger
}

func NewAccumulator(gen *BatchGenerator, opts AccumulatorOptions) (*Accumulator, error) {
	if gen == nil {
		return nil, errors.New("batch generator is required")
	}
	a := &Accumulator{gen: gen, groupSize: opts.GroupSize, observer: opts.Observer, logger: opts.Logger}
	if a.groupSize <= 0 {
		a.groupSize = DefaultGroupSize
	}
	if a.logger == nil {
		a.logger = log.Default()
	}
	return a, nil
}

// TopicGroups partitions topics into consecutive groups of size; the last may be shorter.
func TopicGroups(topics []string, size int) [][]string {
	if size <= 0 {
		size = DefaultGroupSize
	}
	var groups [][]string
	for i := 0; i < len(topics); i += size {
		end := min(i+size, len(topics))
		groups = append(groups, topics[i:end])
	}
	return groups
}

// Accumulate 先生成一轮无话题限定的通用批次，再按话题组逐组生成，
// 达到 minSamples 或话题组耗尽即停止。The result may be smaller than minSamples.
func (a *Accumulator) Accumulate(ctx context.Context, language string, minSamples int) Corpus {
	a.logger.Printf("[INFO] starting dataset generation for %s (target %d)", language, minSamples)
	corpus := Corpus{}

	for _, label := range Labels() {
		if ctx.Err() != nil {
			return corpus
		}
		corpus = a.step(ctx, corpus, language, PhaseGeneral, label, nil, minSamples)
	}

	for _, group := range TopicGroups(a.gen.Topics(), a.groupSize) {
		if len(corpus) >= minSamples || ctx.Err() != nil {
			break
		}
		for _, label := range Labels() {
			corpus = a.step(ctx, corpus, language, PhaseTopics, label, group, minSamples)
			if len(corpus) >= minSamples {
				break
			}
		}
	}

	a.logger.Printf("[INFO] collected %d/%d sentences for %s", len(corpus), minSamples, language)
	return corpus
}

// AccumulateRandom alternates labels by corpus parity, sampling random topics per
// batch, until minSamples or maxBatches is reached.
func (a *Accumulator) AccumulateRandom(ctx context.Context, language string, minSamples, maxBatches int) Corpus {
	if maxBatches <= 0 {
		maxBatches = DefaultMaxBatches
	}
	corpus := Corpus{}
	for i := 0; i < maxBatches && len(corpus) < minSamples && ctx.Err() == nil; i++ {
		label := Objective
		if len(corpus)%2 != 0 {
			label = Subjective
		}
		batch := a.gen.Generate(ctx, language, label, DefaultTopicCount)
		corpus = append(corpus, batch...)
		a.notify(BatchEvent{Language: language, Phase: PhaseRandom, Label: label, Added: len(batch), Total: len(corpus), Target: minSamples})
		a.logger.Printf("[INFO] progress: %d/%d sentences collected", len(corpus), minSamples)
	}
	return corpus
}

// RunPromptSet runs every prompt of a fixed list once, in order.
func (a *Accumulator) RunPromptSet(ctx context.Context, language string, specs []PromptSpec) Corpus {
	corpus := Corpus{}
	for i, spec := range specs {
		if ctx.Err() != nil {
			break
		}
		a.logger.Printf("[INFO] processing prompt %d/%d (%s)", i+1, len(specs), spec.Name)
		batch := a.gen.GeneratePrompt(ctx, language, spec.Label, spec.Prompt)
		corpus = append(corpus, batch...)
		a.notify(BatchEvent{Language: language, Phase: PhasePromptSet, Label: spec.Label, Added: len(batch), Total: len(corpus)})
	}
	return corpus
}

func (a *Accumulator) step(ctx context.Context, corpus Corpus, language string, phase Phase, label Label, topics []string, target int) Corpus {
	batch := a.gen.GenerateRequest(ctx, GenerationRequest{Language: language, Label: label, Topics: topics})
	corpus = append(corpus, batch...)
	a.notify(BatchEvent{Language: language, Phase: phase, Label: label, Topics: topics, Added: len(batch), Total: len(corpus), Target: target})
	return corpus
}

func (a *Accumulator) notify(ev BatchEvent) {
	if a.observer != nil {
		a.observer.Batch(ev)
	}
}
