package generator

import (
	"strings"
)

// DefaultSeparator separates sentence text from its trailing label tag.
const DefaultSeparator = "|"

// Strategy tries to decode one trimmed, non-empty line. matched reports whether
// the strategy claimed the line; a claimed line is not offered to later
// strategies even when it yields no pairs.
type Strategy func(line string, fallback Label, opts ParseOptions) (pairs []LabeledSentence, matched bool)

// ParseOptions are shared by all strategies of one Parser.
type ParseOptions struct {
	Separator string
	MinLength int
}

// Parser 把模型原始输出按行解析为 (句子, 标签) 对，按优先级依次尝试各策略。
type Parser struct {
	opts       ParseOptions
	strategies []Strategy
}

// NewParser builds a parser from an ordered strategy list. Zero options take defaults.
func NewParser(opts ParseOptions, strategies ...Strategy) *Parser {
	if opts.Separator == "" {
		opts.Separator = DefaultSeparator
	}
	if opts.MinLength <= 0 {
		opts.MinLength = DefaultMinLength
	}
	if len(strategies) == 0 {
		strategies = DelimitedStrategies()
	}
	return &Parser{opts: opts, strategies: strategies}
}

// DelimitedStrategies is the default chain for "<text> | <LABEL>" output.
func DelimitedStrategies() []Strategy {
	return []Strategy{LabeledSuffix, SalvageLeading, WholeLine}
}

// NumberedStrategies is the chain for prompt-set output, where lines may come as
// "<n>. <text> OBJ" instead of carrying a separator.
func NumberedStrategies() []Strategy {
	return []Strategy{EchoedInstruction, LabeledSuffix, NumberedList}
}

// Parse never fails: unparsable lines are skipped and empty input gives an empty result.
func (p *Parser) Parse(text string, fallback Label) []LabeledSentence {
	out := []LabeledSentence{}
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		for _, try := range p.strategies {
			pairs, matched := try(line, fallback, p.opts)
			if !matched {
				continue
			}
			for _, s := range pairs {
				if s.Valid(p.opts.MinLength) {
					out = append(out, s)
				}
			}
			break
		}
	}
	return out
}

// LabeledSuffix splits on the last separator; the sentence itself may contain it.
func LabeledSuffix(line string, _ Label, opts ParseOptions) ([]LabeledSentence, bool) {
	i := strings.LastIndex(line, opts.Separator)
	if i < 0 {
		return nil, false
	}
	label, ok := ParseLabel(line[i+len(opts.Separator):])
	if !ok {
		return nil, false
	}
	text := strings.TrimSpace(line[:i])
	if textLen(text) <= opts.MinLength {
		return nil, true
	}
	return []LabeledSentence{{Text: text, Label: label}}, true
}

// SalvageLeading keeps the text before the first separator when the tag is garbled.
func SalvageLeading(line string, fallback Label, opts ParseOptions) ([]LabeledSentence, bool) {
	i := strings.Index(line, opts.Separator)
	if i < 0 {
		return nil, false
	}
	text := strings.TrimSpace(line[:i])
	if textLen(text) <= opts.MinLength {
		return nil, true
	}
	return []LabeledSentence{{Text: text, Label: fallback}}, true
}

// WholeLine takes a separator-free line as sentence text with the fallback label.
func WholeLine(line string, fallback Label, opts ParseOptions) ([]LabeledSentence, bool) {
	if strings.Contains(line, opts.Separator) {
		return nil, false
	}
	if textLen(line) <= opts.MinLength {
		return nil, true
	}
	return []LabeledSentence{{Text: line, Label: fallback}}, true
}

// EchoedInstruction claims and drops lines that repeat the prompt's
// "Format:" line or its "-" example bullets.
func EchoedInstruction(line string, _ Label, _ ParseOptions) ([]LabeledSentence, bool) {
	if strings.HasPrefix(line, "Format:") || strings.HasPrefix(line, "-") {
		return nil, true
	}
	return nil, false
}

// NumberedList handles "<n>. <content> OBJ|SUBJ". Numbered lines without a
// trailing tag are claimed and dropped.
func NumberedList(line string, _ Label, opts ParseOptions) ([]LabeledSentence, bool) {
	num, content, ok := strings.Cut(line, ". ")
	if !ok || num == "" || strings.TrimLeft(num, "0123456789") != "" {
		return nil, false
	}
	for _, l := range Labels() {
		suffix := " " + string(l)
		if strings.HasSuffix(content, suffix) {
			text := strings.TrimSpace(strings.TrimSuffix(content, suffix))
			if textLen(text) <= opts.MinLength {
				return nil, true
			}
			return []LabeledSentence{{Text: text, Label: l}}, true
		}
	}
	return nil, true
}
