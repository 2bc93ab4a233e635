package generator

import (
	"strings"
	"unicode/utf8"
)

// Label 是句子的二分类标签。
type Label string

const (
	Objective  Label = "OBJ"
	Subjective Label = "SUBJ"
)

// DefaultMinLength is the exclusive lower bound on sentence length, in characters.
const DefaultMinLength = 10

// Labels returns the label rotation order used by the accumulator.
func Labels() []Label {
	return []Label{Objective, Subjective}
}

// ParseLabel normalizes a raw tag and reports whether it is a known label.
func ParseLabel(s string) (Label, bool) {
	l := Label(strings.ToUpper(strings.TrimSpace(s)))
	return l, l.Valid()
}

func (l Label) Valid() bool {
	return l == Objective || l == Subjective
}

func (l Label) String() string { return string(l) }

// GenerationRequest 描述一次生成调用：语言、期望标签、话题（可为空）。
type GenerationRequest struct {
	Language string
	Label    Label
	Topics   []string
}

// LabeledSentence is one accepted (text, label) pair.
type LabeledSentence struct {
	Text  string `json:"text"`
	Label Label  `json:"label"`
}

// Valid reports whether the pair satisfies the corpus invariants for minLen.
func (s LabeledSentence) Valid(minLen int) bool {
	return s.Label.Valid() && textLen(s.Text) > minLen
}

// Corpus 在累积阶段只追加，不做原地修改。
type Corpus []LabeledSentence

// Count returns how many sentences carry the given label.
func (c Corpus) Count(l Label) int {
	n := 0
	for _, s := range c {
		if s.Label == l {
			n++
		}
	}
	return n
}

// textLen counts characters, not bytes; Arabic and Bulgarian are multi-byte.
func textLen(s string) int {
	return utf8.RuneCountInString(s)
}
