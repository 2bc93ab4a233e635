package dataset

import (
	"fmt"
	"unicode/utf8"
)

// FindingKind classifies an advisory validation result.
type FindingKind string

const (
	FindingImbalance   FindingKind = "imbalance"
	FindingDuplicates  FindingKind = "duplicates"
	FindingShort       FindingKind = "short_sentences"
	FindingSeenBefore  FindingKind = "seen_before"
	FindingUnderTarget FindingKind = "under_target"
)

const (
	// MinLabelRatio is the minority/majority label ratio below which a dataset is imbalanced.
	MinLabelRatio = 0.7
	// ShortSentence flags sentences with fewer characters than this.
	ShortSentence = 20
)

// Finding 是非阻塞的校验提示，不会修改或拒绝任何行。
type Finding struct {
	Kind    FindingKind `json:"kind"`
	Count   int         `json:"count"`
	Message string      `json:"message"`
}

// Validate checks label balance, duplicate texts and very short sentences.
// A label with no rows counts as zero, so a single-label dataset is imbalanced.
func Validate(rows []Row, stats Stats) []Finding {
	var out []Finding

	if stats.Total > 0 {
		lo, hi := stats.Objective, stats.Subjective
		if lo > hi {
			lo, hi = hi, lo
		}
		ratio := float64(lo) / float64(hi)
		if ratio < MinLabelRatio {
			out = append(out, Finding{
				Kind:    FindingImbalance,
				Count:   hi - lo,
				Message: fmt.Sprintf("dataset is imbalanced (ratio: %.2f, OBJ=%d SUBJ=%d)", ratio, stats.Objective, stats.Subjective),
			})
		}
	}

	unique := make(map[string]struct{}, len(rows))
	short := 0
	for _, r := range rows {
		unique[r.Text] = struct{}{}
		if utf8.RuneCountInString(r.Text) < ShortSentence {
			short++
		}
	}
	if dup := len(rows) - len(unique); dup > 0 {
		out = append(out, Finding{Kind: FindingDuplicates, Count: dup, Message: fmt.Sprintf("found %d duplicate sentences", dup)})
	}
	if short > 0 {
		out = append(out, Finding{Kind: FindingShort, Count: short, Message: fmt.Sprintf("found %d very short sentences", short)})
	}
	return out
}
