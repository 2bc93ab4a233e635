// Package dataset turns an accumulated corpus into identified, shuffled rows
// plus summary statistics and advisory validation findings.
package dataset

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"unicode/utf8"

	"github.com/google/uuid"

	"subjectivity_datagen/generator"
)

// Row is one finalized sentence with its identifier.
type Row struct {
	ID    string
	Text  string
	Label generator.Label
	// SolvedConflict marks a row whose text was also generated with the other
	// label and collapsed by in-run dedup.
	SolvedConflict bool
}

// Stats 汇总统计，字段名与历史输出保持一致。
type Stats struct {
	Language   string  `json:"language,omitempty"`
	Total      int     `json:"total_samples"`
	Objective  int     `json:"objective_samples"`
	Subjective int     `json:"subjective_samples"`
	AvgLength  float64 `json:"avg_sentence_length"`
}

// Count returns the number of rows with label l.
func (s Stats) Count(l generator.Label) int {
	switch l {
	case generator.Objective:
		return s.Objective
	case generator.Subjective:
		return s.Subjective
	}
	return 0
}

func (s Stats) String() string {
	b, _ := json.MarshalIndent(s, "", "  ")
	return string(b)
}

// FinalizeOptions 控制最终化步骤；零值即原始行为（不去重、不查历史）。
type FinalizeOptions struct {
	Language string
	// Rand shuffles rows; nil uses a randomly seeded source.
	Rand *rand.Rand
	// IDSource feeds uuid generation; nil uses crypto/rand.
	IDSource io.Reader
	// DedupeWithinRun drops repeated texts, keeping the first occurrence.
	DedupeWithinRun bool
	// History enables cross-run duplicate detection.
	History *History
	// DropSeen removes rows found in History instead of only flagging them.
	DropSeen bool
	// Target adds an under_target finding when fewer rows are produced.
	Target int
	Logger *log.Logger
}

// Result is the output of Finalize.
type Result struct {
	Rows     []Row
	Stats    Stats
	Findings []Finding
}

// Finalize assigns identifiers, shuffles, computes stats and validates.
// Findings are advisory; an error is returned only when identifiers or the
// history store cannot be read.
func Finalize(corpus generator.Corpus, opts FinalizeOptions) (Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	rows := make([]Row, 0, len(corpus))
	if opts.DedupeWithinRun {
		rows = dedupe(corpus)
		if dropped := len(corpus) - len(rows); dropped > 0 {
			logger.Printf("[INFO] dropped %d in-run duplicate sentences", dropped)
		}
	} else {
		for _, s := range corpus {
			rows = append(rows, Row{Text: s.Text, Label: s.Label})
		}
	}

	var findings []Finding
	if opts.History != nil {
		kept, seen, err := opts.History.Filter(rows, opts.DropSeen)
		if err != nil {
			return Result{}, err
		}
		rows = kept
		if seen > 0 {
			msg := fmt.Sprintf("%d sentences were already produced by a previous run", seen)
			if opts.DropSeen {
				msg += " and were dropped"
			}
			findings = append(findings, Finding{Kind: FindingSeenBefore, Count: seen, Message: msg})
		}
	}

	for i := range rows {
		id, err := newID(opts.IDSource)
		if err != nil {
			return Result{}, fmt.Errorf("generate row id: %w", err)
		}
		rows[i].ID = id.String()
	}
	rng.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })

	stats := ComputeStats(rows)
	stats.Language = opts.Language
	findings = append(findings, Validate(rows, stats)...)
	if opts.Target > 0 && stats.Total < opts.Target {
		findings = append(findings, Finding{
			Kind:    FindingUnderTarget,
			Count:   opts.Target - stats.Total,
			Message: fmt.Sprintf("collected %d of %d requested sentences", stats.Total, opts.Target),
		})
	}

	logger.Printf("[INFO] dataset statistics: %s", stats)
	for _, f := range findings {
		logger.Printf("[WARN] %s", f.Message)
	}
	return Result{Rows: rows, Stats: stats, Findings: findings}, nil
}

// ComputeStats derives Stats from rows; AvgLength counts characters.
func ComputeStats(rows []Row) Stats {
	var s Stats
	chars := 0
	for _, r := range rows {
		s.Total++
		switch r.Label {
		case generator.Objective:
			s.Objective++
		case generator.Subjective:
			s.Subjective++
		}
		chars += utf8.RuneCountInString(r.Text)
	}
	if s.Total > 0 {
		s.AvgLength = float64(chars) / float64(s.Total)
	}
	return s
}

func dedupe(corpus generator.Corpus) []Row {
	index := make(map[string]int, len(corpus))
	rows := make([]Row, 0, len(corpus))
	for _, s := range corpus {
		if i, ok := index[s.Text]; ok {
			if rows[i].Label != s.Label {
				rows[i].SolvedConflict = true
			}
			continue
		}
		index[s.Text] = len(rows)
		rows = append(rows, Row{Text: s.Text, Label: s.Label})
	}
	return rows
}

func newID(src io.Reader) (uuid.UUID, error) {
	if src == nil {
		return uuid.NewRandom()
	}
	return uuid.NewRandomFromReader(src)
}
