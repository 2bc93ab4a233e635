// Package publisher persists finished datasets: the delimited table, the
// optional combined dataset and the run report.
package publisher

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"subjectivity_datagen/dataset"
)

// Column names of the persisted table.
const (
	ColumnID             = "sentence_id"
	ColumnSentence       = "sentence"
	ColumnLabel          = "label"
	ColumnSolvedConflict = "solved_conflict"
)

// TableOptions controls table layout.
type TableOptions struct {
	Delimiter      rune
	SolvedConflict bool
}

// Published lists the files produced for one language.
type Published struct {
	Path       string
	MergedPath string
	MergedRows int
	ReportPath string
	HTMLPath   string
}

// Publisher writes datasets according to OutputConfig.
type Publisher struct {
	cfg     OutputConfig
	verbose bool
	logger  *log.Logger
}

// New creates a Publisher; the output path must map to a known delimiter.
func New(cfg OutputConfig, verbose bool, logger *log.Logger) (*Publisher, error) {
	if cfg.Path == "" {
		return nil, errors.New("output path is required")
	}
	if _, err := DelimiterFor(cfg.Path, cfg.Delimiter); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Publisher{cfg: cfg, verbose: verbose, logger: logger}, nil
}

func (p *Publisher) infof(format string, args ...interface{}) {
	if !p.verbose {
		return
	}
	p.logger.Printf("[INFO] "+format, args...)
}

// Publish writes the table for lang, then the combined dataset and report when
// configured. Any write failure is returned.
func (p *Publisher) Publish(lang string, res dataset.Result) (Published, error) {
	path := p.PathFor(lang)
	delim, err := DelimiterFor(path, p.cfg.Delimiter)
	if err != nil {
		return Published{}, err
	}
	opts := TableOptions{Delimiter: delim, SolvedConflict: p.cfg.SolvedConflict}
	if err := WriteTable(path, res.Rows, opts); err != nil {
		return Published{}, err
	}
	p.infof("Wrote %d rows to %s", len(res.Rows), path)
	out := Published{Path: path}

	if mergePath := p.cfg.MergePath(lang); mergePath != "" {
		n, err := Merge(p.cfg.MergeWith, mergePath, res.Rows)
		if err != nil {
			return out, err
		}
		out.MergedPath, out.MergedRows = mergePath, n
		p.infof("Combined dataset created with %d examples at %s", n, mergePath)
	}

	if p.cfg.Report {
		md := BuildReport(lang, path, res)
		out.ReportPath = ReportPath(path)
		if err := writeFileAtomic(out.ReportPath, []byte(md)); err != nil {
			return out, fmt.Errorf("write report: %w", err)
		}
		if p.cfg.HTML {
			html, err := RenderReportHTML(md)
			if err != nil {
				return out, fmt.Errorf("render report: %w", err)
			}
			out.HTMLPath = strings.TrimSuffix(out.ReportPath, ".md") + ".html"
			if err := writeFileAtomic(out.HTMLPath, []byte(html)); err != nil {
				return out, fmt.Errorf("write report: %w", err)
			}
		}
		p.infof("Wrote report %s", out.ReportPath)
	}
	return out, nil
}

// PathFor returns the table path for lang.
func (p *Publisher) PathFor(lang string) string {
	return p.cfg.PathFor(lang)
}

// DelimiterFor picks the field delimiter from an explicit override ("tab",
// "comma" or a single character) or else from the file extension.
func DelimiterFor(path, override string) (rune, error) {
	switch strings.ToLower(override) {
	case "":
	case "tab", `\t`, "\t":
		return '\t', nil
	case "comma", ",":
		return ',', nil
	default:
		r := []rune(override)
		if len(r) != 1 {
			return 0, fmt.Errorf("unsupported delimiter %q", override)
		}
		return r[0], nil
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsv":
		return '\t', nil
	case ".csv":
		return ',', nil
	}
	return 0, fmt.Errorf("cannot infer delimiter from %q; use .tsv or .csv or set output.delimiter", path)
}

// Header returns the column names written for opts.
func Header(opts TableOptions) []string {
	h := []string{ColumnID, ColumnSentence, ColumnLabel}
	if opts.SolvedConflict {
		h = append(h, ColumnSolvedConflict)
	}
	return h
}

// WriteTable writes rows to path through a temp file and rename, so a failed
// write never leaves a truncated table behind.
func WriteTable(path string, rows []dataset.Row, opts TableOptions) error {
	if opts.Delimiter == 0 {
		opts.Delimiter = '\t'
	}
	header := Header(opts)
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, rowRecord(header, r))
	}
	return writeRecordsAtomic(path, opts.Delimiter, header, records)
}

// ReadTable reads a delimited table and returns its header and records.
func ReadTable(path string, delim rune) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = delim
	r.LazyQuotes = true
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("table %s is empty", path)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header of %s: %w", path, err)
	}
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	return header, records, nil
}

// Merge writes the rows of the table at originalPath followed by rows to
// outPath, keeping the original header. Generated values for columns the
// original lacks are dropped; original columns unknown to rows are left empty.
func Merge(originalPath, outPath string, rows []dataset.Row) (int, error) {
	inDelim, err := DelimiterFor(originalPath, "")
	if err != nil {
		return 0, err
	}
	outDelim, err := DelimiterFor(outPath, "")
	if err != nil {
		return 0, err
	}
	header, records, err := ReadTable(originalPath, inDelim)
	if err != nil {
		return 0, fmt.Errorf("merge: %w", err)
	}
	if !contains(header, ColumnSentence) {
		return 0, fmt.Errorf("merge: %s has no %q column", originalPath, ColumnSentence)
	}
	for _, r := range rows {
		records = append(records, rowRecord(header, r))
	}
	if err := writeRecordsAtomic(outPath, outDelim, header, records); err != nil {
		return 0, err
	}
	return len(records), nil
}

func rowRecord(header []string, r dataset.Row) []string {
	rec := make([]string, len(header))
	for i, col := range header {
		switch col {
		case ColumnID:
			rec[i] = r.ID
		case ColumnSentence:
			rec[i] = r.Text
		case ColumnLabel:
			rec[i] = r.Label.String()
		case ColumnSolvedConflict:
			rec[i] = formatBool(r.SolvedConflict)
		}
	}
	return rec
}

// formatBool matches the True/False spelling of the existing datasets.
func formatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func writeRecordsAtomic(path string, delim rune, header []string, records [][]string) error {
	tmp, err := createTemp(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(tmp)
	w.Comma = delim
	err = w.Write(header)
	if err == nil {
		err = w.WriteAll(records)
	}
	w.Flush()
	if err == nil {
		err = w.Error()
	}
	return commitTemp(tmp, path, err)
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := createTemp(path)
	if err != nil {
		return err
	}
	_, werr := tmp.Write(data)
	return commitTemp(tmp, path, werr)
}

func createTemp(path string) (*os.File, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	return tmp, nil
}

// commitTemp closes tmp and renames it over path, removing it if anything failed.
func commitTemp(tmp *os.File, path string, writeErr error) error {
	closeErr := tmp.Close()
	if err := errors.Join(writeErr, closeErr); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
