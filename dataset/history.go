package dataset

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.etcd.io/bbolt"
)

var sentencesBucket = []byte("Sentences")

// HistoryEntry is stored per remembered sentence.
type HistoryEntry struct {
	ID       string    `json:"id"`
	Label    string    `json:"label"`
	Language string    `json:"language,omitempty"`
	SavedAt  time.Time `json:"saved_at"`
}

// History 记录历次运行已输出的句子，用于跨运行去重（bbolt 存储）。
type History struct {
	db *bbolt.DB
}

// OpenHistory opens or creates the history database at path.
func OpenHistory(path string) (*History, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sentencesBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}
	return &History{db: db}, nil
}

// Close closes the underlying database.
func (h *History) Close() error {
	return h.db.Close()
}

// Filter counts rows already in history and, when drop is set, removes them.
func (h *History) Filter(rows []Row, drop bool) ([]Row, int, error) {
	kept := rows[:0:0]
	seen := 0
	err := h.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(sentencesBucket)
		for _, r := range rows {
			if b.Get(historyKey(r.Text)) != nil {
				seen++
				if drop {
					continue
				}
			}
			kept = append(kept, r)
		}
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("read history: %w", err)
	}
	return kept, seen, nil
}

// Remember stores rows so later runs can detect them; existing entries are kept.
func (h *History) Remember(language string, rows []Row) error {
	now := time.Now().UTC()
	return h.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(sentencesBucket)
		for _, r := range rows {
			key := historyKey(r.Text)
			if b.Get(key) != nil {
				continue
			}
			data, err := json.Marshal(HistoryEntry{ID: r.ID, Label: string(r.Label), Language: language, SavedAt: now})
			if err != nil {
				return fmt.Errorf("failed to marshal history entry: %w", err)
			}
			if err := b.Put(key, data); err != nil {
				return err
			}
		}
		return nil
	})
}

// Len returns the number of remembered sentences.
func (h *History) Len() (int, error) {
	n := 0
	err := h.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(sentencesBucket).Stats().KeyN
		return nil
	})
	return n, err
}

// historyKey folds case and whitespace so trivially reformatted repeats match.
func historyKey(text string) []byte {
	norm := strings.ToLower(strings.Join(strings.Fields(text), " "))
	sum := sha256.Sum256([]byte(norm))
	return sum[:]
}
