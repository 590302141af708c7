package sink

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// JSONBatchSink accumulates page records and flushes them to numbered
// batch files once BatchSize is reached; Close flushes the remainder and
// SaveSummary writes a separate summary file. Grounded on the reference
// JSONOutput's save_page/flush/save_summary contract.
type JSONBatchSink struct {
	mu           sync.Mutex
	outputDir    string
	pretty       bool
	batchSize    int
	currentBatch []PageRecord
	batchCount   int
	totalPages   int
	log          *logrus.Logger
}

// Options configures a JSONBatchSink.
type Options struct {
	OutputDir string
	Pretty    bool
	BatchSize int
	Logger    *logrus.Logger
}

// NewJSONBatchSink creates the output directory and returns a ready
// sink. batchSize <= 0 defaults to 100, matching the reference default.
func NewJSONBatchSink(opts Options) (*JSONBatchSink, error) {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("sink: creating output dir: %w", err)
	}
	return &JSONBatchSink{
		outputDir: opts.OutputDir,
		pretty:    opts.Pretty,
		batchSize: batchSize,
		log:       log,
	}, nil
}

// SavePage appends page to the current batch, flushing when full.
func (s *JSONBatchSink) SavePage(page PageRecord) error {
	s.mu.Lock()
	s.currentBatch = append(s.currentBatch, page)
	s.totalPages++
	full := len(s.currentBatch) >= s.batchSize
	s.mu.Unlock()

	if full {
		return s.Flush()
	}
	return nil
}

type batchEnvelope struct {
	Batch     int          `json:"batch"`
	Count     int          `json:"count"`
	Timestamp string       `json:"timestamp"`
	Pages     []PageRecord `json:"pages"`
}

// Flush writes the current batch to disk and resets it. A no-op if
// the batch is empty.
func (s *JSONBatchSink) Flush() error {
	s.mu.Lock()
	if len(s.currentBatch) == 0 {
		s.mu.Unlock()
		return nil
	}
	s.batchCount++
	batch := s.currentBatch
	batchNum := s.batchCount
	s.currentBatch = nil
	s.mu.Unlock()

	envelope := batchEnvelope{
		Batch:     batchNum,
		Count:     len(batch),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Pages:     batch,
	}

	filename := filepath.Join(s.outputDir, fmt.Sprintf("batch_%04d.json", batchNum))
	if err := writeJSON(filename, envelope, s.pretty); err != nil {
		return fmt.Errorf("sink: writing batch file: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"batch": batchNum, "count": len(batch), "file": filename,
	}).Info("batch_written")
	return nil
}

// Summary is written once at crawl completion.
type Summary struct {
	TotalPages      int           `json:"total_pages"`
	BatchesWritten  int           `json:"batches_written"`
	Duration        time.Duration `json:"duration_seconds"`
	StartURL        string        `json:"start_url"`
	URLsCrawled     int           `json:"urls_crawled"`
	URLsFailed      int           `json:"urls_failed"`
	DuplicatesFound int           `json:"duplicates_found"`
}

// SaveSummary writes a single summary.json file in the output
// directory, with Duration written as seconds.
func (s *JSONBatchSink) SaveSummary(summary Summary) error {
	filename := filepath.Join(s.outputDir, "summary.json")
	out := struct {
		Summary
		Duration float64 `json:"duration_seconds"`
	}{summary, summary.Duration.Seconds()}
	if err := writeJSON(filename, out, true); err != nil {
		return fmt.Errorf("sink: writing summary file: %w", err)
	}
	s.log.WithField("file", filename).Info("summary_written")
	return nil
}

// Close flushes any remaining batch.
func (s *JSONBatchSink) Close() error {
	return s.Flush()
}

// Stats mirrors the reference get_stats.
func (s *JSONBatchSink) Stats() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]any{
		"total_pages":        s.totalPages,
		"batches_written":    s.batchCount,
		"current_batch_size": len(s.currentBatch),
		"output_dir":         s.outputDir,
	}
}

func writeJSON(filename string, v any, pretty bool) error {
	var data []byte
	var err error
	if pretty {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0o644)
}
