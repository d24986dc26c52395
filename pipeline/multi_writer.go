package pipeline

import (
	"fmt"
	"sync"

	"github.com/aronkovacs/real-estate-scrapers/models"
)

// MultiWriter fans every batch out to several writers, e.g. the database
// store plus a CSV export.
type MultiWriter struct {
	writers []ItemWriter
	mu      sync.Mutex
}

// NewMultiWriter wraps the given writers into one.
func NewMultiWriter(writers ...ItemWriter) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// NewDualWriter creates a writer producing both CSV and JSONL files.
func NewDualWriter(csvFilename, jsonFilename string) (*MultiWriter, error) {
	csvWriter, err := NewCSVWriter(csvFilename)
	if err != nil {
		return nil, fmt.Errorf("create csv writer: %w", err)
	}

	jsonWriter, err := NewJSONWriter(jsonFilename)
	if err != nil {
		csvWriter.Close()
		return nil, fmt.Errorf("create json writer: %w", err)
	}

	return NewMultiWriter(csvWriter, jsonWriter), nil
}

// Write writes the batch to every underlying writer.
func (mw *MultiWriter) Write(items []*models.RealEstate) error {
	mw.mu.Lock()
	defer mw.mu.Unlock()

	for _, writer := range mw.writers {
		if err := writer.Write(items); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every writer, returning the combined errors.
func (mw *MultiWriter) Close() error {
	mw.mu.Lock()
	defer mw.mu.Unlock()

	var errs []error
	for _, writer := range mw.writers {
		if err := writer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close writers: %v", errs)
	}
	return nil
}

// Validate validates every writer's output.
func (mw *MultiWriter) Validate() error {
	var errs []error
	for _, writer := range mw.writers {
		if err := writer.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("validate writers: %v", errs)
	}
	return nil
}
