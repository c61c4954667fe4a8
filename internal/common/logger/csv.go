package logger

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// CSVLogger writes an audit trail of tool activity to a per-action CSV file
// in the system temp directory, with periodic buffering.
type CSVLogger struct {
	writer     *csv.Writer
	file       *os.File
	toolName   string
	action     string
	rowCount   int       // Number of rows written since last flush
	lastFlush  time.Time // Time of last flush
	flushEvery int       // Flush every N rows
}

// NewCSVLogger creates a new CSV logger for the specified tool and action.
// Filename pattern: %TEMP%/_{toolName}_{action}_{date}.csv
//
// Example: _entrareport_roles_2026-08-25.csv
func NewCSVLogger(toolName, action string) (*CSVLogger, error) {
	tempDir := os.TempDir()

	dateStr := time.Now().Format("2006-01-02")
	fileName := fmt.Sprintf("_%s_%s_%s.csv", toolName, action, dateStr)
	filePath := filepath.Join(tempDir, fileName)

	// Append mode so repeated runs on the same day share one file
	file, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("could not create CSV log file: %w", err)
	}

	logger := &CSVLogger{
		writer:     csv.NewWriter(file),
		file:       file,
		toolName:   toolName,
		action:     action,
		lastFlush:  time.Now(),
		flushEvery: 10,
	}

	fmt.Fprintf(os.Stderr, "Logging to: %s\n", filePath)
	return logger, nil
}

// Path returns the path of the underlying CSV file.
func (l *CSVLogger) Path() string {
	if l.file == nil {
		return ""
	}
	return l.file.Name()
}

// WriteHeader writes a CSV header with the provided column names if the file
// is new (empty). The timestamp column is automatically prepended.
func (l *CSVLogger) WriteHeader(columns []string) {
	if l.writer == nil || l.file == nil {
		return
	}
	info, err := l.file.Stat()
	if err != nil || info.Size() > 0 {
		return
	}
	header := append([]string{"Timestamp"}, columns...)
	l.writer.Write(header)
	l.writer.Flush()
}

// WriteRow writes a row to the CSV file with periodic buffering.
// The current timestamp is prepended to every row.
func (l *CSVLogger) WriteRow(row []string) {
	if l.writer == nil {
		return
	}
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	fullRow := append([]string{timestamp}, row...)
	l.writer.Write(fullRow)
	l.rowCount++

	// Flush every N rows or every 5 seconds
	if l.rowCount%l.flushEvery == 0 || time.Since(l.lastFlush) > 5*time.Second {
		l.writer.Flush()
		l.lastFlush = time.Now()
	}
}

// Close closes the CSV file, ensuring all buffered data is flushed.
func (l *CSVLogger) Close() error {
	if l.writer != nil {
		l.writer.Flush()
	}
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
