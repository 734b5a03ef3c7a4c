// Package logging writes the live sighting log: one NDJSON event per UAV
// lifecycle transition, in daily-rotated files that are gzip-compressed on
// rotation.
package logging

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// SightingEvent is one logged lifecycle transition.
type SightingEvent struct {
	Event     string  `json:"event"` // new, update, timeout
	Time      string  `json:"time"`
	UAVID     string  `json:"uav_id"`
	Protocol  string  `json:"protocol"`
	Transport string  `json:"transport"`
	RSSI      int8    `json:"rssi"`
	Latitude  float64 `json:"lat,omitempty"`
	Longitude float64 `json:"lon,omitempty"`
	Altitude  float32 `json:"alt_geo,omitempty"`
	Messages  uint32  `json:"messages"`
}

// SightingLog is a daily-rotating NDJSON event log.
type SightingLog struct {
	logDir      string
	useUTC      bool
	logger      *logrus.Logger
	currentFile *os.File
	currentDate string
	mutex       sync.Mutex
}

// NewSightingLog creates the log directory if needed and opens today's file.
func NewSightingLog(logDir string, useUTC bool, logger *logrus.Logger) (*SightingLog, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	l := &SightingLog{
		logDir: logDir,
		useUTC: useUTC,
		logger: logger,
	}

	if err := l.rotate(); err != nil {
		return nil, fmt.Errorf("failed to initialize log file: %w", err)
	}

	return l, nil
}

// Write appends one event to the current file, rotating first when the
// date has changed.
func (l *SightingLog) Write(event *SightingEvent) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.currentDate != l.dateNow() {
		if err := l.rotate(); err != nil {
			return err
		}
	}

	if l.currentFile == nil {
		return fmt.Errorf("no current log file")
	}

	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	_, err = l.currentFile.Write(append(line, '\n'))
	return err
}

// Start watches for date changes so rotation happens even while idle.
func (l *SightingLog) Start(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.mutex.Lock()
			if l.currentDate != l.dateNow() {
				if err := l.rotate(); err != nil {
					l.logger.WithError(err).Error("Failed to rotate sighting log")
				}
			}
			l.mutex.Unlock()
		}
	}
}

// CurrentFile returns the active log file path.
func (l *SightingLog) CurrentFile() string {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.currentDate == "" {
		return ""
	}
	return l.filename(l.currentDate)
}

// Close closes the current file.
func (l *SightingLog) Close() error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.currentFile != nil {
		err := l.currentFile.Close()
		l.currentFile = nil
		return err
	}
	return nil
}

func (l *SightingLog) dateNow() string {
	now := time.Now()
	if l.useUTC {
		now = now.UTC()
	}
	return now.Format("2006-01-02")
}

func (l *SightingLog) filename(date string) string {
	return filepath.Join(l.logDir, fmt.Sprintf("sightings_%s.ndjson", date))
}

// rotate must be called with the mutex held (or before the log is shared).
func (l *SightingLog) rotate() error {
	newDate := l.dateNow()

	if l.currentFile != nil {
		oldDate := l.currentDate
		if err := l.currentFile.Close(); err != nil {
			l.logger.WithError(err).Error("Failed to close old sighting log")
		}
		go l.compress(oldDate)
	}

	path := l.filename(newDate)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create log file %s: %w", path, err)
	}

	l.currentFile = file
	l.currentDate = newDate

	l.logger.WithField("file", path).Info("Opened sighting log")
	return nil
}

func (l *SightingLog) compress(date string) {
	src := l.filename(date)
	dst := src + ".gz"

	if _, err := os.Stat(src); os.IsNotExist(err) {
		return
	}

	in, err := os.Open(src)
	if err != nil {
		l.logger.WithError(err).WithField("file", src).Error("Failed to open sighting log for compression")
		return
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		l.logger.WithError(err).WithField("file", dst).Error("Failed to create compressed sighting log")
		return
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	gz.Name = filepath.Base(src)
	gz.ModTime = time.Now()

	if _, err := io.Copy(gz, in); err != nil {
		l.logger.WithError(err).Error("Failed to compress sighting log")
		return
	}
	if err := gz.Close(); err != nil {
		l.logger.WithError(err).Error("Failed to finish compressed sighting log")
		return
	}

	if err := os.Remove(src); err != nil {
		l.logger.WithError(err).WithField("file", src).Error("Failed to remove uncompressed sighting log")
		return
	}

	l.logger.WithField("file", dst).Info("Sighting log compressed")
}
