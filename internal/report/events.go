// Package report writes the jukebox audit log: one JSON object per line for
// every change to the stores and every refused blob request.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventType represents the type of event
type EventType string

const (
	EventSongAdded        EventType = "song_added"
	EventUserAdded        EventType = "user_added"
	EventPasswordUpdated  EventType = "password_updated"
	EventWhitelistChanged EventType = "whitelist_changed"
	EventUploadSaved      EventType = "upload_saved"
	EventAccessDenied     EventType = "access_denied"
	EventLoginFailed      EventType = "login_failed"
	EventError            EventType = "error"
)

// EventLevel represents the severity level
type EventLevel string

const (
	LevelDebug   EventLevel = "debug"
	LevelInfo    EventLevel = "info"
	LevelWarning EventLevel = "warning"
	LevelError   EventLevel = "error"
)

// levelPriority maps event levels to numeric priorities for comparison
var levelPriority = map[EventLevel]int{
	LevelDebug:   0,
	LevelInfo:    1,
	LevelWarning: 2,
	LevelError:   3,
}

// Event is one audit record
type Event struct {
	Timestamp time.Time         `json:"ts"`
	Level     EventLevel        `json:"level"`
	Event     EventType         `json:"event"`
	User      string            `json:"user,omitempty"`
	ClientIP  string            `json:"client_ip,omitempty"`
	Path      string            `json:"path,omitempty"`
	Title     string            `json:"title,omitempty"`
	Action    string            `json:"action,omitempty"`
	Bytes     int64             `json:"bytes,omitempty"`
	Error     string            `json:"error,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// EventLogger writes events to a JSONL file
type EventLogger struct {
	file     *os.File
	encoder  *json.Encoder
	mu       sync.Mutex
	path     string
	minLevel EventLevel
}

// NewEventLogger creates a new event logger with a minimum log level
// minLevel determines which events are written (e.g., LevelInfo skips LevelDebug)
func NewEventLogger(outputDir string, minLevel EventLevel) (*EventLogger, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405")
	filename := fmt.Sprintf("events-%s.jsonl", timestamp)
	path := filepath.Join(outputDir, filename)

	// Append so that two runs within the same second share a file
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create event log: %w", err)
	}

	return &EventLogger{
		file:     file,
		encoder:  json.NewEncoder(file),
		path:     path,
		minLevel: minLevel,
	}, nil
}

// Log writes an event to the JSONL file
func (l *EventLogger) Log(event *Event) error {
	if l == nil || l.file == nil {
		return nil // Silently ignore if logger not initialized
	}

	if levelPriority[event.Level] < levelPriority[l.minLevel] {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if err := l.encoder.Encode(event); err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	return nil
}

// LogSongAdded logs a catalog append
func (l *EventLogger) LogSongAdded(user, title, path string) error {
	return l.Log(&Event{
		Level: LevelInfo,
		Event: EventSongAdded,
		User:  user,
		Title: title,
		Path:  path,
	})
}

// LogUserAdded logs a new credential row
func (l *EventLogger) LogUserAdded(user string) error {
	return l.Log(&Event{
		Level: LevelInfo,
		Event: EventUserAdded,
		User:  user,
	})
}

// LogPasswordUpdated logs a credential rewrite
func (l *EventLogger) LogPasswordUpdated(user string, err error) error {
	level := LevelInfo
	errMsg := ""
	if err != nil {
		level = LevelError
		errMsg = err.Error()
	}

	return l.Log(&Event{
		Level: level,
		Event: EventPasswordUpdated,
		User:  user,
		Error: errMsg,
	})
}

// LogWhitelistChanged logs an add or remove on the whitelist
func (l *EventLogger) LogWhitelistChanged(action, ip string) error {
	return l.Log(&Event{
		Level:    LevelInfo,
		Event:    EventWhitelistChanged,
		Action:   action,
		ClientIP: ip,
	})
}

// LogUploadSaved logs an uploaded blob written to disk
func (l *EventLogger) LogUploadSaved(user, path string, bytes int64) error {
	return l.Log(&Event{
		Level: LevelInfo,
		Event: EventUploadSaved,
		User:  user,
		Path:  path,
		Bytes: bytes,
	})
}

// LogAccessDenied logs a /data request refused by the whitelist
func (l *EventLogger) LogAccessDenied(ip, path string) error {
	return l.Log(&Event{
		Level:    LevelWarning,
		Event:    EventAccessDenied,
		ClientIP: ip,
		Path:     path,
	})
}

// LogLoginFailed logs rejected Basic credentials
func (l *EventLogger) LogLoginFailed(user, path string) error {
	return l.Log(&Event{
		Level: LevelWarning,
		Event: EventLoginFailed,
		User:  user,
		Path:  path,
	})
}

// LogError logs an error event
func (l *EventLogger) LogError(action string, err error) error {
	return l.Log(&Event{
		Level:  LevelError,
		Event:  EventError,
		Action: action,
		Error:  err.Error(),
	})
}

// Close closes the event log file
func (l *EventLogger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.file.Close()
}

// Path returns the path to the event log file
func (l *EventLogger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// NullLogger returns a no-op event logger
func NullLogger() *EventLogger {
	return nil
}
