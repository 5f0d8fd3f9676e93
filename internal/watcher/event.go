package watcher

import (
	"path/filepath"
	"strings"
	"time"
)

// EventType classifies a filesystem change.
type EventType int

const (
	EventCreated EventType = iota
	EventModified
	EventDeleted
	EventMoved
)

// String returns the string representation of the EventType
func (e EventType) String() string {
	switch e {
	case EventCreated:
		return "created"
	case EventModified:
		return "modified"
	case EventDeleted:
		return "deleted"
	case EventMoved:
		return "moved"
	default:
		return "unknown"
	}
}

// Event is one classified filesystem change. Immutable once constructed.
type Event struct {
	Type      EventType
	Path      string
	Timestamp time.Time
}

// IsMarkdown reports whether the event concerns a markdown source file.
func (e Event) IsMarkdown() bool {
	return IsMarkdownFile(e.Path)
}

// ShouldTriggerReload reports whether the event is worth pushing to
// connected browsers.
func (e Event) ShouldTriggerReload() bool {
	return ShouldTriggerReload(e.Path)
}

// IsMarkdownFile reports whether path has a markdown extension,
// case-insensitive.
func IsMarkdownFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return true
	default:
		return false
	}
}

// ShouldTriggerReload reports whether a change to path affects rendered
// pages: markdown sources always do, and so does anything under a
// templates or static directory.
func ShouldTriggerReload(path string) bool {
	if IsMarkdownFile(path) {
		return true
	}
	for _, segment := range strings.Split(filepath.ToSlash(path), "/") {
		if segment == "templates" || segment == "static" {
			return true
		}
	}
	return false
}
