package types

import "time"

// Mode represents the current dashboard interaction mode
type Mode int

const (
	ModeLoading Mode = iota
	ModeBrowsing
	ModeViewingObject
	ModeViewingHistory
	ModeError
)

// ParsedCommand represents a parsed oc command
type ParsedCommand struct {
	Raw          string
	Args         []string
	Verb         string
	Resource     string
	ResourceName string
	Namespace    string
	Flags        map[string]string
	BoolFlags    map[string]bool
	IsValid      bool
	Errors       []string
}

// HistoryEntry represents an executed oc command in the journal
type HistoryEntry struct {
	Command   string    `json:"command"`
	Timestamp time.Time `json:"timestamp"`
	Success   bool      `json:"success"`
	Server    string    `json:"server"`
	Namespace string    `json:"namespace,omitempty"`
}

// ListItem represents an item that can be selected from a list
type ListItem struct {
	Title       string
	Description string
	Metadata    map[string]string
}

func (i ListItem) FilterValue() string {
	return i.Title
}
