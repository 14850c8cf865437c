// Package history keeps a journal of the oc commands a session executed
package history

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sahilm/fuzzy"
	"github.com/tapcraft-io/shift/pkg/types"
)

// History is a bounded, newest-first journal of executed commands. Commands
// are recorded without session flags, so no token ends up on disk.
type History struct {
	entries  []types.HistoryEntry
	maxSize  int
	filepath string
	now      func() time.Time
	mu       sync.RWMutex
}

// NewHistory creates a journal persisted at filepath, loading any entries
// already stored there
func NewHistory(maxSize int, filepath string) (*History, error) {
	if maxSize <= 0 {
		maxSize = 1
	}
	h := &History{
		entries:  make([]types.HistoryEntry, 0, maxSize),
		maxSize:  maxSize,
		filepath: filepath,
		now:      time.Now,
	}

	if err := h.Load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	return h, nil
}

// Add records a command. It satisfies the session's journal hook.
func (h *History) Add(cmd string, success bool, server, ns string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	entry := types.HistoryEntry{
		Command:   cmd,
		Timestamp: h.now(),
		Success:   success,
		Server:    server,
		Namespace: ns,
	}

	h.entries = append([]types.HistoryEntry{entry}, h.entries...)
	if len(h.entries) > h.maxSize {
		h.entries = h.entries[:h.maxSize]
	}
}

// Get returns the most recent n entries
func (h *History) Get(n int) []types.HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n = min(max(n, 0), len(h.entries))

	result := make([]types.HistoryEntry, n)
	copy(result, h.entries[:n])
	return result
}

// GetAll returns every entry, newest first
func (h *History) GetAll() []types.HistoryEntry {
	return h.Get(h.Len())
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// Search fuzzy-matches commands, best match first
func (h *History) Search(query string) []types.HistoryEntry {
	if query == "" {
		return h.GetAll()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	matches := fuzzy.FindFrom(query, commandSource(h.entries))

	result := make([]types.HistoryEntry, 0, len(matches))
	for _, match := range matches {
		result = append(result, h.entries[match.Index])
	}
	return result
}

type commandSource []types.HistoryEntry

func (s commandSource) String(i int) string { return s[i].Command }

func (s commandSource) Len() int { return len(s) }

// Filter keeps entries for a server and project. Empty values match all.
func (h *History) Filter(server, ns string, successOnly bool) []types.HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return FilterEntries(h.entries, server, ns, successOnly)
}

// FilterEntries applies Filter's rules to entries, keeping their order
func FilterEntries(entries []types.HistoryEntry, server, ns string, successOnly bool) []types.HistoryEntry {
	result := make([]types.HistoryEntry, 0)
	for _, entry := range entries {
		if server != "" && entry.Server != server {
			continue
		}
		if ns != "" && entry.Namespace != ns {
			continue
		}
		if successOnly && !entry.Success {
			continue
		}
		result = append(result, entry)
	}
	return result
}

// Delete removes an entry by index, 0 being the newest. Out of range
// indexes are ignored.
func (h *History) Delete(index int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if index < 0 || index >= len(h.entries) {
		return
	}
	h.entries = append(h.entries[:index], h.entries[index+1:]...)
}

// Save writes the journal to disk, replacing the previous file atomically
func (h *History) Save() error {
	h.mu.RLock()
	data, err := json.MarshalIndent(h.entries, "", "  ")
	h.mu.RUnlock()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(h.filepath), 0700); err != nil {
		return err
	}
	tmp := h.filepath + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, h.filepath)
}

// Load replaces the in-memory entries with the ones on disk
func (h *History) Load() error {
	data, err := os.ReadFile(h.filepath)
	if err != nil {
		return err
	}

	var entries []types.HistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	if len(entries) > h.maxSize {
		entries = entries[:h.maxSize]
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = entries
	return nil
}

// Clear removes every entry
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = make([]types.HistoryEntry, 0, h.maxSize)
}

// ToListItems converts entries for display
func ToListItems(entries []types.HistoryEntry) []types.ListItem {
	items := make([]types.ListItem, len(entries))
	for i, entry := range entries {
		desc := entry.Timestamp.Format("2006-01-02 15:04:05")
		if entry.Server != "" {
			desc += " | " + entry.Server
		}
		if entry.Namespace != "" {
			desc += "/" + entry.Namespace
		}
		if !entry.Success {
			desc += " | ✗ failed"
		}

		items[i] = types.ListItem{
			Title:       entry.Command,
			Description: desc,
			Metadata: map[string]string{
				"timestamp": entry.Timestamp.Format(time.RFC3339),
				"server":    entry.Server,
				"namespace": entry.Namespace,
			},
		}
	}
	return items
}
