// Package conversation holds the session-scoped chat state: the ordered,
// append-only entry log and the most recently completed response. The store
// lives for the process and is reset only by the explicit clear action.
package conversation

import (
	"sync"

	"moviechat/internal/ragclient"
)

// Entry is one conversation turn. Sources and Intent are display metadata
// present only on assistant entries carrying a completed response; they are
// never sent back to the backend. Entries are immutable once appended.
type Entry struct {
	Role    string
	Content string
	Sources *ragclient.SourceSummary
	Intent  string
}

// Store is safe for concurrent use. Writers are the controller's completion
// handler and the explicit user actions; nothing else mutates it.
type Store struct {
	mu           sync.Mutex
	entries      []Entry
	lastResponse *ragclient.ChatResponse
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) AppendUser(content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, Entry{Role: ragclient.RoleUser, Content: content})
}

func (s *Store) AppendAssistant(content string, sources ragclient.SourceSummary, intent string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	src := sources
	s.entries = append(s.entries, Entry{
		Role:    ragclient.RoleAssistant,
		Content: content,
		Sources: &src,
		Intent:  intent,
	})
}

// SnapshotHistory returns the role/content pairs of every entry appended so
// far, in append order, for use as the next query's conversational context.
// Display metadata is excluded.
func (s *Store) SnapshotHistory() []ragclient.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := make([]ragclient.Message, 0, len(s.entries))
	for _, entry := range s.entries {
		history = append(history, ragclient.Message{Role: entry.Role, Content: entry.Content})
	}
	return history
}

// Entries returns a copy of the log for rendering.
func (s *Store) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// SetLastResponse replaces the retained response payload. It survives across
// turns; a newly submitted query does not clear it, so the pipeline panel
// stays populated while the next answer is in flight.
func (s *Store) SetLastResponse(resp *ragclient.ChatResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastResponse = resp
}

func (s *Store) LastResponse() *ragclient.ChatResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastResponse
}

// Clear wipes the whole history and the retained response. Individual
// entries are never deleted; this is the only removal operation.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.lastResponse = nil
}
