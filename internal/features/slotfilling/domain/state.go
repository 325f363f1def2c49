package domain

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// SlotMap is an insertion-ordered map of slot name to value.
type SlotMap struct {
	keys   []string
	values map[string]string
}

// NewSlotMap creates an empty SlotMap.
func NewSlotMap() *SlotMap {
	return &SlotMap{values: map[string]string{}}
}

// Set stores value under key. Re-setting a key keeps its original position.
func (m *SlotMap) Set(key, value string) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the raw stored value.
func (m *SlotMap) Get(key string) (string, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Value returns the trimmed value, empty when absent.
func (m *SlotMap) Value(key string) string {
	return strings.TrimSpace(m.values[key])
}

// Filled reports whether key holds a non-blank value.
func (m *SlotMap) Filled(key string) bool {
	return m.Value(key) != ""
}

// Delete removes key and reports whether it was present.
func (m *SlotMap) Delete(key string) bool {
	if _, ok := m.values[key]; !ok {
		return false
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
	return true
}

// Keys returns keys in insertion order.
func (m *SlotMap) Keys() []string {
	return append([]string(nil), m.keys...)
}

// Len returns the number of stored keys.
func (m *SlotMap) Len() int {
	return len(m.keys)
}

// FilledMap returns a plain copy of the non-blank entries.
func (m *SlotMap) FilledMap() map[string]string {
	out := make(map[string]string, len(m.keys))
	for _, k := range m.keys {
		if v := m.Value(k); v != "" {
			out[k] = v
		}
	}
	return out
}

// MarshalJSON writes the entries as an object in insertion order.
func (m *SlotMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// HistoryEntry is one line of the conversation transcript.
type HistoryEntry struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationState is the mutable state of one slot-filling session.
// It is owned by a single Engine.
type ConversationState struct {
	SessionID     string         `json:"session_id"`
	Category      string         `json:"category,omitempty"`
	Subtype       string         `json:"subtype,omitempty"`
	Slots         *SlotMap       `json:"slots"`
	LastAskedSlot string         `json:"last_asked_slot,omitempty"`
	Turn          int            `json:"turn"`
	History       []HistoryEntry `json:"history"`
}

// NewConversationState starts a fresh session.
func NewConversationState() *ConversationState {
	return &ConversationState{
		SessionID: uuid.NewString(),
		Slots:     NewSlotMap(),
	}
}

// ModeKey returns "CATEGORY/SUBTYPE", or "" when no mode is selected.
func (s *ConversationState) ModeKey() string {
	if s.Category == "" || s.Subtype == "" {
		return ""
	}
	return s.Category + "/" + s.Subtype
}

// HasMode reports whether a mode has been selected.
func (s *ConversationState) HasMode() bool {
	return s.ModeKey() != ""
}

// Append records a transcript entry.
func (s *ConversationState) Append(role, text string) {
	s.History = append(s.History, HistoryEntry{Role: role, Text: text})
}

// StepResult is the outcome of one turn. Done marks that the text carries
// a composed prompt; the session may continue afterwards.
type StepResult struct {
	Text string `json:"text"`
	Done bool   `json:"done"`
}
