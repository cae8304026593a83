package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// ChangeAction classifies a history entry.
type ChangeAction string

const (
	ChangeActionCreated       ChangeAction = "created"
	ChangeActionUpdated       ChangeAction = "updated"
	ChangeActionStatusChanged ChangeAction = "status_changed"
	ChangeActionPublished     ChangeAction = "published"
	ChangeActionUnpublished   ChangeAction = "unpublished"
)

// FieldChange records one field delta in stringified form.
type FieldChange struct {
	Field    string `json:"field" bson:"field"`
	OldValue string `json:"oldValue,omitempty" bson:"oldValue,omitempty"`
	NewValue string `json:"newValue,omitempty" bson:"newValue,omitempty"`
}

// ChangeHistoryEntry is one immutable audit record.
type ChangeHistoryEntry struct {
	Timestamp time.Time     `json:"timestamp" bson:"timestamp"`
	UserID    string        `json:"userId" bson:"userId"`
	UserEmail string        `json:"userEmail,omitempty" bson:"userEmail,omitempty"`
	Action    ChangeAction  `json:"action" bson:"action"`
	Changes   []FieldChange `json:"changes" bson:"changes"`
}

// ChangeHistory is the append-only audit trail embedded in a roadwork.
// Entries can be appended and read, never edited or removed.
type ChangeHistory struct {
	entries []ChangeHistoryEntry
}

// NewChangeHistory seeds a history, typically from storage.
func NewChangeHistory(entries ...ChangeHistoryEntry) ChangeHistory {
	return ChangeHistory{entries: cloneEntries(entries)}
}

// Append adds an entry at the end of the trail.
func (h *ChangeHistory) Append(entry ChangeHistoryEntry) {
	entry.Changes = copyChanges(entry.Changes)
	if entry.Changes == nil {
		entry.Changes = []FieldChange{}
	}
	h.entries = append(h.entries, entry)
}

// Entries returns a copy of the trail in chronological order.
func (h ChangeHistory) Entries() []ChangeHistoryEntry {
	return cloneEntries(h.entries)
}

// Len returns the number of entries.
func (h ChangeHistory) Len() int {
	return len(h.entries)
}

// Last returns the most recent entry.
func (h ChangeHistory) Last() (ChangeHistoryEntry, bool) {
	if len(h.entries) == 0 {
		return ChangeHistoryEntry{}, false
	}
	return cloneEntries(h.entries[len(h.entries)-1:])[0], true
}

// MarshalJSON encodes the trail as a plain array.
func (h ChangeHistory) MarshalJSON() ([]byte, error) {
	if h.entries == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(h.entries)
}

// UnmarshalJSON decodes a plain array.
func (h *ChangeHistory) UnmarshalJSON(data []byte) error {
	var entries []ChangeHistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	h.entries = entries
	return nil
}

// Value stores the trail in a JSON column.
func (h ChangeHistory) Value() (driver.Value, error) {
	return h.MarshalJSON()
}

// Scan loads the trail from a JSON column.
func (h *ChangeHistory) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		h.entries = nil
		return nil
	case []byte:
		return h.UnmarshalJSON(v)
	case string:
		return h.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("change history: unsupported scan type %T", src)
	}
}

// MarshalBSONValue stores the trail as a BSON array.
func (h ChangeHistory) MarshalBSONValue() (bsontype.Type, []byte, error) {
	entries := h.entries
	if entries == nil {
		entries = []ChangeHistoryEntry{}
	}
	return bson.MarshalValue(entries)
}

// UnmarshalBSONValue loads the trail from a BSON array.
func (h *ChangeHistory) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	if t == bson.TypeNull {
		h.entries = nil
		return nil
	}
	var entries []ChangeHistoryEntry
	if err := (bson.RawValue{Type: t, Value: data}).Unmarshal(&entries); err != nil {
		return err
	}
	h.entries = entries
	return nil
}

func cloneEntries(entries []ChangeHistoryEntry) []ChangeHistoryEntry {
	if entries == nil {
		return nil
	}
	out := make([]ChangeHistoryEntry, len(entries))
	for i, e := range entries {
		e.Changes = copyChanges(e.Changes)
		out[i] = e
	}
	return out
}

func copyChanges(changes []FieldChange) []FieldChange {
	if changes == nil {
		return nil
	}
	out := make([]FieldChange, len(changes))
	copy(out, changes)
	return out
}
