package entities

import (
	"time"

	"github.com/google/uuid"
)

// ChangeReason names the operation that changed the document.
type ChangeReason string

const (
	ChangeReasonLoad         ChangeReason = "load"
	ChangeReasonAdd          ChangeReason = "add"
	ChangeReasonUpdate       ChangeReason = "update"
	ChangeReasonRemove       ChangeReason = "remove"
	ChangeReasonRemoveEntry  ChangeReason = "remove_entry"
	ChangeReasonResetDefault ChangeReason = "reset_default"
	ChangeReasonResetSample  ChangeReason = "reset_sample"
	ChangeReasonDeleteAll    ChangeReason = "delete_all"
	ChangeReasonImport       ChangeReason = "import"
)

// LoadOutcome describes how a load resolved the file on disk.
type LoadOutcome string

const (
	LoadOutcomeLoaded    LoadOutcome = "loaded"
	LoadOutcomeRepaired  LoadOutcome = "repaired"
	LoadOutcomeMigrated  LoadOutcome = "migrated"
	LoadOutcomeDefaulted LoadOutcome = "defaulted"
)

// Severity classifies a user-facing message.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// ChangeEvent tells observers to re-read the document.
type ChangeEvent struct {
	ID      uuid.UUID    `json:"id"`
	Reason  ChangeReason `json:"reason"`
	Name    string       `json:"name,omitempty"`
	Outcome LoadOutcome  `json:"outcome,omitempty"`
	At      time.Time    `json:"at"`
}

// Message is a user-facing notice about an import or export.
type Message struct {
	ID       uuid.UUID `json:"id"`
	Title    string    `json:"title"`
	Body     string    `json:"body"`
	Severity Severity  `json:"severity"`
	At       time.Time `json:"at"`
}

// NewChangeEvent stamps a change event with a fresh ID.
func NewChangeEvent(reason ChangeReason, name string, at time.Time) ChangeEvent {
	return ChangeEvent{
		ID:     uuid.New(),
		Reason: reason,
		Name:   name,
		At:     at,
	}
}

// NewMessage stamps a message with a fresh ID.
func NewMessage(severity Severity, title, body string, at time.Time) Message {
	return Message{
		ID:       uuid.New(),
		Title:    title,
		Body:     body,
		Severity: severity,
		At:       at,
	}
}

// Utility methods
func (r ChangeReason) IsValid() bool {
	switch r {
	case ChangeReasonLoad, ChangeReasonAdd, ChangeReasonUpdate, ChangeReasonRemove,
		ChangeReasonRemoveEntry, ChangeReasonResetDefault, ChangeReasonResetSample,
		ChangeReasonDeleteAll, ChangeReasonImport:
		return true
	default:
		return false
	}
}

func (s Severity) IsValid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityError:
		return true
	default:
		return false
	}
}
