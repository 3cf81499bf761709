package conversation

import (
	"time"

	"github.com/csheth/docchat/internal/ragapi"
)

// Kind tags the variant held by an Entry.
type Kind int

const (
	KindMessage Kind = iota + 1
	KindResultSet
)

func (k Kind) String() string {
	switch k {
	case KindMessage:
		return "message"
	case KindResultSet:
		return "result"
	default:
		return "unknown"
	}
}

// Origin identifies who a message entry is attributed to.
type Origin int

const (
	OriginUser Origin = iota + 1
	OriginAssistant
)

func (o Origin) String() string {
	switch o {
	case OriginUser:
		return "user"
	case OriginAssistant:
		return "assistant"
	default:
		return "unknown"
	}
}

// Entry is one line of the transcript. Kind selects which fields are meaningful:
// Text and Origin for KindMessage, Records for KindResultSet.
// CausedBy is set on outcome entries to the ID of the user entry that triggered them.
type Entry struct {
	Kind      Kind
	ID        string
	Timestamp time.Time
	CausedBy  string

	Text   string
	Origin Origin

	Records []ragapi.Record
}

// IsUser reports whether the entry is a message typed by the user.
func (e Entry) IsUser() bool {
	return e.Kind == KindMessage && e.Origin == OriginUser
}

func (e Entry) clone() Entry {
	e.Records = ragapi.CloneRecords(e.Records)
	return e
}

func newUserMessage(id, text string, at time.Time) Entry {
	return Entry{Kind: KindMessage, ID: id, Timestamp: at, Text: text, Origin: OriginUser}
}

func newAssistantMessage(id, text, causedBy string, at time.Time) Entry {
	return Entry{Kind: KindMessage, ID: id, Timestamp: at, Text: text, Origin: OriginAssistant, CausedBy: causedBy}
}

func newResultSet(id string, records []ragapi.Record, causedBy string, at time.Time) Entry {
	return Entry{
		Kind:      KindResultSet,
		ID:        id,
		Timestamp: at,
		CausedBy:  causedBy,
		Records:   ragapi.CloneRecords(records),
	}
}
