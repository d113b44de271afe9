package domain

import "time"

// ListKind distinguishes the two sign-up modes.
type ListKind string

const (
	KindSimple   ListKind = "simple"   // ordered roll-call, one entry per member
	KindSchedule ListKind = "schedule" // parsed work slots, entries claim slots
)

// ListStatus is the list lifecycle state. closed is terminal.
type ListStatus string

const (
	StatusOpen   ListStatus = "open"
	StatusClosed ListStatus = "closed"
)

// List is one sign-up campaign. At most one open list exists per group.
type List struct {
	ID                 int64
	GroupID            string
	Title              string
	CreatorID          string
	CreatorName        string
	Status             ListStatus
	Kind               ListKind
	CreatedAt          time.Time
	LastBroadcastAt    *time.Time // nil until first successful push
	LastBroadcastCount int        // entry count recorded at last push
}

// Session tags a slot as a morning or afternoon shift.
type Session string

const (
	SessionNone      Session = ""
	SessionMorning   Session = "上午"
	SessionAfternoon Session = "下午"
)

// Slot is one unit of work parsed from a schedule post. Slots are
// immutable once created; slot numbers are dense and 1-based per list.
type Slot struct {
	ListID    int64
	Num       int
	Date      string // e.g. "3/18"
	Weekday   string // e.g. "三"
	Activity  string
	TimeRange string
	Session   Session
	Required  int // headcount, >= 1
	Note      string
}

// Label renders the slot as a single human-readable line,
// e.g. "3/18（三）苓雅共修處值班 上午 9:00-12:00".
func (s Slot) Label() string {
	label := s.Date + "（" + s.Weekday + "）" + s.Activity
	if s.Session != SessionNone {
		label += " " + string(s.Session)
	}
	if s.TimeRange != "" {
		label += " " + s.TimeRange
	}
	return label
}

// SubmitterKind tells who caused an entry to be written.
type SubmitterKind string

const (
	// SubmitterSelf: the chat member registered themself (or a name they typed).
	SubmitterSelf SubmitterKind = "self"
	// SubmitterProxy: another member registered the named person on their behalf.
	SubmitterProxy SubmitterKind = "proxy"
	// SubmitterPrefill: the name came straight from the pasted schedule text.
	SubmitterPrefill SubmitterKind = "prefill"
)

// Submitter identifies the origin of an entry. ID is the member's own id
// for Self, the operator's id for Proxy, and empty for Prefill.
type Submitter struct {
	Kind SubmitterKind
	ID   string
}

func Self(userID string) Submitter      { return Submitter{Kind: SubmitterSelf, ID: userID} }
func Proxy(operatorID string) Submitter { return Submitter{Kind: SubmitterProxy, ID: operatorID} }
func Prefilled() Submitter              { return Submitter{Kind: SubmitterPrefill} }

// Entry is one person's claim against a list (simple mode, SlotNum==0)
// or against a specific slot (schedule mode).
type Entry struct {
	ID        int64
	ListID    int64
	Submitter Submitter
	Name      string
	Item      string
	Quantity  string
	Seq       int // simple mode only; assigned max+1, never reused
	SlotNum   int // 0 in simple mode
	CreatedAt time.Time
}

// Prefill is a name captured from the schedule text for a given slot,
// inserted as an entry at list-creation time.
type Prefill struct {
	SlotNum int
	Name    string
}
