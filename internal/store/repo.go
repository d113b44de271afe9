package store

import (
	"context"

	"github.com/hcchou0425/line-jielong/internal/domain"
)

// JoinOutcome is the per-name result of a slot registration attempt.
type JoinOutcome int

const (
	JoinOK JoinOutcome = iota
	JoinDuplicate
	JoinFull
	JoinSlotMissing
)

// Repo defines storage operations for lists, slots, entries and settings.
// All mutations are atomic single-row or single-transaction operations so
// concurrent message handlers never observe partial state.
type Repo interface {
	// OpenList closes any currently open list for the group and inserts a
	// new open one, atomically. Returns the new list id.
	OpenList(ctx context.Context, groupID, title, creatorID, creatorName string, kind domain.ListKind) (int64, error)
	CreateSlots(ctx context.Context, listID int64, slots []domain.Slot) error
	CreatePrefills(ctx context.Context, listID int64, prefills []domain.Prefill) error

	// ActiveList returns the open list for a group, or nil if none.
	ActiveList(ctx context.Context, groupID string) (*domain.List, error)
	ActiveLists(ctx context.Context) ([]domain.List, error)

	Entries(ctx context.Context, listID int64) ([]domain.Entry, error)
	EntryCount(ctx context.Context, listID int64) (int, error)
	Slots(ctx context.Context, listID int64) ([]domain.Slot, error)
	SlotByNum(ctx context.Context, listID int64, slotNum int) (*domain.Slot, error)
	// SlotSignups maps slot number to registered names in insertion order.
	SlotSignups(ctx context.Context, listID int64) (map[int][]string, error)

	// JoinSimple upserts the member's entry, keyed by user id. The sequence
	// number is assigned max+1 on first insert and kept on update.
	JoinSimple(ctx context.Context, listID int64, userID, name, item, quantity string) (seq int, updated bool, err error)
	// JoinSlot registers a name on a slot, enforcing name uniqueness and,
	// for slots requiring more than one person, the headcount cap.
	JoinSlot(ctx context.Context, listID int64, slotNum int, name string, sub domain.Submitter) (JoinOutcome, error)

	// LeaveSimple removes the member's entry; found is false if none existed.
	LeaveSimple(ctx context.Context, listID int64, userID string) (seq int, found bool, err error)
	// LeaveSlot removes the member's own entry on one slot.
	LeaveSlot(ctx context.Context, listID int64, userID string, slotNum int) (bool, error)
	// LeaveAllSlots removes every entry the member registered themself and
	// returns the affected slot numbers.
	LeaveAllSlots(ctx context.Context, listID int64, userID string) ([]int, error)
	RemoveBySlotAndName(ctx context.Context, listID int64, slotNum int, name string) (bool, error)
	RenameBySlotAndName(ctx context.Context, listID int64, slotNum int, oldName, newName string) (bool, error)

	// CloseList sets the list status to closed. Irreversible.
	CloseList(ctx context.Context, listID int64) error
	// RecordBroadcast stamps the list with now and its current entry count.
	// Called only after a successful outbound push.
	RecordBroadcast(ctx context.Context, listID int64) error

	Setting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	BroadcastSettings(ctx context.Context) (BroadcastSettings, error)

	Close() error
}
