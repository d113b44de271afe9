package store

import (
	"database/sql"
	"time"

	"github.com/hcchou0425/line-jielong/internal/domain"
)

func toNullInt64(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UTC().Unix(), Valid: true}
}

func fromNullInt64(ns sql.NullInt64) *time.Time {
	if !ns.Valid {
		return nil
	}
	t := time.Unix(ns.Int64, 0).UTC()
	return &t
}

// submitterColumns flattens a Submitter into the user_id / registered_by /
// operator_id columns.
func submitterColumns(s domain.Submitter) (userID, registeredBy, operatorID string) {
	switch s.Kind {
	case domain.SubmitterSelf:
		return s.ID, string(domain.SubmitterSelf), ""
	case domain.SubmitterProxy:
		return "", string(domain.SubmitterProxy), s.ID
	default:
		return "", string(domain.SubmitterPrefill), ""
	}
}

func submitterFromColumns(userID, registeredBy, operatorID string) domain.Submitter {
	switch domain.SubmitterKind(registeredBy) {
	case domain.SubmitterProxy:
		return domain.Proxy(operatorID)
	case domain.SubmitterPrefill:
		return domain.Prefilled()
	default:
		return domain.Self(userID)
	}
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

const listColumns = `id, group_id, title, creator_id, creator_name, status,
	list_type, created_at, last_broadcast_at, last_broadcast_count`

func scanList(row rowScanner) (*domain.List, error) {
	var (
		l         domain.List
		status    string
		kind      string
		createdAt int64
		lastAt    sql.NullInt64
	)
	if err := row.Scan(
		&l.ID, &l.GroupID, &l.Title, &l.CreatorID, &l.CreatorName,
		&status, &kind, &createdAt, &lastAt, &l.LastBroadcastCount,
	); err != nil {
		return nil, err
	}
	l.Status = domain.ListStatus(status)
	l.Kind = domain.ListKind(kind)
	l.CreatedAt = time.Unix(createdAt, 0).UTC()
	l.LastBroadcastAt = fromNullInt64(lastAt)
	return &l, nil
}

const slotColumns = `list_id, slot_num, date_str, day_str, activity,
	time_str, session, required_count, note`

func scanSlot(row rowScanner) (*domain.Slot, error) {
	var (
		s       domain.Slot
		session string
	)
	if err := row.Scan(
		&s.ListID, &s.Num, &s.Date, &s.Weekday, &s.Activity,
		&s.TimeRange, &session, &s.Required, &s.Note,
	); err != nil {
		return nil, err
	}
	s.Session = domain.Session(session)
	return &s, nil
}

const entryColumns = `id, list_id, user_id, user_name, item, quantity,
	seq, slot_num, registered_by, operator_id, created_at`

func scanEntry(row rowScanner) (*domain.Entry, error) {
	var (
		e            domain.Entry
		userID       string
		registeredBy string
		operatorID   string
		seq          sql.NullInt64
		slotNum      sql.NullInt64
		createdAt    int64
	)
	if err := row.Scan(
		&e.ID, &e.ListID, &userID, &e.Name, &e.Item, &e.Quantity,
		&seq, &slotNum, &registeredBy, &operatorID, &createdAt,
	); err != nil {
		return nil, err
	}
	e.Submitter = submitterFromColumns(userID, registeredBy, operatorID)
	e.Seq = int(seq.Int64)
	e.SlotNum = int(slotNum.Int64)
	e.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &e, nil
}
