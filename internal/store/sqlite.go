package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	"github.com/hcchou0425/line-jielong/internal/domain"
)

// SQLiteRepo implements Repo using an embedded SQLite database.
type SQLiteRepo struct{ db *sql.DB }

// OpenSQLite opens (or creates) the SQLite database at the given path,
// applies recommended PRAGMAs, runs SQL migrations, seeds setting
// defaults, and returns a repository.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Single connection: SQLite is a single-writer engine, and funneling
	// every transaction through one connection makes the read-max-insert
	// steps linearizable per list.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	if err := seedSettings(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("seed settings: %w", err)
	}

	return &SQLiteRepo{db: db}, nil
}

// applyPragmas configures the SQLite connection for durability and concurrency.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// seedSettings inserts default values for missing keys only.
func seedSettings(ctx context.Context, db *sql.DB) error {
	for key, value := range settingDefaults {
		if _, err := db.ExecContext(ctx,
			`INSERT OR IGNORE INTO settings (key, value) VALUES (?, ?)`, key, value,
		); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database resources.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

// OpenList force-closes any open list in the group and inserts the new one
// in a single transaction, so readers never see two open lists per group.
func (r *SQLiteRepo) OpenList(ctx context.Context, groupID, title, creatorID, creatorName string, kind domain.ListKind) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`UPDATE lists SET status = ? WHERE group_id = ? AND status = ?`,
		domain.StatusClosed, groupID, domain.StatusOpen,
	); err != nil {
		return 0, fmt.Errorf("close prior list: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO lists (group_id, title, creator_id, creator_name, status, list_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		groupID, title, creatorID, creatorName, domain.StatusOpen, kind, time.Now().UTC().Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert list: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return id, tx.Commit()
}

// CreateSlots bulk-inserts parsed slots for a new schedule list.
func (r *SQLiteRepo) CreateSlots(ctx context.Context, listID int64, slots []domain.Slot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, s := range slots {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO slots (list_id, slot_num, date_str, day_str, activity, time_str, session, required_count, note)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			listID, s.Num, s.Date, s.Weekday, s.Activity, s.TimeRange, s.Session, s.Required, s.Note,
		); err != nil {
			return fmt.Errorf("insert slot %d: %w", s.Num, err)
		}
	}
	return tx.Commit()
}

// CreatePrefills inserts entries for names captured from the schedule text.
func (r *SQLiteRepo) CreatePrefills(ctx context.Context, listID int64, prefills []domain.Prefill) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, p := range prefills {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO entries (list_id, user_id, user_name, slot_num, registered_by, created_at)
			VALUES (?, '', ?, ?, ?, ?)`,
			listID, p.Name, p.SlotNum, domain.SubmitterPrefill, time.Now().UTC().Unix(),
		); err != nil {
			return fmt.Errorf("insert prefill %q: %w", p.Name, err)
		}
	}
	return tx.Commit()
}

// ActiveList returns the open list for the group, or nil if none exists.
func (r *SQLiteRepo) ActiveList(ctx context.Context, groupID string) (*domain.List, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+listColumns+` FROM lists
		 WHERE group_id = ? AND status = ? ORDER BY id DESC LIMIT 1`,
		groupID, domain.StatusOpen,
	)
	l, err := scanList(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return l, err
}

// ActiveLists returns every open list across all groups.
func (r *SQLiteRepo) ActiveLists(ctx context.Context) ([]domain.List, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+listColumns+` FROM lists WHERE status = ? ORDER BY id`,
		domain.StatusOpen,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.List
	for rows.Next() {
		l, err := scanList(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *l)
	}
	return res, rows.Err()
}

// Entries returns all entries of a list ordered by sequence number.
func (r *SQLiteRepo) Entries(ctx context.Context, listID int64) ([]domain.Entry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE list_id = ? ORDER BY seq, id`,
		listID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *e)
	}
	return res, rows.Err()
}

func (r *SQLiteRepo) EntryCount(ctx context.Context, listID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM entries WHERE list_id = ?`, listID,
	).Scan(&n)
	return n, err
}

// Slots returns a list's slots ordered by slot number.
func (r *SQLiteRepo) Slots(ctx context.Context, listID int64) ([]domain.Slot, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+slotColumns+` FROM slots WHERE list_id = ? ORDER BY slot_num`,
		listID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *s)
	}
	return res, rows.Err()
}

// SlotByNum returns one slot, or nil if the number does not exist.
func (r *SQLiteRepo) SlotByNum(ctx context.Context, listID int64, slotNum int) (*domain.Slot, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+slotColumns+` FROM slots WHERE list_id = ? AND slot_num = ?`,
		listID, slotNum,
	)
	s, err := scanSlot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

// SlotSignups builds {slot number: [names]} from entries in insertion order.
func (r *SQLiteRepo) SlotSignups(ctx context.Context, listID int64) (map[int][]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT slot_num, user_name FROM entries
		WHERE list_id = ? AND slot_num IS NOT NULL ORDER BY id`,
		listID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := make(map[int][]string)
	for rows.Next() {
		var (
			num  int
			name string
		)
		if err := rows.Scan(&num, &name); err != nil {
			return nil, err
		}
		if name == "" {
			name = "（未知）"
		}
		res[num] = append(res[num], name)
	}
	return res, rows.Err()
}

// JoinSimple upserts a member's entry keyed by their user id. The
// sequence number is read and assigned inside one transaction so two
// concurrent joins never share a number; deleted numbers are not reused.
func (r *SQLiteRepo) JoinSimple(ctx context.Context, listID int64, userID, name, item, quantity string) (int, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, err
	}
	defer func() { _ = tx.Rollback() }()

	var (
		id  int64
		seq int
	)
	err = tx.QueryRowContext(ctx, `
		SELECT id, seq FROM entries
		WHERE list_id = ? AND user_id = ? AND slot_num IS NULL`,
		listID, userID,
	).Scan(&id, &seq)

	switch {
	case err == nil:
		if _, err := tx.ExecContext(ctx,
			`UPDATE entries SET user_name = ?, item = ?, quantity = ? WHERE id = ?`,
			name, item, quantity, id,
		); err != nil {
			return 0, false, fmt.Errorf("update entry: %w", err)
		}
		return seq, true, tx.Commit()

	case errors.Is(err, sql.ErrNoRows):
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(seq), 0) + 1 FROM entries WHERE list_id = ?`, listID,
		).Scan(&seq); err != nil {
			return 0, false, err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO entries (list_id, user_id, user_name, item, quantity, seq, registered_by, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			listID, userID, name, item, quantity, seq, domain.SubmitterSelf, time.Now().UTC().Unix(),
		); err != nil {
			return 0, false, fmt.Errorf("insert entry: %w", err)
		}
		return seq, false, tx.Commit()

	default:
		return 0, false, err
	}
}

// JoinSlot registers a name on a slot. Outcomes are first-class results:
// a missing slot, a duplicate name, and a full slot are reported, not
// returned as errors. Capacity is enforced only when the slot requires
// more than one person; required=1 slots accept any number of distinct
// names as backups.
func (r *SQLiteRepo) JoinSlot(ctx context.Context, listID int64, slotNum int, name string, sub domain.Submitter) (JoinOutcome, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var required int
	err = tx.QueryRowContext(ctx,
		`SELECT required_count FROM slots WHERE list_id = ? AND slot_num = ?`,
		listID, slotNum,
	).Scan(&required)
	if errors.Is(err, sql.ErrNoRows) {
		return JoinSlotMissing, nil
	}
	if err != nil {
		return 0, err
	}

	var dup int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM entries WHERE list_id = ? AND slot_num = ? AND user_name = ?`,
		listID, slotNum, name,
	).Scan(&dup); err != nil {
		return 0, err
	}
	if dup > 0 {
		return JoinDuplicate, nil
	}

	if required > 1 {
		var filled int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM entries WHERE list_id = ? AND slot_num = ?`,
			listID, slotNum,
		).Scan(&filled); err != nil {
			return 0, err
		}
		if filled >= required {
			return JoinFull, nil
		}
	}

	userID, registeredBy, operatorID := submitterColumns(sub)
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO entries (list_id, user_id, user_name, slot_num, registered_by, operator_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		listID, userID, name, slotNum, registeredBy, operatorID, time.Now().UTC().Unix(),
	); err != nil {
		return 0, fmt.Errorf("insert slot entry: %w", err)
	}
	return JoinOK, tx.Commit()
}

// LeaveSimple removes the member's entry. Remaining sequence numbers are
// untouched (no renumbering).
func (r *SQLiteRepo) LeaveSimple(ctx context.Context, listID int64, userID string) (int, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, err
	}
	defer func() { _ = tx.Rollback() }()

	var (
		id  int64
		seq int
	)
	err = tx.QueryRowContext(ctx, `
		SELECT id, seq FROM entries
		WHERE list_id = ? AND user_id = ? AND slot_num IS NULL`,
		listID, userID,
	).Scan(&id, &seq)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id); err != nil {
		return 0, false, err
	}
	return seq, true, tx.Commit()
}

// LeaveSlot removes the member's own entry on one slot. Proxy entries the
// member registered for other people are untouched.
func (r *SQLiteRepo) LeaveSlot(ctx context.Context, listID int64, userID string, slotNum int) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM entries
		WHERE list_id = ? AND slot_num = ? AND user_id = ? AND registered_by = ?`,
		listID, slotNum, userID, domain.SubmitterSelf,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// LeaveAllSlots removes every entry the member registered themself and
// returns the slot numbers that were affected, in slot order.
func (r *SQLiteRepo) LeaveAllSlots(ctx context.Context, listID int64, userID string) ([]int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `
		SELECT DISTINCT slot_num FROM entries
		WHERE list_id = ? AND user_id = ? AND registered_by = ? AND slot_num IS NOT NULL
		ORDER BY slot_num`,
		listID, userID, domain.SubmitterSelf,
	)
	if err != nil {
		return nil, err
	}
	var nums []int
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			rows.Close()
			return nil, err
		}
		nums = append(nums, n)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(nums) == 0 {
		return nil, nil
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM entries
		WHERE list_id = ? AND user_id = ? AND registered_by = ? AND slot_num IS NOT NULL`,
		listID, userID, domain.SubmitterSelf,
	); err != nil {
		return nil, err
	}
	return nums, tx.Commit()
}

// RemoveBySlotAndName deletes the entry matching (slot, exact name).
func (r *SQLiteRepo) RemoveBySlotAndName(ctx context.Context, listID int64, slotNum int, name string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM entries WHERE list_id = ? AND slot_num = ? AND user_name = ?`,
		listID, slotNum, name,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// RenameBySlotAndName renames the entry matching (slot, old name).
func (r *SQLiteRepo) RenameBySlotAndName(ctx context.Context, listID int64, slotNum int, oldName, newName string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE entries SET user_name = ? WHERE list_id = ? AND slot_num = ? AND user_name = ?`,
		newName, listID, slotNum, oldName,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// CloseList sets status to closed; never deleted, never reopened.
func (r *SQLiteRepo) CloseList(ctx context.Context, listID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE lists SET status = ? WHERE id = ?`,
		domain.StatusClosed, listID,
	)
	return err
}

// RecordBroadcast stamps the list with the current time and entry count.
func (r *SQLiteRepo) RecordBroadcast(ctx context.Context, listID int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE lists
		SET last_broadcast_at = ?,
		    last_broadcast_count = (SELECT COUNT(*) FROM entries WHERE list_id = ?)
		WHERE id = ?`,
		time.Now().UTC().Unix(), listID, listID,
	)
	return err
}

// Setting returns the stored value for key, or its seeded default.
func (r *SQLiteRepo) Setting(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return settingDefaults[key], nil
	}
	return value, err
}

// SetSetting overwrites a setting. Idempotent.
func (r *SQLiteRepo) SetSetting(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}
