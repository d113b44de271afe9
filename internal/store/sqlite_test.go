package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hcchou0425/line-jielong/internal/domain"
)

func newRepo(t *testing.T) *SQLiteRepo {
	t.Helper()
	repo, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func openSimple(t *testing.T, repo *SQLiteRepo, groupID string) int64 {
	t.Helper()
	id, err := repo.OpenList(context.Background(), groupID, "工作接龍", "u-creator", "團長", domain.KindSimple)
	require.NoError(t, err)
	return id
}

func openSchedule(t *testing.T, repo *SQLiteRepo, groupID string, slots []domain.Slot) int64 {
	t.Helper()
	ctx := context.Background()
	id, err := repo.OpenList(ctx, groupID, "工作認養排班", "u-creator", "團長", domain.KindSchedule)
	require.NoError(t, err)
	require.NoError(t, repo.CreateSlots(ctx, id, slots))
	return id
}

func TestJoinSimpleSequenceNumbers(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	listID := openSimple(t, repo, "g1")

	for i, u := range []string{"u1", "u2", "u3"} {
		seq, updated, err := repo.JoinSimple(ctx, listID, u, "名"+u, "", "")
		require.NoError(t, err)
		assert.False(t, updated)
		assert.Equal(t, i+1, seq)
	}

	// Leaving frees the row but never the number.
	seq, found, err := repo.LeaveSimple(ctx, listID, "u2")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 2, seq)

	seq, updated, err := repo.JoinSimple(ctx, listID, "u4", "名u4", "", "")
	require.NoError(t, err)
	assert.False(t, updated)
	assert.Equal(t, 4, seq)

	entries, err := repo.Entries(ctx, listID)
	require.NoError(t, err)
	got := make([]int, 0, len(entries))
	for _, e := range entries {
		got = append(got, e.Seq)
	}
	assert.Equal(t, []int{1, 3, 4}, got)
}

func TestJoinSimpleConcurrentSeqsUnique(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	listID := openSimple(t, repo, "g1")

	const n = 20
	var wg sync.WaitGroup
	seqs := make([]int, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			seqs[i], _, errs[i] = repo.JoinSimple(ctx, listID,
				fmt.Sprintf("u%d", i), fmt.Sprintf("名%d", i), "", "")
		}(i)
	}
	wg.Wait()

	seen := make(map[int]bool, n)
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.False(t, seen[seqs[i]], "seq %d assigned twice", seqs[i])
		seen[seqs[i]] = true
	}
	for want := 1; want <= n; want++ {
		assert.True(t, seen[want], "seq %d never assigned", want)
	}
}

func TestJoinSlotConcurrentCapacity(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	listID := openSchedule(t, repo, "g1", []domain.Slot{
		{Num: 1, Date: "3/1", Weekday: "日", Activity: "搬桌椅", Required: 3},
	})

	const n = 12
	var wg sync.WaitGroup
	outcomes := make([]JoinOutcome, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i], errs[i] = repo.JoinSlot(ctx, listID, 1,
				fmt.Sprintf("名%d", i), domain.Self(fmt.Sprintf("u%d", i)))
		}(i)
	}
	wg.Wait()

	ok := 0
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		switch outcomes[i] {
		case JoinOK:
			ok++
		case JoinFull:
		default:
			t.Fatalf("unexpected outcome %v", outcomes[i])
		}
	}
	assert.Equal(t, 3, ok)

	signups, err := repo.SlotSignups(ctx, listID)
	require.NoError(t, err)
	assert.Len(t, signups[1], 3)
}

func TestJoinSimpleUpsertKeepsSeq(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	listID := openSimple(t, repo, "g1")

	seq, _, err := repo.JoinSimple(ctx, listID, "u1", "小明", "飲料", "2")
	require.NoError(t, err)
	require.Equal(t, 1, seq)

	_, _, err = repo.JoinSimple(ctx, listID, "u2", "小華", "", "")
	require.NoError(t, err)

	seq, updated, err := repo.JoinSimple(ctx, listID, "u1", "小明", "餅乾", "3")
	require.NoError(t, err)
	assert.True(t, updated)
	assert.Equal(t, 1, seq)

	entries, err := repo.Entries(ctx, listID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "餅乾", entries[0].Item)
	assert.Equal(t, "3", entries[0].Quantity)
}

func TestOpenListClosesPrior(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	first := openSimple(t, repo, "g1")
	second := openSimple(t, repo, "g1")
	other := openSimple(t, repo, "g2")

	active, err := repo.ActiveList(ctx, "g1")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, second, active.ID)
	assert.NotEqual(t, first, active.ID)

	all, err := repo.ActiveLists(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second, all[0].ID)
	assert.Equal(t, other, all[1].ID)
}

func TestActiveListNone(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	active, err := repo.ActiveList(ctx, "g1")
	require.NoError(t, err)
	assert.Nil(t, active)

	listID := openSimple(t, repo, "g1")
	require.NoError(t, repo.CloseList(ctx, listID))

	active, err = repo.ActiveList(ctx, "g1")
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestJoinSlotCapacity(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	listID := openSchedule(t, repo, "g1", []domain.Slot{
		{Num: 1, Date: "3/1", Weekday: "日", Activity: "搬桌椅", Required: 2},
		{Num: 2, Date: "3/8", Weekday: "日", Activity: "值班", Required: 1},
	})

	out, err := repo.JoinSlot(ctx, listID, 1, "小明", domain.Self("u1"))
	require.NoError(t, err)
	assert.Equal(t, JoinOK, out)

	out, err = repo.JoinSlot(ctx, listID, 1, "小華", domain.Self("u2"))
	require.NoError(t, err)
	assert.Equal(t, JoinOK, out)

	out, err = repo.JoinSlot(ctx, listID, 1, "小美", domain.Self("u3"))
	require.NoError(t, err)
	assert.Equal(t, JoinFull, out)

	// required=1 slots take any number of distinct names.
	for i, name := range []string{"甲", "乙", "丙"} {
		out, err = repo.JoinSlot(ctx, listID, 2, name, domain.Self("v"+string(rune('a'+i))))
		require.NoError(t, err)
		assert.Equal(t, JoinOK, out)
	}

	out, err = repo.JoinSlot(ctx, listID, 2, "甲", domain.Self("vd"))
	require.NoError(t, err)
	assert.Equal(t, JoinDuplicate, out)

	out, err = repo.JoinSlot(ctx, listID, 9, "小明", domain.Self("u1"))
	require.NoError(t, err)
	assert.Equal(t, JoinSlotMissing, out)
}

func TestPrefillsShowUpAsSignups(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	listID := openSchedule(t, repo, "g1", []domain.Slot{
		{Num: 1, Date: "3/1", Weekday: "日", Activity: "值班", Required: 1},
		{Num: 2, Date: "3/8", Weekday: "日", Activity: "值班", Required: 1},
	})
	require.NoError(t, repo.CreatePrefills(ctx, listID, []domain.Prefill{
		{SlotNum: 1, Name: "小明"},
	}))

	signups, err := repo.SlotSignups(ctx, listID)
	require.NoError(t, err)
	assert.Equal(t, []string{"小明"}, signups[1])
	assert.Empty(t, signups[2])

	// Prefilled names still count for duplicate detection.
	out, err := repo.JoinSlot(ctx, listID, 1, "小明", domain.Self("u9"))
	require.NoError(t, err)
	assert.Equal(t, JoinDuplicate, out)
}

func TestLeaveSlotOnlyRemovesOwnEntries(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	listID := openSchedule(t, repo, "g1", []domain.Slot{
		{Num: 1, Date: "3/1", Weekday: "日", Activity: "值班", Required: 1},
	})

	_, err := repo.JoinSlot(ctx, listID, 1, "小明", domain.Self("u1"))
	require.NoError(t, err)
	_, err = repo.JoinSlot(ctx, listID, 1, "阿姨", domain.Proxy("u1"))
	require.NoError(t, err)

	ok, err := repo.LeaveSlot(ctx, listID, "u1", 1)
	require.NoError(t, err)
	assert.True(t, ok)

	// The proxy entry u1 made for someone else survives their own exit.
	signups, err := repo.SlotSignups(ctx, listID)
	require.NoError(t, err)
	assert.Equal(t, []string{"阿姨"}, signups[1])

	ok, err = repo.LeaveSlot(ctx, listID, "u1", 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLeaveAllSlots(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	listID := openSchedule(t, repo, "g1", []domain.Slot{
		{Num: 1, Date: "3/1", Weekday: "日", Activity: "值班", Required: 1},
		{Num: 2, Date: "3/8", Weekday: "日", Activity: "值班", Required: 1},
		{Num: 3, Date: "3/15", Weekday: "日", Activity: "值班", Required: 1},
	})

	for _, n := range []int{3, 1} {
		_, err := repo.JoinSlot(ctx, listID, n, "小明", domain.Self("u1"))
		require.NoError(t, err)
	}
	_, err := repo.JoinSlot(ctx, listID, 2, "小華", domain.Self("u2"))
	require.NoError(t, err)

	nums, err := repo.LeaveAllSlots(ctx, listID, "u1")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, nums)

	nums, err = repo.LeaveAllSlots(ctx, listID, "u1")
	require.NoError(t, err)
	assert.Nil(t, nums)

	signups, err := repo.SlotSignups(ctx, listID)
	require.NoError(t, err)
	assert.Equal(t, []string{"小華"}, signups[2])
	assert.Empty(t, signups[1])
	assert.Empty(t, signups[3])
}

func TestRemoveAndRenameBySlotAndName(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	listID := openSchedule(t, repo, "g1", []domain.Slot{
		{Num: 1, Date: "3/1", Weekday: "日", Activity: "值班", Required: 1},
	})
	_, err := repo.JoinSlot(ctx, listID, 1, "小明", domain.Self("u1"))
	require.NoError(t, err)

	ok, err := repo.RenameBySlotAndName(ctx, listID, 1, "小明", "小華")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.RenameBySlotAndName(ctx, listID, 1, "小明", "小美")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.RemoveBySlotAndName(ctx, listID, 1, "小華")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.RemoveBySlotAndName(ctx, listID, 1, "小華")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecordBroadcast(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	listID := openSimple(t, repo, "g1")

	active, err := repo.ActiveList(ctx, "g1")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Nil(t, active.LastBroadcastAt)
	assert.Zero(t, active.LastBroadcastCount)

	_, _, err = repo.JoinSimple(ctx, listID, "u1", "小明", "", "")
	require.NoError(t, err)
	_, _, err = repo.JoinSimple(ctx, listID, "u2", "小華", "", "")
	require.NoError(t, err)
	require.NoError(t, repo.RecordBroadcast(ctx, listID))

	active, err = repo.ActiveList(ctx, "g1")
	require.NoError(t, err)
	require.NotNil(t, active)
	require.NotNil(t, active.LastBroadcastAt)
	assert.Equal(t, 2, active.LastBroadcastCount)
}

func TestSettings(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	v, err := repo.Setting(ctx, KeyBroadcastHour)
	require.NoError(t, err)
	assert.Equal(t, "7", v)

	require.NoError(t, repo.SetSetting(ctx, KeyBroadcastHour, "9"))
	require.NoError(t, repo.SetSetting(ctx, KeyIntervalHours, "1.5"))
	require.NoError(t, repo.SetSetting(ctx, KeyReminderEnabled, "0"))

	s, err := repo.BroadcastSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 9, s.BroadcastHour)
	assert.Equal(t, 0, s.BroadcastMinute)
	assert.Equal(t, 7, s.AllowStart)
	assert.Equal(t, 22, s.AllowEnd)
	assert.Equal(t, 6, s.Threshold)
	assert.Equal(t, 1.5, s.IntervalHours)
	assert.False(t, s.ReminderEnabled)
}
