package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hcchou0425/line-jielong/internal/domain"
	"github.com/hcchou0425/line-jielong/internal/format"
	"github.com/hcchou0425/line-jielong/internal/store"
)

// Pusher is the minimal interface the scheduler needs to send an
// unsolicited message to a group. line.Client implements this.
type Pusher interface {
	Push(groupID, text string) error
}

// Scheduler drives the broadcast triggers: a fixed daily push, a periodic
// interval push, an activity-delta push (via AfterJoin), and a
// vacancy-reminder push for schedule lists. All of them are gated by the
// configured quiet-hours window. Settings are re-read on every decision,
// so settings commands take effect without rescheduling anything.
type Scheduler struct {
	repo     store.Repo
	log      *zap.Logger
	pusher   Pusher
	loc      *time.Location
	interval time.Duration
	now      func() time.Time

	mu           sync.Mutex
	lastDaily    string // local date of the last daily broadcast
	lastReminder string // local date of the last vacancy reminder
	lastInterval time.Time
}

// New creates a Scheduler ticking once a minute.
func New(repo store.Repo, log *zap.Logger, pusher Pusher, loc *time.Location) *Scheduler {
	return &Scheduler{
		repo:     repo,
		log:      log,
		pusher:   pusher,
		loc:      loc,
		interval: time.Minute,
		now:      time.Now,
	}
}

// Run starts the loop until ctx is canceled. Triggers already past their
// fire time at startup are skipped for the day rather than replayed, so a
// restart does not re-broadcast.
func (s *Scheduler) Run(ctx context.Context) {
	s.prime(ctx, s.now())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopping")
			return
		case <-ticker.C:
			s.tick(ctx, s.now())
		}
	}
}

// prime marks already-due daily triggers as fired for today.
func (s *Scheduler) prime(ctx context.Context, now time.Time) {
	set, err := s.repo.BroadcastSettings(ctx)
	if err != nil {
		s.log.Error("BroadcastSettings failed", zap.Error(err))
		return
	}
	local := now.In(s.loc)
	date := local.Format("2006-01-02")

	s.mu.Lock()
	defer s.mu.Unlock()
	if timeReached(local, set.BroadcastHour, set.BroadcastMinute) {
		s.lastDaily = date
	}
	if timeReached(local, set.ReminderHour, set.ReminderMinute) {
		s.lastReminder = date
	}
}

// tick performs one scheduling cycle. A failing list must not block the
// others, so every push error is logged and skipped.
func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	set, err := s.repo.BroadcastSettings(ctx)
	if err != nil {
		s.log.Error("BroadcastSettings failed", zap.Error(err))
		return
	}
	local := now.In(s.loc)
	if !inAllowedWindow(local, set) {
		return
	}

	s.dailyTick(ctx, local, set)
	s.intervalTick(ctx, now, set)
	s.reminderTick(ctx, local, set)
}

// inAllowedWindow gates every trigger: pushes happen only when
// allowStart <= local hour < allowEnd.
func inAllowedWindow(local time.Time, set store.BroadcastSettings) bool {
	h := local.Hour()
	return set.AllowStart <= h && h < set.AllowEnd
}

func timeReached(local time.Time, hour, minute int) bool {
	return local.Hour() > hour || (local.Hour() == hour && local.Minute() >= minute)
}

// dailyTick pushes every open list once per local day at the configured time.
func (s *Scheduler) dailyTick(ctx context.Context, local time.Time, set store.BroadcastSettings) {
	date := local.Format("2006-01-02")

	s.mu.Lock()
	due := timeReached(local, set.BroadcastHour, set.BroadcastMinute) && s.lastDaily != date
	if due {
		s.lastDaily = date
	}
	s.mu.Unlock()
	if !due {
		return
	}

	lists, err := s.repo.ActiveLists(ctx)
	if err != nil {
		s.log.Error("ActiveLists failed", zap.Error(err))
		return
	}
	if len(lists) == 0 {
		s.log.Info("daily broadcast: no active lists")
		return
	}

	header := fmt.Sprintf("📣 早安！以下是今日工作認養名單（%s）\n\n", local.Format("2006/01/02"))
	for i := range lists {
		list := &lists[i]
		body, err := s.snapshot(ctx, list, local)
		if err != nil {
			s.log.Error("render snapshot failed", zap.Error(err), zap.Int64("list", list.ID))
			continue
		}
		s.push(ctx, list, header+body, "daily")
	}
}

// intervalTick evaluates, once an hour, which lists have gone longer than
// the configured interval without a broadcast. A list never broadcast is
// overdue by definition.
func (s *Scheduler) intervalTick(ctx context.Context, now time.Time, set store.BroadcastSettings) {
	s.mu.Lock()
	if !s.lastInterval.IsZero() && now.Sub(s.lastInterval) < time.Hour {
		s.mu.Unlock()
		return
	}
	s.lastInterval = now
	s.mu.Unlock()

	lists, err := s.repo.ActiveLists(ctx)
	if err != nil {
		s.log.Error("ActiveLists failed", zap.Error(err))
		return
	}

	maxAge := time.Duration(set.IntervalHours * float64(time.Hour))
	for i := range lists {
		list := &lists[i]
		if list.LastBroadcastAt != nil && now.Sub(*list.LastBroadcastAt) < maxAge {
			continue
		}
		body, err := s.snapshot(ctx, list, now.In(s.loc))
		if err != nil {
			s.log.Error("render snapshot failed", zap.Error(err), zap.Int64("list", list.ID))
			continue
		}
		s.push(ctx, list, "📣 目前報名狀況\n\n"+body, "interval")
	}
}

// reminderTick pushes, once per day at its own time, the unfilled slots of
// every open schedule list. Lists with no vacancies are skipped; the whole
// trigger is inert when disabled.
func (s *Scheduler) reminderTick(ctx context.Context, local time.Time, set store.BroadcastSettings) {
	if !set.ReminderEnabled {
		return
	}
	date := local.Format("2006-01-02")

	s.mu.Lock()
	due := timeReached(local, set.ReminderHour, set.ReminderMinute) && s.lastReminder != date
	if due {
		s.lastReminder = date
	}
	s.mu.Unlock()
	if !due {
		return
	}

	lists, err := s.repo.ActiveLists(ctx)
	if err != nil {
		s.log.Error("ActiveLists failed", zap.Error(err))
		return
	}
	for i := range lists {
		list := &lists[i]
		if list.Kind != domain.KindSchedule {
			continue
		}
		slots, err := s.repo.Slots(ctx, list.ID)
		if err != nil {
			s.log.Error("Slots failed", zap.Error(err), zap.Int64("list", list.ID))
			continue
		}
		signups, err := s.repo.SlotSignups(ctx, list.ID)
		if err != nil {
			s.log.Error("SlotSignups failed", zap.Error(err), zap.Int64("list", list.ID))
			continue
		}
		body := format.Vacancies(slots, signups)
		if body == "" {
			continue
		}
		s.push(ctx, list, "⏰ 空缺提醒！以下項目還缺人：\n"+body+"\n\n輸入 +編號 姓名 即可報名", "reminder")
	}
}

// AfterJoin is the activity trigger: called synchronously after any
// successful join. When the entry count has grown past the configured
// threshold since the last broadcast, the list is pushed immediately.
func (s *Scheduler) AfterJoin(ctx context.Context, list *domain.List) {
	set, err := s.repo.BroadcastSettings(ctx)
	if err != nil {
		s.log.Error("BroadcastSettings failed", zap.Error(err))
		return
	}
	local := s.now().In(s.loc)
	if !inAllowedWindow(local, set) {
		return
	}

	// re-read: the caller's snapshot predates its own mutation
	fresh, err := s.repo.ActiveList(ctx, list.GroupID)
	if err != nil || fresh == nil || fresh.ID != list.ID {
		return
	}
	count, err := s.repo.EntryCount(ctx, fresh.ID)
	if err != nil {
		s.log.Error("EntryCount failed", zap.Error(err), zap.Int64("list", fresh.ID))
		return
	}
	if count-fresh.LastBroadcastCount < set.Threshold {
		return
	}

	body, err := s.snapshot(ctx, fresh, local)
	if err != nil {
		s.log.Error("render snapshot failed", zap.Error(err), zap.Int64("list", fresh.ID))
		return
	}
	s.push(ctx, fresh, "📣 報名踴躍，最新名單如下：\n\n"+body, "activity")
}

// snapshot renders the current state of a list for broadcasting.
func (s *Scheduler) snapshot(ctx context.Context, list *domain.List, local time.Time) (string, error) {
	opts := format.Options{ShowTime: true, Now: local}
	if list.Kind == domain.KindSchedule {
		slots, err := s.repo.Slots(ctx, list.ID)
		if err != nil {
			return "", err
		}
		signups, err := s.repo.SlotSignups(ctx, list.ID)
		if err != nil {
			return "", err
		}
		return format.ScheduleList(list, slots, signups, opts), nil
	}
	entries, err := s.repo.Entries(ctx, list.ID)
	if err != nil {
		return "", err
	}
	return format.SimpleList(list, entries, opts), nil
}

// push sends and, only on success, records the broadcast. A transport
// failure leaves the bookkeeping untouched so the next trigger retries.
func (s *Scheduler) push(ctx context.Context, list *domain.List, text, trigger string) {
	if err := s.pusher.Push(list.GroupID, text); err != nil {
		s.log.Error("push failed",
			zap.Error(err),
			zap.String("trigger", trigger),
			zap.String("group", list.GroupID),
		)
		return
	}
	if err := s.repo.RecordBroadcast(ctx, list.ID); err != nil {
		s.log.Error("RecordBroadcast failed", zap.Error(err), zap.Int64("list", list.ID))
		return
	}
	s.log.Info("broadcast sent",
		zap.String("trigger", trigger),
		zap.String("group", list.GroupID),
		zap.String("title", list.Title),
	)
}
