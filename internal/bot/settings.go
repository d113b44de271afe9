package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/hcchou0425/line-jielong/internal/store"
)

// handleSettings dispatches the settings vocabulary. Longer prefixes are
// checked first because 設定推播門檻 and 設定推播間隔 both start with 設定推播.
// Writes take effect on the scheduler's next tick; no timer objects are
// touched here.
func (r *Router) handleSettings(ctx context.Context, req *request) string {
	text := req.text
	switch {
	case text == "推播設定":
		return r.showSettings(ctx)
	case strings.HasPrefix(text, "設定推播門檻"):
		return r.setThreshold(ctx, argsOf(text, "設定推播門檻"))
	case strings.HasPrefix(text, "設定推播間隔"):
		return r.setInterval(ctx, argsOf(text, "設定推播間隔"))
	case strings.HasPrefix(text, "設定推播"):
		return r.setBroadcastTime(ctx, argsOf(text, "設定推播"))
	case strings.HasPrefix(text, "設定靜音"):
		return r.setQuietHours(ctx, argsOf(text, "設定靜音"))
	case strings.HasPrefix(text, "設定提醒"):
		return r.setReminder(ctx, argsOf(text, "設定提醒"))
	}
	return ""
}

func argsOf(text, prefix string) []string {
	return strings.Fields(strings.TrimPrefix(text, prefix))
}

func (r *Router) showSettings(ctx context.Context) string {
	s, err := r.repo.BroadcastSettings(ctx)
	if err != nil {
		r.log.Error("BroadcastSettings failed", zap.Error(err))
		return msgStorageError
	}
	enabled := "開"
	if !s.ReminderEnabled {
		enabled = "關"
	}
	return fmt.Sprintf(
		"🔧 目前推播設定\n─────────────────\n每日推播：%02d:%02d\n允許時段:%02d:00–%02d:00\n活動門檻：%d 人\n推播間隔：%s 小時\n空缺提醒：%02d:%02d（%s）",
		s.BroadcastHour, s.BroadcastMinute,
		s.AllowStart, s.AllowEnd,
		s.Threshold,
		strconv.FormatFloat(s.IntervalHours, 'f', -1, 64),
		s.ReminderHour, s.ReminderMinute, enabled,
	)
}

func (r *Router) setBroadcastTime(ctx context.Context, args []string) string {
	hour, minute, ok := parseClock(args)
	if !ok {
		return msgUsageBroadcast
	}
	if err := r.setAll(ctx,
		store.KeyBroadcastHour, strconv.Itoa(hour),
		store.KeyBroadcastMinute, strconv.Itoa(minute),
	); err != nil {
		return msgStorageError
	}
	return fmt.Sprintf("✅ 每日推播時間已設為 %02d:%02d。", hour, minute)
}

func (r *Router) setQuietHours(ctx context.Context, args []string) string {
	if len(args) != 2 {
		return msgUsageQuiet
	}
	start, ok1 := parseIntRange(args[0], 0, 23)
	end, ok2 := parseIntRange(args[1], 0, 23)
	if !ok1 || !ok2 {
		return msgUsageQuiet
	}
	if err := r.setAll(ctx,
		store.KeyAllowStart, strconv.Itoa(start),
		store.KeyAllowEnd, strconv.Itoa(end),
	); err != nil {
		return msgStorageError
	}
	return fmt.Sprintf("✅ 推播時段已設為 %02d:00–%02d:00。", start, end)
}

func (r *Router) setThreshold(ctx context.Context, args []string) string {
	if len(args) != 1 {
		return msgUsageThreshold
	}
	n, ok := parseIntRange(args[0], 1, 1<<30)
	if !ok {
		return msgUsageThreshold
	}
	if err := r.setAll(ctx, store.KeyActivityThreshold, strconv.Itoa(n)); err != nil {
		return msgStorageError
	}
	return fmt.Sprintf("✅ 推播門檻已設為 %d 人。", n)
}

func (r *Router) setInterval(ctx context.Context, args []string) string {
	if len(args) != 1 {
		return msgUsageInterval
	}
	hours, err := strconv.ParseFloat(args[0], 64)
	if err != nil || hours < 1 {
		return msgUsageInterval
	}
	if err := r.setAll(ctx, store.KeyIntervalHours, args[0]); err != nil {
		return msgStorageError
	}
	return fmt.Sprintf("✅ 推播間隔已設為 %s 小時。", args[0])
}

func (r *Router) setReminder(ctx context.Context, args []string) string {
	switch {
	case len(args) == 1 && (args[0] == "開" || args[0] == "關"):
		value := "1"
		state := "已開啟"
		if args[0] == "關" {
			value = "0"
			state = "已關閉"
		}
		if err := r.setAll(ctx, store.KeyReminderEnabled, value); err != nil {
			return msgStorageError
		}
		return "✅ 空缺提醒" + state + "。"
	default:
		hour, minute, ok := parseClock(args)
		if !ok {
			return msgUsageReminder
		}
		if err := r.setAll(ctx,
			store.KeyReminderHour, strconv.Itoa(hour),
			store.KeyReminderMinute, strconv.Itoa(minute),
		); err != nil {
			return msgStorageError
		}
		return fmt.Sprintf("✅ 空缺提醒時間已設為 %02d:%02d。", hour, minute)
	}
}

// setAll writes key/value pairs, logging and failing on the first error.
func (r *Router) setAll(ctx context.Context, kv ...string) error {
	for i := 0; i+1 < len(kv); i += 2 {
		if err := r.repo.SetSetting(ctx, kv[i], kv[i+1]); err != nil {
			r.log.Error("SetSetting failed", zap.Error(err), zap.String("key", kv[i]))
			return err
		}
	}
	return nil
}

// parseClock reads "時" or "時 分" with hour 0–23 and minute 0–59.
func parseClock(args []string) (hour, minute int, ok bool) {
	if len(args) == 0 || len(args) > 2 {
		return 0, 0, false
	}
	hour, ok = parseIntRange(args[0], 0, 23)
	if !ok {
		return 0, 0, false
	}
	if len(args) == 2 {
		minute, ok = parseIntRange(args[1], 0, 59)
		if !ok {
			return 0, 0, false
		}
	}
	return hour, minute, true
}

func parseIntRange(s string, lo, hi int) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, false
	}
	return n, true
}
