package bot

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hcchou0425/line-jielong/internal/store"
)

const scheduleText = `三月值班表
3/1（日）值班
3/8（日）搬桌椅 2人
`

func newHandlerRouter(t *testing.T) *Router {
	t.Helper()
	repo, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "bot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return New(repo, nopLogger(), nil, time.UTC)
}

// send delivers one message as the given member; the profile name is
// derived from the user id so fallback-to-nickname paths are observable.
func send(r *Router, user, text string) string {
	return r.Handle(context.Background(), text, "g1", user, func() string { return "暱稱" + user })
}

func TestSimpleRollCallFlow(t *testing.T) {
	r := newHandlerRouter(t)

	reply := send(r, "u-host", "接龍 郊遊")
	assert.Contains(t, reply, "✅ 接龍已開始！")
	assert.Contains(t, reply, "郊遊")

	assert.Contains(t, send(r, "u1", "+1 小明 帶球"), "你是第 1 號")
	assert.Contains(t, send(r, "u2", "+1 小華 帶水"), "你是第 2 號")

	// Same member again updates in place, keeping the number.
	assert.Contains(t, send(r, "u1", "+1 小明 帶傘"), "✏️ 已更新！（第 1 號）")

	list := send(r, "u1", "列表")
	assert.Contains(t, list, "📋 郊遊")
	assert.Contains(t, list, "1. 小明 帶傘")
	assert.Contains(t, list, "2. 小華 帶水")

	assert.Contains(t, send(r, "u1", "退出"), "已將你（第 1 號）從名單中移除")
	assert.Contains(t, send(r, "u3", "+1 小美"), "你是第 3 號")
}

func TestSchedulePostAndBackupJoins(t *testing.T) {
	r := newHandlerRouter(t)

	reply := send(r, "u-host", scheduleText)
	assert.Contains(t, reply, "✅ 排班表已建立！")
	assert.Contains(t, reply, "三月值班表")
	assert.Contains(t, reply, "共 2 個工作項目")
	assert.Contains(t, reply, "2. 3/8（日）搬桌椅 2人")

	// A one-person slot still takes extra names as backups.
	assert.Contains(t, send(r, "u1", "+1 小華"), "✅ 報名成功！")
	assert.Contains(t, send(r, "u2", "+1 小美"), "✅ 報名成功！")

	list := send(r, "u1", "列表")
	assert.Contains(t, list, "小華、小美")
}

func TestScheduleCapacityAndDuplicate(t *testing.T) {
	r := newHandlerRouter(t)
	send(r, "u-host", scheduleText)

	assert.Contains(t, send(r, "u1", "+2 甲"), "✅ 報名成功！")
	assert.Contains(t, send(r, "u2", "+2 乙"), "✅ 報名成功！")
	assert.Equal(t, "❌ 第 2 號已額滿（2 人）！", send(r, "u3", "+2 丙"))
	assert.Equal(t, "⚠️ 甲 已報名第 2 號工作。", send(r, "u4", "+2 甲"))
}

func TestMultiSlotJoin(t *testing.T) {
	r := newHandlerRouter(t)
	send(r, "u-host", scheduleText)

	reply := send(r, "u1", "+1 +9 小明")
	assert.Contains(t, reply, "✅ 1. 3/1（日）值班 → 小明")
	assert.Contains(t, reply, "❌ 找不到第 9 號工作項目。")
}

func TestNumberedLineJoins(t *testing.T) {
	r := newHandlerRouter(t)
	send(r, "u-host", scheduleText)

	// Copy-pasted list line works like "+1 小美".
	assert.Contains(t, send(r, "u1", "1. 小美"), "✅ 報名成功！")
}

func TestBareJoinUsesNickname(t *testing.T) {
	r := newHandlerRouter(t)
	send(r, "u-host", scheduleText)

	assert.Contains(t, send(r, "u1", "+1"), "→ 暱稱u1")
}

func TestLeaveSchedule(t *testing.T) {
	r := newHandlerRouter(t)
	send(r, "u-host", scheduleText)

	assert.Equal(t, "你沒有報名第 1 號工作。", send(r, "u1", "退出 1"))
	assert.Equal(t, "你目前沒有報名任何工作項目。", send(r, "u1", "退出"))

	send(r, "u1", "+1 +2 小明")
	assert.Equal(t, "✅ 已取消你在第 1, 2 號的報名。", send(r, "u1", "退出"))
}

func TestProxyJoinStaysAfterOperatorLeaves(t *testing.T) {
	r := newHandlerRouter(t)
	send(r, "u-host", scheduleText)

	reply := send(r, "u1", "幫報 1 阿姨")
	assert.Contains(t, reply, "✅ 已幫 阿姨 報名！")

	// u1 registered nobody for themself, so there is nothing to cancel.
	assert.Equal(t, "你目前沒有報名任何工作項目。", send(r, "u1", "退出"))
	assert.Contains(t, send(r, "u2", "列表"), "阿姨")
}

func TestAdminCommandsAreCreatorOnly(t *testing.T) {
	r := newHandlerRouter(t)
	send(r, "u-host", scheduleText)
	send(r, "u1", "+1 小華")

	assert.Equal(t, msgCreatorOnly, send(r, "u1", "移除 1 小華"))
	assert.Equal(t, msgCreatorOnly, send(r, "u1", "更改 1 小華 小美"))

	assert.Equal(t, "✅ 已將第 1 號的 小華 更改為 小美。", send(r, "u-host", "更改 1 小華 小美"))
	assert.Equal(t, "第 1 號沒有 小華 的報名。", send(r, "u-host", "更改 1 小華 小明"))
	assert.Equal(t, "✅ 已移除第 1 號的 小美。", send(r, "u-host", "移除 1 小美"))
	assert.Equal(t, "第 1 號沒有 小美 的報名。", send(r, "u-host", "移除 1 小美"))
}

func TestVacancyReport(t *testing.T) {
	r := newHandlerRouter(t)
	send(r, "u-host", scheduleText)

	reply := send(r, "u1", "空缺")
	assert.Contains(t, reply, "📢 尚有空缺的項目：")
	assert.Contains(t, reply, "1. 3/1（日）值班（0/1）")
	assert.Contains(t, reply, "2. 3/8（日）搬桌椅（0/2）")

	send(r, "u1", "+1 小明")
	send(r, "u2", "+2 甲")
	send(r, "u3", "+2 乙")
	assert.Equal(t, msgVacancyNone, send(r, "u4", "空缺"))
}

func TestCloseRendersFinalList(t *testing.T) {
	r := newHandlerRouter(t)

	send(r, "u-host", "接龍 春酒")
	send(r, "u1", "+1 小明")
	send(r, "u2", "+1 小華")

	reply := send(r, "u1", "結束接龍")
	assert.Contains(t, reply, "🔒 接龍已結束，以下為最終名單：")
	assert.Contains(t, reply, "共 2 人報名")

	// Closed means gone: nothing left to show or join.
	assert.Equal(t, msgNoActive, send(r, "u1", "列表"))
	assert.Equal(t, msgNoActiveJoin, send(r, "u3", "+1 小美"))
}

func TestCloseScheduleCountsAllSignups(t *testing.T) {
	r := newHandlerRouter(t)
	send(r, "u-host", scheduleText)
	send(r, "u1", "+1 小明")
	send(r, "u2", "+2 甲")

	reply := send(r, "u1", "結束接龍")
	assert.Contains(t, reply, "🔒 工作認養已結束！")
	assert.Contains(t, reply, "1. 3/1（日）值班\n   👤 小明")
	assert.Contains(t, reply, "共 2 人報名")
}

func TestNoActiveListReplies(t *testing.T) {
	r := newHandlerRouter(t)

	assert.Equal(t, msgNoActiveJoin, send(r, "u1", "+1 小明"))
	assert.Equal(t, msgNoActive, send(r, "u1", "列表"))
	assert.Equal(t, msgNoActive, send(r, "u1", "退出"))
}

func TestModeMismatchReplies(t *testing.T) {
	r := newHandlerRouter(t)
	send(r, "u-host", "接龍 郊遊")

	assert.Equal(t, msgMultiJoinSimple, send(r, "u1", "+1 +2 小明"))
	assert.Equal(t, msgProxySimple, send(r, "u1", "幫報 1 小華"))
	assert.Equal(t, msgVacancySimple, send(r, "u1", "空缺"))
}

func TestSettingsCommands(t *testing.T) {
	r := newHandlerRouter(t)

	show := send(r, "u1", "推播設定")
	assert.Contains(t, show, "每日推播：07:00")
	assert.Contains(t, show, "活動門檻：6 人")

	assert.Equal(t, "✅ 每日推播時間已設為 08:30。", send(r, "u1", "設定推播 8 30"))
	assert.Equal(t, "✅ 推播時段已設為 08:00–21:00。", send(r, "u1", "設定靜音 8 21"))
	assert.Equal(t, "✅ 推播門檻已設為 3 人。", send(r, "u1", "設定推播門檻 3"))
	assert.Equal(t, "✅ 推播間隔已設為 2 小時。", send(r, "u1", "設定推播間隔 2"))
	assert.Equal(t, "✅ 空缺提醒已關閉。", send(r, "u1", "設定提醒 關"))
	assert.Equal(t, "✅ 空缺提醒時間已設為 09:00。", send(r, "u1", "設定提醒 9"))

	assert.Contains(t, send(r, "u1", "推播設定"), "每日推播：08:30")

	assert.Equal(t, msgUsageBroadcast, send(r, "u1", "設定推播 25"))
	assert.Equal(t, msgUsageQuiet, send(r, "u1", "設定靜音 8"))
	assert.Equal(t, msgUsageThreshold, send(r, "u1", "設定推播門檻 0"))
	assert.Equal(t, msgUsageInterval, send(r, "u1", "設定推播間隔 0.5"))
	assert.Equal(t, msgUsageReminder, send(r, "u1", "設定提醒 晚一點"))
}
