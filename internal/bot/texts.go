package bot

// Static reply texts and usage messages.
const (
	helpText = `📖 接龍助理使用說明
─────────────────
【工作認養排班模式】
直接將排班表貼到群組
→ Bot 自動解析並編號

+[編號] 你的名字  — 報名特定工作
+3 小明           — 報名第3項
+3               — 報名第3項（用LINE暱稱）
+1 +3 小明        — 一次報名多項
幫報 3 小華       — 幫別人報名第3項
空缺              — 查看尚缺人的項目
退出 [編號]       — 取消特定項目報名
列表              — 查看目前報名狀況
結束接龍          — 封存最終名單

開團者限定：
移除 3 小明       — 移除報名
更改 3 小明 小華  — 更改報名姓名

─────────────────
【簡易接龍模式】
接龍 [名稱]  — 開始新的接龍
+1 [姓名] [項目] [備註] — 依序加入
列表         — 查看名單
退出         — 移除自己
結束接龍     — 封存最終名單

─────────────────
【推播設定】
推播設定            — 查看目前設定
設定推播 7 30       — 每日推播時間
設定靜音 7 22       — 允許推播時段
設定推播門檻 6      — 活動推播門檻
設定推播間隔 6      — 定期推播間隔（小時）
設定提醒 12 0 / 開 / 關 — 空缺提醒

─────────────────
📌 名單會在設定的時間自動公布`

	welcomeText = `👋 大家好！我是接龍助理

📋 工作認養排班：
直接將排班表貼到群組，我會自動解析並編號，大家用 +編號 姓名 報名

📝 簡易接龍：
輸入「接龍 [名稱]」開始

輸入「說明」查看完整指令
📌 名單每天早上會自動公布`

	msgNoActive     = "目前沒有進行中的接龍。"
	msgNoActiveJoin = "目前沒有進行中的接龍。\n請貼上排班表，或輸入「接龍 [名稱]」開始簡易接龍。"
	msgNoDateData   = "找不到日期資料，無法建立排班表。請確認格式如：3/1（日）活動名稱"
	msgStorageError = "系統忙碌中，請稍後再試。"
	msgUnknownName  = "（未知）"

	msgSlotJoinUsage   = "格式：+[編號] 你的名字\n例：+3 小明\n（輸入「列表」查看可報名項目）"
	msgSimpleJoinUsage = "格式：+1 [名字] [項目] [備註]\n例：+1 小明 早班"
	msgMultiJoinSimple = "目前是簡易接龍，直接輸入「+1 姓名」依序加入即可。"
	msgProxySimple     = "幫報僅適用於排班模式。"
	msgVacancySimple   = "目前的接龍不是排班模式，沒有空缺資訊。"
	msgVacancyNone     = "🎉 所有項目都已有人認養！"
	msgCreatorOnly     = "只有開團者可以使用這個指令。"

	msgUsageBroadcast = "格式：設定推播 [時] [分]\n例：設定推播 7 30（時 0–23、分 0–59）"
	msgUsageQuiet     = "格式：設定靜音 [開始時] [結束時]\n例：設定靜音 7 22（此時段內才會推播）"
	msgUsageThreshold = "格式：設定推播門檻 [人數]\n例：設定推播門檻 6（至少 1）"
	msgUsageInterval  = "格式：設定推播間隔 [小時]\n例：設定推播間隔 6（至少 1）"
	msgUsageReminder  = "格式：設定提醒 [時] [分]，或「設定提醒 開」「設定提醒 關」"
)
