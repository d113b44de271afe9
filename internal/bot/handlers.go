package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/hcchou0425/line-jielong/internal/domain"
	"github.com/hcchou0425/line-jielong/internal/format"
	"github.com/hcchou0425/line-jielong/internal/store"
)

// activeList loads the group's open list. The second return value is the
// reply to send when there is none (or the store failed).
func (r *Router) activeList(ctx context.Context, req *request, noActiveMsg string) (*domain.List, string) {
	active, err := r.repo.ActiveList(ctx, req.groupID)
	if err != nil {
		r.log.Error("ActiveList failed", zap.Error(err), zap.String("group", req.groupID))
		return nil, msgStorageError
	}
	if active == nil {
		return nil, noActiveMsg
	}
	return active, ""
}

// --- Rule 1: pasted schedule ---

func (r *Router) handlePostSchedule(ctx context.Context, req *request) string {
	slots, prefills := domain.ParseSchedule(req.text)
	if len(slots) == 0 {
		return msgNoDateData
	}
	title := domain.ExtractTitle(req.text)

	listID, err := r.repo.OpenList(ctx, req.groupID, title, req.userID, req.displayName(), domain.KindSchedule)
	if err != nil {
		r.log.Error("OpenList failed", zap.Error(err))
		return msgStorageError
	}
	if err := r.repo.CreateSlots(ctx, listID, slots); err != nil {
		r.log.Error("CreateSlots failed", zap.Error(err), zap.Int64("list", listID))
		return msgStorageError
	}
	if err := r.repo.CreatePrefills(ctx, listID, prefills); err != nil {
		r.log.Error("CreatePrefills failed", zap.Error(err), zap.Int64("list", listID))
		return msgStorageError
	}

	prefilled := make(map[int][]string)
	for _, p := range prefills {
		prefilled[p.SlotNum] = append(prefilled[p.SlotNum], p.Name)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "✅ 排班表已建立！\n📋 %s\n共 %d 個工作項目\n─────────────────", title, len(slots))
	for _, s := range slots {
		fmt.Fprintf(&b, "\n%d. %s", s.Num, s.Label())
		if s.Required > 1 {
			fmt.Fprintf(&b, " %d人", s.Required)
		}
		if names := prefilled[s.Num]; len(names) > 0 {
			b.WriteString(" → " + strings.Join(names, "、"))
		}
	}
	b.WriteString("\n\n報名方式：\n+[編號] 你的名字\n例：+3 小明\n（或只輸入 +3，用LINE暱稱報名）")
	return b.String()
}

// --- Rule 2: start a simple roll-call ---

func (r *Router) handleOpenSimple(ctx context.Context, req *request) string {
	title := "工作接龍"
	if m := openTitleRE.FindStringSubmatch(req.text); m != nil {
		if t := strings.TrimSpace(m[1]); t != "" {
			title = t
		}
	}

	if _, err := r.repo.OpenList(ctx, req.groupID, title, req.userID, req.displayName(), domain.KindSimple); err != nil {
		r.log.Error("OpenList failed", zap.Error(err))
		return msgStorageError
	}

	return fmt.Sprintf(
		"✅ 接龍已開始！\n📋 %s\n\n群組成員直接輸入：\n+1 姓名 工作項目 備註\n（工作項目和備註可省略）\n\n例：+1 小明 早班 8:00-12:00\n\n📌 名單每天早上自動公布\n隨時輸入「列表」也可查看",
		title,
	)
}

// --- Rules 3–5: joining ---

func (r *Router) handleMultiJoin(ctx context.Context, req *request) string {
	active, msg := r.activeList(ctx, req, msgNoActiveJoin)
	if active == nil {
		return msg
	}
	if active.Kind != domain.KindSchedule {
		return msgMultiJoinSimple
	}

	var nums []int
	for _, m := range plusNumRE.FindAllStringSubmatch(req.text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		nums = append(nums, n)
	}
	name := strings.TrimSpace(plusNumRE.ReplaceAllString(req.text, ""))
	if name == "" {
		name = req.displayName()
	}
	if name == "" {
		name = msgUnknownName
	}

	lines := make([]string, 0, len(nums))
	joined := false
	for _, num := range nums {
		line, ok := r.joinOneSlot(ctx, active, num, name, domain.Self(req.userID))
		lines = append(lines, line)
		joined = joined || ok
	}
	if joined {
		r.afterJoin(ctx, active)
	}
	return strings.Join(lines, "\n")
}

func (r *Router) handleJoin(ctx context.Context, req *request) string {
	active, msg := r.activeList(ctx, req, msgNoActiveJoin)
	if active == nil {
		return msg
	}
	if active.Kind == domain.KindSchedule {
		return r.joinSlot(ctx, req, active)
	}
	return r.joinSimple(ctx, req, active)
}

// joinSlot handles "+N", "+N 名字", and "+N 名字1 名字2 …" on one slot.
func (r *Router) joinSlot(ctx context.Context, req *request, active *domain.List) string {
	m := slotJoinRE.FindStringSubmatch(req.text)
	if m == nil {
		return msgSlotJoinUsage
	}
	num, _ := strconv.Atoi(m[1])
	rest := strings.TrimSpace(m[2])

	tokens := strings.Fields(rest)
	if len(tokens) >= 2 {
		// multi-name path: one result line per name, all on this slot
		lines := make([]string, 0, len(tokens))
		joined := false
		for _, name := range tokens {
			line, ok := r.joinOneSlot(ctx, active, num, name, domain.Self(req.userID))
			lines = append(lines, line)
			joined = joined || ok
		}
		if joined {
			r.afterJoin(ctx, active)
		}
		return strings.Join(lines, "\n")
	}

	name := rest
	if name == "" {
		name = req.displayName()
	}
	if name == "" {
		name = msgUnknownName
	}

	slot, err := r.repo.SlotByNum(ctx, active.ID, num)
	if err != nil {
		r.log.Error("SlotByNum failed", zap.Error(err))
		return msgStorageError
	}
	if slot == nil {
		return fmt.Sprintf("找不到第 %d 號工作項目。\n輸入「列表」查看可報名的項目。", num)
	}

	outcome, err := r.repo.JoinSlot(ctx, active.ID, num, name, domain.Self(req.userID))
	if err != nil {
		r.log.Error("JoinSlot failed", zap.Error(err))
		return msgStorageError
	}
	switch outcome {
	case store.JoinDuplicate:
		return fmt.Sprintf("⚠️ %s 已報名第 %d 號工作。", name, num)
	case store.JoinFull:
		return fmt.Sprintf("❌ 第 %d 號已額滿（%d 人）！", num, slot.Required)
	}
	r.afterJoin(ctx, active)
	return fmt.Sprintf("✅ 報名成功！\n%d. %s → %s\n（輸入「列表」查看完整名單）", num, slot.Label(), name)
}

// joinOneSlot resolves one (slot, name) registration and renders its
// result line. Used by the multi-slot and multi-name paths, where one
// failing slot must not abort the rest.
func (r *Router) joinOneSlot(ctx context.Context, active *domain.List, num int, name string, sub domain.Submitter) (string, bool) {
	slot, err := r.repo.SlotByNum(ctx, active.ID, num)
	if err != nil {
		r.log.Error("SlotByNum failed", zap.Error(err))
		return msgStorageError, false
	}
	if slot == nil {
		return fmt.Sprintf("❌ 找不到第 %d 號工作項目。", num), false
	}

	outcome, err := r.repo.JoinSlot(ctx, active.ID, num, name, sub)
	if err != nil {
		r.log.Error("JoinSlot failed", zap.Error(err))
		return msgStorageError, false
	}
	switch outcome {
	case store.JoinDuplicate:
		return fmt.Sprintf("⚠️ %s 已報名第 %d 號。", name, num), false
	case store.JoinFull:
		return fmt.Sprintf("❌ 第 %d 號已額滿（%d 人）！", num, slot.Required), false
	case store.JoinSlotMissing:
		return fmt.Sprintf("❌ 找不到第 %d 號工作項目。", num), false
	}
	return fmt.Sprintf("✅ %d. %s → %s", num, slot.Label(), name), true
}

// joinSimple handles the sequential roll-call: "+1 名字 項目 備註".
func (r *Router) joinSimple(ctx context.Context, req *request, active *domain.List) string {
	rest := strings.TrimSpace(strings.TrimLeft(req.text[1:], "0123456789"))
	name, item, quantity := splitThree(rest)
	if name == "" {
		name = req.displayName()
	}
	if name == "" {
		return msgSimpleJoinUsage
	}

	seq, updated, err := r.repo.JoinSimple(ctx, active.ID, req.userID, name, item, quantity)
	if err != nil {
		r.log.Error("JoinSimple failed", zap.Error(err))
		return msgStorageError
	}
	if updated {
		return fmt.Sprintf("✏️ 已更新！（第 %d 號）\n（輸入「列表」隨時查看名單）", seq)
	}
	r.afterJoin(ctx, active)
	return fmt.Sprintf("✅ 已加入！你是第 %d 號\n（輸入「列表」隨時查看名單）", seq)
}

// splitThree splits into name, item, and the verbatim remainder, the way
// a three-field whitespace split keeps trailing text intact.
func splitThree(s string) (name, item, quantity string) {
	name, s = cutField(s)
	item, s = cutField(s)
	return name, item, s
}

func cutField(s string) (field, rest string) {
	s = strings.TrimSpace(s)
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i:])
}

// handleNumberedLine rewrites "3. 小明" (the list-display form people copy
// back) into "+3 小明" and re-dispatches it through the join rule.
func (r *Router) handleNumberedLine(ctx context.Context, req *request) string {
	m := numberedRE.FindStringSubmatch(req.text)
	if m == nil {
		return ""
	}
	req.text = "+" + m[1] + " " + strings.TrimSpace(m[2])
	return r.handleJoin(ctx, req)
}

// --- Rules 6–8: list / vacancy / close ---

func (r *Router) handleList(ctx context.Context, req *request) string {
	active, msg := r.activeList(ctx, req, msgNoActive)
	if active == nil {
		return msg
	}
	return r.renderSnapshot(ctx, active, format.Options{})
}

func (r *Router) renderSnapshot(ctx context.Context, list *domain.List, opts format.Options) string {
	if list.Kind == domain.KindSchedule {
		slots, err := r.repo.Slots(ctx, list.ID)
		if err != nil {
			r.log.Error("Slots failed", zap.Error(err))
			return msgStorageError
		}
		signups, err := r.repo.SlotSignups(ctx, list.ID)
		if err != nil {
			r.log.Error("SlotSignups failed", zap.Error(err))
			return msgStorageError
		}
		return format.ScheduleList(list, slots, signups, opts)
	}
	entries, err := r.repo.Entries(ctx, list.ID)
	if err != nil {
		r.log.Error("Entries failed", zap.Error(err))
		return msgStorageError
	}
	return format.SimpleList(list, entries, opts)
}

func (r *Router) handleVacancy(ctx context.Context, req *request) string {
	active, msg := r.activeList(ctx, req, msgNoActive)
	if active == nil {
		return msg
	}
	if active.Kind != domain.KindSchedule {
		return msgVacancySimple
	}
	slots, err := r.repo.Slots(ctx, active.ID)
	if err != nil {
		r.log.Error("Slots failed", zap.Error(err))
		return msgStorageError
	}
	signups, err := r.repo.SlotSignups(ctx, active.ID)
	if err != nil {
		r.log.Error("SlotSignups failed", zap.Error(err))
		return msgStorageError
	}
	body := format.Vacancies(slots, signups)
	if body == "" {
		return msgVacancyNone
	}
	return "📢 尚有空缺的項目：\n" + body
}

func (r *Router) handleClose(ctx context.Context, req *request) string {
	active, msg := r.activeList(ctx, req, msgNoActive)
	if active == nil {
		return msg
	}
	if err := r.repo.CloseList(ctx, active.ID); err != nil {
		r.log.Error("CloseList failed", zap.Error(err))
		return msgStorageError
	}

	opts := format.Options{ShowTime: true, Now: r.now().In(r.loc)}
	if active.Kind == domain.KindSchedule {
		slots, err := r.repo.Slots(ctx, active.ID)
		if err != nil {
			r.log.Error("Slots failed", zap.Error(err))
			return msgStorageError
		}
		signups, err := r.repo.SlotSignups(ctx, active.ID)
		if err != nil {
			r.log.Error("SlotSignups failed", zap.Error(err))
			return msgStorageError
		}
		body := format.ScheduleList(active, slots, signups, opts)
		return fmt.Sprintf("🔒 工作認養已結束！\n\n%s\n\n共 %d 人報名", body, format.TotalSignups(signups))
	}
	entries, err := r.repo.Entries(ctx, active.ID)
	if err != nil {
		r.log.Error("Entries failed", zap.Error(err))
		return msgStorageError
	}
	body := format.SimpleList(active, entries, opts)
	return fmt.Sprintf("🔒 接龍已結束，以下為最終名單：\n\n%s\n\n共 %d 人報名", body, len(entries))
}

// --- Rule 9: leave ---

func (r *Router) handleLeave(ctx context.Context, req *request) string {
	active, msg := r.activeList(ctx, req, msgNoActive)
	if active == nil {
		return msg
	}

	m := leaveRE.FindStringSubmatch(req.text)
	if active.Kind == domain.KindSchedule {
		if m != nil && m[1] != "" {
			num, _ := strconv.Atoi(m[1])
			removed, err := r.repo.LeaveSlot(ctx, active.ID, req.userID, num)
			if err != nil {
				r.log.Error("LeaveSlot failed", zap.Error(err))
				return msgStorageError
			}
			if !removed {
				return fmt.Sprintf("你沒有報名第 %d 號工作。", num)
			}
			return fmt.Sprintf("✅ 已取消第 %d 號工作的報名。", num)
		}

		nums, err := r.repo.LeaveAllSlots(ctx, active.ID, req.userID)
		if err != nil {
			r.log.Error("LeaveAllSlots failed", zap.Error(err))
			return msgStorageError
		}
		if len(nums) == 0 {
			return "你目前沒有報名任何工作項目。"
		}
		parts := make([]string, len(nums))
		for i, n := range nums {
			parts[i] = strconv.Itoa(n)
		}
		return fmt.Sprintf("✅ 已取消你在第 %s 號的報名。", strings.Join(parts, ", "))
	}

	seq, found, err := r.repo.LeaveSimple(ctx, active.ID, req.userID)
	if err != nil {
		r.log.Error("LeaveSimple failed", zap.Error(err))
		return msgStorageError
	}
	if !found {
		return "你不在目前的接龍名單中。"
	}
	return fmt.Sprintf("✅ 已將你（第 %d 號）從名單中移除。", seq)
}

// --- Rules 10–12: proxy join and creator-only admin ---

func (r *Router) handleProxy(ctx context.Context, req *request) string {
	active, msg := r.activeList(ctx, req, msgNoActiveJoin)
	if active == nil {
		return msg
	}
	if active.Kind != domain.KindSchedule {
		return msgProxySimple
	}

	m := proxyRE.FindStringSubmatch(req.text)
	num, _ := strconv.Atoi(m[1])
	name := strings.TrimSpace(m[2])

	line, joined := r.joinOneSlot(ctx, active, num, name, domain.Proxy(req.userID))
	if !joined {
		return line
	}
	r.afterJoin(ctx, active)
	return "✅ 已幫 " + name + " 報名！\n" + strings.TrimPrefix(line, "✅ ")
}

func (r *Router) handleRemove(ctx context.Context, req *request) string {
	active, msg := r.activeList(ctx, req, msgNoActive)
	if active == nil {
		return msg
	}
	if active.CreatorID != req.userID {
		return msgCreatorOnly
	}

	m := removeRE.FindStringSubmatch(req.text)
	num, _ := strconv.Atoi(m[1])
	name := strings.TrimSpace(m[2])

	removed, err := r.repo.RemoveBySlotAndName(ctx, active.ID, num, name)
	if err != nil {
		r.log.Error("RemoveBySlotAndName failed", zap.Error(err))
		return msgStorageError
	}
	if !removed {
		return fmt.Sprintf("第 %d 號沒有 %s 的報名。", num, name)
	}
	return fmt.Sprintf("✅ 已移除第 %d 號的 %s。", num, name)
}

func (r *Router) handleRename(ctx context.Context, req *request) string {
	active, msg := r.activeList(ctx, req, msgNoActive)
	if active == nil {
		return msg
	}
	if active.CreatorID != req.userID {
		return msgCreatorOnly
	}

	m := renameRE.FindStringSubmatch(req.text)
	num, _ := strconv.Atoi(m[1])
	oldName := m[2]
	newName := strings.TrimSpace(m[3])

	renamed, err := r.repo.RenameBySlotAndName(ctx, active.ID, num, oldName, newName)
	if err != nil {
		r.log.Error("RenameBySlotAndName failed", zap.Error(err))
		return msgStorageError
	}
	if !renamed {
		return fmt.Sprintf("第 %d 號沒有 %s 的報名。", num, oldName)
	}
	return fmt.Sprintf("✅ 已將第 %d 號的 %s 更改為 %s。", num, oldName, newName)
}

// --- Rule 14: help ---

func (r *Router) handleHelp(context.Context, *request) string {
	return helpText
}
