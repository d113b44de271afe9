// Package format renders list snapshots into the exact text sent to chat.
package format

import (
	"fmt"
	"strings"
	"time"

	"github.com/hcchou0425/line-jielong/internal/domain"
)

const divider = "────────────────"

// Options controls the optional update-time header.
type Options struct {
	ShowTime bool
	Now      time.Time // local time, used only when ShowTime is set
}

// SimpleList renders a roll-call snapshot.
func SimpleList(list *domain.List, entries []domain.Entry, opts Options) string {
	creator := list.CreatorName
	if creator == "" {
		creator = "開團者"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 %s\n（開團：%s）\n", list.Title, creator)
	if opts.ShowTime {
		fmt.Fprintf(&b, "🕖 更新時間：%s\n", opts.Now.Format("2006/01/02 15:04"))
	}
	b.WriteString(divider)

	if len(entries) == 0 {
		b.WriteString("\n（尚無人加入）")
		return b.String()
	}
	for _, e := range entries {
		name := e.Name
		if name == "" {
			name = "匿名"
		}
		fmt.Fprintf(&b, "\n%d. %s", e.Seq, name)
		if e.Item != "" {
			b.WriteString(" " + e.Item)
		}
		if e.Quantity != "" {
			b.WriteString(" " + e.Quantity)
		}
	}
	return b.String()
}

// ScheduleList renders a slot-based snapshot with per-slot signups.
func ScheduleList(list *domain.List, slots []domain.Slot, signups map[int][]string, opts Options) string {
	creator := list.CreatorName
	if creator == "" {
		creator = "負責人"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 %s\n（負責人：%s）\n", list.Title, creator)
	if opts.ShowTime {
		fmt.Fprintf(&b, "🕖 更新：%s\n", opts.Now.Format("2006/01/02 15:04"))
	}
	b.WriteString(divider)

	for _, s := range slots {
		fmt.Fprintf(&b, "\n%d. %s", s.Num, s.Label())
		if s.Required > 1 {
			fmt.Fprintf(&b, "（共%d人）", s.Required)
		}
		names := signups[s.Num]
		if len(names) == 0 {
			b.WriteString("\n   👤 （尚無人報名）")
		} else {
			b.WriteString("\n   👤 " + strings.Join(names, "、"))
		}
	}
	return b.String()
}

// Vacancies renders the unfilled slots of a schedule list. An empty
// result means every slot has reached its headcount.
func Vacancies(slots []domain.Slot, signups map[int][]string) string {
	var b strings.Builder
	for _, s := range slots {
		filled := len(signups[s.Num])
		if filled >= s.Required {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s（%d/%d）", s.Num, s.Label(), filled, s.Required)
	}
	return b.String()
}

// TotalSignups counts names across all slots, for the close footer.
func TotalSignups(signups map[int][]string) int {
	total := 0
	for _, names := range signups {
		total += len(names)
	}
	return total
}
