package bot

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/hcchou0425/line-jielong/internal/domain"
)

func nopLogger() *zap.Logger { return zap.NewNop() }

// matchedRule runs text through the rule predicates the way Handle does
// and returns the name of the first match, or "" for silence.
func matchedRule(r *Router, raw string) string {
	text := strings.TrimSpace(domain.Normalize(raw))
	for _, rl := range r.rules {
		if rl.match(text) {
			return rl.name
		}
	}
	return ""
}

func TestRulePrecedence(t *testing.T) {
	r := New(nil, nopLogger(), nil, nil)

	schedule := "三月排班\n3/1（日）值班\n3/8（日）值班\n"

	cases := []struct {
		text string
		rule string
	}{
		{schedule, "post-schedule"},
		{"接龍 郊遊", "open-simple"},
		{"開團 春酒", "open-simple"},
		{"/接龍 郊遊", "open-simple"},
		{"+3", "join"},
		{"+3 小明", "join"},
		{"＋３ 小明", "join"}, // full-width input normalizes first
		{"+1 +3 小明", "multi-slot-join"},
		{"+1+3 小明", "multi-slot-join"},
		{"3. 小明", "numbered-join"},
		{"3、小明", "numbered-join"},
		{"列表", "list"},
		{"名單", "list"},
		{"空缺", "vacancy"},
		{"誰沒報", "vacancy"},
		{"結束接龍", "close"},
		{"結團", "close"},
		{"退出", "leave"},
		{"退出 3", "leave"},
		{"取消 2", "leave"},
		{"幫報 3 小華", "proxy-join"},
		{"移除 3 小明", "admin-remove"},
		{"更改 3 小明 小華", "admin-rename"},
		{"推播設定", "settings"},
		{"設定推播 8 30", "settings"},
		{"設定靜音 8 21", "settings"},
		{"設定提醒 關", "settings"},
		{"說明", "help"},
		{"help", "help"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.rule, matchedRule(r, tc.text), "text %q", tc.text)
	}
}

func TestOrdinaryChatterIsSilence(t *testing.T) {
	r := New(nil, nopLogger(), nil, nil)

	for _, text := range []string{
		"大家早安",
		"接龍",        // bare keyword, no title
		"今天 3/1 見",  // one date, not a schedule
		"退出群組要怎麼用",  // not an exact leave command
		"我 +1",      // plus not at start
		"3:0 比數不錯",  // colon, not a numbered line
		"",
	} {
		assert.Equal(t, "", matchedRule(r, text), "text %q", text)
	}
}
