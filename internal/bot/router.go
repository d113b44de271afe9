package bot

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hcchou0425/line-jielong/internal/domain"
	"github.com/hcchou0425/line-jielong/internal/store"
)

// BroadcastHook is invoked synchronously after a successful join so the
// activity trigger can inspect the new entry count. Implemented by the
// scheduler; nil disables the hook.
type BroadcastHook interface {
	AfterJoin(ctx context.Context, list *domain.List)
}

// Command patterns. Several are prefixes of one another, so match order
// is part of the contract; see the rule table in New.
var (
	openRE      = regexp.MustCompile(`^/?(?:接龍|開團)\s+\S`)
	openTitleRE = regexp.MustCompile(`^/?(?:接龍|開團)\s*(.*)$`)
	plusNumRE   = regexp.MustCompile(`\+(\d+)`)
	joinRE      = regexp.MustCompile(`^\+\d+(\s|$)`)
	slotJoinRE  = regexp.MustCompile(`^\+(\d+)\s*(.*)$`)
	numberedRE  = regexp.MustCompile(`^(\d+)[.．、]\s*(\S.*)$`)
	leaveRE     = regexp.MustCompile(`^(?:退出|取消)(?:\s+(\d+))?$`)
	proxyRE     = regexp.MustCompile(`^幫報\s+(\d+)\s+(\S.*)$`)
	removeRE    = regexp.MustCompile(`^移除\s+(\d+)\s+(\S.*)$`)
	renameRE    = regexp.MustCompile(`^更改\s+(\d+)\s+(\S+)\s+(\S.*)$`)
)

var (
	listWords    = wordSet("列表", "/列表", "查看", "名單")
	vacancyWords = wordSet("空缺", "缺人", "未認領", "誰沒報")
	closeWords   = wordSet("結束接龍", "結團", "/結束接龍", "/結團", "關閉接龍")
	helpWords    = wordSet("說明", "/說明", "help", "/help", "幫助")
)

func wordSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

func matchExact(set map[string]struct{}) func(string) bool {
	return func(text string) bool {
		_, ok := set[text]
		return ok
	}
}

// rule is one (predicate, handler) pair of the dispatch chain.
type rule struct {
	name   string
	match  func(text string) bool
	handle func(ctx context.Context, req *request) string
}

// request is one inbound message. The display name lookup is lazy and
// cached because it may hit the chat platform's profile API.
type request struct {
	text    string
	groupID string
	userID  string

	nameFn   func() string
	name     string
	resolved bool
}

func (req *request) displayName() string {
	if !req.resolved {
		req.resolved = true
		if req.nameFn != nil {
			req.name = req.nameFn()
		}
	}
	return req.name
}

// Router classifies normalized text into a command via an ordered rule
// list — first match wins — and dispatches to the matching handler.
type Router struct {
	repo  store.Repo
	log   *zap.Logger
	hook  BroadcastHook
	loc   *time.Location
	now   func() time.Time
	rules []rule
}

// New builds the router. The rule order below is load-bearing: a bare
// "+3" must hit the join rule and not the multi-slot rule, "退出 3" must
// not be read as plain leave, and a pasted schedule outranks everything.
func New(repo store.Repo, log *zap.Logger, hook BroadcastHook, loc *time.Location) *Router {
	r := &Router{repo: repo, log: log, hook: hook, loc: loc, now: time.Now}
	r.rules = []rule{
		{"post-schedule", matchSchedulePost, r.handlePostSchedule},
		{"open-simple", openRE.MatchString, r.handleOpenSimple},
		{"multi-slot-join", matchMultiJoin, r.handleMultiJoin},
		{"join", joinRE.MatchString, r.handleJoin},
		{"numbered-join", numberedRE.MatchString, r.handleNumberedLine},
		{"list", matchExact(listWords), r.handleList},
		{"vacancy", matchExact(vacancyWords), r.handleVacancy},
		{"close", matchExact(closeWords), r.handleClose},
		{"leave", leaveRE.MatchString, r.handleLeave},
		{"proxy-join", proxyRE.MatchString, r.handleProxy},
		{"admin-remove", removeRE.MatchString, r.handleRemove},
		{"admin-rename", renameRE.MatchString, r.handleRename},
		{"settings", matchSettings, r.handleSettings},
		{"help", matchExact(helpWords), r.handleHelp},
	}
	return r
}

func matchSchedulePost(text string) bool {
	return strings.Contains(text, "\n") && domain.IsSchedulePost(text)
}

func matchMultiJoin(text string) bool {
	return len(plusNumRE.FindAllString(text, -1)) > 1
}

func matchSettings(text string) bool {
	return text == "推播設定" ||
		strings.HasPrefix(text, "設定推播") ||
		strings.HasPrefix(text, "設定靜音") ||
		strings.HasPrefix(text, "設定提醒")
}

// Handle normalizes one inbound message and runs it through the rule
// chain. An empty reply means silence: the bot does not respond to
// ordinary conversation.
func (r *Router) Handle(ctx context.Context, rawText, groupID, userID string, nameFn func() string) string {
	text := strings.TrimSpace(domain.Normalize(rawText))
	if text == "" {
		return ""
	}
	req := &request{text: text, groupID: groupID, userID: userID, nameFn: nameFn}
	for _, rl := range r.rules {
		if rl.match(text) {
			reply := rl.handle(ctx, req)
			r.log.Debug("command dispatched",
				zap.String("rule", rl.name),
				zap.String("group", groupID),
				zap.Bool("replied", reply != ""),
			)
			return reply
		}
	}
	return ""
}

// Welcome is the greeting sent when the bot joins a group.
func (r *Router) Welcome() string { return welcomeText }

func (r *Router) afterJoin(ctx context.Context, list *domain.List) {
	if r.hook != nil {
		r.hook.AfterJoin(ctx, list)
	}
}
