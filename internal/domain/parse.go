package domain

import (
	"regexp"
	"strconv"
	"strings"
)

// Patterns for the pasted-roster grammar. Text is normalized before it
// reaches the parser, but the full-width forms are kept in the character
// classes so raw text still matches.
var (
	dateRE    = regexp.MustCompile(`(\d{1,2}/\d{1,2})\s*[（(]([一二三四五六日ㄧ零][一二三四五六日ㄧ零]?)[）)]`)
	countRE   = regexp.MustCompile(`(\d+)\s*人`)
	timeRE    = regexp.MustCompile(`\d{1,2}:\d{2}(?:\s*[-–]\s*\d{1,2}:\d{2})?`)
	sessionRE = regexp.MustCompile(`^\s*(上午|下午)\s*[：:](.*)$`)
	prefillRE = regexp.MustCompile(`^(\d+)\s*[.．、]\s*(\S.*)$`)
)

// IsSchedulePost reports whether text qualifies as a pasted schedule:
// at least two lines carrying a M/D（weekday）date marker.
func IsSchedulePost(text string) bool {
	return len(dateRE.FindAllString(text, -1)) >= 2
}

// ParseSchedule walks the text once, line by line, and turns every date
// block into one or two slots. A block runs from a date line to the next
// blank line or date line. Lines inside a block are classified as session
// markers (上午/下午, optionally carrying a pre-filled name), a stand-alone
// time range, numbered pre-fill lines, or free-text notes.
//
// Slot numbers are assigned in emission order starting at 1. A block with
// session markers emits one slot per session actually present, morning
// first; its numbered pre-fill lines are ignored. A block without sessions
// emits a single slot carrying all numbered pre-fills.
func ParseSchedule(text string) ([]Slot, []Prefill) {
	lines := strings.Split(text, "\n")

	var (
		slots    []Slot
		prefills []Prefill
	)
	num := 1

	i := 0
	for i < len(lines) {
		line := strings.TrimSpace(lines[i])
		dm := dateRE.FindStringSubmatchIndex(line)
		if dm == nil {
			i++
			continue
		}

		date := line[dm[2]:dm[3]]
		weekday := line[dm[4]:dm[5]]
		after := strings.TrimSpace(line[dm[1]:])

		required := 1
		if cm := countRE.FindStringSubmatchIndex(after); cm != nil {
			required, _ = strconv.Atoi(after[cm[2]:cm[3]])
			after = strings.TrimSpace(after[:cm[0]] + after[cm[1]:])
		}

		timeStr := ""
		if tm := timeRE.FindStringIndex(after); tm != nil {
			timeStr = strings.TrimSpace(after[tm[0]:tm[1]])
			after = strings.TrimSpace(after[:tm[0]] + after[tm[1]:])
		}

		activity := after

		var (
			sessions     []Session
			sessionNames = map[Session]string{}
			numbered     []string
			noteParts    []string
		)

		j := i + 1
		for j < len(lines) {
			nl := strings.TrimSpace(lines[j])
			if nl == "" {
				j++
				break
			}
			if dateRE.MatchString(nl) {
				break
			}

			if sm := sessionRE.FindStringSubmatch(nl); sm != nil {
				sess := Session(sm[1])
				if !hasSession(sessions, sess) {
					sessions = append(sessions, sess)
				}
				if name := strings.TrimSpace(sm[2]); name != "" {
					sessionNames[sess] = name
				}
			} else if timeRE.MatchString(nl) && timeStr == "" {
				timeStr = nl
			} else if pm := prefillRE.FindStringSubmatch(nl); pm != nil {
				numbered = append(numbered, strings.TrimSpace(pm[2]))
			} else {
				noteParts = append(noteParts, nl)
			}
			j++
		}
		note := strings.Join(noteParts, " ")

		if len(sessions) > 0 {
			for _, sess := range []Session{SessionMorning, SessionAfternoon} {
				if !hasSession(sessions, sess) {
					continue
				}
				slots = append(slots, Slot{
					Num:       num,
					Date:      date,
					Weekday:   weekday,
					Activity:  activity,
					TimeRange: timeStr,
					Session:   sess,
					Required:  required,
					Note:      note,
				})
				if name, ok := sessionNames[sess]; ok {
					prefills = append(prefills, Prefill{SlotNum: num, Name: name})
				}
				num++
			}
		} else {
			slots = append(slots, Slot{
				Num:       num,
				Date:      date,
				Weekday:   weekday,
				Activity:  activity,
				TimeRange: timeStr,
				Session:   SessionNone,
				Required:  required,
				Note:      note,
			})
			for _, name := range numbered {
				prefills = append(prefills, Prefill{SlotNum: num, Name: name})
			}
			num++
		}

		i = j
	}

	return slots, prefills
}

func hasSession(ss []Session, s Session) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

// DefaultScheduleTitle is used when no line in the post qualifies as a title.
const DefaultScheduleTitle = "工作認養排班"

var (
	titleTrimRE      = regexp.MustCompile(`[：:如下]+$`)
	greetingPrefixes = []string{
		"接龍", "開團", "大家好", "各位", "哈囉", "你好", "早安", "午安", "晚安",
	}
)

// ExtractTitle picks the schedule title: the first of the leading ~12
// lines that is non-empty, is not a date line, and does not start with a
// greeting or trigger word. Trailing colons and "如下" are stripped.
func ExtractTitle(text string) string {
	lines := strings.Split(text, "\n")
	if len(lines) > 12 {
		lines = lines[:12]
	}
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || dateRE.MatchString(line) {
			continue
		}
		if isGreeting(line) {
			continue
		}
		if title := strings.TrimSpace(titleTrimRE.ReplaceAllString(line, "")); title != "" {
			return title
		}
	}
	return DefaultScheduleTitle
}

func isGreeting(line string) bool {
	for _, p := range greetingPrefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}
