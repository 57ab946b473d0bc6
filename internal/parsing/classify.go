package parsing

import (
	"strings"

	"LA28Sync/internal/model"

	"golang.org/x/text/unicode/norm"
)

// EventEntry 描述块中的一行
type EventEntry struct {
	Order int    // 1 起
	Sex   string // Men/Women/Mixed/and/or/or
	Type  string // 轮次
	Text  string // 原始行
}

// Breakdown 描述块的拆分结果
type Breakdown struct {
	Ticketed bool
	Entries  []EventEntry
}

// B/C/D 决赛按排位赛处理
var placementFinals = []string{"Final B", "Final C", "Final D"}

// ClassifyDescription 拆分时段描述。
// 首行等于 notTicketed 标记时去掉该行并记为无需门票；
// 只有一行时轮次直接取时段类型，多行时逐行按关键字判断。
func ClassifyDescription(block, sessionType, notTicketed string) Breakdown {
	lines := strings.Split(strings.ReplaceAll(block, "\r\n", "\n"), "\n")
	out := Breakdown{Ticketed: true}
	if notTicketed != "" && len(lines) > 0 && strings.TrimSpace(lines[0]) == notTicketed {
		out.Ticketed = false
		lines = lines[1:]
	}

	single := len(lines) == 1
	out.Entries = make([]EventEntry, 0, len(lines))
	for i, line := range lines {
		entry := EventEntry{Order: i + 1, Sex: ClassifySex(line), Text: line}
		if single {
			entry.Type = CleanText(sessionType)
		} else {
			entry.Type = ClassifyRound(line)
		}
		out.Entries = append(out.Entries, entry)
	}
	return out
}

// ClassifySex 按优先级匹配，大小写敏感；"or" 会命中任何包含该子串的行
func ClassifySex(line string) string {
	switch {
	case strings.Contains(line, "and/or"):
		return model.SexAndOr
	case strings.Contains(line, "or"):
		return model.SexOr
	case strings.Contains(line, "Men") && !strings.Contains(line, "Women"):
		return model.SexMen
	case strings.Contains(line, "Women") && !strings.Contains(line, "Men"):
		return model.SexWomen
	case strings.Contains(line, "Mixed"):
		return model.SexMixed
	default:
		return model.SexAndOr
	}
}

// ClassifyRound 单行轮次判断；含 Final B/C/D 的行一律归为 Preliminary
func ClassifyRound(line string) string {
	if containsAny(line, "Final", "Gold Medal") {
		if containsAny(line, placementFinals...) {
			return model.TypePreliminary
		}
		return model.TypeFinal
	}
	switch {
	case containsAny(line, "Bronze", "Bronze Medal"):
		return model.TypeBronze
	case strings.Contains(line, "Semifinal"):
		return model.TypeSemifinal
	case strings.Contains(line, "Quarterfinal"):
		return model.TypeQuarterfinal
	case containsAny(line, "Preliminary", "Qualification", "Heats", "Pool"):
		return model.TypePreliminary
	case strings.Contains(line, "Repechage"):
		return model.TypeRepechage
	default:
		return model.TypeNA
	}
}

// CleanText 把换行替换为空格并做 NFC 规范化
func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(norm.NFC.String(s))
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
