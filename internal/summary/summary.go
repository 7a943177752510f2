package summary

import (
	"strings"

	"github.com/clipperhouse/uax29/v2/sentences"
)

const ellipsis = "…"

// Summarize 把正文压缩为不超过 maxChars 个字符（按 rune 计）的摘要。
// 优先按整句累积，装不下时停止；首句本身就超长时退化为按词截断并补省略号。
// 纯函数：相同输入总是得到相同输出，空正文得到空摘要。
func Summarize(text string, maxChars int) string {
	text = normalizeSpace(text)
	if text == "" || maxChars <= 0 {
		return ""
	}
	if len([]rune(text)) <= maxChars {
		return text
	}

	var b strings.Builder
	used := 0

	seg := sentences.FromString(text)
	for seg.Next() {
		s := strings.TrimSpace(seg.Value())
		if s == "" {
			continue
		}
		n := len([]rune(s))
		sep := 0
		if used > 0 {
			sep = 1
		}
		if used+sep+n > maxChars {
			break
		}
		if sep == 1 {
			b.WriteByte(' ')
		}
		b.WriteString(s)
		used += sep + n
	}

	if used == 0 {
		return truncateAtWord(text, maxChars)
	}
	return b.String()
}

// truncateAtWord 按词边界截断并补省略号，结果不超过 limit 个 rune
func truncateAtWord(s string, limit int) string {
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	if limit == 1 {
		return ellipsis
	}
	cut := string(rs[:limit-1])
	if i := strings.LastIndexAny(cut, " \t"); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " \t") + ellipsis
}

// normalizeSpace 折叠正文里的连续空白，换行统一成空格
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
