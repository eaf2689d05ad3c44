package notifier

import (
	"strings"
	"time"
)

const maxMessageLen = 3800

// Section 是消息中的一个段落。
type Section struct {
	Title string
	Lines []string
}

// Message 统一格式的推送：标题、若干段落、时间戳。
type Message struct {
	Icon      string
	Title     string
	Sections  []Section
	Timestamp time.Time
}

// Render 生成 Markdown 文本，超长时截断。
func (m Message) Render() string {
	var b strings.Builder
	if header := strings.TrimSpace(m.Icon + " " + m.Title); header != "" {
		b.WriteString(header)
		b.WriteString("\n\n")
	}
	var body []string
	for _, sec := range m.Sections {
		lines := nonEmpty(sec.Lines)
		if len(lines) == 0 {
			continue
		}
		block := ""
		if t := strings.TrimSpace(sec.Title); t != "" {
			block = escapeFence(t) + "\n"
		}
		for _, line := range lines {
			block += "- " + escapeFence(line) + "\n"
		}
		body = append(body, block)
	}
	if len(body) > 0 {
		b.WriteString("```\n")
		b.WriteString(strings.Join(body, "\n"))
		b.WriteString("```\n\n")
	}
	if !m.Timestamp.IsZero() {
		b.WriteString("time: " + m.Timestamp.UTC().Format("2006-01-02 15:04:05 MST"))
	}
	out := strings.TrimSpace(b.String())
	if len(out) > maxMessageLen {
		out = out[:maxMessageLen] + "..."
	}
	return out
}

func nonEmpty(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if text := strings.TrimSpace(line); text != "" {
			out = append(out, text)
		}
	}
	return out
}

func escapeFence(s string) string {
	return strings.ReplaceAll(s, "```", "'''")
}
