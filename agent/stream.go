package agent

import (
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/askflow/types"
)

// streamEvent 对应 stream-json 输出中的一行
type streamEvent struct {
	Type    string `json:"type"`
	Subtype string `json:"subtype,omitempty"`
	Message *struct {
		Content json.RawMessage `json:"content"`
	} `json:"message,omitempty"`
	Result  string `json:"result,omitempty"`
	IsError bool   `json:"is_error,omitempty"`
}

type contentBlock struct {
	Type    string          `json:"type"`
	Text    string          `json:"text,omitempty"`
	Name    string          `json:"name,omitempty"`
	Content json.RawMessage `json:"content,omitempty"`
}

// accumulator 按到达顺序拼接各类内容块
type accumulator struct {
	sb       strings.Builder
	messages int
	result   string
	failed   bool
	logger   *zap.Logger
}

func newAccumulator(logger *zap.Logger) *accumulator {
	return &accumulator{logger: logger}
}

func (a *accumulator) consume(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	var ev streamEvent
	if err := json.Unmarshal([]byte(line), &ev); err != nil {
		a.logger.Debug("skipping non-json line", zap.String("line", line))
		return
	}

	switch ev.Type {
	case "assistant", "user":
		a.messages++
		if ev.Message != nil {
			a.appendContent(ev.Message.Content)
		}
	case "result":
		a.result = ev.Result
		a.failed = ev.IsError
	}
}

func (a *accumulator) appendContent(raw json.RawMessage) {
	if len(raw) == 0 {
		return
	}
	var blocks []contentBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		// 非数组内容按纯文本处理
		a.sb.WriteString(rawText(raw))
		return
	}
	for _, b := range blocks {
		switch b.Type {
		case "text":
			a.sb.WriteString(b.Text)
		case "tool_use":
			name := b.Name
			if name == "" {
				name = "unknown"
			}
			a.sb.WriteString("\n[tool use: " + name + "]\n")
		case "tool_result":
			a.sb.WriteString("\n[tool result: " + rawText(b.Content) + "]\n")
		default:
			a.sb.WriteString(b.Text)
		}
	}
}

func (a *accumulator) text() (string, error) {
	if a.failed {
		msg := strings.TrimSpace(a.result)
		if msg == "" {
			msg = "agent reported an error"
		}
		return "", types.NewUpstreamError(msg, 0).WithRetryable(false)
	}
	if a.sb.Len() == 0 {
		return a.result, nil
	}
	return a.sb.String(), nil
}

// rawText flattens a string or a list of text blocks.
func rawText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var blocks []contentBlock
	if err := json.Unmarshal(raw, &blocks); err == nil {
		parts := make([]string, 0, len(blocks))
		for _, b := range blocks {
			if b.Text != "" {
				parts = append(parts, b.Text)
			}
		}
		return strings.Join(parts, "\n")
	}
	return string(raw)
}
