// =============================================================================
// 📦 测试数据工厂 - 协作方响应样例
// =============================================================================
// 提供查询生成、审阅与检索的预置文本，用于测试
// =============================================================================
package fixtures

import (
	"fmt"
	"strings"
)

// =============================================================================
// 🎯 查询生成
// =============================================================================

// QueryResponse 返回 "Query N: ..." 格式的查询生成结果
func QueryResponse(queries ...string) string {
	var sb strings.Builder
	sb.WriteString("Here are the queries:\n")
	for i, q := range queries {
		fmt.Fprintf(&sb, "Query %d: %s\n", i+1, q)
	}
	return sb.String()
}

// =============================================================================
// 📝 审阅结果
// =============================================================================

// ReviewWithCorrection 返回带修正版段落的审阅文本
func ReviewWithCorrection(corrected string) string {
	return "1. Detailed review\n- The answer omits recent changes.\n\n" +
		"Corrected version:\n" + corrected + "\n\n" +
		"## Explanation\nAdded the missing release notes."
}

// ReviewNoIssues 返回无需修改的审阅文本
func ReviewNoIssues() string {
	return "Review complete: no issues."
}

// =============================================================================
// 🔍 检索结果
// =============================================================================

// SearchPayload 返回模拟的检索工具输出
func SearchPayload(query string) string {
	return fmt.Sprintf(`{"query":%q,"results":[{"title":"Result for %s","url":"https://example.com"}]}`, query, query)
}

// StreamJSONLines 返回智能体 CLI stream-json 输出中的文本消息
func StreamJSONLines(texts ...string) []string {
	lines := make([]string, 0, len(texts)+1)
	for _, t := range texts {
		lines = append(lines, fmt.Sprintf(`{"type":"assistant","message":{"content":[{"type":"text","text":%q}]}}`, t))
	}
	lines = append(lines, fmt.Sprintf(`{"type":"result","is_error":false,"result":%q}`, strings.Join(texts, "")))
	return lines
}
