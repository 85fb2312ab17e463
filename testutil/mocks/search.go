// MockSearchRunner 与 MockSearcher 的检索测试模拟实现。
package mocks

import (
	"context"
	"sync"

	"github.com/BaSui01/askflow/search"
)

// SearchRun 记录一次批量检索
type SearchRun struct {
	Queries []string
	Filter  search.Filter
}

// MockSearchRunner 模拟并行检索，返回固定文本与统计
type MockSearchRunner struct {
	mu sync.Mutex

	text  string
	stats search.Stats
	runs  []SearchRun
}

// NewMockSearchRunner 创建新的 MockSearchRunner，默认全部成功
func NewMockSearchRunner(text string) *MockSearchRunner {
	return &MockSearchRunner{text: text}
}

// WithStats 设置返回的统计
func (m *MockSearchRunner) WithStats(stats search.Stats) *MockSearchRunner {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats = stats
	return m
}

// Run 实现 pipeline.SearchRunner
func (m *MockSearchRunner) Run(_ context.Context, queries []string, filter search.Filter) (string, search.Stats) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, SearchRun{Queries: append([]string(nil), queries...), Filter: filter})

	stats := m.stats
	if stats.TotalQueries == 0 {
		stats = search.Stats{TotalQueries: len(queries), Successful: len(queries)}
	}
	return m.text, stats
}

// Runs 返回全部检索记录
func (m *MockSearchRunner) Runs() []SearchRun {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SearchRun(nil), m.runs...)
}
