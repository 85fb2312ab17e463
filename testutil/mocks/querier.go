// MockQuerier 的智能体能力测试模拟实现。
package mocks

import (
	"context"
	"strings"
	"sync"

	"github.com/BaSui01/askflow/agent"
)

// QuerierCall 记录单次查询
type QuerierCall struct {
	Prompt  string
	Options agent.Options
}

type querierRule struct {
	contains string
	response string
	err      error
}

// MockQuerier 是 agent.Querier 的模拟实现，按提示词内容匹配响应
type MockQuerier struct {
	mu sync.Mutex

	rules    []querierRule
	fallback string
	calls    []QuerierCall
}

// NewMockQuerier 创建新的 MockQuerier
func NewMockQuerier() *MockQuerier {
	return &MockQuerier{fallback: "Mock review"}
}

// On 当提示词包含 substr 时返回 response
func (m *MockQuerier) On(substr, response string) *MockQuerier {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, querierRule{contains: substr, response: response})
	return m
}

// OnError 当提示词包含 substr 时返回 err
func (m *MockQuerier) OnError(substr string, err error) *MockQuerier {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, querierRule{contains: substr, err: err})
	return m
}

// WithDefault 设置未匹配任何规则时的响应
func (m *MockQuerier) WithDefault(response string) *MockQuerier {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = response
	return m
}

// Query 实现 agent.Querier
func (m *MockQuerier) Query(ctx context.Context, prompt string, opts agent.Options) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, QuerierCall{Prompt: prompt, Options: opts})

	if err := ctx.Err(); err != nil {
		return "", err
	}
	for _, r := range m.rules {
		if strings.Contains(prompt, r.contains) {
			return r.response, r.err
		}
	}
	return m.fallback, nil
}

// Calls 返回全部调用记录
func (m *MockQuerier) Calls() []QuerierCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]QuerierCall(nil), m.calls...)
}
