// MockDeliverer 与 MemorySink 的投递和报告存储模拟实现。
package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/BaSui01/askflow/notify"
)

// Delivery 记录一次投递
type Delivery struct {
	Report   string
	Locator  string
	Question string
}

// MockDeliverer 模拟报告投递
type MockDeliverer struct {
	mu sync.Mutex

	result     notify.Result
	deliveries []Delivery
}

// NewMockDeliverer 创建新的 MockDeliverer，默认投递成功
func NewMockDeliverer() *MockDeliverer {
	return &MockDeliverer{result: notify.Result{Delivered: true, Attempts: 1, StatusCode: 200}}
}

// WithResult 设置投递结果
func (m *MockDeliverer) WithResult(r notify.Result) *MockDeliverer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.result = r
	return m
}

// Deliver 实现 pipeline.Deliverer
func (m *MockDeliverer) Deliver(_ context.Context, report, locator, question string) notify.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deliveries = append(m.deliveries, Delivery{Report: report, Locator: locator, Question: question})
	return m.result
}

// Deliveries 返回全部投递记录
func (m *MockDeliverer) Deliveries() []Delivery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Delivery(nil), m.deliveries...)
}

// MemorySink 把报告保存在内存中
type MemorySink struct {
	mu sync.Mutex

	err   error
	files map[string]string
}

// NewMemorySink 创建新的 MemorySink
func NewMemorySink() *MemorySink {
	return &MemorySink{files: make(map[string]string)}
}

// WithError 设置写入错误
func (s *MemorySink) WithError(err error) *MemorySink {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
	return s
}

// Persist 实现 report.Sink
func (s *MemorySink) Persist(_ context.Context, name, text string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	if _, ok := s.files[name]; ok {
		return "", fmt.Errorf("report %s already exists", name)
	}
	s.files[name] = text
	return "mem://" + name, nil
}

// Files 返回已保存的报告
func (s *MemorySink) Files() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.files))
	for k, v := range s.files {
		out[k] = v
	}
	return out
}
