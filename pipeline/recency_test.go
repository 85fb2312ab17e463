package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/BaSui01/askflow/search"
)

func TestDetectFilter(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	day := 24 * time.Hour

	tests := []struct {
		input string
		want  search.Filter
	}{
		{"How do goroutines work?", search.Filter{}},
		{"What is the latest Go release?", search.Filter{Recent: true, Window: 60 * day}},
		{"Go news today", search.Filter{Recent: true, Window: 1 * day}},
		{"Kubernetes changes THIS WEEK", search.Filter{Recent: true, Window: 7 * day}},
		{"security advisories this month", search.Filter{Recent: true, Window: 30 * day}},
		{"recent changes to net/http", search.Filter{Recent: true, Window: 60 * day}},
		{"Go roadmap 2026", search.Filter{Recent: true, Window: 60 * day}},
		{"Go roadmap 2025", search.Filter{Recent: true, Window: 60 * day}},
		{"Go roadmap 2019", search.Filter{}},
		{"renewable energy", search.Filter{}},
		{"how to update dependencies", search.Filter{}},
		{"how do I create a new slice", search.Filter{}},
		{"is my toolchain up to date", search.Filter{Recent: true, Window: 60 * day}},
		{"Goの最新バージョンは？", search.Filter{Recent: true, Window: 60 * day}},
		{"今日のGoニュース", search.Filter{Recent: true, Window: 1 * day}},
		{"今週のKubernetesの変更", search.Filter{Recent: true, Window: 7 * day}},
		{"今月のセキュリティ情報", search.Filter{Recent: true, Window: 30 * day}},
		{"直近のリリース", search.Filter{Recent: true, Window: 60 * day}},
		{"最近のGoの動向", search.Filter{Recent: true, Window: 60 * day}},
		{"今年のロードマップ", search.Filter{Recent: true, Window: 60 * day}},
		{"2026年のロードマップ", search.Filter{Recent: true, Window: 60 * day}},
		{"2025年の変更点", search.Filter{Recent: true, Window: 60 * day}},
		{"2019年の変更点", search.Filter{}},
		{"新しいスライスの作り方", search.Filter{}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectFilter(tt.input, now, 0))
		})
	}
}

func TestDetectFilter_DefaultWindow(t *testing.T) {
	now := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)

	f := DetectFilter("latest rust release", now, 90)
	assert.Equal(t, 90, f.Days())

	// 具体关键词只会收窄窗口
	f = DetectFilter("recent rust release", now, 14)
	assert.Equal(t, 14, f.Days())
}
