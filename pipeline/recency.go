package pipeline

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/BaSui01/askflow/search"
)

// DefaultWindowDays is the search window when no narrower keyword is found.
const DefaultWindowDays = 60

var (
	// 日文关键词没有词边界，按子串匹配；最新版、最新バージョン 由 最新 覆盖
	recentPattern = regexp.MustCompile(`\b(?:latest|recent|current|today|this week|this month|this year|up to date)\b|最新|直近|最近|今日|今週|今月|今年`)
	yearPattern   = regexp.MustCompile(`\b\d{4}\b`)
)

// 按顺序匹配，先命中者生效
var windowKeywords = []struct {
	pattern *regexp.Regexp
	days    int
}{
	{regexp.MustCompile(`\btoday\b|今日`), 1},
	{regexp.MustCompile(`\bthis week\b|今週`), 7},
	{regexp.MustCompile(`\bthis month\b|今月`), 30},
	{regexp.MustCompile(`\brecent\b|直近|最近`), 60},
}

// DetectFilter scans input for recency keywords in English or Japanese.
// The current and previous year (also written as "2026年") count as recency
// hints. Generic words such as "new" or "update" do not. Without a hint the
// filter is empty.
func DetectFilter(input string, now time.Time, defaultDays int) search.Filter {
	if defaultDays <= 0 {
		defaultDays = DefaultWindowDays
	}
	text := strings.ToLower(input)

	if !recentPattern.MatchString(text) && !mentionsYear(text, now) {
		return search.Filter{}
	}

	days := defaultDays
	for _, k := range windowKeywords {
		if k.pattern.MatchString(text) {
			days = min(days, k.days)
			break
		}
	}
	return search.Filter{Recent: true, Window: time.Duration(days) * 24 * time.Hour}
}

func mentionsYear(text string, now time.Time) bool {
	this, last := strconv.Itoa(now.Year()), strconv.Itoa(now.Year()-1)
	for _, y := range yearPattern.FindAllString(text, -1) {
		if y == this || y == last {
			return true
		}
	}
	return false
}
