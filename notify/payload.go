package notify

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Payload is the JSON body posted to the webhook.
type Payload struct {
	Text      string `json:"text"`
	Username  string `json:"username"`
	IconEmoji string `json:"icon_emoji"`
}

// ValidateURL checks that url is present and starts with prefix. The
// returned error text is suitable as a skip reason.
func ValidateURL(url, prefix string) error {
	if strings.TrimSpace(url) == "" {
		return fmt.Errorf("webhook URL not configured")
	}
	if !strings.HasPrefix(url, prefix) {
		return fmt.Errorf("invalid webhook URL format: %s...", headRunes(url, 50))
	}
	return nil
}

// IsSummary reports whether a report of this size is sent as a summary.
func IsSummary(report string, threshold int) bool {
	return utf8.RuneCountInString(report) > threshold
}

// BuildPayload shapes the message. Reports longer than the configured
// threshold (in runes) are replaced by a summary that points at locator.
func BuildPayload(cfg Config, report, locator, question string) Payload {
	var text string
	if IsSummary(report, cfg.SizeThreshold) {
		text = fmt.Sprintf("📄 askflow run completed\n\n"+
			"Question: %s\n"+
			"Report: %s\n\n"+
			"The report is too large for a message. See the generated report file for the full result.\n\n"+
			"Summary:\n"+
			"- initial answer generated\n"+
			"- answer reviewed and fact-checked\n"+
			"- report written",
			question, locator)
	} else {
		text = fmt.Sprintf("📄 askflow run completed\n\n"+
			"Question: %s\n"+
			"Report: `%s`\n\n"+
			"Result:\n```\n%s\n```",
			question, locator, report)
	}
	return Payload{
		Text:      text,
		Username:  cfg.Username,
		IconEmoji: cfg.IconEmoji,
	}
}

func headRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
