package notify

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateURL(t *testing.T) {
	prefix := "https://hooks.slack.com/"
	tests := []struct {
		name    string
		url     string
		wantErr string
	}{
		{"valid", "https://hooks.slack.com/services/T/B/X", ""},
		{"empty", "", "not configured"},
		{"blank", "   ", "not configured"},
		{"http", "http://hooks.slack.com/services/T", "invalid webhook URL format"},
		{"other host", "https://example.com/hook", "invalid webhook URL format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url, prefix)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestBuildPayload_JSONShape(t *testing.T) {
	p := BuildPayload(DefaultConfig(), "body", "loc", "q")

	data, err := json.Marshal(p)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Len(t, m, 3)
	assert.Contains(t, m, "text")
	assert.Contains(t, m, "username")
	assert.Contains(t, m, "icon_emoji")
}

func TestBuildPayload_ThresholdIsInRunes(t *testing.T) {
	cfg := DefaultConfig()

	// 3000 multi-byte runes are well over 3000 bytes but not over the limit
	atLimit := strings.Repeat("é", 3000)
	assert.Contains(t, BuildPayload(cfg, atLimit, "loc", "q").Text, atLimit)

	over := atLimit + "x"
	assert.NotContains(t, BuildPayload(cfg, over, "loc", "q").Text, over)
}

func TestProperty_BuildPayload_SummaryIffOverThreshold(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	cfg := DefaultConfig()
	cfg.SizeThreshold = 200

	properties.Property("full text only when within threshold", prop.ForAll(
		func(n int, r rune) bool {
			report := strings.Repeat(string(r), n)
			text := BuildPayload(cfg, report, "loc", "q").Text
			full := strings.Contains(text, "```\n"+report+"\n```")
			return full == (n <= cfg.SizeThreshold) && full != IsSummary(report, cfg.SizeThreshold)
		},
		gen.IntRange(1, 400),
		gen.OneConstOf('a', 'é', '語', '🙂'),
	))

	properties.TestingRun(t)
}
