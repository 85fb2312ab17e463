package report

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/BaSui01/askflow/internal/pool"
)

// SearchSummaryRunes is how much of the search context goes into a report.
const SearchSummaryRunes = 500

// Document is the input to Render.
type Document struct {
	RunID         string
	Question      string
	SearchContext string
	Answer        string
	Review        string
	Turns         int
	GeneratedAt   time.Time
}

// Render returns the markdown report for doc.
func Render(doc Document) string {
	b := pool.Buffers.Get()
	defer pool.Buffers.Put(b)

	b.WriteString("# askflow run report\n\n")

	b.WriteString("## Run information\n")
	fmt.Fprintf(b, "- **Generated at**: %s\n", doc.GeneratedAt.Format("2006-01-02 15:04:05"))
	if doc.RunID != "" {
		fmt.Fprintf(b, "- **Run ID**: %s\n", doc.RunID)
	}
	fmt.Fprintf(b, "- **Question**: %s\n", oneLine(doc.Question))
	fmt.Fprintf(b, "- **Turns**: %d\n\n", doc.Turns)

	b.WriteString("## Question\n```\n")
	b.WriteString(doc.Question)
	b.WriteString("\n```\n\n")

	b.WriteString("## Search summary\n```\n")
	if doc.SearchContext == "" {
		b.WriteString("No search results")
	} else {
		b.WriteString(summarize(doc.SearchContext, SearchSummaryRunes))
	}
	b.WriteString("\n```\n\n")

	b.WriteString("## 1. Initial answer\n")
	b.WriteString(orDefault(doc.Answer, "No answer"))
	b.WriteString("\n\n")

	b.WriteString("## 2. Review\n")
	b.WriteString(orDefault(doc.Review, "No review"))
	b.WriteString("\n\n")

	if corrected := ExtractCorrected(doc.Review); corrected != "" && corrected != doc.Review {
		b.WriteString("## 3. Corrected version\n\n")
		b.WriteString(corrected)
		b.WriteString("\n\n")
	}

	b.WriteString("---\n*Generated by askflow*\n")
	return b.String()
}

func summarize(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var (
	// 以冒号结尾的标记行，例如 "Corrected version:"
	labelPattern = regexp.MustCompile(`(?im)^[ \t]*(?:here is the corrected version|corrected version|revised version|corrected|correction)[ \t]*[:：][ \t]*\n`)
	// Markdown 标题或加粗标题
	headingPattern = regexp.MustCompile(`(?im)^[ \t]*(#{2,3})[ \t]*(?:corrected version|revised version)[ \t]*\n`)
	boldPattern    = regexp.MustCompile(`(?im)^[ \t]*\*\*(?:corrected version|revised version)\*\*[ \t]*\n`)
)

// ExtractCorrected returns the corrected-version section of a review, or ""
// when the review has none.
func ExtractCorrected(review string) string {
	if review == "" {
		return ""
	}

	if loc := labelPattern.FindStringIndex(review); loc != nil {
		return sectionUntil(review[loc[1]:], "\n\n## ", "\n\n---")
	}
	if m := headingPattern.FindStringSubmatchIndex(review); m != nil {
		level := review[m[2]:m[3]]
		rest := review[m[1]:]
		// 截止到同级或更高级的下一个标题
		stops := []string{"\n## "}
		if level == "###" {
			stops = append(stops, "\n### ")
		}
		return sectionUntil(rest, stops...)
	}
	if loc := boldPattern.FindStringIndex(review); loc != nil {
		return sectionUntil(review[loc[1]:], "\n**")
	}
	return ""
}

func sectionUntil(s string, stops ...string) string {
	end := len(s)
	for _, stop := range stops {
		if i := strings.Index(s, stop); i >= 0 && i < end {
			end = i
		}
	}
	return strings.TrimSpace(s[:end])
}
