package pipeline

import (
	"fmt"
	"time"
)

const (
	querySystemPrompt  = "You are a search strategy expert. Produce three search queries that approach the question from different angles."
	reviewSystemPrompt = "You are an expert technical reviewer. Check answers for accuracy and freshness, then write a corrected version."
)

func queryPrompt(question string) string {
	return fmt.Sprintf(`Generate exactly three search queries for the question below.

Question: %s

1. A query for the core concepts and definitions
2. A query for the latest developments and updates
3. A query for practical examples and implementations

Keep each query under 50 characters and answer in this format:
Query 1: [query]
Query 2: [query]
Query 3: [query]`, question)
}

func answerPrompt(input, searchContext string, turn int, now time.Time) string {
	if searchContext == "" {
		searchContext = "No search results available."
	}
	return fmt.Sprintf(`You are an assistant handling pass %d of a question answering workflow.
Current date: %s. Prefer information from %d onwards.

Answer the user's input thoughtfully and concisely, using the search results
where they are relevant. When older information appears, mention newer
developments as well.

User input: %s

Search results:
%s`, turn, now.Format("2006-01-02"), now.Year()-1, input, searchContext)
}

func elaborationPrompt(question, answer string) string {
	return fmt.Sprintf("Please elaborate further on the previous answer to: %s\n\nPrevious answer:\n%s", question, answer)
}

func reviewPrompt(answer, question string, now time.Time) string {
	return fmt.Sprintf(`Review the answer below in detail, then write a corrected version that applies every point of the review.

Answer under review:
%s

Original question:
%s

Current date: %s. Check facts against information from %d onwards and use the WebSearch tool where needed.

Review points:
1. Factual accuracy and freshness
2. Logical consistency
3. Completeness
4. Clarity
5. For technical questions: correctness of code and APIs, best practices, security, performance

Output format:
1. Detailed review
2. Corrected version: (introduced by a line "Corrected version:")
3. Explanation of the changes
If nothing needs changing, write "Review complete: no issues (%s)".`,
		answer, question, now.Format("2006-01-02"), now.Year()-1, now.Format("2006-01-02"))
}
