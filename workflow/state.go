package workflow

import (
	"github.com/BaSui01/askflow/search"
)

// Exchange is one question/answer pair of the conversation history.
type Exchange struct {
	Turn     int    `json:"turn"`
	Question string `json:"question"`
	Answer   string `json:"answer,omitempty"`
}

// State is the value threaded through the steps of a run.
type State struct {
	Question       string        `json:"question"`
	Input          string        `json:"input"`
	History        []Exchange    `json:"history,omitempty"`
	Answer         string        `json:"answer,omitempty"`
	ReviewedAnswer string        `json:"reviewed_answer,omitempty"`
	SearchContext  string        `json:"search_context,omitempty"`
	Turn           int           `json:"turn"`
	Continue       bool          `json:"continue"`
	Filter         search.Filter `json:"filter"`
	SearchQueries  []string      `json:"search_queries,omitempty"`
	SearchStats    search.Stats  `json:"search_stats"`
	Report         string        `json:"report,omitempty"`
	ReportPath     string        `json:"report_path,omitempty"`
	DeliverySent   bool          `json:"delivery_sent"`
	DeliveryError  string        `json:"delivery_error,omitempty"`
}

// NewState returns the initial state for question.
func NewState(question string) State {
	return State{
		Question: question,
		Input:    question,
		Continue: true,
	}
}

// LatestExchange returns the most recent history entry.
func (s State) LatestExchange() (Exchange, bool) {
	if len(s.History) == 0 {
		return Exchange{}, false
	}
	return s.History[len(s.History)-1], true
}

// Update is a diff produced by a step. Nil fields leave the state unchanged.
type Update struct {
	Input          *string
	Answer         *string
	ReviewedAnswer *string
	SearchContext  *string
	Turn           *int
	Continue       *bool
	Filter         *search.Filter
	SearchQueries  *[]string
	SearchStats    *search.Stats
	Report         *string
	ReportPath     *string
	DeliverySent   *bool
	DeliveryError  *string

	// AppendHistory entries are added after the existing history.
	AppendHistory []Exchange
	// AnswerExchange fills the Answer of the latest exchange if it is empty.
	AnswerExchange *string
}

// Ptr returns a pointer to v, for building Updates.
func Ptr[T any](v T) *T {
	return &v
}

// Merge overlays o on u; fields set in o win.
func (u Update) Merge(o Update) Update {
	set(&u.Input, o.Input)
	set(&u.Answer, o.Answer)
	set(&u.ReviewedAnswer, o.ReviewedAnswer)
	set(&u.SearchContext, o.SearchContext)
	set(&u.Turn, o.Turn)
	set(&u.Continue, o.Continue)
	set(&u.Filter, o.Filter)
	set(&u.SearchQueries, o.SearchQueries)
	set(&u.SearchStats, o.SearchStats)
	set(&u.Report, o.Report)
	set(&u.ReportPath, o.ReportPath)
	set(&u.DeliverySent, o.DeliverySent)
	set(&u.DeliveryError, o.DeliveryError)
	set(&u.AnswerExchange, o.AnswerExchange)
	if len(o.AppendHistory) > 0 {
		u.AppendHistory = append(append([]Exchange(nil), u.AppendHistory...), o.AppendHistory...)
	}
	return u
}

func set[T any](dst **T, src *T) {
	if src != nil {
		*dst = src
	}
}

func assign[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// Apply returns a copy of s with u applied. It is the only place state
// changes during a run.
func (s State) Apply(u Update) State {
	next := s.clone()

	assign(&next.Input, u.Input)
	assign(&next.Answer, u.Answer)
	assign(&next.ReviewedAnswer, u.ReviewedAnswer)
	assign(&next.SearchContext, u.SearchContext)
	assign(&next.Turn, u.Turn)
	assign(&next.Filter, u.Filter)
	assign(&next.Report, u.Report)
	assign(&next.ReportPath, u.ReportPath)
	assign(&next.DeliverySent, u.DeliverySent)
	assign(&next.DeliveryError, u.DeliveryError)

	// Continue 只能从 true 变为 false
	if u.Continue != nil && (s.Continue || !*u.Continue) {
		next.Continue = *u.Continue
	}
	if u.SearchQueries != nil {
		next.SearchQueries = append([]string(nil), (*u.SearchQueries)...)
	}
	if u.SearchStats != nil {
		next.SearchStats = cloneStats(*u.SearchStats)
	}

	if u.AnswerExchange != nil && len(next.History) > 0 {
		last := &next.History[len(next.History)-1]
		if last.Answer == "" {
			last.Answer = *u.AnswerExchange
		}
	}
	if len(u.AppendHistory) > 0 {
		next.History = append(next.History, u.AppendHistory...)
	}

	return next
}

// clone deep-copies the slices so that no two states share backing arrays.
func (s State) clone() State {
	c := s
	if s.History != nil {
		c.History = append([]Exchange(nil), s.History...)
	}
	if s.SearchQueries != nil {
		c.SearchQueries = append([]string(nil), s.SearchQueries...)
	}
	c.SearchStats = cloneStats(s.SearchStats)
	return c
}

func cloneStats(st search.Stats) search.Stats {
	if st.Failures != nil {
		st.Failures = append([]search.Failure(nil), st.Failures...)
	}
	return st
}
