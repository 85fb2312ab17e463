package pipeline

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/askflow/agent"
	"github.com/BaSui01/askflow/internal/ctxkeys"
	"github.com/BaSui01/askflow/llm"
	"github.com/BaSui01/askflow/notify"
	"github.com/BaSui01/askflow/report"
	"github.com/BaSui01/askflow/search"
	"github.com/BaSui01/askflow/types"
	"github.com/BaSui01/askflow/workflow"
)

// SearchRunner runs a batch of queries. *search.Fanout satisfies it.
type SearchRunner interface {
	Run(ctx context.Context, queries []string, filter search.Filter) (string, search.Stats)
}

// Deliverer posts a report. *notify.Notifier satisfies it.
type Deliverer interface {
	Deliver(ctx context.Context, report, locator, question string) notify.Result
}

// entryStep validates the input and opens a history entry.
type entryStep struct {
	clock      func() time.Time
	windowDays int
}

func (s *entryStep) Name() workflow.StepName { return workflow.StepEntry }

func (s *entryStep) Run(_ context.Context, st workflow.State) (workflow.Update, error) {
	if strings.TrimSpace(st.Question) == "" || strings.TrimSpace(st.Input) == "" {
		return workflow.Update{}, types.NewInvalidInputError("question is empty").WithStep(string(workflow.StepEntry))
	}
	upd := workflow.Update{
		AppendHistory: []workflow.Exchange{{Turn: st.Turn + 1, Question: st.Input}},
	}
	if st.Turn == 0 {
		upd.Filter = workflow.Ptr(DetectFilter(st.Question, s.clock(), s.windowDays))
	}
	return upd, nil
}

// searchStep generates queries and runs them in parallel on the first pass.
type searchStep struct {
	queries *QueryGenerator
	runner  SearchRunner
	logger  *zap.Logger
}

func (s *searchStep) Name() workflow.StepName { return workflow.StepSearch }

func (s *searchStep) Run(ctx context.Context, st workflow.State) (workflow.Update, error) {
	if st.SearchContext != "" {
		s.logger.Debug("search context already present, skipping search", zap.Int("turn", st.Turn))
		return workflow.Update{}, nil
	}

	queries := s.queries.Generate(ctx, st.Question)
	text, stats := s.runner.Run(ctx, queries, st.Filter)

	return workflow.Update{
		SearchQueries: workflow.Ptr(queries),
		SearchContext: workflow.Ptr(text),
		SearchStats:   workflow.Ptr(stats),
	}, nil
}

// answerStep asks the language model for an answer.
type answerStep struct {
	generator llm.Generator
	maxTurns  int
	clock     func() time.Time
}

func (s *answerStep) Name() workflow.StepName { return workflow.StepAnswer }

func (s *answerStep) Run(ctx context.Context, st workflow.State) (workflow.Update, error) {
	answer, err := s.generator.Generate(ctx, answerPrompt(st.Input, st.SearchContext, st.Turn, s.clock()))
	if err != nil {
		return workflow.Update{}, err
	}
	if strings.TrimSpace(answer) == "" {
		answer = "No answer could be generated."
	}

	cont := st.Turn < s.maxTurns
	upd := workflow.Update{
		Answer:         workflow.Ptr(answer),
		AnswerExchange: workflow.Ptr(answer),
		Continue:       workflow.Ptr(cont),
	}
	if cont {
		upd.Input = workflow.Ptr(elaborationPrompt(st.Question, answer))
	}
	return upd, nil
}

// reviewStep asks the agent to review and correct the answer.
type reviewStep struct {
	querier  agent.Querier
	maxTurns int
	clock    func() time.Time
}

func (s *reviewStep) Name() workflow.StepName { return workflow.StepReview }

func (s *reviewStep) Run(ctx context.Context, st workflow.State) (workflow.Update, error) {
	reviewed, err := s.querier.Query(ctx, reviewPrompt(st.Answer, st.Question, s.clock()), agent.Options{
		SystemPrompt: reviewSystemPrompt,
		MaxTurns:     s.maxTurns,
		AllowedTools: []string{"WebSearch"},
	})
	if err != nil {
		return workflow.Update{}, err
	}
	return workflow.Update{ReviewedAnswer: workflow.Ptr(reviewed)}, nil
}

// reportStep renders and persists the report.
type reportStep struct {
	sink   report.Sink
	clock  func() time.Time
	logger *zap.Logger
}

func (s *reportStep) Name() workflow.StepName { return workflow.StepReport }

func (s *reportStep) Run(ctx context.Context, st workflow.State) (workflow.Update, error) {
	now := s.clock()
	runID, _ := ctxkeys.RunID(ctx)
	text := report.Render(report.Document{
		RunID:         runID,
		Question:      st.Question,
		SearchContext: st.SearchContext,
		Answer:        st.Answer,
		Review:        st.ReviewedAnswer,
		Turns:         st.Turn,
		GeneratedAt:   now,
	})

	upd := workflow.Update{Report: workflow.Ptr(text), ReportPath: workflow.Ptr("")}
	if s.sink == nil {
		return upd, nil
	}

	path, err := s.sink.Persist(ctx, report.FileName(st.Question, now), text)
	if err != nil {
		s.logger.Warn("report persistence failed", zap.Error(err))
		return upd, nil
	}
	upd.ReportPath = workflow.Ptr(path)
	return upd, nil
}

// notifyStep delivers the report.
type notifyStep struct {
	deliverer Deliverer
}

func (s *notifyStep) Name() workflow.StepName { return workflow.StepNotify }

func (s *notifyStep) Run(ctx context.Context, st workflow.State) (workflow.Update, error) {
	res := s.deliverer.Deliver(ctx, st.Report, st.ReportPath, st.Question)
	upd := workflow.Update{DeliverySent: workflow.Ptr(res.Delivered)}
	if !res.Delivered {
		upd.DeliveryError = workflow.Ptr(res.Reason)
	}
	return upd, nil
}
