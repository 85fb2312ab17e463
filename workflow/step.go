package workflow

import (
	"context"
)

// StepName identifies a node of the graph.
type StepName string

// Step names of the fixed topology.
const (
	StepEntry  StepName = "entry"
	StepSearch StepName = "search"
	StepAnswer StepName = "answer"
	StepReview StepName = "review"
	StepReport StepName = "report"
	StepNotify StepName = "notify"

	stepEnd StepName = "end"
)

// Step is one node of the graph. It reads the state and returns a diff.
type Step interface {
	Name() StepName
	Run(ctx context.Context, s State) (Update, error)
}

// StepFunc 步骤函数类型
type StepFunc func(ctx context.Context, s State) (Update, error)

// FuncStep 函数步骤实现
type FuncStep struct {
	name StepName
	fn   StepFunc
}

// NewFuncStep 创建函数步骤
func NewFuncStep(name StepName, fn StepFunc) *FuncStep {
	return &FuncStep{name: name, fn: fn}
}

func (s *FuncStep) Name() StepName {
	return s.name
}

func (s *FuncStep) Run(ctx context.Context, st State) (Update, error) {
	return s.fn(ctx, st)
}

// Steps binds an implementation to every node. Notify is only required
// when the topology enables it.
type Steps struct {
	Entry  Step
	Search Step
	Answer Step
	Review Step
	Report Step
	Notify Step
}

func (s Steps) byName() map[StepName]Step {
	return map[StepName]Step{
		StepEntry:  s.Entry,
		StepSearch: s.Search,
		StepAnswer: s.Answer,
		StepReview: s.Review,
		StepReport: s.Report,
		StepNotify: s.Notify,
	}
}
