package workflow

import "time"

// Route is the decision taken after the answer step.
type Route int

const (
	// RouteReview leaves the loop and proceeds to review.
	RouteReview Route = iota
	// RouteContinue loops back to the entry step.
	RouteContinue
)

func (r Route) String() string {
	switch r {
	case RouteContinue:
		return "continue"
	case RouteReview:
		return "review"
	default:
		return "unknown"
	}
}

// Router decides the conditional edge after the answer step. It must be
// total: every state maps to a Route.
type Router func(s State) Route

// TurnRouter continues only while the state asks for it and fewer than
// maxTurns passes have been made.
func TurnRouter(maxTurns int) Router {
	return func(s State) Route {
		if s.Continue && s.Turn < maxTurns {
			return RouteContinue
		}
		return RouteReview
	}
}

// DefaultMaxPasses is the executor-level cap on passes through entry.
const DefaultMaxPasses = 10

// Topology fixes the shape of the graph at construction time.
type Topology struct {
	// Notify adds the notify step between report and end.
	Notify bool
	// MaxTurns bounds the answer loop. Required, at least 1.
	MaxTurns int
	// MaxPasses is a hard cap on entry passes, independent of the router.
	MaxPasses int
	// RunTimeout is applied to the context of every step when positive.
	RunTimeout time.Duration
	// Router overrides TurnRouter(MaxTurns).
	Router Router
}
