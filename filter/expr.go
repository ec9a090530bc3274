// Package filter selects polls with expr-lang expressions.
//
// An expression sees the poll's fields as top-level variables (ID,
// Question, OwnerID, CreatedAt, Options, OptionCount) plus helper
// functions, for example:
//
//	OptionCount >= 3 && contains(Question, "lunch")
//	ownedBy(7) || hasOption("pizza")
//	createdWithin(30)
package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/s0up4200/ballot/polls"
)

// timestampLayouts are tried in order when a helper needs a real time
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ExprFilter represents a compiled expr filter
type ExprFilter struct {
	program *vm.Program
	expr    string
	now     func() time.Time
}

// Compile compiles a filter expression
func Compile(expression string) (*ExprFilter, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, &CompilationError{Expression: expression, Reason: "empty expression"}
	}

	program, err := expr.Compile(expression,
		expr.Env(buildEnv(polls.Poll{}, time.Now)),
		expr.AsBool(),
	)
	if err != nil {
		return nil, &CompilationError{Expression: expression, Reason: err.Error(), Err: err}
	}

	return &ExprFilter{
		program: program,
		expr:    expression,
		now:     time.Now,
	}, nil
}

// Match evaluates the filter against a poll
func (f *ExprFilter) Match(poll polls.Poll) (bool, error) {
	result, err := expr.Run(f.program, buildEnv(poll, f.now))
	if err != nil {
		return false, &EvaluationError{Expression: f.expr, PollID: poll.ID, Reason: err.Error(), Err: err}
	}

	matched, ok := result.(bool)
	if !ok {
		return false, &EvaluationError{
			Expression: f.expr,
			PollID:     poll.ID,
			Reason:     fmt.Sprintf("expression returned %T, not bool", result),
		}
	}
	return matched, nil
}

// Apply returns the polls that match, preserving order. The first
// evaluation error aborts.
func (f *ExprFilter) Apply(list []polls.Poll) ([]polls.Poll, error) {
	matches := make([]polls.Poll, 0, len(list))
	for _, p := range list {
		ok, err := f.Match(p)
		if err != nil {
			return nil, err
		}
		if ok {
			matches = append(matches, p)
		}
	}
	return matches, nil
}

// String returns the original expression
func (f *ExprFilter) String() string {
	return f.expr
}

// ParseTimestamp interprets a server timestamp. The client keeps
// timestamps opaque; only filters and display code parse them.
func ParseTimestamp(ts polls.Timestamp) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, ts.String()); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func buildEnv(poll polls.Poll, now func() time.Time) map[string]any {
	optionTexts := make([]string, 0, len(poll.Options))
	for _, opt := range poll.Options {
		optionTexts = append(optionTexts, opt.Text)
	}

	return map[string]any{
		// Poll data
		"Poll":        poll,
		"ID":          poll.ID,
		"Question":    poll.Question,
		"OwnerID":     poll.OwnerID,
		"CreatedAt":   poll.CreatedAt.String(),
		"Options":     optionTexts,
		"OptionCount": len(poll.Options),

		// Poll helpers
		"hasOption": func(text string) bool {
			for _, t := range optionTexts {
				if strings.EqualFold(t, text) {
					return true
				}
			}
			return false
		},
		"ownedBy": func(ownerID int) bool {
			return poll.OwnerID == int64(ownerID)
		},
		"createdWithin": func(days int) bool {
			created, ok := ParseTimestamp(poll.CreatedAt)
			if !ok {
				return false
			}
			return now().Sub(created) <= time.Duration(days)*24*time.Hour
		},

		// String helpers
		"contains": func(str, substr string) bool {
			return strings.Contains(strings.ToLower(str), strings.ToLower(substr))
		},
		"startsWith": func(str, prefix string) bool {
			return strings.HasPrefix(strings.ToLower(str), strings.ToLower(prefix))
		},
		"endsWith": func(str, suffix string) bool {
			return strings.HasSuffix(strings.ToLower(str), strings.ToLower(suffix))
		},
		"lower": strings.ToLower,
		"upper": strings.ToUpper,
	}
}
