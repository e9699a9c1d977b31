// Package settle computes the point transfers of one finished hand.
//
// Settlement is a linear pipeline: fact validation, consistency validation,
// transaction generation, readiness filtering and aggregation. It holds no
// state between calls, so one Engine may be shared by any number of
// goroutines.
package settle

import (
	"errors"

	appErr "zhuoji-service/pkg/errors"
)

type Engine struct {
	rules Rules
	opts  Options
}

func New(rules Rules, opts Options) *Engine {
	return &Engine{rules: rules, opts: opts}
}

func (e *Engine) Rules() Rules {
	return e.rules
}

type Result struct {
	Scores       map[string]int      `json:"scores"`
	Details      map[string][]string `json:"details"`
	Transactions []Transaction       `json:"transactions"`
	Plan         []Payment           `json:"plan"`
}

// Settle validates f and returns its zero-sum settlement. Rejected hands
// return an error for which IsValidation is true; any other error is a
// defect in settlement itself.
func (e *Engine) Settle(f HandFacts) (*Result, error) {
	if err := ValidateFacts(f); err != nil {
		return nil, err
	}
	if err := CheckConsistency(f); err != nil {
		return nil, err
	}
	if err := e.rules.checkTags(&f); err != nil {
		return nil, err
	}

	raw, err := Generate(f, e.rules)
	if err != nil {
		return nil, err
	}
	final := Filter(f, raw, e.opts)
	scores, details, err := Aggregate(f.Players, final)
	if err != nil {
		return nil, err
	}
	return &Result{
		Scores:       scores,
		Details:      details,
		Transactions: final,
		Plan:         PaymentPlan(f.Players, scores),
	}, nil
}

// IsValidation reports whether err rejects the hand as described, as
// opposed to signalling a settlement defect.
func IsValidation(err error) bool {
	for _, target := range []error{
		appErr.ErrInvalidRoster,
		appErr.ErrPhysicalLimit,
		appErr.ErrKongStructure,
		appErr.ErrInconsistentOutcome,
		appErr.ErrMissingTarget,
		appErr.ErrUnknownScoring,
		appErr.ErrInvalidTile,
		appErr.ErrInvalidRules,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
