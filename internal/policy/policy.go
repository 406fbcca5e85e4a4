// Package policy evaluates retry decisions expressed as govaluate expressions.
package policy

import (
	"fmt"
	"strings"

	"github.com/Knetic/govaluate"
)

// DefaultRetryExpression retries until the attempt budget is spent.
const DefaultRetryExpression = "attempt < max_attempts"

// RetryInput is the data a retry expression can reference.
//
//	attempt       number of attempts already made (1 after the first)
//	max_attempts  configured attempt budget
//	status_code   HTTP status of the last failed attempt, 0 when no response was received
type RetryInput struct {
	Attempt     int
	MaxAttempts int
	StatusCode  int
}

func (in RetryInput) parameters() map[string]interface{} {
	return map[string]interface{}{
		"attempt":      float64(in.Attempt),
		"max_attempts": float64(in.MaxAttempts),
		"status_code":  float64(in.StatusCode),
	}
}

// RetryPolicy decides whether another attempt should be made.
type RetryPolicy struct {
	source      string
	expr        *govaluate.EvaluableExpression
	maxAttempts int
}

// NewRetryPolicy compiles expression. An empty expression uses DefaultRetryExpression.
func NewRetryPolicy(expression string, maxAttempts int) (*RetryPolicy, error) {
	if maxAttempts <= 0 {
		return nil, fmt.Errorf("max attempts must be positive, got %d", maxAttempts)
	}
	if strings.TrimSpace(expression) == "" {
		expression = DefaultRetryExpression
	}
	expr, err := govaluate.NewEvaluableExpression(expression)
	if err != nil {
		return nil, fmt.Errorf("failed to compile retry expression '%s': %w", expression, err)
	}
	return &RetryPolicy{source: expression, expr: expr, maxAttempts: maxAttempts}, nil
}

// MustRetryPolicy is NewRetryPolicy for expressions known to be valid.
func MustRetryPolicy(expression string, maxAttempts int) *RetryPolicy {
	p, err := NewRetryPolicy(expression, maxAttempts)
	if err != nil {
		panic(err)
	}
	return p
}

// MaxAttempts returns the configured attempt budget.
func (p *RetryPolicy) MaxAttempts() int {
	return p.maxAttempts
}

// String returns the source expression.
func (p *RetryPolicy) String() string {
	return p.source
}

// ShouldRetry evaluates the expression after a failed attempt.
// The attempt budget is a hard cap regardless of what the expression returns.
func (p *RetryPolicy) ShouldRetry(attempt, statusCode int) (bool, error) {
	if attempt >= p.maxAttempts {
		return false, nil
	}
	in := RetryInput{Attempt: attempt, MaxAttempts: p.maxAttempts, StatusCode: statusCode}
	result, err := p.expr.Evaluate(in.parameters())
	if err != nil {
		return false, fmt.Errorf("error evaluating retry expression '%s': %w", p.source, err)
	}
	retry, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("retry expression '%s' did not evaluate to a boolean, got %T", p.source, result)
	}
	return retry, nil
}
