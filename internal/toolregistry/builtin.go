package toolregistry

import (
	"context"
	"fmt"
	"time"

	"github.com/Knetic/govaluate"
)

// RegisterBuiltins adds the gateway's demonstration tools: current_time
// (no args) and calculator (one expression argument), exercising the full
// registry contract end to end.
func RegisterBuiltins(r *Registry) error {
	if err := r.Register(currentTimeBinding()); err != nil {
		return err
	}
	return r.Register(calculatorBinding())
}

// currentTimeBinding is grounded on the original current_time_tool: returns
// the current time, no arguments required.
func currentTimeBinding() Binding {
	return Binding{
		Name:        "current_time",
		Description: "Returns the current UTC time in RFC3339 format.",
		Schema:      ArgSchema{},
		Invoke: func(ctx context.Context, args map[string]interface{}) (string, string, error) {
			return time.Now().UTC().Format(time.RFC3339), "", nil
		},
	}
}

// calculatorBinding evaluates an arithmetic expression via govaluate,
// demonstrating the registry's schema validation on a required string arg.
func calculatorBinding() Binding {
	return Binding{
		Name:        "calculator",
		Description: "Evaluates an arithmetic expression and returns the result.",
		Schema: ArgSchema{Fields: []Field{
			{Name: "expression", Type: "string", Required: true},
		}},
		Invoke: func(ctx context.Context, args map[string]interface{}) (string, string, error) {
			expr, _ := args["expression"].(string)
			evaluable, err := govaluate.NewEvaluableExpression(expr)
			if err != nil {
				return "", "", fmt.Errorf("calculator: parse expression %q: %w", expr, err)
			}
			result, err := evaluable.Evaluate(nil)
			if err != nil {
				return "", "", fmt.Errorf("calculator: evaluate expression %q: %w", expr, err)
			}
			return fmt.Sprintf("%v", result), "", nil
		},
	}
}
