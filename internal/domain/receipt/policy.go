package receipt

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"goodsflow/internal/core/apperror"
)

// AcceptancePolicy evaluates a CEL expression against each receipt line
// before it is accepted. Warehouses use it for site-specific gates the
// engine should not hardcode, e.g.
//
//	received <= pending && (extra_received == 0.0 || material != "glass jar")
//
// The expression must evaluate to a boolean. A nil policy accepts
// everything.
type AcceptancePolicy struct {
	expr    string
	program cel.Program
}

// PolicyInput is the variable set exposed to the expression.
type PolicyInput struct {
	Material      string
	Ordered       float64
	Pending       float64
	Received      float64
	ExtraReceived float64
	ExtraPending  float64
}

// NewAcceptancePolicy compiles an acceptance expression.
func NewAcceptancePolicy(expr string) (*AcceptancePolicy, error) {
	env, err := cel.NewEnv(
		cel.Variable("material", cel.StringType),
		cel.Variable("ordered", cel.DoubleType),
		cel.Variable("pending", cel.DoubleType),
		cel.Variable("received", cel.DoubleType),
		cel.Variable("extra_received", cel.DoubleType),
		cel.Variable("extra_pending", cel.DoubleType),
	)
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile acceptance policy: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("acceptance policy must return bool, got %s", ast.OutputType())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build acceptance program: %w", err)
	}

	return &AcceptancePolicy{expr: expr, program: program}, nil
}

// Check evaluates the policy for one line. Returns a validation error
// when the policy rejects the line or the expression fails to evaluate.
func (p *AcceptancePolicy) Check(in PolicyInput) error {
	if p == nil {
		return nil
	}

	out, _, err := p.program.Eval(map[string]any{
		"material":       in.Material,
		"ordered":        in.Ordered,
		"pending":        in.Pending,
		"received":       in.Received,
		"extra_received": in.ExtraReceived,
		"extra_pending":  in.ExtraPending,
	})
	if err != nil {
		return apperror.NewValidation("acceptance policy evaluation failed").
			WithDetail("material", in.Material).
			WithCause(err)
	}

	accepted, ok := out.Value().(bool)
	if !ok {
		return apperror.NewValidation("acceptance policy returned non-boolean").
			WithDetail("material", in.Material)
	}
	if !accepted {
		return apperror.NewValidation("line rejected by acceptance policy").
			WithDetail("material", in.Material).
			WithDetail("policy", p.expr)
	}
	return nil
}
