package cel

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"
)

// RequestVars is the view of a SIP request exposed to condition expressions.
// Header names are lower-cased; a header that repeats keeps every value in
// message order.
type RequestVars struct {
	Method      string
	RequestURI  string
	SessionCase string
	Registered  bool
	Headers     map[string][]string
	Body        string
}

type Evaluator struct {
	env *cel.Env
}

func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("method", cel.StringType),
		cel.Variable("request_uri", cel.StringType),
		cel.Variable("session_case", cel.StringType),
		cel.Variable("registered", cel.BoolType),
		cel.Variable("headers", cel.MapType(cel.StringType, cel.ListType(cel.StringType))),
		cel.Variable("body", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Evaluator{env: env}, nil
}

func (e *Evaluator) ValidateConditionExpression(expression string) error {
	_, err := e.CompileCondition(expression)
	return err
}

// CompileCondition compiles expression and rejects anything that does not
// produce a bool.
func (e *Evaluator) CompileCondition(expression string) (cel.Program, error) {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile CEL expression: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("condition expression must return bool, got %v", ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	return program, nil
}

func (e *Evaluator) EvaluateCondition(ctx context.Context, program cel.Program, req RequestVars) (bool, error) {
	headers := req.Headers
	if headers == nil {
		headers = map[string][]string{}
	}

	vars := map[string]interface{}{
		"method":       req.Method,
		"request_uri":  req.RequestURI,
		"session_case": req.SessionCase,
		"registered":   req.Registered,
		"headers":      headers,
		"body":         req.Body,
	}

	result, _, err := program.ContextEval(ctx, vars)
	if err != nil {
		return false, fmt.Errorf("failed to evaluate CEL expression: %w", err)
	}

	boolVal, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("CEL expression did not return bool, got %T", result.Value())
	}

	return boolVal, nil
}

// Evaluate compiles and runs expression in one step.
func (e *Evaluator) Evaluate(ctx context.Context, expression string, req RequestVars) (bool, error) {
	program, err := e.CompileCondition(expression)
	if err != nil {
		return false, err
	}
	return e.EvaluateCondition(ctx, program, req)
}
