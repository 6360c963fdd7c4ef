package reststore

import (
	"context"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/Ratio1/reststore_go/pkg/record"
)

// Predicate selects records for Where. It must not modify the store.
type Predicate func(r record.Record, args map[string]any) bool

// Where returns the cached records for which match reports true, in cache
// order. It never contacts the server.
func (s *Store) Where(ctx context.Context, args map[string]any, match Predicate) ([]record.Record, error) {
	if match == nil {
		return nil, argumentError("where", "predicate must not be nil")
	}
	all, err := s.All(ctx)
	if err != nil {
		return nil, withOp(err, "where")
	}
	out := make([]record.Record, 0, len(all))
	for _, r := range all {
		if match(r, args) {
			out = append(out, r)
		}
	}
	return out, nil
}

// WhereExpr is Where with the predicate written as an expr-lang boolean
// expression, e.g. `age > args.threshold && status == "active"`. Record fields are
// top-level variables; "args" and "record" (the full field map) are also
// defined and shadow fields of the same name.
func (s *Store) WhereExpr(ctx context.Context, args map[string]any, expression string) ([]record.Record, error) {
	program, err := s.compile(expression)
	if err != nil {
		return nil, err
	}
	all, err := s.All(ctx)
	if err != nil {
		return nil, withOp(err, "where")
	}
	out := make([]record.Record, 0, len(all))
	for _, r := range all {
		fields := r.Fields()
		env := make(map[string]any, len(fields)+2)
		for k, v := range fields {
			env[k] = v
		}
		env["args"] = args
		env["record"] = fields

		result, err := expr.Run(program, env)
		if err != nil {
			return nil, &Error{Kind: KindArgument, Op: "where", Message: "evaluate " + expression, Err: err}
		}
		matched, ok := result.(bool)
		if !ok {
			return nil, argumentError("where", "expression %q returned %T, want bool", expression, result)
		}
		if matched {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) compile(expression string) (*vm.Program, error) {
	if expression == "" {
		return nil, argumentError("where", "expression must not be empty")
	}
	s.progMu.Lock()
	defer s.progMu.Unlock()
	if program, ok := s.programs[expression]; ok {
		return program, nil
	}
	program, err := expr.Compile(expression,
		expr.Env(map[string]any{}),
		expr.AllowUndefinedVariables(),
	)
	if err != nil {
		return nil, &Error{Kind: KindArgument, Op: "where", Message: "compile " + expression, Err: err}
	}
	s.programs[expression] = program
	return program, nil
}
