package steps

import (
	"strings"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/rzbill/cleave/internal/results"
)

// celFilter wraps a compiled CEL program evaluated against feed entries by
// polling and subscribe reads. When disabled, Eval always returns true.
type celFilter struct {
	prog    cel.Program
	enabled bool
}

func newCELFilter(expr string) (celFilter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return celFilter{enabled: false}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("entity_id", cel.StringType),
		cel.Variable("done", cel.BoolType),
		cel.Variable("splits", cel.IntType),
		cel.Variable("split_count", cel.IntType),
		cel.Variable("segments", cel.IntType),
		cel.Variable("depth", cel.IntType),
		cel.Variable("error", cel.StringType),
		cel.Variable("at_ms", cel.IntType),
		// Current time in ms for windowed filters
		cel.Variable("now_ms", cel.IntType),
	)
	if err != nil {
		return celFilter{}, err
	}
	ast, iss := env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return celFilter{}, iss.Err()
	}
	checked, iss2 := env.Check(ast)
	if iss2 != nil && iss2.Err() != nil {
		return celFilter{}, iss2.Err()
	}
	prog, err := env.Program(checked)
	if err != nil {
		return celFilter{}, err
	}
	return celFilter{prog: prog, enabled: true}, nil
}

// Eval evaluates the compiled expression against one entry. When disabled,
// returns true. Evaluation errors drop the entry.
func (f celFilter) Eval(e results.Entry) bool {
	if !f.enabled {
		return true
	}
	out, _, err := f.prog.Eval(map[string]any{
		"entity_id":   e.EntityID,
		"done":        e.Done,
		"splits":      int64(e.Splits),
		"split_count": e.SplitCount,
		"segments":    int64(e.Segments),
		"depth":       e.Depth,
		"error":       e.Error,
		"at_ms":       e.AtMs,
		"now_ms":      time.Now().UnixMilli(),
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
