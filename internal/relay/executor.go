package relay

import (
	"context"
	"fmt"
	"time"

	"agentrelay/internal/toolspec"
)

// Call is one tool invocation requested by the model, with its arguments already
// decoded. Arguments that failed to decode arrive as an empty map.
type Call struct {
	ID        string
	Name      string
	Arguments map[string]any
}

type Executor interface {
	Execute(ctx context.Context, call Call) (string, error)
}

// SimulatedExecutor answers every call with a deterministic templated string and
// never reaches outside the process.
type SimulatedExecutor struct{}

func (SimulatedExecutor) Execute(_ context.Context, call Call) (string, error) {
	if call.Name == "buscar_web" {
		var query string
		if v, ok := call.Arguments["query"]; ok && v != nil {
			query = fmt.Sprint(v)
		}
		return "Resultado simulado para búsqueda: " + query, nil
	}
	args, err := toolspec.CanonicalJSON(call.Arguments)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("[Simulación] Herramienta '%s' ejecutada con argumentos: %s", call.Name, args), nil
}

// execute runs one call under its own deadline. Failures are reported to the model as
// the tool result instead of aborting the turn.
func execute(ctx context.Context, exec Executor, call Call, timeout time.Duration) string {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		out string
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := exec.Execute(ctx, call)
		done <- result{out, err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return "error: " + res.err.Error()
		}
		return res.out
	case <-ctx.Done():
		return "error: " + ctx.Err().Error()
	}
}
