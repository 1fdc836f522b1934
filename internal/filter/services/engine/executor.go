package engine

import (
	"errors"
	"fmt"

	"github.com/surfgate/filterd/internal/filter/compiler"
	"github.com/surfgate/filterd/internal/filter/domain"
	"github.com/surfgate/filterd/internal/filter/pool"
	"github.com/surfgate/filterd/internal/filter/render"
)

// NewExecutor returns the pool executor that runs both job kinds on worker
// slots. Kept separate from the Engine so the pool stays a pure concurrency
// component with no knowledge of what it runs.
func NewExecutor() pool.Executor {
	return func(job pool.Job) (any, *pool.JobError) {
		switch job.Kind {
		case pool.KindCompileSubset:
			rs, ok := job.Payload.(*domain.RuleSet)
			if !ok || rs == nil {
				return nil, &pool.JobError{
					Kind:  pool.MalformedInput,
					Cause: fmt.Errorf("compile payload is %T, want *domain.RuleSet", job.Payload),
				}
			}
			m, err := compiler.Compile(rs, job.Origin)
			if err != nil {
				var ce *compiler.CompileError
				if errors.As(err, &ce) && ce.Fatal {
					return nil, &pool.JobError{Kind: pool.MalformedInput, Cause: err}
				}
				return nil, &pool.JobError{Kind: pool.Crashed, Cause: err}
			}
			return m, nil

		case pool.KindRenderDocument:
			doc, ok := job.Payload.(render.Document)
			if !ok {
				return nil, &pool.JobError{
					Kind:  pool.MalformedInput,
					Cause: fmt.Errorf("render payload is %T, want render.Document", job.Payload),
				}
			}
			if doc.Input == "" {
				return nil, &pool.JobError{
					Kind:  pool.MalformedInput,
					Cause: errors.New("empty document"),
				}
			}
			return render.Render(doc), nil

		default:
			return nil, &pool.JobError{
				Kind:  pool.MalformedInput,
				Cause: fmt.Errorf("unknown job kind %d", job.Kind),
			}
		}
	}
}
