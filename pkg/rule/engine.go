package rule

import (
	"log/slog"

	"github.com/slicertools/profshift/pkg/profile"
)

// Outcome summarizes one engine pass over a document.
type Outcome struct {
	// Matched is true when at least one enabled rule's conditions held,
	// whether or not it changed the document.
	Matched bool

	// Changed is true when at least one field was written with a value that
	// differs from what was already there.
	Changed bool
}

// Engine applies a ruleset to documents. It is safe for concurrent use
// across files; each Apply call mutates only the given document.
type Engine struct {
	ruleset *Ruleset
}

// NewEngine creates an [Engine] for the given ruleset.
func NewEngine(ruleset *Ruleset) *Engine {
	return &Engine{ruleset: ruleset}
}

// Apply evaluates every enabled rule against ctx in order, mutating ctx.Doc
// in place. A rule whose conditions fail to evaluate is skipped with a log
// entry rather than aborting the file.
func (e *Engine) Apply(ctx Context) Outcome {
	logger := slog.With(slog.String("file", ctx.Name))

	var out Outcome

	for _, r := range e.ruleset.Rules {
		if !r.IsEnabled() {
			continue
		}

		ok, err := Evaluate(e.ruleset.EffectiveConditions(r), ctx)
		if err != nil {
			logger.Error("skipping rule",
				slog.String("rule", r.Name),
				slog.Any("error", err),
			)

			continue
		}
		if !ok {
			continue
		}

		out.Matched = true

		current, exists := ctx.Doc.Get(r.Name)
		switch {
		case !exists && !r.Add:
			// The rule matched but may not introduce the field.

		case !exists:
			ctx.Doc.Set(r.Name, r.Value.Any())
			out.Changed = true

			logger.Debug("added field",
				slog.String("key", r.Name),
				slog.Any("value", r.Value.Any()),
			)

		case !profile.ValueEqual(current, r.Value.Any()):
			ctx.Doc.Set(r.Name, r.Value.Any())
			out.Changed = true

			logger.Debug("updated field",
				slog.String("key", r.Name),
				slog.Any("value", r.Value.Any()),
			)
		}
	}

	return out
}
