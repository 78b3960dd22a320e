package rule

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/cel-go/cel"

	"github.com/slicertools/profshift/pkg/expr"
	"github.com/slicertools/profshift/pkg/profile"
)

// Type tags a condition variant.
type Type string

const (
	// TypeFilenameGlob matches the bare filename against a shell glob.
	TypeFilenameGlob Type = "filename_glob"

	// TypeExcludeFilenameGlob inverts [TypeFilenameGlob].
	TypeExcludeFilenameGlob Type = "exclude_filename_glob"

	// TypeFilepathGlob matches the slash-normalized absolute path against a
	// glob; `**` matches across separators.
	TypeFilepathGlob Type = "filepath_glob"

	// TypeExcludeFilepathGlob inverts [TypeFilepathGlob].
	TypeExcludeFilepathGlob Type = "exclude_filepath_glob"

	// TypeJSONValue compares a top-level document field against an expected
	// value.
	TypeJSONValue Type = "json_value"

	// TypeExpression evaluates a CEL expression over the document context.
	TypeExpression Type = "expression"
)

var (
	// ErrUnknownConditionType is returned for unrecognized condition tags.
	ErrUnknownConditionType = errors.New("unknown condition type")

	// ErrInvalidCondition is returned for conditions missing required fields.
	ErrInvalidCondition = errors.New("invalid condition")

	// celEnv is shared by all expression conditions. Compilation is guarded
	// inside [expr.Environment].
	celEnv = expr.MustNewEnvironment()
)

// Context carries everything a condition may inspect: the document as
// currently mutated, the bare filename, and the absolute file path.
type Context struct {
	Doc  *profile.Document
	Name string
	Path string
}

// Condition is one predicate over a [Context]. Its truth value is pure: it
// depends only on the context, never on other conditions.
type Condition struct {
	program *expr.LazyProgram

	// Type selects the condition variant.
	Type Type `json:"type" jsonschema:"title=Condition Type,enum=filename_glob,enum=exclude_filename_glob,enum=filepath_glob,enum=exclude_filepath_glob,enum=json_value,enum=expression"`

	// Pattern is the glob for the filename/filepath variants.
	Pattern string `json:"pattern,omitempty" jsonschema:"title=Glob Pattern"`

	// Key is the document field inspected by json_value.
	Key string `json:"key,omitempty" jsonschema:"title=Field Key"`

	// Value is the expected field value for json_value.
	Value any `json:"value,omitempty" jsonschema:"title=Expected Value"`

	// Expression is a CEL expression for the expression variant. It has
	// access to `doc`, `name`, and `path`, and must return a boolean.
	Expression string `json:"expression,omitempty" jsonschema:"title=CEL Expression"`

	// Negate inverts json_value: the condition passes when the field is
	// absent or differs.
	Negate bool `json:"negate,omitempty" jsonschema:"title=Negate"`

	progOnce sync.Once
}

// Matches reports whether the condition holds for ctx. Misconfigured
// conditions (unknown type, bad glob, invalid expression) return an error so
// the caller can skip the owning rule.
func (c *Condition) Matches(ctx Context) (bool, error) {
	switch c.Type {
	case TypeFilenameGlob:
		return c.matchGlob(ctx.Name, false)

	case TypeExcludeFilenameGlob:
		return c.matchGlob(ctx.Name, true)

	case TypeFilepathGlob:
		return c.matchGlob(filepath.ToSlash(ctx.Path), false)

	case TypeExcludeFilepathGlob:
		return c.matchGlob(filepath.ToSlash(ctx.Path), true)

	case TypeJSONValue:
		return c.matchJSONValue(ctx)

	case TypeExpression:
		return c.matchExpression(ctx)
	}

	return false, fmt.Errorf("%w: %q", ErrUnknownConditionType, c.Type)
}

func (c *Condition) matchGlob(subject string, exclude bool) (bool, error) {
	matched, err := doublestar.Match(c.Pattern, subject)
	if err != nil {
		return false, fmt.Errorf("%w: pattern %q: %w", ErrInvalidCondition, c.Pattern, err)
	}

	if exclude {
		return !matched, nil
	}

	return matched, nil
}

func (c *Condition) matchJSONValue(ctx Context) (bool, error) {
	if c.Key == "" || c.Value == nil {
		return false, fmt.Errorf("%w: json_value requires key and value", ErrInvalidCondition)
	}

	actual, ok := ctx.Doc.Get(c.Key)
	matched := ok && profile.ValueEqual(actual, c.Value)

	if c.Negate {
		return !matched, nil
	}

	return matched, nil
}

func (c *Condition) matchExpression(ctx Context) (bool, error) {
	program, err := c.compileExpression()
	if err != nil {
		return false, err
	}

	result, _, err := program.Eval(map[string]any{
		"doc":  expr.ConvertToCELValue(ctx.Doc.Map()),
		"name": ctx.Name,
		"path": ctx.Path,
	})
	if err != nil {
		return false, fmt.Errorf("%w: evaluate expression: %w", ErrInvalidCondition, err)
	}

	boolVal, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("%w: expression %q did not return a boolean", ErrInvalidCondition, c.Expression)
	}

	return boolVal, nil
}

// compileExpression compiles the CEL expression at most once, even across
// concurrent per-file pipelines.
//
//nolint:ireturn // Following CEL's function signature.
func (c *Condition) compileExpression() (cel.Program, error) {
	if c.Expression == "" {
		return nil, fmt.Errorf("%w: expression condition requires an expression", ErrInvalidCondition)
	}

	c.progOnce.Do(func() {
		c.program = expr.NewLazyProgram(celEnv, c.Expression)
	})

	program, err := c.program.Get()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCondition, err)
	}

	return program, nil
}

// Evaluate reports whether every condition in the ordered list holds for
// ctx. An empty list is vacuously satisfied. The first misconfigured
// condition aborts evaluation with an error.
func Evaluate(conditions []*Condition, ctx Context) (bool, error) {
	for _, c := range conditions {
		ok, err := c.Matches(ctx)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}

	return true, nil
}
