// Package exempt evaluates operator-defined CEL expressions that decide
// whether a joining user skips the challenge entirely.
package exempt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/ext"

	"github.com/atareao/expulsabot/internal"
)

var ErrNotBool = errors.New("exempt: expression did not evaluate to a bool")

// NewEnvironment creates the CEL environment exemption rules compile
// against. Declaring every variable up front makes invalid rules fail at
// load time instead of blowing up at runtime.
func NewEnvironment() (*cel.Env, error) {
	return cel.NewEnv(
		ext.Strings(
			ext.StringsLocale("en_US"),
			ext.StringsValidateFormatCalls(true),
		),

		// default all timestamps to UTC
		cel.DefaultUTCTimeZone(true),

		// Variables exposed to CEL programs:
		cel.Variable("userId", cel.IntType),
		cel.Variable("username", cel.StringType),
		cel.Variable("isBot", cel.BoolType),
		cel.Variable("chatId", cel.IntType),
		cel.Variable("whitelisted", cel.BoolType),
	)
}

// Params describes the joining user a rule is evaluated against.
type Params struct {
	UserID      int64
	Username    string
	IsBot       bool
	ChatID      int64
	Whitelisted bool
}

func (p Params) Parent() cel.Activation { return nil }

func (p Params) ResolveName(name string) (any, bool) {
	switch name {
	case "userId":
		return p.UserID, true
	case "username":
		return p.Username, true
	case "isBot":
		return p.IsBot, true
	case "chatId":
		return p.ChatID, true
	case "whitelisted":
		return p.Whitelisted, true
	default:
		return nil, false
	}
}

type Rule struct {
	src     string
	program cel.Program
}

func NewRule(env *cel.Env, src string) (*Rule, error) {
	interm, iss := env.Compile(src)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("exempt: can't compile rule %q: %w", src, iss.Err())
	}

	ast, iss := env.Check(interm)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("exempt: can't check rule %q: %w", src, iss.Err())
	}

	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("%w: rule %q has type %s", ErrNotBool, src, ast.OutputType())
	}

	program, err := env.Program(
		ast,
		cel.EvalOptions(
			// optimize regular expressions right now instead of on the fly
			cel.OptOptimize,
		),
	)
	if err != nil {
		return nil, fmt.Errorf("exempt: can't build program for rule %q: %w", src, err)
	}

	return &Rule{src: src, program: program}, nil
}

func (r *Rule) Hash() string {
	return internal.FastHash(r.src)
}

func (r *Rule) Check(ctx context.Context, params Params) (bool, error) {
	result, _, err := r.program.ContextEval(ctx, params)
	if err != nil {
		return false, fmt.Errorf("exempt: rule %q failed: %w", r.src, err)
	}

	if val, ok := result.(types.Bool); ok {
		return bool(val), nil
	}

	return false, fmt.Errorf("%w: rule %q", ErrNotBool, r.src)
}

// Policy is an ordered list of exemption rules. A user is exempt when any
// rule evaluates to true.
type Policy struct {
	rules []*Rule
}

func NewPolicy(srcs []string) (*Policy, error) {
	env, err := NewEnvironment()
	if err != nil {
		return nil, fmt.Errorf("exempt: can't build CEL environment: %w", err)
	}

	result := &Policy{}
	for _, src := range srcs {
		rule, err := NewRule(env, src)
		if err != nil {
			return nil, err
		}
		result.rules = append(result.rules, rule)
	}

	return result, nil
}

func (p *Policy) Len() int {
	if p == nil {
		return 0
	}
	return len(p.rules)
}

// Exempt reports whether any rule matches. A rule that fails to evaluate is
// logged and treated as not matching.
func (p *Policy) Exempt(ctx context.Context, params Params) bool {
	if p == nil {
		return false
	}

	for _, rule := range p.rules {
		ok, err := rule.Check(ctx, params)
		if err != nil {
			slog.Error("exemption rule failed", "hash", rule.Hash(), "err", err)
			continue
		}

		if ok {
			return true
		}
	}

	return false
}
