// Package condition decides whether a task should run.
package condition

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/felixgeelhaar/makeflow/internal/envctx"
	"github.com/felixgeelhaar/makeflow/internal/errors"
	"github.com/felixgeelhaar/makeflow/internal/log"
	"github.com/felixgeelhaar/makeflow/internal/task"
)

// ScriptRunner runs a condition script; a zero exit status means true.
type ScriptRunner interface {
	RunCondition(ctx context.Context, script *task.Script, ec *envctx.Context) (bool, error)
}

// Evaluator evaluates task conditions against a Context.
type Evaluator struct {
	Platform task.Platform
	// Dir is the base directory for relative file criteria.
	Dir     string
	Scripts ScriptRunner
	Logger  *log.Logger
}

// Evaluate reports whether every criterion of cond holds and, when present,
// script exits successfully. A nil cond and nil script always hold.
func (e *Evaluator) Evaluate(ctx context.Context, cond *task.Condition, script *task.Script, ec *envctx.Context) (bool, error) {
	if cond != nil {
		ok, reason, err := e.criteria(cond, ec)
		if err != nil {
			return false, err
		}
		if !ok {
			e.logger().Debug("condition not met", "reason", reason)
			if cond.FailMessage != "" {
				e.logger().Info(cond.FailMessage)
			}
			return false, nil
		}
	}

	if script.IsEmpty() {
		return true, nil
	}
	if e.Scripts == nil {
		return false, errors.New(errors.ErrCodeConditionScript, "condition script given but no script runner configured")
	}
	ok, err := e.Scripts.RunCondition(ctx, script, ec)
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeConditionScript, "condition script failed to run", err)
	}
	if !ok {
		e.logger().Debug("condition script returned false")
	}
	return ok, nil
}

func (e *Evaluator) criteria(c *task.Condition, ec *envctx.Context) (bool, string, error) {
	if len(c.Platforms) > 0 && !contains(c.Platforms, string(e.Platform)) {
		return false, fmt.Sprintf("platform %s not in %v", e.Platform, c.Platforms), nil
	}

	if len(c.Profiles) > 0 {
		active := false
		for _, p := range c.Profiles {
			if ec.ProfileActive(p) {
				active = true
				break
			}
		}
		if !active {
			return false, fmt.Sprintf("profile %s not in %v", ec.Profile(), c.Profiles), nil
		}
	}

	for _, key := range c.EnvSet {
		if !ec.Has(key) {
			return false, fmt.Sprintf("env %s is not set", key), nil
		}
	}
	for _, key := range c.EnvNotSet {
		if ec.Has(key) {
			return false, fmt.Sprintf("env %s is set", key), nil
		}
	}
	for key, want := range c.Env {
		if got, ok := ec.Get(key); !ok || got != want {
			return false, fmt.Sprintf("env %s is not %q", key, want), nil
		}
	}
	for key, part := range c.EnvContains {
		if got, ok := ec.Get(key); !ok || !strings.Contains(got, part) {
			return false, fmt.Sprintf("env %s does not contain %q", key, part), nil
		}
	}
	for _, key := range c.EnvTrue {
		if !ec.IsTrue(key) {
			return false, fmt.Sprintf("env %s is not true", key), nil
		}
	}
	for _, key := range c.EnvFalse {
		if !ec.Has(key) || ec.IsTrue(key) {
			return false, fmt.Sprintf("env %s is not false", key), nil
		}
	}

	for _, path := range c.FilesExist {
		if !e.exists(ec.Expand(path)) {
			return false, fmt.Sprintf("file %s does not exist", path), nil
		}
	}
	for _, path := range c.FilesNotExist {
		if e.exists(ec.Expand(path)) {
			return false, fmt.Sprintf("file %s exists", path), nil
		}
	}

	if c.Expression != "" {
		ok, err := Expression(c.Expression, ec, e.Platform)
		if err != nil {
			return false, "", err
		}
		if !ok {
			return false, fmt.Sprintf("expression %q is false", c.Expression), nil
		}
	}

	return true, "", nil
}

// Expression evaluates a boolean expr-lang expression. The expression sees
// env (a map of the Context), profile, profiles and platform.
func Expression(source string, ec *envctx.Context, platform task.Platform) (bool, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return true, nil
	}

	env := map[string]any{
		"env":      ec.Map(),
		"profile":  ec.Profile(),
		"profiles": append([]string{ec.Profile()}, ec.AdditionalProfiles()...),
		"platform": string(platform),
	}
	program, err := expr.Compile(source, expr.Env(env), expr.AsBool())
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeConditionInvalid, fmt.Sprintf("compile condition %q", source), err)
	}
	output, err := expr.Run(program, env)
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeConditionInvalid, fmt.Sprintf("eval condition %q", source), err)
	}
	result, ok := output.(bool)
	if !ok {
		return false, errors.Newf(errors.ErrCodeConditionInvalid, "condition %q did not return bool (got %T)", source, output)
	}
	return result, nil
}

func (e *Evaluator) exists(path string) bool {
	if !filepath.IsAbs(path) && e.Dir != "" {
		path = filepath.Join(e.Dir, path)
	}
	_, err := os.Stat(path)
	return err == nil
}

func (e *Evaluator) logger() *log.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return log.DefaultLogger()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
