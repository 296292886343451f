package descriptor

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/stevenle/topsort"

	"github.com/felixgeelhaar/makeflow/internal/condition"
	"github.com/felixgeelhaar/makeflow/internal/envctx"
	"github.com/felixgeelhaar/makeflow/internal/errors"
	"github.com/felixgeelhaar/makeflow/internal/scriptengine"
	"github.com/felixgeelhaar/makeflow/internal/task"
)

var envReference = regexp.MustCompile(`\$\{([^}]+)\}`)

// ScriptCapturer runs env scripts and returns their output.
type ScriptCapturer interface {
	Capture(ctx context.Context, lines []string, ec *envctx.Context, dir string) (string, error)
}

// EnvEvaluator applies env sections to a Context.
type EnvEvaluator struct {
	Scripts    ScriptCapturer
	Conditions *condition.Evaluator
	// Dir is where env scripts run and script files are resolved.
	Dir string
}

// Apply evaluates env into ec. Plain entries are applied first, in an order
// where every entry comes after the entries of the same section it
// references. Profile sub-sections follow: the main profile first, then the
// additional profiles.
func (e *EnvEvaluator) Apply(ctx context.Context, env task.Env, ec *envctx.Context) error {
	if len(env) == 0 {
		return nil
	}
	if err := e.applySection(ctx, env, ec); err != nil {
		return err
	}

	for _, name := range activeProfiles(env, ec) {
		if err := e.applySection(ctx, env[name].Profile, ec); err != nil {
			return err
		}
	}
	return nil
}

func activeProfiles(env task.Env, ec *envctx.Context) []string {
	var active []string
	for _, name := range sortedKeys(env) {
		if env[name].Kind == task.EnvProfile && ec.ProfileActive(name) {
			active = append(active, name)
		}
	}
	main := ec.Profile()
	sort.SliceStable(active, func(i, j int) bool {
		return strings.EqualFold(active[i], main) && !strings.EqualFold(active[j], main)
	})
	return active
}

func (e *EnvEvaluator) applySection(ctx context.Context, section task.Env, ec *envctx.Context) error {
	order, err := EnvOrder(section)
	if err != nil {
		return err
	}
	for _, key := range order {
		if err := e.applyValue(ctx, key, section[key], ec); err != nil {
			return err
		}
	}
	return nil
}

func (e *EnvEvaluator) applyValue(ctx context.Context, key string, v task.EnvValue, ec *envctx.Context) error {
	switch v.Kind {
	case task.EnvString:
		ec.Set(key, ec.Expand(v.Value))
	case task.EnvBool, task.EnvNumber:
		ec.Set(key, v.Value)
	case task.EnvList:
		ec.Set(key, strings.Join(ec.ExpandAll(v.List), ";"))
	case task.EnvUnset:
		ec.Unset(key)
	case task.EnvDecode:
		source := ec.Expand(v.Source)
		switch mapped, ok := v.Mapping[source]; {
		case ok:
			ec.Set(key, ec.Expand(mapped))
		case v.DefaultValue != nil:
			ec.Set(key, ec.Expand(*v.DefaultValue))
		default:
			ec.Set(key, source)
		}
	case task.EnvConditional:
		ok, err := e.conditions().Evaluate(ctx, v.Condition, nil, ec)
		if err != nil {
			return errors.Wrap(errors.ErrCodeEnvValueInvalid, "evaluate condition of env "+key, err)
		}
		if ok {
			ec.Set(key, ec.Expand(v.Value))
		}
	case task.EnvScript:
		if e.Scripts == nil {
			return errors.Newf(errors.ErrCodeEnvValueInvalid, "env %s needs a script engine", key)
		}
		lines, err := scriptengine.LoadLines(v.Script, e.Dir)
		if err != nil {
			return err
		}
		out, err := e.Scripts.Capture(ctx, lines, ec, e.Dir)
		if err != nil {
			return errors.Wrap(errors.ErrCodeEnvValueInvalid, "run script of env "+key, err)
		}
		ec.Set(key, out)
	case task.EnvProfile:
	default:
		return errors.Newf(errors.ErrCodeEnvValueInvalid, "env %s has unsupported kind %q", key, v.Kind)
	}
	return nil
}

func (e *EnvEvaluator) conditions() *condition.Evaluator {
	if e.Conditions != nil {
		return e.Conditions
	}
	return &condition.Evaluator{Platform: task.CurrentPlatform(), Dir: e.Dir}
}

// EnvOrder returns the plain entries of section so that an entry follows
// the entries of the same section it references through ${NAME}. A self
// reference reads the previous value and adds no ordering constraint. Ties
// are broken by name.
func EnvOrder(section task.Env) ([]string, error) {
	graph := topsort.NewGraph()
	var keys []string
	for _, key := range sortedKeys(section) {
		if section[key].Kind == task.EnvProfile {
			continue
		}
		keys = append(keys, key)
		graph.AddNode(key)
	}

	for _, key := range keys {
		for _, ref := range references(section[key]) {
			if ref == key {
				continue
			}
			if v, ok := section[ref]; ok && v.Kind != task.EnvProfile {
				graph.AddEdge(key, ref)
			}
		}
	}

	seen := make(map[string]bool, len(keys))
	order := make([]string, 0, len(keys))
	for _, key := range keys {
		sorted, err := graph.TopSort(key)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeEnvValueInvalid, "env entries reference each other in a cycle", err)
		}
		for _, name := range sorted {
			if !seen[name] {
				seen[name] = true
				order = append(order, name)
			}
		}
	}
	return order, nil
}

func references(v task.EnvValue) []string {
	texts := append([]string{v.Value, v.Source}, v.List...)
	if v.DefaultValue != nil {
		texts = append(texts, *v.DefaultValue)
	}
	for _, mapped := range v.Mapping {
		texts = append(texts, mapped)
	}
	if v.Script != nil {
		texts = append(texts, v.Script.Lines...)
	}

	var refs []string
	for _, text := range texts {
		for _, m := range envReference.FindAllStringSubmatch(text, -1) {
			refs = append(refs, m[1])
		}
	}
	return refs
}

func sortedKeys(env task.Env) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
