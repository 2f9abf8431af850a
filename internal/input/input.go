// Package input resolves named workflow parameters from a layered set of
// sources: command flags, environment variables, values derived from other
// resolved parameters, and interactive prompts. Every candidate is
// normalized and validated before acceptance; interactive sources retry
// until a valid value is read.
package input

import (
	"fmt"
	"os"
	"strings"
)

// SourceKind identifies where a candidate value comes from.
type SourceKind int

const (
	// KindFlag is an explicit command-line flag value.
	KindFlag SourceKind = iota
	// KindEnv is an environment variable.
	KindEnv
	// KindDerived computes a candidate from already-resolved parameters.
	KindDerived
	// KindPrompt asks the operator on the interactive channel.
	KindPrompt
)

// Source is one provider in a parameter's ordered source list.
// Yield is nil for KindPrompt; for the other kinds it returns a candidate
// (possibly empty, meaning "nothing to offer") given the values resolved
// so far. A Yield error is not fatal: the source is skipped.
type Source struct {
	Kind  SourceKind
	Yield func(resolved map[string]string) (string, error)
}

// Flag wraps a flag variable as a source. The pointer is read at resolve
// time so cobra has already populated it.
func Flag(v *string) Source {
	return Source{Kind: KindFlag, Yield: func(map[string]string) (string, error) {
		return *v, nil
	}}
}

// Env reads an environment variable as a source.
func Env(name string) Source {
	return Source{Kind: KindEnv, Yield: func(map[string]string) (string, error) {
		return os.Getenv(name), nil
	}}
}

// Derived computes a candidate from previously resolved parameters.
func Derived(fn func(resolved map[string]string) (string, error)) Source {
	return Source{Kind: KindDerived, Yield: fn}
}

// Prompt marks the point in the source list where interactive prompting
// begins. Parameters without a Prompt source never prompt.
func Prompt() Source {
	return Source{Kind: KindPrompt}
}

// ParameterSpec describes one resolvable input.
type ParameterSpec struct {
	// Name identifies the parameter ("domain", "email", ...).
	Name string
	// Question is the interactive prompt text, without trailing colon.
	Question string
	// FlagName and EnvName are referenced in the failure message so a
	// non-interactive caller knows how to supply the value.
	FlagName string
	EnvName  string
	// Sources are tried in order; earlier sources take precedence.
	Sources []Source
	// Normalize, when set, is applied to every candidate before Validate.
	Normalize func(string) string
	// Validate rejects unacceptable candidates with a reason.
	Validate func(string) error
}

// UnresolvableInputError reports that no source produced a valid value and
// no interactive channel was available to ask for one.
type UnresolvableInputError struct {
	Name     string
	FlagName string
	EnvName  string
	Reason   string
}

func (e *UnresolvableInputError) Error() string {
	msg := fmt.Sprintf("parameter %q could not be resolved and no interactive terminal is available", e.Name)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	var hints []string
	if e.FlagName != "" {
		hints = append(hints, "--"+e.FlagName)
	}
	if e.EnvName != "" {
		hints = append(hints, e.EnvName+"=...")
	}
	if len(hints) > 0 {
		msg += fmt.Sprintf(" (supply it with %s)", strings.Join(hints, " or "))
	}
	return msg
}

// Resolver resolves parameters one at a time and records their values so
// later derived sources can reference them.
type Resolver struct {
	channel  *Channel
	resolved map[string]string
}

// NewResolver returns a resolver that prompts on ch when a parameter's
// non-interactive sources come up empty. ch may be nil, in which case
// resolution fails instead of prompting.
func NewResolver(ch *Channel) *Resolver {
	return &Resolver{channel: ch, resolved: make(map[string]string)}
}

// Value returns a previously resolved parameter value.
func (r *Resolver) Value(name string) string { return r.resolved[name] }

// Resolved returns a copy of all values resolved so far.
func (r *Resolver) Resolved() map[string]string {
	out := make(map[string]string, len(r.resolved))
	for k, v := range r.resolved {
		out[k] = v
	}
	return out
}

// Resolve runs the spec's sources in order and returns the first candidate
// that passes validation. Non-interactive sources are trusted after
// validation and never trigger a prompt; if none yields a valid value the
// interactive retry loop runs on the resolver's channel. The resolved
// value is recorded under spec.Name for later derived sources.
func (r *Resolver) Resolve(spec ParameterSpec) (string, error) {
	var (
		lastInvalid string
		lastReason  string
		promptable  bool
	)

	for _, src := range spec.Sources {
		if src.Kind == KindPrompt {
			promptable = true
			continue
		}
		candidate, err := src.Yield(r.resolved)
		if err != nil || candidate == "" {
			continue
		}
		candidate = r.normalize(spec, candidate)
		if err := spec.Validate(candidate); err != nil {
			lastInvalid, lastReason = candidate, err.Error()
			continue
		}
		r.resolved[spec.Name] = candidate
		return candidate, nil
	}

	if promptable && r.channel != nil {
		value, err := r.prompt(spec, lastInvalid)
		if err != nil {
			return "", err
		}
		r.resolved[spec.Name] = value
		return value, nil
	}

	return "", &UnresolvableInputError{
		Name:     spec.Name,
		FlagName: spec.FlagName,
		EnvName:  spec.EnvName,
		Reason:   lastReason,
	}
}

// prompt asks the operator until a candidate validates. The last invalid
// non-interactive candidate, if any, is offered as the default answer.
func (r *Resolver) prompt(spec ParameterSpec, deflt string) (string, error) {
	for {
		if deflt != "" {
			r.channel.Say("%s [%s]: ", spec.Question, deflt)
		} else {
			r.channel.Say("%s: ", spec.Question)
		}
		line, err := r.channel.ReadLine()
		if err != nil {
			return "", fmt.Errorf("read %s from terminal: %w", spec.Name, err)
		}
		candidate := strings.TrimSpace(line)
		if candidate == "" {
			candidate = deflt
		}
		candidate = r.normalize(spec, candidate)
		if err := spec.Validate(candidate); err != nil {
			r.channel.Say("Invalid %s: %v\n", spec.Name, err)
			deflt = candidate
			continue
		}
		return candidate, nil
	}
}

func (r *Resolver) normalize(spec ParameterSpec, candidate string) string {
	if spec.Normalize != nil {
		return spec.Normalize(candidate)
	}
	return candidate
}
