// Package template expands ${var} and ${env:VAR} placeholders in command
// templates such as network profile scripts.
package template

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

// varPattern matches ${var}, ${env:VAR} and ${name:-default} placeholders.
var varPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// shellSafe matches values that need no quoting in a POSIX shell word.
var shellSafe = regexp.MustCompile(`^[A-Za-z0-9_./:=,+@%-]+$`)

// Vars maps placeholder names to their values.
type Vars map[string]any

// Names returns the variable names in sorted order.
func (v Vars) Names() []string {
	names := make([]string, 0, len(v))
	for name := range v {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Expander substitutes placeholders from Vars and the environment.
//
// A placeholder may carry a fallback, as in ${rate_mbit:-100} or
// ${env:NETEM_DEV:-eth0}; the fallback is used when the name is unknown
// or the environment variable is unset.
type Expander struct {
	Vars Vars
	// Quote, when set, is applied to every substituted value.
	Quote func(string) string
	// LookupEnv defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Expand replaces every placeholder in text.
// Returns all errors joined if multiple variables are missing.
// If text contains no placeholders, it is returned unchanged.
func (e Expander) Expand(text string) (string, error) {
	if !strings.Contains(text, "${") {
		return text, nil
	}

	lookupEnv := e.LookupEnv
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}

	var errs []error
	result := varPattern.ReplaceAllStringFunc(text, func(match string) string {
		name := strings.TrimSpace(match[2 : len(match)-1])
		name, fallback, hasFallback := strings.Cut(name, ":-")
		name = strings.TrimSpace(name)

		var value string
		var found bool
		if envName, ok := strings.CutPrefix(name, "env:"); ok {
			value, found = lookupEnv(envName)
			if !found && !hasFallback {
				errs = append(errs, fmt.Errorf("env var %q not set", envName))
				return match
			}
		} else {
			var raw any
			raw, found = e.Vars[name]
			if found {
				value = fmt.Sprintf("%v", raw)
			} else if !hasFallback {
				errs = append(errs, fmt.Errorf("variable %q not found (known: %s)", name, strings.Join(e.Vars.Names(), ", ")))
				return match
			}
		}
		if !found {
			value = fallback
		}

		if e.Quote != nil {
			return e.Quote(value)
		}
		return value
	})

	if len(errs) > 0 {
		return "", errors.Join(errs...)
	}
	return result, nil
}

// ExpandMap applies Expand to all values in a map.
// Returns all errors joined if any substitution fails.
func (e Expander) ExpandMap(m map[string]string) (map[string]string, error) {
	if m == nil {
		return nil, nil
	}

	result := make(map[string]string, len(m))
	var errs []error

	for k, v := range m {
		expanded, err := e.Expand(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", k, err))
			continue
		}
		result[k] = expanded
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return result, nil
}

// ShellQuote returns s as a single POSIX shell word. Plain words are
// returned unchanged.
func ShellQuote(s string) string {
	if shellSafe.MatchString(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
