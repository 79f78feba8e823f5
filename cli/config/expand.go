package config

import (
	"fmt"
	"os"
	"strings"
)

// Config and sources files may reference environment variables as ${VAR}
// or ${VAR:-default}. A reference to an unset, default-less variable is an
// error: a half-expanded pipeline config should fail before a job run, not
// surface later as an empty DB URL or bucket name. Write ${VAR:-} to
// declare a setting genuinely optional.

// ExpandStrict expands environment references in input, failing when any
// referenced variable is unset and carries no default.
func ExpandStrict(input string) (string, error) {
	out, missing := expand(input)
	if len(missing) > 0 {
		return "", fmt.Errorf("unset environment variables without defaults: %s",
			strings.Join(missing, ", "))
	}
	return out, nil
}

// expand walks the input once, rewriting each well-formed ${...} reference
// and collecting the names that could not be resolved. Text that merely
// looks like a reference (bad variable name, unterminated brace) passes
// through untouched.
func expand(input string) (string, []string) {
	var b strings.Builder
	var missing []string
	seen := make(map[string]bool)

	for {
		i := strings.Index(input, "${")
		if i < 0 {
			b.WriteString(input)
			break
		}
		b.WriteString(input[:i])

		end := strings.Index(input[i:], "}")
		if end < 0 {
			b.WriteString(input[i:])
			break
		}
		ref := input[i+2 : i+end]
		input = input[i+end+1:]

		name, def, hasDef := strings.Cut(ref, ":-")
		if !validEnvName(name) {
			b.WriteString("${")
			b.WriteString(ref)
			b.WriteString("}")
			continue
		}

		// An empty value counts as unset so ${VAR:-default} behaves the
		// same whether VAR is absent or exported empty.
		if v, ok := os.LookupEnv(name); ok && v != "" {
			b.WriteString(v)
			continue
		}
		if hasDef {
			b.WriteString(def)
			continue
		}
		if !seen[name] {
			seen[name] = true
			missing = append(missing, name)
		}
	}
	return b.String(), missing
}

// validEnvName reports whether s is a plausible environment variable name:
// letters, digits and underscores, not starting with a digit.
func validEnvName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z'):
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
