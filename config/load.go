package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	cherrors "github.com/chervil-lang/chervil/pkg/chervil/errors"
)

// Load reads a batch manifest with ENV interpolation, resolves relative
// paths against the manifest's directory, and validates it.
func Load(path string, getenv func(string) string) (*Manifest, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, configError(fmt.Sprintf("cannot resolve manifest path: %v", err))
	}
	baseDir := filepath.Dir(absPath)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, configError(fmt.Sprintf("cannot read manifest: %v", err))
	}

	// Interpolate environment variables
	data = interpolateEnv(data, getenv)

	m := Defaults()
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, configError(fmt.Sprintf("cannot parse manifest: %v", err))
	}
	m.BaseDir = baseDir

	// Resolve relative paths against the manifest directory
	for i := range m.Jobs {
		m.Jobs[i].Input = resolve(baseDir, m.Jobs[i].Input)
		m.Jobs[i].Output = resolve(baseDir, m.Jobs[i].Output)
	}
	m.History = resolve(baseDir, m.History)
	m.Report = resolve(baseDir, m.Report)

	if err := Validate(m); err != nil {
		return nil, err
	}
	return m, nil
}

func resolve(baseDir, path string) string {
	if path == "" || path == "-" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// envPattern matches ${VAR} or ${VAR:-default}
var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// interpolateEnv replaces ${VAR} and ${VAR:-default} patterns with environment values.
func interpolateEnv(data []byte, getenv func(string) string) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		parts := envPattern.FindSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := string(parts[1])
		value := getenv(varName)

		if value == "" && len(parts) >= 3 && len(parts[2]) > 0 {
			value = string(parts[2])
		}

		return []byte(value)
	})
}

// Validate checks the manifest for errors, aggregating every problem into
// one message so the user can fix them all in a single pass.
func Validate(m *Manifest) error {
	var errs []string

	if m.Dialect.Mode != "" && m.Dialect.Mode != "module" && m.Dialect.Mode != "script" {
		errs = append(errs, fmt.Sprintf("invalid dialect.mode: %s (must be module or script)", m.Dialect.Mode))
	}
	if m.Dialect.Extensions != nil {
		for _, name := range *m.Dialect.Extensions {
			if !knownExtensions[name] {
				errs = append(errs, fmt.Sprintf("unknown dialect extension: %s", name))
			}
		}
	}

	if m.Format.Style != "" && m.Format.Style != "readable" && m.Format.Style != "compact" {
		errs = append(errs, fmt.Sprintf("invalid format.style: %s (must be readable or compact)", m.Format.Style))
	}
	if m.Format.Comments != "" && m.Format.Comments != "keep" && m.Format.Comments != "drop" {
		errs = append(errs, fmt.Sprintf("invalid format.comments: %s (must be keep or drop)", m.Format.Comments))
	}

	if len(m.Jobs) == 0 {
		errs = append(errs, "no jobs defined")
	}
	for i, j := range m.Jobs {
		if j.Input == "" {
			errs = append(errs, fmt.Sprintf("jobs[%d]: input is required", i))
		}
	}

	if m.Report != "" {
		ext := strings.ToLower(filepath.Ext(m.Report))
		if ext != ".md" && ext != ".html" {
			errs = append(errs, fmt.Sprintf("report must end in .md or .html, got %s", m.Report))
		}
	}

	if len(errs) > 0 {
		return configError(strings.Join(errs, "; "))
	}
	return nil
}

func configError(cause string) *cherrors.Error {
	return cherrors.New("CONFIG-0001", map[string]any{"Cause": cause})
}
