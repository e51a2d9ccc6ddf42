// Package config defines the batch manifest: the YAML file that describes a
// set of transformation jobs plus the dialect and output style they share.
package config

import (
	"github.com/chervil-lang/chervil/pkg/chervil/gen"
	"github.com/chervil-lang/chervil/pkg/chervil/parser"
)

// Manifest is the root of a batch manifest file.
type Manifest struct {
	Dialect DialectConfig `yaml:"dialect"`
	Format  FormatConfig  `yaml:"format"`
	Fold    bool          `yaml:"fold"`
	History string        `yaml:"history"` // sqlite path; empty disables history
	Report  string        `yaml:"report"`  // report output path (.md or .html); empty disables
	Jobs    []JobConfig   `yaml:"jobs"`

	// BaseDir is the directory of the manifest file, used to resolve
	// relative paths. Set by Load, not by YAML.
	BaseDir string `yaml:"-"`
}

// JobConfig describes one job in the manifest.
type JobConfig struct {
	Name   string `yaml:"name"`
	Input  string `yaml:"input"`
	Output string `yaml:"output"`
}

// DialectConfig selects the parsing mode and enabled extensions.
// A nil extensions list means all extensions; an empty list means none.
type DialectConfig struct {
	Mode                        string    `yaml:"mode"`
	AllowReturnOutsideFunction  bool      `yaml:"allow_return_outside_function"`
	AllowImportExportEverywhere bool      `yaml:"allow_import_export_everywhere"`
	Extensions                  *[]string `yaml:"extensions"`
}

// ToOptions converts the dialect section to parser options.
func (d DialectConfig) ToOptions() parser.Options {
	opts := parser.DefaultOptions()
	if d.Mode != "" {
		opts.Mode = d.Mode
	}
	opts.AllowReturnOutsideFunction = d.AllowReturnOutsideFunction
	opts.AllowImportExportEverywhere = d.AllowImportExportEverywhere

	if d.Extensions == nil {
		return opts
	}
	opts.Markup = false
	opts.Types = false
	opts.Decorators = false
	opts.OptionalChaining = false
	opts.NullishCoalescing = false
	opts.DynamicImport = false
	for _, name := range *d.Extensions {
		switch name {
		case "markup":
			opts.Markup = true
		case "types":
			opts.Types = true
		case "decorators":
			opts.Decorators = true
		case "optional-chaining":
			opts.OptionalChaining = true
		case "nullish-coalescing":
			opts.NullishCoalescing = true
		case "dynamic-import":
			opts.DynamicImport = true
		}
	}
	return opts
}

// knownExtensions lists the manifest spellings accepted in dialect.extensions.
var knownExtensions = map[string]bool{
	"markup":             true,
	"types":              true,
	"decorators":         true,
	"optional-chaining":  true,
	"nullish-coalescing": true,
	"dynamic-import":     true,
}

// FormatConfig selects the output style.
type FormatConfig struct {
	Style       string `yaml:"style"`    // "readable" or "compact"
	Comments    string `yaml:"comments"` // "keep" or "drop"
	RetainLines bool   `yaml:"retain_lines"`
}

// ToOptions converts the format section to generator options.
func (f FormatConfig) ToOptions() gen.Options {
	opts := gen.DefaultOptions()
	if f.Style == "compact" {
		opts.Compact = true
	}
	if f.Comments == "drop" {
		opts.Comments = false
	}
	opts.RetainLines = f.RetainLines
	return opts
}

// Defaults returns a manifest with default settings applied.
func Defaults() *Manifest {
	return &Manifest{
		Dialect: DialectConfig{Mode: "module"},
		Format:  FormatConfig{Style: "readable", Comments: "keep"},
	}
}
