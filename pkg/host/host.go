// Package host is the library surface of the language host (spec.md §6):
// parse_template, discover_project_files, load_project,
// create_execution_plan, the jinja-lite operations, and evaluate_builtin.
// It is the only place ambient configuration (spec.md SPEC_FULL.md's
// Options) is threaded through the pipeline. Options.Context has the
// internal/preprocess Context type, so cmd/yamlhost imports that package
// to build it; every pipeline call still goes through this package.
package host

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/awsqed/yaml-iac-host/internal/ast"
	"github.com/awsqed/yaml-iac-host/internal/builtins"
	"github.com/awsqed/yaml-iac-host/internal/diag"
	"github.com/awsqed/yaml-iac-host/internal/discovery"
	"github.com/awsqed/yaml-iac-host/internal/lower"
	"github.com/awsqed/yaml-iac-host/internal/parse"
	"github.com/awsqed/yaml-iac-host/internal/plan"
	"github.com/awsqed/yaml-iac-host/internal/preprocess"
	"github.com/awsqed/yaml-iac-host/internal/project"
)

// Options is the only configuration surface the core exposes (spec.md
// SPEC_FULL.md §2's "Configuration"): explicit, caller-supplied, never
// read from environment or a global flag set by this package itself.
type Options struct {
	// Context supplies the preprocessor's variable map (spec.md §4.2).
	// Entries are strings or []string (a context-supplied list a {% for %}
	// loop may iterate).
	Context preprocess.Context
	// Logger receives structured diagnostics as the pipeline runs; nil is
	// treated as zap.NewNop() so embedding this package never forces a
	// logger on a caller (spec.md §5's "no process-wide state").
	Logger *zap.Logger
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// Summary is parse_template's result (spec.md §6).
type Summary struct {
	Name           string
	Description    string
	ResourceCount  int
	VariableCount  int
	OutputCount    int
	ConfigCount    int
	ComponentCount int
	ResourceNames  []string
	VariableNames  []string
	OutputNames    []string
	HasErrors      bool
	Diagnostics    diag.Diagnostics
}

// ParseTemplate parses a single template's text (already merged/rendered
// by the caller if needed) into a Summary (spec.md §6).
func ParseTemplate(text string) Summary {
	return summarizeText(text, "")
}

func summarizeText(text, filename string) Summary {
	parsed := parse.Parse(text, filename)
	diags := parsed.Diagnostics

	raw := project.Merge([]project.ParsedFile{{Path: filename, Root: parsed.Root}})
	raw.Diagnostics.Extend(diags)
	p := lower.Lower(raw)

	var resourceNames, variableNames, outputNames []string
	componentCount := 0
	for _, r := range p.Resources {
		if r.Component {
			componentCount++
		} else {
			resourceNames = append(resourceNames, r.Name)
		}
	}
	for _, v := range p.Variables {
		variableNames = append(variableNames, v.Name)
	}
	for _, o := range p.Outputs {
		outputNames = append(outputNames, o.Name)
	}

	return Summary{
		Name:           p.Name,
		Description:    p.Description,
		ResourceCount:  len(resourceNames),
		VariableCount:  len(variableNames),
		OutputCount:    len(outputNames),
		ConfigCount:    len(p.Config),
		ComponentCount: componentCount,
		ResourceNames:  resourceNames,
		VariableNames:  variableNames,
		OutputNames:    outputNames,
		HasErrors:      p.HasErrors(),
		Diagnostics:    p.Diagnostics,
	}
}

// DiscoverProjectFiles enumerates a project directory's files (spec.md
// §4.1, §6).
func DiscoverProjectFiles(dir string) (discovery.Result, error) {
	return discovery.Discover(dir)
}

// LoadedProject is load_project's result (spec.md §6): a Summary plus the
// source map and file count.
type LoadedProject struct {
	Summary
	SourceMap map[string]string
	FileCount int
}

// LoadProject discovers, preprocesses, parses, merges, and lowers a
// project directory (spec.md §6's load_project).
func LoadProject(dir string, opts Options) (LoadedProject, error) {
	log := opts.logger()
	disc, err := discovery.Discover(dir)
	if err != nil {
		log.Debug("discovery failed", zap.String("dir", dir), zap.Error(err))
		return LoadedProject{}, err
	}

	files, err := readAndPreprocess(disc, opts)
	if err != nil {
		log.Debug("preprocessing failed", zap.Error(err))
		return LoadedProject{}, err
	}

	var diags diag.Diagnostics
	var parsedFiles []project.ParsedFile
	for _, f := range files {
		res := parse.Parse(f.text, f.path)
		diags.Extend(res.Diagnostics)
		parsedFiles = append(parsedFiles, project.ParsedFile{Path: f.path, Root: res.Root})
	}

	raw := project.Merge(parsedFiles)
	raw.Diagnostics.Extend(diags)
	p := lower.Lower(raw)

	var resourceNames, variableNames, outputNames []string
	componentCount := 0
	for _, r := range p.Resources {
		if r.Component {
			componentCount++
		} else {
			resourceNames = append(resourceNames, r.Name)
		}
	}
	for _, v := range p.Variables {
		variableNames = append(variableNames, v.Name)
	}
	for _, o := range p.Outputs {
		outputNames = append(outputNames, o.Name)
	}

	log.Debug("loaded project", zap.String("dir", dir), zap.Int("files", disc.FileCount), zap.Bool("has_errors", p.HasErrors()))

	return LoadedProject{
		Summary: Summary{
			Name:           p.Name,
			Description:    p.Description,
			ResourceCount:  len(resourceNames),
			VariableCount:  len(variableNames),
			OutputCount:    len(outputNames),
			ConfigCount:    len(p.Config),
			ComponentCount: componentCount,
			ResourceNames:  resourceNames,
			VariableNames:  variableNames,
			OutputNames:    outputNames,
			HasErrors:      p.HasErrors(),
			Diagnostics:    p.Diagnostics,
		},
		SourceMap: p.SourceMap,
		FileCount: disc.FileCount,
	}, nil
}

// CreateExecutionPlan runs the full pipeline from project directory to
// topologically ordered execution plan (spec.md §6, §4.7).
func CreateExecutionPlan(dir string, opts Options) (plan.Plan, error) {
	log := opts.logger()
	disc, err := discovery.Discover(dir)
	if err != nil {
		return plan.Plan{}, err
	}

	files, err := readAndPreprocess(disc, opts)
	if err != nil {
		return plan.Plan{}, err
	}

	var diags diag.Diagnostics
	var parsedFiles []project.ParsedFile
	for _, f := range files {
		res := parse.Parse(f.text, f.path)
		diags.Extend(res.Diagnostics)
		parsedFiles = append(parsedFiles, project.ParsedFile{Path: f.path, Root: res.Root})
	}

	raw := project.Merge(parsedFiles)
	raw.Diagnostics.Extend(diags)
	p := lower.Lower(raw)

	result := plan.Build(p)
	result.Diagnostics.Sort()
	log.Debug("built execution plan", zap.String("dir", dir), zap.Int("nodes", len(result.Nodes)), zap.Int("levels", len(result.Levels)))
	return result, nil
}

type renderedFile struct {
	path string
	text string
}

// readAndPreprocess reads every discovered file and runs the preprocessor
// over it when a context is supplied and the file contains templating
// (spec.md §4.2: "runs per file if, and only if, a context map is
// supplied and the text contains any templating. Otherwise files pass
// through untouched."). A top-level preprocessor failure is fatal (spec.md
// §7).
func readAndPreprocess(disc discovery.Result, opts Options) ([]renderedFile, error) {
	paths := append([]string{disc.MainFile}, disc.AdditionalFiles...)
	out := make([]renderedFile, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read project file %q: %w", path, err)
		}
		text := string(data)
		if opts.Context != nil {
			// PreprocessJinja is itself a no-op on text with no templating
			// (spec.md §4.2: "passes through untouched"), so it is always
			// safe to call once a context is supplied.
			rendered, err := preprocess.PreprocessJinja(text, path, opts.Context)
			if err != nil {
				return nil, fmt.Errorf("failed to preprocess %q: %w", path, err)
			}
			text = rendered
		}
		out = append(out, renderedFile{path: path, text: text})
	}
	return out, nil
}

// EvaluateBuiltin is the standalone built-in evaluator (spec.md §4.6, §6,
// §7): it returns an error directly rather than a diagnostic, since there
// is no plan structure to carry one in.
func EvaluateBuiltin(name string, arg interface{}) (interface{}, error) {
	return builtins.Evaluate(name, arg)
}

// HasJinjaBlocks re-exports the preprocessor operation (spec.md §6).
func HasJinjaBlocks(text string) bool { return preprocess.HasJinjaBlocks(text) }

// StripJinjaBlocks re-exports the preprocessor operation (spec.md §6).
func StripJinjaBlocks(text string) string { return preprocess.StripJinjaBlocks(text) }

// ValidateJinja re-exports the preprocessor operation (spec.md §6).
func ValidateJinja(text, filename string) error { return preprocess.ValidateJinja(text, filename) }

// PreprocessJinja re-exports the preprocessor operation (spec.md §6).
func PreprocessJinja(text, filename string, ctx preprocess.Context) (string, error) {
	return preprocess.PreprocessJinja(text, filename, ctx)
}

// SerializeExpr projects an AST expression to its tagged, language-neutral
// form (spec.md §4.8).
func SerializeExpr(e ast.Expr) ast.Value { return ast.Serialize(e) }

// SerializePlan projects a Plan to its tagged, language-neutral form
// (spec.md §3, §6), suitable for IPC to the external deployment engine.
func SerializePlan(p plan.Plan) ast.Value { return plan.Serialize(p) }
