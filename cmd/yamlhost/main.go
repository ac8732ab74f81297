// Command yamlhost is the CLI entry point for the YAML IaC language host
// core: it wires together pkg/host's library surface the way
// codenerd/cmd/nerd/main.go wires its own cobra root command around a
// core library, with the same --verbose/zap.NewDevelopmentConfig switch.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/awsqed/yaml-iac-host/internal/preprocess"
	"github.com/awsqed/yaml-iac-host/pkg/host"
)

var (
	verbose  bool
	setFlags []string
	logger   *zap.Logger
)

func buildContext() (preprocess.Context, error) {
	if len(setFlags) == 0 {
		return nil, nil
	}
	ctx := preprocess.Context{}
	for _, kv := range setFlags {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid --set value %q, expected key=value", kv)
		}
		ctx[parts[0]] = parts[1]
	}
	return ctx, nil
}

func initLogger() {
	var cfg zap.Config
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	l, err := cfg.Build()
	if err != nil {
		l = zap.NewNop()
	}
	logger = l
}

func printJSON(v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Println(string(b))
	return nil
}

var rootCmd = &cobra.Command{
	Use:   "yamlhost",
	Short: "Language host for the YAML IaC template format",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		initLogger()
		return nil
	},
}

var planCmd = &cobra.Command{
	Use:   "plan <dir>",
	Short: "Build and print the execution plan for a project directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := buildContext()
		if err != nil {
			return err
		}
		p, err := host.CreateExecutionPlan(args[0], host.Options{Context: ctx, Logger: logger})
		if err != nil {
			return fmt.Errorf("failed to create execution plan: %w", err)
		}
		return printJSON(host.SerializePlan(p))
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary <file>",
	Short: "Summarize a single template file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %q: %w", args[0], err)
		}
		return printJSON(host.ParseTemplate(string(data)))
	},
}

var evalCmd = &cobra.Command{
	Use:   "eval <builtin> <json-arg>",
	Short: "Evaluate a single built-in function against a JSON argument",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		arg, err := decodeJSONArg(args[1])
		if err != nil {
			return fmt.Errorf("invalid JSON argument: %w", err)
		}
		v, err := host.EvaluateBuiltin(args[0], arg)
		if err != nil {
			return fmt.Errorf("evaluate_builtin failed: %w", err)
		}
		return printJSON(v)
	},
}

// decodeJSONArg decodes a JSON argument the way the boundary type
// round-trip in spec.md §4.6 requires: whole numbers become int64, not
// float64, so builtins like select/substring see the int64 their arity
// checks expect instead of failing a spurious TypeError.
func decodeJSONArg(raw string) (interface{}, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return normalizeJSONNumbers(v), nil
}

func normalizeJSONNumbers(v interface{}) interface{} {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = normalizeJSONNumbers(e)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, e := range t {
			out[k] = normalizeJSONNumbers(e)
		}
		return out
	default:
		return v
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable development-mode structured logging")
	rootCmd.PersistentFlags().StringArrayVar(&setFlags, "set", nil, "preprocessor context entry key=value (repeatable)")
	rootCmd.AddCommand(planCmd, summaryCmd, evalCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
