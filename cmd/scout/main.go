package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/jmhart/scout/internal/coordinator"
	"github.com/jmhart/scout/internal/ctxlog"
	"github.com/jmhart/scout/internal/graph"
	"github.com/jmhart/scout/internal/registry"
	"github.com/jmhart/scout/internal/strategy"
	"github.com/jmhart/scout/internal/validate"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	switch os.Args[1] {
	case "run":
		runCmd(os.Args[2:])
	case "validate":
		validateCmd(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage:")
	fmt.Fprintln(os.Stderr, "  scout run --graph <file.json|file.yaml> [--config <run.yaml>] [--policy strict|hybrid|graceful] [--user <id>] [--log-level <level>]")
	fmt.Fprintln(os.Stderr, "  scout validate --graph <file-or-glob> [--json]")
}

func validateCmd(args []string) {
	var pattern string
	var asJSON bool
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--graph":
			i++
			if i >= len(args) {
				fmt.Fprintln(os.Stderr, "--graph requires a value")
				os.Exit(1)
			}
			pattern = args[i]
		case "--json":
			asJSON = true
		default:
			fmt.Fprintf(os.Stderr, "unknown flag %q\n", args[i])
			usage()
			os.Exit(1)
		}
	}
	if pattern == "" {
		usage()
		os.Exit(1)
	}

	paths, err := expandGraphPaths(pattern)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	anyErrors := false
	for _, path := range paths {
		g, err := graph.Load(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			anyErrors = true
			continue
		}
		diags := validate.Validate(g)
		res := validate.Summarize(diags)
		if asJSON {
			out, _ := json.MarshalIndent(map[string]any{"graph": path, "result": res, "diagnostics": diags}, "", "  ")
			fmt.Println(string(out))
		} else {
			printResult(path, res)
		}
		if !res.Valid {
			anyErrors = true
		}
	}
	if anyErrors {
		os.Exit(1)
	}
}

func printResult(path string, res validate.Result) {
	if res.Valid && len(res.Warnings) == 0 {
		fmt.Printf("%s: ok\n", path)
		return
	}
	for _, e := range res.Errors {
		fmt.Printf("%s: ERROR %s\n", path, e)
	}
	for _, w := range res.Warnings {
		fmt.Printf("%s: WARNING %s\n", path, w)
	}
}

// expandGraphPaths treats the argument as a doublestar glob when it contains
// glob metacharacters, and as a literal path otherwise.
func expandGraphPaths(pattern string) ([]string, error) {
	if !strings.ContainsAny(pattern, "*?[{") {
		return []string{pattern}, nil
	}
	paths, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("bad glob %q: %w", pattern, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no graphs match %q", pattern)
	}
	return paths, nil
}

func runCmd(args []string) {
	var graphPath, configPath, policyFlag, userFlag, logLevelFlag string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--graph", "--config", "--policy", "--user", "--log-level":
			flag := args[i]
			i++
			if i >= len(args) {
				fmt.Fprintf(os.Stderr, "%s requires a value\n", flag)
				os.Exit(1)
			}
			switch flag {
			case "--graph":
				graphPath = args[i]
			case "--config":
				configPath = args[i]
			case "--policy":
				policyFlag = args[i]
			case "--user":
				userFlag = args[i]
			case "--log-level":
				logLevelFlag = args[i]
			}
		default:
			fmt.Fprintf(os.Stderr, "unknown flag %q\n", args[i])
			usage()
			os.Exit(1)
		}
	}
	if graphPath == "" {
		usage()
		os.Exit(1)
	}

	cfg := &RunConfigFile{}
	if configPath != "" {
		loaded, err := LoadRunConfigFile(configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if policyFlag == "" {
		policyFlag = cfg.Policy
	}
	if userFlag == "" {
		userFlag = cfg.UserID
	}
	if logLevelFlag == "" {
		logLevelFlag = cfg.LogLevel
	}

	policy, err := coordinator.ParseFailurePolicy(policyFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(logLevelFlag)}))
	ctx := ctxlog.WithLogger(context.Background(), logger)

	g, err := graph.Load(graphPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	res := validate.Summarize(validate.Validate(g))
	for _, w := range res.Warnings {
		logger.Warn("graph warning", "warning", w)
	}
	if !res.Valid {
		for _, e := range res.Errors {
			fmt.Fprintf(os.Stderr, "ERROR %s\n", e)
		}
		os.Exit(1)
	}

	coord := coordinator.New(simulationRegistry(), policy)
	results, err := coord.Execute(ctx, g, userFlag)
	if err != nil {
		var abort *coordinator.AbortError
		if errors.As(err, &abort) {
			// Partial results are still worth printing on an abort.
			printResults(results)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	printResults(results)
}

// simulationRegistry registers a canned-data executor for every allow-listed
// strategy type. Real deployments replace this wiring at startup with
// executors that talk to the actual backends.
func simulationRegistry() *registry.Registry {
	reg := registry.New()
	for t := range validate.AllowedTypes {
		if t == "cross_reference" {
			_ = reg.Register(t, &strategy.CrossReferenceSimulator{})
			continue
		}
		_ = reg.Register(t, &strategy.Simulator{Type: t})
	}
	return reg
}

func printResults(results any) {
	out, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	fmt.Println(string(out))
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
