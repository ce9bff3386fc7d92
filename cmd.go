// Copyright 2025 ByteDance Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/cloudwego/rora/internal/config"
	"github.com/cloudwego/rora/internal/rpc"
	"github.com/cloudwego/rora/internal/service"
	"github.com/cloudwego/rora/lang/log"
	"github.com/cloudwego/rora/lang/python"
	"github.com/cloudwego/rora/llm/mcp"
	"github.com/cloudwego/rora/version"
)

type globalFlags struct {
	configPath string
	verbose    bool
	python     string
	timeout    string
}

// load resolves configuration and applies flags on top of it.
func (g *globalFlags) load() (*config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	if g.python != "" {
		cfg.Runner.Python = g.python
	}
	if g.timeout != "" {
		d, err := config.ParseTimeout(g.timeout)
		if err != nil {
			return nil, errors.Wrap(err, "--timeout")
		}
		cfg.Runner.Timeout = d
	}
	if g.verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.SetLogLevel(log.ParseLevel(cfg.Log.Level))
	if cfg.Log.File != "" {
		if err := log.SetOutputFile(cfg.Log.File); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	serve := func(cmd *cobra.Command, args []string) error {
		cfg, err := g.load()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		s := rpc.NewServer(cmd.InOrStdin(), cmd.OutOrStdout())
		s.RegisterService(service.New(cfg))
		return s.Serve(ctx)
	}

	root := &cobra.Command{
		Use:   "rora",
		Short: "Editor companion that generates and runs Python unit tests",
		Long: `rora speaks Content-Length framed JSON-RPC on stdin and stdout.
Run without a subcommand it serves the editor protocol with the methods
parse_file, generate_tests, run_tests and validate_syntax.

The model is chosen with API_TYPE, API_KEY, MODEL_NAME and BASE_URL, or
GEMINI_API_KEY alone for Gemini. A .env file in the working directory is
read as well.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "YAML config file")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "Enable debug logging")
	pf.StringVar(&g.python, "python", "", "Python interpreter used to run pytest (default python3)")
	pf.StringVar(&g.timeout, "timeout", "", "Test run timeout, in seconds or as a duration (default 60s)")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Serve the editor protocol on stdio (the default)",
			Args:  cobra.NoArgs,
			RunE:  serve,
		},
		newMCPCmd(g),
		newParseCmd(g),
		newValidateCmd(g),
		newRunCmd(g),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintln(cmd.OutOrStdout(), version.Version)
			},
		},
	)
	return root
}

func newMCPCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the same operations as MCP tools on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			svr := mcp.NewServer(mcp.ServerOptions{
				ServerName:    "rora",
				ServerVersion: version.Version,
				Service:       service.New(cfg),
			})
			err = svr.ServeStdio(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

func newParseCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "parse <file>",
		Short: "List the functions of a Python file as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			res, err := service.New(cfg).ParseFile(cmd.Context(), service.ParseFileParams{FilePath: args[0]})
			if err != nil {
				return err
			}
			if err := printJSON(cmd, res); err != nil {
				return err
			}
			if res.Error != "" {
				return errors.New(res.Error)
			}
			return nil
		},
	}
}

func newValidateCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Check the syntax of a Python file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			code, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Wrap(err, "read source")
			}
			out := python.NewChecker(cfg.Runner.Python).Check(cmd.Context(), string(code))
			if err := printJSON(cmd, out); err != nil {
				return err
			}
			if !out.Valid {
				return errors.Errorf("%s: line %d: %s", args[0], out.Line, out.Error)
			}
			return nil
		},
	}
}

func newRunCmd(g *globalFlags) *cobra.Command {
	var p service.RunTestsParams
	cmd := &cobra.Command{
		Use:   "run <path>",
		Short: "Run pytest on a file or directory and print the outcomes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			p.TestPath = args[0]
			res, err := service.New(cfg).RunTests(cmd.Context(), p)
			if err != nil {
				return err
			}
			if err := printJSON(cmd, res); err != nil {
				return err
			}
			switch {
			case res.Error != "":
				return errors.New(res.Error)
			case res.Failed > 0:
				return errors.Errorf("%d of %d tests failed", res.Failed, res.Total)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&p.TestFunction, "filter", "k", "", "Only run tests matching this pytest -k expression")
	cmd.Flags().BoolVar(&p.JSONReport, "json-report", false, "Read results from pytest-json-report instead of console output")
	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	js, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode output")
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(js))
	return err
}
