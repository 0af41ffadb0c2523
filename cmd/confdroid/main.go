//  Copyright (c) 2023 Uber Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// main package builds confdroid, the standalone driver of the trigger extraction engine. It
// loads a program dump, analyzes its entry points and writes the ranked findings.
//
//	confdroid [-config confdroid.yaml] [-entry <sig>]... [-format text|json] [-o out] dump.yaml[.zst|.s2|.gz]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/huaxunhuang/confdroid-sub110/config"
	"github.com/huaxunhuang/confdroid-sub110/ir"
	"github.com/huaxunhuang/confdroid-sub110/report"
	"github.com/huaxunhuang/confdroid-sub110/runner"
	"github.com/huaxunhuang/confdroid-sub110/symexec"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run is main without the process plumbing, so that it can be tested.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("confdroid", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configPath = fs.String("config", "", "Path of the YAML configuration file.")
		format     = fs.String("format", "", "Report format (text or json), overriding report.format.")
		output     = fs.String("o", "", "Report file, overriding report.output. Standard output if empty.")
		entries    stringList
	)
	fs.Var(&entries, "entry", "Signature of a method to analyze instead of the dump's entry points. May be repeated.")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: confdroid [flags] <program dump>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return exitUsage
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "confdroid: %v\n", err)
		return exitUsage
	}
	if *format != "" {
		cfg.Report.Format = *format
	}
	if *output != "" {
		cfg.Report.Output = *output
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "confdroid: %v\n", err)
		return exitUsage
	}

	log := config.NewLogger(cfg.Log, stderr)
	if err := analyze(ctx, cfg, fs.Arg(0), entries, stdout, log); err != nil {
		log.WithError(err).Error("analysis failed")
		return exitFailure
	}
	return exitOK
}

func analyze(ctx context.Context, cfg *config.Config, dump string, entrySigs []string, stdout io.Writer, log *logrus.Logger) error {
	prog, err := ir.Open(dump)
	if err != nil {
		return err
	}
	entries, err := selectEntries(prog, entrySigs)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"dump": dump, "methods": len(prog.Methods()), "entry_points": len(entries)}).Info("program loaded")

	if timeout := cfg.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	registry := prometheus.NewRegistry()
	r := runner.New(prog, runner.Config{
		Options:    symexec.OptionsFromConfig(cfg.Analysis),
		Workers:    cfg.Workers,
		MaxClauses: cfg.Analysis.MaxClauses,
	}, log, runner.NewMetrics(registry))

	res, err := r.Run(ctx, entries...)
	partial := false
	if err != nil {
		if !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			return err
		}
		// Whatever was found before the deadline is still reported.
		log.WithError(err).Warn("analysis cut short, reporting partial results")
		partial = true
	}

	rep := report.Build(res, partial)
	if err := writeReport(cfg.Report, rep, stdout); err != nil {
		return err
	}
	if path := cfg.Report.SQLite; path != "" {
		if err := report.WriteSQLite(path, rep); err != nil {
			return err
		}
		n, err := report.CountRows(path, "findings")
		if err != nil {
			return err
		}
		log.WithFields(logrus.Fields{"path": path, "findings": n}).Info("sqlite report written")
	}
	if path := cfg.Metrics.Output; path != "" {
		if err := prometheus.WriteToTextfile(path, registry); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}

func writeReport(cfg config.ReportConfig, rep *report.Report, stdout io.Writer) (err error) {
	if cfg.Output == "" {
		return report.Write(stdout, rep, cfg.Format)
	}
	f, err := os.Create(cfg.Output)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close report: %w", cerr)
		}
	}()
	return report.Write(f, rep, cfg.Format)
}

// selectEntries resolves the requested signatures, or returns the dump's entry points when none
// is requested.
func selectEntries(prog *ir.Program, sigs []string) ([]*ir.Method, error) {
	if len(sigs) == 0 {
		if len(prog.EntryPoints()) == 0 {
			return nil, errors.New("the program declares no entry point, use -entry")
		}
		return prog.EntryPoints(), nil
	}
	out := make([]*ir.Method, 0, len(sigs))
	for _, sig := range sigs {
		m := prog.Method(sig)
		if m == nil {
			return nil, fmt.Errorf("unknown entry point %s", sig)
		}
		out = append(out, m)
	}
	return out, nil
}

// stringList collects the values of a repeated flag. Signatures contain commas, so they cannot
// be passed as one comma-separated value.
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, " ") }

func (l *stringList) Set(v string) error {
	*l = append(*l, strings.TrimSpace(v))
	return nil
}
