package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"text/tabwriter"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"benchd/internal/bench"
	"benchd/internal/config"
	"benchd/internal/events"
	"benchd/pkg/types"
)

type askOptions struct {
	json       bool
	noProgress bool
	sessionID  string
}

func newAskCmd(opts *rootOptions) *cobra.Command {
	var ao askOptions
	cmd := &cobra.Command{
		Use:   "ask PROMPT...",
		Short: "Broadcast one prompt to the configured models and print the comparison",
		Example: "  benchd ask -c benchd.yaml \"explain monads\"\n" +
			"  benchd ask -c benchd.yaml --json \"@GPT4o @Llama3 write a haiku\"",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Resolve(opts.flags)
			if err != nil {
				return err
			}
			if opts.flags.LogLevel == "" {
				cfg.LogLevel = "warn"
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return ask(ctx, cfg, opts, ao, strings.Join(args, " "))
		},
	}
	cmd.Flags().BoolVar(&ao.json, "json", false, "Print results as JSON")
	cmd.Flags().BoolVar(&ao.noProgress, "no-progress", false, "Hide the progress bar")
	cmd.Flags().StringVar(&ao.sessionID, "session", "", "Chat session to continue (needs a state file)")
	return cmd
}

// askOutput is the --json shape.
type askOutput struct {
	SessionID string                  `json:"session_id"`
	Prompt    string                  `json:"prompt"`
	Results   []types.BenchmarkResult `json:"results"`
	Outcomes  []types.OutcomeStatus   `json:"outcomes"`
}

// progress advances a bar on every terminal session event.
type progress struct {
	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

func (p *progress) set(bar *progressbar.ProgressBar) {
	p.mu.Lock()
	p.bar = bar
	p.mu.Unlock()
}

func (p *progress) Publish(ev events.Event) {
	if ev.Name != "session_done" && ev.Name != "session_error" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		_ = p.bar.Add(1)
	}
}

func ask(ctx context.Context, cfg config.Config, opts *rootOptions, ao askOptions, prompt string) error {
	log := newLogger(opts.stderr, cfg.LogLevel, cfg.LogFormat)
	prog := &progress{}
	a, err := buildApp(cfg, log, prog)
	if err != nil {
		return err
	}
	defer a.Close()

	plan, err := a.engine.Prepare(prompt, ao.sessionID)
	if err != nil {
		return err
	}
	if !ao.noProgress && !ao.json {
		bar := progressbar.NewOptions(len(plan.Results),
			progressbar.OptionSetWriter(opts.stderr),
			progressbar.OptionSetDescription(fmt.Sprintf("Broadcasting to %d models", len(plan.Results))),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSetRenderBlankState(true),
			progressbar.OptionClearOnFinish(),
		)
		prog.set(bar)
		defer bar.Finish()
	}
	rep := a.engine.Execute(ctx, plan)

	results := make([]types.BenchmarkResult, 0, len(rep.Outcomes))
	for _, o := range rep.Outcomes {
		if r, ok := a.store.Result(o.ResultID); ok {
			results = append(results, r)
		}
	}
	if ao.json {
		out := askOutput{SessionID: rep.SessionID, Prompt: rep.Prompt, Results: results, Outcomes: rep.Response().Outcomes}
		enc := json.NewEncoder(opts.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	return printReport(opts.stdout, rep, results)
}

// printReport writes the per-model metrics table followed by each answer.
func printReport(w io.Writer, rep bench.Report, results []types.BenchmarkResult) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MODEL\tSTATUS\tTTFT(ms)\tTPS\tTOKENS\tTOTAL(ms)")
	for _, o := range rep.Outcomes {
		m := o.Metrics
		fmt.Fprintf(tw, "%s\t%s\t%.0f\t%.1f\t%d\t%.0f\n", o.ModelID, statusLabel(o), m.TTFT, m.TPS, m.TokenCount, m.TotalDuration)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, r := range results {
		fmt.Fprintf(w, "\n== %s ==\n", r.ModelID)
		if r.Error != "" {
			fmt.Fprintf(w, "error: %s\n", r.Error)
			continue
		}
		fmt.Fprintln(w, strings.TrimSpace(r.Response))
	}
	return nil
}

func statusLabel(o bench.Outcome) string {
	if o.OK() {
		return "ok"
	}
	return string(o.Err.Kind)
}
