package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/seenimoa/stockanalyzer/api"
	"github.com/seenimoa/stockanalyzer/internal/agent"
	"github.com/seenimoa/stockanalyzer/internal/metrics"
	"github.com/seenimoa/stockanalyzer/internal/report"
	"github.com/seenimoa/stockanalyzer/pkg/models"
	"github.com/seenimoa/stockanalyzer/pkg/utils"
)

// --- Analyze Command ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze [symbol]",
	Short: "Run the full multi-agent analysis on a stock",
	Long: `Run every agent over a NASDAQ or NYSE symbol and print the result.

Examples:
  stockanalyzer analyze NVDA
  stockanalyzer analyze AAPL --output json
  stockanalyzer analyze MSFT --pdf msft.pdf --html msft.html`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		pdfPath, _ := cmd.Flags().GetString("pdf")
		htmlPath, _ := cmd.Flags().GetString("html")
		switch output {
		case "text", "json", "yaml":
		default:
			return fmt.Errorf("unknown output format %q (use text, json or yaml)", output)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(nil)
		if err != nil {
			return err
		}

		symbol := utils.NormalizeTicker(args[0])
		fmt.Fprintf(os.Stderr, "🔍 Analyzing %s (market %s)\n", symbol, utils.MarketStatus())
		bundle, err := a.orch.Analyze(ctx, symbol)
		if err != nil {
			return err
		}

		opts := report.OptionsFrom(cfg.Report)
		if (pdfPath != "" || htmlPath != "") && cfg.Report.FetchLogos {
			opts.Logo = report.FetchLogo(ctx, a.src, bundle.Company, log)
		}
		if pdfPath != "" {
			if err := writeReport(pdfPath, func() ([]byte, error) { return report.RenderPDF(bundle, opts) }); err != nil {
				return err
			}
		}
		if htmlPath != "" {
			if err := writeReport(htmlPath, func() ([]byte, error) { return report.RenderHTML(bundle, opts) }); err != nil {
				return err
			}
		}

		return printBundle(bundle, output, opts)
	},
}

func init() {
	analyzeCmd.Flags().StringP("output", "o", "text", "output format: text, json or yaml")
	analyzeCmd.Flags().String("pdf", "", "write a PDF report to this path")
	analyzeCmd.Flags().String("html", "", "write an HTML report to this path")
}

func writeReport(path string, render func() ([]byte, error)) error {
	data, err := render()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(os.Stderr, "📄 Report saved to %s\n", path)
	return nil
}

func printBundle(b *models.AnalysisBundle, output string, opts report.Options) error {
	switch output {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(b)
	case "yaml":
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(b)
	default:
		fmt.Print(report.RenderText(b, opts))
		return nil
	}
}

// --- Agent Command ---

var agentCmd = &cobra.Command{
	Use:   "agent [name] [symbol]",
	Short: "Run a single agent",
	Long: `Run one agent by name. Synthesis agents need --context.

Examples:
  stockanalyzer agent technical-analysis NVDA
  stockanalyzer agent summary NVDA --context "$(cat context.txt)"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		analysisContext, _ := cmd.Flags().GetString("context")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(nil)
		if err != nil {
			return err
		}
		res, err := a.orch.RunAgent(ctx, args[0], args[1], analysisContext)
		if err != nil {
			return err
		}

		fmt.Printf("■ %s — %s\n\n", res.DisplayName, res.Symbol)
		if res.Structured != nil {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res.Structured)
		}
		fmt.Println(res.Content)
		return nil
	},
}

func init() {
	agentCmd.Flags().String("context", "", "shared analysis context for synthesis agents")
}

// --- Agents Command ---

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List the available agents",
	Run: func(cmd *cobra.Command, args []string) {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tENDPOINT\tLLM\tCONTEXT\tDESCRIPTION")
		for _, d := range agent.NewDefaultRegistry(nil).Descriptors() {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
				d.ID, d.Slug, d.Endpoint, yesNo(d.UsesLLM), yesNo(d.NeedsContext), d.Description)
		}
		_ = w.Flush()
	},
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if port, _ := cmd.Flags().GetInt("port"); port > 0 {
			cfg.API.Port = port
		}

		m := metrics.New(prometheus.DefaultRegisterer)
		a, err := newApp(m)
		if err != nil {
			return err
		}

		srv := api.NewServer(cfg, a.orch,
			api.WithLogger(log),
			api.WithMetrics(m, prometheus.DefaultGatherer),
			api.WithUpstreams(func() map[string]string {
				states := a.src.Breakers()
				for name, state := range a.llm.Breakers() {
					states[name] = state
				}
				return states
			}),
		)

		fmt.Printf("🌐 Starting stock analyzer API on %s\n", cfg.API.Addr())
		return srv.ListenAndServe(context.Background())
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "listen port (overrides config)")
}
