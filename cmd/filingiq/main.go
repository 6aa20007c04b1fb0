// FilingIQ — deterministic question answering over company filings.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/seenimoa/filingiq/api"
	"github.com/seenimoa/filingiq/internal/agent"
	"github.com/seenimoa/filingiq/internal/calc"
	"github.com/seenimoa/filingiq/internal/config"
	"github.com/seenimoa/filingiq/internal/filings"
	"github.com/seenimoa/filingiq/internal/llm"
	"github.com/seenimoa/filingiq/internal/metrics"
	"github.com/seenimoa/filingiq/internal/narrative"
	"github.com/seenimoa/filingiq/internal/store"
	"github.com/seenimoa/filingiq/pkg/models"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config
var cfg *config.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "filingiq",
	Short: "FilingIQ — deterministic QA over company filings",
	Long: `FilingIQ answers financial questions about company filings with a
deterministic calculation pipeline: lexical routing, alias resolution,
unit normalization, decimal formula computation with replayable traces,
assumption adjustment, and a schema-guaranteed answer envelope.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("store", "", "SQLite store path override")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(answerCmd)
	rootCmd.AddCommand(calcCmd)
	rootCmd.AddCommand(computeCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(filingsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
}

// buildPipeline wires the pipeline from config. The store is optional: a
// missing or unopenable store degrades to context-only input gathering.
func buildPipeline() (*agent.Pipeline, *store.Store) {
	var st *store.Store
	path := storePath()
	if path != "" {
		if s, err := store.Open(path); err == nil {
			st = s
		} else {
			fmt.Fprintf(os.Stderr, "warning: store unavailable: %v\n", err)
		}
	}

	var provider llm.Provider = llm.NoopProvider{}
	if cfg.LLM.Provider == llm.ProviderOllama {
		if p, err := llm.NewOllamaProvider(cfg.LLM.OllamaURL, llm.WithOllamaModel(cfg.LLM.Model)); err == nil {
			provider = p
		}
	}

	opts := []agent.Option{
		agent.WithProvider(provider),
		agent.WithRounding(metrics.Rounding{
			Quantum: cfg.Compute.Quantum,
			Mode:    cfg.Compute.RoundingMode,
		}),
	}
	if st != nil {
		opts = append(opts, agent.WithStore(st))
	}
	if sections := loadCachedSections(cfg.Filings.CacheDir); len(sections) > 0 {
		opts = append(opts, agent.WithSections(sections))
	}
	return agent.New(opts...), st
}

// loadCachedSections gathers narrative sections from every cached filing.
func loadCachedSections(cacheDir string) []narrative.Section {
	if cacheDir == "" {
		return nil
	}
	entries, err := os.ReadDir(cacheDir)
	if err != nil {
		return nil
	}
	var sections []narrative.Section
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		f, err := filings.LoadCached(cacheDir + "/" + entry.Name())
		if err != nil {
			continue
		}
		sections = append(sections, f.Sections...)
	}
	return sections
}

func storePath() string {
	if override, _ := rootCmd.PersistentFlags().GetString("store"); override != "" {
		return override
	}
	return cfg.Store.Path
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("FilingIQ %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Answer Command ---

var answerCmd = &cobra.Command{
	Use:   "answer [question]",
	Short: "Answer a question, or a JSONL batch with --batch",
	Long: `Answer a single question, or process a JSONL file of question
objects concurrently.

Examples:
  filingiq answer "What is 15% of 100?"
  filingiq answer "What was total revenue in 2024?"
  filingiq answer --batch questions.jsonl`,
	RunE: func(cmd *cobra.Command, args []string) error {
		pipeline, st := buildPipeline()
		if st != nil {
			defer st.Close()
		}

		batchFile, _ := cmd.Flags().GetString("batch")
		if batchFile != "" {
			return runBatch(cmd.Context(), pipeline, batchFile)
		}

		if len(args) == 0 {
			return fmt.Errorf("provide a question or use --batch")
		}

		env := pipeline.Answer(cmd.Context(), models.Question{
			Question: strings.Join(args, " "),
		})
		return printJSON(env)
	},
}

func init() {
	answerCmd.Flags().String("batch", "", "JSONL file of question objects")
}

// runBatch answers a JSONL question file and writes one envelope per line.
func runBatch(ctx context.Context, pipeline *agent.Pipeline, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open batch file: %w", err)
	}
	defer f.Close()

	var questions []models.Question
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var q models.Question
		if err := json.Unmarshal([]byte(line), &q); err != nil {
			return fmt.Errorf("parse question line %d: %w", len(questions)+1, err)
		}
		questions = append(questions, q)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read batch file: %w", err)
	}

	envs, err := pipeline.AnswerBatch(ctx, questions, cfg.Compute.BatchWorkers)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	for _, env := range envs {
		if err := enc.Encode(env); err != nil {
			return err
		}
	}
	return nil
}

// --- Calc Command ---

var calcCmd = &cobra.Command{
	Use:   "calc [expression]",
	Short: "Evaluate a sandboxed arithmetic expression",
	Long: `Evaluate an arithmetic expression in the whitelisted sandbox.

Examples:
  filingiq calc '1000000 * 0.15'
  filingiq calc '(150 - 100) / 100 * 100'
  filingiq calc 'round(2.675, 2)'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := calc.Evaluate(args[0])
		if err != nil {
			return err
		}
		fmt.Println(result)
		return nil
	},
}

// --- Compute Command ---

var computeCmd = &cobra.Command{
	Use:   "compute [metric_id]",
	Short: "Compute a registered metric from --input name=value pairs",
	Long: `Compute a registered financial metric directly.

Examples:
  filingiq compute GROSS_MARGIN --input REVENUE=1000 --input COGS=750
  filingiq compute YOY_GROWTH --input VALUE_CURRENT=150 --input VALUE_PRIOR=100`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pairs, _ := cmd.Flags().GetStringArray("input")
		inputs := make(map[string]string, len(pairs))
		for _, pair := range pairs {
			name, value, found := strings.Cut(pair, "=")
			if !found {
				return fmt.Errorf("invalid --input %q, want name=value", pair)
			}
			inputs[strings.TrimSpace(name)] = strings.TrimSpace(value)
		}

		rounding := metrics.Rounding{
			Quantum: cfg.Compute.Quantum,
			Mode:    cfg.Compute.RoundingMode,
		}
		result, err := metrics.Compute(args[0], models.Period{Kind: models.PeriodFY}, inputs, rounding)
		if err != nil {
			return err
		}
		return printJSON(result)
	},
}

func init() {
	computeCmd.Flags().StringArray("input", nil, "formula input as name=value (repeatable)")
}

// --- Ingest Command ---

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Ingest financial records into the structured store",
	Long: `Ingest records from a CSV file (columns: company,metric,period_kind,
period_end,value,unit) or from a filing HTML document with --html.

Examples:
  filingiq ingest costco_fy2024.csv
  filingiq ingest --html --company "Costco" 10k.html
  filingiq ingest --url https://www.sec.gov/.../10k.htm --company "Costco"`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(storePath())
		if err != nil {
			return err
		}
		defer st.Close()

		company, _ := cmd.Flags().GetString("company")
		url, _ := cmd.Flags().GetString("url")
		html, _ := cmd.Flags().GetBool("html")

		var records []store.Record
		switch {
		case url != "":
			client := filings.NewClient(filings.WithUserAgent(cfg.Filings.UserAgent))
			filing, ferr := client.FetchAndParse(cmd.Context(), url, company)
			if ferr != nil {
				return ferr
			}
			records = filing.Records
			cacheFiling(filing, company)

		case len(args) == 1 && html:
			f, oerr := os.Open(args[0])
			if oerr != nil {
				return oerr
			}
			defer f.Close()
			filing, perr := filings.ParseHTML(f, company)
			if perr != nil {
				return perr
			}
			records = filing.Records
			cacheFiling(filing, company)

		case len(args) == 1:
			f, oerr := os.Open(args[0])
			if oerr != nil {
				return oerr
			}
			defer f.Close()
			records, err = filings.LoadRecordsCSV(f)
			if err != nil {
				return err
			}

		default:
			return fmt.Errorf("provide a file argument or --url")
		}

		if err := st.PutBatch(cmd.Context(), records); err != nil {
			return err
		}
		fmt.Printf("ingested %d records into %s\n", len(records), storePath())
		return nil
	},
}

func init() {
	ingestCmd.Flags().Bool("html", false, "parse the file as filing HTML")
	ingestCmd.Flags().String("company", "", "company name for HTML ingestion")
	ingestCmd.Flags().String("url", "", "fetch the filing document from a URL")
}

// cacheFiling writes a parsed filing to the configured cache directory.
func cacheFiling(filing *filings.Filing, company string) {
	if cfg.Filings.CacheDir == "" {
		return
	}
	name := strings.ToLower(strings.ReplaceAll(company, " ", "_"))
	if name == "" {
		name = "filing"
	}
	cachePath := fmt.Sprintf("%s/%s.json", cfg.Filings.CacheDir, name)
	if err := filings.SaveCached(cachePath, filing); err != nil {
		fmt.Fprintf(os.Stderr, "warning: cache write failed: %v\n", err)
	}
}

// --- Filings Command ---

var filingsCmd = &cobra.Command{
	Use:   "filings [cik-or-ticker]",
	Short: "List recent SEC filings for a company",
	Long: `List a company's recent filings from the EDGAR Atom feed.

Examples:
  filingiq filings 0000909832
  filingiq filings COST --form 10-K --count 5`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		form, _ := cmd.Flags().GetString("form")
		count, _ := cmd.Flags().GetInt("count")

		client := filings.NewEdgarClient()
		listings, err := client.ListFilings(cmd.Context(), args[0], form, count)
		if err != nil {
			return err
		}
		for _, l := range listings {
			fmt.Printf("%s  %-8s %s\n  %s\n", l.Updated.Format("2006-01-02"), l.Form, l.Title, l.Link)
		}
		return nil
	},
}

func init() {
	filingsCmd.Flags().String("form", "", "filter by form type (10-K, 10-Q)")
	filingsCmd.Flags().Int("count", 10, "number of filings to list")
}

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		pipeline, st := buildPipeline()
		if st != nil {
			defer st.Close()
		}

		srv := api.NewServer(cfg, pipeline, st)
		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		fmt.Printf("Starting FilingIQ API server on %s\n", addr)
		return srv.ListenAndServe(addr)
	},
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  FilingIQ — System Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:       %s (%s)\n", version, commit)
		fmt.Println()

		fmt.Println("  Configuration:")
		fmt.Printf("    LLM Provider:  %s (model: %s)\n", cfg.LLM.Provider, cfg.LLM.Model)
		fmt.Printf("    Store:         %s\n", cfg.Store.Path)
		fmt.Printf("    Cache Dir:     %s\n", cfg.Filings.CacheDir)
		fmt.Printf("    Rounding:      %s @ %s\n", cfg.Compute.RoundingMode, cfg.Compute.Quantum)
		fmt.Printf("    API Server:    %s:%d\n", cfg.API.Host, cfg.API.Port)
		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
