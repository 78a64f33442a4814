package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wealthkin/wealthkin/internal/aggregate"
	"github.com/wealthkin/wealthkin/internal/analytics"
	"github.com/wealthkin/wealthkin/internal/config"
	"github.com/wealthkin/wealthkin/internal/domain"
	"github.com/wealthkin/wealthkin/internal/engine"
	"github.com/wealthkin/wealthkin/internal/marketdata"
	"github.com/wealthkin/wealthkin/internal/optimize"
	"github.com/wealthkin/wealthkin/internal/telemetry"
)

const (
	appName = "wealthkin"
	version = "v1.2.0"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Family portfolio analytics engine",
		Version: version,
		Long: `wealthkin analyzes an aggregated family stock portfolio: risk/return
metrics, mean-variance optimization with an efficient frontier, downside
risk (VaR/CVaR, concentration, risk contributions), and market-shock
scenario simulation with concrete rebalancing trades.`,
	}

	rootCmd.AddCommand(newAnalyzeCmd(), newFrontierCmd(), newScenariosCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func newAnalyzeCmd() *cobra.Command {
	var (
		portfolioPath string
		pricesPath    string
		configPath    string
		method        string
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run the full analysis pipeline on a portfolio file",
		Long: `Aggregates the family portfolio, computes metrics against the supplied
price snapshot, optimizes weights under the selected method, and produces
the risk report and scenario projections as JSON on stdout.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			input, err := loadPortfolio(portfolioPath)
			if err != nil {
				return err
			}

			snap, err := marketdata.LoadSnapshot(pricesPath)
			if err != nil {
				return err
			}

			scenarios, err := config.LoadScenarios(cfg.ScenarioFile)
			if err != nil {
				log.Warn().Err(err).Msg("scenario file unavailable, using built-in presets")
				scenarios = config.DefaultScenarios()
			}

			eng := engine.New(cfg, marketdata.NewStaticProvider(*snap), scenarios, telemetry.NewRegistry(), log.Logger)
			analysis, err := eng.Analyze(cmd.Context(), *input, optimize.Method(method))
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(analysis)
		},
	}

	cmd.Flags().StringVar(&portfolioPath, "portfolio", "", "Family portfolio JSON file (required)")
	cmd.Flags().StringVar(&pricesPath, "prices", "", "Price snapshot JSON file (required)")
	cmd.Flags().StringVar(&configPath, "config", "", "Engine config YAML (defaults apply when omitted)")
	cmd.Flags().StringVar(&method, "method", string(optimize.MethodMaxSharpe), "Optimization method: max_sharpe, min_volatility, equal_weight")
	_ = cmd.MarkFlagRequired("portfolio")
	_ = cmd.MarkFlagRequired("prices")

	return cmd
}

func newFrontierCmd() *cobra.Command {
	var (
		portfolioPath string
		pricesPath    string
		configPath    string
	)

	cmd := &cobra.Command{
		Use:   "frontier",
		Short: "Compute only the efficient frontier for a portfolio",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			input, err := loadPortfolio(portfolioPath)
			if err != nil {
				return err
			}
			snap, err := marketdata.LoadSnapshot(pricesPath)
			if err != nil {
				return err
			}

			family, err := aggregate.Aggregate(*input)
			if err != nil {
				return err
			}
			provider := marketdata.NewStaticProvider(*snap)
			history, err := provider.History(cmd.Context(), family.Symbols(), cfg.LookbackDays)
			if err != nil {
				return err
			}
			model, err := analytics.BuildReturnModel(family.Symbols(), history.Series)
			if err != nil {
				return err
			}

			budget := optimize.Budget{
				MaxIterations:  cfg.Optimizer.MaxIterations,
				FrontierPoints: cfg.Optimizer.FrontierPoints,
			}
			solver := optimize.NewSolver(cfg.RiskFreeRate, budget, cfg.Trades.MaterialityPct, log.Logger)

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(solver.Frontier(model))
		},
	}

	cmd.Flags().StringVar(&portfolioPath, "portfolio", "", "Family portfolio JSON file (required)")
	cmd.Flags().StringVar(&pricesPath, "prices", "", "Price snapshot JSON file (required)")
	cmd.Flags().StringVar(&configPath, "config", "", "Engine config YAML (defaults apply when omitted)")
	_ = cmd.MarkFlagRequired("portfolio")
	_ = cmd.MarkFlagRequired("prices")

	return cmd
}

func newScenariosCmd() *cobra.Command {
	var scenarioPath string

	cmd := &cobra.Command{
		Use:   "scenarios",
		Short: "List the configured scenario presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			scenarios, err := config.LoadScenarios(scenarioPath)
			if err != nil {
				log.Warn().Err(err).Msg("scenario file unavailable, using built-in presets")
				scenarios = config.DefaultScenarios()
			}
			for _, sc := range scenarios {
				if len(sc.Changes) == 0 {
					fmt.Printf("%-24s all symbols %+.1f%%\n", sc.Name, sc.DefaultChangePct)
					continue
				}
				fmt.Printf("%-24s %d symbol-specific changes\n", sc.Name, len(sc.Changes))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&scenarioPath, "scenarios", "config/scenarios.yaml", "Scenario presets YAML")
	return cmd
}

func loadPortfolio(path string) (*domain.FamilyInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read portfolio: %w", err)
	}
	var input domain.FamilyInput
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, fmt.Errorf("failed to parse portfolio JSON: %w", err)
	}
	return &input, nil
}
