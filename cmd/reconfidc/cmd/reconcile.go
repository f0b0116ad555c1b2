package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pedritopng/recon-fidc/cmd/reconfidc/config"
	"github.com/pedritopng/recon-fidc/internal/parsers"
)

// Flags for the reconcile command
var (
	internalFile   string
	fundFile       string
	fundName       string
	internalFormat string
	fallbackPolicy string
	outputFile     string
	showProgress   bool
)

// reconcileCmd represents the reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile the internal ledger against a fund administrator report",
	Long: `Reconcile parses both ledgers, normalizes document numbers and amounts,
joins the ledgers per canonical document and writes an .xlsx report with
matched differences and the entries found on only one side.

Both input files must be Latin-1 (ISO 8859-1) encoded CSV exports.

Examples:
  # Structured internal report against the Diamante fund report
  reconfidc reconcile --internal-file nosso.csv --fund-file fundo.csv --fund diamante

  # Semi-structured bank extrato as the internal side
  reconfidc reconcile --internal-file extrato.csv --internal-format extrato \
    --fund-file fundo.csv --fund gpa

  # Keep unrecognized extrato lines instead of dropping them
  reconfidc reconcile --internal-file extrato.csv --internal-format extrato \
    --fallback-policy generic --fund-file fundo.csv --fund diamante-extrato

  # Custom report destination and progress output
  reconfidc reconcile --internal-file nosso.csv --fund-file fundo.csv \
    --fund apoge --output /tmp/relatorio.xlsx --progress`,

	PreRunE: validateReconcileFlags,
	RunE:    runReconcile,

	// The error handler wrapping Execute prints failures with context and
	// suggestions; cobra must not print them a second time.
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	reconcileCmd.Flags().StringVarP(&internalFile, "internal-file", "i", "", "path to the internal ledger CSV file (required)")
	reconcileCmd.Flags().StringVarP(&fundFile, "fund-file", "f", "", "path to the fund administrator CSV file (required)")
	reconcileCmd.Flags().StringVar(&fundName, "fund", "", "fund layout: diamante, diamante-extrato, apoge, gpa (required)")

	reconcileCmd.Flags().StringVar(&internalFormat, "internal-format", "structured", "internal ledger format: structured, extrato")
	reconcileCmd.Flags().StringVar(&fallbackPolicy, "fallback-policy", "", "what to do with unrecognized extrato lines: skip, generic")
	reconcileCmd.Flags().StringVarP(&outputFile, "output", "o", "", "report path (default: Relatorio_Conciliacao_<Fund>.xlsx next to the internal file)")
	reconcileCmd.Flags().BoolVar(&showProgress, "progress", false, "show progress indicators")

	reconcileCmd.MarkFlagRequired("internal-file")
	reconcileCmd.MarkFlagRequired("fund-file")
	reconcileCmd.MarkFlagRequired("fund")

	viper.BindPFlag("internal-file", reconcileCmd.Flags().Lookup("internal-file"))
	viper.BindPFlag("fund-file", reconcileCmd.Flags().Lookup("fund-file"))
	viper.BindPFlag("fund", reconcileCmd.Flags().Lookup("fund"))
	viper.BindPFlag("internal-format", reconcileCmd.Flags().Lookup("internal-format"))
	viper.BindPFlag("fallback-policy", reconcileCmd.Flags().Lookup("fallback-policy"))
	viper.BindPFlag("output", reconcileCmd.Flags().Lookup("output"))
	viper.BindPFlag("progress", reconcileCmd.Flags().Lookup("progress"))
}

func validateReconcileFlags(cmd *cobra.Command, args []string) error {
	// Viper values win so a config file or env var can override flags.
	internalFile = viper.GetString("internal-file")
	fundFile = viper.GetString("fund-file")
	fundName = viper.GetString("fund")
	internalFormat = viper.GetString("internal-format")
	fallbackPolicy = viper.GetString("fallback-policy")
	outputFile = viper.GetString("output")
	showProgress = viper.GetBool("progress")

	if internalFile == "" {
		return fmt.Errorf("internal-file is required")
	}
	if fundFile == "" {
		return fmt.Errorf("fund-file is required")
	}
	if fundName == "" {
		return fmt.Errorf("fund is required (one of: %v)", parsers.AvailableFundTypes())
	}

	if err := validateFileExists(internalFile, "internal ledger file"); err != nil {
		return err
	}
	if err := validateFileExists(fundFile, "fund report file"); err != nil {
		return err
	}

	if outputFile != "" {
		dir := filepath.Dir(outputFile)
		if dir != "." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return fmt.Errorf("output directory does not exist: %s", dir)
			}
		}
	}

	return nil
}

func validateFileExists(filePath, description string) error {
	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist: %s", description, filePath)
	}
	if err != nil {
		return fmt.Errorf("error accessing %s: %w", description, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file: %s", description, filePath)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("%s is not readable: %w", description, err)
	}
	file.Close()

	return nil
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	request, err := config.BuildRequest(internalFile, fundFile, fundName, internalFormat, fallbackPolicy, outputFile)
	if err != nil {
		return err
	}

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Starting reconciliation...\n")
		fmt.Fprintf(os.Stderr, "Internal file: %s (%s)\n", request.InternalFile, request.InternalFormat)
		fmt.Fprintf(os.Stderr, "Fund file: %s (%s)\n", request.FundFile, request.Fund)
		fmt.Fprintf(os.Stderr, "Report: %s\n", request.ReportPath())
	}

	var progress func(percent int, message string)
	if showProgress {
		progress = func(percent int, message string) {
			fmt.Fprintf(os.Stderr, "\r[%3d%%] %-60s", percent, message)
		}
	}

	service := config.CreateService()
	outcome, err := service.Run(ctx, request, progress)
	if showProgress {
		fmt.Fprintf(os.Stderr, "\n")
	}
	if err != nil {
		return err
	}

	summary := outcome.Result.Summary
	fmt.Printf("Report written to %s\n", outcome.ReportPath)
	fmt.Printf("Matched documents: %d (%d with value differences)\n",
		summary.MatchedCount, summary.MaterialCount)
	fmt.Printf("Internal only: %d, fund only: %d\n",
		summary.InternalOnlyCount, summary.FundOnlyCount)
	fmt.Printf("Validation: %s\n", summary.Status)

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "\nInternal ledger: %s\n", outcome.InternalStats)
		fmt.Fprintf(os.Stderr, "Fund ledger: %s\n", outcome.FundStats)
	}

	return nil
}
