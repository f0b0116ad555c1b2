package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pedritopng/recon-fidc/pkg/logger"
)

var (
	cfgFile string
	verbose bool
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "reconfidc",
	Short: "Conciliação de recebíveis entre o relatório interno e o relatório do fundo",
	Long: `Reconfidc reconciles the company's internal receivables ledger against
the report exported by a fund administrator (FIDC). It normalizes document
numbers and pt-BR monetary values, joins both ledgers per document and
writes a detailed .xlsx report with the differences found.

Examples:
  reconfidc reconcile --internal-file nosso.csv --fund-file fundo.csv --fund diamante
  reconfidc reconcile --internal-file extrato.csv --internal-format extrato \
    --fund-file fundo.csv --fund apoge --output relatorio.xlsx
  reconfidc funds`,
	Version: getVersionString(),
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in config file and ENV variables.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)

		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading config file: %s\n", err)
			os.Exit(1)
		}

		if viper.GetBool("verbose") {
			fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
		}
	}

	viper.SetEnvPrefix("RECONFIDC")
	viper.AutomaticEnv()

	configureLogging()
}

func configureLogging() {
	config := logger.DefaultConfig()
	if viper.GetBool("verbose") {
		config = logger.DebugConfig()
	}
	if file := viper.GetString("log-file"); file != "" {
		config.File = file
	}

	log, err := logger.NewLogger(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring logger: %s\n", err)
		os.Exit(1)
	}
	logger.SetGlobalLogger(log)
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = getVersionString()
}

func getVersionString() string {
	if version == "dev" {
		return fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	}
	return version
}
