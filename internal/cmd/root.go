// Package cmd implements the shopql CLI.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shopql/shopql-go/internal/config"
	"github.com/shopql/shopql-go/internal/observability"
)

var (
	cfgFile string
	verbose bool

	// Version info set by the main package via ldflags.
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by the main package to set version information.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "shopql",
	Short: "Run ShopifyQL analytics queries",
	Long: `shopql runs ShopifyQL analytics queries against a shop's admin API
and renders the tabular results.

Use the subcommands to perform specific operations.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and runs it. Called by
// main.main().
func Execute() error {
	defer observability.Sync()
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/shopql/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")
	rootCmd.PersistentFlags().String("shop", "", "shop name")
	rootCmd.PersistentFlags().String("token", "", "admin API access token")

	_ = viper.BindPFlag("shop", rootCmd.PersistentFlags().Lookup("shop"))
	_ = viper.BindPFlag("access_token", rootCmd.PersistentFlags().Lookup("token"))
}

// initConfig reads the config file and environment variables.
func initConfig() {
	observability.InitCLILogger(verbose)

	cfg, err := config.Load(viper.GetViper(), cfgFile)
	if err != nil {
		ExitWithCodeStderr(ExitConfigInvalid, "Failed to load configuration", err)
	}

	// The config file can lower the level too; --verbose wins.
	if !verbose && cfg.Logging.Level == "debug" {
		observability.InitCLILogger(true)
	}
}
