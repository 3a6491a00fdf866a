// Package commands implements the CLI commands for mapleads.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/mapleads/internal/logger"
	"github.com/jmylchreest/mapleads/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "mapleads",
	Short: "Collect business listings from Google Maps",
	Long: `Mapleads searches Google Maps for "<category> in <location>", scrolls
the result feed, opens each listing and exports name, address, website,
phone number and a best-effort email address scraped from the business's
own website.

Examples:
  # Collect 50 restaurants in Paris as an Excel workbook
  mapleads scrape -q "restaurants in Paris" -n 50

  # CSV output with a visible browser
  mapleads scrape -q "bookstores in Leeds" --format csv --headless=false

  # Fetch websites over plain HTTP and follow contact pages
  mapleads scrape -q "dentists in Bristol" --email-fetch static --follow-contact`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config file (default $HOME/.mapleads.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "suppress progress output")
	rootCmd.PersistentFlags().Bool("log-json", false, "write logs as JSON")
	rootCmd.PersistentFlags().String("db", store.DefaultPath(), "run history database (empty disables)")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("log_json", rootCmd.PersistentFlags().Lookup("log-json"))
	_ = viper.BindPFlag("store.path", rootCmd.PersistentFlags().Lookup("db"))
}

func initConfig() {
	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".mapleads")
		viper.SetConfigType("yaml")
	}

	setDefaults(viper.GetViper())

	// Environment variables, e.g. MAPLEADS_EMAIL_FETCH for email.fetch
	viper.SetEnvPrefix("MAPLEADS")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()

	// Read config file (ignore error if not found)
	_ = viper.ReadInConfig()
}

// initLogger configures logging from the global flags.
func initLogger() {
	logger.Init(logger.Options{
		Debug: viper.GetBool("debug"),
		Quiet: viper.GetBool("quiet"),
		JSON:  viper.GetBool("log_json"),
	})
	if f := viper.ConfigFileUsed(); f != "" {
		logger.Debug("config loaded", "path", f)
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// logInfo prints a message to stderr unless quiet mode is on.
func logInfo(format string, args ...any) {
	if !viper.GetBool("quiet") {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}
