package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "watchlistdb",
	Short: "Keep a movie database in sync with a Letterboxd watchlist",
	Long: `watchlistdb scrapes a Letterboxd watchlist, enriches every title with
runtime, poster, genres and streaming providers from TMDB, and reconciles
the result into a SQLite or PostgreSQL database.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits non-zero on failure. An interrupt
// cancels the running command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.watchlistdb.yaml or ./config.yaml)")
	rootCmd.PersistentFlags().String("database-type", "", "database backend: sqlite or postgres")
	rootCmd.PersistentFlags().String("database-dsn", "", "sqlite file path or postgres connection string")
	rootCmd.PersistentFlags().String("log-level", "", "log level (trace, debug, info, warn, error)")

	viper.BindPFlag("database_type", rootCmd.PersistentFlags().Lookup("database-type"))
	viper.BindPFlag("database_dsn", rootCmd.PersistentFlags().Lookup("database-dsn"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("WATCHLISTDB")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	} else if cfgFile == "" {
		viper.SetConfigName(".watchlistdb")
		if err := viper.ReadInConfig(); err == nil {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}
