package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/wanderlens/arsync/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "arsync keeps AR content and the info panel in sync with image tracking",
	Long: `arsync reconciles image-tracking batches into content instances and the
info panel, and journals every marker sighting to the configured storage.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		dir, _ := cmd.Flags().GetString("config")
		if err := config.Load(dir); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "using default settings: %v\n", err)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", ".", "Directory containing "+config.FileName)
	rootCmd.PersistentFlags().String("markers", "", "Marker descriptor file (yaml or json)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")

	_ = viper.BindPFlag("markersFile", rootCmd.PersistentFlags().Lookup("markers"))
	_ = viper.BindPFlag("logLevel", rootCmd.PersistentFlags().Lookup("log-level"))
}
