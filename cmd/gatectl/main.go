package main

import (
	"fmt"
	"os"

	"gate_control/internal/config"
	"gate_control/internal/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	configPath string

	cfg *config.Config
	log *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:           "gatectl <command>",
	Short:         "Gate controller: touch panel, cloud link and SMS modem",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(viper.GetViper(), configPath)
		if err != nil {
			return err
		}
		cfg = c
		log = logger.Get(cfg.LogLevel, cfg.LogFormat)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default configs/config.yml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(serveCmd, probeCmd, logsCmd)
}

// @title        Gate Control API
// @version      1.0
// @description  Touch-panel API of the gate controller: queue gate commands, read state and the activity log.
// @BasePath     /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
