package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"recruit-backend/internal/bootstrap"
	"recruit-backend/internal/shared/config"
)

const app = "recruitctl"

var (
	cfgFile string

	rootCmd = &cobra.Command{
		Use:           app,
		Short:         "recruitctl runs scoring maintenance tasks for the recruit backend",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "optional config file (default is recruitctl.yaml in the current directory)")
	rootCmd.PersistentFlags().String("env", "", "override ENV for this run")

	_ = viper.BindPFlag("env", rootCmd.PersistentFlags().Lookup("env"))

	viper.SetEnvPrefix("RECRUIT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || cfgFile != "" {
			cobra.CheckErr(fmt.Errorf("read config: %w", err))
		}
	}
}

// buildApp loads the service configuration and applies CLI overrides.
func buildApp() (*bootstrap.App, error) {
	cfg := config.Load()
	if env := strings.TrimSpace(viper.GetString("env")); env != "" {
		cfg.Env = env
	}
	return bootstrap.Build(cfg)
}
