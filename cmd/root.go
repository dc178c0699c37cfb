package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/iguard-io/mlpipe/pkg/env"
	_ "github.com/iguard-io/mlpipe/pkg/tools/log"
)

var rootCmd = &cobra.Command{
	Use:   "mlpipe",
	Short: "asset registrar and batch scorer for the managed ML workspace",
	Long:  "asset registrar and batch scorer for the managed ML workspace",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("endpoint", "", "base URL of the platform API")
	rootCmd.PersistentFlags().String("token", "", "API token, overrides the config file")
	_ = viper.BindPFlag(env.Endpoint, rootCmd.PersistentFlags().Lookup("endpoint"))
	_ = viper.BindPFlag(env.Token, rootCmd.PersistentFlags().Lookup("token"))
	_ = viper.BindEnv(env.Token, "MLPIPE_TOKEN")

	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(platformCmd)
	rootCmd.AddCommand(versionCmd)
}
