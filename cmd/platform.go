package cmd

import (
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/iguard-io/mlpipe/pkg/env"
	"github.com/iguard-io/mlpipe/pkg/platform/fake"
)

var platformCmd = &cobra.Command{
	Use:   "platform",
	Short: "run the in-memory platform stub as a local server",
	Long:  "run the in-memory platform stub as a local server",
	RunE: func(cmd *cobra.Command, args []string) error {
		p := fake.New()
		if datasource := viper.GetString(env.Datasource); datasource != "" {
			p.AddData(datasource, "local://"+datasource)
		}
		r := gin.Default()
		p.RegisterRoute(r)
		return r.Run(":" + viper.GetString(env.Port))
	},
}

func init() {
	platformCmd.Flags().String("port", "8080", "port to listen on")
	platformCmd.Flags().String("datasource", "", "seed a named dataset")
	_ = viper.BindPFlag(env.Port, platformCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag(env.Datasource, platformCmd.Flags().Lookup("datasource"))
}
