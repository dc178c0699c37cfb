package cmd

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/iguard-io/mlpipe/pkg/config"
	"github.com/iguard-io/mlpipe/pkg/env"
	"github.com/iguard-io/mlpipe/pkg/platform"
	"github.com/iguard-io/mlpipe/pkg/platform/fake"
	"github.com/iguard-io/mlpipe/pkg/registrar"
	"github.com/iguard-io/mlpipe/pkg/trace"
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "register workspace assets and run the training-then-scoring pipeline",
	Long:  "register workspace assets and run the training-then-scoring pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		trace.TraceInit()
		cfg, err := config.Load(viper.GetString(env.Config))
		if err != nil {
			return err
		}
		endpoint := cfg.Endpoint
		if viper.GetBool(env.Local) {
			endpoint, err = serveLocalPlatform(cfg)
			if err != nil {
				return err
			}
		}
		client := platform.NewClient(
			endpoint,
			platform.Workspace{
				SubscriptionID: cfg.SubscriptionID,
				ResourceGroup:  cfg.ResourceGroup,
				Name:           cfg.WorkspaceName,
			},
			platform.Credential{Token: cfg.Token},
		)
		return registrar.New(client, cfg).Run(context.Background())
	},
}

// serveLocalPlatform starts the in-memory platform stub on a loopback port and
// seeds the configured datasource so the whole flow can run without a remote.
func serveLocalPlatform(cfg *config.Config) (string, error) {
	p := fake.New()
	p.AddData(cfg.DatasourceName, "local://"+cfg.DatasourceName)
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", err
	}
	go func() {
		if err := http.Serve(listener, p.Engine()); err != nil {
			zap.S().Errorw("local platform stopped", "err", err)
		}
	}()
	endpoint := "http://" + listener.Addr().String()
	zap.S().Infow("local platform started", "endpoint", endpoint)
	return endpoint, nil
}

func init() {
	registerCmd.Flags().StringP("config", "c", "config.json", "path of the workspace config file")
	registerCmd.Flags().Bool("local", false, "run against an in-memory platform stub")
	registerCmd.Flags().String("environment_name", "iguard-env", "name of the execution environment")
	registerCmd.Flags().String("dockerfile", "Dockerfile", "dockerfile path, relative to the build context")
	registerCmd.Flags().String("build_context", ".", "docker build context directory")
	registerCmd.Flags().String("train_component", "train.yaml", "train component definition")
	registerCmd.Flags().String("score_component", "score.yaml", "score component definition")
	registerCmd.Flags().Duration("poll_interval", 5*time.Second, "job status poll interval")
	registerCmd.Flags().Duration("poll_timeout", 30*time.Minute, "bound on waiting for the training job")
	_ = viper.BindPFlag(env.Config, registerCmd.Flags().Lookup("config"))
	_ = viper.BindPFlag(env.Local, registerCmd.Flags().Lookup("local"))
	_ = viper.BindPFlag(env.EnvironmentName, registerCmd.Flags().Lookup("environment_name"))
	_ = viper.BindPFlag(env.DockerfilePath, registerCmd.Flags().Lookup("dockerfile"))
	_ = viper.BindPFlag(env.BuildContextPath, registerCmd.Flags().Lookup("build_context"))
	_ = viper.BindPFlag(env.TrainComponentPath, registerCmd.Flags().Lookup("train_component"))
	_ = viper.BindPFlag(env.ScoreComponentPath, registerCmd.Flags().Lookup("score_component"))
	_ = viper.BindPFlag(env.PollInterval, registerCmd.Flags().Lookup("poll_interval"))
	_ = viper.BindPFlag(env.PollTimeout, registerCmd.Flags().Lookup("poll_timeout"))
}
