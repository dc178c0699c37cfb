package log

import (
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/iguard-io/mlpipe/pkg/env"
)

// this package replaces the global zap logger, import it for the side effect
func init() {
	var logger *zap.Logger
	var err error
	if viper.GetString(env.Environment) == "prod" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	zap.ReplaceGlobals(logger)
}
