package trace

import (
	"time"

	"github.com/spf13/viper"
	"github.com/uber/jaeger-client-go"
	tracer_config "github.com/uber/jaeger-client-go/config"
	"go.uber.org/zap"

	"github.com/iguard-io/mlpipe/pkg/env"
)

// TraceInit wires the global opentracing tracer to a jaeger agent.
// Without an agent address configured the noop tracer stays in place.
func TraceInit() {
	hostPort := viper.GetString(env.TraceAgentHostPort)
	if hostPort == "" {
		zap.S().Debugw("tracing disabled, no agent configured")
		return
	}
	cfg := &tracer_config.Configuration{}
	cfg.Sampler = &tracer_config.SamplerConfig{
		Type:  jaeger.SamplerTypeConst,
		Param: 1.0,
	}
	zap.S().Infow("use jaeger agent host and port", "HostAndPort", hostPort)
	cfg.Reporter = &tracer_config.ReporterConfig{
		QueueSize:           100,
		BufferFlushInterval: 1 * time.Millisecond,
		LogSpans:            false,
		LocalAgentHostPort:  hostPort,
	}

	_, err := cfg.InitGlobalTracer("mlpipe") // closer ignored, the tracer lives for the whole process
	if err != nil {
		panic(err)
	}
}
