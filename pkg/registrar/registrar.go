package registrar

import (
	"context"
	"fmt"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/spf13/viper"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/iguard-io/mlpipe/pkg/component"
	"github.com/iguard-io/mlpipe/pkg/config"
	"github.com/iguard-io/mlpipe/pkg/env"
	"github.com/iguard-io/mlpipe/pkg/platform"
)

const (
	latestLabel = "latest"

	defaultPollInterval = 5 * time.Second
	defaultPollTimeout  = 30 * time.Minute
)

// Registrar drives the remote workspace: it ensures assets exist, submits the
// training pipeline, waits for it, registers the model and publishes the batch
// scoring deployment. Every step is a blocking remote call with no rollback.
type Registrar struct {
	client       platform.Client
	cfg          *config.Config
	pollInterval time.Duration
	pollTimeout  time.Duration
}

func New(client platform.Client, cfg *config.Config) *Registrar {
	pollInterval := viper.GetDuration(env.PollInterval)
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	pollTimeout := viper.GetDuration(env.PollTimeout)
	if pollTimeout <= 0 {
		pollTimeout = defaultPollTimeout
	}
	return &Registrar{
		client:       client,
		cfg:          cfg,
		pollInterval: pollInterval,
		pollTimeout:  pollTimeout,
	}
}

// EnsureEnvironment looks the environment up by name and creates it from the
// local build context only when the platform reports not-found. Any other
// failure aborts, it is not a license to create.
func (r *Registrar) EnsureEnvironment(ctx context.Context, name, contextDir, dockerfile string) (*platform.Environment, error) {
	environment, err := r.client.GetEnvironment(ctx, name, latestLabel)
	if err == nil {
		zap.S().Infow("✅ environment", "name", environment.Name, "version", environment.Version)
		return environment, nil
	}
	if !platform.IsNotFound(err) {
		return nil, err
	}
	build, err := platform.PackBuildContext(contextDir, dockerfile)
	if err != nil {
		return nil, err
	}
	environment, err = r.client.CreateOrUpdateEnvironment(ctx, &platform.Environment{
		Name:        name,
		Description: fmt.Sprintf("Environment for %s", name),
		Build:       build,
	})
	if err != nil {
		return nil, err
	}
	zap.S().Infow("✅ environment created", "name", environment.Name, "version", environment.Version)
	return environment, nil
}

// EnsureComponent loads a local declarative definition and registers it unless
// the exact (name, version) already exists.
func (r *Registrar) EnsureComponent(ctx context.Context, yamlPath string) (*platform.Component, error) {
	definition, err := component.Load(yamlPath)
	if err != nil {
		return nil, err
	}
	registered, err := r.client.GetComponent(ctx, definition.Name, definition.Version)
	if err == nil {
		zap.S().Infow("✅ component", "name", registered.Name, "version", registered.Version)
		return registered, nil
	}
	if !platform.IsNotFound(err) {
		return nil, err
	}
	registered, err = r.client.CreateOrUpdateComponent(ctx, definition.Component())
	if err != nil {
		return nil, err
	}
	zap.S().Infow("✅ component created", "name", registered.Name, "version", registered.Version)
	return registered, nil
}

// ResolveData fetches the named dataset, there is no create fallback for data.
func (r *Registrar) ResolveData(ctx context.Context, name string) (*platform.DataAsset, error) {
	data, err := r.client.GetData(ctx, name, latestLabel)
	if err != nil {
		return nil, err
	}
	zap.S().Infow("✅ data", "name", data.Name)
	return data, nil
}

// SubmitTraining submits the two-node training pipeline: dataset in, train
// component, model artifact out. The step is named after the component so the
// training child job can be selected unambiguously later.
func (r *Registrar) SubmitTraining(ctx context.Context, train *platform.Component, data *platform.DataAsset) (*platform.Job, error) {
	pipeline := &platform.PipelineJob{
		DisplayName: r.cfg.Experiment + "_training",
		Experiment:  r.cfg.Experiment,
		Compute:     r.cfg.Cluster,
		Steps: []platform.Step{
			{
				Name:      train.Name,
				Component: train.ID(),
				Inputs:    map[string]string{"input_data": data.ID()},
				Outputs:   []string{"output_model"},
			},
		},
	}
	job, err := r.client.CreateJob(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	zap.S().Infow("training job submitted", "name", job.Name, "studioUrl", job.StudioURL)
	return job, nil
}

// WaitForJob polls the job until it reaches a terminal status, printing new
// log lines as they appear. The wait is bounded by the poll timeout and the
// caller's context, there is no unbounded blocking stream.
func (r *Registrar) WaitForJob(ctx context.Context, name string) (*platform.Job, error) {
	ctx, cancel := context.WithTimeout(ctx, r.pollTimeout)
	defer cancel()
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()
	offset := 0
	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for job %s: %w", name, ctx.Err())
		case <-ticker.C:
			logs, err := r.client.GetJobLogs(ctx, name, offset)
			if err != nil {
				zap.S().Warnw("job log fetch error", "name", name, "err", err)
			} else {
				for _, line := range logs.Lines {
					zap.S().Infow("job log",
						"msg", gjson.Get(line, "msg").String(),
						"status", gjson.Get(line, "status").String(),
					)
				}
				offset = logs.Next
			}
			job, err := r.client.GetJob(ctx, name)
			if err != nil {
				return nil, err
			}
			if platform.TerminalStatus(job.Status) {
				return job, nil
			}
		}
	}
}

// RegisterModel selects the training step's child job by exact step name and
// registers its output artifact as a model. Zero or multiple matches is an
// error, there is no fall-back to the first child.
func (r *Registrar) RegisterModel(ctx context.Context, parent *platform.Job, stepName string) (*platform.Model, error) {
	children, err := r.client.ListChildJobs(ctx, parent.Name)
	if err != nil {
		return nil, err
	}
	var trainJob *platform.Job
	for i := range children {
		if children[i].StepName != stepName {
			continue
		}
		if trainJob != nil {
			return nil, fmt.Errorf("job %s: step %q matches more than one child job", parent.Name, stepName)
		}
		trainJob = &children[i]
	}
	if trainJob == nil {
		return nil, fmt.Errorf("job %s: no child job for step %q among %d children", parent.Name, stepName, len(children))
	}
	model, err := r.client.CreateOrUpdateModel(ctx, &platform.Model{
		Name: r.cfg.Experiment + "-model",
		Path: trainJob.OutputArtifactPath("output_model"),
		Type: "custom_model",
	})
	if err != nil {
		return nil, err
	}
	zap.S().Infow("✅ model", "name", model.Name, "version", model.Version)
	return model, nil
}

// PublishBatchDeployment registers the scoring pipeline as a component,
// creates the batch endpoint and deployment when absent and makes the new
// deployment the endpoint default. The four remote mutations are sequential
// with no transactionality, a later failure leaves earlier ones in place.
func (r *Registrar) PublishBatchDeployment(ctx context.Context, score *platform.Component, model *platform.Model) error {
	pipelineComponent, err := r.client.CreateOrUpdateComponent(ctx, &platform.Component{
		Name:        r.cfg.Experiment + "-scoring",
		Version:     model.Version,
		DisplayName: r.cfg.Experiment + " scoring pipeline",
		Environment: score.Environment,
		Command: "mlpipe score --input_data ${{inputs.input_data}}" +
			" --output_data ${{outputs.output_data}} --model_path " + model.ID(),
		Inputs:  map[string]platform.Port{"input_data": {Type: "uri_file"}},
		Outputs: map[string]platform.Port{"output_data": {Type: "uri_folder"}},
	})
	if err != nil {
		return err
	}

	endpointName := r.cfg.Experiment + "-endpoint"
	deploymentName := r.cfg.Experiment + "-deployment"
	endpoint, err := r.client.GetBatchEndpoint(ctx, endpointName)
	if err != nil {
		if !platform.IsNotFound(err) {
			return err
		}
		endpoint, err = r.client.CreateOrUpdateBatchEndpoint(ctx, &platform.BatchEndpoint{Name: endpointName})
		if err != nil {
			return err
		}
	}
	zap.S().Infow("endpoint", "name", endpoint.Name)

	if _, err := r.client.CreateOrUpdateBatchDeployment(ctx, &platform.BatchDeployment{
		Name:         deploymentName,
		EndpointName: endpointName,
		Component:    pipelineComponent.ID(),
		Settings: map[string]interface{}{
			"continue_on_step_failure": false,
			"default_compute":          r.cfg.Cluster,
		},
	}); err != nil {
		return err
	}

	endpoint.Defaults.DeploymentName = deploymentName
	if _, err := r.client.CreateOrUpdateBatchEndpoint(ctx, endpoint); err != nil {
		return err
	}
	zap.S().Infow("✅ deployment", "name", deploymentName, "endpoint", endpointName)
	return nil
}

// Run executes the whole registration flow in order.
func (r *Registrar) Run(ctx context.Context) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "register")
	defer span.Finish()

	environmentName := viper.GetString(env.EnvironmentName)
	if _, err := r.EnsureEnvironment(ctx,
		environmentName,
		viper.GetString(env.BuildContextPath),
		viper.GetString(env.DockerfilePath),
	); err != nil {
		return err
	}

	train, err := r.EnsureComponent(ctx, viper.GetString(env.TrainComponentPath))
	if err != nil {
		return err
	}
	score, err := r.EnsureComponent(ctx, viper.GetString(env.ScoreComponentPath))
	if err != nil {
		return err
	}

	data, err := r.ResolveData(ctx, r.cfg.DatasourceName)
	if err != nil {
		return err
	}

	job, err := r.SubmitTraining(ctx, train, data)
	if err != nil {
		return err
	}
	job, err = r.WaitForJob(ctx, job.Name)
	if err != nil {
		return err
	}
	if job.Status != platform.StatusCompleted {
		zap.S().Errorw("training failed", "name", job.Name, "status", job.Status)
		return nil
	}

	model, err := r.RegisterModel(ctx, job, train.Name)
	if err != nil {
		return err
	}
	return r.PublishBatchDeployment(ctx, score, model)
}
