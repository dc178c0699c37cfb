package platform

// Workspace identifies the remote ML workspace every request is scoped to.
type Workspace struct {
	SubscriptionID string `json:"subscriptionId"`
	ResourceGroup  string `json:"resourceGroup"`
	Name           string `json:"name"`
}

// Credential is passed explicitly to the client constructor,
// the client never resolves an ambient identity on its own.
type Credential struct {
	Token string
}

// Environment is a reproducible execution image managed by the platform.
type Environment struct {
	Name        string        `json:"name"`
	Version     string        `json:"version,omitempty"`
	Description string        `json:"description,omitempty"`
	Build       *BuildContext `json:"build,omitempty"`
}

// BuildContext carries a docker build context as a base64-encoded zip archive.
type BuildContext struct {
	DockerfilePath string `json:"dockerfilePath"`
	Archive        string `json:"archive"`
}

// Port declares one input or output of a component.
type Port struct {
	Type        string `json:"type" yaml:"type"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Component is a versioned, reusable unit of computation.
type Component struct {
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	DisplayName string          `json:"displayName,omitempty"`
	Command     string          `json:"command,omitempty"`
	Environment string          `json:"environment,omitempty"`
	Inputs      map[string]Port `json:"inputs,omitempty"`
	Outputs     map[string]Port `json:"outputs,omitempty"`
}

// ID returns the platform reference for a registered component.
func (c *Component) ID() string {
	return "component:" + c.Name + ":" + c.Version
}

// DataAsset is a named dataset owned by the platform.
type DataAsset struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
	URI     string `json:"uri"`
}

// ID returns the platform reference for a data asset.
func (d *DataAsset) ID() string {
	return "data:" + d.Name + ":" + d.Version
}

// job lifecycle states owned by the platform
const (
	StatusQueued    = "Queued"
	StatusRunning   = "Running"
	StatusCompleted = "Completed"
	StatusFailed    = "Failed"
	StatusCanceled  = "Canceled"
)

// TerminalStatus reports whether a job status is final.
func TerminalStatus(status string) bool {
	switch status {
	case StatusCompleted, StatusFailed, StatusCanceled:
		return true
	}
	return false
}

// Step is one node of a pipeline job graph.
type Step struct {
	Name      string            `json:"name"`
	Component string            `json:"component"`
	Inputs    map[string]string `json:"inputs,omitempty"`
	Outputs   []string          `json:"outputs,omitempty"`
}

// PipelineJob is the submission spec for a directed pipeline of steps.
type PipelineJob struct {
	DisplayName string `json:"displayName"`
	Experiment  string `json:"experiment"`
	Compute     string `json:"compute"`
	Steps       []Step `json:"steps"`
}

// Job is the platform's view of a submitted pipeline or one of its steps.
type Job struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Experiment  string `json:"experiment,omitempty"`
	StepName    string `json:"stepName,omitempty"`
	Status      string `json:"status"`
	StudioURL   string `json:"studioUrl,omitempty"`
}

// OutputArtifactPath is the artifact reference of a named output of a step job.
func (j *Job) OutputArtifactPath(output string) string {
	return "jobs/" + j.Name + "/outputs/" + output
}

// JobLogs is one page of job log lines, each line a JSON document.
type JobLogs struct {
	Lines []string `json:"lines"`
	Next  int      `json:"next"`
}

// Model is a registered, versioned model artifact.
type Model struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
	Path    string `json:"path"`
	Type    string `json:"type,omitempty"`
}

// ID returns the platform reference for a registered model.
func (m *Model) ID() string {
	return "model:" + m.Name + ":" + m.Version
}

// EndpointDefaults names the deployment an endpoint routes to by default.
type EndpointDefaults struct {
	DeploymentName string `json:"deploymentName,omitempty"`
}

// BatchEndpoint is a published batch-scoring address.
type BatchEndpoint struct {
	Name     string           `json:"name"`
	Defaults EndpointDefaults `json:"defaults"`
}

// BatchDeployment binds a pipeline component to a batch endpoint.
type BatchDeployment struct {
	Name         string                 `json:"name"`
	EndpointName string                 `json:"endpointName"`
	Component    string                 `json:"component"`
	Settings     map[string]interface{} `json:"settings,omitempty"`
}
