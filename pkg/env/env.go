package env

const (
	Config             = "config"
	Endpoint           = "endpoint"
	Token              = "token"
	Local              = "local"
	Port               = "port"
	Environment        = "Environment"
	Datasource         = "datasource"
	PollInterval       = "pollInterval"
	PollTimeout        = "pollTimeout"
	EnvironmentName    = "environmentName"
	TrainComponentPath = "trainComponentPath"
	ScoreComponentPath = "scoreComponentPath"
	DockerfilePath     = "dockerfilePath"
	BuildContextPath   = "buildContextPath"
	TraceAgentHostPort = "TraceAgentHostPort"
)
