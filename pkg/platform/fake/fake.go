package fake

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	cmap "github.com/orcaman/concurrent-map"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/xid"

	"github.com/iguard-io/mlpipe/pkg/platform"
)

// Platform is an in-memory stand-in for the remote workspace API.
// It backs the client tests and the `mlpipe platform` dev server.
// Resource state lives in concurrent maps because the gin engine serves
// requests from multiple goroutines.
type Platform struct {
	environments cmap.ConcurrentMap
	components   cmap.ConcurrentMap
	data         cmap.ConcurrentMap
	jobs         cmap.ConcurrentMap
	models       cmap.ConcurrentMap
	endpoints    cmap.ConcurrentMap
	deployments  cmap.ConcurrentMap

	// TerminalStatus is the status submitted jobs settle into, default Completed.
	TerminalStatus string
	// PollsToFinish is how many status polls a job survives before turning terminal.
	PollsToFinish int

	registry *prometheus.Registry
	requests prometheus.Counter
}

// jobState tracks a submitted pipeline and its step jobs.
type jobState struct {
	job      platform.Job
	children []platform.Job
	logs     []string
	polls    int
}

func New() *Platform {
	// a private registry so that multiple fakes can live in one test binary
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mlpipe_fake_platform_requests_total",
		Help: "Requests served by the fake platform.",
	})
	registry.MustRegister(requests)
	return &Platform{
		environments:   cmap.New(),
		components:     cmap.New(),
		data:           cmap.New(),
		jobs:           cmap.New(),
		models:         cmap.New(),
		endpoints:      cmap.New(),
		deployments:    cmap.New(),
		TerminalStatus: platform.StatusCompleted,
		PollsToFinish:  2,
		registry:       registry,
		requests:       requests,
	}
}

// AddData seeds a named dataset, the registrar resolves datasets but never creates them.
func (p *Platform) AddData(name, uri string) {
	p.data.Set(name, &platform.DataAsset{Name: name, Version: "1", URI: uri})
}

// Engine builds a gin engine serving the workspace API.
func (p *Platform) Engine() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	p.RegisterRoute(r)
	return r
}

// RegisterRoute registers the workspace API routes.
func (p *Platform) RegisterRoute(r *gin.Engine) {
	r.Use(cors.New(cors.Config{
		AllowMethods:     []string{"PUT", "POST", "GET", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-Id"},
		AllowCredentials: true,
		AllowOriginFunc: func(origin string) bool {
			return true
		},
		MaxAge: 12 * time.Hour,
	}))
	r.Use(func(c *gin.Context) {
		p.requests.Inc()
		c.Next()
	})
	ws := r.Group("/api/v1/subscriptions/:sub/resourceGroups/:rg/workspaces/:ws")
	{
		ws.GET("/environments/:name", p.getEnvironment)
		ws.PUT("/environments/:name", p.putEnvironment)
		ws.GET("/components/:name/versions/:version", p.getComponent)
		ws.PUT("/components/:name/versions/:version", p.putComponent)
		ws.GET("/data/:name", p.getData)
		ws.POST("/jobs", p.postJob)
		ws.GET("/jobs/:name", p.getJob)
		ws.GET("/jobs/:name/children", p.getChildJobs)
		ws.GET("/jobs/:name/logs", p.getJobLogs)
		ws.PUT("/models/:name", p.putModel)
		ws.GET("/endpoints/:name", p.getEndpoint)
		ws.PUT("/endpoints/:name", p.putEndpoint)
		ws.PUT("/endpoints/:name/deployments/:deployment", p.putDeployment)
	}
	r.GET("/metrics", p.prometheusHandler())
}

func (p *Platform) prometheusHandler() gin.HandlerFunc {
	h := promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

func notFound(c *gin.Context, kind, name string) {
	c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("%s %q not found", kind, name)})
}

func (p *Platform) getEnvironment(c *gin.Context) {
	value, existed := p.environments.Get(c.Param("name"))
	if !existed {
		notFound(c, "environment", c.Param("name"))
		return
	}
	c.JSON(http.StatusOK, value)
}

func (p *Platform) putEnvironment(c *gin.Context) {
	environment := &platform.Environment{}
	if err := c.BindJSON(environment); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if environment.Build != nil {
		if err := p.validateBuildContext(environment.Build); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	environment.Name = c.Param("name")
	if environment.Version == "" {
		environment.Version = "1"
	}
	p.environments.Set(environment.Name, environment)
	c.JSON(http.StatusOK, environment)
}

// validateBuildContext expands the submitted archive the way the real image
// builder would and checks the declared dockerfile is actually in it.
func (p *Platform) validateBuildContext(build *platform.BuildContext) error {
	dir, err := ioutil.TempDir("", "mlpipe-buildctx")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)
	if _, err := platform.UnpackBuildContext(build, dir); err != nil {
		return fmt.Errorf("invalid build context: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(build.DockerfilePath))); err != nil {
		return fmt.Errorf("dockerfile %q not in build context", build.DockerfilePath)
	}
	return nil
}

func (p *Platform) getComponent(c *gin.Context) {
	key := c.Param("name") + ":" + c.Param("version")
	value, existed := p.components.Get(key)
	if !existed {
		notFound(c, "component", key)
		return
	}
	c.JSON(http.StatusOK, value)
}

func (p *Platform) putComponent(c *gin.Context) {
	component := &platform.Component{}
	if err := c.BindJSON(component); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	component.Name = c.Param("name")
	component.Version = c.Param("version")
	p.components.Set(component.Name+":"+component.Version, component)
	c.JSON(http.StatusOK, component)
}

func (p *Platform) getData(c *gin.Context) {
	value, existed := p.data.Get(c.Param("name"))
	if !existed {
		notFound(c, "data", c.Param("name"))
		return
	}
	c.JSON(http.StatusOK, value)
}

func (p *Platform) postJob(c *gin.Context) {
	pipeline := &platform.PipelineJob{}
	if err := c.BindJSON(pipeline); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	name := xid.New().String()
	state := &jobState{
		job: platform.Job{
			Name:        name,
			DisplayName: pipeline.DisplayName,
			Experiment:  pipeline.Experiment,
			Status:      platform.StatusQueued,
			StudioURL:   "http://studio.local/jobs/" + name,
		},
	}
	for _, step := range pipeline.Steps {
		state.children = append(state.children, platform.Job{
			Name:        name + "_" + step.Name,
			DisplayName: pipeline.DisplayName + " " + step.Name,
			StepName:    step.Name,
			Status:      platform.StatusQueued,
		})
	}
	state.appendLog("job accepted", platform.StatusQueued)
	p.jobs.Set(name, state)
	c.JSON(http.StatusOK, state.job)
}

func (s *jobState) appendLog(message, status string) {
	line, _ := json.Marshal(map[string]string{
		"time":   time.Now().Format(time.RFC3339),
		"msg":    message,
		"status": status,
	})
	s.logs = append(s.logs, string(line))
}

// advance moves the job through Queued -> Running -> terminal as it gets polled.
func (p *Platform) advance(state *jobState) {
	if platform.TerminalStatus(state.job.Status) {
		return
	}
	state.polls++
	switch {
	case state.polls >= p.PollsToFinish:
		state.job.Status = p.TerminalStatus
		state.appendLog("job finished", state.job.Status)
		for i := range state.children {
			state.children[i].Status = p.TerminalStatus
		}
	case state.job.Status == platform.StatusQueued:
		state.job.Status = platform.StatusRunning
		state.appendLog("job running", state.job.Status)
		for i := range state.children {
			state.children[i].Status = platform.StatusRunning
		}
	}
}

func (p *Platform) getJob(c *gin.Context) {
	value, existed := p.jobs.Get(c.Param("name"))
	if !existed {
		notFound(c, "job", c.Param("name"))
		return
	}
	state := value.(*jobState)
	p.advance(state)
	c.JSON(http.StatusOK, state.job)
}

func (p *Platform) getChildJobs(c *gin.Context) {
	value, existed := p.jobs.Get(c.Param("name"))
	if !existed {
		notFound(c, "job", c.Param("name"))
		return
	}
	c.JSON(http.StatusOK, value.(*jobState).children)
}

func (p *Platform) getJobLogs(c *gin.Context) {
	value, existed := p.jobs.Get(c.Param("name"))
	if !existed {
		notFound(c, "job", c.Param("name"))
		return
	}
	state := value.(*jobState)
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset > len(state.logs) {
		offset = len(state.logs)
	}
	c.JSON(http.StatusOK, platform.JobLogs{
		Lines: state.logs[offset:],
		Next:  len(state.logs),
	})
}

func (p *Platform) putModel(c *gin.Context) {
	model := &platform.Model{}
	if err := c.BindJSON(model); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	model.Name = c.Param("name")
	if model.Version == "" {
		model.Version = "1"
	}
	p.models.Set(model.Name, model)
	c.JSON(http.StatusOK, model)
}

func (p *Platform) getEndpoint(c *gin.Context) {
	value, existed := p.endpoints.Get(c.Param("name"))
	if !existed {
		notFound(c, "endpoint", c.Param("name"))
		return
	}
	c.JSON(http.StatusOK, value)
}

func (p *Platform) putEndpoint(c *gin.Context) {
	endpoint := &platform.BatchEndpoint{}
	if err := c.BindJSON(endpoint); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	endpoint.Name = c.Param("name")
	p.endpoints.Set(endpoint.Name, endpoint)
	c.JSON(http.StatusOK, endpoint)
}

func (p *Platform) putDeployment(c *gin.Context) {
	deployment := &platform.BatchDeployment{}
	if err := c.BindJSON(deployment); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	deployment.Name = c.Param("deployment")
	deployment.EndpointName = c.Param("name")
	p.deployments.Set(deployment.EndpointName+":"+deployment.Name, deployment)
	c.JSON(http.StatusOK, deployment)
}
