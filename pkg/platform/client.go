package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"time"

	"github.com/avast/retry-go"
	"github.com/rs/xid"
	"go.uber.org/zap"
)

// Client is the remote workspace API surface the tool depends on.
// The platform is the source of truth for every resource, each Get is authoritative.
type Client interface {
	GetEnvironment(ctx context.Context, name, label string) (*Environment, error)
	CreateOrUpdateEnvironment(ctx context.Context, environment *Environment) (*Environment, error)
	GetComponent(ctx context.Context, name, version string) (*Component, error)
	CreateOrUpdateComponent(ctx context.Context, component *Component) (*Component, error)
	GetData(ctx context.Context, name, label string) (*DataAsset, error)
	CreateJob(ctx context.Context, pipeline *PipelineJob) (*Job, error)
	GetJob(ctx context.Context, name string) (*Job, error)
	ListChildJobs(ctx context.Context, parentName string) ([]Job, error)
	GetJobLogs(ctx context.Context, name string, offset int) (*JobLogs, error)
	CreateOrUpdateModel(ctx context.Context, model *Model) (*Model, error)
	GetBatchEndpoint(ctx context.Context, name string) (*BatchEndpoint, error)
	CreateOrUpdateBatchEndpoint(ctx context.Context, endpoint *BatchEndpoint) (*BatchEndpoint, error)
	CreateOrUpdateBatchDeployment(ctx context.Context, deployment *BatchDeployment) (*BatchDeployment, error)
}

type workspaceClient struct {
	endpoint   string
	workspace  Workspace
	credential Credential
	client     *http.Client
}

var _ Client = &workspaceClient{}

// NewClient builds a workspace client. The credential is an explicit parameter,
// callers decide where it comes from.
func NewClient(endpoint string, workspace Workspace, credential Credential) Client {
	return &workspaceClient{
		endpoint:   endpoint,
		workspace:  workspace,
		credential: credential,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *workspaceClient) base() string {
	return fmt.Sprintf("%s/api/v1/subscriptions/%s/resourceGroups/%s/workspaces/%s",
		c.endpoint, c.workspace.SubscriptionID, c.workspace.ResourceGroup, c.workspace.Name)
}

// do issues one request with bounded retries on transient failures.
// Not-found and other client errors are returned as-is on the first attempt.
func (c *workspaceClient) do(ctx context.Context, method, path string, query url.Values, in, out interface{}) error {
	return retry.Do(
		func() error {
			return c.once(ctx, method, path, query, in, out)
		},
		retry.RetryIf(func(err error) bool {
			var transient *TransientError
			return errors.As(err, &transient)
		}),
		retry.Attempts(3),
		// surface the final error itself, not retry-go's aggregate,
		// so errors.Is still sees ErrNotFound
		retry.LastErrorOnly(true),
	)
}

func (c *workspaceClient) once(ctx context.Context, method, path string, query url.Values, in, out interface{}) error {
	var body *bytes.Reader
	if in != nil {
		reqByte, err := json.Marshal(in)
		if err != nil {
			zap.S().Errorw("platform request body error", "path", path, "err", err)
			return err
		}
		body = bytes.NewReader(reqByte)
	} else {
		body = bytes.NewReader(nil)
	}
	target := c.base() + path
	if len(query) > 0 {
		target = target + "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		zap.S().Errorw("platform request build error", "path", path, "err", err)
		return err
	}
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("X-Request-Id", xid.New().String())
	if c.credential.Token != "" {
		req.Header.Add("Authorization", "Bearer "+c.credential.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return &TransientError{Err: err}
	}
	defer resp.Body.Close()
	respByte, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return &TransientError{Err: err}
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	case resp.StatusCode >= http.StatusInternalServerError:
		zap.S().Warnw("platform transient error", "path", path, "status", resp.StatusCode)
		return &TransientError{Status: resp.StatusCode}
	case resp.StatusCode >= http.StatusBadRequest:
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, string(respByte))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(respByte, out)
}

func (c *workspaceClient) GetEnvironment(ctx context.Context, name, label string) (*Environment, error) {
	environment := &Environment{}
	query := url.Values{"label": []string{label}}
	if err := c.do(ctx, http.MethodGet, "/environments/"+name, query, nil, environment); err != nil {
		return nil, err
	}
	return environment, nil
}

func (c *workspaceClient) CreateOrUpdateEnvironment(ctx context.Context, environment *Environment) (*Environment, error) {
	created := &Environment{}
	if err := c.do(ctx, http.MethodPut, "/environments/"+environment.Name, nil, environment, created); err != nil {
		return nil, err
	}
	return created, nil
}

func (c *workspaceClient) GetComponent(ctx context.Context, name, version string) (*Component, error) {
	component := &Component{}
	if err := c.do(ctx, http.MethodGet, "/components/"+name+"/versions/"+version, nil, nil, component); err != nil {
		return nil, err
	}
	return component, nil
}

func (c *workspaceClient) CreateOrUpdateComponent(ctx context.Context, component *Component) (*Component, error) {
	created := &Component{}
	if err := c.do(ctx, http.MethodPut, "/components/"+component.Name+"/versions/"+component.Version, nil, component, created); err != nil {
		return nil, err
	}
	return created, nil
}

func (c *workspaceClient) GetData(ctx context.Context, name, label string) (*DataAsset, error) {
	data := &DataAsset{}
	query := url.Values{"label": []string{label}}
	if err := c.do(ctx, http.MethodGet, "/data/"+name, query, nil, data); err != nil {
		return nil, err
	}
	return data, nil
}

func (c *workspaceClient) CreateJob(ctx context.Context, pipeline *PipelineJob) (*Job, error) {
	job := &Job{}
	if err := c.do(ctx, http.MethodPost, "/jobs", nil, pipeline, job); err != nil {
		return nil, err
	}
	return job, nil
}

func (c *workspaceClient) GetJob(ctx context.Context, name string) (*Job, error) {
	job := &Job{}
	if err := c.do(ctx, http.MethodGet, "/jobs/"+name, nil, nil, job); err != nil {
		return nil, err
	}
	return job, nil
}

func (c *workspaceClient) ListChildJobs(ctx context.Context, parentName string) ([]Job, error) {
	children := []Job{}
	if err := c.do(ctx, http.MethodGet, "/jobs/"+parentName+"/children", nil, nil, &children); err != nil {
		return nil, err
	}
	return children, nil
}

func (c *workspaceClient) GetJobLogs(ctx context.Context, name string, offset int) (*JobLogs, error) {
	logs := &JobLogs{}
	query := url.Values{"offset": []string{fmt.Sprintf("%d", offset)}}
	if err := c.do(ctx, http.MethodGet, "/jobs/"+name+"/logs", query, nil, logs); err != nil {
		return nil, err
	}
	return logs, nil
}

func (c *workspaceClient) CreateOrUpdateModel(ctx context.Context, model *Model) (*Model, error) {
	created := &Model{}
	if err := c.do(ctx, http.MethodPut, "/models/"+model.Name, nil, model, created); err != nil {
		return nil, err
	}
	return created, nil
}

func (c *workspaceClient) GetBatchEndpoint(ctx context.Context, name string) (*BatchEndpoint, error) {
	endpoint := &BatchEndpoint{}
	if err := c.do(ctx, http.MethodGet, "/endpoints/"+name, nil, nil, endpoint); err != nil {
		return nil, err
	}
	return endpoint, nil
}

func (c *workspaceClient) CreateOrUpdateBatchEndpoint(ctx context.Context, endpoint *BatchEndpoint) (*BatchEndpoint, error) {
	created := &BatchEndpoint{}
	if err := c.do(ctx, http.MethodPut, "/endpoints/"+endpoint.Name, nil, endpoint, created); err != nil {
		return nil, err
	}
	return created, nil
}

func (c *workspaceClient) CreateOrUpdateBatchDeployment(ctx context.Context, deployment *BatchDeployment) (*BatchDeployment, error) {
	created := &BatchDeployment{}
	path := "/endpoints/" + deployment.EndpointName + "/deployments/" + deployment.Name
	if err := c.do(ctx, http.MethodPut, path, nil, deployment, created); err != nil {
		return nil, err
	}
	return created, nil
}
