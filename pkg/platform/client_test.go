package platform_test

import (
	"context"
	"io/ioutil"
	"net/http/httptest"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/iguard-io/mlpipe/pkg/platform"
	"github.com/iguard-io/mlpipe/pkg/platform/fake"
	_ "github.com/iguard-io/mlpipe/pkg/tools/log"
)

func newTestClient(t *testing.T, p *fake.Platform) platform.Client {
	t.Helper()
	server := httptest.NewServer(p.Engine())
	t.Cleanup(server.Close)
	return platform.NewClient(
		server.URL,
		platform.Workspace{SubscriptionID: "sub", ResourceGroup: "rg", Name: "ws"},
		platform.Credential{Token: "test-token"},
	)
}

func TestEnvironmentRoundtrip(t *testing.T) {
	Convey("environment get and create against the fake platform", t, func() {
		client := newTestClient(t, fake.New())
		ctx := context.Background()

		Convey("get before create is not-found", func() {
			environment, err := client.GetEnvironment(ctx, "iguard-env", "latest")
			So(platform.IsNotFound(err), ShouldBeTrue)
			So(environment, ShouldBeNil)
		})
		Convey("create then get", func() {
			created, err := client.CreateOrUpdateEnvironment(ctx, &platform.Environment{
				Name:        "iguard-env",
				Description: "Environment for iguard-env",
			})
			So(err, ShouldBeNil)
			So(created.Version, ShouldEqual, "1")

			environment, err := client.GetEnvironment(ctx, "iguard-env", "latest")
			So(err, ShouldBeNil)
			So(environment.Name, ShouldEqual, "iguard-env")
		})
	})
}

func TestComponentRoundtrip(t *testing.T) {
	Convey("component get and create against the fake platform", t, func() {
		client := newTestClient(t, fake.New())
		ctx := context.Background()

		_, err := client.GetComponent(ctx, "train", "1")
		So(platform.IsNotFound(err), ShouldBeTrue)

		created, err := client.CreateOrUpdateComponent(ctx, &platform.Component{
			Name:    "train",
			Version: "1",
			Command: "python train.py",
		})
		So(err, ShouldBeNil)
		So(created.ID(), ShouldEqual, "component:train:1")

		component, err := client.GetComponent(ctx, "train", "1")
		So(err, ShouldBeNil)
		So(component.Command, ShouldEqual, "python train.py")
	})
}

func TestDataLookup(t *testing.T) {
	Convey("data lookup against the fake platform", t, func() {
		p := fake.New()
		p.AddData("iguard-data", "local://iguard-data")
		client := newTestClient(t, p)
		ctx := context.Background()

		data, err := client.GetData(ctx, "iguard-data", "latest")
		So(err, ShouldBeNil)
		So(data.URI, ShouldEqual, "local://iguard-data")

		_, err = client.GetData(ctx, "unknown", "latest")
		So(platform.IsNotFound(err), ShouldBeTrue)
	})
}

func TestJobLifecycle(t *testing.T) {
	Convey("job submission and polling against the fake platform", t, func() {
		p := fake.New()
		client := newTestClient(t, p)
		ctx := context.Background()

		job, err := client.CreateJob(ctx, &platform.PipelineJob{
			DisplayName: "iguard_training",
			Experiment:  "iguard",
			Compute:     "cpu-cluster",
			Steps: []platform.Step{
				{Name: "train", Component: "component:train:1", Outputs: []string{"output_model"}},
			},
		})
		So(err, ShouldBeNil)
		So(job.Name, ShouldNotBeEmpty)
		So(job.Status, ShouldEqual, platform.StatusQueued)

		Convey("polling advances the job to terminal", func() {
			polled, err := client.GetJob(ctx, job.Name)
			So(err, ShouldBeNil)
			So(polled.Status, ShouldEqual, platform.StatusRunning)

			polled, err = client.GetJob(ctx, job.Name)
			So(err, ShouldBeNil)
			So(polled.Status, ShouldEqual, platform.StatusCompleted)

			children, err := client.ListChildJobs(ctx, job.Name)
			So(err, ShouldBeNil)
			So(len(children), ShouldEqual, 1)
			So(children[0].StepName, ShouldEqual, "train")
			So(children[0].Status, ShouldEqual, platform.StatusCompleted)
		})
		Convey("log pages are offset based", func() {
			logs, err := client.GetJobLogs(ctx, job.Name, 0)
			So(err, ShouldBeNil)
			So(len(logs.Lines), ShouldEqual, 1)

			again, err := client.GetJobLogs(ctx, job.Name, logs.Next)
			So(err, ShouldBeNil)
			So(len(again.Lines), ShouldEqual, 0)
		})
	})
}

func TestJobFailure(t *testing.T) {
	Convey("a failing platform job reaches the Failed status", t, func() {
		p := fake.New()
		p.TerminalStatus = platform.StatusFailed
		p.PollsToFinish = 1
		client := newTestClient(t, p)
		ctx := context.Background()

		job, err := client.CreateJob(ctx, &platform.PipelineJob{
			DisplayName: "iguard_training",
			Steps:       []platform.Step{{Name: "train"}},
		})
		So(err, ShouldBeNil)

		polled, err := client.GetJob(ctx, job.Name)
		So(err, ShouldBeNil)
		So(polled.Status, ShouldEqual, platform.StatusFailed)
	})
}

func TestEndpointAndDeployment(t *testing.T) {
	Convey("batch endpoint and deployment against the fake platform", t, func() {
		client := newTestClient(t, fake.New())
		ctx := context.Background()

		_, err := client.GetBatchEndpoint(ctx, "iguard-endpoint")
		So(platform.IsNotFound(err), ShouldBeTrue)

		endpoint, err := client.CreateOrUpdateBatchEndpoint(ctx, &platform.BatchEndpoint{Name: "iguard-endpoint"})
		So(err, ShouldBeNil)

		_, err = client.CreateOrUpdateBatchDeployment(ctx, &platform.BatchDeployment{
			Name:         "iguard-deployment",
			EndpointName: endpoint.Name,
			Component:    "component:iguard-scoring:1",
		})
		So(err, ShouldBeNil)

		endpoint.Defaults.DeploymentName = "iguard-deployment"
		updated, err := client.CreateOrUpdateBatchEndpoint(ctx, endpoint)
		So(err, ShouldBeNil)
		So(updated.Defaults.DeploymentName, ShouldEqual, "iguard-deployment")
	})
}

func TestEnvironmentBuildContext(t *testing.T) {
	Convey("environment creation carries a verifiable build context", t, func() {
		client := newTestClient(t, fake.New())
		ctx := context.Background()

		dir := t.TempDir()
		So(ioutil.WriteFile(filepath.Join(dir, "Dockerfile"), []byte("FROM scratch\n"), 0644), ShouldBeNil)

		Convey("a packed context is accepted", func() {
			build, err := platform.PackBuildContext(dir, "Dockerfile")
			So(err, ShouldBeNil)

			created, err := client.CreateOrUpdateEnvironment(ctx, &platform.Environment{
				Name:  "iguard-env",
				Build: build,
			})
			So(err, ShouldBeNil)
			So(created.Version, ShouldEqual, "1")
		})
		Convey("a corrupt archive is rejected", func() {
			created, err := client.CreateOrUpdateEnvironment(ctx, &platform.Environment{
				Name:  "iguard-env",
				Build: &platform.BuildContext{DockerfilePath: "Dockerfile", Archive: "not an archive"},
			})
			So(err, ShouldNotBeNil)
			So(platform.IsNotFound(err), ShouldBeFalse)
			So(created, ShouldBeNil)
		})
		Convey("a context without the declared dockerfile is rejected", func() {
			build, err := platform.PackBuildContext(dir, "Dockerfile")
			So(err, ShouldBeNil)
			build.DockerfilePath = "Dockerfile.prod"

			created, err := client.CreateOrUpdateEnvironment(ctx, &platform.Environment{
				Name:  "iguard-env",
				Build: build,
			})
			So(err, ShouldNotBeNil)
			So(created, ShouldBeNil)
		})
	})
}
