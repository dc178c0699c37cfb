package predictmodel

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	_ "github.com/iguard-io/mlpipe/pkg/tools/log"
)

func TestSaveLoadPredict(t *testing.T) {
	Convey("test model artifact save, load and predict", t, func() {
		artifact := &Artifact{
			Version:   1,
			Features:  []string{"f1", "f2"},
			Weights:   []float64{2, 3},
			Intercept: 1,
		}
		dir := t.TempDir()
		So(Save(dir, artifact), ShouldBeNil)

		Convey("load from the artifact directory", func() {
			loaded, err := Load(dir)
			So(err, ShouldBeNil)
			So(loaded, ShouldResemble, artifact)
		})
		Convey("load from the artifact file", func() {
			loaded, err := Load(filepath.Join(dir, "model.yaml"))
			So(err, ShouldBeNil)
			So(loaded, ShouldResemble, artifact)
		})
		Convey("predict", func() {
			predictions := artifact.Predict([][]float64{
				{1, 1},
				{0, 0},
				{2, -1},
			})
			So(predictions, ShouldResemble, []float64{6, 1, 2})
		})
		Convey("predict with no rows", func() {
			So(artifact.Predict(nil), ShouldBeNil)
		})
	})
}

func TestLoadBrokenArtifact(t *testing.T) {
	Convey("test loading a broken artifact", t, func() {
		Convey("weights and features disagree", func() {
			dir := t.TempDir()
			content := "version: 1\nfeatures: [f1]\nweights: [1, 2]\nintercept: 0\n"
			So(ioutil.WriteFile(filepath.Join(dir, "model.yaml"), []byte(content), 0644), ShouldBeNil)
			artifact, err := Load(dir)
			So(err, ShouldNotBeNil)
			So(artifact, ShouldBeNil)
		})
		Convey("missing path", func() {
			artifact, err := Load(filepath.Join(t.TempDir(), "nope"))
			So(err, ShouldNotBeNil)
			So(artifact, ShouldBeNil)
		})
	})
}
