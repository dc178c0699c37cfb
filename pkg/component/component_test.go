package component

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	_ "github.com/iguard-io/mlpipe/pkg/tools/log"
)

func writeDefinition(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "component.yaml")
	if err := ioutil.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	Convey("test component definition load", t, func() {
		Convey("complete definition", func() {
			definition, err := Load(writeDefinition(t, `
name: train
version: "1"
display_name: Train model
environment: iguard-env
command: python train.py
inputs:
  input_data:
    type: uri_file
outputs:
  output_model:
    type: uri_folder
`))
			So(err, ShouldBeNil)
			So(definition.Name, ShouldEqual, "train")
			So(definition.Version, ShouldEqual, "1")
			So(definition.Inputs["input_data"].Type, ShouldEqual, "uri_file")
			So(definition.Outputs["output_model"].Type, ShouldEqual, "uri_folder")

			c := definition.Component()
			So(c.ID(), ShouldEqual, "component:train:1")
			So(c.Environment, ShouldEqual, "iguard-env")
		})
		Convey("definition without version", func() {
			definition, err := Load(writeDefinition(t, "name: train\n"))
			So(err, ShouldNotBeNil)
			So(definition, ShouldBeNil)
		})
		Convey("missing file", func() {
			definition, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
			So(err, ShouldNotBeNil)
			So(definition, ShouldBeNil)
		})
	})
}
