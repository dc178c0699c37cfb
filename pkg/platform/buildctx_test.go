package platform

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	_ "github.com/iguard-io/mlpipe/pkg/tools/log"
)

func TestPackBuildContext(t *testing.T) {
	Convey("test build context packing", t, func() {
		dir := t.TempDir()
		So(ioutil.WriteFile(filepath.Join(dir, "Dockerfile"), []byte("FROM scratch\n"), 0644), ShouldBeNil)
		So(os.MkdirAll(filepath.Join(dir, "src"), os.ModePerm), ShouldBeNil)
		So(ioutil.WriteFile(filepath.Join(dir, "src", "train.py"), []byte("print('train')\n"), 0644), ShouldBeNil)

		Convey("pack and unpack roundtrip", func() {
			build, err := PackBuildContext(dir, "Dockerfile")
			So(err, ShouldBeNil)
			So(build.DockerfilePath, ShouldEqual, "Dockerfile")
			So(build.Archive, ShouldNotBeEmpty)

			dest := t.TempDir()
			filenames, err := UnpackBuildContext(build, dest)
			So(err, ShouldBeNil)
			So(len(filenames), ShouldEqual, 2)
			content, err := ioutil.ReadFile(filepath.Join(dest, "src", "train.py"))
			So(err, ShouldBeNil)
			So(string(content), ShouldEqual, "print('train')\n")
		})
		Convey("missing dockerfile", func() {
			build, err := PackBuildContext(dir, "Dockerfile.missing")
			So(err, ShouldNotBeNil)
			So(build, ShouldBeNil)
		})
	})
}
