package platform

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	b64 "github.com/iguard-io/mlpipe/pkg/tools/base64"
)

// PackBuildContext zips the docker build context directory and returns it
// base64-encoded, ready to be embedded in an environment create request.
// dockerfile is relative to dir and must exist.
func PackBuildContext(dir, dockerfile string) (*BuildContext, error) {
	if _, err := os.Stat(filepath.Join(dir, dockerfile)); err != nil {
		return nil, err
	}
	buf := &bytes.Buffer{}
	writer := zip.NewWriter(buf)
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		// zip entries always use forward slashes
		entry, err := writer.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		_, err = io.Copy(entry, f)
		f.Close()
		return err
	})
	if err != nil {
		zap.S().Errorw("build context walk error", "dir", dir, "err", err)
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return &BuildContext{
		DockerfilePath: filepath.ToSlash(dockerfile),
		Archive:        b64.Encode(buf.Bytes()),
	}, nil
}

// UnpackBuildContext decodes and expands an archived build context into dest.
// Entries escaping dest are rejected.
func UnpackBuildContext(build *BuildContext, dest string) ([]string, error) {
	content, err := b64.Decode(build.Archive)
	if err != nil {
		return nil, err
	}
	reader, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, err
	}
	var filenames []string
	for _, f := range reader.File {
		fpath := filepath.Join(dest, f.Name)
		if !strings.HasPrefix(fpath, filepath.Clean(dest)+string(os.PathSeparator)) {
			return filenames, os.ErrInvalid
		}
		filenames = append(filenames, fpath)
		if err := os.MkdirAll(filepath.Dir(fpath), os.ModePerm); err != nil {
			return filenames, err
		}
		out, err := os.OpenFile(fpath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
		if err != nil {
			return filenames, err
		}
		rc, err := f.Open()
		if err != nil {
			out.Close()
			return filenames, err
		}
		_, err = io.Copy(out, rc)
		out.Close()
		rc.Close()
		if err != nil {
			return filenames, err
		}
	}
	return filenames, nil
}
