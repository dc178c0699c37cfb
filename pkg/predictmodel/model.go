package predictmodel

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const artifactFile = "model.yaml"

// Artifact is a serialized linear model, the output of a training job.
type Artifact struct {
	Version   int       `yaml:"version"`
	Features  []string  `yaml:"features,flow"`
	Weights   []float64 `yaml:"weights,flow"`
	Intercept float64   `yaml:"intercept"`
}

// Load reads a model artifact. path may be the artifact file itself or a
// directory containing model.yaml, which is how the platform mounts models.
func Load(path string) (*Artifact, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		path = filepath.Join(path, artifactFile)
	}
	content, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	artifact := &Artifact{}
	if err := yaml.Unmarshal(content, artifact); err != nil {
		return nil, err
	}
	if len(artifact.Weights) != len(artifact.Features) {
		return nil, fmt.Errorf("model artifact %s: %d weights for %d features", path, len(artifact.Weights), len(artifact.Features))
	}
	return artifact, nil
}

// Save writes the artifact into dir as model.yaml.
func Save(dir string, artifact *Artifact) error {
	content, err := yaml.Marshal(artifact)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return err
	}
	return ioutil.WriteFile(filepath.Join(dir, artifactFile), content, 0644)
}

// Predict returns one prediction per row of features.
func (a *Artifact) Predict(rows [][]float64) []float64 {
	if len(rows) == 0 {
		return nil
	}
	predictions := make([]float64, len(rows))
	for i, row := range rows {
		sum := a.Intercept
		for j, weight := range a.Weights {
			if j >= len(row) {
				break
			}
			sum += weight * row[j]
		}
		predictions[i] = sum
	}
	return predictions
}
