package component

import (
	"fmt"
	"io/ioutil"

	"gopkg.in/yaml.v3"

	"github.com/iguard-io/mlpipe/pkg/platform"
)

// Definition is a declarative component spec loaded from a local YAML file.
// The schema mirrors what the platform stores, the file is the source of truth
// for name and version.
type Definition struct {
	Name        string                   `yaml:"name"`
	Version     string                   `yaml:"version"`
	DisplayName string                   `yaml:"display_name,omitempty"`
	Command     string                   `yaml:"command,omitempty"`
	Environment string                   `yaml:"environment,omitempty"`
	Inputs      map[string]platform.Port `yaml:"inputs,omitempty"`
	Outputs     map[string]platform.Port `yaml:"outputs,omitempty"`
}

// Load parses a component definition file.
func Load(path string) (*Definition, error) {
	content, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	definition := &Definition{}
	if err := yaml.Unmarshal(content, definition); err != nil {
		return nil, err
	}
	if definition.Name == "" || definition.Version == "" {
		return nil, fmt.Errorf("component definition %s: name and version are required", path)
	}
	return definition, nil
}

// Component converts the definition into the platform wire type.
func (d *Definition) Component() *platform.Component {
	return &platform.Component{
		Name:        d.Name,
		Version:     d.Version,
		DisplayName: d.DisplayName,
		Command:     d.Command,
		Environment: d.Environment,
		Inputs:      d.Inputs,
		Outputs:     d.Outputs,
	}
}
