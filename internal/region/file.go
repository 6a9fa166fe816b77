package region

import (
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk form of a localized region. The frame geometry it was
// computed against is stored alongside so later runs can refuse videos with
// different dimensions.
type File struct {
	Version string `yaml:"version"`
	Region  Region `yaml:"region"`
	Frame   struct {
		W int `yaml:"w"`
		H int `yaml:"h"`
	} `yaml:"frame"`
}

// Save writes a region file to a YAML file.
func Save(f *File, path string) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Load reads a region file from a YAML file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}

	return &f, nil
}
