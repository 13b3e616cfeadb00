package exempt

import (
	"fmt"
	"io"
	"os"

	"k8s.io/apimachinery/pkg/util/yaml"
)

type fileConfig struct {
	Exemptions []string `json:"exemptions"`
}

// Load reads a policy file. The file is YAML (or JSON, every JSON file is
// valid YAML) with a single top-level exemptions list of CEL expressions.
func Load(fin io.Reader, fname string) (*Policy, error) {
	var config fileConfig
	if err := yaml.NewYAMLToJSONDecoder(fin).Decode(&config); err != nil {
		return nil, fmt.Errorf("exempt: can't parse policy file %s: %w", fname, err)
	}

	return NewPolicy(config.Exemptions)
}

func LoadFile(fname string) (*Policy, error) {
	fin, err := os.Open(fname)
	if err != nil {
		return nil, fmt.Errorf("exempt: can't open policy file: %w", err)
	}
	defer fin.Close()

	return Load(fin, fname)
}
