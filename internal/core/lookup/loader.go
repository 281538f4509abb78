package lookup

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// overrideFile is the YAML layout of a dictionary override. Every list is
// applied after the built-in pairs of the same table.
//
//	causes:
//	  - key: "Descarga Atmosferica"
//	    value: DAT
type overrideFile struct {
	Causes []Pair `yaml:"causes"`
	Lines  []Pair `yaml:"lines"`
	Phases []Pair `yaml:"phases"`
	Towers []Pair `yaml:"towers"`
	Legend []Pair `yaml:"legend"`
}

// LoadFile builds dictionaries from the defaults extended with the pairs in path.
// An empty path returns Default().
func LoadFile(path string) (*Dictionaries, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lookup file: %w", err)
	}

	return Parse(data)
}

// Parse builds dictionaries from YAML override content.
func Parse(data []byte) (*Dictionaries, error) {
	var file overrideFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse lookup file: %w", err)
	}

	for name, pairs := range map[string][]Pair{
		"causes": file.Causes, "lines": file.Lines, "phases": file.Phases,
		"towers": file.Towers, "legend": file.Legend,
	} {
		for i, p := range pairs {
			if p.Key == "" {
				return nil, fmt.Errorf("lookup %s entry %d has an empty key", name, i)
			}
		}
	}

	base := Default()
	return &Dictionaries{
		Causes: base.Causes.Extend(file.Causes),
		Lines:  base.Lines.Extend(file.Lines),
		Phases: base.Phases.Extend(file.Phases),
		Towers: base.Towers.Extend(file.Towers),
		Legend: base.Legend.Extend(file.Legend),
	}, nil
}
