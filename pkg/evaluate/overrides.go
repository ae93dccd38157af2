package evaluate

import (
	"fmt"
	"os"
	"slices"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Overrides are archived predictions: event id to driver ids in predicted order.
type Overrides map[int][]int

// Events returns the event ids in ascending order
func (o Overrides) Events() []int {
	ret := make([]int, 0, len(o))
	for k := range o {
		ret = append(ret, k)
	}
	slices.Sort(ret)
	return ret
}

// LoadOverrides reads archived predictions from a YAML or JSON file.
func LoadOverrides(path string) (Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseOverrides(data)
}

func ParseOverrides(data []byte) (Overrides, error) {
	// keys are decoded as strings, JSON object keys are always quoted
	var raw map[string][]int
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse overrides: %w", err)
	}
	ret := make(Overrides, len(raw))
	for k, v := range raw {
		id, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("parse overrides: invalid event id %q", k)
		}
		ret[id] = v
	}
	return ret, nil
}
