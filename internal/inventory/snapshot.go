package inventory

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"viosinspect/internal/model"
)

// LoadSnapshot reads a previously saved inventory from a YAML file, so
// chained pipeline stages can skip the lsnim discovery.
func LoadSnapshot(path string) (*model.NIMInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading inventory snapshot: %w", err)
	}
	info := model.NewNIMInfo()
	if err := yaml.Unmarshal(data, info); err != nil {
		return nil, fmt.Errorf("parsing inventory snapshot %s: %w", path, err)
	}
	return info, nil
}

// SaveSnapshot writes the inventory to a YAML file.
func SaveSnapshot(path string, info *model.NIMInfo) error {
	data, err := yaml.Marshal(info)
	if err != nil {
		return fmt.Errorf("encoding inventory snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing inventory snapshot: %w", err)
	}
	return nil
}
