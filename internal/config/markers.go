package config

import (
	"fmt"

	"github.com/spf13/viper"
	"github.com/wanderlens/arsync/pkg/core"
)

// LoadMarkers reads marker descriptors from a YAML or JSON file with a
// top-level "markers" list. It uses its own viper instance so the global
// settings are untouched.
func LoadMarkers(path string) ([]core.MarkerDescriptor, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading markers file %s: %w", path, err)
	}

	var descs []core.MarkerDescriptor
	if err := v.UnmarshalKey("markers", &descs); err != nil {
		return nil, fmt.Errorf("decoding markers in %s: %w", path, err)
	}
	if len(descs) == 0 {
		return nil, fmt.Errorf("no markers defined in %s", path)
	}
	return descs, nil
}
