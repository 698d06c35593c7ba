package config

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Dump writes cfg as YAML under the `rawhttpd:` root key, in a form Load accepts.
func Dump(w io.Writer, cfg *GlobalConfig) error {
	root := configRoot{Rawhttpd: *cfg}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&root); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return enc.Close()
}
