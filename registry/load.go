package registry

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/IANewCool/estado-transparente-portal/cli/config"
)

// sourcesFile is the YAML shape of a sources file.
type sourcesFile struct {
	Sources map[string]*Source `yaml:"sources"`
}

// LoadFile registers sources from a YAML file on top of the built-ins.
// Environment references (${VAR}, ${VAR:-default}) are expanded strictly
// and unknown keys are rejected, so a broken sources file fails at load,
// never mid-parse.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("sources file not found: %s", path)
		}
		return fmt.Errorf("cannot read sources file %q: %w", path, err)
	}

	expanded, err := config.ExpandStrict(string(data))
	if err != nil {
		return fmt.Errorf("sources file %s: %w", path, err)
	}

	var f sourcesFile
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid YAML in %s: %w", path, err)
	}

	for id, s := range f.Sources {
		s.ID = id
		if s.Encoding == "" {
			s.Encoding = "utf-8"
		}
		if err := r.Register(s); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}
