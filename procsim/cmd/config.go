package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sarchlab/procsim/models"
)

// yamlConfig returns a decoder that fills a model configuration from a YAML
// file. Keys that the configuration does not have are rejected. Without a
// file, the model keeps its defaults.
func yamlConfig(path string) (models.Decoder, error) {
	if path == "" {
		return models.NoConfig, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}

	return func(cfg any) error {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)

		err := dec.Decode(cfg)
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("cannot parse config %s: %w", path, err)
		}

		return nil
	}, nil
}
