package config

import (
	"bytes"
	"io"
	"sort"

	"github.com/a8m/envsubst"
	"github.com/edaniels/golog"
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"github.com/yosuke-furukawa/json5/encoding/json5"
)

// Read reads a config from the given file, expanding environment variables first.
func Read(filePath string, logger golog.Logger) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	return FromReader(filePath, bytes.NewReader(buf), logger)
}

// FromReader reads a config from the given reader and specifies
// where, if applicable, the file the reader originated from. The input is JSON5, so it may carry comments
// and trailing commas.
func FromReader(originalPath string, r io.Reader, logger golog.Logger) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read config %q", originalPath)
	}
	var attributes map[string]interface{}
	if err := json5.Unmarshal(data, &attributes); err != nil {
		return nil, errors.Wrapf(err, "cannot parse config %q", originalPath)
	}

	cfg := Default()
	unused, err := decodeAttributes(attributes, cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot decode config %q", originalPath)
	}
	if len(unused) != 0 {
		logger.Warnw("config contains unused keys", "path", originalPath, "keys", unused)
	}
	cfg.ConfigFilePath = originalPath

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decodeAttributes decodes into the existing values of out, leaving fields without a key untouched, and
// returns the keys that did not match any field.
func decodeAttributes(attributes map[string]interface{}, out interface{}) ([]string, error) {
	var md mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:  "json",
		Result:   out,
		Metadata: &md,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(attributes); err != nil {
		return nil, err
	}
	sort.Strings(md.Unused)
	return md.Unused, nil
}
