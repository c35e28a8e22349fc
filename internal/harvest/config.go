package harvest

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration written as a string ("90s", "2m") in YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Duration(v)
	return nil
}

// LiveConfig lists the interface capture settings.
type LiveConfig struct {
	SnapLen     int32    `yaml:"snapLen"`
	Promiscuous *bool    `yaml:"promiscuous"`
	Timeout     Duration `yaml:"timeout"`
	Filter      string   `yaml:"filter"`
}

// Config lists the config file fields. Command line flags take precedence.
type Config struct {
	PerFlow  bool       `yaml:"perFlow"`
	FlowTTL  Duration   `yaml:"flowTTL"`
	MaxFlows int        `yaml:"maxFlows"`
	UTF16    bool       `yaml:"utf16"`
	HTTP     bool       `yaml:"http"`
	SMBOnly  bool       `yaml:"smbOnly"`
	Workers  int        `yaml:"workers"`
	Output   string     `yaml:"output"`
	Live     LiveConfig `yaml:"live"`
}

// Options returns the scan options described by the config.
func (c Config) Options() Options {
	return Options{
		PerFlow:  c.PerFlow,
		FlowTTL:  time.Duration(c.FlowTTL),
		MaxFlows: c.MaxFlows,
		UTF16:    c.UTF16,
		HTTP:     c.HTTP,
		SMBOnly:  c.SMBOnly,
	}
}

// ReadConfig reads a YAML config file. Unknown fields are an error.
func ReadConfig(path string) (cfg Config, err error) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	err = dec.Decode(&cfg)
	if errors.Is(err, io.EOF) {
		// Empty file.
		err = nil
	}
	if err != nil {
		err = fmt.Errorf("%s: %w", path, err)
	}
	return
}
