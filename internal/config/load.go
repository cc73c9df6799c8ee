package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"
)

// Environment overrides for runtime knobs.
const (
	EnvNormalizeWorkers = "RXREPORT_NORMALIZE_WORKERS"
	EnvReduceWorkers    = "RXREPORT_REDUCE_WORKERS"
	EnvBatchSize        = "RXREPORT_BATCH_SIZE"
)

// Defaults applied by ApplyDefaults.
const (
	DefaultBatchSize     = 5000
	DefaultWarningSample = 20
	DefaultPeriodLayout  = "02-01-06"
)

// Load reads a pipeline file. ".yaml"/".yml" decode as YAML, everything else
// as JSON. Unknown JSON fields are rejected.
func Load(path string) (Pipeline, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Pipeline{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	format := "json"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = "yaml"
	}
	p, err := Decode(b, format)
	if err != nil {
		return Pipeline{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return p, nil
}

// Decode parses b as "json" or "yaml".
func Decode(b []byte, format string) (Pipeline, error) {
	var p Pipeline
	switch format {
	case "yaml":
		if err := yaml.UnmarshalStrict(b, &p); err != nil {
			return Pipeline{}, fmt.Errorf("decode yaml: %w", err)
		}
	case "json":
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&p); err != nil {
			return Pipeline{}, fmt.Errorf("decode json: %w", err)
		}
	default:
		return Pipeline{}, fmt.Errorf("unknown config format %q", format)
	}
	if p.Parser.Options == nil {
		p.Parser.Options = Options{}
	}
	return p, nil
}

// ApplyDefaults fills zero runtime values and the source/parser kinds.
func (p *Pipeline) ApplyDefaults() {
	if p.Source.Kind == "" {
		p.Source.Kind = "file"
	}
	if p.Parser.Kind == "" {
		p.Parser.Kind = "csv"
	}
	if p.Runtime.NormalizeWorkers == 0 {
		p.Runtime.NormalizeWorkers = runtime.GOMAXPROCS(0)
	}
	if p.Runtime.ReduceWorkers == 0 {
		p.Runtime.ReduceWorkers = runtime.GOMAXPROCS(0)
	}
	if p.Runtime.BatchSize == 0 {
		p.Runtime.BatchSize = DefaultBatchSize
	}
	if p.Runtime.WarningSample == 0 {
		p.Runtime.WarningSample = DefaultWarningSample
	}
	if p.Period != nil {
		if p.Period.Layout == "" {
			p.Period.Layout = DefaultPeriodLayout
		}
		if len(p.Period.Column) == 0 {
			p.Period.Column = []string{"Date", "date"}
		}
	}
}

// ApplyEnv overrides runtime knobs from the environment. Unset or empty
// variables are ignored; malformed values are errors.
func (p *Pipeline) ApplyEnv(getenv func(string) string) error {
	for _, o := range []struct {
		name string
		dst  *int
	}{
		{EnvNormalizeWorkers, &p.Runtime.NormalizeWorkers},
		{EnvReduceWorkers, &p.Runtime.ReduceWorkers},
		{EnvBatchSize, &p.Runtime.BatchSize},
	} {
		v := strings.TrimSpace(getenv(o.name))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s=%q: %w", o.name, v, err)
		}
		*o.dst = n
	}
	return nil
}
