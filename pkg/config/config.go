// Package config loads a declarative pipeline definition — an ordered
// list of stages described in YAML/TOML, each with an optional pattern
// and key guard plus one of a small fixed set of built-in actions —
// and builds it into a running Stream. The file/environment/flag
// precedence and debug-source tracking mirror the reference
// architecture's own pkg/config (LoadWithPrecedence, ConfigSource,
// ConfigDebugInfo). See DESIGN.md.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/cloudlens/cloudlens/pkg/metrics"
	"github.com/cloudlens/cloudlens/pkg/stage"
	"github.com/cloudlens/cloudlens/pkg/stream"
	"github.com/cloudlens/cloudlens/pkg/value"
)

// Action names a built-in stage action a declarative pipeline may use.
// These are a strict subset of the programmatic stage.Action surface;
// the engine itself has no notion of a named action.
const (
	ActionPrint    = "print"
	ActionCount    = "count"
	ActionDrop     = "drop"
	ActionSetField = "set_field"
)

var validActions = map[string]bool{
	ActionPrint:    true,
	ActionCount:    true,
	ActionDrop:     true,
	ActionSetField: true,
}

// InputSpec describes where a pipeline's records come from.
type InputSpec struct {
	Type     string   `mapstructure:"type"`
	Path     string   `mapstructure:"path"`
	Messages []string `mapstructure:"messages"`
}

// StageSpec describes one declarative pipeline stage.
type StageSpec struct {
	Label           string `mapstructure:"label"`
	Pattern         string `mapstructure:"pattern"`
	Key             string `mapstructure:"key"`
	AtEnd           bool   `mapstructure:"at_end"`
	CaseInsensitive bool   `mapstructure:"case_insensitive"`
	Action          string `mapstructure:"action"`
	Field           string `mapstructure:"field"`
	Value           string `mapstructure:"value"`
}

// PipelineConfig holds a full declarative pipeline definition.
type PipelineConfig struct {
	Input  InputSpec   `mapstructure:"input"`
	Stages []StageSpec `mapstructure:"stages"`
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s value '%v': %s", e.Field, e.Value, e.Message)
}

// ConfigSource represents where a configuration value came from.
type ConfigSource int

const (
	SourceDefault ConfigSource = iota
	SourceConfigFile
	SourceEnvironment
	SourceCLIFlag
)

func (s ConfigSource) String() string {
	switch s {
	case SourceDefault:
		return "default"
	case SourceConfigFile:
		return "config file"
	case SourceEnvironment:
		return "environment variable"
	case SourceCLIFlag:
		return "CLI flag"
	default:
		return "unknown"
	}
}

// ConfigDebugInfo holds debugging information about configuration
// resolution, printed by --debug-config.
type ConfigDebugInfo struct {
	Sources map[string]ConfigSource
	Values  map[string]interface{}
}

// LoadFromFile loads a pipeline definition from a YAML file.
func LoadFromFile(configFile string) (*PipelineConfig, error) {
	v := viper.New()
	v.SetConfigFile(configFile)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg PipelineConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadWithPrecedence loads a pipeline definition with file, environment
// (CLOUDLENS_INPUT_PATH, CLOUDLENS_INPUT_TYPE), and CLI-flag precedence,
// in that order, mirroring the reference architecture's LoadWithPrecedence.
// A file ending in .toml is read as TOML; any other file is read as YAML.
func LoadWithPrecedence(configFile string, inputPathFlag string, debug bool) (*PipelineConfig, *ConfigDebugInfo, error) {
	var debugInfo *ConfigDebugInfo
	if debug {
		debugInfo = &ConfigDebugInfo{
			Sources: make(map[string]ConfigSource),
			Values:  make(map[string]interface{}),
		}
	}

	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if filepath.Ext(configFile) != ".toml" {
			v.SetConfigType("yaml")
		}
		if err := v.ReadInConfig(); err != nil {
			return nil, debugInfo, fmt.Errorf("failed to read config file: %w", err)
		}
		if debug {
			recordConfigFile(debugInfo, v)
		}
	}

	v.SetEnvPrefix("CLOUDLENS")
	v.AutomaticEnv()
	v.BindEnv("input.path", "CLOUDLENS_INPUT_PATH")
	v.BindEnv("input.type", "CLOUDLENS_INPUT_TYPE")
	if debug {
		recordEnvironment(debugInfo)
	}

	var cfg PipelineConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, debugInfo, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if inputPathFlag != "" {
		cfg.Input.Path = inputPathFlag
		if debug {
			debugInfo.Sources["input.path"] = SourceCLIFlag
			debugInfo.Values["input.path"] = inputPathFlag
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, debugInfo, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, debugInfo, nil
}

// FindConfigFile searches dir for a pipeline definition file, looking
// for .cloudlens.yaml, cloudlens.yaml, .cloudlens.toml, cloudlens.toml.
func FindConfigFile(dir string) string {
	names := []string{".cloudlens.yaml", "cloudlens.yaml", ".cloudlens.toml", "cloudlens.toml"}

	for _, name := range names {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// Validate checks structural correctness of a pipeline definition: the
// input type is known, a text or json input carries a path, every
// stage's action is empty or a known action, and set_field carries the
// fields it needs. Patterns are not compiled here.
func (c *PipelineConfig) Validate() error {
	var errors []ValidationError

	switch c.Input.Type {
	case "", "messages", "text", "json":
	default:
		errors = append(errors, ValidationError{
			Field:   "input.type",
			Value:   c.Input.Type,
			Message: "must be one of 'messages', 'text', or 'json'",
		})
	}

	if (c.Input.Type == "text" || c.Input.Type == "json") && c.Input.Path == "" {
		errors = append(errors, ValidationError{
			Field:   "input.path",
			Value:   c.Input.Path,
			Message: "required for input type " + c.Input.Type,
		})
	}

	for i, st := range c.Stages {
		prefix := fmt.Sprintf("stages[%d]", i)

		if st.Action != "" && !validActions[st.Action] {
			errors = append(errors, ValidationError{
				Field:   prefix + ".action",
				Value:   st.Action,
				Message: "must be one of 'print', 'count', 'drop', or 'set_field'",
			})
		}

		if st.Action == ActionSetField && (st.Field == "" || st.Value == "") {
			errors = append(errors, ValidationError{
				Field:   prefix + ".action",
				Value:   st.Action,
				Message: "set_field requires both 'field' and 'value'",
			})
		}
	}

	if len(errors) > 0 {
		var messages []string
		for _, err := range errors {
			messages = append(messages, err.Error())
		}
		return fmt.Errorf("validation errors:\n  - %s", strings.Join(messages, "\n  - "))
	}

	return nil
}

// recordConfigFile records config-file-sourced values in debug info.
func recordConfigFile(debug *ConfigDebugInfo, v *viper.Viper) {
	for _, key := range []string{"input.type", "input.path"} {
		if v.IsSet(key) {
			debug.Sources[key] = SourceConfigFile
			debug.Values[key] = v.Get(key)
		}
	}
}

// recordEnvironment records environment-sourced values in debug info.
func recordEnvironment(debug *ConfigDebugInfo) {
	if v := os.Getenv("CLOUDLENS_INPUT_PATH"); v != "" {
		debug.Sources["input.path"] = SourceEnvironment
		debug.Values["input.path"] = v
	}
	if v := os.Getenv("CLOUDLENS_INPUT_TYPE"); v != "" {
		debug.Sources["input.type"] = SourceEnvironment
		debug.Values["input.type"] = v
	}
}

// PrintDebugInfo prints configuration resolution debug information.
func (debug *ConfigDebugInfo) PrintDebugInfo() {
	fmt.Println("Configuration Resolution Debug Info:")
	fmt.Println("===================================")

	keys := make(map[string]bool)
	for k := range debug.Sources {
		keys[k] = true
	}
	for key := range keys {
		source := debug.Sources[key]
		val := debug.Values[key]
		fmt.Printf("%-20s: %-15v (from %s)\n", key, val, source)
	}
}

// Build compiles a pipeline definition into a running Stream wired to
// collector, the way the reference architecture's createExecutor
// switches on cfg.BackoffType to assemble a concrete strategy — here
// the switch is over each stage's declarative action.
func Build(cfg *PipelineConfig, collector *metrics.Collector) (*stream.Stream, error) {
	s, err := buildSource(cfg.Input)
	if err != nil {
		return nil, err
	}

	s = s.Process(func(rec *value.Value) { collector.ObserveIn() })

	for i, spec := range cfg.Stages {
		label := spec.Label
		if label == "" {
			label = fmt.Sprintf("stage[%d]", i)
		}
		counter := collector.StageCounter(label)

		action, err := buildAction(spec, collector, counter)
		if err != nil {
			return nil, fmt.Errorf("stage %q: %w", label, err)
		}

		switch {
		case spec.AtEnd:
			s = s.ProcessAtEnd(action)
		case spec.Key != "" || spec.Pattern != "":
			opts := stream.ProcessOptions{
				Pattern:         spec.Pattern,
				CaseInsensitive: spec.CaseInsensitive,
				Action:          action,
			}
			if spec.Key != "" {
				opts.Key = value.FieldPath(spec.Key)
				opts.HasKey = true
			}
			s, err = s.ProcessOn(opts)
			if err != nil {
				return nil, fmt.Errorf("stage %q: %w", label, err)
			}
		default:
			s = s.Process(action)
		}
	}

	s = s.Process(func(rec *value.Value) { collector.ObserveOut() })

	return s, nil
}

func buildSource(in InputSpec) (*stream.Stream, error) {
	switch in.Type {
	case "", "messages":
		return stream.NewFromMessages(in.Messages...), nil
	case "text":
		return stream.NewFromTextFile(in.Path)
	case "json":
		return stream.NewFromJSONFile(in.Path)
	default:
		return nil, fmt.Errorf("config: unknown input type %q", in.Type)
	}
}

func buildAction(spec StageSpec, collector *metrics.Collector, counter *metrics.StageMetric) (stage.Action, error) {
	switch spec.Action {
	case "", ActionCount:
		return func(rec *value.Value) {
			counter.Ran++
		}, nil
	case ActionPrint:
		return func(rec *value.Value) {
			counter.Ran++
			fmt.Println(rec.String())
		}, nil
	case ActionDrop:
		return func(rec *value.Value) {
			counter.Ran++
			counter.Suppressed++
			collector.ObserveSuppressed()
			*rec = value.NewNull()
		}, nil
	case ActionSetField:
		n, numErr := strconv.ParseFloat(spec.Value, 64)
		field := value.FieldPath(spec.Field)
		return func(rec *value.Value) {
			counter.Ran++
			if numErr == nil {
				_ = field.Set(rec, value.NewNumber(n))
			} else {
				_ = field.Set(rec, value.NewString(spec.Value))
			}
		}, nil
	default:
		return nil, fmt.Errorf("unknown action %q", spec.Action)
	}
}
