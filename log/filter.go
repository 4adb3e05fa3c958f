package log

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
	"moul.io/zapfilter"
)

// FilterConfig is read from the file given by --log-config.
//
// Example:
//
//	filter: "debug:relay.* info,warn,error:*"
type FilterConfig struct {
	Filter string `yaml:"filter"`
}

// WithFilterRules restricts log output to entries matching the zapfilter rules.
func WithFilterRules(rules string) (Option, error) {
	filterFunc, err := zapfilter.ParseRules(rules)
	if err != nil {
		return nil, fmt.Errorf("invalid log filter %q: %w", rules, err)
	}
	return zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapfilter.NewFilteringCore(c, filterFunc)
	}), nil
}

func LoadFilterConfig(path string) (*FilterConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg FilterConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("could not parse log config %s: %w", path, err)
	}
	return &cfg, nil
}
