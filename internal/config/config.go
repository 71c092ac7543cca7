// Package config loads server settings from a yaml file and the
// environment, layered over the engine defaults.
package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/eleven-am/conduit/internal/domain"
)

// Server holds everything the binary needs beyond the engine config:
// where to listen and where to keep state.
type Server struct {
	Listen  string `mapstructure:"listen"`
	DataDir string `mapstructure:"data_dir"`

	Engine domain.Config `mapstructure:"engine"`
}

// Load reads config.yaml from the working directory or ./config, then
// applies CONDUIT_* environment overrides. A missing file is not an
// error; defaults carry the server.
func Load() (*Server, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvPrefix("CONDUIT")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Server
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	defaults := domain.DefaultConfig()

	v.SetDefault("listen", ":8080")
	v.SetDefault("data_dir", "data")

	v.SetDefault("engine.lifecycle.removal_grace_window", defaults.Lifecycle.RemovalGraceWindow)
	v.SetDefault("engine.chain.default_max_retries", defaults.Chain.DefaultMaxRetries)
	v.SetDefault("engine.chain.default_backoff", defaults.Chain.DefaultBackoff)
	v.SetDefault("engine.chain.step_poll_interval", defaults.Chain.StepPollInterval)
	v.SetDefault("engine.chain.step_timeout", defaults.Chain.StepTimeout)
	v.SetDefault("engine.progress.max_record_age", defaults.Progress.MaxRecordAge)
	v.SetDefault("engine.progress.cleanup_interval", defaults.Progress.CleanupInterval)
	v.SetDefault("engine.progress.subscriber_buffer", defaults.Progress.SubscriberBuffer)
	v.SetDefault("engine.progress.default_estimate", defaults.Progress.DefaultEstimate)
	v.SetDefault("engine.analytics.cache_ttl", defaults.Analytics.CacheTTL)
	v.SetDefault("engine.analytics.execution_capacity", defaults.Analytics.ExecutionCapacity)
	v.SetDefault("engine.analytics.api_call_volume_threshold", defaults.Analytics.APICallVolumeThreshold)
	v.SetDefault("engine.analytics.recent_failure_limit", defaults.Analytics.RecentFailureLimit)
	v.SetDefault("engine.analytics.top_workflow_limit", defaults.Analytics.TopWorkflowLimit)
	v.SetDefault("engine.runner.base_url", "http://localhost:9090")
	v.SetDefault("engine.runner.request_timeout", defaults.Runner.RequestTimeout)
}

// Normalize fills gaps that viper cannot default, like the per-type
// duration estimates map.
func (s *Server) Normalize() {
	if len(s.Engine.Progress.EstimatedDurations) == 0 {
		s.Engine.Progress.EstimatedDurations = domain.DefaultProgressConfig().EstimatedDurations
	}
	if s.Engine.Progress.DefaultEstimate <= 0 {
		s.Engine.Progress.DefaultEstimate = time.Minute
	}
}
