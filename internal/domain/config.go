package domain

import (
	"time"
)

type Config struct {
	Lifecycle LifecycleConfig `json:"lifecycle" mapstructure:"lifecycle"`
	Chain     ChainConfig     `json:"chain" mapstructure:"chain"`
	Progress  ProgressConfig  `json:"progress" mapstructure:"progress"`
	Analytics AnalyticsConfig `json:"analytics" mapstructure:"analytics"`
	Runner    RunnerConfig    `json:"runner" mapstructure:"runner"`
}

type LifecycleConfig struct {
	// RemovalGraceWindow blocks workflow deletion while any execution
	// started inside the window.
	RemovalGraceWindow time.Duration `json:"removal_grace_window" mapstructure:"removal_grace_window"`
}

type ChainConfig struct {
	DefaultMaxRetries int           `json:"default_max_retries" mapstructure:"default_max_retries"`
	DefaultBackoff    time.Duration `json:"default_backoff" mapstructure:"default_backoff"`
	// StepPollInterval paces the wait for a step's underlying execution to
	// reach a terminal status.
	StepPollInterval time.Duration `json:"step_poll_interval" mapstructure:"step_poll_interval"`
	StepTimeout      time.Duration `json:"step_timeout" mapstructure:"step_timeout"`
}

type ProgressConfig struct {
	MaxRecordAge       time.Duration                  `json:"max_record_age" mapstructure:"max_record_age"`
	CleanupInterval    time.Duration                  `json:"cleanup_interval" mapstructure:"cleanup_interval"`
	SubscriberBuffer   int                            `json:"subscriber_buffer" mapstructure:"subscriber_buffer"`
	EstimatedDurations map[WorkflowType]time.Duration `json:"estimated_durations" mapstructure:"estimated_durations"`
	DefaultEstimate    time.Duration                  `json:"default_estimate" mapstructure:"default_estimate"`
}

type AnalyticsConfig struct {
	CacheTTL               time.Duration `json:"cache_ttl" mapstructure:"cache_ttl"`
	ExecutionCapacity      int           `json:"execution_capacity" mapstructure:"execution_capacity"`
	APICallVolumeThreshold int           `json:"api_call_volume_threshold" mapstructure:"api_call_volume_threshold"`
	RecentFailureLimit     int           `json:"recent_failure_limit" mapstructure:"recent_failure_limit"`
	TopWorkflowLimit       int           `json:"top_workflow_limit" mapstructure:"top_workflow_limit"`
}

type RunnerConfig struct {
	BaseURL        string        `json:"base_url" mapstructure:"base_url"`
	RequestTimeout time.Duration `json:"request_timeout" mapstructure:"request_timeout"`
}
