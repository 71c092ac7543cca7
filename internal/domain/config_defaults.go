package domain

import (
	"time"
)

func DefaultConfig() *Config {
	return &Config{
		Lifecycle: DefaultLifecycleConfig(),
		Chain:     DefaultChainConfig(),
		Progress:  DefaultProgressConfig(),
		Analytics: DefaultAnalyticsConfig(),
		Runner:    DefaultRunnerConfig(),
	}
}

func DefaultLifecycleConfig() LifecycleConfig {
	return LifecycleConfig{
		RemovalGraceWindow: 24 * time.Hour,
	}
}

func DefaultChainConfig() ChainConfig {
	return ChainConfig{
		DefaultMaxRetries: 0,
		DefaultBackoff:    time.Second,
		StepPollInterval:  500 * time.Millisecond,
		StepTimeout:       10 * time.Minute,
	}
}

func DefaultProgressConfig() ProgressConfig {
	return ProgressConfig{
		MaxRecordAge:     time.Hour,
		CleanupInterval:  5 * time.Minute,
		SubscriberBuffer: 100,
		EstimatedDurations: map[WorkflowType]time.Duration{
			WorkflowTypeEnrichment:          30 * time.Second,
			WorkflowTypeEmailSequence:       2 * time.Minute,
			WorkflowTypeRouting:             10 * time.Second,
			WorkflowTypeAudienceTranslation: time.Minute,
		},
		DefaultEstimate: time.Minute,
	}
}

func DefaultAnalyticsConfig() AnalyticsConfig {
	return AnalyticsConfig{
		CacheTTL:               time.Minute,
		ExecutionCapacity:      100,
		APICallVolumeThreshold: 1000,
		RecentFailureLimit:     10,
		TopWorkflowLimit:       5,
	}
}

func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		RequestTimeout: 30 * time.Second,
	}
}
