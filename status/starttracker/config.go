package starttracker

import (
	"time"
)

// MinEvaluationInterval is the minimum interval allowed between healthz evaluation
const MinEvaluationInterval = time.Second

type StartConfig struct {
	EvaluationInterval time.Duration `yaml:"interval"`
	ErrorDuration      time.Duration `yaml:"error_duration"`
	WarnDuration       time.Duration `yaml:"warn_duration"`
	ReportHealthz      bool          `yaml:"report_healthz"`
	ReportMetadata     bool          `yaml:"report_metadata"`
}

func (sc StartConfig) Validated() StartConfig {
	if sc.EvaluationInterval < MinEvaluationInterval {
		sc.EvaluationInterval = MinEvaluationInterval
	}
	if sc.ErrorDuration < 0 {
		sc.ErrorDuration = 0
	}
	if sc.WarnDuration < 0 {
		sc.WarnDuration = 0
	}
	return sc
}
