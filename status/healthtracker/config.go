package healthtracker

import (
	"time"
)

const (
	// MinEvaluationInterval is the minimum interval allowed between healthz evaluation
	MinEvaluationInterval = time.Second
)

// HealthConfig sets the thresholds for reporting a warning or error
type HealthConfig struct {
	EvaluationInterval time.Duration `yaml:"interval"`
	ErrorDuration      time.Duration `yaml:"error_duration"`
	WarnDuration       time.Duration `yaml:"warn_duration"`
	ErrorSequence      uint32        `yaml:"error_sequence"`
	WarnSequence       uint32        `yaml:"warn_sequence"`
}

// Validated returns a copy with out of range values adjusted
func (hc HealthConfig) Validated() HealthConfig {
	if hc.EvaluationInterval < MinEvaluationInterval {
		hc.EvaluationInterval = MinEvaluationInterval
	}
	if hc.ErrorDuration < 0 {
		hc.ErrorDuration = 0
	}
	if hc.WarnDuration < 0 {
		hc.WarnDuration = 0
	}
	if hc.ErrorSequence == 0 {
		hc.ErrorSequence = 1
	}
	if hc.WarnSequence == 0 || hc.WarnSequence > hc.ErrorSequence {
		hc.WarnSequence = hc.ErrorSequence
	}
	return hc
}
