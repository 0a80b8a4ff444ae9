package utils

import (
	"fmt"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// DefaultLockLimit is used when MonitoredMutex.Limit is zero
const DefaultLockLimit = time.Second

var metricLockSlow = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "sagestream_lock_slow_total",
		Help: "Number of times a monitored lock was held longer than its limit",
	},
	[]string{"lock_name"},
)

func init() {
	prometheus.MustRegister(metricLockSlow)
}

// MonitoredMutex is a sync.Mutex that logs a warning and counts when it was
// held longer than Limit. The zero value is ready to use.
type MonitoredMutex struct {
	mu       sync.Mutex
	lockTime time.Time

	Logger logrus.FieldLogger
	Name   string
	Limit  time.Duration
}

func (m *MonitoredMutex) Lock() {
	m.mu.Lock()
	m.lockTime = time.Now()
}

func (m *MonitoredMutex) Unlock() {
	held := time.Since(m.lockTime)
	m.lockTime = time.Time{}
	m.mu.Unlock()

	limit := m.Limit
	if limit == 0 {
		limit = DefaultLockLimit
	}
	// Only a warning: clock jumps and paused processes cause spikes
	if held <= limit {
		return
	}
	metricLockSlow.WithLabelValues(m.Name).Inc()
	m.logger().WithFields(logrus.Fields{
		"lock_held": held,
		"limit":     limit,
		"lock_name": m.Name,
		"caller":    caller(2),
	}).Warn("Lock held too long")
}

func (m *MonitoredMutex) logger() logrus.FieldLogger {
	if m.Logger != nil {
		return m.Logger
	}
	return logrus.StandardLogger()
}

// caller describes the function skip frames up, like "processor.go:120 (ingest.(*Processor).Apply)"
func caller(skip int) string {
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return ""
	}
	name := "?"
	if fn := runtime.FuncForPC(pc); fn != nil {
		name = filepath.Base(fn.Name())
	}
	return fmt.Sprintf("%s:%d (%s)", filepath.Base(file), line, name)
}
