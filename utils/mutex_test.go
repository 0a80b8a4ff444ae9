package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
)

func TestMonitoredMutex(t *testing.T) {
	logger, hook := test.NewNullLogger()
	m := MonitoredMutex{Logger: logger, Name: "test-slots", Limit: 5 * time.Millisecond}

	m.Lock()
	m.Unlock()
	assert.Empty(t, hook.AllEntries())

	m.Lock()
	time.Sleep(20 * time.Millisecond)
	m.Unlock()
	if assert.Len(t, hook.AllEntries(), 1) {
		e := hook.LastEntry()
		assert.Equal(t, logrus.WarnLevel, e.Level)
		assert.Equal(t, "test-slots", e.Data["lock_name"])
		c, _ := e.Data["caller"].(string)
		assert.True(t, strings.HasPrefix(c, "mutex_test.go:"), c)
	}
}
