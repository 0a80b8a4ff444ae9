package starttracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStartTracker(t *testing.T) {
	st := New(StartConfig{
		ReportHealthz: true,
		WarnDuration:  0,
		ErrorDuration: time.Hour,
	}, "sage")
	assert.False(t, st.Completed())
	assert.Error(t, st.Check(), "warning while pending")

	st.SetPassedInitialLoad()
	assert.False(t, st.Completed())
	st.SetPassedSubscribe()
	assert.True(t, st.Completed())
	assert.NoError(t, st.Check())
}

func TestStartTracker_noReport(t *testing.T) {
	st := New(StartConfig{}, "sage")
	assert.NoError(t, st.Check())
}
