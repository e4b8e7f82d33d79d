package monitoring

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetLogger(t *testing.T) {
	defer SetLogger(nil)

	var got string
	SetLogger(func(format string, v ...interface{}) {
		got = fmt.Sprintf(format, v...)
	})
	Logf("building %d points", 42)
	assert.Equal(t, "building 42 points", got)
}

func TestSetLoggerNilIsNoop(t *testing.T) {
	defer SetLogger(nil)

	SetLogger(nil)
	assert.NotPanics(t, func() { Logf("ignored %v", 1) })
}
