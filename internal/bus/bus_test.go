package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChannelNames(t *testing.T) {
	assert.Equal(t, "user:f1:events", EventChannel("f1"))
	assert.Equal(t, "user:f1:control", ControlChannel("f1"))
	assert.NotEqual(t, EventChannel("f1"), ControlChannel("f1"))
}
