package buildinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextString(t *testing.T) {
	t.Parallel()

	c := Context{Version: "v1.2.0", BuildDate: "2024-06-12"}
	assert.Equal(t, "v1.2.0 (built 2024-06-12)", c.String())
	assert.Equal(t, Version, Current().Version)
}
