package permissions

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusString(t *testing.T) {
	assert.Equal(t, "denied", Denied.String())
	assert.Equal(t, "authorized", Authorized.String())
	assert.Equal(t, "unknown", Status(9).String())
}
