package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntityID(t *testing.T) {
	assert.False(t, None.Valid())
	assert.True(t, EntityID(7).Valid())
	assert.Equal(t, "42", EntityID(42).String())
}

func TestSphereSegments(t *testing.T) {
	assert.Equal(t, 160, SphereSegments(3, 160))
	assert.Equal(t, 240, SphereSegments(30, 160))
}
