package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppTokenSet(t *testing.T) {
	set := NewAppTokenSet([]string{"android-1", "", "ios-1"})

	assert.Equal(t, 2, set.Len())
	assert.True(t, set.Valid("android-1"))
	assert.True(t, set.Valid("ios-1"))
	assert.False(t, set.Valid(""))
	assert.False(t, set.Valid("android-2"))
	assert.False(t, set.Valid("android-1 "))
}

func TestAppTokenSet_Empty(t *testing.T) {
	set := NewAppTokenSet(nil)
	assert.False(t, set.Valid("anything"))
	assert.False(t, set.Valid(""))
}
