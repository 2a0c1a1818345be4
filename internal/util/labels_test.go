package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOptionLabel(t *testing.T) {
	assert.Equal(t, "A", OptionLabel(0))
	assert.Equal(t, "B", OptionLabel(1))
	assert.Equal(t, "Z", OptionLabel(25))
	assert.Equal(t, "AA", OptionLabel(26))
	assert.Equal(t, "AB", OptionLabel(27))
}

func TestLabelIndex(t *testing.T) {
	assert.Equal(t, 0, LabelIndex("A"))
	assert.Equal(t, 25, LabelIndex("Z"))
	assert.Equal(t, 26, LabelIndex("AA"))
	assert.Equal(t, -1, LabelIndex(""))
	assert.Equal(t, -1, LabelIndex("a1"))
}

func TestLabelRoundTrip(t *testing.T) {
	for i := 0; i < 60; i++ {
		assert.Equal(t, i, LabelIndex(OptionLabel(i)))
	}
}
