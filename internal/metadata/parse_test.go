package metadata

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
)

func TestParseNumbers(t *testing.T) {
	assert.Equal(t, lo.ToPtr(7.8), parseFloat("7.8"))
	assert.Equal(t, lo.ToPtr(1234.5), parseFloat(" 1,234.5 "))
	assert.Nil(t, parseFloat("N/A"))
	assert.Nil(t, parseFloat(""))
	assert.Nil(t, parseFloat("eight"))

	assert.Equal(t, lo.ToPtr(1234567), parseInt("1,234,567"))
	assert.Equal(t, lo.ToPtr(58), parseInt("58 min"))
	assert.Nil(t, parseInt("n/a"))
	assert.Nil(t, parseInt("7.8"))

	assert.Equal(t, lo.ToPtr(2016), parseYear("2016–2025"))
	assert.Equal(t, lo.ToPtr(2021), parseYear("2021-09-15"))
	assert.Nil(t, parseYear("TBA"))
	assert.Nil(t, parseYear(""))

	assert.Equal(t, []string{"Drama", "Mystery"}, splitList("Drama, Mystery,"))
	assert.Nil(t, splitList("N/A"))
	assert.Equal(t, 7.8, round1(7.76))
}
