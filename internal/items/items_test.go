package items

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	cases := map[string]Kind{
		"WHEAT":             "WHEAT",
		" wheat ":           "WHEAT",
		"minecraft:diamond": "DIAMOND",
		"Dark Oak Log":      "DARK_OAK_LOG",
		"ender-pearl":       "ENDER_PEARL",
	}
	for in, want := range cases {
		got, ok := Resolve(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"", "minecraft:", "UNOBTAINIUM", "WHEAT!"} {
		_, ok := Resolve(in)
		assert.False(t, ok, in)
	}
}

func TestClassification(t *testing.T) {
	assert.True(t, IsCommon("WHEAT"))
	assert.False(t, IsCommon("DIAMOND"))
	assert.True(t, IsValuable("DIAMOND"))
	assert.False(t, IsCommon("STONE"))
	assert.False(t, IsValuable("STONE"))
	assert.False(t, IsCommon("NOT_AN_ITEM"))
}

func TestEstimatedValueAndDisplayName(t *testing.T) {
	assert.Equal(t, 100.0, EstimatedValue("DIAMOND"))
	assert.Equal(t, 10.0, EstimatedValue("NOT_AN_ITEM"))
	assert.Equal(t, "Dark Oak Log", DisplayName("DARK_OAK_LOG"))
	assert.Equal(t, "Wheat", DisplayName("WHEAT"))
}

func TestKnownIsSorted(t *testing.T) {
	known := Known()
	assert.NotEmpty(t, known)
	for i := 1; i < len(known); i++ {
		assert.Less(t, string(known[i-1]), string(known[i]))
	}
}
