package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReliabilityRank(t *testing.T) {
	assert.Equal(t, 10, ReliabilityRank(0), "unranked sorts after everything")
	for class := 1; class <= 9; class++ {
		assert.Equal(t, class, ReliabilityRank(class))
	}
}

func TestBetterReliability(t *testing.T) {
	assert.True(t, BetterReliability(1, 2))
	assert.True(t, BetterReliability(9, 0), "any ranked class beats unranked")
	assert.False(t, BetterReliability(0, 9))
	assert.False(t, BetterReliability(3, 3))
	assert.False(t, BetterReliability(0, 0))
}

func TestReliabilityScore(t *testing.T) {
	tests := []struct {
		class int
		want  float64
	}{
		{1, 3},
		{2, 2},
		{3, 1},
		{4, 0},
		{9, 0},
		{0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ReliabilityScore(tt.class), "class %d", tt.class)
	}
}
