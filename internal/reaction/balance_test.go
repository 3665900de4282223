package reaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBalance(t *testing.T) {
	tests := []struct {
		name      string
		reactants []string
		products  []string
		wantR     []int
		wantP     []int
	}{
		{
			name:      "water formation",
			reactants: []string{"H2", "O2"},
			products:  []string{"H2O"},
			wantR:     []int{2, 1},
			wantP:     []int{2},
		},
		{
			name:      "hydrogen sulfide combustion",
			reactants: []string{"H2S", "O2"},
			products:  []string{"SO2", "H2O"},
			wantR:     []int{2, 3},
			wantP:     []int{2, 2},
		},
		{
			name:      "iron oxide reduction",
			reactants: []string{"Fe2O3", "CO"},
			products:  []string{"Fe", "CO2"},
			wantR:     []int{1, 3},
			wantP:     []int{2, 3},
		},
		{
			name:      "already balanced",
			reactants: []string{"NaCl"},
			products:  []string{"NaCl"},
			wantR:     []int{1},
			wantP:     []int{1},
		},
		{
			name:      "ammonia synthesis",
			reactants: []string{"N2", "H2"},
			products:  []string{"NH3"},
			wantR:     []int{1, 3},
			wantP:     []int{2},
		},
		{
			name:      "unicode and phase hints normalize first",
			reactants: []string{"H₂", "O2(g)"},
			products:  []string{"H2O(l)"},
			wantR:     []int{2, 1},
			wantP:     []int{2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc, pc, err := Balance(tt.reactants, tt.products)
			require.NoError(t, err)
			assert.Equal(t, tt.wantR, rc)
			assert.Equal(t, tt.wantP, pc)
		})
	}
}

func TestBalance_Errors(t *testing.T) {
	tests := []struct {
		name      string
		reactants []string
		products  []string
		reason    string
	}{
		{
			name:      "empty reactant side",
			reactants: nil,
			products:  []string{"H2O"},
			reason:    "both sides",
		},
		{
			name:      "unparseable formula",
			reactants: []string{"H2!"},
			products:  []string{"H2O"},
			reason:    "parse",
		},
		{
			name:      "element mismatch",
			reactants: []string{"H2"},
			products:  []string{"CO2"},
			reason:    "trivial",
		},
		{
			name:      "underdetermined system",
			reactants: []string{"C", "O2", "CO"},
			products:  []string{"CO2"},
			reason:    "underdetermined",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Balance(tt.reactants, tt.products)
			require.Error(t, err)
			assert.True(t, IsBalancingError(err))
			assert.Contains(t, err.Error(), tt.reason)
		})
	}
}

func TestFormatEquation(t *testing.T) {
	assert.Equal(t, "2H2 + O2 -> 2H2O",
		FormatEquation([]string{"H2", "O2"}, []string{"H2O"}, []int{2, 1}, []int{2}))
	assert.Equal(t, "NaCl -> NaCl",
		FormatEquation([]string{"NaCl"}, []string{"NaCl"}, []int{1}, []int{1}))
	assert.Equal(t, "2H2S + 3O2 -> 2SO2 + 2H2O",
		FormatEquation([]string{"H2S", "O2"}, []string{"SO2", "H2O"}, []int{2, 3}, []int{2, 2}))
}
