package mapgen_test

import (
	"testing"

	"github.com/Corphon/Chronicle/internal/mapgen"
	"github.com/stretchr/testify/assert"
)

func TestAppendLocationSuppressesNormalizedDuplicates(t *testing.T) {
	var history []string
	for _, loc := range []string{"Forest", "forest ", "Cave"} {
		history = mapgen.AppendLocation(history, loc)
	}
	assert.Equal(t, []string{"Forest", "Cave"}, history)
}

func TestAppendLocationTrimsAndIgnoresBlank(t *testing.T) {
	history := mapgen.AppendLocation(nil, "  Dusty Crypt  ")
	assert.Equal(t, []string{"Dusty Crypt"}, history)

	assert.Equal(t, history, mapgen.AppendLocation(history, "   "))
	assert.Equal(t, history, mapgen.AppendLocation(history, ""))
}

func TestAppendLocationAllowsRevisits(t *testing.T) {
	history := []string{"Inn", "Forest"}
	assert.Equal(t, []string{"Inn", "Forest", "Inn"}, mapgen.AppendLocation(history, "inn"))
}

func TestAppendLocationDoesNotMutateInput(t *testing.T) {
	base := make([]string, 1, 4)
	base[0] = "Inn"
	a := mapgen.AppendLocation(base, "Forest")
	b := mapgen.AppendLocation(base, "Cave")
	assert.Equal(t, []string{"Inn", "Forest"}, a)
	assert.Equal(t, []string{"Inn", "Cave"}, b)
	assert.Len(t, base, 1)
}
