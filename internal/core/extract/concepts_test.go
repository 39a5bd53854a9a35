package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConceptsUpperCaseHeadings(t *testing.T) {
	text := "RUSTING OF IRON\nIron reacts with oxygen and water.\nCORROSION\nTHIS LINE HAS FAR TOO MANY WORDS TO BE A CONCEPT"

	assert.Equal(t, []string{"Rusting Of Iron", "Corrosion"}, Concepts(text))
}

func TestConceptsDefinitionLines(t *testing.T) {
	text := "Definition: oxidation reaction\ndefinition of terms\nDefinition:   \nDefinitions: galvanisation"

	assert.Equal(t, []string{"Oxidation Reaction", "Galvanisation"}, Concepts(text))
}

func TestConceptsDeduplicatesPreservingOrder(t *testing.T) {
	text := "CORROSION\nRANCIDITY\ncorrosion is slow\nCORROSION\nDefinition: rancidity"

	assert.Equal(t, []string{"Corrosion", "Rancidity"}, Concepts(text))
}

func TestConceptsIgnoresShortLines(t *testing.T) {
	assert.Empty(t, Concepts("ACID\nH2O\n"))
	assert.Empty(t, Concepts("ÉTÉS\n"), "four characters in six bytes is still short")
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "Acids, Bases And Salts", titleCase("ACIDS, BASES AND SALTS"))
	assert.Equal(t, "2Nd Law", titleCase("2ND LAW"))
}

func TestIsUpper(t *testing.T) {
	assert.True(t, isUpper("H2O AND CO2"))
	assert.False(t, isUpper("1234 5678"))
	assert.False(t, isUpper("Mixed Case"))
}
