package biz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAutoCategorizeVoting(t *testing.T) {
	main, sub := AutoCategorize([]string{"snake", "serpent", "rose"})
	assert.Equal(t, "Nature", main)
	assert.Equal(t, "Snakes", sub, "two snake votes beat one rose vote")
}

func TestAutoCategorizeSubstringMatch(t *testing.T) {
	main, sub := AutoCategorize([]string{"dragons", "ink"})
	assert.Equal(t, "Myth & Fantasy", main)
	assert.Equal(t, "Dragons", sub)
}

func TestAutoCategorizeTieKeepsFirstSeen(t *testing.T) {
	main, sub := AutoCategorize([]string{"skull", "clock"})
	assert.Equal(t, "Anatomy & Body Parts", main)
	assert.Equal(t, "Skulls", sub, "ties resolve to the earlier rule")
}

func TestAutoCategorizeNoMatch(t *testing.T) {
	main, sub := AutoCategorize([]string{"zzz", "qqq"})
	assert.Empty(t, main)
	assert.Empty(t, sub)

	main, sub = AutoCategorize(nil)
	assert.Empty(t, main)
	assert.Empty(t, sub)
}

func TestAutoCategorizeCaseInsensitive(t *testing.T) {
	_, sub := AutoCategorize([]string{"Blackwork Tattoo"})
	assert.Equal(t, "Blackwork", sub)
}

func TestValidCategory(t *testing.T) {
	assert.True(t, ValidCategory("Nature", "Roses"))
	assert.True(t, ValidCategory("Nature", ""), "empty subcategory is fine for a known main")
	assert.False(t, ValidCategory("Nature", "Dragons"), "subcategory from another main")
	assert.False(t, ValidCategory("Bogus", ""))
	assert.False(t, ValidCategory("", "Roses"))
}

func TestTaxonomyInverseIndexIsComplete(t *testing.T) {
	for main, subs := range DefaultCategories {
		for _, sub := range subs {
			assert.Equal(t, main, subcategoryToMain[sub])
		}
	}
}
