package biz

import "strings"

// DefaultCategories is the built-in reference taxonomy: main category to its
// subcategories. The map is treated as read-only.
var DefaultCategories = map[string][]string{
	"Anatomy & Body Parts": {
		"Faces", "Front", "Side", "¾ Angle", "Expressions",
		"Hands", "Gestures", "Grips", "Poses",
		"Arms & Legs", "Torsos & Backs", "Feet", "Skulls",
	},
	"Nature": {
		"Flowers", "Roses", "Peonies", "Lotuses", "Wildflowers",
		"Plants & Leaves", "Animals", "Snakes", "Birds", "Wolves",
		"Big Cats", "Insects", "Natural Scenes",
	},
	"Myth & Fantasy": {
		"Dragons", "Demons", "Gods/Goddesses", "Mythical Creatures", "Angels & Wings",
	},
	"Objects": {
		"Daggers", "Clocks", "Jewelry", "Weapons", "Sacred Geometry", "Crystals",
	},
	"Symbolism & Spiritual": {
		"Eyes", "Hands of Fatima", "Tarot-inspired", "Mandalas", "Religious Symbols",
	},
	"Style-Based": {
		"Traditional", "Neo-Traditional", "Blackwork", "Realism",
		"Dotwork", "Minimalist", "Surreal",
	},
	"My References": {
		"Uploaded Images", "Sketches", "Reference Photos",
	},
}

// categoryRule maps a tag keyword to the subcategory it votes for. Rules are
// a slice, not a map, so voting ties resolve deterministically by rule order.
type categoryRule struct {
	keyword     string
	subcategory string
}

var categoryRules = []categoryRule{
	// Anatomy
	{"face", "Faces"},
	{"portrait", "Faces"},
	{"hand", "Hands"},
	{"finger", "Hands"},
	{"arm", "Arms & Legs"},
	{"leg", "Arms & Legs"},
	{"foot", "Feet"},
	{"feet", "Feet"},
	{"skull", "Skulls"},
	{"bone", "Skulls"},
	{"torso", "Torsos & Backs"},
	{"back", "Torsos & Backs"},

	// Nature
	{"flower", "Flowers"},
	{"rose", "Roses"},
	{"peony", "Peonies"},
	{"lotus", "Lotuses"},
	{"plant", "Plants & Leaves"},
	{"leaf", "Plants & Leaves"},
	{"leaves", "Plants & Leaves"},
	{"animal", "Animals"},
	{"snake", "Snakes"},
	{"serpent", "Snakes"},
	{"bird", "Birds"},
	{"wolf", "Wolves"},
	{"lion", "Big Cats"},
	{"tiger", "Big Cats"},
	{"cat", "Big Cats"},
	{"insect", "Insects"},
	{"bug", "Insects"},
	{"butterfly", "Insects"},
	{"mountain", "Natural Scenes"},
	{"ocean", "Natural Scenes"},
	{"wave", "Natural Scenes"},
	{"tree", "Natural Scenes"},

	// Myth & fantasy
	{"dragon", "Dragons"},
	{"demon", "Demons"},
	{"devil", "Demons"},
	{"god", "Gods/Goddesses"},
	{"goddess", "Gods/Goddesses"},
	{"deity", "Gods/Goddesses"},
	{"mythical", "Mythical Creatures"},
	{"fantasy", "Mythical Creatures"},
	{"angel", "Angels & Wings"},
	{"wing", "Angels & Wings"},

	// Objects
	{"dagger", "Daggers"},
	{"knife", "Daggers"},
	{"clock", "Clocks"},
	{"time", "Clocks"},
	{"jewelry", "Jewelry"},
	{"ring", "Jewelry"},
	{"necklace", "Jewelry"},
	{"weapon", "Weapons"},
	{"sword", "Weapons"},
	{"gun", "Weapons"},
	{"sacred geometry", "Sacred Geometry"},
	{"geometric", "Sacred Geometry"},
	{"crystal", "Crystals"},
	{"gem", "Crystals"},

	// Symbolism & spiritual
	{"eye", "Eyes"},
	{"hamsa", "Hands of Fatima"},
	{"fatima", "Hands of Fatima"},
	{"tarot", "Tarot-inspired"},
	{"card", "Tarot-inspired"},
	{"mandala", "Mandalas"},
	{"religious", "Religious Symbols"},
	{"cross", "Religious Symbols"},

	// Style-based
	{"traditional", "Traditional"},
	{"old school", "Traditional"},
	{"neo-traditional", "Neo-Traditional"},
	{"blackwork", "Blackwork"},
	{"realistic", "Realism"},
	{"realism", "Realism"},
	{"dotwork", "Dotwork"},
	{"minimal", "Minimalist"},
	{"minimalist", "Minimalist"},
	{"surreal", "Surreal"},
	{"abstract", "Surreal"},
}

// subcategoryToMain is the inverse index over DefaultCategories.
var subcategoryToMain = func() map[string]string {
	m := make(map[string]string)
	for main, subs := range DefaultCategories {
		for _, sub := range subs {
			m[sub] = main
		}
	}
	return m
}()

// AutoCategorize suggests a (main, sub) category pair by letting every tag
// vote through the keyword rules. Substring matches count, so "dragons" votes
// for Dragons; each tag casts one vote, for its longest matching keyword
// ("blackwork tattoo" votes Blackwork, not Torsos & Backs via "back"). The
// most-voted subcategory wins; ties go to the rule that appears first in the
// table. Empty strings mean no suggestion.
func AutoCategorize(tags []string) (mainCategory, subcategory string) {
	votes := make(map[string]int)
	order := make([]string, 0, 4)

	for _, tag := range tags {
		t := strings.ToLower(tag)
		best := ""
		bestLen := 0
		for _, rule := range categoryRules {
			if strings.Contains(t, rule.keyword) && len(rule.keyword) > bestLen {
				best = rule.subcategory
				bestLen = len(rule.keyword)
			}
		}
		if best != "" {
			if votes[best] == 0 {
				order = append(order, best)
			}
			votes[best]++
		}
	}

	best := ""
	bestCount := 0
	for _, sub := range order {
		if votes[sub] > bestCount {
			bestCount = votes[sub]
			best = sub
		}
	}
	if best == "" {
		return "", ""
	}
	return subcategoryToMain[best], best
}

// ValidCategory reports whether the pair names an entry of the taxonomy.
// An empty subcategory is valid for any known main category.
func ValidCategory(mainCategory, subcategory string) bool {
	subs, ok := DefaultCategories[mainCategory]
	if !ok {
		return false
	}
	if subcategory == "" {
		return true
	}
	for _, s := range subs {
		if s == subcategory {
			return true
		}
	}
	return false
}
