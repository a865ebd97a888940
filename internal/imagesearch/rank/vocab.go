package rank

// Class names the three token classes recognized by the scorer. The class
// name is also the prefix of weighted-feature keys ("subject.dragon").
type Class string

const (
	ClassSubject   Class = "subject"
	ClassStyle     Class = "style"
	ClassTechnique Class = "technique"
)

// FeatureKey builds the weighted-feature map key for a classified token.
func (c Class) FeatureKey(token string) string {
	return string(c) + "." + token
}

// Vocabulary holds the three known-term lookup tables. The sets are plain
// maps so callers can extend them from configuration.
type Vocabulary struct {
	Subjects   map[string]bool
	Styles     map[string]bool
	Techniques map[string]bool
}

// DefaultVocabulary returns the built-in term tables.
func DefaultVocabulary() *Vocabulary {
	return &Vocabulary{
		Subjects: set(
			"dog", "cat", "skull", "rose", "dragon", "snake", "butterfly", "koi", "wolf",
			"flower", "bird", "tree", "mountain", "animal", "fish", "lotus", "moon", "sun", "star",
		),
		Styles: set(
			"blackwork", "fine line", "dotwork", "drawing", "realism", "line art", "sketch",
			"traditional", "neo-traditional", "japanese", "geometric", "watercolor",
		),
		Techniques: set(
			"shading", "stippling", "crosshatching", "stencil", "engraving",
		),
	}
}

// Add extends one of the tables. Unknown classes are ignored.
func (v *Vocabulary) Add(class Class, terms ...string) {
	var table map[string]bool
	switch class {
	case ClassSubject:
		table = v.Subjects
	case ClassStyle:
		table = v.Styles
	case ClassTechnique:
		table = v.Techniques
	default:
		return
	}
	for _, t := range terms {
		table[t] = true
	}
}

func set(terms ...string) map[string]bool {
	m := make(map[string]bool, len(terms))
	for _, t := range terms {
		m[t] = true
	}
	return m
}
