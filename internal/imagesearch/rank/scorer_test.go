package rank

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/needleref/needleref/internal/imagesearch/types"
)

func newTestRanker() *Ranker {
	return NewRanker(nil, DefaultWeights())
}

func TestRankFeatureWeightBeatsTagToken(t *testing.T) {
	r := newTestRanker()

	a := types.NormalizedImage{
		ID:          "a",
		Description: "ink artwork",
		Tags:        []string{"dragon"},
		Weights:     map[string]float64{"subject.dragon": 1.0},
	}
	b := types.NormalizedImage{
		ID:          "b",
		Description: "a red dragon breathing fire",
	}

	out := r.Rank("dragon", []string{"dragon"}, nil, []types.NormalizedImage{a, b})
	require.Len(t, out, 2)

	// B: exact description 3.0 + description token 0.2.
	assert.Equal(t, "b", out[0].Image.ID)
	assert.InDelta(t, 3.2, out[0].Score, 1e-9)

	// A: subject feature 1.0*3; the tag token rule is superseded by the
	// feature match and the whole-query bonuses need a description hit.
	assert.Equal(t, "a", out[1].Image.ID)
	assert.InDelta(t, 3.0, out[1].Score, 1e-9)

	assert.Equal(t, 1, out[0].Rank)
	assert.Equal(t, 2, out[1].Rank)
}

func TestRankExactBonusesStack(t *testing.T) {
	r := newTestRanker()

	img := types.NormalizedImage{
		ID:          "x",
		Description: "koi pond at dusk",
		Tags:        []string{"koi", "water"},
	}
	out := r.Rank("koi", []string{"koi"}, nil, []types.NormalizedImage{img})
	require.Len(t, out, 1)

	// 3.0 (description) + 2.5 (tag, stacked on the description hit) +
	// 1.0 (token tag match; "koi" is a known subject but carries no feature).
	assert.InDelta(t, 6.5, out[0].Score, 1e-9)
}

func TestRankClassMultipliers(t *testing.T) {
	r := newTestRanker()

	img := types.NormalizedImage{
		ID: "m",
		Weights: map[string]float64{
			"subject.wolf":      2.0,
			"style.blackwork":   1.0,
			"technique.shading": 1.0,
		},
	}
	out := r.Rank("wolf blackwork shading", []string{"wolf blackwork shading"}, nil,
		[]types.NormalizedImage{img})
	require.Len(t, out, 1)

	// 2.0*3 + 1.0*2 + 1.0*1.5
	assert.InDelta(t, 9.5, out[0].Score, 1e-9)
}

func TestRankExcludesZeroScores(t *testing.T) {
	r := newTestRanker()

	images := []types.NormalizedImage{
		{ID: "hit", Description: "lotus flower"},
		{ID: "miss", Description: "city skyline", Tags: []string{"urban"}},
	}
	out := r.Rank("lotus", []string{"lotus"}, nil, images)
	require.Len(t, out, 1)
	assert.Equal(t, "hit", out[0].Image.ID)
}

func TestRankIsStable(t *testing.T) {
	r := newTestRanker()

	// All three get identical scores from the same tag token.
	images := []types.NormalizedImage{
		{ID: "first", Tags: []string{"rose"}},
		{ID: "second", Tags: []string{"rose"}},
		{ID: "third", Tags: []string{"rose"}},
	}

	var prev []string
	for i := 0; i < 5; i++ {
		out := r.Rank("rose", []string{"rose"}, nil, images)
		ids := make([]string, len(out))
		for j, c := range out {
			ids[j] = c.Image.ID
		}
		if prev != nil {
			assert.Equal(t, prev, ids)
		}
		prev = ids
	}
	assert.Equal(t, []string{"first", "second", "third"}, prev)
}

func TestRankSelectedTagBonus(t *testing.T) {
	r := newTestRanker()

	with := types.NormalizedImage{ID: "with", Tags: []string{"sketch", "bird"}}
	without := types.NormalizedImage{ID: "without", Tags: []string{"bird"}}

	out := r.Rank("bird", []string{"bird"}, []string{"sketch"},
		[]types.NormalizedImage{without, with})
	require.Len(t, out, 2)
	assert.Equal(t, "with", out[0].Image.ID)
	assert.InDelta(t, out[1].Score+1.0, out[0].Score, 1e-9)
}

func TestRankCapsResults(t *testing.T) {
	w := DefaultWeights()
	w.MaxResults = 3
	r := NewRanker(nil, w)

	images := make([]types.NormalizedImage, 10)
	for i := range images {
		images[i] = types.NormalizedImage{
			ID:   fmt.Sprintf("img%d", i),
			Tags: []string{"moon"},
		}
	}
	out := r.Rank("moon", []string{"moon"}, nil, images)
	assert.Len(t, out, 3)
	assert.Equal(t, 3, out[2].Rank)
}

func TestRankExpandedTermsContribute(t *testing.T) {
	r := newTestRanker()

	img := types.NormalizedImage{ID: "x", Tags: []string{"koi", "fish"}}

	plain := r.Rank("koi", []string{"koi"}, nil, []types.NormalizedImage{img})
	expanded := r.Rank("koi", []string{"koi", "koi fish"}, nil, []types.NormalizedImage{img})

	require.Len(t, plain, 1)
	require.Len(t, expanded, 1)
	assert.Greater(t, expanded[0].Score, plain[0].Score, "extra token adds a tag hit")
}

func TestMergeDedupesByID(t *testing.T) {
	store := []ScoredCandidate{
		{Image: types.NormalizedImage{ID: "pexels_99"}, Score: 5},
		{Image: types.NormalizedImage{ID: "pixabay_1"}, Score: 4},
	}
	fallback := []ScoredCandidate{
		{Image: types.NormalizedImage{ID: "pexels_99"}, Score: 2},
		{Image: types.NormalizedImage{ID: "unsplash_7"}, Score: 1},
	}

	merged := Merge(50, store, fallback)
	require.Len(t, merged, 3)
	assert.Equal(t, "pexels_99", merged[0].Image.ID)
	assert.Equal(t, float64(5), merged[0].Score, "first occurrence wins")
	assert.Equal(t, []int{1, 2, 3}, []int{merged[0].Rank, merged[1].Rank, merged[2].Rank})
}

func TestMergeCaps(t *testing.T) {
	list := make([]ScoredCandidate, 6)
	for i := range list {
		list[i] = ScoredCandidate{Image: types.NormalizedImage{ID: fmt.Sprintf("i%d", i)}}
	}
	assert.Len(t, Merge(4, list), 4)
}

func TestTokenizeDedupesPreservingOrder(t *testing.T) {
	tokens := tokenize([]string{"Dragon Tattoo", "dragon ART", "art"})
	assert.Equal(t, []string{"dragon", "tattoo", "art"}, tokens)
}

func TestVocabularyAdd(t *testing.T) {
	v := DefaultVocabulary()
	require.False(t, v.Subjects["phoenix"])
	v.Add(ClassSubject, "phoenix")
	assert.True(t, v.Subjects["phoenix"])

	r := NewRanker(v, DefaultWeights())
	img := types.NormalizedImage{ID: "p", Weights: map[string]float64{"subject.phoenix": 1.0}}
	out := r.Rank("phoenix", []string{"phoenix"}, nil, []types.NormalizedImage{img})
	require.Len(t, out, 1)
	assert.InDelta(t, 3.0, out[0].Score, 1e-9)
}
