package biz

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/needleref/needleref/internal/imagesearch/rank"
	"github.com/needleref/needleref/internal/imagesearch/types"
	librarybiz "github.com/needleref/needleref/internal/library/biz"
	"github.com/needleref/needleref/internal/pkg/workerpool"
)

// WeightsGenerator backfills the weighted-feature map for stored images that
// lack one, deriving keys from each tag's vocabulary class.
type WeightsGenerator struct {
	images librarybiz.ImageRepo
	vocab  *rank.Vocabulary
	pool   *workerpool.Pool
	logger *zap.Logger
}

func NewWeightsGenerator(images librarybiz.ImageRepo, vocab *rank.Vocabulary, pool *workerpool.Pool, logger *zap.Logger) *WeightsGenerator {
	if vocab == nil {
		vocab = rank.DefaultVocabulary()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WeightsGenerator{images: images, vocab: vocab, pool: pool, logger: logger}
}

// Generate derives a weighted-feature map from a tag list. Every tag becomes
// one "<class>.<tag>" key at weight 1.0; tags outside the vocabulary land in
// the "general" class.
func (g *WeightsGenerator) Generate(tags []string) map[string]float64 {
	weights := make(map[string]float64, len(tags))
	for _, tag := range tags {
		t := strings.ToLower(strings.TrimSpace(tag))
		if t == "" {
			continue
		}
		weights[g.classify(t)+"."+t] = 1.0
	}
	return weights
}

func (g *WeightsGenerator) classify(tag string) string {
	switch {
	case g.vocab.Subjects[tag]:
		return string(rank.ClassSubject)
	case g.vocab.Styles[tag]:
		return string(rank.ClassStyle)
	case g.vocab.Techniques[tag]:
		return string(rank.ClassTechnique)
	default:
		return "general"
	}
}

// GenerateMissing backfills weights for every stored image without one and
// returns how many were updated. Per-image store failures are logged and
// skipped.
func (g *WeightsGenerator) GenerateMissing(ctx context.Context) (int, error) {
	images, err := g.images.ImagesWithoutWeights(ctx)
	if err != nil {
		return 0, err
	}
	if len(images) == 0 {
		return 0, nil
	}

	var updated atomic.Int64
	update := func(img types.NormalizedImage) {
		weights := g.Generate(img.Tags)
		if len(weights) == 0 {
			return
		}
		if err := g.images.SetWeights(ctx, img.ID, weights); err != nil {
			g.logger.Warn("failed to store generated weights",
				zap.String("source_id", img.ID),
				zap.Error(err))
			return
		}
		updated.Add(1)
	}

	if g.pool == nil {
		for _, img := range images {
			update(img)
		}
		return int(updated.Load()), nil
	}

	var wg sync.WaitGroup
	for _, img := range images {
		wg.Add(1)
		if err := g.pool.Submit(func() {
			defer wg.Done()
			update(img)
		}); err != nil {
			wg.Done()
			update(img)
		}
	}
	wg.Wait()

	g.logger.Info("generated feature weights", zap.Int64("updated", updated.Load()))
	return int(updated.Load()), nil
}
