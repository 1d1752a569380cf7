package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctxatlas/atlas/pkg/config"
)

func TestLocalEmbed_IsDeterministicAndUnitLength(t *testing.T) {
	c := NewLocal(config.DefaultEmbeddingConfig())

	a, err := c.Embed(context.Background(), []string{"prefers dark mode"})
	require.NoError(t, err)
	b, err := c.Embed(context.Background(), []string{"prefers dark mode"})
	require.NoError(t, err)

	require.Len(t, a, 1)
	assert.Equal(t, a[0], b[0])
	assert.InDelta(t, 1.0, CosineSimilarity(a[0], a[0]), 1e-6)
}

func TestLocalEmbed_DifferentTextsDiffer(t *testing.T) {
	c := NewLocal(config.DefaultEmbeddingConfig())

	a, err := c.Embed(context.Background(), []string{"likes vim"})
	require.NoError(t, err)
	b, err := c.Embed(context.Background(), []string{"likes emacs"})
	require.NoError(t, err)

	assert.NotEqual(t, a[0], b[0])
}

func TestCosineSimilarity_MismatchedLengthsReturnsZero(t *testing.T) {
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1, 2}, []float32{1}))
}
