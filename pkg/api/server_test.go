package api

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctxatlas/atlas/pkg/consumers/consolidation"
	"github.com/ctxatlas/atlas/pkg/payloadstore"
)

func TestServer_ValidateWiring(t *testing.T) {
	t.Run("all services wired", func(t *testing.T) {
		s := &Server{
			payloads: &payloadstore.Store{},
			admin:    &consolidation.Handler{},
		}
		assert.NoError(t, s.ValidateWiring())
	})

	t.Run("no services wired", func(t *testing.T) {
		s := &Server{}
		err := s.ValidateWiring()
		require.Error(t, err)

		msg := err.Error()
		assert.Contains(t, msg, "server wiring incomplete")
		assert.Contains(t, msg, "payloadstore")
		assert.Contains(t, msg, "consolidation handler")
		assert.Equal(t, 2, strings.Count(msg, "not set"))
	})

	t.Run("partial wiring reports only missing", func(t *testing.T) {
		s := &Server{payloads: &payloadstore.Store{}}
		err := s.ValidateWiring()
		require.Error(t, err)

		msg := err.Error()
		assert.Contains(t, msg, "consolidation handler")
		assert.NotContains(t, msg, "payloadstore not set")
	})
}
