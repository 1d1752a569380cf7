package api

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ctxatlas/atlas/pkg/domain"
)

func TestInferSeedKind(t *testing.T) {
	assert.Equal(t, domain.NodeKindEntity, inferSeedKind(domain.EntityID("payment-service", domain.EntityTypeService)))
	assert.Equal(t, domain.NodeKindSkill, inferSeedKind(domain.SkillID("terraform")))
	assert.Equal(t, domain.NodeKindEvent, inferSeedKind("caller-supplied-event-id"))
}
