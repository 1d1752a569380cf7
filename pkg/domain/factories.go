package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewID returns a random v4 UUID string, used for node/edge kinds whose
// identity is not deterministic from their content (Summary, Preference,
// Skill instances with the same name are deduplicated by name, not id;
// Workflow, BehavioralPattern).
func NewID() string {
	return uuid.NewString()
}

// EntityID deterministically derives an Entity's id from its normalized
// name and type, so repeated extraction of "the same" entity resolves to
// the same node instead of creating a duplicate (tier-1 exact
// resolution).
func EntityID(name string, entityType EntityType) string {
	key := NormalizeEntityName(name) + "|" + string(entityType)
	sum := sha256.Sum256([]byte(key))
	return "ent_" + hex.EncodeToString(sum[:16])
}

// NormalizeEntityName applies the tier-1 exact-resolution normalization:
// lowercase, trim, collapse internal whitespace.
func NormalizeEntityName(name string) string {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(name)))
	return strings.Join(fields, " ")
}

// SkillID deterministically derives a Skill's id from its normalized name,
// mirroring the unique index on Skill.name.
func SkillID(name string) string {
	sum := sha256.Sum256([]byte(NormalizeEntityName(name)))
	return "skl_" + hex.EncodeToString(sum[:16])
}

// NewEventNode builds an EventNode from a validated Event with the
// default derived-field state prior to enrichment.
func NewEventNode(e Event) EventNode {
	return EventNode{
		Event:           e,
		ImportanceScore: 5,
		AccessCount:     0,
	}
}

// NewEntityNode builds a new EntityNode for first-sighting of an entity.
func NewEntityNode(name string, entityType EntityType, now time.Time) EntityNode {
	return EntityNode{
		EntityID:     EntityID(name, entityType),
		Name:         name,
		EntityType:   entityType,
		FirstSeen:    now,
		LastSeen:     now,
		MentionCount: 1,
	}
}

// NewPreferenceNode builds a new PreferenceNode with its initial
// confidence clamped to the source's ceiling (never above); callers are
// expected to have already applied the floor rejection gate before
// calling this.
func NewPreferenceNode(
	category PreferenceCategory,
	key string,
	polarity Polarity,
	strength float64,
	llmSelfReported float64,
	source PreferenceSource,
	scope PreferenceScope,
	now time.Time,
) PreferenceNode {
	confidence := llmSelfReported
	if ceiling := source.ConfidenceCeiling(); confidence > ceiling {
		confidence = ceiling
	}
	return PreferenceNode{
		PreferenceID:     NewID(),
		Category:         category,
		Key:              key,
		Polarity:         polarity,
		Strength:         strength,
		Confidence:       confidence,
		Source:           source,
		Scope:            scope,
		ObservationCount: 1,
		FirstObservedAt:  now,
		LastConfirmedAt:  now,
		Stability:        defaultPreferenceStabilityHours,
	}
}

// defaultPreferenceStabilityHours is the recency decay half-life seed for
// new Preference nodes (30 days).
const defaultPreferenceStabilityHours = 30 * 24
