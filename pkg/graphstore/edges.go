package graphstore

import (
	"context"

	"github.com/ctxatlas/atlas/pkg/domain"
)

// CreateFollows inserts a FOLLOWS edge; idempotent on (from, to).
func (s *Store) CreateFollows(ctx context.Context, e domain.FollowsEdge) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO follows_edges (from_event_id, to_event_id, session_id, delta_ms)
		VALUES ($1,$2,$3,$4) ON CONFLICT (from_event_id, to_event_id) DO NOTHING`,
		e.FromEventID, e.ToEventID, e.SessionID, e.DeltaMs)
	return wrapf("create follows", err)
}

// CreateCausedBy inserts a CAUSED_BY edge.
func (s *Store) CreateCausedBy(ctx context.Context, e domain.CausedByEdge) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO caused_by_edges (from_event_id, to_event_id, mechanism)
		VALUES ($1,$2,$3) ON CONFLICT (from_event_id, to_event_id) DO UPDATE SET mechanism = EXCLUDED.mechanism`,
		e.FromEventID, e.ToEventID, string(e.Mechanism))
	return wrapf("create caused_by", err)
}

// CreateSimilarTo inserts or refreshes a SIMILAR_TO edge's score.
func (s *Store) CreateSimilarTo(ctx context.Context, e domain.SimilarToEdge) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO similar_to_edges (from_event_id, to_event_id, score)
		VALUES ($1,$2,$3) ON CONFLICT (from_event_id, to_event_id) DO UPDATE SET score = EXCLUDED.score`,
		e.FromEventID, e.ToEventID, e.Score)
	return wrapf("create similar_to", err)
}

// CreateReferences inserts a REFERENCES edge.
func (s *Store) CreateReferences(ctx context.Context, e domain.ReferencesEdge) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO references_edges (event_id, entity_id, role)
		VALUES ($1,$2,$3) ON CONFLICT (event_id, entity_id, role) DO NOTHING`,
		e.EventID, e.EntityID, string(e.Role))
	return wrapf("create references", err)
}

// CreateSummarizes inserts a SUMMARIZES edge from a Summary to an Event
// or another Summary.
func (s *Store) CreateSummarizes(ctx context.Context, e domain.SummarizesEdge) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO summarizes_edges (summary_id, target_id, target_kind)
		VALUES ($1,$2,$3) ON CONFLICT (summary_id, target_id) DO NOTHING`,
		e.SummaryID, e.TargetID, string(e.TargetKind))
	return wrapf("create summarizes", err)
}

// CreateSameAs inserts a SAME_AS entity-resolution edge.
func (s *Store) CreateSameAs(ctx context.Context, e domain.SameAsEdge) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO same_as_edges (from_entity_id, to_entity_id, confidence, justification)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (from_entity_id, to_entity_id) DO UPDATE SET confidence = EXCLUDED.confidence`,
		e.FromEntityID, e.ToEntityID, e.Confidence, e.Justification)
	return wrapf("create same_as", err)
}

// CreateRelatedTo inserts a RELATED_TO edge between entities.
func (s *Store) CreateRelatedTo(ctx context.Context, e domain.RelatedToEdge) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO related_to_edges (from_entity_id, to_entity_id, confidence, justification)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (from_entity_id, to_entity_id) DO UPDATE SET confidence = EXCLUDED.confidence`,
		e.FromEntityID, e.ToEntityID, e.Confidence, e.Justification)
	return wrapf("create related_to", err)
}

// CreateHasProfile links a user Entity to its UserProfile.
func (s *Store) CreateHasProfile(ctx context.Context, e domain.HasProfileEdge) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO has_profile_edges (user_entity_id, profile_id)
		VALUES ($1,$2) ON CONFLICT (user_entity_id, profile_id) DO NOTHING`,
		e.UserEntityID, e.ProfileID)
	return wrapf("create has_profile", err)
}

// CreateHasPreference links a user Entity to a Preference.
func (s *Store) CreateHasPreference(ctx context.Context, e domain.HasPreferenceEdge) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO has_preference_edges (user_entity_id, preference_id)
		VALUES ($1,$2) ON CONFLICT (user_entity_id, preference_id) DO NOTHING`,
		e.UserEntityID, e.PreferenceID)
	return wrapf("create has_preference", err)
}

// CreateHasSkill links a user Entity to a Skill with an assessed
// proficiency, or refreshes the assessment on re-observation.
func (s *Store) CreateHasSkill(ctx context.Context, e domain.HasSkillEdge) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO has_skill_edges (user_entity_id, skill_id, proficiency, confidence, last_assessed_at, assessment_count, source)
		VALUES ($1,$2,$3,$4,$5,1,$6)
		ON CONFLICT (user_entity_id, skill_id) DO UPDATE SET
			proficiency = EXCLUDED.proficiency,
			confidence = EXCLUDED.confidence,
			last_assessed_at = EXCLUDED.last_assessed_at,
			assessment_count = has_skill_edges.assessment_count + 1`,
		e.UserEntityID, e.SkillID, string(e.Proficiency), e.Confidence, e.LastAssessedAt, string(e.Source))
	return wrapf("create has_skill", err)
}

// CreateDerivedFrom inserts a provenance edge linking a derived node
// back to the event it was extracted from.
func (s *Store) CreateDerivedFrom(ctx context.Context, e domain.DerivedFromEdge) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO derived_from_edges (source_node_id, source_kind, event_id, derivation_method,
			derived_at, model_id, prompt_version, evidence_quote, source_turn_index)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (source_node_id, source_kind, event_id) DO NOTHING`,
		e.SourceNodeID, string(e.SourceKind), e.EventID, string(e.DerivationMethod),
		e.DerivedAt, e.ModelID, e.PromptVersion, e.EvidenceQuote, e.SourceTurnIndex)
	return wrapf("create derived_from", err)
}

// CreateExhibitsPattern links a user Entity to a BehavioralPattern.
func (s *Store) CreateExhibitsPattern(ctx context.Context, e domain.ExhibitsPatternEdge) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO exhibits_pattern_edges (user_entity_id, pattern_id)
		VALUES ($1,$2) ON CONFLICT (user_entity_id, pattern_id) DO NOTHING`,
		e.UserEntityID, e.PatternID)
	return wrapf("create exhibits_pattern", err)
}

// CreateInterestedIn links a user Entity to a concept Entity, or
// refreshes its weight on repeated observation.
func (s *Store) CreateInterestedIn(ctx context.Context, e domain.InterestedInEdge) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO interested_in_edges (user_entity_id, concept_entity_id, weight, source, last_updated)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (user_entity_id, concept_entity_id) DO UPDATE SET
			weight = EXCLUDED.weight, last_updated = EXCLUDED.last_updated`,
		e.UserEntityID, e.ConceptEntityID, e.Weight, string(e.Source), e.LastUpdated)
	return wrapf("create interested_in", err)
}

// CreateAbout links a Preference to the Entity it concerns.
func (s *Store) CreateAbout(ctx context.Context, e domain.AboutEdge) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO about_edges (preference_id, entity_id)
		VALUES ($1,$2) ON CONFLICT (preference_id, entity_id) DO NOTHING`,
		e.PreferenceID, e.EntityID)
	return wrapf("create about", err)
}

// CreateAbstractedFrom links a higher-abstraction Workflow to the
// lower-abstraction Workflow it was generalized from.
func (s *Store) CreateAbstractedFrom(ctx context.Context, e domain.AbstractedFromEdge) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO abstracted_from_edges (from_workflow_id, to_workflow_id)
		VALUES ($1,$2) ON CONFLICT (from_workflow_id, to_workflow_id) DO NOTHING`,
		e.FromWorkflowID, e.ToWorkflowID)
	return wrapf("create abstracted_from", err)
}

// CreateParentSkill links a specific Skill to its broader parent Skill.
func (s *Store) CreateParentSkill(ctx context.Context, e domain.ParentSkillEdge) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO parent_skill_edges (from_skill_id, to_skill_id)
		VALUES ($1,$2) ON CONFLICT (from_skill_id, to_skill_id) DO NOTHING`,
		e.FromSkillID, e.ToSkillID)
	return wrapf("create parent_skill", err)
}
