package graphstore

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ctxatlas/atlas/pkg/domain"
)

// users.go answers the personalization-view queries the API layer
// exposes per user: profile, preferences, skills, patterns, and
// interests, each reached by joining the user Entity's has_*/exhibits/
// interested_in edge table onto the target node table. It also carries
// the GDPR erasure cascade.

// ProfileByUser returns the UserProfile linked to a user Entity, if any.
func (s *Store) ProfileByUser(ctx context.Context, userEntityID string) (*domain.UserProfileNode, bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT up.profile_id, up.user_id, up.display_name, up.timezone, up.language,
			up.communication_style, up.technical_level, up.created_at, up.updated_at
		FROM has_profile_edges hp
		JOIN user_profiles up ON up.profile_id = hp.profile_id
		WHERE hp.user_entity_id = $1`, userEntityID)

	var p domain.UserProfileNode
	err := row.Scan(&p.ProfileID, &p.UserID, &p.DisplayName, &p.Timezone, &p.Language,
		&p.CommunicationStyle, &p.TechnicalLevel, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, wrapf("profile by user", err)
	}
	return &p, true, nil
}

// PreferencesByUser returns every active (non-superseded) Preference a
// user Entity holds.
func (s *Store) PreferencesByUser(ctx context.Context, userEntityID string) ([]*domain.PreferenceNode, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT p.preference_id, p.category, p.key, p.polarity, p.strength, p.confidence, p.source,
			p.context, p.scope, p.scope_id, p.observation_count, p.first_observed_at,
			p.last_confirmed_at, p.access_count, p.stability, p.superseded_by
		FROM has_preference_edges hp
		JOIN preferences p ON p.preference_id = hp.preference_id
		WHERE hp.user_entity_id = $1 AND p.superseded_by IS NULL
		ORDER BY p.last_confirmed_at DESC`, userEntityID)
	if err != nil {
		return nil, wrapf("preferences by user", err)
	}
	defer rows.Close()

	var out []*domain.PreferenceNode
	for rows.Next() {
		p, err := scanPreference(rows)
		if err != nil {
			return nil, wrapf("scan preference by user", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SkillAssessment pairs a Skill with the user-specific proficiency the
// has_skill_edges row carries, since proficiency lives on the edge, not
// the shared Skill node.
type SkillAssessment struct {
	Skill           *domain.SkillNode       `json:"skill"`
	Proficiency     domain.SkillProficiency `json:"proficiency"`
	Confidence      float64                 `json:"confidence"`
	LastAssessedAt  time.Time               `json:"last_assessed_at"`
	AssessmentCount int                     `json:"assessment_count"`
}

// SkillsByUser returns every Skill a user Entity has an assessment for.
func (s *Store) SkillsByUser(ctx context.Context, userEntityID string) ([]SkillAssessment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT sk.skill_id, sk.name, sk.category, sk.description,
			hs.proficiency, hs.confidence, hs.last_assessed_at, hs.assessment_count
		FROM has_skill_edges hs
		JOIN skills sk ON sk.skill_id = hs.skill_id
		WHERE hs.user_entity_id = $1
		ORDER BY hs.last_assessed_at DESC`, userEntityID)
	if err != nil {
		return nil, wrapf("skills by user", err)
	}
	defer rows.Close()

	var out []SkillAssessment
	for rows.Next() {
		var sk domain.SkillNode
		var a SkillAssessment
		var proficiencyStr string
		if err := rows.Scan(&sk.SkillID, &sk.Name, &sk.Category, &sk.Description,
			&proficiencyStr, &a.Confidence, &a.LastAssessedAt, &a.AssessmentCount); err != nil {
			return nil, wrapf("scan skill by user", err)
		}
		a.Skill = &sk
		a.Proficiency = domain.SkillProficiency(proficiencyStr)
		out = append(out, a)
	}
	return out, rows.Err()
}

// PatternsByUser returns every BehavioralPattern a user Entity exhibits.
func (s *Store) PatternsByUser(ctx context.Context, userEntityID string) ([]*domain.BehavioralPatternNode, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT bp.pattern_id, bp.pattern_type, bp.description, bp.confidence, bp.observation_count,
			bp.involved_agents, bp.first_detected_at, bp.last_confirmed_at, bp.access_count, bp.stability
		FROM exhibits_pattern_edges ep
		JOIN behavioral_patterns bp ON bp.pattern_id = ep.pattern_id
		WHERE ep.user_entity_id = $1
		ORDER BY bp.last_confirmed_at DESC`, userEntityID)
	if err != nil {
		return nil, wrapf("patterns by user", err)
	}
	defer rows.Close()

	var out []*domain.BehavioralPatternNode
	for rows.Next() {
		var p domain.BehavioralPatternNode
		var typeStr string
		if err := rows.Scan(&p.PatternID, &typeStr, &p.Description, &p.Confidence, &p.ObservationCount,
			&p.InvolvedAgents, &p.FirstDetectedAt, &p.LastConfirmedAt, &p.AccessCount, &p.Stability); err != nil {
			return nil, wrapf("scan pattern by user", err)
		}
		p.PatternType = domain.PatternType(typeStr)
		out = append(out, &p)
	}
	return out, rows.Err()
}

// Interest pairs a concept Entity with the user's INTERESTED_IN weight.
type Interest struct {
	Entity *domain.EntityNode     `json:"entity"`
	Weight float64                `json:"weight"`
	Source domain.KnowledgeSource `json:"source"`
}

// InterestsByUser returns every concept Entity a user Entity is linked
// to via INTERESTED_IN, highest weight first.
func (s *Store) InterestsByUser(ctx context.Context, userEntityID string) ([]Interest, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT e.entity_id, e.name, e.entity_type, e.first_seen, e.last_seen, e.mention_count, e.tombstoned,
			ii.weight, ii.source
		FROM interested_in_edges ii
		JOIN entities e ON e.entity_id = ii.concept_entity_id
		WHERE ii.user_entity_id = $1
		ORDER BY ii.weight DESC`, userEntityID)
	if err != nil {
		return nil, wrapf("interests by user", err)
	}
	defer rows.Close()

	var out []Interest
	for rows.Next() {
		var e domain.EntityNode
		var it Interest
		var entityTypeStr, sourceStr string
		if err := rows.Scan(&e.EntityID, &e.Name, &entityTypeStr, &e.FirstSeen, &e.LastSeen, &e.MentionCount,
			&e.Tombstoned, &it.Weight, &sourceStr); err != nil {
			return nil, wrapf("scan interest by user", err)
		}
		e.EntityType = domain.EntityType(entityTypeStr)
		it.Entity = &e
		it.Source = domain.KnowledgeSource(sourceStr)
		out = append(out, it)
	}
	return out, rows.Err()
}

// EraseUserData implements the GDPR cascade for a user Entity: drop the
// profile, every preference and its edge, every skill/pattern/interest
// edge (the shared Skill/BehavioralPattern/concept-Entity nodes those
// point at are left alone — they aren't this user's personal data),
// then tombstone the user Entity itself so it stops resolving as a
// traversal seed. Every statement runs in one transaction so a erasure
// request either fully lands or fully rolls back.
func (s *Store) EraseUserData(ctx context.Context, userEntityID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return wrapf("erase user data: begin", err)
	}
	defer tx.Rollback(ctx)

	stmts := []struct {
		sql  string
		args []interface{}
	}{
		{`DELETE FROM preferences WHERE preference_id IN (
			SELECT preference_id FROM has_preference_edges WHERE user_entity_id = $1)`, []interface{}{userEntityID}},
		{`DELETE FROM has_preference_edges WHERE user_entity_id = $1`, []interface{}{userEntityID}},
		{`DELETE FROM has_skill_edges WHERE user_entity_id = $1`, []interface{}{userEntityID}},
		{`DELETE FROM exhibits_pattern_edges WHERE user_entity_id = $1`, []interface{}{userEntityID}},
		{`DELETE FROM interested_in_edges WHERE user_entity_id = $1`, []interface{}{userEntityID}},
		{`DELETE FROM user_profiles WHERE profile_id IN (
			SELECT profile_id FROM has_profile_edges WHERE user_entity_id = $1)`, []interface{}{userEntityID}},
		{`DELETE FROM has_profile_edges WHERE user_entity_id = $1`, []interface{}{userEntityID}},
		{`UPDATE entities SET tombstoned = true WHERE entity_id = $1`, []interface{}{userEntityID}},
	}
	for _, st := range stmts {
		if _, err := tx.Exec(ctx, st.sql, st.args...); err != nil {
			return wrapf("erase user data", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return wrapf("erase user data: commit", err)
	}
	return nil
}
