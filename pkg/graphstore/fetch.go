package graphstore

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"

	"github.com/ctxatlas/atlas/pkg/domain"
)

// scanPreference reads one preferences row, shared by every query that
// selects the full preferences column list.
func scanPreference(rows pgx.Rows) (*domain.PreferenceNode, error) {
	var p domain.PreferenceNode
	var categoryStr, polarityStr, sourceStr, scopeStr string
	if err := rows.Scan(&p.PreferenceID, &categoryStr, &p.Key, &polarityStr, &p.Strength, &p.Confidence,
		&sourceStr, &p.Context, &scopeStr, &p.ScopeID, &p.ObservationCount, &p.FirstObservedAt,
		&p.LastConfirmedAt, &p.AccessCount, &p.Stability, &p.SupersededBy); err != nil {
		return nil, err
	}
	p.Category = domain.PreferenceCategory(categoryStr)
	p.Polarity = domain.Polarity(polarityStr)
	p.Source = domain.PreferenceSource(sourceStr)
	p.Scope = domain.PreferenceScope(scopeStr)
	return &p, nil
}

// fetch.go batches node-body lookups by id for the retrieval layer: a
// traversal (traversal.go) returns node ids grouped by kind, and the
// response assembler needs the full node back to attach attributes,
// provenance, and scores.

// ProvenanceEvents returns every source event a derived node holds a
// DERIVED_FROM edge to, most recently derived first, capped to limit.
// Response assembly uses this to back-fill a node's provenance block
// when the node itself isn't an Event.
func (s *Store) ProvenanceEvents(ctx context.Context, nodeID string, nodeKind domain.NodeKind, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.pool.Query(ctx, `
		SELECT event_id FROM derived_from_edges
		WHERE source_node_id = $1 AND source_kind = $2
		ORDER BY derived_at DESC LIMIT $3`,
		nodeID, string(nodeKind), limit,
	)
	if err != nil {
		return nil, wrapf("provenance events", err)
	}
	var out []string
	if err := collectIDs(rows, func(id string) { out = append(out, id) }); err != nil {
		return nil, wrapf("scan provenance events", err)
	}
	return out, nil
}

func (s *Store) GetEntitiesByIDs(ctx context.Context, ids []string) ([]*domain.EntityNode, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT entity_id, name, entity_type, first_seen, last_seen, mention_count, embedding, tombstoned
		FROM entities WHERE entity_id = ANY($1)`, ids)
	if err != nil {
		return nil, wrapf("get entities by ids", err)
	}
	defer rows.Close()

	var out []*domain.EntityNode
	for rows.Next() {
		var e domain.EntityNode
		var entityTypeStr string
		var embeddingJSON []byte
		if err := rows.Scan(&e.EntityID, &e.Name, &entityTypeStr, &e.FirstSeen, &e.LastSeen, &e.MentionCount, &embeddingJSON, &e.Tombstoned); err != nil {
			return nil, wrapf("scan entity by id", err)
		}
		e.EntityType = domain.EntityType(entityTypeStr)
		if len(embeddingJSON) > 0 {
			if err := json.Unmarshal(embeddingJSON, &e.Embedding); err != nil {
				return nil, wrapf("decode entity embedding", err)
			}
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (s *Store) GetSummariesByIDs(ctx context.Context, ids []string) ([]*domain.SummaryNode, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT summary_id, scope, scope_id, content, created_at, event_count, time_range_start, time_range_end
		FROM summaries WHERE summary_id = ANY($1)`, ids)
	if err != nil {
		return nil, wrapf("get summaries by ids", err)
	}
	defer rows.Close()

	var out []*domain.SummaryNode
	for rows.Next() {
		var sm domain.SummaryNode
		if err := rows.Scan(&sm.SummaryID, &sm.Scope, &sm.ScopeID, &sm.Content, &sm.CreatedAt, &sm.EventCount, &sm.TimeRangeStart, &sm.TimeRangeEnd); err != nil {
			return nil, wrapf("scan summary by id", err)
		}
		out = append(out, &sm)
	}
	return out, rows.Err()
}

func (s *Store) GetUserProfilesByIDs(ctx context.Context, ids []string) ([]*domain.UserProfileNode, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT profile_id, user_id, display_name, timezone, language, communication_style, technical_level, created_at, updated_at
		FROM user_profiles WHERE profile_id = ANY($1)`, ids)
	if err != nil {
		return nil, wrapf("get user profiles by ids", err)
	}
	defer rows.Close()

	var out []*domain.UserProfileNode
	for rows.Next() {
		var p domain.UserProfileNode
		if err := rows.Scan(&p.ProfileID, &p.UserID, &p.DisplayName, &p.Timezone, &p.Language, &p.CommunicationStyle, &p.TechnicalLevel, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, wrapf("scan user profile by id", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (s *Store) GetPreferencesByIDs(ctx context.Context, ids []string) ([]*domain.PreferenceNode, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT preference_id, category, key, polarity, strength, confidence, source, context, scope, scope_id,
			observation_count, first_observed_at, last_confirmed_at, access_count, stability, superseded_by
		FROM preferences WHERE preference_id = ANY($1)`, ids)
	if err != nil {
		return nil, wrapf("get preferences by ids", err)
	}
	defer rows.Close()

	var out []*domain.PreferenceNode
	for rows.Next() {
		p, err := scanPreference(rows)
		if err != nil {
			return nil, wrapf("scan preference by id", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) GetSkillsByIDs(ctx context.Context, ids []string) ([]*domain.SkillNode, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT skill_id, name, category, description FROM skills WHERE skill_id = ANY($1)`, ids)
	if err != nil {
		return nil, wrapf("get skills by ids", err)
	}
	defer rows.Close()

	var out []*domain.SkillNode
	for rows.Next() {
		var sk domain.SkillNode
		if err := rows.Scan(&sk.SkillID, &sk.Name, &sk.Category, &sk.Description); err != nil {
			return nil, wrapf("scan skill by id", err)
		}
		out = append(out, &sk)
	}
	return out, rows.Err()
}

func (s *Store) GetWorkflowsByIDs(ctx context.Context, ids []string) ([]*domain.WorkflowNode, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT workflow_id, name, abstraction_level, success_rate, execution_count, avg_duration_ms, source_session_ids, embedding
		FROM workflows WHERE workflow_id = ANY($1)`, ids)
	if err != nil {
		return nil, wrapf("get workflows by ids", err)
	}
	defer rows.Close()

	var out []*domain.WorkflowNode
	for rows.Next() {
		var w domain.WorkflowNode
		var levelStr string
		var embeddingJSON []byte
		if err := rows.Scan(&w.WorkflowID, &w.Name, &levelStr, &w.SuccessRate, &w.ExecutionCount, &w.AvgDurationMs, &w.SourceSessionIDs, &embeddingJSON); err != nil {
			return nil, wrapf("scan workflow by id", err)
		}
		w.AbstractionLevel = domain.WorkflowAbstractionLevel(levelStr)
		if len(embeddingJSON) > 0 {
			if err := json.Unmarshal(embeddingJSON, &w.Embedding); err != nil {
				return nil, wrapf("decode workflow embedding", err)
			}
		}
		out = append(out, &w)
	}
	return out, rows.Err()
}

func (s *Store) GetBehavioralPatternsByIDs(ctx context.Context, ids []string) ([]*domain.BehavioralPatternNode, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT pattern_id, pattern_type, description, confidence, observation_count, involved_agents,
			first_detected_at, last_confirmed_at, access_count, stability
		FROM behavioral_patterns WHERE pattern_id = ANY($1)`, ids)
	if err != nil {
		return nil, wrapf("get behavioral patterns by ids", err)
	}
	defer rows.Close()

	var out []*domain.BehavioralPatternNode
	for rows.Next() {
		var p domain.BehavioralPatternNode
		var typeStr string
		if err := rows.Scan(&p.PatternID, &typeStr, &p.Description, &p.Confidence, &p.ObservationCount, &p.InvolvedAgents,
			&p.FirstDetectedAt, &p.LastConfirmedAt, &p.AccessCount, &p.Stability); err != nil {
			return nil, wrapf("scan behavioral pattern by id", err)
		}
		p.PatternType = domain.PatternType(typeStr)
		out = append(out, &p)
	}
	return out, rows.Err()
}
