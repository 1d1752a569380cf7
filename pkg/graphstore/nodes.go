package graphstore

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"

	"github.com/ctxatlas/atlas/pkg/domain"
)

// MergeEntity upserts an Entity node by entity_id: mention_count
// increments and last_seen advances, name and embedding are
// overwritten, matching the "repeated extraction merges rather than
// duplicates" invariant entity identity relies on.
func (s *Store) MergeEntity(ctx context.Context, e *domain.EntityNode) error {
	embedding, err := json.Marshal(e.Embedding)
	if err != nil {
		return wrapf("merge entity: marshal embedding", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO entities (entity_id, name, entity_type, first_seen, last_seen, mention_count, embedding, tombstoned)
		VALUES ($1,$2,$3,$4,$4,1,$5,false)
		ON CONFLICT (entity_id) DO UPDATE SET
			name = EXCLUDED.name,
			last_seen = EXCLUDED.last_seen,
			mention_count = entities.mention_count + 1,
			embedding = EXCLUDED.embedding
		WHERE NOT entities.tombstoned`,
		e.EntityID, e.Name, string(e.EntityType), e.FirstSeen, embedding)
	return wrapf("merge entity", err)
}

// CandidateEntitiesByType returns up to limit non-tombstoned entities of
// entityType with a non-null embedding, used by the Extraction
// consumer's tier-2/tier-3 entity resolution as the top-K neighborhood
// to compare a new mention's embedding against.
func (s *Store) CandidateEntitiesByType(ctx context.Context, entityType domain.EntityType, limit int) ([]*domain.EntityNode, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT entity_id, name, entity_type, first_seen, last_seen, mention_count, embedding
		FROM entities
		WHERE entity_type = $1 AND NOT tombstoned AND embedding IS NOT NULL
		ORDER BY last_seen DESC LIMIT $2`,
		string(entityType), limit)
	if err != nil {
		return nil, wrapf("candidate entities by type", err)
	}
	defer rows.Close()

	var out []*domain.EntityNode
	for rows.Next() {
		var e domain.EntityNode
		var entityTypeStr string
		var embeddingJSON []byte
		if err := rows.Scan(&e.EntityID, &e.Name, &entityTypeStr, &e.FirstSeen, &e.LastSeen, &e.MentionCount, &embeddingJSON); err != nil {
			return nil, wrapf("scan candidate entity", err)
		}
		e.EntityType = domain.EntityType(entityTypeStr)
		if len(embeddingJSON) > 0 {
			if err := json.Unmarshal(embeddingJSON, &e.Embedding); err != nil {
				return nil, wrapf("decode candidate entity embedding", err)
			}
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// SearchEntitiesByName substring-matches an entity name, case-
// insensitively, for the retrieval layer's keyword half of seed
// selection.
func (s *Store) SearchEntitiesByName(ctx context.Context, query string, limit int) ([]*domain.EntityNode, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
		SELECT entity_id, name, entity_type, first_seen, last_seen, mention_count, embedding
		FROM entities
		WHERE name ILIKE '%' || $1 || '%' AND NOT tombstoned
		ORDER BY mention_count DESC LIMIT $2`,
		query, limit)
	if err != nil {
		return nil, wrapf("search entities by name", err)
	}
	defer rows.Close()

	var out []*domain.EntityNode
	for rows.Next() {
		var e domain.EntityNode
		var entityTypeStr string
		var embeddingJSON []byte
		if err := rows.Scan(&e.EntityID, &e.Name, &entityTypeStr, &e.FirstSeen, &e.LastSeen, &e.MentionCount, &embeddingJSON); err != nil {
			return nil, wrapf("scan searched entity", err)
		}
		e.EntityType = domain.EntityType(entityTypeStr)
		if len(embeddingJSON) > 0 {
			if err := json.Unmarshal(embeddingJSON, &e.Embedding); err != nil {
				return nil, wrapf("decode searched entity embedding", err)
			}
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// AllEntitiesWithEmbedding returns the embedded entity inventory for
// embedding-similarity seed matching, most recently mentioned first.
func (s *Store) AllEntitiesWithEmbedding(ctx context.Context, limit int) ([]*domain.EntityNode, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := s.pool.Query(ctx, `
		SELECT entity_id, name, entity_type, first_seen, last_seen, mention_count, embedding
		FROM entities
		WHERE embedding IS NOT NULL AND NOT tombstoned
		ORDER BY last_seen DESC LIMIT $1`,
		limit)
	if err != nil {
		return nil, wrapf("all entities with embedding", err)
	}
	defer rows.Close()

	var out []*domain.EntityNode
	for rows.Next() {
		var e domain.EntityNode
		var entityTypeStr string
		var embeddingJSON []byte
		if err := rows.Scan(&e.EntityID, &e.Name, &entityTypeStr, &e.FirstSeen, &e.LastSeen, &e.MentionCount, &embeddingJSON); err != nil {
			return nil, wrapf("scan embedded entity", err)
		}
		e.EntityType = domain.EntityType(entityTypeStr)
		if err := json.Unmarshal(embeddingJSON, &e.Embedding); err != nil {
			return nil, wrapf("decode embedded entity embedding", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// GetEntityByID looks up a single entity, used by the Enrichment
// consumer to check whether a keyword matches an entity Consumer 1 or
// Consumer 2 already created, without creating one itself.
func (s *Store) GetEntityByID(ctx context.Context, entityID string) (*domain.EntityNode, bool, error) {
	var e domain.EntityNode
	var entityTypeStr string
	var embeddingJSON []byte
	row := s.pool.QueryRow(ctx, `
		SELECT entity_id, name, entity_type, first_seen, last_seen, mention_count, embedding
		FROM entities WHERE entity_id = $1 AND NOT tombstoned`, entityID)
	if err := row.Scan(&e.EntityID, &e.Name, &entityTypeStr, &e.FirstSeen, &e.LastSeen, &e.MentionCount, &embeddingJSON); err != nil {
		if err == pgx.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, wrapf("get entity by id", err)
	}
	e.EntityType = domain.EntityType(entityTypeStr)
	if len(embeddingJSON) > 0 {
		if err := json.Unmarshal(embeddingJSON, &e.Embedding); err != nil {
			return nil, false, wrapf("decode entity embedding", err)
		}
	}
	return &e, true, nil
}

// TombstoneEntity marks an entity erased under GDPR: its name is
// scrubbed but the id survives so edges pointing at it stay resolvable.
func (s *Store) TombstoneEntity(ctx context.Context, entityID string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE entities SET tombstoned = true, name = '[erased]', embedding = NULL WHERE entity_id = $1`,
		entityID)
	return wrapf("tombstone entity", err)
}

// MergeSummary inserts a Summary node. Summaries are append-only:
// re-running a consolidation pass over the same scope creates a new
// summary_id rather than mutating a prior one.
func (s *Store) MergeSummary(ctx context.Context, sm *domain.SummaryNode) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO summaries (summary_id, scope, scope_id, content, created_at, event_count, time_range_start, time_range_end)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (summary_id) DO NOTHING`,
		sm.SummaryID, string(sm.Scope), sm.ScopeID, sm.Content, sm.CreatedAt, sm.EventCount, sm.TimeRangeStart, sm.TimeRangeEnd)
	return wrapf("merge summary", err)
}

// FindSummaryByScope looks up the most recently created Summary node
// for a given scope and scope_id, used to avoid writing a duplicate
// episode summary when active forgetting reaches an event whose
// episode was never covered by a regular summarization pass.
func (s *Store) FindSummaryByScope(ctx context.Context, scope domain.SummaryScope, scopeID string) (*domain.SummaryNode, bool, error) {
	var sm domain.SummaryNode
	err := s.pool.QueryRow(ctx, `
		SELECT summary_id, scope, scope_id, content, created_at, event_count, time_range_start, time_range_end
		FROM summaries WHERE scope = $1 AND scope_id = $2
		ORDER BY created_at DESC LIMIT 1`,
		string(scope), scopeID,
	).Scan(&sm.SummaryID, &sm.Scope, &sm.ScopeID, &sm.Content, &sm.CreatedAt, &sm.EventCount, &sm.TimeRangeStart, &sm.TimeRangeEnd)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, wrapf("find summary by scope", err)
	}
	return &sm, true, nil
}

// MergeUserProfile upserts the single UserProfile node for a user,
// overwriting whichever fields the caller supplies.
func (s *Store) MergeUserProfile(ctx context.Context, p *domain.UserProfileNode) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO user_profiles (profile_id, user_id, display_name, timezone, language, communication_style, technical_level, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$8)
		ON CONFLICT (user_id) DO UPDATE SET
			display_name = coalesce(EXCLUDED.display_name, user_profiles.display_name),
			timezone = coalesce(EXCLUDED.timezone, user_profiles.timezone),
			language = coalesce(EXCLUDED.language, user_profiles.language),
			communication_style = coalesce(EXCLUDED.communication_style, user_profiles.communication_style),
			technical_level = coalesce(EXCLUDED.technical_level, user_profiles.technical_level),
			updated_at = EXCLUDED.updated_at`,
		p.ProfileID, p.UserID, p.DisplayName, p.Timezone, p.Language, p.CommunicationStyle, p.TechnicalLevel, p.CreatedAt)
	return wrapf("merge user profile", err)
}

// InsertPreference inserts a new Preference node. Preferences are
// append-only history: a changed polarity/strength creates a new node
// and the old one's superseded_by is set via SupersedePreference, rather
// than mutating this row.
func (s *Store) InsertPreference(ctx context.Context, p *domain.PreferenceNode) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO preferences (preference_id, category, key, polarity, strength, confidence, source,
			context, scope, scope_id, observation_count, first_observed_at, last_confirmed_at,
			access_count, stability, superseded_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		ON CONFLICT (preference_id) DO NOTHING`,
		p.PreferenceID, string(p.Category), p.Key, string(p.Polarity), p.Strength, p.Confidence, string(p.Source),
		p.Context, string(p.Scope), p.ScopeID, p.ObservationCount, p.FirstObservedAt, p.LastConfirmedAt,
		p.AccessCount, p.Stability, p.SupersededBy)
	return wrapf("insert preference", err)
}

// ReinforcePreference bumps observation_count/last_confirmed_at on a
// repeated observation of the same preference key, instead of inserting
// a duplicate node.
func (s *Store) ReinforcePreference(ctx context.Context, preferenceID string, confirmedAt domain.PreferenceNode) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE preferences SET observation_count = observation_count + 1, last_confirmed_at = $2,
		 confidence = greatest(confidence, $3) WHERE preference_id = $1`,
		preferenceID, confirmedAt.LastConfirmedAt, confirmedAt.Confidence)
	return wrapf("reinforce preference", err)
}

// SupersedePreference marks oldID as replaced by newID.
func (s *Store) SupersedePreference(ctx context.Context, oldID, newID string) error {
	_, err := s.pool.Exec(ctx, `UPDATE preferences SET superseded_by = $2 WHERE preference_id = $1`, oldID, newID)
	return wrapf("supersede preference", err)
}

// FindActivePreference looks up the current (non-superseded) preference
// node for a (key, category, scope, scope_id), used by the Extraction
// consumer to decide reinforce-vs-supersede-vs-insert.
func (s *Store) FindActivePreference(ctx context.Context, key string, category domain.PreferenceCategory, scope domain.PreferenceScope, scopeID *string) (*domain.PreferenceNode, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT preference_id, category, key, polarity, strength, confidence, source, context, scope,
			scope_id, observation_count, first_observed_at, last_confirmed_at, access_count, stability, superseded_by
		FROM preferences
		WHERE key = $1 AND category = $2 AND scope = $3 AND scope_id IS NOT DISTINCT FROM $4 AND superseded_by IS NULL
		ORDER BY last_confirmed_at DESC LIMIT 1`,
		key, string(category), string(scope), scopeID)

	var p domain.PreferenceNode
	var categoryStr, polarityStr, sourceStr, scopeStr string
	if err := row.Scan(&p.PreferenceID, &categoryStr, &p.Key, &polarityStr, &p.Strength, &p.Confidence,
		&sourceStr, &p.Context, &scopeStr, &p.ScopeID, &p.ObservationCount, &p.FirstObservedAt,
		&p.LastConfirmedAt, &p.AccessCount, &p.Stability, &p.SupersededBy); err != nil {
		return nil, wrapf("find active preference", err)
	}
	p.Category = domain.PreferenceCategory(categoryStr)
	p.Polarity = domain.Polarity(polarityStr)
	p.Source = domain.PreferenceSource(sourceStr)
	p.Scope = domain.PreferenceScope(scopeStr)
	return &p, nil
}

// MergeSkill upserts a Skill node by its deterministic name-derived id.
func (s *Store) MergeSkill(ctx context.Context, sk *domain.SkillNode) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO skills (skill_id, name, category, description)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (skill_id) DO UPDATE SET
			category = coalesce(EXCLUDED.category, skills.category),
			description = coalesce(EXCLUDED.description, skills.description)`,
		sk.SkillID, sk.Name, sk.Category, sk.Description)
	return wrapf("merge skill", err)
}

// InsertWorkflow inserts a new Workflow node.
func (s *Store) InsertWorkflow(ctx context.Context, w *domain.WorkflowNode) error {
	embedding, err := json.Marshal(w.Embedding)
	if err != nil {
		return wrapf("insert workflow: marshal embedding", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO workflows (workflow_id, name, abstraction_level, success_rate, execution_count,
			avg_duration_ms, source_session_ids, embedding)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (workflow_id) DO NOTHING`,
		w.WorkflowID, w.Name, string(w.AbstractionLevel), w.SuccessRate, w.ExecutionCount,
		w.AvgDurationMs, w.SourceSessionIDs, embedding)
	return wrapf("insert workflow", err)
}

// ReinforceWorkflow updates a workflow's running success rate and
// execution stats after another occurrence of the same pattern.
func (s *Store) ReinforceWorkflow(ctx context.Context, workflowID string, succeeded bool, durationMs int64, sessionID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE workflows SET
			execution_count = execution_count + 1,
			success_rate = (success_rate * execution_count + CASE WHEN $2 THEN 1 ELSE 0 END) / (execution_count + 1),
			avg_duration_ms = (avg_duration_ms * execution_count + $3) / (execution_count + 1),
			source_session_ids = array_append(source_session_ids, $4)
		WHERE workflow_id = $1`,
		workflowID, succeeded, durationMs, sessionID)
	return wrapf("reinforce workflow", err)
}

// InsertBehavioralPattern inserts a new BehavioralPattern node.
func (s *Store) InsertBehavioralPattern(ctx context.Context, p *domain.BehavioralPatternNode) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO behavioral_patterns (pattern_id, pattern_type, description, confidence, observation_count,
			involved_agents, first_detected_at, last_confirmed_at, access_count, stability)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (pattern_id) DO NOTHING`,
		p.PatternID, string(p.PatternType), p.Description, p.Confidence, p.ObservationCount,
		p.InvolvedAgents, p.FirstDetectedAt, p.LastConfirmedAt, p.AccessCount, p.Stability)
	return wrapf("insert behavioral pattern", err)
}

// ReinforceBehavioralPattern bumps observation_count/confidence/
// last_confirmed_at on a repeated observation of the same pattern.
func (s *Store) ReinforceBehavioralPattern(ctx context.Context, patternID string, confirmedAt domain.BehavioralPatternNode) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE behavioral_patterns SET observation_count = observation_count + 1, last_confirmed_at = $2,
		 confidence = greatest(confidence, $3) WHERE pattern_id = $1`,
		patternID, confirmedAt.LastConfirmedAt, confirmedAt.Confidence)
	return wrapf("reinforce behavioral pattern", err)
}

// RecordPreferenceAccess bumps a Preference's access_count, called
// asynchronously whenever retrieval surfaces it (feeds the
// access-boosted recency half-life in the scoring component).
func (s *Store) RecordPreferenceAccess(ctx context.Context, preferenceID string) error {
	_, err := s.pool.Exec(ctx, `UPDATE preferences SET access_count = access_count + 1 WHERE preference_id = $1`, preferenceID)
	return wrapf("record preference access", err)
}

// RecordBehavioralPatternAccess bumps a BehavioralPattern's access_count
// the same way RecordPreferenceAccess does for preferences.
func (s *Store) RecordBehavioralPatternAccess(ctx context.Context, patternID string) error {
	_, err := s.pool.Exec(ctx, `UPDATE behavioral_patterns SET access_count = access_count + 1 WHERE pattern_id = $1`, patternID)
	return wrapf("record behavioral pattern access", err)
}

// FindBehavioralPattern looks up an existing BehavioralPattern by type
// that already lists agentID among its involved_agents, so the
// consolidation consumer reinforces a repeat observation instead of
// writing a duplicate node every run.
func (s *Store) FindBehavioralPattern(ctx context.Context, patternType domain.PatternType, agentID string) (*domain.BehavioralPatternNode, bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT pattern_id, pattern_type, description, confidence, observation_count,
			involved_agents, first_detected_at, last_confirmed_at, access_count, stability
		FROM behavioral_patterns
		WHERE pattern_type = $1 AND $2 = ANY(involved_agents)
		LIMIT 1`,
		string(patternType), agentID)

	var p domain.BehavioralPatternNode
	var typeStr string
	if err := row.Scan(&p.PatternID, &typeStr, &p.Description, &p.Confidence, &p.ObservationCount,
		&p.InvolvedAgents, &p.FirstDetectedAt, &p.LastConfirmedAt, &p.AccessCount, &p.Stability); err != nil {
		if err == pgx.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, wrapf("find behavioral pattern", err)
	}
	p.PatternType = domain.PatternType(typeStr)
	return &p, true, nil
}

// FindWorkflowByName looks up an existing Workflow by its deterministic
// name key, so recurring-subsequence detection reinforces a known
// workflow instead of inserting a duplicate each run.
func (s *Store) FindWorkflowByName(ctx context.Context, name string) (*domain.WorkflowNode, bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT workflow_id, name, abstraction_level, success_rate, execution_count,
			avg_duration_ms, source_session_ids, embedding
		FROM workflows WHERE name = $1`,
		name)

	var w domain.WorkflowNode
	var levelStr string
	var embeddingJSON []byte
	if err := row.Scan(&w.WorkflowID, &w.Name, &levelStr, &w.SuccessRate, &w.ExecutionCount,
		&w.AvgDurationMs, &w.SourceSessionIDs, &embeddingJSON); err != nil {
		if err == pgx.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, wrapf("find workflow by name", err)
	}
	w.AbstractionLevel = domain.WorkflowAbstractionLevel(levelStr)
	if len(embeddingJSON) > 0 {
		if err := json.Unmarshal(embeddingJSON, &w.Embedding); err != nil {
			return nil, false, wrapf("find workflow by name: decode embedding", err)
		}
	}
	return &w, true, nil
}

// ActivePreferences returns every non-superseded Preference node,
// capped at a safety limit. The consolidation consumer's cross-session
// merge groups these by (category, key, polarity) in-process rather
// than via a GROUP BY, since the merge decision (which node becomes
// canonical, which get superseded) needs the full node, not an
// aggregate.
func (s *Store) ActivePreferences(ctx context.Context) ([]*domain.PreferenceNode, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT preference_id, category, key, polarity, strength, confidence, source, context, scope,
			scope_id, observation_count, first_observed_at, last_confirmed_at, access_count, stability, superseded_by
		FROM preferences WHERE superseded_by IS NULL LIMIT 5000`)
	if err != nil {
		return nil, wrapf("active preferences", err)
	}
	defer rows.Close()

	var out []*domain.PreferenceNode
	for rows.Next() {
		var p domain.PreferenceNode
		var categoryStr, polarityStr, sourceStr, scopeStr string
		if err := rows.Scan(&p.PreferenceID, &categoryStr, &p.Key, &polarityStr, &p.Strength, &p.Confidence,
			&sourceStr, &p.Context, &scopeStr, &p.ScopeID, &p.ObservationCount, &p.FirstObservedAt,
			&p.LastConfirmedAt, &p.AccessCount, &p.Stability, &p.SupersededBy); err != nil {
			return nil, wrapf("scan active preference", err)
		}
		p.Category = domain.PreferenceCategory(categoryStr)
		p.Polarity = domain.Polarity(polarityStr)
		p.Source = domain.PreferenceSource(sourceStr)
		p.Scope = domain.PreferenceScope(scopeStr)
		out = append(out, &p)
	}
	return out, rows.Err()
}
