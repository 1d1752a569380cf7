package domain

import "time"

// NodeKind discriminates the polymorphic node union returned in Atlas
// responses and used as the source_kind/target_kind discriminator on
// DERIVED_FROM and SUMMARIZES edges.
type NodeKind string

const (
	NodeKindEvent             NodeKind = "event"
	NodeKindEntity            NodeKind = "entity"
	NodeKindSummary           NodeKind = "summary"
	NodeKindUserProfile       NodeKind = "user_profile"
	NodeKindPreference        NodeKind = "preference"
	NodeKindSkill             NodeKind = "skill"
	NodeKindWorkflow          NodeKind = "workflow"
	NodeKindBehavioralPattern NodeKind = "behavioral_pattern"
)

// EventNode is the Event node as held in the Graph Store: the full Event
// plus derived and scoring fields. merge_event_node is idempotent by
// EventID.
type EventNode struct {
	Event

	Keywords        []string   `json:"keywords,omitempty"`
	Embedding       []float32  `json:"embedding,omitempty"`
	Summary         *string    `json:"summary,omitempty"`
	ImportanceScore int        `json:"importance_score"`
	AccessCount     int        `json:"access_count"`
	LastAccessedAt  *time.Time `json:"last_accessed_at,omitempty"`
}

// EntityNode is the Entity node. EntityID is deterministic from
// (name, type) so repeated extraction merges rather than duplicates.
type EntityNode struct {
	EntityID     string     `json:"entity_id"`
	Name         string     `json:"name"`
	EntityType   EntityType `json:"entity_type"`
	FirstSeen    time.Time  `json:"first_seen"`
	LastSeen     time.Time  `json:"last_seen"`
	MentionCount int        `json:"mention_count"`
	Embedding    []float32  `json:"embedding,omitempty"`
	Tombstoned   bool       `json:"tombstoned"`
}

// SummaryNode is the Summary node.
type SummaryNode struct {
	SummaryID      string       `json:"summary_id"`
	Scope          SummaryScope `json:"scope"`
	ScopeID        string       `json:"scope_id"`
	Content        string       `json:"content"`
	CreatedAt      time.Time    `json:"created_at"`
	EventCount     int          `json:"event_count"`
	TimeRangeStart time.Time    `json:"time_range_start"`
	TimeRangeEnd   time.Time    `json:"time_range_end"`
}

// UserProfileNode is the UserProfile node.
type UserProfileNode struct {
	ProfileID          string    `json:"profile_id"`
	UserID             string    `json:"user_id"`
	DisplayName        *string   `json:"display_name,omitempty"`
	Timezone           *string   `json:"timezone,omitempty"`
	Language           *string   `json:"language,omitempty"`
	CommunicationStyle *string   `json:"communication_style,omitempty"`
	TechnicalLevel     *string   `json:"technical_level,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// PreferenceNode is the Preference node. History is append-only:
// SupersededBy is set on the old node rather than mutating Polarity or
// Strength in place.
type PreferenceNode struct {
	PreferenceID     string             `json:"preference_id"`
	Category         PreferenceCategory `json:"category"`
	Key              string             `json:"key"`
	Polarity         Polarity           `json:"polarity"`
	Strength         float64            `json:"strength"`
	Confidence       float64            `json:"confidence"`
	Source           PreferenceSource   `json:"source"`
	Context          *string            `json:"context,omitempty"`
	Scope            PreferenceScope    `json:"scope"`
	ScopeID          *string            `json:"scope_id,omitempty"`
	ObservationCount int                `json:"observation_count"`
	FirstObservedAt  time.Time          `json:"first_observed_at"`
	LastConfirmedAt  time.Time          `json:"last_confirmed_at"`
	AccessCount      int                `json:"access_count"`
	Stability        float64            `json:"stability"`
	SupersededBy     *string            `json:"superseded_by,omitempty"`
}

// SkillNode is the Skill node.
type SkillNode struct {
	SkillID     string  `json:"skill_id"`
	Name        string  `json:"name"`
	Category    *string `json:"category,omitempty"`
	Description *string `json:"description,omitempty"`
}

// WorkflowNode is the Workflow node.
type WorkflowNode struct {
	WorkflowID       string                   `json:"workflow_id"`
	Name             string                   `json:"name"`
	AbstractionLevel WorkflowAbstractionLevel `json:"abstraction_level"`
	SuccessRate      float64                  `json:"success_rate"`
	ExecutionCount   int                      `json:"execution_count"`
	AvgDurationMs    int64                    `json:"avg_duration_ms"`
	SourceSessionIDs []string                 `json:"source_session_ids"`
	Embedding        []float32                `json:"embedding,omitempty"`
}

// BehavioralPatternNode is the BehavioralPattern node.
type BehavioralPatternNode struct {
	PatternID        string      `json:"pattern_id"`
	PatternType      PatternType `json:"pattern_type"`
	Description      string      `json:"description"`
	Confidence       float64     `json:"confidence"`
	ObservationCount int         `json:"observation_count"`
	InvolvedAgents   []string    `json:"involved_agents"`
	FirstDetectedAt  time.Time   `json:"first_detected_at"`
	LastConfirmedAt  time.Time   `json:"last_confirmed_at"`
	AccessCount      int         `json:"access_count"`
	Stability        float64     `json:"stability"`
}
