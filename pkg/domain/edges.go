package domain

import "time"

// FollowsEdge is FOLLOWS: Event -> Event.
type FollowsEdge struct {
	FromEventID string
	ToEventID   string
	SessionID   string
	DeltaMs     int64
}

// CausedByEdge is CAUSED_BY: Event -> Event.
type CausedByEdge struct {
	FromEventID string
	ToEventID   string
	Mechanism   CausedByMechanism
}

// SimilarToEdge is SIMILAR_TO: Event -> Event.
type SimilarToEdge struct {
	FromEventID string
	ToEventID   string
	Score       float64
}

// ReferencesEdge is REFERENCES: Event -> Entity.
type ReferencesEdge struct {
	EventID  string
	EntityID string
	Role     ReferenceRole
}

// SummarizesEdge is SUMMARIZES: Summary -> Event|Summary.
type SummarizesEdge struct {
	SummaryID  string
	TargetID   string
	TargetKind NodeKind // NodeKindEvent or NodeKindSummary
}

// SameAsEdge is SAME_AS: Entity -> Entity.
type SameAsEdge struct {
	FromEntityID  string
	ToEntityID    string
	Confidence    float64
	Justification *string
}

// RelatedToEdge is RELATED_TO: Entity -> Entity.
type RelatedToEdge struct {
	FromEntityID  string
	ToEntityID    string
	Confidence    float64
	Justification *string
}

// HasProfileEdge is HAS_PROFILE: Entity(user) -> UserProfile.
type HasProfileEdge struct {
	UserEntityID string
	ProfileID    string
}

// HasPreferenceEdge is HAS_PREFERENCE: Entity(user) -> Preference.
type HasPreferenceEdge struct {
	UserEntityID string
	PreferenceID string
}

// HasSkillEdge is HAS_SKILL: Entity(user) -> Skill.
type HasSkillEdge struct {
	UserEntityID     string
	SkillID          string
	Proficiency      SkillProficiency
	Confidence       float64
	LastAssessedAt   time.Time
	AssessmentCount  int
	Source           KnowledgeSource
}

// DerivedFromEdge is DERIVED_FROM: the provenance backbone linking a
// derived node to the Event(s) it was extracted from.
type DerivedFromEdge struct {
	SourceNodeID     string
	SourceKind       NodeKind // preference, skill, workflow, or behavioral_pattern
	EventID          string
	DerivationMethod DerivationMethod
	DerivedAt        time.Time
	ModelID          *string
	PromptVersion    *string
	EvidenceQuote    *string
	SourceTurnIndex  *int
}

// ExhibitsPatternEdge is EXHIBITS_PATTERN: Entity(user) -> BehavioralPattern.
type ExhibitsPatternEdge struct {
	UserEntityID string
	PatternID    string
}

// InterestedInEdge is INTERESTED_IN: Entity(user) -> Entity(concept).
type InterestedInEdge struct {
	UserEntityID    string
	ConceptEntityID string
	Weight          float64
	Source          KnowledgeSource
	LastUpdated     time.Time
}

// AboutEdge is ABOUT: Preference -> Entity.
type AboutEdge struct {
	PreferenceID string
	EntityID     string
}

// AbstractedFromEdge is ABSTRACTED_FROM: Workflow -> Workflow.
type AbstractedFromEdge struct {
	FromWorkflowID string
	ToWorkflowID   string
}

// ParentSkillEdge is PARENT_SKILL: Skill -> Skill.
type ParentSkillEdge struct {
	FromSkillID string
	ToSkillID   string
}
