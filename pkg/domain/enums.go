package domain

// EventStatus is the lifecycle status of a long-running Event.
type EventStatus string

const (
	EventStatusPending   EventStatus = "pending"
	EventStatusRunning   EventStatus = "running"
	EventStatusCompleted EventStatus = "completed"
	EventStatusFailed    EventStatus = "failed"
	EventStatusTimeout   EventStatus = "timeout"
)

func (s EventStatus) Valid() bool {
	switch s {
	case EventStatusPending, EventStatusRunning, EventStatusCompleted, EventStatusFailed, EventStatusTimeout:
		return true
	}
	return false
}

// EntityType classifies an Entity node.
type EntityType string

const (
	EntityTypeAgent    EntityType = "agent"
	EntityTypeUser     EntityType = "user"
	EntityTypeTool     EntityType = "tool"
	EntityTypeService  EntityType = "service"
	EntityTypeResource EntityType = "resource"
	EntityTypeConcept  EntityType = "concept"
)

func (t EntityType) Valid() bool {
	switch t {
	case EntityTypeAgent, EntityTypeUser, EntityTypeTool, EntityTypeService, EntityTypeResource, EntityTypeConcept:
		return true
	}
	return false
}

// SummaryScope is the aggregation level of a Summary node.
type SummaryScope string

const (
	SummaryScopeEpisode SummaryScope = "episode"
	SummaryScopeSession SummaryScope = "session"
	SummaryScopeAgent   SummaryScope = "agent"
)

func (s SummaryScope) Valid() bool {
	switch s {
	case SummaryScopeEpisode, SummaryScopeSession, SummaryScopeAgent:
		return true
	}
	return false
}

// PreferenceCategory is the facet a Preference node belongs to.
type PreferenceCategory string

const (
	PreferenceCategoryTool          PreferenceCategory = "tool"
	PreferenceCategoryWorkflow      PreferenceCategory = "workflow"
	PreferenceCategoryCommunication PreferenceCategory = "communication"
	PreferenceCategoryDomain        PreferenceCategory = "domain"
	PreferenceCategoryEnvironment   PreferenceCategory = "environment"
	PreferenceCategoryStyle         PreferenceCategory = "style"
)

func (c PreferenceCategory) Valid() bool {
	switch c {
	case PreferenceCategoryTool, PreferenceCategoryWorkflow, PreferenceCategoryCommunication,
		PreferenceCategoryDomain, PreferenceCategoryEnvironment, PreferenceCategoryStyle:
		return true
	}
	return false
}

// Polarity is the valence of a Preference.
type Polarity string

const (
	PolarityPositive Polarity = "positive"
	PolarityNegative Polarity = "negative"
	PolarityNeutral  Polarity = "neutral"
)

func (p Polarity) Valid() bool {
	switch p {
	case PolarityPositive, PolarityNegative, PolarityNeutral:
		return true
	}
	return false
}

// PreferenceSource is how a Preference was observed.
type PreferenceSource string

const (
	SourceExplicit               PreferenceSource = "explicit"
	SourceImplicitIntentional    PreferenceSource = "implicit_intentional"
	SourceImplicitUnintentional  PreferenceSource = "implicit_unintentional"
	SourceInferred               PreferenceSource = "inferred"
)

func (s PreferenceSource) Valid() bool {
	switch s {
	case SourceExplicit, SourceImplicitIntentional, SourceImplicitUnintentional, SourceInferred:
		return true
	}
	return false
}

// ConfidenceCeiling returns the maximum allowed initial confidence for a
// preference observed via this source, and the minimum floor below which
// the extracted item is rejected.
func (s PreferenceSource) ConfidenceCeiling() float64 {
	switch s {
	case SourceExplicit:
		return 0.95
	case SourceImplicitIntentional:
		return 0.75
	case SourceImplicitUnintentional:
		return 0.6
	case SourceInferred:
		return 0.5
	}
	return 0
}

func (s PreferenceSource) ConfidenceFloor() float64 {
	switch s {
	case SourceExplicit:
		return 0.7
	case SourceImplicitIntentional:
		return 0.4
	case SourceImplicitUnintentional:
		return 0.3
	case SourceInferred:
		return 0.15
	}
	return 0
}

// PreferenceScope bounds where a Preference applies.
type PreferenceScope string

const (
	ScopeGlobal  PreferenceScope = "global"
	ScopeAgent   PreferenceScope = "agent"
	ScopeSession PreferenceScope = "session"
)

func (s PreferenceScope) Valid() bool {
	switch s {
	case ScopeGlobal, ScopeAgent, ScopeSession:
		return true
	}
	return false
}

// WorkflowAbstractionLevel is how general a Workflow node is.
type WorkflowAbstractionLevel string

const (
	AbstractionCase     WorkflowAbstractionLevel = "case"
	AbstractionStrategy WorkflowAbstractionLevel = "strategy"
	AbstractionSkill    WorkflowAbstractionLevel = "skill"
)

func (a WorkflowAbstractionLevel) Valid() bool {
	switch a {
	case AbstractionCase, AbstractionStrategy, AbstractionSkill:
		return true
	}
	return false
}

// PatternType classifies a BehavioralPattern node.
type PatternType string

const (
	PatternDelegation     PatternType = "delegation"
	PatternEscalation     PatternType = "escalation"
	PatternRoutine        PatternType = "routine"
	PatternAvoidance      PatternType = "avoidance"
	PatternExploration    PatternType = "exploration"
	PatternSpecialization PatternType = "specialization"
)

func (p PatternType) Valid() bool {
	switch p {
	case PatternDelegation, PatternEscalation, PatternRoutine, PatternAvoidance, PatternExploration, PatternSpecialization:
		return true
	}
	return false
}

// EdgeType enumerates the 16 typed relations.
type EdgeType string

const (
	EdgeFollows         EdgeType = "FOLLOWS"
	EdgeCausedBy        EdgeType = "CAUSED_BY"
	EdgeSimilarTo       EdgeType = "SIMILAR_TO"
	EdgeReferences      EdgeType = "REFERENCES"
	EdgeSummarizes      EdgeType = "SUMMARIZES"
	EdgeSameAs          EdgeType = "SAME_AS"
	EdgeRelatedTo       EdgeType = "RELATED_TO"
	EdgeHasProfile      EdgeType = "HAS_PROFILE"
	EdgeHasPreference   EdgeType = "HAS_PREFERENCE"
	EdgeHasSkill        EdgeType = "HAS_SKILL"
	EdgeDerivedFrom      EdgeType = "DERIVED_FROM"
	EdgeExhibitsPattern EdgeType = "EXHIBITS_PATTERN"
	EdgeInterestedIn    EdgeType = "INTERESTED_IN"
	EdgeAbout           EdgeType = "ABOUT"
	EdgeAbstractedFrom  EdgeType = "ABSTRACTED_FROM"
	EdgeParentSkill     EdgeType = "PARENT_SKILL"
)

// AllEdgeTypes lists every edge type in the graph, used by the scoring
// package to materialize a complete per-intent weight row.
var AllEdgeTypes = []EdgeType{
	EdgeFollows, EdgeCausedBy, EdgeSimilarTo, EdgeReferences, EdgeSummarizes,
	EdgeSameAs, EdgeRelatedTo, EdgeHasProfile, EdgeHasPreference, EdgeHasSkill,
	EdgeDerivedFrom, EdgeExhibitsPattern, EdgeInterestedIn, EdgeAbout,
	EdgeAbstractedFrom, EdgeParentSkill,
}

// CausedByMechanism is how a CAUSED_BY edge was established.
type CausedByMechanism string

const (
	MechanismDirect   CausedByMechanism = "direct"
	MechanismInferred CausedByMechanism = "inferred"
)

// ReferenceRole is the grammatical role an Event plays toward an Entity.
type ReferenceRole string

const (
	RoleAgent       ReferenceRole = "agent"
	RoleInstrument  ReferenceRole = "instrument"
	RoleObject      ReferenceRole = "object"
	RoleResult      ReferenceRole = "result"
	RoleParticipant ReferenceRole = "participant"
)

func (r ReferenceRole) Valid() bool {
	switch r {
	case RoleAgent, RoleInstrument, RoleObject, RoleResult, RoleParticipant:
		return true
	}
	return false
}

// DerivationMethod is how a derived node was produced.
type DerivationMethod string

const (
	DerivationStated                DerivationMethod = "stated"
	DerivationRuleExtraction        DerivationMethod = "rule_extraction"
	DerivationLLMExtraction         DerivationMethod = "llm_extraction"
	DerivationFrequencyAnalysis     DerivationMethod = "frequency_analysis"
	DerivationStatisticalInference  DerivationMethod = "statistical_inference"
	DerivationPatternMatch          DerivationMethod = "pattern_match"
	DerivationGraphPattern          DerivationMethod = "graph_pattern"
	DerivationHierarchyPropagation  DerivationMethod = "hierarchy_propagation"
)

func (d DerivationMethod) Valid() bool {
	switch d {
	case DerivationStated, DerivationRuleExtraction, DerivationLLMExtraction, DerivationFrequencyAnalysis,
		DerivationStatisticalInference, DerivationPatternMatch, DerivationGraphPattern, DerivationHierarchyPropagation:
		return true
	}
	return false
}

// SkillProficiency is a HAS_SKILL edge's assessed level.
type SkillProficiency string

const (
	ProficiencyNovice       SkillProficiency = "novice"
	ProficiencyIntermediate SkillProficiency = "intermediate"
	ProficiencyAdvanced     SkillProficiency = "advanced"
	ProficiencyExpert       SkillProficiency = "expert"
)

// KnowledgeSource distinguishes stated vs. inferred for HAS_SKILL and
// INTERESTED_IN edges (narrower than PreferenceSource's four-way split).
type KnowledgeSource string

const (
	KnowledgeStated   KnowledgeSource = "stated"
	KnowledgeInferred KnowledgeSource = "inferred"
)

// Intent is the caller's information need, used to bias traversal.
type Intent string

const (
	IntentWhy         Intent = "why"
	IntentWhen        Intent = "when"
	IntentWhat        Intent = "what"
	IntentRelated     Intent = "related"
	IntentGeneral     Intent = "general"
	IntentWhoIs       Intent = "who_is"
	IntentHowDoes     Intent = "how_does"
	IntentPersonalize Intent = "personalize"
)

// AllIntents lists the 8 system-owned intents in a stable order.
var AllIntents = []Intent{
	IntentWhy, IntentWhen, IntentWhat, IntentRelated,
	IntentGeneral, IntentWhoIs, IntentHowDoes, IntentPersonalize,
}
