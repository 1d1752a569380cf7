package extraction

import (
	"fmt"

	"github.com/ctxatlas/atlas/pkg/domain"
	"github.com/ctxatlas/atlas/pkg/llm"
)

// extractionSource is the PreferenceSource/KnowledgeSource every fact
// the Extraction consumer derives from free-form conversation is tagged
// with: it was inferred by the LLM from something the user said, which
// sits between an explicit structured event (Projection consumer,
// source "explicit") and a purely statistical inference (Consolidation
// consumer). The schema's mandatory evidence_quote means these are
// always deliberate statements rather than incidental signals, so
// "implicit_intentional" rather than "implicit_unintentional" applies
// uniformly.
const extractionSource = domain.SourceImplicitIntentional

// validPreference is L2 Ontology validation for one extracted
// preference: enum validity and cross-field consistency. Confidence
// ceiling/floor alignment (L4) is applied separately once the initial
// confidence has been computed, since the ceiling clamp itself is part
// of assigning that confidence, not just checking it.
func validPreference(p llm.ExtractedPreference) error {
	if !domain.PreferenceCategory(p.Category).Valid() {
		return fmt.Errorf("unknown preference category %q", p.Category)
	}
	if !domain.Polarity(p.Polarity).Valid() {
		return fmt.Errorf("unknown polarity %q", p.Polarity)
	}
	if !domain.PreferenceScope(p.Scope).Valid() {
		return fmt.Errorf("unknown preference scope %q", p.Scope)
	}
	if p.Key == "" {
		return fmt.Errorf("preference key is required")
	}
	return nil
}

func validEntity(e llm.ExtractedEntity) error {
	if !domain.EntityType(e.EntityType).Valid() {
		return fmt.Errorf("unknown entity_type %q", e.EntityType)
	}
	if e.Name == "" {
		return fmt.Errorf("entity name is required")
	}
	return nil
}

var validProficiencies = map[string]domain.SkillProficiency{
	"novice":       domain.ProficiencyNovice,
	"intermediate": domain.ProficiencyIntermediate,
	"advanced":     domain.ProficiencyAdvanced,
	"expert":       domain.ProficiencyExpert,
}

func validSkill(s llm.ExtractedSkill) (domain.SkillProficiency, error) {
	prof, ok := validProficiencies[s.Proficiency]
	if !ok {
		return "", fmt.Errorf("unknown skill proficiency %q", s.Proficiency)
	}
	if s.Name == "" {
		return "", fmt.Errorf("skill name is required")
	}
	return prof, nil
}

// confidenceGate is L4: the assigned initial confidence is
// min(llm_self_reported, source_ceiling), and an item whose resulting
// confidence is below the source's floor is rejected outright.
func confidenceGate(llmSelfReported float64, source domain.PreferenceSource) (confidence float64, ok bool) {
	confidence = llmSelfReported
	if ceiling := source.ConfidenceCeiling(); confidence > ceiling {
		confidence = ceiling
	}
	return confidence, confidence >= source.ConfidenceFloor()
}
