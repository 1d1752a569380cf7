package llm

import "testing"

func TestEvidenceSupported_ExactSubstring(t *testing.T) {
	if !evidenceSupported("the user said they prefer dark mode", "prefer dark mode", 0.8) {
		t.Fatal("expected exact substring to pass")
	}
}

func TestEvidenceSupported_RejectsUnrelatedQuote(t *testing.T) {
	if evidenceSupported("the user said they prefer dark mode", "loves pizza on tuesdays", 0.8) {
		t.Fatal("expected unrelated quote to fail")
	}
}

func TestEvidenceSupported_EmptyQuoteRejected(t *testing.T) {
	if evidenceSupported("some transcript", "", 0.8) {
		t.Fatal("expected empty quote to fail")
	}
}
