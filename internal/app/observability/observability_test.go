package observability

import "testing"

func TestNormalizedPath(t *testing.T) {
	got := normalizedPath("/api/v1/questionnaires/0b9e2a44-1c3e-4f5a-8d6b-7c8e9f0a1b2c/questions/42")
	want := "/api/v1/questionnaires/{uid}/questions/{id}"
	if got != want {
		t.Fatalf("normalizedPath mismatch got=%s want=%s", got, want)
	}
}

func TestExtractQuestionnaireUID(t *testing.T) {
	uid := "0B9E2A44-1C3E-4F5A-8D6B-7C8E9F0A1B2C"
	if got := extractQuestionnaireUID("/api/v1/questionnaires/" + uid + "/statistics"); got != "0b9e2a44-1c3e-4f5a-8d6b-7c8e9f0a1b2c" {
		t.Fatalf("expected lowercased uid, got %q", got)
	}
	if got := extractQuestionnaireUID("/api/v1/answer-sets/123"); got != "" {
		t.Fatalf("expected empty for non-questionnaire path, got %q", got)
	}
}
