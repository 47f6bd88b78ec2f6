package domain

import (
	"strings"
	"testing"
)

func TestParseCategory(t *testing.T) {
	cases := []struct {
		in      string
		want    Category
		wantErr bool
	}{
		{"feature_request", CategoryFeatureRequest, false},
		{"  Service_Availability ", CategoryServiceAvailability, false},
		{"TECHNICAL_SUPPORT", CategoryTechnicalSupport, false},
		{"billing", "", true},
		{"", "", true},
	}
	for _, tc := range cases {
		got, err := ParseCategory(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseCategory(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("ParseCategory(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
		}
	}
}

func TestParseIntent(t *testing.T) {
	if got, err := ParseIntent("Requesting_Feature"); err != nil || got != IntentRequestingFeature {
		t.Fatalf("ParseIntent = %q, %v", got, err)
	}
	if _, err := ParseIntent("venting"); err == nil {
		t.Fatal("expected error for unknown intent")
	}
}

func TestIssueInputText(t *testing.T) {
	in := IssueInput{Title: "  Outage  ", Description: "", Impact: "all users blocked"}
	got := in.Text()
	if got != "Outage\nall users blocked" {
		t.Fatalf("unexpected joined text: %q", got)
	}
	if (IssueInput{}).Text() != "" {
		t.Fatal("empty input must yield empty text")
	}
}

func TestClampConfidence(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{-0.5, 0},
		{0, 0},
		{0.42, 0.42},
		{1, 1},
		{3.7, 1},
	}
	for _, tc := range cases {
		if got := ClampConfidence(tc.in); got != tc.want {
			t.Errorf("ClampConfidence(%f) = %f, want %f", tc.in, got, tc.want)
		}
	}
}

func TestCorrectionValidate(t *testing.T) {
	valid := Correction{
		OriginalText:      "cannot find sql mi in west europe",
		OriginalCategory:  CategoryTechnicalSupport,
		CorrectedCategory: CategoryServiceAvailability,
		CorrectedIntent:   IntentReportingProblem,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid correction, got %v", err)
	}

	noop := valid
	noop.CorrectedCategory = CategoryTechnicalSupport
	if err := noop.Validate(); err == nil {
		t.Fatal("expected no-op correction to be rejected")
	}

	badIntent := valid
	badIntent.CorrectedIntent = Intent("ranting")
	err := badIntent.Validate()
	if err == nil {
		t.Fatal("expected unknown intent to be rejected")
	}
	verr, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if verr.Field != "corrected_intent" {
		t.Fatalf("unexpected field in error: %q", verr.Field)
	}
}

func TestMarshalReasoning(t *testing.T) {
	narrative, err := MarshalReasoning(Narrative("explicit connector ask"))
	if err != nil {
		t.Fatalf("marshal narrative: %v", err)
	}
	if !strings.Contains(string(narrative), `"kind":"narrative"`) {
		t.Fatalf("unexpected narrative encoding: %s", narrative)
	}

	steps, err := MarshalReasoning(StepTrace{"phrase match", "early exit"})
	if err != nil {
		t.Fatalf("marshal steps: %v", err)
	}
	if !strings.Contains(string(steps), `"kind":"steps"`) {
		t.Fatalf("unexpected steps encoding: %s", steps)
	}
}

func TestReasoningSummary(t *testing.T) {
	if Narrative("text").Summary() != "text" {
		t.Fatal("narrative summary must return the text")
	}
	got := StepTrace{"a", "b"}.Summary()
	if got != "a; b" {
		t.Fatalf("unexpected step summary: %q", got)
	}
}
