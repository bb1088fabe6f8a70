package tools

import (
	"errors"
	"strings"
	"testing"

	"github.com/mediblaze/mediblaze/internal/knowledge"
)

func TestPredictAssess(t *testing.T) {
	searcher := &mockSearcher{
		results: []knowledge.Result{
			{Document: knowledge.Document{Content: "Dengue is transmitted by Aedes mosquitoes."}},
		},
	}
	p, err := NewPredict(searcher, discardLogger())
	if err != nil {
		t.Fatal(err)
	}

	result, err := p.Assess(toolCtx(), PredictInput{
		Symptoms: "fever, pain behind eyes, nausea",
		Duration: "3 days",
		Severity: "severe",
	})
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if result.Status != StatusSuccess {
		t.Fatalf("status = %s, want success", result.Status)
	}
	report, _ := result.Data["report"].(string)
	if !strings.Contains(report, "Dengue") {
		t.Error("report should name Dengue for the fever + retro-orbital + nausea triad")
	}
	if result.Data["reference_context"] == nil {
		t.Error("expected reference context from the knowledge base")
	}
	if searcher.calls != 1 {
		t.Errorf("knowledge search calls = %d, want 1", searcher.calls)
	}
}

func TestPredictAssessRequiresSymptoms(t *testing.T) {
	p, err := NewPredict(nil, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	result, err := p.Assess(toolCtx(), PredictInput{Symptoms: "  "})
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != StatusError || result.Error.Code != ErrCodeValidation {
		t.Errorf("expected validation error, got %+v", result)
	}
}

func TestPredictAssessSurvivesStoreFailure(t *testing.T) {
	p, err := NewPredict(&mockSearcher{err: errors.New("db down")}, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	result, err := p.Assess(toolCtx(), PredictInput{Symptoms: "cough"})
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != StatusSuccess {
		t.Fatalf("assessment must succeed without reference context, got %s", result.Status)
	}
	if result.Data["reference_context"] != nil {
		t.Error("no reference context expected when retrieval fails")
	}
}

func TestPredictAssessWithoutStore(t *testing.T) {
	p, err := NewPredict(nil, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	result, err := p.Assess(toolCtx(), PredictInput{Symptoms: "headache, nausea, light sensitivity"})
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != StatusSuccess {
		t.Fatalf("status = %s, want success", result.Status)
	}
	report, _ := result.Data["report"].(string)
	if !strings.Contains(report, "Migraine") {
		t.Error("report should name Migraine for headache + nausea + light sensitivity")
	}
}
