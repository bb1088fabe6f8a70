package triage

import (
	"strings"
	"testing"
)

func TestClassifySeverity(t *testing.T) {
	tests := []struct {
		name     string
		severity string
		want     Severity
	}{
		{"severe keyword", "severe pain", SeverityHigh},
		{"worst keyword", "worst headache of my life", SeverityHigh},
		{"numeric nine out of ten", "9/10", SeverityHigh},
		{"unbearable", "unbearable", SeverityHigh},
		{"moderate keyword", "moderate discomfort", SeverityModerate},
		{"numeric seven", "7/10 pain", SeverityModerate},
		{"significant", "significant fatigue", SeverityModerate},
		{"mild default", "mild", SeverityMild},
		{"empty defaults to mild", "", SeverityMild},
		{"unrecognized defaults to mild", "a bit off", SeverityMild},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifySeverity(tt.severity); got != tt.want {
				t.Errorf("classifySeverity(%q) = %s, want %s", tt.severity, got, tt.want)
			}
		})
	}
}

func TestClassifyDuration(t *testing.T) {
	tests := []struct {
		name     string
		duration string
		want     DurationRisk
	}{
		{"one week", "1 week", DurationProlonged},
		{"two weeks", "2 weeks", DurationProlonged},
		{"a month", "about a month", DurationProlonged},
		{"chronic", "chronic, on and off", DurationProlonged},
		{"several days", "4 days", DurationModerate},
		{"three day spell", "3 day", DurationModerate},
		{"since yesterday", "since yesterday", DurationAcute},
		{"hours", "a few hours", DurationAcute},
		{"empty is acute", "", DurationAcute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyDuration(tt.duration); got != tt.want {
				t.Errorf("classifyDuration(%q) = %s, want %s", tt.duration, got, tt.want)
			}
		})
	}
}

func hasCondition(a Assessment, name string) bool {
	for _, c := range a.Conditions {
		if strings.Contains(c.Name, name) {
			return true
		}
	}
	return false
}

func TestAssessDengueTriad(t *testing.T) {
	a := Assess(Input{
		Symptoms:       "fever, headache behind eyes, body aches, nausea",
		Duration:       "2 days",
		Severity:       "moderate",
		AdditionalInfo: "colleague had viral fever",
	})

	if !hasCondition(a, "Dengue Fever") {
		t.Error("expected dengue fever in conditions")
	}
	if !hasCondition(a, "Viral Fever") {
		t.Error("expected viral fever in conditions")
	}
	if a.Severity != SeverityModerate {
		t.Errorf("Severity = %s, want MODERATE", a.Severity)
	}
	if a.HasEmergency() {
		t.Error("dengue triad without red flags should not be an emergency")
	}
}

func TestAssessMeningitisRedFlag(t *testing.T) {
	a := Assess(Input{
		Symptoms: "sudden severe headache, fever, nausea",
		Duration: "today",
		Severity: "worst headache ever, 10/10",
	})

	if !hasCondition(a, "Meningitis") {
		t.Fatal("expected meningitis red flag")
	}
	if !a.HasEmergency() {
		t.Error("meningitis pattern must be flagged as emergency")
	}
	for _, c := range a.Conditions {
		if c.Emergency && c.Risk != RiskVeryHigh {
			t.Errorf("emergency condition risk = %s, want VERY HIGH", c.Risk)
		}
	}
}

func TestAssessMigraine(t *testing.T) {
	a := Assess(Input{
		Symptoms: "headache, nausea, sensitivity to light",
		Duration: "6 hours",
		Severity: "moderate",
	})
	if !hasCondition(a, "Migraine") {
		t.Error("expected migraine for headache + nausea + light sensitivity")
	}
}

func TestAssessCoughPatterns(t *testing.T) {
	withFever := Assess(Input{Symptoms: "cough and fever", Duration: "3 day", Severity: "moderate"})
	if !hasCondition(withFever, "Lower Respiratory") {
		t.Error("cough + fever should suggest a lower respiratory infection")
	}

	alone := Assess(Input{Symptoms: "dry cough", Duration: "1 week", Severity: "mild"})
	if !hasCondition(alone, "Post-Viral Cough") {
		t.Error("isolated cough should suggest a post-viral cough")
	}
	if alone.DurationRisk != DurationProlonged {
		t.Errorf("DurationRisk = %s, want PROLONGED", alone.DurationRisk)
	}
}

func TestAssessFoodPoisoning(t *testing.T) {
	a := Assess(Input{
		Symptoms:       "nausea, vomiting, diarrhea",
		Duration:       "1 day",
		Severity:       "moderate",
		AdditionalInfo: "ate seafood last night",
	})
	if !hasCondition(a, "Food Poisoning") {
		t.Error("GI symptoms after seafood should suggest food poisoning")
	}
}

func TestAssessFallback(t *testing.T) {
	a := Assess(Input{Symptoms: "general malaise", Duration: "today", Severity: "mild"})
	if len(a.Conditions) != 1 {
		t.Fatalf("conditions = %d, want exactly the fallback", len(a.Conditions))
	}
	if !hasCondition(a, "Undifferentiated Viral Illness") {
		t.Error("expected undifferentiated viral illness fallback")
	}
}

func TestAssessCapsConditions(t *testing.T) {
	// A kitchen-sink complaint matches many rules at once.
	a := Assess(Input{
		Symptoms:       "fever, headache behind eyes, eye pain, nausea, vomit, body aches, muscle pain, stomach pain, diarrhea, food",
		Duration:       "4 days",
		Severity:       "severe",
		AdditionalInfo: "seafood dinner",
	})
	if len(a.Conditions) > maxConditions {
		t.Errorf("conditions = %d, want at most %d", len(a.Conditions), maxConditions)
	}
}

func TestDoctorVisitDays(t *testing.T) {
	acute := Assess(Input{Symptoms: "fatigue", Duration: "today", Severity: "mild"})
	if got := acute.DoctorVisitDays(); got != 3 {
		t.Errorf("acute DoctorVisitDays = %d, want 3", got)
	}
	prolonged := Assess(Input{Symptoms: "fatigue", Duration: "2 weeks", Severity: "mild"})
	if got := prolonged.DoctorVisitDays(); got != 1 {
		t.Errorf("prolonged DoctorVisitDays = %d, want 1", got)
	}
}

func TestReportStructure(t *testing.T) {
	a := Assess(Input{
		Symptoms:       "fever, body aches",
		Duration:       "2 days",
		Severity:       "moderate",
		AdditionalInfo: "no cough",
	})
	report := a.Report()

	for _, want := range []string{
		"## Symptom Assessment",
		"Most Likely Conditions",
		"**1. ",
		"Recommended tests",
		"General Recommendations",
		"Seek emergency care if",
		"Important disclaimer",
		"no cough",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q", want)
		}
	}
}
