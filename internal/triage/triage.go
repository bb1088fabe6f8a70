// Package triage implements a rule-based symptom assessment heuristic.
//
// The assessment is deterministic and self-contained: it classifies reported
// severity and symptom duration, then matches the symptom description against
// a fixed table of condition patterns. The output is a ranked list of
// candidate conditions with reasoning, suggested tests and next steps. It is
// decision support for a conversational assistant, not a diagnosis.
package triage

import "strings"

// Severity is the classified intensity of the reported symptoms.
type Severity string

const (
	SeverityMild     Severity = "MILD"
	SeverityModerate Severity = "MODERATE"
	SeverityHigh     Severity = "HIGH"
)

// DurationRisk classifies how long the symptoms have persisted.
type DurationRisk string

const (
	DurationAcute     DurationRisk = "ACUTE"
	DurationModerate  DurationRisk = "MODERATE"
	DurationProlonged DurationRisk = "PROLONGED"
)

// Risk is the per-condition risk band.
type Risk string

const (
	RiskLow          Risk = "LOW"
	RiskLowModerate  Risk = "LOW-MODERATE"
	RiskModerate     Risk = "MODERATE"
	RiskModerateHigh Risk = "MODERATE-HIGH"
	RiskVeryHigh     Risk = "VERY HIGH"
)

// Input is a free-text description of the patient's complaint, as gathered
// by the assistant during conversation.
type Input struct {
	Symptoms       string
	Duration       string
	Severity       string
	AdditionalInfo string
}

// Condition is one candidate explanation for the reported symptoms.
type Condition struct {
	Name        string
	Probability string
	Risk        Risk
	Reasoning   string
	Tests       string
	Actions     []string
	// Emergency marks red-flag conditions that require immediate care.
	Emergency bool
}

// Assessment is the full result of a triage pass.
type Assessment struct {
	Input        Input
	Severity     Severity
	DurationRisk DurationRisk
	Conditions   []Condition
}

// maxConditions caps the ranked list; more candidates add noise, not signal.
const maxConditions = 5

// Assess runs the full heuristic over the reported symptoms.
func Assess(in Input) Assessment {
	sev := classifySeverity(in.Severity)
	dur := classifyDuration(in.Duration)

	conditions := matchConditions(in, sev)
	if len(conditions) == 0 {
		conditions = []Condition{fallbackCondition()}
	}
	if len(conditions) > maxConditions {
		conditions = conditions[:maxConditions]
	}

	return Assessment{
		Input:        in,
		Severity:     sev,
		DurationRisk: dur,
		Conditions:   conditions,
	}
}

// HasEmergency reports whether any matched condition is a red flag.
func (a Assessment) HasEmergency() bool {
	for _, c := range a.Conditions {
		if c.Emergency {
			return true
		}
	}
	return false
}

// DoctorVisitDays is how many days without improvement should trigger a
// doctor visit. Anything beyond an acute presentation deserves a short leash.
func (a Assessment) DoctorVisitDays() int {
	if a.DurationRisk == DurationAcute {
		return 3
	}
	return 1
}

func classifySeverity(severity string) Severity {
	s := strings.ToLower(severity)
	if containsAny(s, "severe", "worst", "unbearable", "9", "10") {
		return SeverityHigh
	}
	if containsAny(s, "moderate", "significant", "6", "7", "8") {
		return SeverityModerate
	}
	return SeverityMild
}

func classifyDuration(duration string) DurationRisk {
	d := strings.ToLower(duration)
	if containsAny(d, "week", "month", "chronic") {
		return DurationProlonged
	}
	if containsAny(d, "days", "3 day", "4 day", "5 day") {
		return DurationModerate
	}
	return DurationAcute
}

// matchConditions applies the pattern table. Matching is deliberately crude
// substring work over lowercased text: the inputs are conversational phrases,
// not coded terminology.
func matchConditions(in Input, sev Severity) []Condition {
	symptoms := strings.ToLower(in.Symptoms)
	extra := strings.ToLower(in.AdditionalInfo)

	var out []Condition

	hasFever := strings.Contains(symptoms, "fever")

	if hasFever {
		retroOrbital := strings.Contains(symptoms, "headache behind eyes") || strings.Contains(symptoms, "eye pain")
		nausea := strings.Contains(symptoms, "nausea") || strings.Contains(symptoms, "vomit")
		if retroOrbital && nausea {
			out = append(out, Condition{
				Name:        "Dengue Fever",
				Probability: "HIGH (75-85%)",
				Risk:        RiskModerateHigh,
				Reasoning:   "Classic triad: fever, retro-orbital headache and nausea. Contact history supports viral transmission.",
				Tests:       "Complete Blood Count (CBC), Dengue NS1 antigen, IgM/IgG antibodies",
				Actions: []string{
					"See a doctor within 24 hours",
					"Monitor platelet count",
					"Hydrate aggressively",
					"Avoid NSAIDs (aspirin/ibuprofen)",
				},
			})
		}

		if containsAny(symptoms, "body ache", "muscle") {
			out = append(out, Condition{
				Name:        "Viral Fever (Influenza / Common Viral Infection)",
				Probability: "HIGH (70-80%)",
				Risk:        RiskModerate,
				Reasoning:   "Fever with body aches and systemic symptoms. Contact with a sick person increases likelihood.",
				Tests:       "Usually a clinical diagnosis; rapid flu test if severe",
				Actions: []string{
					"Rest and hydration",
					"Paracetamol for fever",
					"Monitor for 48-72 hours",
					"See a doctor if worsening",
				},
			})
		}

		if !strings.Contains(symptoms, "cough") && !strings.Contains(symptoms, "throat") {
			out = append(out, Condition{
				Name:        "Non-Respiratory Viral Infection",
				Probability: "MODERATE (60-70%)",
				Risk:        RiskLowModerate,
				Reasoning:   "Systemic symptoms without respiratory signs suggest a non-respiratory viral infection.",
				Tests:       "CBC, CRP (inflammatory markers)",
				Actions: []string{
					"Symptomatic treatment",
					"Monitor temperature",
					"Seek care if fever lasts more than 3 days",
				},
			})
		}
	}

	if strings.Contains(symptoms, "headache") {
		if strings.Contains(symptoms, "nausea") && containsAny(symptoms, "light", "sensitivity") {
			out = append(out, Condition{
				Name:        "Migraine",
				Probability: "HIGH (70-85%)",
				Risk:        RiskModerate,
				Reasoning:   "Headache with photophobia and nausea is the classic migraine triad.",
				Tests:       "Clinical diagnosis; imaging only if red flags present",
				Actions: []string{
					"Rest in a dark, quiet room",
					"Triptans or NSAIDs if appropriate",
					"Antiemetics for nausea",
					"Avoid known triggers",
				},
			})
		}

		if sev == SeverityHigh && strings.Contains(symptoms, "sudden") {
			out = append(out, Condition{
				Name:        "SERIOUS: Possible Meningitis / Intracranial Issue",
				Probability: "LOW-MODERATE (15-30%)",
				Risk:        RiskVeryHigh,
				Reasoning:   "A severe, sudden headache can indicate a serious intracranial infection or bleed.",
				Tests:       "URGENT: CT scan, lumbar puncture",
				Actions: []string{
					"SEEK EMERGENCY CARE IMMEDIATELY",
					"Do not delay",
					"Check for neck stiffness or confusion",
				},
				Emergency: true,
			})
		}
	}

	if strings.Contains(symptoms, "cough") {
		if hasFever {
			out = append(out, Condition{
				Name:        "Lower Respiratory Tract Infection (Bronchitis/Pneumonia)",
				Probability: "MODERATE-HIGH (60-75%)",
				Risk:        RiskModerateHigh,
				Reasoning:   "Productive cough with fever suggests a bacterial or viral lower respiratory infection.",
				Tests:       "Chest X-ray, sputum culture",
				Actions: []string{
					"See a doctor for evaluation",
					"May need antibiotics",
					"Monitor breathing",
					"Hydration",
				},
			})
		} else {
			out = append(out, Condition{
				Name:        "Post-Viral Cough / Upper Respiratory Infection",
				Probability: "HIGH (70-80%)",
				Risk:        RiskLow,
				Reasoning:   "An isolated cough without fever is often post-viral.",
				Tests:       "Usually none needed",
				Actions: []string{
					"Honey, steam inhalation",
					"OTC cough suppressants",
					"See a doctor if it persists beyond 2 weeks",
				},
			})
		}
	}

	if containsAny(symptoms, "stomach", "nausea", "vomit", "diarrhea", "abdominal") {
		if strings.Contains(extra, "seafood") || strings.Contains(symptoms, "food") {
			out = append(out, Condition{
				Name:        "Food Poisoning / Gastroenteritis",
				Probability: "HIGH (75-85%)",
				Risk:        RiskModerate,
				Reasoning:   "Recent suspect food intake with gastrointestinal symptoms points to food poisoning.",
				Tests:       "Stool culture if severe",
				Actions: []string{
					"Aggressive hydration (ORS)",
					"BRAT diet",
					"Avoid dairy temporarily",
					"See a doctor if bloody stool or high fever",
				},
			})
		}
	}

	return out
}

func fallbackCondition() Condition {
	return Condition{
		Name:        "Undifferentiated Viral Illness",
		Probability: "MODERATE (50-70%)",
		Risk:        RiskModerate,
		Reasoning:   "Symptoms suggest a viral infection but the pattern is unclear. Needs clinical evaluation.",
		Tests:       "CBC, CRP, viral panel if indicated",
		Actions: []string{
			"Symptomatic management",
			"Medical evaluation recommended",
			"Monitor closely",
		},
	}
}

func containsAny(s string, terms ...string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
