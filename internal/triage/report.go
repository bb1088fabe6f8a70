package triage

import (
	"fmt"
	"strings"
)

// Report renders the assessment as markdown for the assistant to present.
// The structure is fixed so downstream rendering and tests stay predictable.
func (a Assessment) Report() string {
	var b strings.Builder

	b.WriteString("## Symptom Assessment\n\n")
	b.WriteString("**Summary:**\n")
	fmt.Fprintf(&b, "- Primary: %s\n", a.Input.Symptoms)
	fmt.Fprintf(&b, "- Duration: %s (%s)\n", a.Input.Duration, a.DurationRisk)
	fmt.Fprintf(&b, "- Severity: %s (%s risk)\n", a.Input.Severity, a.Severity)
	if a.Input.AdditionalInfo != "" {
		fmt.Fprintf(&b, "- Additional: %s\n", a.Input.AdditionalInfo)
	}

	b.WriteString("\n---\n\n### Most Likely Conditions\n")
	for i, c := range a.Conditions {
		fmt.Fprintf(&b, "\n**%d. %s**\n", i+1, c.Name)
		fmt.Fprintf(&b, "Probability: %s | Risk level: %s\n\n", c.Probability, c.Risk)
		fmt.Fprintf(&b, "**Why this diagnosis:** %s\n\n", c.Reasoning)
		fmt.Fprintf(&b, "**Recommended tests:** %s\n\n", c.Tests)
		b.WriteString("**What you should do:**\n")
		for _, action := range c.Actions {
			fmt.Fprintf(&b, "- %s\n", action)
		}
	}

	b.WriteString("\n---\n\n### General Recommendations\n\n")
	b.WriteString("**Immediate steps:**\n")
	b.WriteString("- Monitor temperature every 4-6 hours\n")
	b.WriteString("- Maintain fluid intake (2-3 liters/day minimum)\n")
	b.WriteString("- Get adequate rest (8+ hours sleep)\n")
	b.WriteString("- Keep a symptom diary for the doctor's assessment\n\n")

	b.WriteString("**When to see a doctor:**\n")
	fmt.Fprintf(&b, "- Symptoms persist beyond %d day(s) without improvement\n", a.DoctorVisitDays())
	b.WriteString("- Fever above 103°F (39.4°C) or persistent fever\n")
	b.WriteString("- New concerning symptoms develop\n")
	b.WriteString("- Unable to keep fluids down\n")
	b.WriteString("- Severe weakness or confusion\n\n")

	b.WriteString("**Seek emergency care if:**\n")
	b.WriteString("- Difficulty breathing or chest pain\n")
	b.WriteString("- Severe headache with neck stiffness\n")
	b.WriteString("- Persistent vomiting leading to dehydration\n")
	b.WriteString("- Altered mental status or confusion\n")
	b.WriteString("- Signs of internal bleeding\n")
	b.WriteString("- Fever with a rash that does not blanch\n\n")

	b.WriteString("---\n\n")
	b.WriteString("**Important disclaimer:** This is an AI-assisted assessment based on symptom patterns. ")
	b.WriteString("It is NOT a definitive diagnosis. Only a healthcare professional can diagnose after proper ")
	b.WriteString("examination and tests. If in doubt, always consult a doctor.\n")

	return b.String()
}
