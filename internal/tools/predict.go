package tools

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"

	"github.com/mediblaze/mediblaze/internal/knowledge"
	"github.com/mediblaze/mediblaze/internal/triage"
)

// PredictName is the Genkit tool name for condition prediction.
const PredictName = "predict_conditions"

// Knowledge-base retrieval bounds for prediction context.
const (
	predictSearchTopK   = 10
	predictContextLimit = 5
)

// Predict assesses reported symptoms against the rule-based triage engine,
// enriched with supporting passages from the knowledge base.
type Predict struct {
	store  KnowledgeSearcher
	logger *slog.Logger
}

// NewPredict creates a Predict tool handler. The knowledge store is optional:
// when nil the assessment runs without reference passages.
func NewPredict(store KnowledgeSearcher, logger *slog.Logger) (*Predict, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Predict{store: store, logger: logger}, nil
}

// Assess runs the triage rules over the reported symptoms.
func (p *Predict) Assess(ctx *ai.ToolContext, input PredictInput) (Result, error) {
	symptoms := strings.TrimSpace(input.Symptoms)
	if symptoms == "" {
		return errorResult(ErrCodeValidation, "symptoms are required"), nil
	}

	p.logger.Info("condition prediction", "symptoms", symptoms, "duration", input.Duration, "severity", input.Severity)

	assessment := triage.Assess(triage.Input{
		Symptoms:       symptoms,
		Duration:       input.Duration,
		Severity:       input.Severity,
		AdditionalInfo: input.AdditionalInfo,
	})

	data := map[string]any{
		"report":        assessment.Report(),
		"severity":      assessment.Severity,
		"duration_risk": assessment.DurationRisk,
		"emergency":     assessment.HasEmergency(),
	}

	// Supporting passages are best-effort; the rule-based assessment stands
	// on its own when retrieval fails.
	if p.store != nil {
		results, err := p.store.Search(ctx, symptoms,
			knowledge.WithTopK(predictSearchTopK),
			knowledge.WithSourceType(knowledge.SourceTypeDocument))
		if err != nil {
			p.logger.Warn("prediction context lookup failed", "error", err)
		} else if reference := contextFromResults(results, predictContextLimit); reference != "" {
			data["reference_context"] = reference
		}
	}

	conditions := make([]map[string]any, 0, len(assessment.Conditions))
	for _, c := range assessment.Conditions {
		conditions = append(conditions, map[string]any{
			"name":        c.Name,
			"probability": c.Probability,
			"risk":        c.Risk,
			"emergency":   c.Emergency,
		})
	}
	data["conditions"] = conditions

	return Result{Status: StatusSuccess, Data: data}, nil
}
