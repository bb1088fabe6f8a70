package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/mediblaze/mediblaze/internal/session"
)

const (
	// Name is the unique identifier for the medical assistant agent.
	Name = "medical-assistant"

	// PromptName is the Dotprompt file the agent loads. The LLM model is
	// configured in prompts/medical.prompt, not via Config.
	PromptName = "medical"

	// FallbackResponseMessage is returned when the model produces an
	// empty response.
	FallbackResponseMessage = "I apologize, but I couldn't generate a response. Please try rephrasing your question."
)

// Response is the complete result of one agent execution.
type Response struct {
	FinalText    string
	ToolRequests []*ai.ToolRequest
}

// ToolNames lists the distinct tools invoked, in request order.
func (r *Response) ToolNames() []string {
	seen := make(map[string]bool, len(r.ToolRequests))
	names := make([]string, 0, len(r.ToolRequests))
	for _, req := range r.ToolRequests {
		if req == nil || seen[req.Name] {
			continue
		}
		seen[req.Name] = true
		names = append(names, req.Name)
	}
	return names
}

// StreamCallback is called for each chunk of a streaming response. Returning
// an error aborts the stream.
type StreamCallback func(ctx context.Context, chunk *ai.ModelResponseChunk) error

// Config contains the required parameters for the agent.
type Config struct {
	Genkit       *genkit.Genkit
	Retriever    ai.Retriever // knowledge-base retriever for RAG context
	SessionStore *session.Store
	Logger       *slog.Logger
	Tools        []ai.ToolRef

	ModelName string // full model name for auxiliary generation (e.g. titles)

	MaxTurns     int   // maximum agentic loop turns
	RAGTopK      int   // knowledge documents to retrieve per query
	HistoryLimit int32 // messages of history loaded per request

	RetryConfig          RetryConfig
	CircuitBreakerConfig CircuitBreakerConfig
	RateLimiter          *rate.Limiter // nil = default 10 req/s, burst 30

	TokenBudget TokenBudget
}

func (cfg Config) validate() error {
	if cfg.Genkit == nil {
		return errors.New("genkit instance is required")
	}
	if cfg.Retriever == nil {
		return errors.New("retriever is required")
	}
	if cfg.SessionStore == nil {
		return errors.New("session store is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if len(cfg.Tools) == 0 {
		return errors.New("at least one tool is required")
	}
	return nil
}

// Agent is the medical assistant conversation loop. All configuration is
// captured immutably at construction, so a single Agent is safe for
// concurrent requests.
type Agent struct {
	modelName    string
	maxTurns     int
	ragTopK      int
	historyLimit int32

	retryConfig    RetryConfig
	circuitBreaker *CircuitBreaker
	rateLimiter    *rate.Limiter

	tokenBudget TokenBudget

	g         *genkit.Genkit
	retriever ai.Retriever
	sessions  *session.Store
	logger    *slog.Logger
	toolRefs  []ai.ToolRef
	toolNames string // cached comma-separated list for logging
	prompt    ai.Prompt
}

// New creates the agent. The model itself is configured in
// prompts/medical.prompt.
func New(cfg Config) (*Agent, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = 5
	}
	historyLimit := session.NormalizeHistoryLimit(cfg.HistoryLimit)

	retryConfig := cfg.RetryConfig
	if retryConfig.MaxRetries == 0 {
		retryConfig = DefaultRetryConfig()
	}
	cbConfig := cfg.CircuitBreakerConfig
	if cbConfig.FailureThreshold == 0 {
		cbConfig = DefaultCircuitBreakerConfig()
	}
	tokenBudget := cfg.TokenBudget
	if tokenBudget.MaxHistoryTokens == 0 {
		tokenBudget = DefaultTokenBudget()
	}
	rl := cfg.RateLimiter
	if rl == nil {
		rl = rate.NewLimiter(10, 30)
	}

	names := make([]string, len(cfg.Tools))
	for i, t := range cfg.Tools {
		names[i] = t.Name()
	}

	a := &Agent{
		modelName:    cfg.ModelName,
		maxTurns:     maxTurns,
		ragTopK:      cfg.RAGTopK,
		historyLimit: historyLimit,

		retryConfig:    retryConfig,
		circuitBreaker: NewCircuitBreaker(cbConfig),
		rateLimiter:    rl,

		tokenBudget: tokenBudget,

		g:         cfg.Genkit,
		retriever: cfg.Retriever,
		sessions:  cfg.SessionStore,
		logger:    cfg.Logger,
		toolRefs:  cfg.Tools,
		toolNames: strings.Join(names, ", "),
	}

	a.prompt = genkit.LookupPrompt(a.g, PromptName)
	if a.prompt == nil {
		return nil, fmt.Errorf("dotprompt %q not found: ensure the prompts directory is configured", PromptName)
	}

	a.logger.Info("agent initialized",
		"tools", len(a.toolRefs),
		"maxTurns", a.maxTurns)
	return a, nil
}

// Execute runs the agent without streaming.
func (a *Agent) Execute(ctx context.Context, sessionID uuid.UUID, input string) (*Response, error) {
	return a.ExecuteStream(ctx, sessionID, input, nil)
}

// ExecuteStream runs the agent, invoking callback for each chunk when it is
// non-nil. The final response is always returned after generation completes.
func (a *Agent) ExecuteStream(ctx context.Context, sessionID uuid.UUID, input string, callback StreamCallback) (*Response, error) {
	a.logger.Debug("executing agent",
		"session_id", sessionID,
		"streaming", callback != nil)

	history, err := a.sessions.History(ctx, sessionID, a.historyLimit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	resp, err := a.generateResponse(ctx, input, history, callback)
	if err != nil {
		return nil, err
	}

	responseText := resp.Text()

	// Empty text with tool requests is still valid agentic output; only a
	// fully empty response gets the fallback.
	if strings.TrimSpace(responseText) == "" && len(resp.ToolRequests()) == 0 {
		a.logger.Warn("model returned empty response", "session_id", sessionID)
		responseText = FallbackResponseMessage
	}

	// Persistence is best-effort: the user already has the answer.
	newMessages := []*session.Message{
		{Role: session.RoleUser, Content: []*ai.Part{ai.NewTextPart(input)}},
		{Role: session.RoleAssistant, Content: []*ai.Part{ai.NewTextPart(responseText)}},
	}
	if err := a.sessions.AddMessages(ctx, sessionID, newMessages); err != nil {
		a.logger.Error("failed to persist messages", "session_id", sessionID, "error", err)
	}

	return &Response{
		FinalText:    responseText,
		ToolRequests: resp.ToolRequests(),
	}, nil
}

// generateResponse is the shared generation path for streaming and
// non-streaming modes.
func (a *Agent) generateResponse(ctx context.Context, input string, historyMessages []*ai.Message, callback StreamCallback) (*ai.ModelResponse, error) {
	// Deep copy: Genkit's renderMessages mutates msg.Content in place, so
	// concurrent executions sharing message objects would race.
	messages := deepCopyMessages(historyMessages)
	messages = a.truncateHistory(messages, a.tokenBudget.MaxHistoryTokens)
	messages = append(messages, ai.NewUserMessage(ai.NewTextPart(input)))

	ragDocs := a.retrieveContext(ctx, input)

	opts := []ai.PromptExecuteOption{
		ai.WithMessagesFn(func(_ context.Context, _ any) ([]*ai.Message, error) {
			return messages, nil
		}),
		ai.WithTools(a.toolRefs...),
		ai.WithMaxTurns(a.maxTurns),
	}
	if len(ragDocs) > 0 {
		opts = append(opts, ai.WithDocs(ragDocs...))
	}
	if callback != nil {
		opts = append(opts, ai.WithStreaming(callback))
	}

	a.logger.Debug("executing prompt",
		"tools", a.toolNames,
		"maxTurns", a.maxTurns,
		"queryLength", len(input))

	if err := a.circuitBreaker.Allow(); err != nil {
		a.logger.Warn("circuit breaker open, rejecting request",
			"state", a.circuitBreaker.State().String())
		return nil, fmt.Errorf("service unavailable: %w", err)
	}

	resp, err := a.executeWithRetry(ctx, opts)
	if err != nil {
		a.circuitBreaker.Failure()
		return nil, err
	}
	a.circuitBreaker.Success()
	return resp, nil
}

// ragRetrievalTimeout bounds knowledge retrieval so a slow query cannot
// stall the whole chat request.
const ragRetrievalTimeout = 5 * time.Second

// retrieveContext pulls knowledge-base passages for the query. Returns nil
// on error so generation continues without context.
func (a *Agent) retrieveContext(ctx context.Context, query string) []*ai.Document {
	if a.ragTopK <= 0 {
		return nil
	}

	ragCtx, cancel := context.WithTimeout(ctx, ragRetrievalTimeout)
	defer cancel()

	req := &ai.RetrieverRequest{
		Query:   ai.DocumentFromText(query, nil),
		Options: map[string]any{"k": a.ragTopK},
	}
	resp, err := a.retriever.Retrieve(ragCtx, req)
	if err != nil {
		if ctx.Err() != nil || ragCtx.Err() != nil {
			a.logger.Debug("knowledge retrieval timed out, continuing without context",
				"error", err)
		} else {
			a.logger.Warn("knowledge retrieval failed, continuing without context",
				"error", err)
		}
		return nil
	}

	if len(resp.Documents) > 0 {
		a.logger.Debug("retrieved knowledge context",
			"document_count", len(resp.Documents))
	}
	return resp.Documents
}

func deepCopyMessages(msgs []*ai.Message) []*ai.Message {
	if msgs == nil {
		return nil
	}
	copied := make([]*ai.Message, len(msgs))
	for i, msg := range msgs {
		parts := make([]*ai.Part, len(msg.Content))
		for j, part := range msg.Content {
			parts[j] = deepCopyPart(part)
		}
		copied[i] = &ai.Message{
			Role:     msg.Role,
			Content:  parts,
			Metadata: shallowCopyMap(msg.Metadata),
		}
	}
	return copied
}

// deepCopyPart copies a Part. ToolRequest.Input and ToolResponse.Output are
// reference copies; Genkit only mutates the Content slice, not tool data.
func deepCopyPart(p *ai.Part) *ai.Part {
	if p == nil {
		return nil
	}
	cp := &ai.Part{
		Kind:        p.Kind,
		ContentType: p.ContentType,
		Text:        p.Text,
		Custom:      shallowCopyMap(p.Custom),
		Metadata:    shallowCopyMap(p.Metadata),
	}
	if p.ToolRequest != nil {
		cp.ToolRequest = &ai.ToolRequest{
			Input: p.ToolRequest.Input,
			Name:  p.ToolRequest.Name,
			Ref:   p.ToolRequest.Ref,
		}
	}
	if p.ToolResponse != nil {
		cp.ToolResponse = &ai.ToolResponse{
			Name:   p.ToolResponse.Name,
			Output: p.ToolResponse.Output,
			Ref:    p.ToolResponse.Ref,
		}
	}
	if p.Resource != nil {
		cp.Resource = &ai.ResourcePart{Uri: p.Resource.Uri}
	}
	return cp
}

func shallowCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cp := make(map[string]any, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
