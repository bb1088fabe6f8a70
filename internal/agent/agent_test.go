package agent

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
)

// fakeRetriever serves canned documents and records the request options.
type fakeRetriever struct {
	docs    []*ai.Document
	err     error
	lastReq *ai.RetrieverRequest
}

func (f *fakeRetriever) Name() string { return "fake/retriever" }

func (f *fakeRetriever) Register(api.Registry) {}

func (f *fakeRetriever) Retrieve(_ context.Context, req *ai.RetrieverRequest) (*ai.RetrieverResponse, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &ai.RetrieverResponse{Documents: f.docs}, nil
}

func TestRetrieveContextUsesConfiguredTopK(t *testing.T) {
	fr := &fakeRetriever{docs: []*ai.Document{ai.DocumentFromText("dengue passage", nil)}}
	a := &Agent{retriever: fr, ragTopK: 3, logger: slog.New(slog.DiscardHandler)}

	docs := a.retrieveContext(context.Background(), "fever and joint pain")
	if len(docs) != 1 {
		t.Fatalf("documents = %d, want 1", len(docs))
	}
	if fr.lastReq == nil {
		t.Fatal("retriever not called")
	}
	opts, ok := fr.lastReq.Options.(map[string]any)
	if !ok || opts["k"] != 3 {
		t.Errorf("request options = %v, want k=3", fr.lastReq.Options)
	}
}

func TestRetrieveContextDisabledByZeroTopK(t *testing.T) {
	fr := &fakeRetriever{}
	a := &Agent{retriever: fr, ragTopK: 0, logger: slog.New(slog.DiscardHandler)}

	if docs := a.retrieveContext(context.Background(), "fever"); docs != nil {
		t.Errorf("documents = %v, want nil", docs)
	}
	if fr.lastReq != nil {
		t.Error("retriever should not be called when retrieval is disabled")
	}
}

func TestRetrieveContextFailureReturnsNil(t *testing.T) {
	fr := &fakeRetriever{err: errors.New("store offline")}
	a := &Agent{retriever: fr, ragTopK: 5, logger: slog.New(slog.DiscardHandler)}

	if docs := a.retrieveContext(context.Background(), "fever"); docs != nil {
		t.Errorf("documents = %v, want nil on retriever failure", docs)
	}
}
