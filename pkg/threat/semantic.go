package threat

// Embedding similarity classification via chromem-go. Known scam openings
// are embedded into an in-memory collection; a turn's similarity to its
// nearest seed becomes the classifier layer score. Embeddings come from an
// Ollama instance, so this layer is optional and degrades to absent.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"
	"github.com/rakshakai/rakshak/pkg/httputil"
)

// seedPhrase is one known scam opening with its category.
type seedPhrase struct {
	Text     string
	Category string
}

// scamSeeds cover the openings of the fraud playbooks seen in the field.
// Benign seeds anchor the space so ordinary calls map away from scams.
var scamSeeds = []seedPhrase{
	{"this is the cyber crime police, a case has been registered against your aadhaar", "authority_impersonation"},
	{"I am calling from your bank, your account will be blocked today unless you verify", "authority_impersonation"},
	{"you are under digital arrest, do not disconnect this call", "coercion"},
	{"a parcel in your name has been seized by customs with illegal items", "authority_impersonation"},
	{"your electricity will be cut tonight, pay the pending bill immediately", "urgency"},
	{"congratulations you have won twenty five lakh in the lucky draw", "prize"},
	{"share the otp you just received to complete the verification", "identity_verification"},
	{"install anydesk so I can fix the problem on your phone", "remote_access"},
	{"your kyc has expired, update it now or your wallet will be suspended", "identity_verification"},
	{"transfer the processing fee to release your refund", "financial_request"},
	{"hello, I am calling about your car insurance renewal", "benign"},
	{"your food order is on the way, the rider will call you", "benign"},
	{"this is a reminder about your dentist appointment tomorrow", "benign"},
}

// semanticThreshold is the minimum cosine similarity to count as a match.
const semanticThreshold = 0.65

// SemanticClassifier implements Classifier via vector similarity.
type SemanticClassifier struct {
	db         *chromem.DB
	collection *chromem.Collection
	mu         sync.RWMutex
	ready      bool
}

// NewSemanticClassifier creates a classifier backed by Ollama embeddings at
// the given base URL. Call LoadSeeds before use.
func NewSemanticClassifier(ollamaURL string) (*SemanticClassifier, error) {
	db := chromem.NewDB()

	collection, err := db.CreateCollection("scam_phrases", nil, ollamaEmbeddingFunc("embeddinggemma", ollamaURL))
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	return &SemanticClassifier{db: db, collection: collection}, nil
}

// ollamaEmbeddingFunc builds a chromem embedding function over Ollama's
// /api/embeddings endpoint.
func ollamaEmbeddingFunc(model, baseURL string) chromem.EmbeddingFunc {
	client := httputil.MediumClient()
	endpoint := strings.TrimRight(baseURL, "/") + "/api/embeddings"

	return func(ctx context.Context, text string) ([]float32, error) {
		body, err := json.Marshal(map[string]string{"model": model, "prompt": text})
		if err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("embedding request failed: %w", err)
		}
		defer httputil.DrainAndClose(resp.Body)

		if resp.StatusCode != http.StatusOK {
			errBody, _ := httputil.ReadErrorBody(resp.Body)
			return nil, fmt.Errorf("embedding error %d: %s", resp.StatusCode, string(errBody))
		}

		var out struct {
			Embedding []float32 `json:"embedding"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, fmt.Errorf("decode embedding: %w", err)
		}
		return out.Embedding, nil
	}
}

// LoadSeeds embeds the seed phrases into the collection. Requires the
// embedding backend to be reachable.
func (s *SemanticClassifier) LoadSeeds(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs := make([]chromem.Document, len(scamSeeds))
	for i, seed := range scamSeeds {
		docs[i] = chromem.Document{
			ID:      fmt.Sprintf("seed_%d", i),
			Content: seed.Text,
			Metadata: map[string]string{
				"category": seed.Category,
			},
		}
	}

	// One worker keeps the load gentle on the embedding backend
	if err := s.collection.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("failed to add seeds: %w", err)
	}

	s.ready = true
	return nil
}

// IsReady returns true once the seeds are loaded.
func (s *SemanticClassifier) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Classify returns the similarity of the transcript to its nearest scam
// seed. Proximity to a benign seed scores zero.
func (s *SemanticClassifier) Classify(ctx context.Context, text string) (*ClassifierResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.ready {
		return nil, fmt.Errorf("semantic classifier not initialized - call LoadSeeds first")
	}

	results, err := s.collection.Query(ctx, strings.ToLower(text), 3, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	if len(results) == 0 {
		return &ClassifierResult{Score: 0, Label: "benign"}, nil
	}

	best := results[0]
	category := best.Metadata["category"]
	if category == "benign" || float64(best.Similarity) < semanticThreshold {
		return &ClassifierResult{Score: 0, Label: "benign"}, nil
	}
	return &ClassifierResult{Score: float64(best.Similarity), Label: category}, nil
}
