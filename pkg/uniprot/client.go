// Package uniprot provides a client for the UniProtKB REST API. It fetches
// protein annotation records (names, organism, function text, and the full
// amino-acid sequence) and caches them in memory for the life of the
// process, since UniProt entries are effectively static data.
package uniprot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Client defines the UniProt lookup operations.
type Client interface {
	// Fetch returns the annotation record for an accession, or (nil, nil)
	// when UniProt does not know the accession.
	Fetch(ctx context.Context, accession string) (*Annotation, error)
}

// Annotation is the flattened protein record extracted from UniProt's
// nested JSON. Sequence positions are 1-indexed externally.
type Annotation struct {
	Accession   string `json:"accession"`
	GeneName    string `json:"gene_name"`
	ProteinName string `json:"protein_name"`
	Organism    string `json:"organism"`
	Function    string `json:"function"`
	Sequence    string `json:"sequence"`
	Length      int    `json:"length"`
}

// Placeholder values used when a field is absent from the UniProt record.
const (
	unknownGene     = "N/A"
	unknownProtein  = "Unknown protein"
	unknownOrganism = "Unknown"
	noFunctionText  = "No functional annotation available."
)

// Placeholder returns the degraded annotation served when UniProt is
// unreachable. The caller still gets a complete response, just without
// sequence-derived refinements.
func Placeholder(accession, geneSymbol string) *Annotation {
	gene := geneSymbol
	if gene == "" {
		gene = unknownGene
	}
	return &Annotation{
		Accession:   accession,
		GeneName:    gene,
		ProteinName: "Information unavailable",
		Organism:    unknownOrganism,
		Function:    "UniProt data could not be retrieved.",
	}
}

// Option configures the UniProt client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps outbound requests per second. UniProt asks API users
// to keep request rates modest.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter

	mu    sync.Mutex
	cache map[string]*Annotation
}

// NewClient creates a UniProt client with a process-lifetime annotation
// cache. Entries are populated lazily on first fetch and never evicted.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: "https://rest.uniprot.org",
		http: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(5, 5),
		cache:   make(map[string]*Annotation),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) cached(accession string) (*Annotation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ann, ok := c.cache[accession]
	return ann, ok
}

func (c *httpClient) store(accession string, ann *Annotation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[accession] = ann
}

func (c *httpClient) Fetch(ctx context.Context, accession string) (*Annotation, error) {
	if ann, ok := c.cached(accession); ok {
		return ann, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "uniprot: rate limit wait")
	}

	reqURL := fmt.Sprintf("%s/uniprotkb/%s.json", c.baseURL, accession)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "uniprot: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "uniprot: request failed")
	}
	defer resp.Body.Close()

	// 404 means the accession is unknown to UniProt, which is a normal
	// outcome for predicted entries, not an error.
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "uniprot: read response body")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("uniprot: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var entry entryResponse
	if err := json.Unmarshal(body, &entry); err != nil {
		return nil, eris.Wrap(err, "uniprot: unmarshal entry")
	}

	ann := entry.flatten()
	c.store(accession, ann)
	return ann, nil
}

// entryResponse mirrors the slice of UniProtKB's entry JSON we consume.
type entryResponse struct {
	PrimaryAccession string `json:"primaryAccession"`
	Genes            []struct {
		GeneName struct {
			Value string `json:"value"`
		} `json:"geneName"`
	} `json:"genes"`
	ProteinDescription struct {
		RecommendedName struct {
			FullName struct {
				Value string `json:"value"`
			} `json:"fullName"`
		} `json:"recommendedName"`
	} `json:"proteinDescription"`
	Organism struct {
		ScientificName string `json:"scientificName"`
		CommonName     string `json:"commonName"`
	} `json:"organism"`
	Comments []struct {
		CommentType string `json:"commentType"`
		Texts       []struct {
			Value string `json:"value"`
		} `json:"texts"`
	} `json:"comments"`
	Sequence struct {
		Value  string `json:"value"`
		Length int    `json:"length"`
	} `json:"sequence"`
}

// flatten reduces the nested entry to the fields the application uses,
// substituting placeholders for anything absent.
func (e *entryResponse) flatten() *Annotation {
	ann := &Annotation{
		Accession:   e.PrimaryAccession,
		GeneName:    unknownGene,
		ProteinName: unknownProtein,
		Organism:    unknownOrganism,
		Function:    noFunctionText,
		Sequence:    e.Sequence.Value,
		Length:      e.Sequence.Length,
	}
	if len(e.Genes) > 0 && e.Genes[0].GeneName.Value != "" {
		ann.GeneName = e.Genes[0].GeneName.Value
	}
	if v := e.ProteinDescription.RecommendedName.FullName.Value; v != "" {
		ann.ProteinName = v
	}
	if e.Organism.ScientificName != "" {
		ann.Organism = e.Organism.ScientificName
		if e.Organism.CommonName != "" {
			ann.Organism += " (" + e.Organism.CommonName + ")"
		}
	}
	for _, c := range e.Comments {
		if c.CommentType == "FUNCTION" && len(c.Texts) > 0 {
			ann.Function = c.Texts[0].Value
			break
		}
	}
	if ann.Length == 0 {
		ann.Length = len(ann.Sequence)
	}
	return ann
}
