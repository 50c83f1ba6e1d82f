package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanderwall-lab/kinoplex/internal/model"
	"github.com/vanderwall-lab/kinoplex/pkg/uniprot"
)

// fakeStore serves canned rows for one protein.
type fakeStore struct {
	key        *model.ProteinKey
	competency []model.CompetencyRow
	st, y      []model.KinaseScoreRow
	search     []model.ProteinKey
	stats      model.DatabaseStats
	err        error
}

func (f *fakeStore) LookupProtein(_ context.Context, identifier string) (*model.ProteinKey, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.key != nil && (identifier == f.key.Accession || identifier == f.key.GeneSymbol) {
		k := *f.key
		return &k, nil
	}
	return nil, nil
}

func (f *fakeStore) LoadRows(context.Context, string) ([]model.CompetencyRow, []model.KinaseScoreRow, []model.KinaseScoreRow, error) {
	if f.err != nil {
		return nil, nil, nil, f.err
	}
	return f.competency, f.st, f.y, nil
}

func (f *fakeStore) SearchProteins(context.Context, string, int) ([]model.ProteinKey, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.search, nil
}

func (f *fakeStore) Stats(context.Context) (*model.DatabaseStats, error) {
	if f.err != nil {
		return nil, f.err
	}
	s := f.stats
	return &s, nil
}

func (f *fakeStore) Migrate(context.Context) error { return nil }
func (f *fakeStore) Close() error                  { return nil }

// fakeAnnotator returns a fixed annotation or error.
type fakeAnnotator struct {
	ann *uniprot.Annotation
	err error
}

func (f *fakeAnnotator) Fetch(context.Context, string) (*uniprot.Annotation, error) {
	return f.ann, f.err
}

func tp53Store() *fakeStore {
	return &fakeStore{
		key: &model.ProteinKey{Accession: "P04637", GeneSymbol: "TP53"},
		competency: []model.CompetencyRow{
			{Accession: "P04637", Site: "P04637_6", Position: 6, FDR05: true, FDR02: true, FDR01: true, KnownPositive: true},
			{Accession: "P04637", Site: "P04637_15", Position: 15, FDR05: true},
			{Accession: "P04637", Site: "P04637_20", Position: 20},
		},
		st: []model.KinaseScoreRow{
			{Accession: "P04637", Position: 6, KinaseData: `{"CDK2": 97.5}`},
		},
		y: []model.KinaseScoreRow{
			{Accession: "P04637", Position: 20, KinaseData: `{"SRC": 81.2}`},
		},
		stats: model.DatabaseStats{TotalProteins: 1, TotalSites: 3, KnownSites: 1},
	}
}

func newTestRouter(st *fakeStore, ann *fakeAnnotator) http.Handler {
	return newRouter(&apiServer{store: st, uniprot: ann, searchLimit: 50})
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRouter_Health(t *testing.T) {
	h := newTestRouter(tp53Store(), &fakeAnnotator{})

	rr := get(t, h, "/health")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestRouter_Search_ShortQueryReturnsEmptyList(t *testing.T) {
	st := tp53Store()
	st.search = []model.ProteinKey{{Accession: "P04637", GeneSymbol: "TP53"}}
	h := newTestRouter(st, &fakeAnnotator{})

	rr := get(t, h, "/api/search?q=T")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestRouter_Search_Suggestions(t *testing.T) {
	st := tp53Store()
	st.search = []model.ProteinKey{
		{Accession: "P04637", GeneSymbol: "TP53"},
		{Accession: "Q12345", GeneSymbol: ""},
	}
	h := newTestRouter(st, &fakeAnnotator{})

	rr := get(t, h, "/api/search?q=TP5")
	assert.Equal(t, http.StatusOK, rr.Code)

	var suggestions []searchSuggestion
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &suggestions))
	require.Len(t, suggestions, 2)
	assert.Equal(t, "TP53 (P04637)", suggestions[0].Display)
	assert.Equal(t, "P04637", suggestions[0].Value)
	// Without a gene symbol the accession stands alone.
	assert.Equal(t, "Q12345", suggestions[1].Display)
}

func TestRouter_Protein_NotFound(t *testing.T) {
	h := newTestRouter(tp53Store(), &fakeAnnotator{})

	rr := get(t, h, "/api/protein/UNKNOWN1")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	var body apiError
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "protein not found", body.Error)
}

func TestRouter_Protein_WithSequence(t *testing.T) {
	// Position 6 is S, position 15 is T, position 20 is Y in this
	// sequence, so the residues come straight from it. In particular the
	// T at 15 is recoverable only through the sequence.
	seq := "MEEPQSDPSVEPPLTQETFYGL"
	h := newTestRouter(tp53Store(), &fakeAnnotator{ann: &uniprot.Annotation{
		Accession: "P04637", GeneName: "TP53", ProteinName: "Cellular tumor antigen p53",
		Sequence: seq, Length: len(seq),
	}})

	rr := get(t, h, "/api/protein/TP53")
	require.Equal(t, http.StatusOK, rr.Code)

	var payload proteinPayload
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
	assert.Equal(t, "P04637", payload.Protein.Accession)
	require.Len(t, payload.Sites, 3)
	assert.Equal(t, model.ResidueSerine, payload.Sites[0].Residue)
	assert.Equal(t, model.ResidueThreonine, payload.Sites[1].Residue)
	assert.Equal(t, model.ResidueTyrosine, payload.Sites[2].Residue)
	assert.Equal(t, 3, payload.Statistics.TotalSites)
	assert.Equal(t, 1, payload.Statistics.HighConfidence)
	assert.Equal(t, 20, payload.Statistics.MaxPosition)
}

func TestRouter_Protein_DegradesWhenUniProtFails(t *testing.T) {
	h := newTestRouter(tp53Store(), &fakeAnnotator{err: errors.New("connection refused")})

	rr := get(t, h, "/api/protein/P04637")
	require.Equal(t, http.StatusOK, rr.Code)

	var payload proteinPayload
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
	require.NotNil(t, payload.Annotation)
	assert.Equal(t, "Information unavailable", payload.Annotation.ProteinName)

	// Residues fall back to table membership.
	require.Len(t, payload.Sites, 3)
	assert.Equal(t, model.ResidueSerine, payload.Sites[0].Residue)
	assert.Equal(t, model.ResidueSerine, payload.Sites[1].Residue)
	assert.Equal(t, model.ResidueTyrosine, payload.Sites[2].Residue)
}

func TestRouter_Protein_StoreError(t *testing.T) {
	h := newTestRouter(&fakeStore{err: errors.New("disk gone")}, &fakeAnnotator{})

	rr := get(t, h, "/api/protein/P04637")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)

	var body apiError
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "failed to load protein data", body.Error)
}

func TestRouter_KinaseProfile(t *testing.T) {
	h := newTestRouter(tp53Store(), &fakeAnnotator{})

	rr := get(t, h, "/api/protein/P04637/kinase/CDK2")
	require.Equal(t, http.StatusOK, rr.Code)

	var profile []model.ProfileEntry
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &profile))
	require.Len(t, profile, 1)
	assert.Equal(t, 6, profile[0].Position)
	assert.InDelta(t, 97.5, profile[0].Score, 1e-9)
	assert.True(t, profile[0].Phosphocompetent)
}

func TestRouter_KinaseProfile_NoData(t *testing.T) {
	h := newTestRouter(tp53Store(), &fakeAnnotator{})

	rr := get(t, h, "/api/protein/P04637/kinase/NOSUCHKINASE")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRouter_Sequence(t *testing.T) {
	h := newTestRouter(tp53Store(), &fakeAnnotator{ann: &uniprot.Annotation{
		Accession: "P04637", Sequence: "MEEPQSDP", Length: 8,
	}})

	rr := get(t, h, "/api/protein/P04637/sequence")
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Sequence string `json:"sequence"`
		Length   int    `json:"length"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "MEEPQSDP", body.Sequence)
	assert.Equal(t, 8, body.Length)
}

func TestRouter_Sequence_Unavailable(t *testing.T) {
	h := newTestRouter(tp53Store(), &fakeAnnotator{err: errors.New("timeout")})

	rr := get(t, h, "/api/protein/P04637/sequence")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRouter_Motif(t *testing.T) {
	h := newTestRouter(tp53Store(), &fakeAnnotator{ann: &uniprot.Annotation{
		Accession: "P04637", Sequence: "PSVEPPLSQETFSGL", Length: 15,
	}})

	rr := get(t, h, "/api/protein/P04637/site/8/motif")
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Motif       string `json:"motif"`
		Position    int    `json:"position"`
		Residue     string `json:"residue"`
		MotifLength int    `json:"motif_length"`
		CenterIndex int    `json:"center_index"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "PSVEPPLSQETFSGL", body.Motif)
	assert.Equal(t, 8, body.Position)
	assert.Equal(t, "S", body.Residue)
	assert.Equal(t, 15, body.MotifLength)
	assert.Equal(t, 7, body.CenterIndex)
}

func TestRouter_Motif_InvalidPosition(t *testing.T) {
	h := newTestRouter(tp53Store(), &fakeAnnotator{})

	rr := get(t, h, "/api/protein/P04637/site/zero/motif")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRouter_Motif_OutOfRange(t *testing.T) {
	h := newTestRouter(tp53Store(), &fakeAnnotator{ann: &uniprot.Annotation{
		Accession: "P04637", Sequence: "PSVEP", Length: 5,
	}})

	rr := get(t, h, "/api/protein/P04637/site/99/motif")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRouter_Stats(t *testing.T) {
	h := newTestRouter(tp53Store(), &fakeAnnotator{})

	rr := get(t, h, "/api/stats")
	require.Equal(t, http.StatusOK, rr.Code)

	var stats model.DatabaseStats
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.TotalProteins)
	assert.Equal(t, 3, stats.TotalSites)
}

func TestRouter_RequestIDHeader(t *testing.T) {
	h := newTestRouter(tp53Store(), &fakeAnnotator{})

	rr := get(t, h, "/health")
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}
