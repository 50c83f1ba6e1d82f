package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vanderwall-lab/kinoplex/internal/model"
	"github.com/vanderwall-lab/kinoplex/internal/motif"
	"github.com/vanderwall-lab/kinoplex/internal/reconcile"
	"github.com/vanderwall-lab/kinoplex/internal/store"
	"github.com/vanderwall-lab/kinoplex/pkg/uniprot"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the KinoPlex HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		api := &apiServer{
			store:       st,
			uniprot:     initUniProt(),
			searchLimit: cfg.Search.Limit,
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(api),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// apiServer holds the dependencies shared by all HTTP handlers.
type apiServer struct {
	store       store.Store
	uniprot     uniprot.Client
	searchLimit int
}

// newRouter wires the API routes. Split from the serve command so handler
// tests can exercise the router directly.
func newRouter(api *apiServer) http.Handler {
	r := chi.NewRouter()

	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/search", api.handleSearch)
		r.Get("/stats", api.handleStats)
		r.Route("/protein/{identifier}", func(r chi.Router) {
			r.Get("/", api.handleProtein)
			r.Get("/kinase/{kinase}", api.handleKinaseProfile)
			r.Get("/sequence", api.handleSequence)
			r.Get("/site/{position}/motif", api.handleMotif)
		})
	})

	return r
}

// requestLogger tags each request with an ID and logs method, path, and
// duration at debug level.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := uuid.New().String()
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r)
		zap.L().Debug("request",
			zap.String("request_id", reqID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// apiError is the error payload shape. Details carries a short diagnostic
// string; internal state stays in the logs.
type apiError struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg, details string) {
	writeJSON(w, status, apiError{Error: msg, Details: details})
}

// searchSuggestion is one autocomplete entry. Value is what the client
// should navigate with.
type searchSuggestion struct {
	Accession  string `json:"uniprot"`
	GeneSymbol string `json:"gene_symbol"`
	Display    string `json:"display"`
	Value      string `json:"value"`
}

func (s *apiServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	// Below two characters the contract is an empty suggestion list, with
	// no query issued against the store.
	if len(query) < 2 {
		writeJSON(w, http.StatusOK, []searchSuggestion{})
		return
	}

	keys, err := s.store.SearchProteins(r.Context(), query, s.searchLimit)
	if err != nil {
		zap.L().Error("protein search failed", zap.String("query", query), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "search failed", "")
		return
	}

	suggestions := make([]searchSuggestion, 0, len(keys))
	for _, k := range keys {
		suggestions = append(suggestions, searchSuggestion{
			Accession:  k.Accession,
			GeneSymbol: k.GeneSymbol,
			Display:    k.Display(),
			Value:      k.Accession,
		})
	}
	writeJSON(w, http.StatusOK, suggestions)
}

// proteinPayload is the full response for the protein detail endpoint,
// shaped for direct consumption by the visualization front end.
type proteinPayload struct {
	Protein    model.ProteinKey    `json:"protein"`
	Annotation *uniprot.Annotation `json:"annotation"`
	Sites      []model.Site        `json:"sites"`
	Statistics model.SiteStats     `json:"statistics"`
}

// loadProtein assembles the reconciled data for an identifier. A nil
// payload with a nil error means the protein is not in the corpus. The
// annotation is always populated: a placeholder stands in when UniProt is
// unavailable or does not know the accession.
func (s *apiServer) loadProtein(ctx context.Context, identifier string) (*proteinPayload, error) {
	key, err := s.store.LookupProtein(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, nil
	}

	competency, stRows, yRows, err := s.store.LoadRows(ctx, key.Accession)
	if err != nil {
		return nil, err
	}
	if len(competency) == 0 {
		return nil, nil
	}

	ann, err := s.uniprot.Fetch(ctx, key.Accession)
	if err != nil {
		// A failed or timed-out UniProt call degrades to placeholder
		// annotation data; the response is still served.
		zap.L().Warn("uniprot fetch failed, serving placeholder",
			zap.String("accession", key.Accession),
			zap.Error(err),
		)
		ann = nil
	}
	if ann == nil {
		ann = uniprot.Placeholder(key.Accession, key.GeneSymbol)
	}

	sites := reconcile.BuildSites(competency, stRows, yRows, ann.Sequence)
	return &proteinPayload{
		Protein:    *key,
		Annotation: ann,
		Sites:      sites,
		Statistics: reconcile.ComputeStats(sites),
	}, nil
}

func (s *apiServer) handleProtein(w http.ResponseWriter, r *http.Request) {
	identifier := chi.URLParam(r, "identifier")

	payload, err := s.loadProtein(r.Context(), identifier)
	if err != nil {
		zap.L().Error("load protein failed", zap.String("identifier", identifier), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load protein data", "")
		return
	}
	if payload == nil {
		writeError(w, http.StatusNotFound, "protein not found", "")
		return
	}

	zap.L().Info("protein loaded",
		zap.String("identifier", identifier),
		zap.Int("sites", len(payload.Sites)),
	)
	writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handleKinaseProfile(w http.ResponseWriter, r *http.Request) {
	identifier := chi.URLParam(r, "identifier")
	kinase := chi.URLParam(r, "kinase")

	key, err := s.store.LookupProtein(r.Context(), identifier)
	if err != nil {
		zap.L().Error("kinase profile lookup failed", zap.String("identifier", identifier), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load kinase profile", "")
		return
	}
	if key == nil {
		writeError(w, http.StatusNotFound, "no data found", "")
		return
	}

	competency, stRows, yRows, err := s.store.LoadRows(r.Context(), key.Accession)
	if err != nil {
		zap.L().Error("kinase profile load failed", zap.String("accession", key.Accession), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load kinase profile", "")
		return
	}

	// Residue identity from table membership is enough here; the profile
	// does not need the live sequence.
	sites := reconcile.BuildSites(competency, stRows, yRows, "")
	profile := reconcile.Profile(sites, kinase)
	if len(profile) == 0 {
		writeError(w, http.StatusNotFound, "no data found", "")
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

func (s *apiServer) handleSequence(w http.ResponseWriter, r *http.Request) {
	identifier := chi.URLParam(r, "identifier")

	key, err := s.store.LookupProtein(r.Context(), identifier)
	if err != nil {
		zap.L().Error("sequence lookup failed", zap.String("identifier", identifier), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to retrieve sequence", "")
		return
	}
	if key == nil {
		writeError(w, http.StatusNotFound, "protein not found", "")
		return
	}

	ann, err := s.uniprot.Fetch(r.Context(), key.Accession)
	if err != nil {
		zap.L().Warn("uniprot fetch failed", zap.String("accession", key.Accession), zap.Error(err))
		ann = nil
	}
	if ann == nil || ann.Sequence == "" {
		writeError(w, http.StatusNotFound, "could not retrieve sequence", "")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sequence": ann.Sequence,
		"length":   len(ann.Sequence),
	})
}

func (s *apiServer) handleMotif(w http.ResponseWriter, r *http.Request) {
	identifier := chi.URLParam(r, "identifier")
	position, err := strconv.Atoi(chi.URLParam(r, "position"))
	if err != nil || position < 1 {
		writeError(w, http.StatusBadRequest, "invalid position", "")
		return
	}

	key, lookupErr := s.store.LookupProtein(r.Context(), identifier)
	if lookupErr != nil {
		zap.L().Error("motif lookup failed", zap.String("identifier", identifier), zap.Error(lookupErr))
		writeError(w, http.StatusInternalServerError, "failed to retrieve sequence motif", "")
		return
	}
	if key == nil {
		writeError(w, http.StatusNotFound, "protein not found", "")
		return
	}

	ann, fetchErr := s.uniprot.Fetch(r.Context(), key.Accession)
	if fetchErr != nil {
		zap.L().Warn("uniprot fetch failed", zap.String("accession", key.Accession), zap.Error(fetchErr))
		ann = nil
	}
	if ann == nil || ann.Sequence == "" {
		writeError(w, http.StatusNotFound, "could not retrieve sequence motif", "")
		return
	}

	window := motif.Window(ann.Sequence, position, motif.DefaultWindow)
	if window == "" {
		writeError(w, http.StatusNotFound, "could not retrieve sequence motif", "")
		return
	}
	residue, _ := motif.ResidueAt(ann.Sequence, position)

	writeJSON(w, http.StatusOK, map[string]any{
		"motif":        window,
		"position":     position,
		"residue":      string(residue),
		"motif_length": len(window),
		"center_index": motif.CenterIndex(position, motif.DefaultWindow),
	})
}

func (s *apiServer) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		zap.L().Error("stats query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load statistics", "")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
