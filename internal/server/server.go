package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/uptrace/bun"

	"github.com/mzaitsev/molecule-explorer/internal/adapter"
	"github.com/mzaitsev/molecule-explorer/internal/repositories"
)

// Server provides the read-only browse API over the partitioned store.
// Listing endpoints touch only the hot tables; the cold partition is read
// solely by the single-molecule geometry endpoint.
type Server struct {
	db   *bun.DB
	port int
}

// New creates a new HTTP server.
func New(db *bun.DB, port int) *Server {
	if port == 0 {
		port = 8080
	}
	return &Server{db: db, port: port}
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/v1/datasets", s.handleDatasets)
	mux.HandleFunc("GET /api/v1/datasets/{dataset}/families", s.handleFamilies)
	mux.HandleFunc("GET /api/v1/datasets/{dataset}/seeds", s.handleSeeds)
	mux.HandleFunc("POST /api/v1/datasets/{dataset}/molecules/query", s.handleMoleculesQuery)
	mux.HandleFunc("POST /api/v1/datasets/{dataset}/molecules/aggregates", s.handleMoleculesAggregates)
	mux.HandleFunc("GET /api/v1/datasets/{dataset}/molecules/{cid}", s.handleMolecule)
	mux.HandleFunc("GET /api/v1/datasets/{dataset}/molecules/{cid}/geometry", s.handleGeometry)
	mux.HandleFunc("GET /api/v1/runs", s.handleRuns)
	mux.HandleFunc("GET /api/v1/runs/{run}", s.handleRun)

	addr := fmt.Sprintf(":%d", s.port)
	fmt.Printf("molecule-explorer server listening on %s\n", addr)
	return http.ListenAndServe(addr, mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDatasets(w http.ResponseWriter, r *http.Request) {
	datasets, err := repositories.ListDatasets(r.Context(), s.db)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"datasets": datasets,
		"total":    len(datasets),
	})
}

func (s *Server) handleFamilies(w http.ResponseWriter, r *http.Request) {
	datasetID := r.PathValue("dataset")
	families, err := repositories.ListFamilies(r.Context(), s.db, datasetID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"dataset_id": datasetID,
		"families":   families,
	})
}

func (s *Server) handleSeeds(w http.ResponseWriter, r *http.Request) {
	datasetID := r.PathValue("dataset")
	seeds, err := repositories.ListSeeds(r.Context(), s.db, datasetID, r.URL.Query().Get("family"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"dataset_id": datasetID,
		"seeds":      seeds,
	})
}

type pageBody struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

type moleculesQueryBody struct {
	SeedName string                  `json:"seed_name"`
	Methods  []string                `json:"methods"`
	Ranges   map[string][]float64    `json:"ranges"`
	Sort     []repositories.SortSpec `json:"sort"`
	Page     *pageBody               `json:"page"`
}

func (b moleculesQueryBody) toQuery() repositories.MoleculeQuery {
	q := repositories.MoleculeQuery{
		SeedName: b.SeedName,
		Methods:  b.Methods,
		Sort:     b.Sort,
	}
	if len(b.Ranges) > 0 {
		q.Ranges = make(map[string]repositories.Range, len(b.Ranges))
		for field, pair := range b.Ranges {
			if len(pair) >= 2 {
				q.Ranges[field] = repositories.Range{Min: pair[0], Max: pair[1]}
			}
		}
	}
	if b.Page != nil {
		q.Limit = b.Page.Limit
		q.Offset = b.Page.Offset
	}
	return q
}

func (s *Server) handleMoleculesQuery(w http.ResponseWriter, r *http.Request) {
	datasetID := r.PathValue("dataset")

	var body moleculesQueryBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	q := body.toQuery()

	molecules, total, err := repositories.QueryMolecules(r.Context(), s.db, datasetID, q)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"molecules": molecules,
		"total":     total,
		"limit":     limit,
		"offset":    q.Offset,
	})
}

func (s *Server) handleMoleculesAggregates(w http.ResponseWriter, r *http.Request) {
	datasetID := r.PathValue("dataset")

	var body moleculesQueryBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	aggregates, err := repositories.AggregateMolecules(r.Context(), s.db, datasetID, body.toQuery())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"dataset_id": datasetID,
		"aggregates": aggregates,
	})
}

func (s *Server) handleMolecule(w http.ResponseWriter, r *http.Request) {
	datasetID := r.PathValue("dataset")
	cid, err := strconv.ParseInt(r.PathValue("cid"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid cid"))
		return
	}

	molecule, err := repositories.GetMolecule(r.Context(), s.db, datasetID, cid)
	if errors.Is(err, repositories.ErrNotFound) {
		writeError(w, http.StatusNotFound, fmt.Errorf("molecule not found"))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, molecule)
}

func (s *Server) handleGeometry(w http.ResponseWriter, r *http.Request) {
	datasetID := r.PathValue("dataset")
	cid, err := strconv.ParseInt(r.PathValue("cid"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid cid"))
		return
	}

	cold, err := repositories.GetGeometryCold(r.Context(), s.db, datasetID, cid)
	if errors.Is(err, repositories.ErrNotFound) {
		writeError(w, http.StatusNotFound, fmt.Errorf("geometry not found"))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	switch r.URL.Query().Get("format") {
	case "", "molblock":
		w.Header().Set("Content-Type", "chemical/x-mdl-molfile")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, cold.Molblock)
	case "scene":
		scene, err := adapter.BuildScene(cold)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusOK, scene)
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown format, want molblock or scene"))
	}
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := repositories.ListRuns(r.Context(), s.db, 100)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"runs":  runs,
		"total": len(runs),
	})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	run, err := repositories.GetRun(r.Context(), s.db, r.PathValue("run"))
	if errors.Is(err, repositories.ErrNotFound) {
		writeError(w, http.StatusNotFound, fmt.Errorf("run not found"))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
