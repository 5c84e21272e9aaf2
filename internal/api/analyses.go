package api

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/odooscope/odooscope/internal/analyzer"
	"github.com/odooscope/odooscope/internal/config"
	"github.com/odooscope/odooscope/internal/export"
	"github.com/odooscope/odooscope/internal/fetch"
	"github.com/odooscope/odooscope/internal/parser"
	"github.com/odooscope/odooscope/internal/store"
)

type analyzeRequest struct {
	// Path to a local module root. Mutually exclusive with RepoURL.
	Path string `json:"path,omitempty"`

	// Git URL of a repository containing the module. Subdir locates the
	// module root inside the clone; empty means the repository root.
	RepoURL string `json:"repo_url,omitempty"`
	Subdir  string `json:"subdir,omitempty"`
}

type analysisSummary struct {
	ID         uuid.UUID `json:"id"`
	ModuleName string    `json:"module_name"`
	ModulePath string    `json:"module_path"`
	CommitSHA  string    `json:"commit_sha,omitempty"`
	Models     int       `json:"models"`
	Views      int       `json:"views"`
	Rules      int       `json:"rules"`
	Menus      int       `json:"menus"`
	CreatedAt  time.Time `json:"created_at"`
}

func summarize(a *Analysis) analysisSummary {
	return analysisSummary{
		ID:         a.ID,
		ModuleName: a.Module.Name,
		ModulePath: a.Module.Path,
		CommitSHA:  a.CommitSHA,
		Models:     len(a.Module.Models),
		Views:      len(a.Module.Views),
		Rules:      len(a.Module.SecurityRules),
		Menus:      len(a.Module.MenuItems),
		CreatedAt:  a.CreatedAt,
	}
}

func (s *Server) createAnalysis(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if (req.Path == "") == (req.RepoURL == "") {
		respondError(w, http.StatusBadRequest, "exactly one of path or repo_url is required")
		return
	}

	root := req.Path
	commitSHA := ""
	var clone *fetch.CloneResult

	if req.RepoURL != "" {
		info, err := fetch.ParseRepoURL(req.RepoURL)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		clone, err = s.fetcher.Clone(r.Context(), info)
		if err != nil {
			respondError(w, http.StatusBadGateway, err.Error())
			return
		}
		defer s.fetcher.Cleanup(clone)
		root = filepath.Join(clone.Path, filepath.Clean("/"+req.Subdir))
		commitSHA = clone.CommitSHA
	}

	mod, err := analyzeModule(r.Context(), root)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	analysis := &Analysis{
		ID:        uuid.New(),
		Module:    mod,
		CommitSHA: commitSHA,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.analyses[analysis.ID] = analysis
	s.mu.Unlock()

	s.persist(r, analysis)

	respondJSON(w, http.StatusCreated, summarize(analysis))
}

// analyzeModule parses a module root honoring its project config.
func analyzeModule(ctx context.Context, root string) (*parser.Module, error) {
	p := parser.NewModuleParser(root)
	if proj, err := config.LoadProjectConfig(root); err == nil {
		p.ModelsDir = proj.ModelsDir
		p.ViewsDir = proj.ViewsDir
		p.SecurityDir = proj.SecurityDir
	} else {
		log.Warn().Err(err).Str("root", root).Msg("ignoring invalid project config")
	}
	return p.Parse(ctx)
}

// persist saves a run snapshot when the store is configured. Failures are
// logged, not surfaced: history is best-effort.
func (s *Server) persist(r *http.Request, analysis *Analysis) {
	if s.store == nil {
		return
	}

	snapshot, err := json.Marshal(export.BuildDocument(analysis.Module))
	if err != nil {
		log.Warn().Err(err).Msg("failed to serialize analysis snapshot")
		return
	}

	run := &store.AnalysisRun{
		ID:         analysis.ID,
		ModuleName: analysis.Module.Name,
		ModulePath: analysis.Module.Path,
		CommitSHA:  analysis.CommitSHA,
		ModelCount: len(analysis.Module.Models),
		ViewCount:  len(analysis.Module.Views),
		RuleCount:  len(analysis.Module.SecurityRules),
		MenuCount:  len(analysis.Module.MenuItems),
		Snapshot:   snapshot,
		CreatedAt:  analysis.CreatedAt,
	}
	if err := s.store.SaveRun(r.Context(), run); err != nil {
		log.Warn().Err(err).Str("run", analysis.ID.String()).Msg("failed to persist analysis run")
	}
}

func (s *Server) listAnalyses(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	summaries := make([]analysisSummary, 0, len(s.analyses))
	for _, a := range s.analyses {
		summaries = append(summaries, summarize(a))
	}
	s.mu.RUnlock()

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
	respondJSON(w, http.StatusOK, summaries)
}

func (s *Server) getAnalysis(w http.ResponseWriter, r *http.Request) {
	analysis := s.lookup(w, r)
	if analysis == nil {
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"summary":  summarize(analysis),
		"manifest": analysis.Module.Manifest,
	})
}

func (s *Server) listModels(w http.ResponseWriter, r *http.Request) {
	analysis := s.lookup(w, r)
	if analysis == nil {
		return
	}
	respondJSON(w, http.StatusOK, analysis.Module.Models)
}

func (s *Server) getModel(w http.ResponseWriter, r *http.Request) {
	analysis := s.lookup(w, r)
	if analysis == nil {
		return
	}
	name := parser.ModelRef(chi.URLParam(r, "modelName"))
	model, ok := analysis.Module.Models[name]
	if !ok {
		respondError(w, http.StatusNotFound, "model not found")
		return
	}
	respondJSON(w, http.StatusOK, model)
}

func (s *Server) getGraph(w http.ResponseWriter, r *http.Request) {
	analysis := s.lookup(w, r)
	if analysis == nil {
		return
	}
	nodes, edges := analyzer.Graph(analysis.Module)
	respondJSON(w, http.StatusOK, map[string]any{
		"nodes":       nodes,
		"edges":       edges,
		"edge_counts": analyzer.EdgeTypeCounts(edges),
	})
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	analysis := s.lookup(w, r)
	if analysis == nil {
		return
	}
	respondJSON(w, http.StatusOK, analyzer.ComputeStats(analysis.Module))
}

func (s *Server) getQuality(w http.ResponseWriter, r *http.Request) {
	analysis := s.lookup(w, r)
	if analysis == nil {
		return
	}
	respondJSON(w, http.StatusOK, analyzer.AnalyzeQuality(analysis.Module))
}

// getExport renders the export document through a scoped temp file and
// streams it back as a download.
func (s *Server) getExport(w http.ResponseWriter, r *http.Request) {
	analysis := s.lookup(w, r)
	if analysis == nil {
		return
	}
	data, err := export.RenderTemp(analysis.Module)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="module_data.json"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) listViews(w http.ResponseWriter, r *http.Request) {
	analysis := s.lookup(w, r)
	if analysis == nil {
		return
	}
	respondJSON(w, http.StatusOK, analysis.Module.Views)
}

func (s *Server) listSecurityRules(w http.ResponseWriter, r *http.Request) {
	analysis := s.lookup(w, r)
	if analysis == nil {
		return
	}
	respondJSON(w, http.StatusOK, analysis.Module.SecurityRules)
}

func (s *Server) listMenus(w http.ResponseWriter, r *http.Request) {
	analysis := s.lookup(w, r)
	if analysis == nil {
		return
	}
	respondJSON(w, http.StatusOK, analysis.Module.MenuItems)
}
