package contentstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/NicolasHaas/quizline/pkg/logging"
	"github.com/NicolasHaas/quizline/pkg/model"
)

// API serves the question store as JSON.
type API struct {
	store  Repository
	router *httprouter.Router
	log    *slog.Logger
}

// NewAPI creates the HTTP API for store.
func NewAPI(store Repository) *API {
	a := &API{
		store:  store,
		router: httprouter.New(),
		log:    logging.Component("contentstore"),
	}
	a.setupRoutes()
	return a
}

func (a *API) setupRoutes() {
	a.router.GET("/healthz", a.handleHealth)

	a.router.GET("/api/questions", a.handleListQuestions)
	a.router.POST("/api/questions", a.handleCreateQuestion)
	a.router.GET("/api/questions/:id", a.handleGetQuestion)
	a.router.DELETE("/api/questions/:id", a.handleDeleteQuestion)

	a.router.GET("/api/categories", a.handleListCategories)
	a.router.GET("/api/categories/:category/questions", a.handleCategoryQuestions)
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

// ListenAndServe serves the API on addr until ctx is cancelled.
func (a *API) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           a,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		a.log.Info("content store listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	n, err := a.store.Count(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "questions": n})
}

func (a *API) handleListQuestions(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	qs, err := a.store.List(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(qs))
}

func (a *API) handleGetQuestion(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := strconv.Atoi(ps.ByName("id"))
	if err != nil {
		http.Error(w, "invalid question id", http.StatusBadRequest)
		return
	}
	q, err := a.store.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		http.Error(w, fmt.Sprintf("question %d not found", id), http.StatusNotFound)
		return
	}
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (a *API) handleCreateQuestion(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in model.Question
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&in); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	q, err := a.store.Create(r.Context(), in)
	switch {
	case errors.Is(err, ErrInvalid):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, ErrDuplicate):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		a.fail(w, err)
		return
	}
	a.log.Info("question created", "id", q.ID, "category", q.Category)
	w.Header().Set("Location", "/api/questions/"+strconv.Itoa(q.ID))
	writeJSON(w, http.StatusCreated, q)
}

// handleDeleteQuestion answers 400 for an unknown id.
func (a *API) handleDeleteQuestion(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := strconv.Atoi(ps.ByName("id"))
	if err != nil {
		http.Error(w, "invalid question id", http.StatusBadRequest)
		return
	}
	q, err := a.store.Delete(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		http.Error(w, fmt.Sprintf("question %d does not exist", id), http.StatusBadRequest)
		return
	}
	if err != nil {
		a.fail(w, err)
		return
	}
	a.log.Info("question deleted", "id", q.ID)
	writeJSON(w, http.StatusOK, q)
}

func (a *API) handleListCategories(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	cs, err := a.store.Categories(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(cs))
}

func (a *API) handleCategoryQuestions(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	qs, err := a.store.ListByCategory(r.Context(), ps.ByName("category"))
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(qs))
}

func (a *API) fail(w http.ResponseWriter, err error) {
	a.log.Error("request failed", "err", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// nonNil makes empty lists encode as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
