// Copyright (c) 2026 iCode Portal Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package api serves the portal's registration CRUD and analytics
// endpoints. All routes require an authenticated staff user.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/icodeportal/ingestion/internal/auth"
	"github.com/icodeportal/ingestion/internal/models"
	"github.com/icodeportal/ingestion/internal/store"
)

// Store is the persistence surface the API reads and writes.
type Store interface {
	GetByID(ctx context.Context, id int64) (*models.Registration, error)
	List(ctx context.Context, f store.Filter) ([]models.Registration, error)
	Insert(ctx context.Context, r *models.Registration) error
	Update(ctx context.Context, r *models.Registration) error
	Cancel(ctx context.Context, id int64, when time.Time) error
	ListByCampDate(ctx context.Context, day time.Time) ([]models.Registration, error)
	SearchByChild(ctx context.Context, query string) ([]models.Registration, error)
	ListQuarantined(ctx context.Context, limit int) ([]models.QuarantinedEmail, error)

	Revenue(ctx context.Context, interval string) ([]store.RevenuePoint, error)
	DailyCapacity(ctx context.Context, from, to time.Time) ([]store.CapacityPoint, error)
	Cancellations(ctx context.Context) (*store.CancellationStats, error)
	Summary(ctx context.Context, now time.Time) (*store.DashboardSummary, error)
}

// Handler serves the portal API.
type Handler struct {
	store Store
	now   func() time.Time
}

// NewHandler creates the API handler.
func NewHandler(s Store) *Handler {
	return &Handler{store: s, now: time.Now}
}

// Register mounts the API routes on the given mux behind the auth
// middleware.
func (h *Handler) Register(mux *http.ServeMux, mw *auth.Middleware) {
	wrap := func(fn http.HandlerFunc) http.Handler { return mw.Wrap(fn) }

	mux.Handle("GET /api/registrations", wrap(h.list))
	mux.Handle("POST /api/registrations", wrap(h.create))
	mux.Handle("GET /api/registrations/search", wrap(h.search))
	mux.Handle("GET /api/registrations/by-date", wrap(h.byDate))
	mux.Handle("GET /api/registrations/{id}", wrap(h.get))
	mux.Handle("PUT /api/registrations/{id}", wrap(h.update))
	mux.Handle("DELETE /api/registrations/{id}", wrap(h.cancel))

	mux.Handle("GET /api/quarantine", wrap(h.quarantine))

	mux.Handle("GET /api/analytics/revenue", wrap(h.revenue))
	mux.Handle("GET /api/analytics/capacity", wrap(h.capacity))
	mux.Handle("GET /api/analytics/cancellations", wrap(h.cancellations))
	mux.Handle("GET /api/analytics/summary", wrap(h.summary))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.Filter{
		Status:      models.Status(q.Get("status")),
		Employer:    q.Get("employer"),
		ParentEmail: q.Get("parentEmail"),
		Limit:       intParam(q.Get("limit"), 100),
		Offset:      intParam(q.Get("offset"), 0),
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			badRequest(w, "invalid from date")
			return
		}
		f.FromDate = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			badRequest(w, "invalid to date")
			return
		}
		f.ToDate = t
	}

	regs, err := h.store.List(r.Context(), f)
	if err != nil {
		serverError(w, "list registrations", err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(regs))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	reg, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		serverError(w, "get registration", err)
		return
	}
	if reg == nil {
		http.Error(w, "registration not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var reg models.Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	if reg.ChildName == "" || reg.ParentName == "" {
		badRequest(w, "childName and parentName are required")
		return
	}
	if reg.Status == "" {
		reg.Status = models.StatusEnrolled
	}
	if reg.Status != models.StatusEnrolled && reg.Status != models.StatusCancelled {
		badRequest(w, "status must be enrolled or cancelled")
		return
	}

	now := h.now().UTC()
	if reg.EnrollmentDate.IsZero() {
		reg.EnrollmentDate = now
	}
	if len(reg.Children) == 0 {
		reg.Children = []string{reg.ChildName}
	}
	if len(reg.CampDates) == 0 {
		reg.CampDates = []time.Time{reg.EnrollmentDate}
	}
	if reg.RegistrationID == "" {
		reg.RegistrationID = "BH-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	}

	reg.ID = 0
	reg.ManualEntry = true
	reg.UpdatedAt = now
	if u := auth.UserFrom(r.Context()); u != nil {
		reg.CreatedBy = u.ID
	}

	if err := h.store.Insert(r.Context(), &reg); err != nil {
		serverError(w, "insert registration", err)
		return
	}
	writeJSON(w, http.StatusCreated, &reg)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	existing, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		serverError(w, "get registration", err)
		return
	}
	if existing == nil {
		http.Error(w, "registration not found", http.StatusNotFound)
		return
	}

	var reg models.Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if reg.ChildName == "" || reg.ParentName == "" {
		badRequest(w, "childName and parentName are required")
		return
	}

	// Provenance carries over from the stored row.
	reg.ID = id
	reg.EmailID = existing.EmailID
	reg.EmailReceivedAt = existing.EmailReceivedAt
	reg.ParsedAt = existing.ParsedAt
	reg.RawEmailBody = existing.RawEmailBody
	reg.ManualEntry = existing.ManualEntry
	reg.CreatedBy = existing.CreatedBy

	if err := h.store.Update(r.Context(), &reg); err != nil {
		serverError(w, "update registration", err)
		return
	}
	writeJSON(w, http.StatusOK, &reg)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.store.Cancel(r.Context(), id, h.now().UTC()); err != nil {
		serverError(w, "cancel registration", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(models.StatusCancelled)})
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("child"))
	if query == "" {
		badRequest(w, "child query parameter is required")
		return
	}
	regs, err := h.store.SearchByChild(r.Context(), query)
	if err != nil {
		serverError(w, "search registrations", err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(regs))
}

func (h *Handler) byDate(w http.ResponseWriter, r *http.Request) {
	day, err := time.Parse("2006-01-02", r.URL.Query().Get("date"))
	if err != nil {
		badRequest(w, "date parameter must be YYYY-MM-DD")
		return
	}
	regs, err := h.store.ListByCampDate(r.Context(), day)
	if err != nil {
		serverError(w, "list by camp date", err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(regs))
}

func (h *Handler) quarantine(w http.ResponseWriter, r *http.Request) {
	emails, err := h.store.ListQuarantined(r.Context(), intParam(r.URL.Query().Get("limit"), 100))
	if err != nil {
		serverError(w, "list quarantined emails", err)
		return
	}
	if emails == nil {
		emails = []models.QuarantinedEmail{}
	}
	writeJSON(w, http.StatusOK, emails)
}

func (h *Handler) revenue(w http.ResponseWriter, r *http.Request) {
	points, err := h.store.Revenue(r.Context(), r.URL.Query().Get("interval"))
	if err != nil {
		serverError(w, "revenue analytics", err)
		return
	}
	if points == nil {
		points = []store.RevenuePoint{}
	}
	writeJSON(w, http.StatusOK, points)
}

func (h *Handler) capacity(w http.ResponseWriter, r *http.Request) {
	now := h.now().UTC()
	from := now.AddDate(0, 0, -30)
	to := now.AddDate(0, 0, 30)
	q := r.URL.Query()
	if v := q.Get("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			badRequest(w, "invalid from date")
			return
		}
		from = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			badRequest(w, "invalid to date")
			return
		}
		to = t
	}

	points, err := h.store.DailyCapacity(r.Context(), from, to)
	if err != nil {
		serverError(w, "capacity analytics", err)
		return
	}
	if points == nil {
		points = []store.CapacityPoint{}
	}
	writeJSON(w, http.StatusOK, points)
}

func (h *Handler) cancellations(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Cancellations(r.Context())
	if err != nil {
		serverError(w, "cancellation analytics", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.store.Summary(r.Context(), h.now().UTC())
	if err != nil {
		serverError(w, "dashboard summary", err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(w, "invalid registration id")
		return 0, false
	}
	return id, true
}

func intParam(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return n
	}
	return fallback
}

// orEmpty keeps list endpoints returning [] instead of null.
func orEmpty(regs []models.Registration) []models.Registration {
	if regs == nil {
		return []models.Registration{}
	}
	return regs
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	http.Error(w, msg, http.StatusBadRequest)
}

func serverError(w http.ResponseWriter, op string, err error) {
	slog.Error(op, "error", err)
	http.Error(w, fmt.Sprintf("%s failed", op), http.StatusInternalServerError)
}
