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

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/icodeportal/ingestion/internal/auth"
	"github.com/icodeportal/ingestion/internal/models"
	"github.com/icodeportal/ingestion/internal/store"
)

type fakeStore struct {
	regs       map[int64]*models.Registration
	nextID     int64
	lastFilter store.Filter
	cancelled  []int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{regs: map[int64]*models.Registration{}, nextID: 1}
}

func (f *fakeStore) GetByID(ctx context.Context, id int64) (*models.Registration, error) {
	r, ok := f.regs[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (f *fakeStore) List(ctx context.Context, filter store.Filter) ([]models.Registration, error) {
	f.lastFilter = filter
	var out []models.Registration
	for _, r := range f.regs {
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakeStore) Insert(ctx context.Context, r *models.Registration) error {
	r.ID = f.nextID
	f.nextID++
	cp := *r
	f.regs[r.ID] = &cp
	return nil
}

func (f *fakeStore) Update(ctx context.Context, r *models.Registration) error {
	cp := *r
	f.regs[r.ID] = &cp
	return nil
}

func (f *fakeStore) Cancel(ctx context.Context, id int64, when time.Time) error {
	f.cancelled = append(f.cancelled, id)
	if r, ok := f.regs[id]; ok {
		r.Status = models.StatusCancelled
		r.CancellationDate = &when
	}
	return nil
}

func (f *fakeStore) ListByCampDate(ctx context.Context, day time.Time) ([]models.Registration, error) {
	return nil, nil
}

func (f *fakeStore) SearchByChild(ctx context.Context, query string) ([]models.Registration, error) {
	var out []models.Registration
	for _, r := range f.regs {
		if strings.Contains(strings.ToLower(r.ChildName), strings.ToLower(query)) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeStore) ListQuarantined(ctx context.Context, limit int) ([]models.QuarantinedEmail, error) {
	return nil, nil
}

func (f *fakeStore) Revenue(ctx context.Context, interval string) ([]store.RevenuePoint, error) {
	return []store.RevenuePoint{{Revenue: 600, Count: 1}}, nil
}

func (f *fakeStore) DailyCapacity(ctx context.Context, from, to time.Time) ([]store.CapacityPoint, error) {
	return nil, nil
}

func (f *fakeStore) Cancellations(ctx context.Context) (*store.CancellationStats, error) {
	return &store.CancellationStats{Enrolled: 3, Cancelled: 1, CancellationRate: 0.25}, nil
}

func (f *fakeStore) Summary(ctx context.Context, now time.Time) (*store.DashboardSummary, error) {
	return &store.DashboardSummary{TotalRegistrations: int64ToInt(f.nextID) - 1}, nil
}

func int64ToInt(v int64) int { return int(v) }

const testSecret = "api-test-secret"

func newServer(t *testing.T, fs *fakeStore) *http.ServeMux {
	t.Helper()
	mux := http.NewServeMux()
	NewHandler(fs).Register(mux, auth.NewMiddleware(testSecret))
	return mux
}

func authedRequest(t *testing.T, method, target string, body string) *http.Request {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "user_staff",
		"email": "staff@icode.test",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	raw, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+raw)
	return req
}

func TestListRequiresAuth(t *testing.T) {
	mux := newServer(t, newFakeStore())

	req := httptest.NewRequest(http.MethodGet, "/api/registrations", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestListReturnsEmptyArray(t *testing.T) {
	mux := newServer(t, newFakeStore())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, authedRequest(t, http.MethodGet, "/api/registrations", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("body = %q, want []", body)
	}
}

func TestListPassesFilter(t *testing.T) {
	fs := newFakeStore()
	mux := newServer(t, fs)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, authedRequest(t, http.MethodGet,
		"/api/registrations?status=cancelled&employer=acme&from=2025-01-01&limit=5", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	f := fs.lastFilter
	if f.Status != models.StatusCancelled || f.Employer != "acme" || f.Limit != 5 {
		t.Errorf("filter = %+v", f)
	}
	if f.FromDate.IsZero() {
		t.Error("FromDate not set")
	}
}

func TestCreateManualEntry(t *testing.T) {
	fs := newFakeStore()
	mux := newServer(t, fs)

	body := `{"childName":"Ava Smith","parentName":"Kalyani Pola","parentEmail":"kp@example.com"}`
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/api/registrations", body))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var created models.Registration
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.ID == 0 {
		t.Error("ID not assigned")
	}
	if !created.ManualEntry {
		t.Error("ManualEntry = false")
	}
	if created.CreatedBy != "user_staff" {
		t.Errorf("CreatedBy = %q", created.CreatedBy)
	}
	if created.Status != models.StatusEnrolled {
		t.Errorf("Status = %q", created.Status)
	}
	if !strings.HasPrefix(created.RegistrationID, "BH-") {
		t.Errorf("RegistrationID = %q", created.RegistrationID)
	}
	if len(created.Children) != 1 || created.Children[0] != "Ava Smith" {
		t.Errorf("Children = %v", created.Children)
	}
	if len(created.CampDates) != 1 {
		t.Errorf("CampDates = %v", created.CampDates)
	}
}

func TestCreateRejectsMissingNames(t *testing.T) {
	mux := newServer(t, newFakeStore())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/api/registrations", `{"childName":"Ava"}`))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestGetNotFound(t *testing.T) {
	mux := newServer(t, newFakeStore())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, authedRequest(t, http.MethodGet, "/api/registrations/42", ""))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestUpdatePreservesProvenance(t *testing.T) {
	fs := newFakeStore()
	parsed := time.Date(2025, 1, 5, 9, 0, 0, 0, time.UTC)
	fs.regs[1] = &models.Registration{
		ID:           1,
		ChildName:    "Ava Smith",
		ParentName:   "Kalyani Pola",
		Status:       models.StatusEnrolled,
		EmailID:      "msg-1",
		ParsedAt:     &parsed,
		RawEmailBody: "original body",
	}
	fs.nextID = 2
	mux := newServer(t, fs)

	body := `{"childName":"Ava S. Smith","parentName":"Kalyani Pola","status":"enrolled","emailId":"spoofed","rawEmailBody":"overwritten"}`
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, authedRequest(t, http.MethodPut, "/api/registrations/1", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	updated := fs.regs[1]
	if updated.ChildName != "Ava S. Smith" {
		t.Errorf("ChildName = %q", updated.ChildName)
	}
	if updated.EmailID != "msg-1" || updated.RawEmailBody != "original body" {
		t.Errorf("provenance overwritten: emailId=%q raw=%q", updated.EmailID, updated.RawEmailBody)
	}
}

func TestDeleteSoftCancels(t *testing.T) {
	fs := newFakeStore()
	fs.regs[1] = &models.Registration{ID: 1, Status: models.StatusEnrolled}
	fs.nextID = 2
	mux := newServer(t, fs)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, authedRequest(t, http.MethodDelete, "/api/registrations/1", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(fs.cancelled) != 1 || fs.cancelled[0] != 1 {
		t.Errorf("cancelled = %v", fs.cancelled)
	}
	if fs.regs[1].Status != models.StatusCancelled {
		t.Errorf("status = %q after delete", fs.regs[1].Status)
	}
}

func TestSearchByChild(t *testing.T) {
	fs := newFakeStore()
	fs.regs[1] = &models.Registration{ID: 1, ChildName: "Ava Smith"}
	fs.regs[2] = &models.Registration{ID: 2, ChildName: "Noah Jones"}
	fs.nextID = 3
	mux := newServer(t, fs)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, authedRequest(t, http.MethodGet, "/api/registrations/search?child=ava", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var regs []models.Registration
	json.Unmarshal(rec.Body.Bytes(), &regs)
	if len(regs) != 1 || regs[0].ChildName != "Ava Smith" {
		t.Errorf("regs = %v", regs)
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	mux := newServer(t, newFakeStore())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, authedRequest(t, http.MethodGet, "/api/registrations/search", ""))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestAnalyticsEndpoints(t *testing.T) {
	mux := newServer(t, newFakeStore())

	for _, target := range []string{
		"/api/analytics/revenue",
		"/api/analytics/capacity",
		"/api/analytics/cancellations",
		"/api/analytics/summary",
	} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, authedRequest(t, http.MethodGet, target, ""))
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d", target, rec.Code)
		}
	}
}

func TestCancellationRatePayload(t *testing.T) {
	mux := newServer(t, newFakeStore())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, authedRequest(t, http.MethodGet, "/api/analytics/cancellations", ""))

	var stats store.CancellationStats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.CancellationRate != 0.25 {
		t.Errorf("rate = %v", stats.CancellationRate)
	}
}
