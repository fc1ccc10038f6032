package wire

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"resource-booking/internal/data/repository"
	"resource-booking/pkg/utils"

	"go.uber.org/zap/zaptest"
)

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  json.RawMessage `json:"errors"`
}

type bookingBody struct {
	ID         string `json:"id"`
	ResourceID string `json:"resource_id"`
	UserID     string `json:"user_id"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	Status     string `json:"status"`
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	log := zaptest.NewLogger(t)

	repo, err := repository.NewRepository(repository.BackendMemory, repository.Backends{}, log)
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}

	config := &utils.Config{Reserve: utils.ReserveConfig{MaxAttempts: 3}}
	app := Wiring(repo, Deps{}, config, log)

	srv := httptest.NewServer(app.Router)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url string, body any) (*http.Response, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	var env envelope
	if resp.Header.Get("Content-Type") == "application/json" {
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
			t.Fatalf("decode envelope: %v", err)
		}
	}
	return resp, env
}

func reserveBody(resource, user, start, end string) map[string]string {
	return map[string]string{
		"resource_id": resource,
		"user_id":     user,
		"start_time":  start,
		"end_time":    end,
	}
}

func TestBookingLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	base := srv.URL + "/api/v1/bookings"

	resp, env := do(t, http.MethodPost, base, reserveBody("R", "u1", "2026-01-05T10:00:00Z", "2026-01-05T11:00:00Z"))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d (%s)", resp.StatusCode, env.Message)
	}
	var created bookingBody
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatalf("decode booking: %v", err)
	}
	if created.Status != "CREATED" || created.ResourceID != "R" {
		t.Fatalf("created = %+v", created)
	}
	if loc := resp.Header.Get("Location"); loc != "/api/v1/bookings/"+created.ID {
		t.Errorf("Location = %q", loc)
	}

	// overlap -> 409
	resp, env = do(t, http.MethodPost, base, reserveBody("R", "u2", "2026-01-05T10:30:00Z", "2026-01-05T11:30:00Z"))
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("overlap status = %d", resp.StatusCode)
	}
	if !bytes.Contains(env.Errors, []byte(created.ID)) {
		t.Errorf("conflict errors %s do not name %s", env.Errors, created.ID)
	}

	// adjacent -> 201
	resp, _ = do(t, http.MethodPost, base, reserveBody("R", "u2", "2026-01-05T11:00:00Z", "2026-01-05T12:00:00Z"))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("adjacent status = %d", resp.StatusCode)
	}

	resp, env = do(t, http.MethodGet, base+"/"+created.ID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", resp.StatusCode)
	}

	for i := 0; i < 2; i++ {
		resp, env = do(t, http.MethodPost, base+"/"+created.ID+"/cancel", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("cancel #%d status = %d", i+1, resp.StatusCode)
		}
		var cancelled bookingBody
		_ = json.Unmarshal(env.Data, &cancelled)
		if cancelled.Status != "CANCELLED" {
			t.Fatalf("cancel #%d status field = %s", i+1, cancelled.Status)
		}
	}

	// slot is free again
	resp, _ = do(t, http.MethodPost, base, reserveBody("R", "u3", "2026-01-05T10:00:00Z", "2026-01-05T11:00:00Z"))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("rebook status = %d", resp.StatusCode)
	}
}

func TestCreateBooking_BadRequests(t *testing.T) {
	srv := newTestServer(t)
	base := srv.URL + "/api/v1/bookings"

	tests := []struct {
		name string
		body any
	}{
		{"end before start", reserveBody("R", "u1", "2026-01-05T11:00:00Z", "2026-01-05T10:00:00Z")},
		{"empty interval", reserveBody("R", "u1", "2026-01-05T10:00:00Z", "2026-01-05T10:00:00Z")},
		{"missing resource", reserveBody("", "u1", "2026-01-05T10:00:00Z", "2026-01-05T11:00:00Z")},
		{"missing end", map[string]string{"resource_id": "R", "user_id": "u1", "start_time": "2026-01-05T10:00:00Z"}},
		{"bad timestamp", reserveBody("R", "u1", "tomorrow", "2026-01-05T11:00:00Z")},
		{"unknown field", map[string]string{"resource_id": "R", "user_id": "u1", "seat": "A1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, env := do(t, http.MethodPost, base, tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d (%s)", resp.StatusCode, env.Message)
			}
			if env.Status {
				t.Error("envelope status should be false")
			}
		})
	}
}

func TestNotFound(t *testing.T) {
	srv := newTestServer(t)
	base := srv.URL + "/api/v1/bookings/"

	for _, path := range []string{
		"0b7f2f8e-4a4e-4f7e-9d0c-5a8c1f0f6c11",
		"0b7f2f8e-4a4e-4f7e-9d0c-5a8c1f0f6c11/cancel",
		"not-a-uuid",
		"not-a-uuid/cancel",
	} {
		method := http.MethodGet
		if len(path) > 7 && path[len(path)-7:] == "/cancel" {
			method = http.MethodPost
		}
		resp, _ := do(t, method, base+path, nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("%s %s status = %d, want 404", method, path, resp.StatusCode)
		}
	}
}

func TestListUserBookings(t *testing.T) {
	srv := newTestServer(t)
	base := srv.URL + "/api/v1/bookings"

	starts := []string{"08", "09", "10"}
	for _, h := range starts {
		resp, _ := do(t, http.MethodPost, base, reserveBody("R", "alice", "2026-01-05T"+h+":00:00Z", "2026-01-05T"+h+":30:00Z"))
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("create status = %d", resp.StatusCode)
		}
	}

	resp, env := do(t, http.MethodGet, base+"?user_id=alice&page=1&per_page=2", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var page struct {
		Data       []bookingBody `json:"data"`
		Pagination struct {
			Total      int64 `json:"total"`
			TotalPages int   `json:"total_pages"`
		} `json:"pagination"`
	}
	if err := json.Unmarshal(env.Data, &page); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	if len(page.Data) != 2 || page.Pagination.Total != 3 || page.Pagination.TotalPages != 2 {
		t.Fatalf("page = %+v", page)
	}

	resp, env = do(t, http.MethodGet, base, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("no user status = %d", resp.StatusCode)
	}
	if err := json.Unmarshal(env.Data, &page); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	if len(page.Data) != 0 {
		t.Fatalf("no user returned %d bookings", len(page.Data))
	}
}

func TestConcurrentCreateOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	base := srv.URL + "/api/v1/bookings"

	const n = 10
	codes := make(chan int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			raw, _ := json.Marshal(reserveBody("R", "u", "2026-01-05T10:00:00Z", "2026-01-05T11:00:00Z"))
			resp, err := http.Post(base, "application/json", bytes.NewReader(raw))
			if err != nil {
				codes <- 0
				return
			}
			resp.Body.Close()
			codes <- resp.StatusCode
		}()
	}
	wg.Wait()
	close(codes)

	counts := map[int]int{}
	for c := range codes {
		counts[c]++
	}
	if counts[http.StatusCreated] != 1 || counts[http.StatusConflict] != n-1 {
		t.Fatalf("status counts = %v", counts)
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}
