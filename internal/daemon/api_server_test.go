package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mhingston/DriveTime/internal/api"
	"github.com/mhingston/DriveTime/internal/queue"
)

type queueStoreStub struct {
	items   []*queue.Item
	results []queue.ResultRecord
}

func (s *queueStoreStub) List(_ context.Context, statuses ...queue.Status) ([]*queue.Item, error) {
	if len(statuses) == 0 {
		return s.items, nil
	}
	var out []*queue.Item
	for _, item := range s.items {
		for _, status := range statuses {
			if item.Status == status {
				out = append(out, item)
			}
		}
	}
	return out, nil
}

func (s *queueStoreStub) Stats(context.Context) (queue.Stats, error) {
	return queue.Stats{Total: len(s.items), Pending: len(s.items)}, nil
}

func (s *queueStoreStub) GetByID(_ context.Context, id int64) (*queue.Item, error) {
	for _, item := range s.items {
		if item.ID == id {
			return item, nil
		}
	}
	return nil, nil
}

func (s *queueStoreStub) Results(context.Context, int64) ([]queue.ResultRecord, error) {
	return s.results, nil
}

func newStubServer() *apiServer {
	store := &queueStoreStub{items: []*queue.Item{
		{ID: 1, Origin: "Bath", Destination: "Bristol", Status: queue.StatusPending},
		{ID: 2, Origin: "York", Destination: "Leeds", Status: queue.StatusComplete},
	}}
	return &apiServer{queueSvc: api.NewQueueService(store)}
}

func TestAPIServerHandleQueue(t *testing.T) {
	srv := newStubServer()

	req := httptest.NewRequest(http.MethodGet, "/api/queue?status=complete", nil)
	w := httptest.NewRecorder()
	srv.handleQueue(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	var resp api.QueueListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(resp.Items))
	}
	if resp.Items[0].Origin != "York" {
		t.Fatalf("unexpected origin: %q", resp.Items[0].Origin)
	}
}

func TestAPIServerHandleQueueRejectsUnknownStatus(t *testing.T) {
	srv := newStubServer()

	req := httptest.NewRequest(http.MethodGet, "/api/queue?status=failed", nil)
	w := httptest.NewRecorder()
	srv.handleQueue(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestAPIServerHandleQueueItem(t *testing.T) {
	srv := newStubServer()

	tests := []struct {
		path string
		want int
	}{
		{"/api/queue/1", http.StatusOK},
		{"/api/queue/99", http.StatusNotFound},
		{"/api/queue/abc", http.StatusBadRequest},
		{"/api/queue/1/extra", http.StatusNotFound},
	}
	for _, tc := range tests {
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		w := httptest.NewRecorder()
		srv.handleQueueItem(w, req)
		if w.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.path, tc.want, w.Code)
		}
	}
}

func TestAuthMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name   string
		token  string
		header string
		want   int
	}{
		{"no token configured", "", "", http.StatusNoContent},
		{"missing header", "secret", "", http.StatusUnauthorized},
		{"wrong token", "secret", "Bearer nope", http.StatusUnauthorized},
		{"valid token", "secret", "Bearer secret", http.StatusNoContent},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			authMiddleware(tc.token, next).ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, w.Code)
			}
		})
	}
}
