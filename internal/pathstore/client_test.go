package pathstore

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

type kvServer struct {
	mu     sync.Mutex
	nodes  map[string]json.RawMessage
	status int // forced status for every request when non-zero
}

func newKVServer(t *testing.T) (*kvServer, *Client) {
	t.Helper()
	kv := &kvServer{nodes: map[string]json.RawMessage{}}
	srv := httptest.NewServer(kv)
	t.Cleanup(srv.Close)
	return kv, NewClient(srv.URL+"/", "test-key", WithHTTPClient(srv.Client()))
}

func (kv *kvServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer test-key" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	kv.mu.Lock()
	defer kv.mu.Unlock()
	if kv.status != 0 {
		w.WriteHeader(kv.status)
		io.WriteString(w, "forced")
		return
	}
	key := r.URL.Path[len("/kv/"):]
	switch r.Method {
	case http.MethodPut:
		var req struct {
			Value json.RawMessage `json:"value"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		kv.nodes[key] = req.Value
		w.WriteHeader(http.StatusCreated)
	case http.MethodGet:
		v, ok := kv.nodes[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"key_path": key, "value": v})
	case http.MethodDelete:
		if _, ok := kv.nodes[key]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		delete(kv.nodes, key)
		w.WriteHeader(http.StatusNoContent)
	}
}

func TestClient_PutGetDelete(t *testing.T) {
	_, c := newKVServer(t)
	ctx := context.Background()

	if err := c.PutNode(ctx, "docread/documents/d1", NodeRequest{Value: map[string]string{"content": "hi"}}); err != nil {
		t.Fatalf("PutNode: %v", err)
	}
	node, err := c.GetNode(ctx, "docread/documents/d1")
	if err != nil {
		t.Fatalf("GetNode: %v", err)
	}
	var v map[string]string
	if err := json.Unmarshal(node.Value, &v); err != nil || v["content"] != "hi" {
		t.Errorf("unexpected value %s (%v)", node.Value, err)
	}

	if err := c.DeleteNode(ctx, "docread/documents/d1", true); err != nil {
		t.Fatalf("DeleteNode: %v", err)
	}
	if _, err := c.GetNode(ctx, "docread/documents/d1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := c.DeleteNode(ctx, "docread/documents/d1", false); err != nil {
		t.Errorf("deleting a missing key should succeed, got %v", err)
	}
}

func TestClient_RetryableOnServerError(t *testing.T) {
	for _, status := range []int{http.StatusTooManyRequests, http.StatusBadGateway} {
		kv, c := newKVServer(t)
		kv.status = status
		err := c.PutNode(context.Background(), "k", NodeRequest{Value: 1})
		var re *RetryableError
		if !errors.As(err, &re) {
			t.Fatalf("status %d: expected RetryableError, got %v", status, err)
		}
		if re.StatusCode != status {
			t.Errorf("expected status %d, got %d", status, re.StatusCode)
		}
	}
}

func TestClient_ClientErrorNotRetryable(t *testing.T) {
	kv, c := newKVServer(t)
	kv.status = http.StatusBadRequest
	err := c.PutNode(context.Background(), "k", NodeRequest{Value: 1})
	if err == nil {
		t.Fatal("expected error")
	}
	var re *RetryableError
	if errors.As(err, &re) {
		t.Errorf("400 should not be retryable: %v", err)
	}
}
