package ingest

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestFetchHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleCSV))
	}))
	defer srv.Close()

	body, err := FetchHTTP(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != sampleCSV {
		t.Errorf("body = %q", body)
	}
}

func TestFetchHTTPRetriesTransient(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	body, err := FetchHTTP(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "ok" {
		t.Errorf("body = %q", body)
	}
	if got := atomic.LoadInt32(&calls); got < 2 {
		t.Errorf("calls = %d, want at least 2", got)
	}
}

func TestFetchHTTPPermanentFailure(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	if _, err := FetchHTTP(srv.URL); err == nil {
		t.Fatal("expected error for 404")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("calls = %d, want 1 (no retries on client error)", got)
	}
}

func TestFetchDispatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleCSV))
	}))
	defer srv.Close()

	obs, err := Fetch(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if len(obs) != 4 {
		t.Errorf("len(obs) = %d, want 4", len(obs))
	}

	if _, err := Fetch("/local/path.csv"); err == nil {
		t.Error("expected error for unsupported source scheme")
	}
	if _, err := Fetch("ftp://hostonly"); err == nil {
		t.Error("expected error for ftp source without path")
	}
}
