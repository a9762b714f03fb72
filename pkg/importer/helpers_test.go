package importer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestDownloadIfMissing(t *testing.T) {
	hits := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte("code_postal,nom\n"))
	}))
	defer ts.Close()

	dest := filepath.Join(t.TempDir(), "refCP.csv")
	got, err := DownloadIfMissing(context.Background(), nil, ts.URL, dest)
	if err != nil || !got {
		t.Fatalf("DownloadIfMissing = %v, %v", got, err)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "code_postal,nom\n" {
		t.Errorf("content = %q", data)
	}

	got, err = DownloadIfMissing(context.Background(), nil, ts.URL, dest)
	if err != nil || got {
		t.Fatalf("second call = %v, %v; want no download", got, err)
	}
	if hits != 1 {
		t.Errorf("hits = %d, want 1", hits)
	}
}

func TestDownloadIfMissing_SingleAttempt(t *testing.T) {
	attempts := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	dest := filepath.Join(t.TempDir(), "fail.csv")
	if _, err := DownloadIfMissing(context.Background(), nil, ts.URL, dest); err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Errorf("failed download left %s behind", dest)
	}
	if _, err := os.Stat(dest + ".part"); !os.IsNotExist(err) {
		t.Error("failed download left a partial file behind")
	}
}
