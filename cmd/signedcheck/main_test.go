package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestExecuteRequiresOutputFlag(t *testing.T) {
	if code := execute([]string{}); code != exitFailure {
		t.Fatalf("expected exit %d without output flags, got %d", exitFailure, code)
	}
}

func TestExecuteRejectsBothOutputFlags(t *testing.T) {
	dir := t.TempDir()
	code := execute([]string{"--output", filepath.Join(dir, "a.json"), "--output-dir", dir})
	if code != exitFailure {
		t.Fatalf("expected exit %d, got %d", exitFailure, code)
	}
}

func TestExecuteExitCodes(t *testing.T) {
	cases := []struct {
		name string
		page string
		want int
	}{
		{name: "titles found", page: `<a href="/products/e" title="Elantris Signed">e</a>`, want: 0},
		{name: "no titles", page: `<a href="/products/m" title="Mistborn Signed">m</a>`, want: exitNoTitles},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tc.page))
			}))
			defer srv.Close()
			t.Setenv("SOURCE_URL", srv.URL)
			t.Setenv("STORAGE_TYPE", "none")
			t.Setenv("PUBLISHERS_FILE", "")
			t.Setenv("LOG_LEVEL", "error")

			out := filepath.Join(t.TempDir(), "snap.json")
			if code := execute([]string{"--output", out}); code != tc.want {
				t.Fatalf("expected exit %d, got %d", tc.want, code)
			}
			_, err := os.Stat(out)
			if tc.want == 0 && err != nil {
				t.Fatalf("expected snapshot written: %v", err)
			}
			if tc.want != 0 && !os.IsNotExist(err) {
				t.Fatalf("expected no snapshot, stat err=%v", err)
			}
		})
	}
}
