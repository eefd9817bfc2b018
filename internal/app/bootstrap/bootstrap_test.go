package bootstrap

import (
	"context"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"nodecms/app/internal/config"
)

const seedFixture = `[
	{"type": "settings", "content": {"site_title": {"en": "Notes", "de": "Notizen"}, "footer": {"en": "Bye"}}},
	{"type": "post", "content": {"title": {"en": "Hello World", "de": "Hallo Welt"}, "body": {"en": "Some *text*"}, "date": "2024-05-01"}},
	{"type": "home", "content": {"heading": {"en": "Welcome", "de": "Willkommen"}}}
]`

func TestBuildRequiresDependencies(t *testing.T) {
	t.Parallel()

	if _, err := Build(context.Background(), Dependencies{Logger: silentLogger()}); err == nil {
		t.Fatalf("expected error without config")
	}
	if _, err := Build(context.Background(), Dependencies{Config: &config.Config{}}); err == nil {
		t.Fatalf("expected error without logger")
	}
}

func TestBuildCompilesAndServesSeededSite(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	seedPath := filepath.Join(dir, "seed.json")
	if err := os.WriteFile(seedPath, []byte(seedFixture), 0o644); err != nil {
		t.Fatalf("writing seed file failed: %v", err)
	}

	result, err := Build(context.Background(), Dependencies{
		Config: &config.Config{
			DBPath:               filepath.Join(dir, "data", "cms.db"),
			Webroot:              filepath.Join(dir, "webroot"),
			Langs:                []string{"en", "de"},
			SeedPath:             seedPath,
			CompileRateBurst:     1,
			CompileRatePerSecond: 1,
		},
		Logger: silentLogger(),
	})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	t.Cleanup(func() {
		if cleanupErr := result.Cleanup(); cleanupErr != nil {
			t.Errorf("cleanup failed: %v", cleanupErr)
		}
	})

	summary, err := result.Runner.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.Written != 4 {
		t.Fatalf("expected 4 written pages, got %+v", summary)
	}

	pages := map[string]string{
		"/en":                   "<title>Welcome | Notes</title>",
		"/de":                   "<title>Willkommen | Notizen</title>",
		"/en/post/2-hello-world": "<em>text</em>",
		"/de/post/2-hallo-welt":  "<em>text</em>",
	}
	for path, want := range pages {
		rec := httptest.NewRecorder()
		result.HTTPServer.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		if rec.Code != 200 {
			t.Fatalf("%s: expected status 200, got %d", path, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), want) {
			t.Fatalf("%s: expected %q in %s", path, want, rec.Body.String())
		}
	}

	again, err := result.Runner.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("second Run returned error: %v", err)
	}
	if again.Written != 0 || again.Kept != 5 {
		t.Fatalf("expected an idempotent second pass, got %+v", again)
	}
}

func silentLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
