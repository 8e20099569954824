package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func resetState() {
	CloseAll()
	logsDir = ""
	workspace = ""
	config = loggingConfig{}
	logLevel = LevelInfo
}

func initDebugWorkspace(t *testing.T, configYAML string) string {
	t.Helper()
	ws := t.TempDir()
	dir := filepath.Join(ws, ".skillrouter")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(configYAML), 0644); err != nil {
		t.Fatal(err)
	}
	resetState()
	if err := Initialize(ws); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	t.Cleanup(resetState)
	return ws
}

func TestDebugModeWritesCategoryFiles(t *testing.T) {
	ws := initDebugWorkspace(t, "logging:\n  debug_mode: true\n  level: debug\n")

	if !IsDebugMode() {
		t.Fatal("debug mode should be enabled")
	}

	Matcher("ranked %d candidates", 3)
	SafetyDebug("check passed")
	CloseAll()

	date := time.Now().Format("2006-01-02")
	for _, category := range []Category{CategoryMatcher, CategorySafety} {
		path := filepath.Join(ws, ".skillrouter", "logs", date+"_"+string(category)+".log")
		data, err := os.ReadFile(path)
		if err != nil {
			t.Errorf("category %s: %v", category, err)
			continue
		}
		if len(data) == 0 {
			t.Errorf("category %s: empty log file", category)
		}
	}
}

func TestProductionModeIsSilent(t *testing.T) {
	ws := t.TempDir()
	resetState()
	if err := Initialize(ws); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	t.Cleanup(resetState)

	if IsDebugMode() {
		t.Error("no config file means production mode")
	}
	Router("this must go nowhere")

	if _, err := os.Stat(filepath.Join(ws, ".skillrouter", "logs")); !os.IsNotExist(err) {
		t.Error("logs directory should not exist in production mode")
	}
}

func TestCategoryFiltering(t *testing.T) {
	initDebugWorkspace(t, `logging:
  debug_mode: true
  categories:
    matcher: false
`)

	if IsCategoryEnabled(CategoryMatcher) {
		t.Error("matcher category is disabled in config")
	}
	if !IsCategoryEnabled(CategoryRouter) {
		t.Error("unlisted categories default to enabled")
	}
}

func TestLevelFiltering(t *testing.T) {
	ws := initDebugWorkspace(t, "logging:\n  debug_mode: true\n  level: warn\n")

	CatalogDebug("suppressed")
	Catalog("also suppressed")
	CatalogWarn("kept")
	CloseAll()

	date := time.Now().Format("2006-01-02")
	data, err := os.ReadFile(filepath.Join(ws, ".skillrouter", "logs", date+"_catalog.log"))
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	if strings.Contains(out, "suppressed") {
		t.Errorf("lower levels leaked:\n%s", out)
	}
	if !strings.Contains(out, "[WARN] kept") {
		t.Errorf("warn entry missing:\n%s", out)
	}
}
