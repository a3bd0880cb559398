package heroic

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/envtest/internal/clock"
	"github.com/starford/envtest/internal/testutil"
)

func newResolver(t *testing.T) (*Resolver, *testutil.HeroicHome) {
	t.Helper()
	home := testutil.NewHeroicHome(t)
	clk := &clock.Fixed{T: time.Date(2025, 3, 14, 9, 0, 0, 0, time.Local)}
	return NewResolver(home.Dir, clk, testutil.Logger()), home
}

func TestResolve_NothingInstalled(t *testing.T) {
	r, _ := newResolver(t)
	res := r.Resolve(context.Background(), "Hades")

	if res.AppName != "Hades" {
		t.Errorf("appname = %q", res.AppName)
	}
	if res.Timestamp != "2025-03-14T09:00:00.000000" {
		t.Errorf("timestamp = %q", res.Timestamp)
	}
	if string(res.HeroicConfig) != `"Not found"` {
		t.Errorf("heroic_config = %s", res.HeroicConfig)
	}
	if string(res.HeroicLibrary) != `"Not found"` {
		t.Errorf("heroic_library = %s", res.HeroicLibrary)
	}
	if res.Error != "" {
		t.Errorf("error = %q, want none", res.Error)
	}

	out, _ := json.Marshal(res)
	if strings.Contains(string(out), `"error"`) {
		t.Errorf("serialized result has error key: %s", out)
	}
}

func TestResolve_NumericUsesNativeLayout(t *testing.T) {
	r, home := newResolver(t)
	home.NativeConfig(t, "12345", `{"foo":"bar"}`)
	// Same name under the Flatpak layout must be ignored.
	home.FlatpakConfig(t, "12345", `{"wrong":true}`)

	res := r.Resolve(context.Background(), "12345")
	if !jsonEqual(t, res.HeroicConfig, `{"foo":"bar"}`) {
		t.Errorf("heroic_config = %s", res.HeroicConfig)
	}
	if string(res.HeroicLibrary) != `"Not found"` {
		t.Errorf("heroic_library = %s", res.HeroicLibrary)
	}
	if res.Error != "" {
		t.Errorf("error = %q", res.Error)
	}
}

func TestResolve_NameUsesFlatpakLayout(t *testing.T) {
	r, home := newResolver(t)
	home.FlatpakConfig(t, "Hollow Knight", `{"wineVersion":{"name":"GE-Proton"}}`)
	home.NativeConfig(t, "Hollow Knight", `{"wrong":true}`)

	res := r.Resolve(context.Background(), "Hollow Knight")
	if !jsonEqual(t, res.HeroicConfig, `{"wineVersion":{"name":"GE-Proton"}}`) {
		t.Errorf("heroic_config = %s", res.HeroicConfig)
	}
}

func TestResolve_LibraryFiltered(t *testing.T) {
	r, home := newResolver(t)
	home.Library(t, `{"games":[{"title":"Hollow Knight","appName":"x"},{"title":"Celeste"}]}`)

	res := r.Resolve(context.Background(), "Hollow Knight")
	if !jsonEqual(t, res.HeroicLibrary, `{"games":[{"title":"Hollow Knight","appName":"x"}]}`) {
		t.Errorf("heroic_library = %s", res.HeroicLibrary)
	}
	if string(res.HeroicConfig) != `"Not found"` {
		t.Errorf("heroic_config = %s", res.HeroicConfig)
	}
}

func TestResolve_LibraryUsedForNumericNames(t *testing.T) {
	r, home := newResolver(t)
	home.Library(t, `{"games":[{"title":"1942"}]}`)

	res := r.Resolve(context.Background(), "1942")
	if !jsonEqual(t, res.HeroicLibrary, `{"games":[{"title":"1942"}]}`) {
		t.Errorf("heroic_library = %s", res.HeroicLibrary)
	}
}

func TestResolve_MalformedConfigAborts(t *testing.T) {
	r, home := newResolver(t)
	home.FlatpakConfig(t, "Hades", `{"broken":`)
	home.Library(t, `{"games":[{"title":"Hades"}]}`)

	res := r.Resolve(context.Background(), "Hades")
	if res.Error == "" {
		t.Fatal("expected error")
	}
	if !strings.Contains(res.Error, "Hades.json") {
		t.Errorf("error should name the file: %q", res.Error)
	}
	if res.HeroicConfig != nil || res.HeroicLibrary != nil {
		t.Errorf("nothing should be populated after the failure: %+v", res)
	}
}

func TestResolve_MalformedLibraryKeepsConfig(t *testing.T) {
	r, home := newResolver(t)
	home.FlatpakConfig(t, "Hades", `{"ok":1}`)
	home.Library(t, `not json at all`)

	res := r.Resolve(context.Background(), "Hades")
	if res.Error == "" {
		t.Fatal("expected error")
	}
	if !jsonEqual(t, res.HeroicConfig, `{"ok":1}`) {
		t.Errorf("config populated before failure should be kept: %s", res.HeroicConfig)
	}
	if res.HeroicLibrary != nil {
		t.Errorf("heroic_library = %s, want absent", res.HeroicLibrary)
	}

	out, _ := json.Marshal(res)
	if strings.Contains(string(out), "heroic_library") {
		t.Errorf("absent library should not be serialized: %s", out)
	}
}

func TestResolve_ConfigIsDirectory(t *testing.T) {
	r, home := newResolver(t)
	p := filepath.Join(home.Dir, ".var", "app", "com.heroicgameslauncher.hgl",
		"config", "heroic", "GamesConfig", "Hades.json")
	if err := os.MkdirAll(p, 0o755); err != nil {
		t.Fatal(err)
	}

	res := r.Resolve(context.Background(), "Hades")
	if res.Error == "" {
		t.Error("expected error when config path is a directory")
	}
}

func TestResolve_TraversalNameNotFound(t *testing.T) {
	r, home := newResolver(t)
	if err := os.WriteFile(filepath.Join(home.Dir, "secret.json"), []byte(`{"secret":true}`), 0o644); err != nil {
		t.Fatal(err)
	}

	res := r.Resolve(context.Background(), "../../../../../secret")
	if string(res.HeroicConfig) != `"Not found"` {
		t.Errorf("heroic_config = %s", res.HeroicConfig)
	}
	if res.Error != "" {
		t.Errorf("error = %q", res.Error)
	}
}

func TestResolve_RawLibraryShape(t *testing.T) {
	r, home := newResolver(t)
	home.Library(t, `[{"title":"Hades"}]`)

	res := r.Resolve(context.Background(), "Hades")
	if !jsonEqual(t, res.HeroicLibrary, `[{"title":"Hades"}]`) {
		t.Errorf("heroic_library = %s", res.HeroicLibrary)
	}
}

func TestResolve_LongNameStillFiltersLibrary(t *testing.T) {
	r, home := newResolver(t)
	home.FlatpakConfig(t, "Other", `{}`)
	name := strings.Repeat("ゲ", 90)
	home.Library(t, `{"games":[{"title":"`+name+`","appName":"x"},{"title":"Other"}]}`)

	res := r.Resolve(context.Background(), name)
	if res.Error != "" {
		t.Fatalf("error = %q", res.Error)
	}
	if string(res.HeroicConfig) != `"Not found"` {
		t.Errorf("heroic_config = %s", res.HeroicConfig)
	}
	if !jsonEqual(t, res.HeroicLibrary, `{"games":[{"title":"`+name+`","appName":"x"}]}`) {
		t.Errorf("heroic_library = %s", res.HeroicLibrary)
	}
}

func TestReadJSONFile_NameTooLong(t *testing.T) {
	p := filepath.Join(t.TempDir(), strings.Repeat("n", 300)+".json")
	doc, found, err := readJSONFile(p)
	if err != nil || found || doc != nil {
		t.Errorf("readJSONFile = %s, %v, %v; want not found", doc, found, err)
	}
}
