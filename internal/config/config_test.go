package config

import (
	"path/filepath"
	"reflect"
	"testing"
)

func TestParseLanguages(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"en,de,ru", []string{"en", "de", "ru"}},
		{" EN , ,de", []string{"en", "de"}},
		{"", nil},
	}
	for _, tt := range tests {
		if got := ParseLanguages(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseLanguages(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DATA_PATH", "/tmp/scratch")
	t.Setenv("MAP_START_ZOOM", "6")
	t.Setenv("PREFERRED_LANGUAGES", "fr")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DataPath != "/tmp/scratch" {
		t.Errorf("DataPath = %q, want /tmp/scratch", cfg.DataPath)
	}
	if cfg.MapStartZoom != 6 {
		t.Errorf("MapStartZoom = %d, want 6", cfg.MapStartZoom)
	}
	if cfg.ZoomInterval != 7 {
		t.Errorf("ZoomInterval = %d, want 7", cfg.ZoomInterval)
	}
	if !reflect.DeepEqual(cfg.PreferredLanguages, []string{"fr"}) {
		t.Errorf("PreferredLanguages = %v, want [fr]", cfg.PreferredLanguages)
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() without source should fail")
	}
	cfg.SourcePBF = "planet.pbf"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
	cfg.Workers = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() with zero workers should fail")
	}
}

func TestAreaPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MapTargetPath = "/maps"
	if got, want := cfg.AreaPath(70, 41), filepath.Join("/maps", "70", "70-41.mtiles"); got != want {
		t.Errorf("AreaPath() = %q, want %q", got, want)
	}
	if got := cfg.LeafZoom(); got != 14 {
		t.Errorf("LeafZoom() = %d, want 14", got)
	}
}
