package ergast

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseConfig(t *testing.T) {
	t.Setenv("F1_TEST_SEASON", "2021")

	tests := []struct {
		name    string
		yaml    string
		want    Config
		wantErr bool
	}{
		{
			name: "empty document keeps defaults",
			yaml: "",
			want: DefaultConfig(),
		},
		{
			name: "overrides and env expansion",
			yaml: "base_url: https://mirror.test/f1/\nseason: ${F1_TEST_SEASON}\nround: \"5\"\ntimeout: 3s\n",
			want: Config{BaseURL: "https://mirror.test/f1", Season: "2021", Round: "5", Timeout: 3 * time.Second},
		},
		{name: "relative base url", yaml: "base_url: /f1\n", wantErr: true},
		{name: "empty season", yaml: "season: \"\"\n", wantErr: true},
		{name: "negative timeout", yaml: "timeout: -1s\n", wantErr: true},
		{name: "malformed yaml", yaml: "season: [\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseConfig([]byte(tt.yaml))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseConfig: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil || cfg != DefaultConfig() {
		t.Fatalf("LoadConfig(\"\") = %+v, %v", cfg, err)
	}

	path := filepath.Join(t.TempDir(), "upstream.yaml")
	if err := os.WriteFile(path, []byte("season: \"2019\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Season != "2019" || cfg.BaseURL != DefaultBaseURL {
		t.Errorf("unexpected config: %+v", cfg)
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
