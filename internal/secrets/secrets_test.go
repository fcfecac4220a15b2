// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/provider-verify/pkg/types"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
		want  Secrets
	}{
		{
			name: "reads key files and trims whitespace",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "google_places-api-key", "  gp_abc123  \n")
				writeFile(t, dir, "npi_registry-api-key", "npi_xyz789")
				return dir
			},
			want: Secrets{
				"google_places-api-key": "gp_abc123",
				"npi_registry-api-key":  "npi_xyz789",
			},
		},
		{
			name: "returns empty set for nonexistent directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "does-not-exist")
			},
			want: Secrets{},
		},
		{
			name:  "returns empty set for unset directory",
			setup: func(t *testing.T) string { return "" },
			want:  Secrets{},
		},
		{
			name: "skips empty files",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "state_license-api-key", "valid-key")
				writeFile(t, dir, "empty-key", "")
				writeFile(t, dir, "whitespace-only", "   \n\t  ")
				return dir
			},
			want: Secrets{"state_license-api-key": "valid-key"},
		},
		{
			name: "skips dotfiles and subdirectories",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, ".gitkeep", "")
				writeFile(t, dir, ".hidden-key", "secret")
				writeFile(t, dir, "practice_website-api-key", "pw_real")
				require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))
				return dir
			},
			want: Secrets{"practice_website-api-key": "pw_real"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.setup(t), nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadRejectsFileAsDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "not-a-dir", "x")

	_, err := Load(filepath.Join(dir, "not-a-dir"), nil)
	assert.ErrorContains(t, err, "reading secrets directory")
}

func TestAPIKey(t *testing.T) {
	s := Secrets{"google_places-api-key": "gp"}
	assert.Equal(t, "google_places-api-key", KeyName(types.SourceGooglePlaces))
	assert.Equal(t, "gp", s.APIKey(types.SourceGooglePlaces))
	assert.Empty(t, s.APIKey(types.SourceNPIRegistry))
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
