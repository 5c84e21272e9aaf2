package fetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRepoURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
		owner   string
		repo    string
	}{
		{
			name:  "https URL",
			url:   "https://github.com/OCA/library-management",
			owner: "OCA",
			repo:  "library-management",
		},
		{
			name:  "https URL with .git",
			url:   "https://github.com/OCA/library-management.git",
			owner: "OCA",
			repo:  "library-management",
		},
		{
			name:  "SSH URL",
			url:   "git@github.com:OCA/library-management.git",
			owner: "OCA",
			repo:  "library-management",
		},
		{
			name:    "non-github host",
			url:     "https://gitlab.com/OCA/library-management",
			wantErr: true,
		},
		{
			name:    "missing repo segment",
			url:     "https://github.com/OCA",
			wantErr: true,
		},
		{
			name:    "malformed SSH URL",
			url:     "git@github.com",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := ParseRepoURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.owner, info.Owner)
			assert.Equal(t, tt.repo, info.Name)
			assert.Equal(t, "https://github.com/OCA/library-management.git", info.CloneURL)
			assert.Equal(t, "main", info.Branch)
		})
	}
}

func TestCleanup_NilResult(t *testing.T) {
	s := NewService(t.TempDir(), "")
	s.Cleanup(nil)
	s.Cleanup(&CloneResult{})
}
