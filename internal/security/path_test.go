package security

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "github.com/a3tai/mcp-legal-forms/internal/errors"
)

func TestNewPathValidator(t *testing.T) {
	_, err := NewPathValidator("")
	assert.Error(t, err)

	v, err := NewPathValidator("/non/existent/path", "", "/tmp/out")
	require.NoError(t, err)
	assert.Equal(t, []string{"/non/existent/path", "/tmp/out"}, v.Roots())
	assert.Equal(t, "/non/existent/path", v.BaseDirectory())
}

func TestResolve(t *testing.T) {
	docs := t.TempDir()
	out := t.TempDir()
	v, err := NewPathValidator(docs, out)
	require.NoError(t, err)

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{"relative to base", "forms/a.docx", filepath.Join(docs, "forms", "a.docx"), false},
		{"absolute inside base", filepath.Join(docs, "b.docx"), filepath.Join(docs, "b.docx"), false},
		{"inside output root", filepath.Join(out, "c.docx"), filepath.Join(out, "c.docx"), false},
		{"base itself", docs, docs, false},
		{"traversal", "../../etc/passwd", "", true},
		{"outside", "/etc/passwd", "", true},
		{"sibling prefix", docs + "-other/x.docx", "", true},
		{"empty", "", "", true},
		{"null bytes stripped", "a\x00.docx", filepath.Join(docs, "a.docx"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.Resolve(tt.path)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, ferrors.IsType(err, ferrors.ErrorTypePathViolation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.NoError(t, v.ValidatePath(tt.path))
		})
	}
}

func TestIsWithin_Symlink(t *testing.T) {
	docs := t.TempDir()
	outside := t.TempDir()
	target := filepath.Join(outside, "secret.docx")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o600))

	link := filepath.Join(docs, "link.docx")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	v, err := NewPathValidator(docs)
	require.NoError(t, err)
	assert.False(t, v.IsWithin(link))
	assert.Error(t, v.ValidatePath(link))
}

func TestValidateDirectory(t *testing.T) {
	docs := t.TempDir()
	v, err := NewPathValidator(docs)
	require.NoError(t, err)

	file := filepath.Join(docs, "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	got, err := v.ValidateDirectory(".")
	require.NoError(t, err)
	assert.Equal(t, docs, got)

	_, err = v.ValidateDirectory("not-yet-created")
	assert.NoError(t, err)

	_, err = v.ValidateDirectory(file)
	assert.Error(t, err)

	_, err = v.ValidateDirectory("/")
	assert.Error(t, err)
}
