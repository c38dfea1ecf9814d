package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "payload.zip")
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func digestOf(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func TestHashFile(t *testing.T) {
	content := []byte("driver payload bytes")
	path := writeTemp(t, content)

	got, err := HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, digestOf(content), got)
}

func TestHashFileMissing(t *testing.T) {
	_, err := HashFile(filepath.Join(t.TempDir(), "nope.zip"))
	assert.Error(t, err)
}

func TestVerifyFileMatch(t *testing.T) {
	content := []byte("matching content")
	path := writeTemp(t, content)

	require.NoError(t, VerifyFile(path, digestOf(content)))

	// The file must survive a successful verification.
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestVerifyFileCaseInsensitive(t *testing.T) {
	content := []byte("case test")
	path := writeTemp(t, content)

	upper := digestOf(content)
	for i, c := range upper {
		if c >= 'a' && c <= 'f' {
			upper = upper[:i] + string(c-32) + upper[i+1:]
		}
	}
	assert.NoError(t, VerifyFile(path, upper))
}

func TestVerifyFileMismatchDeletesFile(t *testing.T) {
	path := writeTemp(t, []byte("actual content"))
	wrong := digestOf([]byte("expected something else"))

	err := VerifyFile(path, wrong)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDigestMismatch)

	var mismatch *MismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, path, mismatch.Path)
	assert.Equal(t, wrong, mismatch.Expected)
	assert.Equal(t, digestOf([]byte("actual content")), mismatch.Actual)

	// Mismatch must purge the file so the cache cannot be poisoned.
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestVerifyFileIOErrorIsNotMismatch(t *testing.T) {
	err := VerifyFile(filepath.Join(t.TempDir(), "missing.zip"), digestOf([]byte("x")))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDigestMismatch)
}
