package artifact

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func metadataJSON(name, version string) string {
	return fmt.Sprintf(`{"name": %q, "version": %q, "description": "test package", "license": "MIT", "owners": ["alice"]}`, name, version)
}

// writeArchive builds a zip at path with the given members, stored
// uncompressed so tests can corrupt payload bytes in place.
func writeArchive(t *testing.T, path string, members map[string]string) {
	t.Helper()

	names := make([]string, 0, len(members))
	for name := range members {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Store})
		require.NoError(t, err)
		_, err = w.Write([]byte(members[name]))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func validArchive(t *testing.T, dir, name, version string) string {
	t.Helper()
	path := filepath.Join(dir, name+"-"+version+".zip")
	writeArchive(t, path, map[string]string{
		MetadataMember: metadataJSON(name, version),
		ManifestMember: `{"functions": []}`,
		"README.md":    "docs",
	})
	return path
}

func TestInspectValidArchive(t *testing.T) {
	path := validArchive(t, t.TempDir(), "foo-bar", "1.0.0")
	assert.NoError(t, NewDefault().Inspect(path, "foo-bar", "1.0.0"))
}

func TestInspectMissingFile(t *testing.T) {
	err := NewDefault().Inspect(filepath.Join(t.TempDir(), "nope.zip"), "foo", "1.0.0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestInspectSizeCheckedBeforeContents(t *testing.T) {
	// The file is oversized and also not a zip at all; only the size
	// violation is reported.
	path := filepath.Join(t.TempDir(), "big.zip")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte("x"), 2048), 0o644))

	err := New(Config{MaxArchiveBytes: 1024}).Inspect(path, "foo", "1.0.0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds the 1024 byte limit")
}

func TestInspectNotAnArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.zip")
	require.NoError(t, os.WriteFile(path, []byte("plain text"), 0o644))

	err := NewDefault().Inspect(path, "foo", "1.0.0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a valid zip archive")
}

func TestInspectUnpackedSizeCap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bomb.zip")
	writeArchive(t, path, map[string]string{
		MetadataMember: metadataJSON("foo", "1.0.0"),
		ManifestMember: "{}",
		"payload.bin":  strings.Repeat("A", 4096),
	})

	err := New(Config{MaxUnpackedBytes: 1024}).Inspect(path, "foo", "1.0.0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unpacks to")
}

func TestInspectMissingMetadataMember(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.zip")
	writeArchive(t, path, map[string]string{ManifestMember: "{}"})

	err := NewDefault().Inspect(path, "foo", "1.0.0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing "+MetadataMember)
}

func TestInspectMetadataNotJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.zip")
	writeArchive(t, path, map[string]string{
		MetadataMember: "{not json",
		ManifestMember: "{}",
	})

	err := NewDefault().Inspect(path, "foo", "1.0.0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not valid JSON")
}

func TestInspectMetadataMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.zip")
	writeArchive(t, path, map[string]string{
		MetadataMember: `{"name": "foo", "version": "1.0.0"}`,
		ManifestMember: "{}",
	})

	err := NewDefault().Inspect(path, "foo", "1.0.0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required fields")
	assert.Contains(t, err.Error(), "license")
}

func TestInspectIdentityMismatch(t *testing.T) {
	dir := t.TempDir()
	path := validArchive(t, dir, "foo", "1.0.0")

	err := NewDefault().Inspect(path, "other", "1.0.0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `declares name "foo"`)

	err = NewDefault().Inspect(path, "foo", "2.0.0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `declares version "1.0.0"`)
}

func TestInspectMissingManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.zip")
	writeArchive(t, path, map[string]string{
		MetadataMember: metadataJSON("foo", "1.0.0"),
	})

	err := NewDefault().Inspect(path, "foo", "1.0.0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing "+ManifestMember)
}

func TestInspectCorruptMember(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.zip")
	payload := strings.Repeat("CONTENT-", 64)
	writeArchive(t, path, map[string]string{
		MetadataMember: metadataJSON("foo", "1.0.0"),
		ManifestMember: "{}",
		"data.txt":     payload,
	})

	// Members are stored uncompressed, so the payload appears verbatim
	// in the file; flipping one byte breaks that member's checksum.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	idx := bytes.Index(raw, []byte(payload))
	require.GreaterOrEqual(t, idx, 0)
	raw[idx] ^= 0xff
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	err = NewDefault().Inspect(path, "foo", "1.0.0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt")
	assert.Contains(t, err.Error(), "data.txt")
}
