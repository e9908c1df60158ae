// Package artifact structurally validates package archives before they are
// admitted to the registry. An archive is a zip whose root carries a
// metadata member describing the package and a manifest member listing its
// exported functions.
package artifact

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

const (
	// MetadataMember is the required archive member describing the package.
	MetadataMember = "__GSPROJECT__.json"

	// ManifestMember is the required archive member listing exported
	// functions. Only its presence is checked.
	ManifestMember = "functions.json"
)

// Config bounds the resources an archive may consume during inspection.
type Config struct {
	// MaxArchiveBytes caps the on-disk size of the archive file.
	MaxArchiveBytes int64
	// MaxUnpackedBytes caps the cumulative uncompressed size of all
	// members, guarding against decompression bombs.
	MaxUnpackedBytes int64
}

// DefaultConfig returns the registry's standard caps.
func DefaultConfig() Config {
	return Config{
		MaxArchiveBytes:  10 << 20,  // 10 MiB
		MaxUnpackedBytes: 100 << 20, // 100 MiB
	}
}

// Metadata is the schema of the metadata member. Pointers distinguish a
// missing key from an empty value.
type Metadata struct {
	Name        *string   `json:"name"`
	Version     *string   `json:"version"`
	Description *string   `json:"description"`
	License     *string   `json:"license"`
	Owners      *[]string `json:"owners"`
}

// Inspector validates archives against an expected registry entry.
type Inspector struct {
	cfg Config
}

// New creates an inspector with the given caps. Zero caps fall back to the
// defaults.
func New(cfg Config) *Inspector {
	def := DefaultConfig()
	if cfg.MaxArchiveBytes <= 0 {
		cfg.MaxArchiveBytes = def.MaxArchiveBytes
	}
	if cfg.MaxUnpackedBytes <= 0 {
		cfg.MaxUnpackedBytes = def.MaxUnpackedBytes
	}
	return &Inspector{cfg: cfg}
}

// NewDefault creates an inspector with the registry's standard caps.
func NewDefault() *Inspector {
	return New(DefaultConfig())
}

// inspection carries state between the ordered checks for one archive.
type inspection struct {
	path        string
	wantName    string
	wantVersion string

	info os.FileInfo
	zr   *zip.ReadCloser
	meta *Metadata
}

func (s *inspection) close() {
	if s.zr != nil {
		_ = s.zr.Close()
	}
}

// Inspect runs the ordered structural checks against the archive at path.
// The first failing check stops the sequence and its error is the single
// failure reported for this artifact; nil means every check passed.
func (i *Inspector) Inspect(path, wantName, wantVersion string) error {
	s := &inspection{path: path, wantName: wantName, wantVersion: wantVersion}
	defer s.close()

	checks := []func(*inspection) error{
		i.checkExists,
		i.checkSize,
		i.checkContainer,
		i.checkUnpackedSize,
		i.checkMetadata,
		i.checkIdentity,
		i.checkManifest,
		i.checkIntegrity,
	}
	for _, check := range checks {
		if err := check(s); err != nil {
			return err
		}
	}
	return nil
}

func (i *Inspector) checkExists(s *inspection) error {
	info, err := os.Stat(s.path)
	if err != nil {
		return fmt.Errorf("package file not found: %s", s.path)
	}
	s.info = info
	return nil
}

func (i *Inspector) checkSize(s *inspection) error {
	if s.info.Size() > i.cfg.MaxArchiveBytes {
		return fmt.Errorf("package file %s is %d bytes, exceeds the %d byte limit", s.path, s.info.Size(), i.cfg.MaxArchiveBytes)
	}
	return nil
}

func (i *Inspector) checkContainer(s *inspection) error {
	zr, err := zip.OpenReader(s.path)
	if err != nil {
		return fmt.Errorf("package file %s is not a valid zip archive", s.path)
	}
	s.zr = zr
	return nil
}

func (i *Inspector) checkUnpackedSize(s *inspection) error {
	var total uint64
	for _, f := range s.zr.File {
		total += f.UncompressedSize64
	}
	if total > uint64(i.cfg.MaxUnpackedBytes) {
		return fmt.Errorf("package file %s unpacks to %d bytes, exceeds the %d byte limit", s.path, total, i.cfg.MaxUnpackedBytes)
	}
	return nil
}

func (i *Inspector) checkMetadata(s *inspection) error {
	member := findMember(s.zr, MetadataMember)
	if member == nil {
		return fmt.Errorf("package file %s is missing %s", s.path, MetadataMember)
	}

	rc, err := member.Open()
	if err != nil {
		return fmt.Errorf("package file %s: open %s: %v", s.path, MetadataMember, err)
	}
	defer rc.Close()

	var meta Metadata
	if err := json.NewDecoder(rc).Decode(&meta); err != nil {
		return fmt.Errorf("package file %s: %s is not valid JSON", s.path, MetadataMember)
	}

	var missing []string
	for _, field := range []struct {
		name string
		set  bool
	}{
		{"name", meta.Name != nil},
		{"version", meta.Version != nil},
		{"description", meta.Description != nil},
		{"license", meta.License != nil},
		{"owners", meta.Owners != nil},
	} {
		if !field.set {
			missing = append(missing, field.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("package file %s: %s is missing required fields: %v", s.path, MetadataMember, missing)
	}

	s.meta = &meta
	return nil
}

func (i *Inspector) checkIdentity(s *inspection) error {
	if *s.meta.Name != s.wantName {
		return fmt.Errorf("package file %s declares name %q, registry entry says %q", s.path, *s.meta.Name, s.wantName)
	}
	if *s.meta.Version != s.wantVersion {
		return fmt.Errorf("package file %s declares version %q, registry entry says %q", s.path, *s.meta.Version, s.wantVersion)
	}
	return nil
}

func (i *Inspector) checkManifest(s *inspection) error {
	if findMember(s.zr, ManifestMember) == nil {
		return fmt.Errorf("package file %s is missing %s", s.path, ManifestMember)
	}
	return nil
}

// checkIntegrity reads every member to the end, which forces the zip
// reader to verify each member's checksum.
func (i *Inspector) checkIntegrity(s *inspection) error {
	for _, f := range s.zr.File {
		if err := readMember(f); err != nil {
			return fmt.Errorf("package file %s: member %s is corrupt: %v", s.path, f.Name, err)
		}
	}
	return nil
}

func readMember(f *zip.File) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	_, err = io.Copy(io.Discard, rc)
	return err
}

func findMember(zr *zip.ReadCloser, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}
