package extension

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/crx-packager/internal/archive"
	"github.com/oshokin/crx-packager/internal/container"
	domain "github.com/oshokin/crx-packager/internal/domain/crx"
	"github.com/oshokin/crx-packager/internal/keys"
	"github.com/oshokin/crx-packager/internal/repository/artifact"
)

const (
	fixtureRoot     = "testdata/myFirstExtension"
	fixtureCodebase = "http://localhost:8000/myFirstExtension.crx"
	fixtureAppID    = "dloiadjadghfhimookgmbpcacpppcagg"
)

func readFixture(t *testing.T, elem ...string) []byte {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(append([]string{"testdata"}, elem...)...))
	require.NoError(t, err)

	return data
}

func newExtension(t *testing.T) *Extension {
	t.Helper()

	ext, err := New(&Config{
		PrivateKey:    readFixture(t, "key.pem"),
		OutputPath:    filepath.Join(t.TempDir(), "out.crx"),
		Codebase:      fixtureCodebase,
		RootDirectory: fixtureRoot,
	})
	require.NoError(t, err)

	return ext
}

func loadedExtension(t *testing.T) *Extension {
	t.Helper()

	ext := newExtension(t)
	require.NoError(t, ext.Load(context.Background()))

	return ext
}

// TestNew rejects nil and empty configurations and accepts a complete one.
func TestNew(t *testing.T) {
	t.Parallel()

	_, err := New(nil)
	require.ErrorIs(t, err, domain.ErrConfig)

	_, err = New(&Config{})
	require.ErrorIs(t, err, domain.ErrConfig)

	_, err = New(&Config{RootDirectory: fixtureRoot, Codebase: "not a url"})
	require.ErrorIs(t, err, domain.ErrConfig)

	require.NotNil(t, newExtension(t))
}

// TestNew_CopiesConfig ensures later changes to the caller's config do not leak into the session.
func TestNew_CopiesConfig(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		PrivateKey:    readFixture(t, "key.pem"),
		RootDirectory: fixtureRoot,
	}

	ext, err := New(cfg)
	require.NoError(t, err)

	cfg.RootDirectory = "elsewhere"
	cfg.PrivateKey[0] = 'X'

	require.NoError(t, ext.Load(context.Background()))

	_, err = ext.Pack(context.Background())
	require.NoError(t, err)
}

// TestLoad covers directory loads, explicit file lists and prebuilt archives.
func TestLoad(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	require.NoError(t, newExtension(t).Load(ctx))

	ext := newExtension(t)
	require.NoError(t, ext.LoadFiles(ctx, []string{"manifest.json", "icon.png"}))
	require.Equal(t, []string{"icon.png", "manifest.json"}, ext.Files().Names())
	require.Equal(t, "My First Extension", ext.Manifest().Name)

	err := newExtension(t).LoadFiles(ctx, []string{"icon.png"})
	require.ErrorIs(t, err, domain.ErrValidation)

	err = newExtension(t).LoadArchive(ctx, []byte(""))
	require.ErrorIs(t, err, domain.ErrValidation)

	err = newExtension(t).LoadArchive(ctx, []byte("garbage"))
	require.ErrorIs(t, err, domain.ErrValidation)
}

// TestLoad_FailureKeepsState verifies that a failed reload leaves a loaded session intact.
func TestLoad_FailureKeepsState(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ext := loadedExtension(t)

	_, err := ext.Pack(ctx)
	require.NoError(t, err)

	require.ErrorIs(t, ext.LoadFiles(ctx, []string{"icon.png"}), domain.ErrValidation)

	id, err := ext.ID()
	require.NoError(t, err)
	require.Equal(t, fixtureAppID, id)
	require.Equal(t, []string{"icon.png", "manifest.json"}, ext.Files().Names())
}

// TestLoadArchive_Prebuilt loads a ZIP built elsewhere and repacks it.
func TestLoadArchive_Prebuilt(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	files, err := archive.ReadDir(fixtureRoot)
	require.NoError(t, err)

	data, err := archive.NewBuilder().Build(files)
	require.NoError(t, err)

	ext := newExtension(t)
	require.NoError(t, ext.LoadArchive(ctx, data))

	_, err = ext.Pack(ctx)
	require.NoError(t, err)

	contents, err := ext.LoadContents()
	require.NoError(t, err)
	require.Equal(t, data, contents)
}

// countingBuilder records calls made to the wrapped archive builder.
type countingBuilder struct {
	inner  ArchiveBuilder
	builds int
	parses int
}

func (b *countingBuilder) Build(files domain.Files) ([]byte, error) {
	b.builds++

	return b.inner.Build(files)
}

func (b *countingBuilder) Parse(data []byte) (domain.Files, error) {
	b.parses++

	return b.inner.Parse(data)
}

// recordingRepository keeps saved artifacts in memory.
type recordingRepository struct {
	saved map[string][]byte
}

func (r *recordingRepository) Load(_ context.Context, path string) ([]byte, error) {
	data, ok := r.saved[path]
	if !ok {
		return nil, artifact.ErrNotFound
	}

	return data, nil
}

func (r *recordingRepository) Save(_ context.Context, path string, data []byte) error {
	r.saved[path] = append([]byte(nil), data...)

	return nil
}

// TestOptions routes archive work and container writes through the configured collaborators.
func TestOptions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	builder := &countingBuilder{inner: archive.NewBuilder()}
	repository := &recordingRepository{saved: make(map[string][]byte)}

	ext, err := New(&Config{
		PrivateKey:    readFixture(t, "key.pem"),
		RootDirectory: fixtureRoot,
	}, WithArchiveBuilder(builder), WithRepository(repository), WithArchiveBuilder(nil))
	require.NoError(t, err)

	data, err := archive.NewBuilder().Build(readFixtureFiles(t))
	require.NoError(t, err)
	require.NoError(t, ext.LoadArchive(ctx, data))

	packed, err := ext.Pack(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, builder.parses)
	require.Equal(t, 1, builder.builds)

	require.NoError(t, ext.WriteFile("out/ext.crx"))
	require.Equal(t, packed, repository.saved["out/ext.crx"])
}

func readFixtureFiles(t *testing.T) domain.Files {
	t.Helper()

	files, err := archive.ReadDir(fixtureRoot)
	require.NoError(t, err)

	return files
}

// TestReload_Overwrites checks that a second load replaces rather than merges.
func TestReload_Overwrites(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ext := loadedExtension(t)

	_, err := ext.Pack(ctx)
	require.NoError(t, err)

	require.NoError(t, ext.LoadFiles(ctx, []string{"manifest.json"}))
	require.Equal(t, []string{"manifest.json"}, ext.Files().Names())

	// A reload drops the packed container.
	_, err = ext.LoadContents()
	require.ErrorIs(t, err, domain.ErrState)
}

// TestPack requires a load first and produces a parseable container.
func TestPack(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	_, err := newExtension(t).Pack(ctx)
	require.ErrorIs(t, err, domain.ErrState)

	ext := loadedExtension(t)

	data, err := ext.Pack(ctx)
	require.NoError(t, err)

	pkg, err := container.Parse(data)
	require.NoError(t, err)

	public, err := ext.GeneratePublicKey(ctx)
	require.NoError(t, err)
	require.Equal(t, public, pkg.PublicKey)
	require.Len(t, pkg.Signature, 128)
}

// TestPack_Idempotent asserts that repeated packs produce byte-identical containers.
func TestPack_Idempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ext := loadedExtension(t)

	first, err := ext.Pack(ctx)
	require.NoError(t, err)

	second, err := ext.Pack(ctx)
	require.NoError(t, err)
	require.Equal(t, first, second)

	other := loadedExtension(t)

	third, err := other.Pack(ctx)
	require.NoError(t, err)
	require.Equal(t, first, third)
}

// TestPack_GeneratedKeyIsReused checks that a generated key is cached for the session.
func TestPack_GeneratedKeyIsReused(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	ext, err := New(&Config{RootDirectory: fixtureRoot, GenerateKey: true})
	require.NoError(t, err)
	require.NoError(t, ext.Load(ctx))

	first, err := ext.Pack(ctx)
	require.NoError(t, err)

	second, err := ext.Pack(ctx)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

// TestWriteFile requires an explicit path and a packed container.
func TestWriteFile(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	require.ErrorIs(t, newExtension(t).WriteFile(""), domain.ErrConfig)
	require.ErrorIs(t, newExtension(t).WriteFile("/tmp/crx"), domain.ErrState)

	ext := loadedExtension(t)
	require.ErrorIs(t, ext.WriteFile(""), domain.ErrConfig)

	data, err := ext.Pack(ctx)
	require.NoError(t, err)
	require.ErrorIs(t, ext.WriteFile(""), domain.ErrConfig)

	path := filepath.Join(t.TempDir(), "nested", "build.crx")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("previous build"), 0o600))
	require.NoError(t, ext.WriteFile(path))

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, data, written)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, DefaultFileMode, info.Mode().Perm())

	// The replacement leaves no temporary files behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

// TestLoadContents returns the archive block with exactly the loaded entries.
func TestLoadContents(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	_, err := newExtension(t).LoadContents()
	require.ErrorIs(t, err, domain.ErrState)

	ext := loadedExtension(t)

	_, err = ext.LoadContents()
	require.ErrorIs(t, err, domain.ErrState)

	_, err = ext.Pack(ctx)
	require.NoError(t, err)

	contents, err := ext.LoadContents()
	require.NoError(t, err)

	files, err := archive.NewBuilder().Parse(contents)
	require.NoError(t, err)
	require.Equal(t, []string{"icon.png", "manifest.json"}, files.Names())

	if diff := cmp.Diff(ext.Files(), files); diff != "" {
		t.Fatalf("archive entries mismatch (-loaded +packed):\n%s", diff)
	}
}

// TestGenerateUpdateXML needs a codebase and a prior pack, then matches the expectation byte for byte.
func TestGenerateUpdateXML(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	noCodebase, err := New(&Config{RootDirectory: fixtureRoot})
	require.NoError(t, err)

	_, err = noCodebase.GenerateUpdateXML()
	require.ErrorIs(t, err, domain.ErrConfig)
	require.ErrorContains(t, err, "no URL provided for update.xml")

	ext := loadedExtension(t)

	_, err = ext.GenerateUpdateXML()
	require.ErrorIs(t, err, domain.ErrState)

	_, err = ext.Pack(ctx)
	require.NoError(t, err)

	got, err := ext.GenerateUpdateXML()
	require.NoError(t, err)
	require.Equal(t, string(readFixture(t, "expectations", "update.xml")), string(got))
}

// TestGenerateUpdateXML_VersionOverride prefers the configured version over manifest.json.
func TestGenerateUpdateXML_VersionOverride(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	ext, err := New(&Config{
		PrivateKey:    readFixture(t, "key.pem"),
		RootDirectory: fixtureRoot,
		Codebase:      fixtureCodebase,
		Version:       "9.9.9",
	})
	require.NoError(t, err)
	require.NoError(t, ext.Load(ctx))

	_, err = ext.Pack(ctx)
	require.NoError(t, err)

	got, err := ext.GenerateUpdateXML()
	require.NoError(t, err)
	require.Contains(t, string(got), "version='9.9.9'")
}

// TestGeneratePublicKey returns a 162-byte key and fails without key material.
func TestGeneratePublicKey(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	noKey, err := New(&Config{RootDirectory: fixtureRoot, Codebase: fixtureCodebase})
	require.NoError(t, err)

	_, err = noKey.GeneratePublicKey(ctx)
	require.ErrorIs(t, err, domain.ErrKey)

	public, err := newExtension(t).GeneratePublicKey(ctx)
	require.NoError(t, err)
	require.Len(t, public, 162)

	generated, err := New(&Config{RootDirectory: fixtureRoot, GenerateKey: true, KeyBits: keys.DefaultBits})
	require.NoError(t, err)

	public, err = generated.GeneratePublicKey(ctx)
	require.NoError(t, err)
	require.Len(t, public, 162)
}

// TestPack_PublicKeyOnly verifies that a session without a private key can neither
// report a public key nor sign.
func TestPack_PublicKeyOnly(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	public, err := newExtension(t).GeneratePublicKey(ctx)
	require.NoError(t, err)

	ext, err := New(&Config{PublicKey: public, RootDirectory: fixtureRoot})
	require.NoError(t, err)
	require.NoError(t, ext.Load(ctx))

	got, err := ext.GeneratePublicKey(ctx)
	require.ErrorIs(t, err, domain.ErrKey)
	require.Nil(t, got)

	_, err = ext.Pack(ctx)
	require.ErrorIs(t, err, domain.ErrKey)

	_, err = ext.ID()
	require.ErrorIs(t, err, domain.ErrState)
}

// TestCanceledContext stops loads and packs before they start.
func TestCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ext := newExtension(t)
	require.ErrorIs(t, ext.Load(ctx), context.Canceled)

	loaded := loadedExtension(t)

	_, err := loaded.Pack(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

// TestEndToEnd loads, packs and writes both the container and update.xml.
func TestEndToEnd(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ext := newExtension(t)
	dir := t.TempDir()

	require.NoError(t, ext.Load(ctx))

	_, err := ext.Pack(ctx)
	require.NoError(t, err)
	require.NoError(t, ext.WriteFile(filepath.Join(dir, "build.crx")))

	document, err := ext.GenerateUpdateXML()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "update.xml"), document, 0o600))

	id, err := ext.ID()
	require.NoError(t, err)
	require.Equal(t, fixtureAppID, id)
}
