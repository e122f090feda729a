package inspect

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/crx-packager/internal/config"
	"github.com/oshokin/crx-packager/internal/container"
	domain "github.com/oshokin/crx-packager/internal/domain/crx"
	"github.com/oshokin/crx-packager/internal/service/packager"
)

const fixtureAppID = "dloiadjadghfhimookgmbpcacpppcagg"

// packFixture packs the fixture extension and returns the paths of the package and its description.
func packFixture(t *testing.T) (string, string) {
	t.Helper()

	dir := t.TempDir()
	testdata := filepath.Join("..", "..", "extension", "testdata")
	output := filepath.Join(dir, "ext.crx")
	description := filepath.Join(dir, "description.yaml")

	err := packager.Run(context.Background(), &packager.Options{
		ConfigPath: filepath.Join(dir, config.DefaultConfigFilename),
		Overrides: &config.Config{
			RootDirectory:  filepath.Join(testdata, "myFirstExtension"),
			PrivateKeyFile: filepath.Join(testdata, "key.pem"),
			Output:         output,
			Description:    description,
		},
	})
	require.NoError(t, err)

	return output, description
}

// TestRun_Report lists the identifier, block sizes and archive entries.
func TestRun_Report(t *testing.T) {
	t.Parallel()

	output, description := packFixture(t)

	var out bytes.Buffer

	report, err := Run(context.Background(), &Options{Path: output, Description: description}, &out)
	require.NoError(t, err)

	require.Equal(t, fixtureAppID, report.AppID)
	require.Equal(t, "My First Extension", report.Name)
	require.Equal(t, "1.0.0", report.Version)
	require.Equal(t, 162, report.PublicKeySize)
	require.Equal(t, 128, report.SignatureSize)
	require.Equal(t, report.Size, container.HeaderSize+report.PublicKeySize+report.SignatureSize+report.ArchiveSize)
	require.Len(t, report.Files, 2)
	require.Equal(t, "icon.png", report.Files[0].Name)
	require.Equal(t, domain.ManifestFilename, report.Files[1].Name)

	var decoded Report
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &decoded))
	require.Equal(t, *report, decoded)
}

// TestRun_Tampered rejects a package whose archive no longer matches the signature.
func TestRun_Tampered(t *testing.T) {
	t.Parallel()

	output, description := packFixture(t)

	data, err := os.ReadFile(output)
	require.NoError(t, err)

	data[len(data)-1] ^= 0xff

	tampered := filepath.Join(t.TempDir(), "tampered.crx")
	require.NoError(t, os.WriteFile(tampered, data, 0o600))

	_, err = Run(context.Background(), &Options{Path: tampered}, nil)
	require.ErrorIs(t, err, domain.ErrKey)

	_, err = Run(context.Background(), &Options{Path: tampered, Description: description}, nil)
	require.Error(t, err)
}

// TestInspect_Malformed reports format errors for non-container input.
func TestInspect_Malformed(t *testing.T) {
	t.Parallel()

	_, err := Inspect([]byte("PK\x03\x04 not a container"))
	require.ErrorIs(t, err, domain.ErrFormat)

	_, err = Run(context.Background(), &Options{}, nil)
	require.ErrorIs(t, err, domain.ErrConfig)
}
