package csvio_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/n2bg/internal/adapters/csvio"
	"github.com/okian/n2bg/internal/domain/background"
	"github.com/okian/n2bg/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCanonicalColumns(t *testing.T) {
	in := "E_vs_RHE,j A/cm2,scanrate,Segment #,PAR_file\n" +
		"0.05,-1.5e-4,0.01,1,N2_run1.par\n" +
		"0.10,-1.2e-4,0.01,1,N2_run1.par\n"

	batch, err := csvio.Read(context.Background(), strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, model.Sample{Potential: 0.05, CurrentDensity: -1.5e-4, ScanRate: 0.01, Segment: 1, Source: "N2_run1.par"}, batch[0])
	assert.Equal(t, 0.10, batch[1].Potential)
}

func TestReadAliasesAndDefaults(t *testing.T) {
	in := "\ufeff Potential ; Current_Density ; SCAN_RATE ; segment ; extra\n" +
		"0.5;2e-5;0.02;3.0;x\n"

	batch, err := csvio.Read(context.Background(), strings.NewReader(in),
		csvio.WithComma(';'), csvio.WithSource("fallback"))
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, 3, batch[0].Segment)
	assert.Equal(t, "fallback", batch[0].Source)
	assert.Equal(t, 0.02, batch[0].ScanRate)
}

func TestReadErrors(t *testing.T) {
	ctx := context.Background()

	_, err := csvio.Read(ctx, strings.NewReader(""))
	assert.ErrorIs(t, err, csvio.ErrNoHeader)

	_, err = csvio.Read(ctx, strings.NewReader("E_vs_RHE,j A/cm2\n0.1,0.2\n"))
	require.ErrorIs(t, err, csvio.ErrMissingColumn)
	assert.Contains(t, err.Error(), "scanrate")
	assert.Contains(t, err.Error(), "Segment #")

	_, err = csvio.Read(ctx, strings.NewReader("E_vs_RHE,j A/cm2,scanrate,Segment #\n0.1,abc,0.01,0\n"))
	require.ErrorIs(t, err, csvio.ErrParse)
	assert.Contains(t, err.Error(), "line 2")

	_, err = csvio.Read(ctx, strings.NewReader("E_vs_RHE,j A/cm2,scanrate,Segment #\n0.1,NaN,0.01,0\n"))
	assert.ErrorIs(t, err, csvio.ErrParse)

	_, err = csvio.Read(ctx, strings.NewReader("E_vs_RHE,j A/cm2,scanrate,Segment #\n0.1,0.2,0.01,1.5\n"))
	assert.ErrorIs(t, err, csvio.ErrParse)
}

func TestReadFileUsesPathAsSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "N2_cv.csv")
	require.NoError(t, os.WriteFile(path, []byte("E_vs_RHE,j A/cm2,scanrate,Segment #\n0.1,0.2,0.01,0\n"), 0o600))

	batch, err := csvio.ReadFile(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, path, batch[0].Source)

	_, err = csvio.ReadFile(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestWriteScanRoundTrip(t *testing.T) {
	batch := make(model.Batch, 2000)
	for i := range batch {
		batch[i] = model.Sample{
			Potential:      0.05 + float64(i)*0.0005,
			CurrentDensity: -1e-4 + float64(i)*1e-7,
			ScanRate:       0.02,
			Segment:        2,
			Source:         "run1",
		}
	}
	res := background.Select(context.Background(), batch, background.WithMaxScanRate(0.05))
	require.True(t, res.OK())

	var buf bytes.Buffer
	require.NoError(t, csvio.WriteScan(&buf, res.Scan))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2001)
	assert.Equal(t, "E_vs_RHE,j A/cm2,scanrate,Segment #,PAR_file,"+csvio.NormalizedColumn, lines[0])

	back, err := csvio.Read(context.Background(), &buf)
	require.NoError(t, err)
	assert.Equal(t, batch, back)
}

func TestWriteBatchOmitsNormalizedColumn(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, csvio.WriteBatch(&buf, model.Batch{{Potential: 1, CurrentDensity: 2, ScanRate: 0.01, Segment: 0, Source: "f"}}))
	assert.Equal(t, "E_vs_RHE,j A/cm2,scanrate,Segment #,PAR_file\n1,2,0.01,0,f\n", buf.String())
}
