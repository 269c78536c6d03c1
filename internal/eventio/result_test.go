package eventio

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/banshee-data/calo-impact/internal/clustermatch"
	"github.com/banshee-data/calo-impact/internal/geometry"
	"github.com/banshee-data/calo-impact/internal/impact"
	"github.com/banshee-data/calo-impact/internal/timeutil"
	"github.com/banshee-data/calo-impact/internal/version"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func sampleOutput() (Input, impact.Output) {
	in := Input{ID: "ev", TrackIDs: []string{"a", "b", "c"}}
	out := impact.Output{
		Positions: []r3.Vec{
			geometry.FromEtaPhi(0.4, 0.2, geometry.BarrelRadius),
			{},
			{X: 0, Y: 0, Z: geometry.EndcapZ},
		},
		Regions: []impact.Region{impact.RegionBarrel, impact.RegionNone, impact.RegionPositiveEndcap},
		Matches: []clustermatch.Match{
			{Index: 2, Distance: 0.05},
			clustermatch.Unmatched(),
			clustermatch.Unmatched(),
		},
	}
	return in, out
}

func TestNewResult(t *testing.T) {
	t.Parallel()

	in, out := sampleOutput()
	res, err := NewResult([]Input{in}, []impact.Output{out})
	require.NoError(t, err)

	_, err = uuid.Parse(res.RunID)
	assert.NoError(t, err)
	assert.Equal(t, version.String(), res.Version)
	require.Len(t, res.Events, 1)

	ev := res.Events[0]
	assert.Equal(t, "ev", ev.ID)
	assert.Equal(t, 1, ev.Barrel)
	assert.Equal(t, 1, ev.Endcap)
	assert.Equal(t, 1, ev.Failed)

	a := ev.Tracks[0]
	assert.Equal(t, "barrel", a.Region)
	assert.Equal(t, 2, a.Cluster)
	require.NotNil(t, a.Eta)
	require.NotNil(t, a.Distance)
	assert.InDelta(t, 0.4, *a.Eta, 1e-12)
	assert.InDelta(t, 0.2, *a.Phi, 1e-12)
	assert.Equal(t, 0.05, *a.Distance)

	b := ev.Tracks[1]
	assert.Equal(t, "none", b.Region)
	assert.Equal(t, [3]float64{}, b.Position)
	assert.Equal(t, clustermatch.NoMatch, b.Cluster)
	assert.Nil(t, b.Eta)
	assert.Nil(t, b.Distance)

	// On the beam axis eta is infinite and is left out.
	c := ev.Tracks[2]
	assert.Nil(t, c.Eta)
	require.NotNil(t, c.Phi)
	assert.Equal(t, 0.0, *c.Phi)
}

func TestNewResult_FixedClockAndRunID(t *testing.T) {
	t.Parallel()

	in, out := sampleOutput()
	id := uuid.MustParse("6f1c2b9e-3a41-4d7e-9c55-0b8e2f1a7d30")
	stamp := time.Date(2026, 10, 18, 9, 30, 0, 0, time.FixedZone("CEST", 2*3600))

	res, err := NewResult([]Input{in}, []impact.Output{out},
		WithClock(timeutil.NewMockClock(stamp)), WithRunID(id))
	require.NoError(t, err)
	assert.Equal(t, id.String(), res.RunID)
	assert.Equal(t, stamp.UTC(), res.CreatedAt)
	assert.Equal(t, time.UTC, res.CreatedAt.Location())
}

func TestNewResult_LengthMismatch(t *testing.T) {
	t.Parallel()

	in, out := sampleOutput()
	_, err := NewResult([]Input{in, in}, []impact.Output{out})
	assert.Error(t, err)

	in.TrackIDs = in.TrackIDs[:1]
	_, err = NewResult([]Input{in}, []impact.Output{out})
	assert.Error(t, err)
}

func TestWriteResult_JSON(t *testing.T) {
	t.Parallel()

	in, out := sampleOutput()
	res, err := NewResult([]Input{in}, []impact.Output{out})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteResult(&buf, res))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, res.RunID, decoded["run_id"])

	tracks := decoded["events"].([]any)[0].(map[string]any)["tracks"].([]any)
	failed := tracks[1].(map[string]any)
	assert.NotContains(t, failed, "distance")
	assert.NotContains(t, failed, "eta")
	assert.Equal(t, float64(-1), failed["cluster"])
}

func TestWriteResultFile(t *testing.T) {
	t.Parallel()

	in, out := sampleOutput()
	res, err := NewResult([]Input{in}, []impact.Output{out})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "nested", "results.json")
	require.NoError(t, WriteResultFile(path, res))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var back Result
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, res.RunID, back.RunID)
	assert.Len(t, back.Events[0].Tracks, 3)
}
