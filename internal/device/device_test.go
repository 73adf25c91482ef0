package device

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onecta_bridge/internal/document"
	"onecta_bridge/internal/mapper"
	"onecta_bridge/internal/testutil"
	"onecta_bridge/internal/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func demandTarget(path string) types.WriteTarget {
	return types.WriteTarget{
		DeviceID:            testutil.DX4ID,
		EmbeddedID:          "climateControl",
		ManagementPointType: "climateControl",
		Characteristic:      mapper.CharDemandControl,
		Path:                path,
	}
}

func readDemand(t *testing.T, d *Device) mapper.ModeSet {
	t.Helper()
	var ms mapper.ModeSet
	var ok bool
	d.Read(func(doc document.Document) {
		c, found := mapper.Find(doc, "climateControl", "climateControl", mapper.CharDemandControl)
		require.True(t, found)
		ms, ok = mapper.ExtractModeSet(c.Value())
	})
	require.True(t, ok)
	return ms
}

func TestNewDevice(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	d := New(testutil.Snapshot(t, "dx4"), now)

	assert.Equal(t, testutil.DX4ID, d.ID)
	assert.Equal(t, "Werkkamer", d.Name())
	assert.True(t, d.Available())
	assert.Equal(t, now, d.LastUpdated())
	assert.Equal(t, uint64(1), d.Revision())
}

func TestApplyPatchModeAndFixedValue(t *testing.T) {
	d := New(testutil.Snapshot(t, "dx4"), time.Now())

	require.True(t, d.ApplyPatch(demandTarget("/currentMode"), "fixed"))
	require.True(t, d.ApplyPatch(demandTarget("/modes/fixed"), 60))

	ms := readDemand(t, d)
	assert.Equal(t, "fixed", ms.Current)
	assert.Equal(t, []string{"off", "auto", "fixed", "scheduled"}, ms.Values, "allowed values must survive the patch")
	r, ok := mapper.ExtractRange(ms.Mode(mapper.ModeFixed))
	require.True(t, ok)
	assert.Equal(t, 60.0, r.Value)
	assert.Equal(t, 40.0, r.Min)
}

func TestApplyPatchScalar(t *testing.T) {
	d := New(testutil.Snapshot(t, "dx4"), time.Now())
	target := types.WriteTarget{
		DeviceID:            testutil.DX4ID,
		EmbeddedID:          "climateControl",
		ManagementPointType: "climateControl",
		Characteristic:      mapper.CharOnOffMode,
	}
	require.True(t, d.ApplyPatch(target, "on"))

	d.Read(func(doc document.Document) {
		mp, ok := mapper.FindManagementPoint(doc, "climateControl", "climateControl")
		require.True(t, ok)
		v, _ := mapper.ScalarValue(mp, mapper.CharOnOffMode)
		assert.Equal(t, "on", v)
	})
}

func TestApplyPatchMissingTarget(t *testing.T) {
	d := New(testutil.Snapshot(t, "dx4"), time.Now())

	assert.False(t, d.ApplyPatch(demandTarget("/modes/unknown/deep"), 1))
	assert.False(t, d.ApplyPatch(demandTarget("bad pointer"), 1))

	target := demandTarget("/currentMode")
	target.EmbeddedID = "nope"
	assert.False(t, d.ApplyPatch(target, "auto"))
}

func TestApplySnapshotReplacesPatches(t *testing.T) {
	d := New(testutil.Snapshot(t, "dx4"), time.Now())
	require.True(t, d.ApplyPatch(demandTarget("/currentMode"), "off"))

	d.ApplySnapshot(testutil.Snapshot(t, "dx4"), time.Now())
	assert.Equal(t, "auto", readDemand(t, d).Current)
	assert.Equal(t, uint64(2), d.Revision())
}

func TestRegistryApply(t *testing.T) {
	r := NewRegistry(discardLogger())

	var events []string
	r.Subscribe(func(d *Device, removed bool) {
		if removed {
			events = append(events, "remove:"+d.ID)
			return
		}
		events = append(events, "update:"+d.ID)
	})

	r.Apply([]types.Snapshot{testutil.Snapshot(t, "dx4"), testutil.Snapshot(t, "altherma"), {"noid": true}})
	require.Len(t, r.List(), 2)
	assert.Equal(t, testutil.AlthermaID, r.List()[0].ID, "list is ordered by id")

	first, ok := r.Get(testutil.DX4ID)
	require.True(t, ok)

	r.Apply([]types.Snapshot{testutil.Snapshot(t, "dx4")})
	again, ok := r.Get(testutil.DX4ID)
	require.True(t, ok)
	assert.Same(t, first, again, "known devices are updated in place")
	assert.Equal(t, uint64(2), again.Revision())

	_, ok = r.Get(testutil.AlthermaID)
	assert.False(t, ok)
	assert.Contains(t, events, "remove:"+testutil.AlthermaID)
	assert.Len(t, events, 4)
}
