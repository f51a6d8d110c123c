package camera

import (
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDevice(id string) Device {
	return Device{
		ID:              id,
		UUID:            "a0f3b9e2-4c61-4d6e-9d5a-000000000001",
		Name:            "Front Door",
		Manufacturer:    "Virtual ONVIF",
		Model:           "Virtual Camera",
		FirmwareVersion: "1.0.0",
		MainStreamURL:   "rtsp://cam/main",
		SubStreamURL:    "rtsp://cam/sub",
		Enabled:         true,
	}
}

func newTestRegistry() *Registry {
	return NewRegistry(zerolog.Nop())
}

func TestUpsertAndGet(t *testing.T) {
	r := newTestRegistry()

	require.NoError(t, r.Upsert(testDevice("cam-1")))

	got, ok := r.Get("cam-1")
	require.True(t, ok)
	assert.Equal(t, "Front Door", got.Name)

	// Replacing the record keeps the same id.
	updated := testDevice("cam-1")
	updated.Name = "Back Door"
	require.NoError(t, r.Upsert(updated))

	got, ok = r.Get("cam-1")
	require.True(t, ok)
	assert.Equal(t, "Back Door", got.Name)
	assert.Equal(t, 1, r.Len())
}

func TestUpsertRejectsBadRecords(t *testing.T) {
	r := newTestRegistry()

	missing := testDevice("")
	assert.Error(t, r.Upsert(missing))

	badUUID := testDevice("cam-1")
	badUUID.UUID = "not-a-uuid"
	assert.Error(t, r.Upsert(badUUID))

	assert.Equal(t, 0, r.Len())
}

func TestFirstDeviceBecomesActive(t *testing.T) {
	r := newTestRegistry()

	_, ok := r.Active()
	assert.False(t, ok)

	require.NoError(t, r.Upsert(testDevice("cam-1")))
	require.NoError(t, r.Upsert(testDevice("cam-2")))

	active, ok := r.Active()
	require.True(t, ok)
	assert.Equal(t, "cam-1", active.ID)
}

func TestRemoveActiveReassigns(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.Upsert(testDevice("cam-1")))
	require.NoError(t, r.Upsert(testDevice("cam-2")))

	assert.True(t, r.Remove("cam-1"))

	active, ok := r.Active()
	require.True(t, ok)
	assert.Equal(t, "cam-2", active.ID)

	assert.True(t, r.Remove("cam-2"))
	_, ok = r.Active()
	assert.False(t, ok)

	assert.False(t, r.Remove("cam-2"))
}

func TestSetActive(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.Upsert(testDevice("cam-1")))
	require.NoError(t, r.Upsert(testDevice("cam-2")))

	require.NoError(t, r.SetActive("cam-2"))
	active, ok := r.Active()
	require.True(t, ok)
	assert.Equal(t, "cam-2", active.ID)

	assert.Error(t, r.SetActive("cam-9"))
}

func TestConcurrentUpserts(t *testing.T) {
	r := newTestRegistry()

	const n = 64
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d := testDevice(fmt.Sprintf("cam-%02d", i))
			assert.NoError(t, r.Upsert(d))
		}(i)
	}
	wg.Wait()

	devices := r.List()
	require.Len(t, devices, n)

	seen := make(map[string]bool, n)
	for _, d := range devices {
		seen[d.ID] = true
	}
	assert.Len(t, seen, n)

	_, ok := r.Active()
	assert.True(t, ok)
}

func TestHardwareID(t *testing.T) {
	d := testDevice("cam-1")
	assert.Equal(t, "VirtualONVIF-a0f3b9e2", d.HardwareID())

	assert.Equal(t, "", Device{}.HardwareID())
}
