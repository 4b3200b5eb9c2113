package band

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statusFixture() []Status {
	return []Status{
		{Device: Device{Address: "88:0F:10:00:00:02", Name: "MI"}, Battery: &BatteryInfo{Level: 40}},
		{Device: Device{Address: "88:0F:10:00:00:01", Name: "Kitchen"}},
		{Device: Device{Address: "88:0F:10:00:00:03", Name: "bedroom"}, Battery: &BatteryInfo{Level: 90}},
	}
}

func addresses(statuses []Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = s.Address
	}
	return out
}

func TestSortStatuses(t *testing.T) {
	tests := []struct {
		name string
		opts SortOptions
		want []string
	}{
		{"name asc", DefaultSortOptions(), []string{"88:0F:10:00:00:03", "88:0F:10:00:00:01", "88:0F:10:00:00:02"}},
		{"address asc", SortOptions{SortByAddress, SortAsc}, []string{"88:0F:10:00:00:01", "88:0F:10:00:00:02", "88:0F:10:00:00:03"}},
		{"battery desc", SortOptions{SortByBattery, SortDesc}, []string{"88:0F:10:00:00:03", "88:0F:10:00:00:02", "88:0F:10:00:00:01"}},
		{"battery asc", SortOptions{SortByBattery, SortAsc}, []string{"88:0F:10:00:00:01", "88:0F:10:00:00:02", "88:0F:10:00:00:03"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			statuses := statusFixture()
			SortStatuses(statuses, tt.opts)
			assert.Equal(t, tt.want, addresses(statuses))
		})
	}
}

func TestSortStatuses_Empty(t *testing.T) {
	var statuses []Status
	SortStatuses(statuses, DefaultSortOptions())
	assert.Empty(t, statuses)
}

func TestParseSort(t *testing.T) {
	f, err := ParseSortField("B")
	require.NoError(t, err)
	assert.Equal(t, SortByBattery, f)

	f, err = ParseSortField("")
	require.NoError(t, err)
	assert.Equal(t, SortByName, f)

	_, err = ParseSortField("rssi")
	assert.Error(t, err)

	o, err := ParseSortOrder("descending")
	require.NoError(t, err)
	assert.Equal(t, SortDesc, o)

	_, err = ParseSortOrder("sideways")
	assert.Error(t, err)
}

func TestSearch(t *testing.T) {
	statuses := statusFixture()

	assert.Len(t, Search(statuses, ""), 3)
	assert.Equal(t, []string{"88:0F:10:00:00:01"}, addresses(Search(statuses, "KITCH")))
	assert.Equal(t, []string{"88:0F:10:00:00:03"}, addresses(Search(statuses, "00:03")))
	assert.Empty(t, Search(statuses, "garage"))
}

func TestLookup(t *testing.T) {
	devices := []Device{
		{Address: "88:0F:10:00:00:01", Name: "MI"},
		{Address: "88:0F:10:00:00:02", Name: "MI"},
		{Address: "88:0F:10:00:00:03", Name: "Kitchen"},
	}

	d, err := Lookup(devices, "2")
	require.NoError(t, err)
	assert.Equal(t, "88:0F:10:00:00:02", d.Address)

	d, err = Lookup(devices, "88:0f:10:00:00:03")
	require.NoError(t, err)
	assert.Equal(t, "Kitchen", d.Name)

	d, err = Lookup(devices, "kitchen")
	require.NoError(t, err)
	assert.Equal(t, "88:0F:10:00:00:03", d.Address)

	_, err = Lookup(devices, "0")
	assert.ErrorIs(t, err, ErrNoDevice)

	_, err = Lookup(devices, "4")
	assert.ErrorIs(t, err, ErrNoDevice)

	_, err = Lookup(devices, "garage")
	assert.ErrorIs(t, err, ErrNoDevice)

	_, err = Lookup(devices, "MI")
	assert.ErrorIs(t, err, ErrAmbiguous)
}

func TestManager_Select(t *testing.T) {
	f := newFake()
	m := NewManager(f)
	ctx := context.Background()

	got, err := m.Select(ctx, "88:0F:10:AA:BB:CC")
	require.NoError(t, err)
	assert.Equal(t, "88:0F:10:AA:BB:CC", got)
	assert.Zero(t, f.lastDiscover.TimeoutMS, "addresses skip discovery")

	got, err = m.Select(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, addr, got)
	assert.NotZero(t, f.lastDiscover.TimeoutMS)

	_, err = m.Select(ctx, "MI")
	assert.ErrorIs(t, err, ErrAmbiguous)
}
