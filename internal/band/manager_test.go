package band

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeManager answers DeviceManager calls through a JSON round trip, the
// way the websocket transport does.
type fakeManager struct {
	devices      []Device
	chars        map[string]map[string][]byte // address -> uuid -> bytes
	writes       []writeRequest
	lastDiscover discoverRequest
}

func (f *fakeManager) Identity() string  { return "DeviceManager" }
func (f *fakeManager) Transport() string { return "fake" }

func (f *fakeManager) Invoke(_ context.Context, method string, params any, reply any) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return err
	}

	var result any
	switch method {
	case MethodDiscover:
		if err := json.Unmarshal(raw, &f.lastDiscover); err != nil {
			return err
		}
		result = f.devices
	case MethodRead:
		var req readRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return err
		}
		data, ok := f.chars[req.Address][req.UUID]
		if !ok {
			return errors.New("characteristic not available")
		}
		result = data
	case MethodWrite:
		var req writeRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return err
		}
		f.writes = append(f.writes, req)
		return nil
	default:
		return errors.New("unknown method")
	}

	out, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return json.Unmarshal(out, reply)
}

const addr = "88:0F:10:11:22:33"

func newFake() *fakeManager {
	return &fakeManager{
		devices: []Device{
			{Address: addr, Name: "MI"},
			{Address: "88:0F:10:AA:BB:CC", Name: "MI"},
		},
		chars: map[string]map[string][]byte{
			addr: {
				UUIDBattery:    {55, 14, 9, 21, 18, 45, 0, 3, 0, 4},
				UUIDSteps:      {0xe8, 0x03},
				UUIDDeviceInfo: {0, 0, 0, 0, 4, 3, 2, 1},
				UUIDDeviceName: []byte("MI1A"),
				UUIDLEParams:   make([]byte, 12),
			},
		},
	}
}

func TestManager_Reads(t *testing.T) {
	fake := newFake()
	m := NewManager(fake)
	ctx := context.Background()

	devices, err := m.Devices(ctx)
	require.NoError(t, err)
	assert.Len(t, devices, 2)
	assert.Equal(t, int64(3000), fake.lastDiscover.TimeoutMS)

	battery, err := m.Battery(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, 55, battery.Level)
	assert.Equal(t, BatteryNotCharging, battery.Status)

	steps, err := m.Steps(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, 1000, steps)

	info, err := m.DeviceInfo(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, "1.2.3.4", info.FirmwareVersion)

	name, err := m.Name(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, "MI1A", name)

	_, err = m.LEParams(ctx, addr)
	assert.NoError(t, err)

	_, err = m.Battery(ctx, "00:00:00:00:00:00")
	assert.Error(t, err)
}

func TestManager_Writes(t *testing.T) {
	fake := newFake()
	m := NewManager(fake)
	ctx := context.Background()

	require.NoError(t, m.FlashLEDs(ctx, addr, 2, 4, 6))
	require.NoError(t, m.Locate(ctx, addr))
	require.NoError(t, m.SelfTest(ctx, addr))
	require.NoError(t, m.Pair(ctx, addr))
	require.NoError(t, m.SetUserInfo(ctx, addr, UserInfo{UID: 7, Alias: "0123456789"}))

	require.Len(t, fake.writes, 5)
	assert.Equal(t, writeRequest{Address: addr, Handle: HandleControlPoint, Data: []byte{0x0e, 2, 4, 6, 1}}, fake.writes[0])
	assert.Equal(t, HandleControlPoint, fake.writes[1].Handle)
	assert.Equal(t, []byte{0x08, 0x00}, fake.writes[1].Data)
	assert.Equal(t, HandleTest, fake.writes[2].Handle)
	assert.Equal(t, HandlePair, fake.writes[3].Handle)
	assert.Equal(t, HandleUserInfo, fake.writes[4].Handle)
	assert.Len(t, fake.writes[4].Data, 20)

	assert.ErrorIs(t, m.FlashLEDs(ctx, addr, 0, 0, 0), ErrLEDLevel)
	assert.ErrorIs(t, m.SetUserInfo(ctx, addr, UserInfo{Alias: "x"}), ErrAliasLength)
	assert.Len(t, fake.writes, 5)
}

func TestManager_Survey(t *testing.T) {
	fake := newFake()
	m := NewManager(fake)
	m.SetDiscoverTimeout(500 * time.Millisecond)

	statuses, err := m.Survey(context.Background())
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	assert.Equal(t, int64(500), fake.lastDiscover.TimeoutMS)

	require.NotNil(t, statuses[0].Battery)
	assert.Equal(t, 55, statuses[0].Battery.Level)
	assert.Empty(t, statuses[0].Err)

	assert.Nil(t, statuses[1].Battery)
	assert.Contains(t, statuses[1].Err, "characteristic not available")
}
