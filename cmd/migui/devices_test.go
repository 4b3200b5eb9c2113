package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/migui/internal/band"
)

func TestDevices_BadTemplateFailsBeforeAttach(t *testing.T) {
	// nothing listens here, so an attach attempt would fail differently
	_, err := executeRoot(t, "--endpoint", "ws://127.0.0.1:1/broker", "devices", "--template", "{{.Index")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid device template")
}

func TestDevices_ListAddresses(t *testing.T) {
	b := newTestBroker(t, "DeviceManager")

	out, err := executeRoot(t, "--endpoint", b.url, "devices", "-o", "addresses", "--scan-timeout", "1500ms")
	require.NoError(t, err)
	assert.Equal(t, testBand+"\n", out)

	_, timeoutMS := b.recorded()
	assert.Equal(t, int64(1500), timeoutMS)
}

func TestDevices_InfoPrintsLiveName(t *testing.T) {
	b := newTestBroker(t, "DeviceManager")

	out, err := executeRoot(t, "--endpoint", b.url, "devices", "info", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "address:   "+testBand+"\n")
	assert.Contains(t, out, "name:      MI1A\n")
	assert.Contains(t, out, "firmware:  1.2.3.4\n")
	assert.Contains(t, out, "steps:     1,000\n")
}

func TestDevices_SelfTestAndPair(t *testing.T) {
	b := newTestBroker(t, "DeviceManager")

	_, err := executeRoot(t, "--endpoint", b.url, "devices", "selftest", "MI")
	require.NoError(t, err)
	_, err = executeRoot(t, "--endpoint", b.url, "devices", "pair", testBand)
	require.NoError(t, err)

	writes, _ := b.recorded()
	require.Len(t, writes, 2)
	assert.Equal(t, bandWrite{Address: testBand, Handle: band.HandleTest, Data: band.SelfTestPayload()}, writes[0])
	assert.Equal(t, bandWrite{Address: testBand, Handle: band.HandlePair, Data: band.PairPayload()}, writes[1])
}
