package blockdev_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adig2208/TerraFS/internal/blockdev"
	"github.com/adig2208/TerraFS/internal/ondisk"
)

func TestMemDeviceReadWriteRoundTrip(t *testing.T) {
	dev := blockdev.NewMemDevice(make([]byte, 10*ondisk.BlockSize))
	assert.EqualValues(t, 10, dev.TotalBlocks())

	payload := make([]byte, ondisk.BlockSize)
	for i := range payload {
		payload[i] = byte(i)
	}
	require.NoError(t, dev.WriteBlocks(3, payload))

	got := make([]byte, ondisk.BlockSize)
	require.NoError(t, dev.ReadBlocks(3, got))
	assert.Equal(t, payload, got)
}

func TestMemDeviceMultiBlockTransfer(t *testing.T) {
	dev := blockdev.NewMemDevice(make([]byte, 4*ondisk.BlockSize))
	buf := make([]byte, 2*ondisk.BlockSize)
	buf[0] = 0xAB
	buf[ondisk.BlockSize] = 0xCD
	require.NoError(t, dev.WriteBlocks(1, buf))

	got := make([]byte, 2*ondisk.BlockSize)
	require.NoError(t, dev.ReadBlocks(1, got))
	assert.Equal(t, byte(0xAB), got[0])
	assert.Equal(t, byte(0xCD), got[ondisk.BlockSize])
}

func TestMemDeviceOutOfBoundsPanics(t *testing.T) {
	dev := blockdev.NewMemDevice(make([]byte, 2*ondisk.BlockSize))
	buf := make([]byte, ondisk.BlockSize)
	assert.Panics(t, func() { dev.ReadBlocks(5, buf) })
	assert.Panics(t, func() { dev.WriteBlocks(2, buf) })
}

func TestMemDeviceRejectsNonBlockSizedBuffers(t *testing.T) {
	dev := blockdev.NewMemDevice(make([]byte, 2*ondisk.BlockSize))
	assert.Panics(t, func() { dev.ReadBlocks(0, make([]byte, 10)) })
}

func TestFlushIsANoOpOnMemDevice(t *testing.T) {
	dev := blockdev.NewMemDevice(make([]byte, ondisk.BlockSize))
	assert.NoError(t, dev.Flush())
}
