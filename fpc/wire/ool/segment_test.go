package ool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteAndReadRoundTrip(t *testing.T) {
	payload := make([]byte, 100*1024)
	for i := range payload {
		payload[i] = byte(i % 256)
	}

	seg, err := Create(len(payload))
	require.NoError(t, err)
	defer func() { _ = Close(seg) }()

	require.NoError(t, WriteAndSeal(seg, payload))

	size, err := SizeOf(seg.FD)
	require.NoError(t, err)
	require.Equal(t, len(payload), size)

	got, err := MapAndCopy(seg)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestEmptyPayload(t *testing.T) {
	seg, err := Create(0)
	require.NoError(t, err)
	defer func() { _ = Close(seg) }()

	require.NoError(t, WriteAndSeal(seg, nil))
	got, err := MapAndCopy(seg)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestSegmentsAreIndependentlyAnonymous(t *testing.T) {
	segA, err := Create(16)
	require.NoError(t, err)
	defer func() { _ = Close(segA) }()

	segB, err := Create(16)
	require.NoError(t, err)
	defer func() { _ = Close(segB) }()

	require.NotEqual(t, segA.FD, segB.FD)
}
