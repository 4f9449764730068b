package fpc_test

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hadronlabs/fpc/fpc"
)

func TestScenarioARequestReply(t *testing.T) {
	a, b, err := fpc.Pair()
	require.NoError(t, err)
	defer func() { _ = a.Stop() }()
	defer func() { _ = b.Stop() }()

	bIncoming, err := b.Incoming()
	require.NoError(t, err)

	go func() {
		m := <-bIncoming
		_ = b.Reply(m.Token(), fpc.Message{ID: 101, Payload: []byte("b-reply")})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	reply, err := a.Request(ctx, fpc.Message{ID: 100, Payload: []byte("a-request")})
	require.NoError(t, err)
	require.Equal(t, fpc.MessageID(101), reply.ID)
	require.Equal(t, "b-reply", string(reply.Payload))
	require.NotZero(t, reply.Correlation)
}

func TestScenarioBLargePayloadOverOOL(t *testing.T) {
	a, b, err := fpc.Pair(fpc.WithInlineThreshold(4096))
	require.NoError(t, err)
	defer func() { _ = a.Stop() }()
	defer func() { _ = b.Stop() }()

	payload := make([]byte, 100*1024)
	for i := range payload {
		payload[i] = byte(i % 256)
	}

	bIncoming, err := b.Incoming()
	require.NoError(t, err)

	go func() {
		m := <-bIncoming
		reply := fpc.Message{ID: 103, Payload: []byte(strconv.Itoa(len(m.Payload)))}
		_ = b.Reply(m.Token(), reply)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	reply, err := a.Request(ctx, fpc.Message{ID: 102, Payload: payload})
	require.NoError(t, err)
	require.Equal(t, fpc.MessageID(103), reply.ID)
	require.Equal(t, strconv.Itoa(len(payload)), string(reply.Payload))
}

func TestScenarioCMultiDescriptorPassing(t *testing.T) {
	a, b, err := fpc.Pair()
	require.NoError(t, err)
	defer func() { _ = a.Stop() }()
	defer func() { _ = b.Stop() }()

	contents := []string{"file0:u0", "file1:u1", "file2:u2"}
	var descs []fpc.DescriptorRef
	var files []*os.File
	for _, c := range contents {
		f, err := os.CreateTemp(t.TempDir(), "fpc-desc-*")
		require.NoError(t, err)
		_, err = f.WriteString(c)
		require.NoError(t, err)
		_, err = f.Seek(0, 0)
		require.NoError(t, err)
		files = append(files, f)
		descs = append(descs, fpc.DescriptorRef{FD: int(f.Fd()), Kind: fpc.KindFile})
	}
	defer func() {
		for _, f := range files {
			_ = f.Close()
		}
	}()

	bIncoming, err := b.Incoming()
	require.NoError(t, err)

	received := make(chan fpc.Message, 1)
	go func() {
		m := <-bIncoming
		received <- m
		_ = b.Reply(m.Token(), fpc.Message{ID: 105})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = a.Request(ctx, fpc.Message{ID: 104, Descriptors: descs})
	require.NoError(t, err)

	m := <-received
	require.Len(t, m.Descriptors, 3)
	for i, want := range contents {
		require.Equal(t, fpc.KindFile, m.Descriptors[0].Kind)
		fd, ok := m.TakeDescriptor(0, fpc.KindFile)
		require.True(t, ok)
		buf := make([]byte, len(want))
		n, err := os.NewFile(uintptr(fd), "").ReadAt(buf, 0)
		require.NoError(t, err)
		require.Equal(t, want, string(buf[:n]))
	}
}

func TestScenarioDUnsolicitedBurstAndDoneMarker(t *testing.T) {
	a, b, err := fpc.Pair()
	require.NoError(t, err)
	defer func() { _ = a.Stop() }()
	defer func() { _ = b.Stop() }()

	bIncoming, err := b.Incoming()
	require.NoError(t, err)

	go func() {
		m := <-bIncoming
		n, _ := strconv.Atoi(string(m.Payload))
		for i := 0; i < n; i++ {
			_ = b.Send(fpc.Message{ID: 106, Payload: []byte(strconv.Itoa(i))})
		}
		_ = b.Send(fpc.Message{ID: 107})
	}()

	require.NoError(t, a.Send(fpc.Message{ID: 108, Payload: []byte("5")}))

	aIncoming, err := a.Incoming()
	require.NoError(t, err)

	var got []fpc.Message
	for i := 0; i < 6; i++ {
		select {
		case m := <-aIncoming:
			got = append(got, m)
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for burst messages")
		}
	}

	for i := 0; i < 5; i++ {
		require.Equal(t, fpc.MessageID(106), got[i].ID)
		require.Equal(t, strconv.Itoa(i), string(got[i].Payload))
	}
	require.Equal(t, fpc.MessageID(107), got[5].ID)
}

func TestScenarioEReplyIsolation(t *testing.T) {
	a, b, err := fpc.Pair()
	require.NoError(t, err)
	defer func() { _ = a.Stop() }()
	defer func() { _ = b.Stop() }()

	bIncoming, err := b.Incoming()
	require.NoError(t, err)
	go func() {
		m := <-bIncoming
		_ = b.Reply(m.Token(), fpc.Message{ID: 200})
	}()

	aIncoming, err := a.Incoming()
	require.NoError(t, err)

	sawReplyOnIncoming := make(chan struct{})
	go func() {
		select {
		case m := <-aIncoming:
			if m.ID == 200 {
				close(sawReplyOnIncoming)
			}
		case <-time.After(200 * time.Millisecond):
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	reply, err := a.Request(ctx, fpc.Message{ID: 100})
	require.NoError(t, err)
	require.Equal(t, fpc.MessageID(200), reply.ID)

	select {
	case <-sawReplyOnIncoming:
		t.Fatal("reply leaked onto incoming()")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestPairBidirectionalConcurrentRequests(t *testing.T) {
	a, b, err := fpc.Pair()
	require.NoError(t, err)
	defer func() { _ = a.Stop() }()
	defer func() { _ = b.Stop() }()

	aIncoming, err := a.Incoming()
	require.NoError(t, err)
	bIncoming, err := b.Incoming()
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		m := <-aIncoming
		_ = a.Reply(m.Token(), fpc.Message{ID: 2, Payload: []byte("from-a")})
	}()
	go func() {
		defer wg.Done()
		m := <-bIncoming
		_ = b.Reply(m.Token(), fpc.Message{ID: 2, Payload: []byte("from-b")})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var aReply, bReply fpc.Message
	var aErr, bErr error
	var rwg sync.WaitGroup
	rwg.Add(2)
	go func() {
		defer rwg.Done()
		bReply, bErr = b.Request(ctx, fpc.Message{ID: 1, Payload: []byte("from-b-req")})
	}()
	go func() {
		defer rwg.Done()
		aReply, aErr = a.Request(ctx, fpc.Message{ID: 1, Payload: []byte("from-a-req")})
	}()
	rwg.Wait()
	wg.Wait()

	require.NoError(t, aErr)
	require.NoError(t, bErr)
	require.Equal(t, "from-b", string(aReply.Payload))
	require.Equal(t, "from-a", string(bReply.Payload))
}

func TestFIFOOutboundOrdering(t *testing.T) {
	a, b, err := fpc.Pair()
	require.NoError(t, err)
	defer func() { _ = a.Stop() }()
	defer func() { _ = b.Stop() }()

	bIncoming, err := b.Incoming()
	require.NoError(t, err)

	const n = 50
	for i := 0; i < n; i++ {
		require.NoError(t, a.Send(fpc.Message{ID: fpc.MessageID(300 + i)}))
	}

	for i := 0; i < n; i++ {
		select {
		case m := <-bIncoming:
			require.Equal(t, fpc.MessageID(300+i), m.ID, fmt.Sprintf("message %d out of order", i))
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for fifo message")
		}
	}
}

func TestRequestTimesOutWithoutReply(t *testing.T) {
	a, b, err := fpc.Pair()
	require.NoError(t, err)
	defer func() { _ = a.Stop() }()
	defer func() { _ = b.Stop() }()

	bIncoming, err := b.Incoming()
	require.NoError(t, err)
	go func() { <-bIncoming }() // receive and never reply

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = a.Request(ctx, fpc.Message{ID: 100})
	require.ErrorIs(t, err, fpc.ErrRequestCanceled)
}

func TestLifecycleIdempotence(t *testing.T) {
	a, b, err := fpc.Pair()
	require.NoError(t, err)
	defer func() { _ = b.Stop() }()

	a.Start() // already started by Pair; must be a no-op
	require.NoError(t, a.Stop())
	require.NoError(t, a.Stop()) // stop on stopped is a no-op returning the same result
}

func TestStopDrainsPendingRequests(t *testing.T) {
	a, b, err := fpc.Pair()
	require.NoError(t, err)
	defer func() { _ = b.Stop() }()

	done := make(chan error, 1)
	go func() {
		_, err := a.Request(context.Background(), fpc.Message{ID: 1})
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, a.Stop())

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("pending request did not drain after stop")
	}
}

func TestStreamSingleClaim(t *testing.T) {
	a, b, err := fpc.Pair()
	require.NoError(t, err)
	defer func() { _ = a.Stop() }()
	defer func() { _ = b.Stop() }()

	_, err = a.Incoming()
	require.NoError(t, err)

	_, err = a.Incoming()
	require.ErrorIs(t, err, fpc.ErrStreamAlreadyClaimed)
}

func TestPeerCredentials(t *testing.T) {
	a, b, err := fpc.Pair()
	require.NoError(t, err)
	defer func() { _ = a.Stop() }()
	defer func() { _ = b.Stop() }()

	creds, err := a.PeerCredentials()
	require.NoError(t, err)
	require.Equal(t, uint32(os.Getuid()), creds.UID)
	require.Equal(t, int32(os.Getpid()), creds.PID)
}
