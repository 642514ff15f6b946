package service

import (
	"context"
	"errors"
	"testing"

	"bloomo-gateway/internal/metrics"

	"github.com/stretchr/testify/assert"
)

func TestRelay_EOF(t *testing.T) {
	stream := &scriptedStream{fragments: []string{"Hel", "", "lo", " world"}}
	w := &recordingWriter{}

	res := Relay(context.Background(), stream, w)

	assert.Equal(t, "Hello world", res.Text)
	assert.Equal(t, []string{"Hel", "lo", " world"}, w.fragments)
	assert.Equal(t, 3, res.Fragments)
	assert.NoError(t, res.Err)
	assert.False(t, res.Cancelled)
	assert.Equal(t, metrics.TerminationEOF, res.Reason())
	assert.True(t, w.closed)
	assert.True(t, stream.closed)
}

func TestRelay_ProviderFaultKeepsPartialText(t *testing.T) {
	fault := errors.New("connection reset")
	stream := &scriptedStream{fragments: []string{"Hello", " world"}, err: fault}
	w := &recordingWriter{}

	res := Relay(context.Background(), stream, w)

	assert.Equal(t, "Hello world", res.Text)
	assert.Equal(t, w.text(), res.Text)
	assert.ErrorIs(t, res.Err, fault)
	assert.Equal(t, metrics.TerminationFault, res.Reason())
	assert.True(t, w.closed)
}

func TestRelay_WriteFailureStopsPulling(t *testing.T) {
	stream := &scriptedStream{fragments: []string{"a", "b", "c", "d"}}
	w := &recordingWriter{failAfter: 2}

	res := Relay(context.Background(), stream, w)

	assert.True(t, res.Cancelled)
	assert.Equal(t, "ab", res.Text)
	assert.Equal(t, w.text(), res.Text)
	// 第三个片段写入失败后不再继续拉取
	assert.Equal(t, 3, stream.recvs)
	assert.True(t, stream.closed)
}

func TestRelay_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stream := &scriptedStream{fragments: []string{"a"}}
	w := &recordingWriter{}

	res := Relay(ctx, stream, w)

	assert.True(t, res.Cancelled)
	assert.Empty(t, res.Text)
	assert.Zero(t, stream.recvs)
	assert.Equal(t, metrics.TerminationCancelled, res.Reason())
	assert.True(t, stream.closed)
	assert.True(t, w.closed)
}
