package hardware

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homewiseai/hwprobe/internal/constants"
	"github.com/homewiseai/hwprobe/internal/errors"
)

// scriptedSource returns its readings in order, repeating the last one.
type scriptedSource struct {
	readings []reading
	calls    atomic.Int32
}

type reading struct {
	info *Info
	err  error
}

func (s *scriptedSource) Read(context.Context) (*Info, error) {
	n := int(s.calls.Add(1)) - 1
	if n >= len(s.readings) {
		n = len(s.readings) - 1
	}
	r := s.readings[n]
	return r.info, r.err
}

func TestNewCollector_Defaults(t *testing.T) {
	c := NewCollector(&scriptedSource{})
	assert.Equal(t, constants.HardwareRetries, c.retries)
	assert.Equal(t, constants.HardwareRetryDelay, c.delay)
	assert.NotNil(t, c.logger)

	c = NewCollector(&scriptedSource{}, WithRetries(0), WithRetryDelay(-time.Second))
	assert.Equal(t, 1, c.retries)
	assert.Equal(t, time.Duration(0), c.delay)
}

func TestCollector_FirstAttemptSucceeds(t *testing.T) {
	src := &scriptedSource{readings: []reading{{info: validInfo()}}}

	info, err := NewCollector(src, WithRetryDelay(0)).Collect(context.Background())

	require.NoError(t, err)
	assert.Equal(t, validInfo(), info)
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestCollector_RetriesUntilValid(t *testing.T) {
	bad := validInfo()
	bad.CPUBrand = ""
	src := &scriptedSource{readings: []reading{
		{err: errors.New(errors.System, "transient")},
		{info: bad},
		{info: validInfo()},
	}}

	info, err := NewCollector(src, WithRetryDelay(time.Millisecond)).Collect(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "Apple M1 Pro", info.CPUBrand)
	assert.Equal(t, int32(3), src.calls.Load())
}

func TestCollector_LastErrorWins(t *testing.T) {
	bad := validInfo()
	bad.MemoryTotal = 0
	src := &scriptedSource{readings: []reading{
		{err: errors.New(errors.CPU, "first")},
		{info: bad},
	}}

	info, err := NewCollector(src, WithRetries(3), WithRetryDelay(time.Millisecond)).Collect(context.Background())

	require.Error(t, err)
	assert.Nil(t, info)
	assert.Equal(t, errors.Memory, errors.GetCode(err))
	assert.Equal(t, int32(3), src.calls.Load())
}

func TestCollector_HonorsCancellation(t *testing.T) {
	src := &scriptedSource{readings: []reading{{err: errors.New(errors.System, "down")}}}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := NewCollector(src, WithRetries(100), WithRetryDelay(time.Second)).Collect(ctx)

	require.Error(t, err)
	assert.Less(t, time.Since(start), 900*time.Millisecond)
	assert.Equal(t, int32(1), src.calls.Load())
}
