package nhdp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoopHysteresisIsAlwaysNeutral(t *testing.T) {
	var h NoopHysteresis
	l := &Link{}
	h.Update(l, 0)
	assert.Equal(t, HysteresisNeutral, h.Status(l))
}

func TestQualityHysteresisAcceptsAfterRepeatedHellos(t *testing.T) {
	h := NewQualityHysteresis()
	l := &Link{ID: 1}

	assert.Equal(t, HysteresisLost, h.Status(l))
	for i := 0; i < 10; i++ {
		h.Update(l, uint64(i))
	}
	assert.Equal(t, HysteresisNeutral, h.Status(l))
}

func TestQualityHysteresisDecaysToLost(t *testing.T) {
	h := NewQualityHysteresis()
	l := &Link{ID: 1}
	for i := 0; i < 10; i++ {
		h.Update(l, uint64(i))
	}
	require := assert.New(t)
	require.Equal(HysteresisNeutral, h.Status(l))

	for i := 0; i < 10; i++ {
		h.Decay(l)
	}
	assert.Equal(t, HysteresisLost, h.Status(l))
}

func TestQualityHysteresisForget(t *testing.T) {
	h := NewQualityHysteresis()
	l := &Link{ID: 1}
	h.Update(l, 0)
	h.Forget(l)
	assert.Equal(t, HysteresisLost, h.Status(l))
}
