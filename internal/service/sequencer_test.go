package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGeneration_DropsOutOfOrderResponses(t *testing.T) {
	var g generation
	first := g.next()
	second := g.next()

	assert.True(t, g.accept(second))
	assert.False(t, g.accept(first), "older response after a newer one")
	assert.False(t, g.accept(second), "same response twice")
}

func TestGeneration_BarrierDropsInFlightFetches(t *testing.T) {
	var g generation
	inFlight := g.next()

	g.barrier()
	assert.False(t, g.accept(inFlight))

	after := g.next()
	assert.True(t, g.accept(after))
}

func TestGeneration_BarrierWithNothingIssued(t *testing.T) {
	var g generation
	g.barrier()

	assert.True(t, g.accept(g.next()))
}
