package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceKm_KnownDistance(t *testing.T) {
	// Москва — Санкт-Петербург, около 634 км по прямой.
	distance := DistanceKm(55.7558, 37.6173, 59.9343, 30.3351)
	assert.InDelta(t, 634, distance, 5)
}

func TestDistanceKm_SamePoint(t *testing.T) {
	assert.Equal(t, 0.0, DistanceKm(55.7558, 37.6173, 55.7558, 37.6173))
}

func TestDistanceKm_Symmetric(t *testing.T) {
	forward := DistanceKm(55.7558, 37.6173, 56.8389, 60.6057)
	backward := DistanceKm(56.8389, 60.6057, 55.7558, 37.6173)
	assert.InDelta(t, forward, backward, 1e-9)
}

func TestApproxDistance(t *testing.T) {
	assert.Equal(t, "менее 1 км", ApproxDistance(0.4))
	assert.Equal(t, "~1 км", ApproxDistance(1.2))
	assert.Equal(t, "~5 км", ApproxDistance(4.7))
	assert.Equal(t, "~23 км", ApproxDistance(23.4))
}
