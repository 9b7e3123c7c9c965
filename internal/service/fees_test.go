package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateFees_StandardRates(t *testing.T) {
	fees := CalculateFees(1000, 0.15, 0.08)

	assert.Equal(t, 1000.0, fees.Amount)
	assert.Equal(t, 150.0, fees.PlatformFee)
	assert.Equal(t, 80.0, fees.Tax)
	assert.Equal(t, 1230.0, fees.TotalAmount)
	assert.Equal(t, 850.0, fees.PayoutAmount)
}

func TestCalculateFees_RoundsEachComponent(t *testing.T) {
	fees := CalculateFees(99.99, 0.15, 0.08)

	assert.Equal(t, 99.99, fees.Amount)
	// 99.99 * 0.15 = 14.9985 -> 15.00
	assert.Equal(t, 15.0, fees.PlatformFee)
	// 99.99 * 0.08 = 7.9992 -> 8.00
	assert.Equal(t, 8.0, fees.Tax)
	assert.Equal(t, 122.99, fees.TotalAmount)
	assert.Equal(t, 84.99, fees.PayoutAmount)
}

func TestCalculateFees_BreakdownAlwaysAddsUp(t *testing.T) {
	amounts := []float64{1, 33.33, 150.5, 777.77, 10000, 123456.78}

	for _, amount := range amounts {
		fees := CalculateFees(amount, 0.15, 0.08)

		assert.Equal(t, fees.TotalAmount, round2(fees.Amount+fees.PlatformFee+fees.Tax),
			"итог должен складываться из округлённых частей для %v", amount)
		assert.Equal(t, fees.PayoutAmount, round2(fees.Amount-fees.PlatformFee),
			"выплата должна сходиться с комиссией для %v", amount)
	}
}

func TestCalculateFees_ZeroRates(t *testing.T) {
	fees := CalculateFees(500, 0, 0)

	assert.Equal(t, 0.0, fees.PlatformFee)
	assert.Equal(t, 0.0, fees.Tax)
	assert.Equal(t, 500.0, fees.TotalAmount)
	assert.Equal(t, 500.0, fees.PayoutAmount)
}
