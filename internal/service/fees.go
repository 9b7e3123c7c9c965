package service

import "math"

// FeeBreakdown — разбивка платежа по смете. Клиент платит сумму с комиссией и
// налогом, исполнитель получает сумму за вычетом комиссии платформы.
type FeeBreakdown struct {
	Amount       float64 `json:"amount"`
	PlatformFee  float64 `json:"platform_fee"`
	Tax          float64 `json:"tax"`
	TotalAmount  float64 `json:"total_amount"`
	PayoutAmount float64 `json:"payout_amount"`
}

// CalculateFees считает разбивку платежа по ставкам комиссии и налога.
// Каждое слагаемое округляется до копеек отдельно, итог складывается из уже
// округлённых частей, чтобы разбивка всегда сходилась в сумму.
func CalculateFees(amount, platformFeeRate, taxRate float64) FeeBreakdown {
	fee := round2(amount * platformFeeRate)
	tax := round2(amount * taxRate)

	return FeeBreakdown{
		Amount:       round2(amount),
		PlatformFee:  fee,
		Tax:          tax,
		TotalAmount:  round2(round2(amount) + fee + tax),
		PayoutAmount: round2(round2(amount) - fee),
	}
}

// round2 округляет до двух знаков.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
