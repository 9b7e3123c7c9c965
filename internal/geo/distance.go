package geo

import (
	"fmt"
	"math"
)

const earthRadiusKm = 6371.0

// DistanceKm возвращает расстояние по дуге большого круга между двумя
// точками в километрах (формула haversine).
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// ApproxDistance возвращает округлённую строку расстояния для уведомлений
// исполнителям. Точные координаты наружу не отдаются.
func ApproxDistance(km float64) string {
	if km < 1 {
		return "менее 1 км"
	}
	return fmt.Sprintf("~%d км", int(math.Round(km)))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
