package geo

import (
	"math"

	"parking-navigator/internal/navigator/models"
)

// ============================================================
// Lat/Lng -> metres
// ============================================================

// metersPerDegree длина градуса широты (и долготы на экваторе) в метрах.
const metersPerDegree = 111320.0

// CalcSize вычисляет ширину и высоту участка в метрах по двум углам.
func CalcSize(p *models.Parking) {
	latDist := (p.Lat1 - p.Lat2) * metersPerDegree
	lngDist := (p.Lng2 - p.Lng1) * metersPerDegree * math.Cos((p.Lat1+p.Lat2)/2*math.Pi/180)
	p.Width = math.Abs(lngDist)
	p.Height = math.Abs(latDist)
}

// HasCorners true, если у участка заданы координаты углов.
func HasCorners(p models.Parking) bool {
	return p.Lat1 != p.Lat2 && p.Lng1 != p.Lng2
}

// ToLocal переводит GPS координату в локальные метры участка:
// x растёт на восток от западного края, y на юг от северного.
func ToLocal(p models.Parking, lat, lng float64) models.Point {
	north := math.Max(p.Lat1, p.Lat2)
	west := math.Min(p.Lng1, p.Lng2)
	k := math.Cos((p.Lat1 + p.Lat2) / 2 * math.Pi / 180)

	return models.Point{
		X: (lng - west) * metersPerDegree * k,
		Y: (north - lat) * metersPerDegree,
	}
}
