package engine

import (
	"gonum.org/v1/gonum/stat"

	"github.com/spektr-org/opsboard/dataset"
	"github.com/spektr-org/opsboard/schema"
)

// MapPoints collects the rows of view with both coordinates numeric. The
// centre is the mean latitude and longitude of those points.
func MapPoints(view dataset.RecordView, cls *schema.Classification) *MapResult {
	if !cls.HasGeo() {
		return &MapResult{Message: "Colunas para latitude e longitude não encontradas no dataset."}
	}

	result := &MapResult{Applicable: true}
	lats := make([]float64, 0, view.Len())
	lons := make([]float64, 0, view.Len())
	for i := 0; i < view.Len(); i++ {
		lat, okLat := view.Value(i, cls.Latitude).Float()
		lon, okLon := view.Value(i, cls.Longitude).Float()
		if !okLat || !okLon {
			continue
		}
		result.Points = append(result.Points, GeoPoint{Lat: lat, Lon: lon, Row: i})
		lats = append(lats, lat)
		lons = append(lons, lon)
	}

	if len(result.Points) == 0 {
		result.Message = "Não há dados geográficos disponíveis após filtro."
		return result
	}
	result.Center = &GeoPoint{
		Lat: stat.Mean(lats, nil),
		Lon: stat.Mean(lons, nil),
		Row: -1,
	}
	return result
}
