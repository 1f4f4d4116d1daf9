package geo

import (
	"math"
	"testing"

	"parking-navigator/internal/navigator/models"

	"github.com/stretchr/testify/assert"
)

func TestCalcSize(t *testing.T) {
	p := models.Parking{Lat1: 38.16686, Lng1: 140.86395, Lat2: 38.16616, Lng2: 140.86528}
	CalcSize(&p)

	wantHeight := 0.0007 * metersPerDegree
	wantWidth := 0.00133 * metersPerDegree * math.Cos(38.16651*math.Pi/180)

	assert.InDelta(t, wantHeight, p.Height, 1e-3)
	assert.InDelta(t, wantWidth, p.Width, 1e-3)
}

func TestCalcSize_SwappedCorners(t *testing.T) {
	a := models.Parking{Lat1: 10, Lng1: 20, Lat2: 10.001, Lng2: 19.999}
	b := models.Parking{Lat1: 10.001, Lng1: 19.999, Lat2: 10, Lng2: 20}
	CalcSize(&a)
	CalcSize(&b)

	assert.InDelta(t, a.Width, b.Width, 1e-9)
	assert.InDelta(t, a.Height, b.Height, 1e-9)
	assert.Greater(t, a.Width, 0.0)
}

func TestToLocal(t *testing.T) {
	p := models.Parking{Lat1: 38.16752, Lng1: 140.86561, Lat2: 38.16742, Lng2: 140.86591}
	CalcSize(&p)

	nw := ToLocal(p, 38.16752, 140.86561)
	assert.InDelta(t, 0, nw.X, 1e-6)
	assert.InDelta(t, 0, nw.Y, 1e-6)

	se := ToLocal(p, 38.16742, 140.86591)
	assert.InDelta(t, p.Width, se.X, 1e-6)
	assert.InDelta(t, p.Height, se.Y, 1e-6)
}

func TestHasCorners(t *testing.T) {
	assert.False(t, HasCorners(models.Parking{}))
	assert.True(t, HasCorners(models.Parking{Lat1: 1, Lng1: 1, Lat2: 2, Lng2: 2}))
}
