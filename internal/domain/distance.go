package domain

import "math"

// DistanceKm returns the approximate epicentral distance in kilometers
// between (lat1, lon1) and (lat2, lon2), in degrees.
//
// Longitude and latitude differences are converted to arc-minutes and scaled
// by km-per-arc-minute factors evaluated at the mean latitude. The cubic
// coefficients are empirical and only valid for regional distances.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	avlat := 0.5 * (lat1 + lat2)
	a := 1.840708 + avlat*(0.0015269+avlat*(-0.00034+avlat*1.02337e-6))
	b := 1.843404 + avlat*(-6.93799e-5+avlat*(8.79993e-6+avlat*(-6.47527e-8)))

	dx := a * (lon2 - lon1) * 60.0
	dy := b * (lat2 - lat1) * 60.0
	return math.Sqrt(dx*dx + dy*dy)
}
