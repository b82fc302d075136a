package core

import (
	"fmt"
	"math"
	"sync"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
)

// OrbitModel reports the inertial speed of a body in a circular orbit at the
// given altitude (metres above the datum).
type OrbitModel interface {
	OrbitalSpeed(altitude float64) (float64, error)
}

// Reference element set; only the mean motion is rewritten per altitude.
const (
	referenceTLE1 = "1 25544U 98067A   21275.59097222  .00000204  00000-0  10270-4 0  9990"
	referenceTLE2 = "2 25544  51.6459 115.9059 0001817  61.3028  35.9198 15.49370953257760"

	// WGS72 constants, matching satellite.GravityWGS72.
	wgs72MuKm3s2  = 398600.8
	wgs72RadiusKm = 6378.135
)

// SGP4OrbitModel synthesises a near-circular element set for the requested
// altitude and propagates it with SGP4 at the element epoch. Results are
// cached per whole metre of altitude.
type SGP4OrbitModel struct {
	epoch time.Time

	mu    sync.Mutex
	cache map[int64]float64
}

// NewSGP4OrbitModel constructs an orbit model anchored at the reference epoch.
func NewSGP4OrbitModel() *SGP4OrbitModel {
	// 2021 day-of-year 275.59097222.
	epoch := time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC).
		Add(time.Duration((275.59097222 - 1) * 24 * float64(time.Hour)))
	return &SGP4OrbitModel{
		epoch: epoch,
		cache: make(map[int64]float64),
	}
}

// OrbitalSpeed returns the SGP4 speed in metres per second.
// go-satellite works in kilometres; the rest of the simulator uses metres.
func (m *SGP4OrbitModel) OrbitalSpeed(altitude float64) (speed float64, err error) {
	if altitude <= 0 || math.IsNaN(altitude) || math.IsInf(altitude, 0) {
		return 0, fmt.Errorf("%w: altitude %.1f m", ErrOrbitPropagation, altitude)
	}
	key := int64(math.Round(altitude))

	m.mu.Lock()
	if v, ok := m.cache[key]; ok {
		m.mu.Unlock()
		return v, nil
	}
	m.mu.Unlock()

	// go-satellite panics on malformed element sets.
	defer func() {
		if r := recover(); r != nil {
			speed, err = 0, fmt.Errorf("%w: %v", ErrOrbitPropagation, r)
		}
	}()

	line1, line2 := elementSetForAltitude(altitude / 1000.0)
	sat := satellite.TLEToSat(line1, line2, satellite.GravityWGS72)

	year, month, day := m.epoch.Date()
	hour, min, sec := m.epoch.Clock()
	_, velECI := satellite.Propagate(sat, year, int(month), day, hour, min, sec)

	const kmToM = 1000.0
	speed = math.Sqrt(velECI.X*velECI.X+velECI.Y*velECI.Y+velECI.Z*velECI.Z) * kmToM
	if speed <= 0 || math.IsNaN(speed) || math.IsInf(speed, 0) {
		return 0, fmt.Errorf("%w: non-physical speed at %.1f km", ErrOrbitPropagation, altitude/1000.0)
	}

	m.mu.Lock()
	m.cache[key] = speed
	m.mu.Unlock()
	return speed, nil
}

// elementSetForAltitude rewrites the reference element set's mean motion
// (line 2 columns 53-63) for a circular orbit at altitudeKm and recomputes
// both checksums.
func elementSetForAltitude(altitudeKm float64) (string, string) {
	a := wgs72RadiusKm + altitudeKm
	revPerDay := math.Sqrt(wgs72MuKm3s2/(a*a*a)) * 86400 / (2 * math.Pi)

	meanMotion := fmt.Sprintf("%11.8f", revPerDay)
	if len(meanMotion) > 11 {
		meanMotion = meanMotion[:11]
	}
	line2 := referenceTLE2[:52] + meanMotion + referenceTLE2[63:68]
	line1 := referenceTLE1[:68]

	return line1 + tleChecksum(line1), line2 + tleChecksum(line2)
}

func tleChecksum(line string) string {
	sum := 0
	for _, c := range line {
		switch {
		case c >= '0' && c <= '9':
			sum += int(c - '0')
		case c == '-':
			sum++
		}
	}
	return fmt.Sprintf("%d", sum%10)
}
