package model

// ImpactResult is what the impact resolver reports for a single collided
// body. Score and Energy are the deltas folded into the progression totals.
type ImpactResult struct {
	BodyIndex int

	Score  float64
	Energy float64 // J

	Position Vec3
	Velocity Vec3

	CraterRadius float64 // m
	CraterDepth  float64 // m
	EjectaMass   float64 // kg
}

// Totals are the accumulated outcomes the progression controller sees.
type Totals struct {
	Score                  float64
	TotalEnergy            float64
	TotalScorePerPrestige  float64
	TotalScorePerAscension float64
	TotalScoreOverall      float64

	PrestigeLevel  int
	AscensionLevel int
}

// TierOutcome is returned by a prestige or ascension trigger.
type TierOutcome struct {
	Level  int
	Points int
}
