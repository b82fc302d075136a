// Package telemetry records simulation snapshots as JSON lines. Each line is
// a protobuf Struct rendered with protojson, so any protobuf-aware consumer
// can read the stream back.
package telemetry

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Rawrkanos/rodsfromnod/internal/logging"
	"github.com/Rawrkanos/rodsfromnod/internal/sim/state"
)

// JSONLinesSink writes snapshots to w. Snapshots are throttled to one per
// interval of frame time, except that a snapshot after a launch or an
// impact is always written.
type JSONLinesSink struct {
	mu       sync.Mutex
	w        io.Writer
	interval time.Duration
	log      logging.Logger

	wrote    bool
	last     time.Time
	launches int
	impacts  int
	records  int
	err      error
}

// NewJSONLinesSink constructs a sink. interval <= 0 writes every snapshot.
func NewJSONLinesSink(w io.Writer, interval time.Duration, log logging.Logger) *JSONLinesSink {
	if log == nil {
		log = logging.Noop()
	}
	return &JSONLinesSink{w: w, interval: interval, log: log}
}

// Publish implements the orchestrator's SnapshotSink. After the first write
// error the sink goes quiet; Err reports it.
func (s *JSONLinesSink) Publish(snap state.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil || !s.due(snap) {
		return
	}

	st, err := SnapshotStruct(snap)
	if err == nil {
		var line []byte
		line, err = protojson.MarshalOptions{UseProtoNames: true}.Marshal(st)
		if err == nil {
			_, err = s.w.Write(append(line, '\n'))
		}
	}
	if err != nil {
		s.err = fmt.Errorf("write snapshot: %w", err)
		s.log.Warn(context.Background(), "snapshot sink disabled", logging.Err(s.err))
		return
	}

	s.wrote = true
	s.last = snap.FrameTime
	s.launches = snap.Launches
	s.impacts = snap.Impacts
	s.records++
}

func (s *JSONLinesSink) due(snap state.Snapshot) bool {
	switch {
	case !s.wrote:
		return true
	case snap.Launches != s.launches || snap.Impacts != s.impacts:
		return true
	case snap.FrameTime.Before(s.last):
		// Clocks rewound by a full reset.
		return true
	default:
		return snap.FrameTime.Sub(s.last) >= s.interval
	}
}

// Records returns how many snapshots were written.
func (s *JSONLinesSink) Records() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records
}

// Err returns the first write error, if any.
func (s *JSONLinesSink) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// SnapshotStruct converts a snapshot into a protobuf Struct. The impact time
// is only present while a prediction exists.
func SnapshotStruct(snap state.Snapshot) (*structpb.Struct, error) {
	fields := map[string]any{
		"score":                     snap.Score,
		"total_energy":              snap.TotalEnergy,
		"total_score_per_prestige":  snap.TotalScorePerPrestige,
		"total_score_per_ascension": snap.TotalScorePerAscension,
		"total_score_overall":       snap.TotalScoreOverall,
		"prestige_level":            snap.PrestigeLevel,
		"ascension_level":           snap.AscensionLevel,
		"prestige_points":           snap.PrestigePoints,
		"ascension_points":          snap.AscensionPoints,
		"current_body_index":        snap.CurrentBodyIndex,
		"launch_height":             snap.LaunchHeight,
		"is_orbital_phase":          snap.IsOrbitalPhase,
		"fall_speed_multiplier":     snap.FallSpeedMultiplier,
		"sim_time":                  snap.SimTime.UTC().Format(time.RFC3339Nano),
		"frame_time":                snap.FrameTime.UTC().Format(time.RFC3339Nano),
		"launches":                  snap.Launches,
		"impacts":                   snap.Impacts,
	}
	if snap.ImpactKnown {
		fields["impact_time"] = snap.ImpactTime.UTC().Format(time.RFC3339Nano)
	}
	return structpb.NewStruct(fields)
}

// ReadJSONLines decodes a stream written by JSONLinesSink.
func ReadJSONLines(r io.Reader) ([]*structpb.Struct, error) {
	var out []*structpb.Struct
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for line := 1; sc.Scan(); line++ {
		if len(sc.Bytes()) == 0 {
			continue
		}
		st := &structpb.Struct{}
		if err := protojson.Unmarshal(sc.Bytes(), st); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, st)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
