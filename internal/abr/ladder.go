// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package abr selects among the pre-encoded renditions of an HLS stream
// based on the classified network quality, biased toward stability over
// chasing peak quality.
package abr

import (
	"fmt"
	"sort"
)

// Level is one static rendition in the quality ladder.
type Level struct {
	Index       int    `json:"index"`
	BitrateKbps int    `json:"bitrate"`
	TierName    string `json:"tierName"`
}

// Ladder is the per-track rendition list, ascending by bitrate.
type Ladder []Level

// upgradeHeadroom is the spare-bandwidth factor a level must clear before it
// is considered sustainable.
const upgradeHeadroom = 1.25

// NewLadder validates and normalises a ladder: levels are sorted ascending by
// bitrate and re-indexed.
func NewLadder(levels []Level) (Ladder, error) {
	if len(levels) == 0 {
		return nil, fmt.Errorf("abr: empty ladder")
	}
	out := make([]Level, len(levels))
	copy(out, levels)
	sort.Slice(out, func(i, j int) bool { return out[i].BitrateKbps < out[j].BitrateKbps })
	for i := range out {
		if out[i].BitrateKbps <= 0 {
			return nil, fmt.Errorf("abr: level %d has non-positive bitrate", i)
		}
		out[i].Index = i
	}
	return out, nil
}

// Valid reports whether index addresses a ladder entry.
func (l Ladder) Valid(index int) bool {
	return index >= 0 && index < len(l)
}

// Top returns the highest ladder index.
func (l Ladder) Top() int { return len(l) - 1 }

// LevelForBandwidth returns the highest index whose bitrate, with headroom,
// fits within the estimate. Falls back to the lowest level.
func (l Ladder) LevelForBandwidth(estimateKbps float64) int {
	best := 0
	for _, lv := range l {
		if float64(lv.BitrateKbps)*upgradeHeadroom <= estimateKbps {
			best = lv.Index
		}
	}
	return best
}

// TierName returns the tier label for index, or "" when unresolved.
func (l Ladder) TierName(index int) string {
	if !l.Valid(index) {
		return ""
	}
	return l[index].TierName
}
