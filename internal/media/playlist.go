// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package media

import (
	"bufio"
	"strconv"
	"strings"
)

// Segment is one media-playlist entry.
type Segment struct {
	URI      string
	Duration float64 // seconds, from #EXTINF
}

// ParseMasterPlaylist extracts the variant ladder from an HLS master
// playlist. Returns nil when the document is a media playlist.
func ParseMasterPlaylist(body string) []VariantInfo {
	var variants []VariantInfo
	var pending *VariantInfo

	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "#EXT-X-STREAM-INF:"):
			v := VariantInfo{}
			for _, attr := range splitAttrs(strings.TrimPrefix(line, "#EXT-X-STREAM-INF:")) {
				key, value, ok := strings.Cut(attr, "=")
				if !ok {
					continue
				}
				switch strings.ToUpper(strings.TrimSpace(key)) {
				case "BANDWIDTH":
					if bps, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
						v.BandwidthKbps = bps / 1000
					}
				case "NAME":
					v.Name = strings.Trim(strings.TrimSpace(value), `"`)
				}
			}
			pending = &v
		case line == "" || strings.HasPrefix(line, "#"):
			// comments and other tags
		default:
			if pending != nil {
				pending.URI = line
				variants = append(variants, *pending)
				pending = nil
			}
		}
	}
	return variants
}

// ParseMediaPlaylist extracts the segment list and total duration.
func ParseMediaPlaylist(body string) ([]Segment, float64) {
	var segments []Segment
	var total float64
	nextDuration := 0.0

	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "#EXTINF:"):
			spec := strings.TrimPrefix(line, "#EXTINF:")
			if idx := strings.IndexByte(spec, ','); idx >= 0 {
				spec = spec[:idx]
			}
			if d, err := strconv.ParseFloat(strings.TrimSpace(spec), 64); err == nil {
				nextDuration = d
			}
		case strings.HasPrefix(line, "#EXT-X-STREAM-INF:"):
			// master playlist; no segments here
			return nil, 0
		case line == "" || strings.HasPrefix(line, "#"):
			// other tags
		default:
			segments = append(segments, Segment{URI: line, Duration: nextDuration})
			total += nextDuration
			nextDuration = 0
		}
	}
	return segments, total
}

// splitAttrs splits an attribute list on commas outside quoted strings.
func splitAttrs(s string) []string {
	var out []string
	var sb strings.Builder
	quoted := false
	for _, r := range s {
		switch {
		case r == '"':
			quoted = !quoted
			sb.WriteRune(r)
		case r == ',' && !quoted:
			out = append(out, sb.String())
			sb.Reset()
		default:
			sb.WriteRune(r)
		}
	}
	if sb.Len() > 0 {
		out = append(out, sb.String())
	}
	return out
}
