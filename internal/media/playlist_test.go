// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const masterPlaylist = `#EXTM3U
#EXT-X-STREAM-INF:BANDWIDTH=96000,NAME="low"
low/index.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=160000,NAME="medium"
medium/index.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=320000,NAME="high"
high/index.m3u8
`

const mediaPlaylist = `#EXTM3U
#EXT-X-TARGETDURATION:10
#EXTINF:9.8,
seg000.ts
#EXTINF:10.0,
seg001.ts
#EXTINF:4.2,
seg002.ts
#EXT-X-ENDLIST
`

func TestParseMasterPlaylist(t *testing.T) {
	variants := ParseMasterPlaylist(masterPlaylist)
	require.Len(t, variants, 3)

	assert.Equal(t, 96, variants[0].BandwidthKbps)
	assert.Equal(t, "low", variants[0].Name)
	assert.Equal(t, "low/index.m3u8", variants[0].URI)
	assert.Equal(t, 320, variants[2].BandwidthKbps)
}

func TestParseMasterPlaylist_MediaPlaylistYieldsNoVariants(t *testing.T) {
	assert.Empty(t, ParseMasterPlaylist(mediaPlaylist))
}

func TestParseMediaPlaylist(t *testing.T) {
	segments, duration := ParseMediaPlaylist(mediaPlaylist)
	require.Len(t, segments, 3)

	assert.Equal(t, "seg000.ts", segments[0].URI)
	assert.InDelta(t, 9.8, segments[0].Duration, 0.001)
	assert.InDelta(t, 24.0, duration, 0.001)
}

func TestParseMediaPlaylist_MasterReturnsNothing(t *testing.T) {
	segments, _ := ParseMediaPlaylist(masterPlaylist)
	assert.Empty(t, segments)
}

func TestKindForURL(t *testing.T) {
	assert.Equal(t, KindHLS, KindForURL("https://cdn.example/track/index.m3u8"))
	assert.Equal(t, KindHLS, KindForURL("https://cdn.example/track/index.M3U8?token=x"))
	assert.Equal(t, KindProgressive, KindForURL("https://cdn.example/track.mp3"))
}

func TestSplitAttrs_RespectsQuotes(t *testing.T) {
	attrs := splitAttrs(`BANDWIDTH=96000,CODECS="mp4a.40.2,avc1",NAME="low"`)
	require.Len(t, attrs, 3)
	assert.Equal(t, `CODECS="mp4a.40.2,avc1"`, attrs[1])
}
