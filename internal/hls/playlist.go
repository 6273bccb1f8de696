// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package hls reads and writes the live media playlists produced per camera.
package hls

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Segment is one media entry of a playlist.
type Segment struct {
	URI      string
	Duration time.Duration
}

// Playlist represents the metadata the freshness checks need.
type Playlist struct {
	TargetDuration time.Duration
	MediaSequence  int
	Segments       []Segment
	IsVOD          bool // #EXT-X-PLAYLIST-TYPE:VOD or #EXT-X-ENDLIST
}

// LastSegment returns the newest listed segment.
func (p *Playlist) LastSegment() (Segment, bool) {
	if p == nil || len(p.Segments) == 0 {
		return Segment{}, false
	}
	return p.Segments[len(p.Segments)-1], true
}

// ParsePlaylist parses a media playlist.
// It rejects input without the #EXTM3U header and malformed EXTINF durations.
func ParsePlaylist(playlist string) (*Playlist, error) {
	scanner := bufio.NewScanner(strings.NewReader(playlist))
	out := &Playlist{}

	var (
		sawHeader    bool
		nextDuration time.Duration
	)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if !sawHeader {
			if line != "#EXTM3U" {
				return nil, fmt.Errorf("missing #EXTM3U header")
			}
			sawHeader = true
			continue
		}

		switch {
		case strings.HasPrefix(line, "#EXT-X-TARGETDURATION:"):
			secs, err := strconv.Atoi(strings.TrimPrefix(line, "#EXT-X-TARGETDURATION:"))
			if err != nil {
				return nil, fmt.Errorf("invalid target duration: %s", line)
			}
			out.TargetDuration = time.Duration(secs) * time.Second
		case strings.HasPrefix(line, "#EXT-X-MEDIA-SEQUENCE:"):
			seq, err := strconv.Atoi(strings.TrimPrefix(line, "#EXT-X-MEDIA-SEQUENCE:"))
			if err != nil {
				return nil, fmt.Errorf("invalid media sequence: %s", line)
			}
			out.MediaSequence = seq
		case strings.HasPrefix(line, "#EXT-X-PLAYLIST-TYPE:VOD"), line == "#EXT-X-ENDLIST":
			out.IsVOD = true
		case strings.HasPrefix(line, "#EXTINF:"):
			// Format: #EXTINF:2.000000,
			durPart := strings.TrimPrefix(line, "#EXTINF:")
			if idx := strings.Index(durPart, ","); idx != -1 {
				durPart = durPart[:idx]
			}
			secs, err := strconv.ParseFloat(durPart, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid EXTINF duration: %s", durPart)
			}
			nextDuration = time.Duration(secs * float64(time.Second))
		case strings.HasPrefix(line, "#"):
			// other tags are irrelevant here
		default:
			out.Segments = append(out.Segments, Segment{URI: line, Duration: nextDuration})
			nextDuration = 0
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if !sawHeader {
		return nil, fmt.Errorf("missing #EXTM3U header")
	}
	return out, nil
}
