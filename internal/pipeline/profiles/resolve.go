// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package profiles holds the fixed quality tier table used to build transcoder arguments.
package profiles

import (
	"fmt"
	"strings"
)

// Tier names a quality profile.
type Tier string

const (
	TierLow    Tier = "low"
	TierMedium Tier = "medium"
	TierHigh   Tier = "high"
	TierUltra  Tier = "ultra"

	// Default is used when a start request carries no quality.
	Default = TierMedium
)

// Profile is the encoder parameter set of one tier.
type Profile struct {
	Tier         Tier
	Width        int
	Height       int
	FPS          int
	MaxrateKbps  int
	BufsizeKbps  int
	Preset       string
	CRF          int
	AudioBitrate string // informational; audio is dropped from the HLS output
}

// Resolution returns the scale filter value "W:H".
func (p Profile) Resolution() string {
	return fmt.Sprintf("%d:%d", p.Width, p.Height)
}

// GOP returns the fixed keyframe interval aligning keyframes to segment boundaries.
func (p Profile) GOP(segmentSeconds int) int {
	if segmentSeconds <= 0 {
		segmentSeconds = 1
	}
	return p.FPS * segmentSeconds
}

var table = map[Tier]Profile{
	TierLow: {
		Tier: TierLow, Width: 640, Height: 360, FPS: 15,
		MaxrateKbps: 800, BufsizeKbps: 1600, Preset: "veryfast", CRF: 28, AudioBitrate: "64k",
	},
	TierMedium: {
		Tier: TierMedium, Width: 1280, Height: 720, FPS: 25,
		MaxrateKbps: 2000, BufsizeKbps: 4000, Preset: "veryfast", CRF: 25, AudioBitrate: "96k",
	},
	TierHigh: {
		Tier: TierHigh, Width: 1920, Height: 1080, FPS: 30,
		MaxrateKbps: 4000, BufsizeKbps: 8000, Preset: "fast", CRF: 23, AudioBitrate: "128k",
	},
	TierUltra: {
		Tier: TierUltra, Width: 2560, Height: 1440, FPS: 30,
		MaxrateKbps: 8000, BufsizeKbps: 16000, Preset: "fast", CRF: 21, AudioBitrate: "192k",
	},
}

var aliasMap = map[string]Tier{
	"":         Default,
	"default":  Default,
	"low":      TierLow,
	"mobile":   TierLow,
	"medium":   TierMedium,
	"standard": TierMedium,
	"high":     TierHigh,
	"hd":       TierHigh,
	"ultra":    TierUltra,
}

// Normalize maps a requested quality string to a canonical tier.
// Empty input resolves to Default; unknown input reports ok=false.
func Normalize(requested string) (Tier, bool) {
	t, ok := aliasMap[strings.ToLower(strings.TrimSpace(requested))]
	return t, ok
}

// Lookup returns the profile for a canonical tier.
func Lookup(t Tier) (Profile, bool) {
	p, ok := table[t]
	return p, ok
}

// Resolve combines Normalize and Lookup.
func Resolve(requested string) (Profile, bool) {
	t, ok := Normalize(requested)
	if !ok {
		return Profile{}, false
	}
	return Lookup(t)
}

// Tiers lists the canonical tiers from lowest to highest.
func Tiers() []Tier {
	return []Tier{TierLow, TierMedium, TierHigh, TierUltra}
}
