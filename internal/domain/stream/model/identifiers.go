// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

import "regexp"

var cameraIDRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// IsSafeCameraID returns true if the ID is safe for filesystem paths and URLs.
func IsSafeCameraID(id string) bool {
	return cameraIDRe.MatchString(id)
}
