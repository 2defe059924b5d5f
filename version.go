package mentor

import _ "embed"

// Version is the release version of Mentor.
//
//go:embed VERSION
var Version string
