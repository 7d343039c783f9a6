package fs

import "embed"

//go:embed migrations templates
var FS embed.FS
