package aircraft

import "embed"

//go:embed profiles/*.yaml
var builtin embed.FS
