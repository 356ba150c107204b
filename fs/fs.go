package appfs

import "embed"

// FS holds the SQL migrations (one directory per dialect), the email templates
// and the static assets the services need at runtime.
//
//go:embed migrations templates assets
var FS embed.FS
