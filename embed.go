package darasa

import "embed"

// FS exposes the SQL migrations and mail templates to the rest of the app
// so binaries stay self-contained regardless of their working directory.
//go:embed migrations all:assets/templates/email
var FS embed.FS
