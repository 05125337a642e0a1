// Package appfs exposes the repository's embedded assets: SQL migrations and
// email templates.
package appfs

import "embed"

// The base email templates are underscore-prefixed and must be named
// explicitly; a bare directory pattern skips them.
//
//go:embed migrations assets assets/templates/email/_base.txt assets/templates/email/_base.gohtml
var FS embed.FS
