// Package templates embeds the HTML partials rendered by the web server.
package templates

import "embed"

//go:embed partials/*.html
var FS embed.FS
