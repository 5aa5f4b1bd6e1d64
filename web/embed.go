// Package web holds the dashboard's HTML templates and static files,
// compiled into the binaries.
package web

import "embed"

// TemplatesFS holds the page and partial templates parsed at server start.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS is served under /static/.
//
//go:embed static/*
var StaticFS embed.FS
