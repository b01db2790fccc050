// Package web embeds the view templates and static assets served by the
// application.
package web

import "embed"

// TemplatesFS holds the HTML view templates.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds css/js assets.
//
//go:embed static/*
var StaticFS embed.FS
