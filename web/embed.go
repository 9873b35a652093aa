// Package web holds the dashboard's HTML templates and browser assets.
package web

import "embed"

// TemplatesFS embeds the page templates rendered by internal/http.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS embeds the stylesheet and chart script.
//
//go:embed static/*
var StaticFS embed.FS
