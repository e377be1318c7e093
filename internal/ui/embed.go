package ui

import "embed"

// Dist embeds the dashboard assets under ui/dist/. The server serves
// index.html for / and every /dashboard route.
//
//go:embed all:dist
var Dist embed.FS
