// Package resources registers template sets shared by every feature
// (layout, navigation, flash partials).
package resources

import (
	"embed"
	"sync"

	"github.com/dalemusser/waffle/pantry/templates"
)

//go:embed templates/*.gohtml
var sharedFS embed.FS

var loadOnce sync.Once

// LoadSharedTemplates registers the shared layout set. Safe to call more
// than once.
func LoadSharedTemplates() {
	loadOnce.Do(func() {
		templates.Register(templates.Set{
			Name:     "shared",
			FS:       sharedFS,
			Patterns: []string{"templates/*.gohtml"},
		})
	})
}
