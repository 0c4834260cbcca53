// Package builtin registers the tracks shipped with the game.
// Import it for side effects.
package builtin

import (
	"embed"
	"path"
	"strings"

	"github.com/vovakirdan/tui-kart/internal/registry"
)

//go:embed *.yaml
var files embed.FS

func init() {
	entries, err := files.ReadDir(".")
	if err != nil {
		panic(err)
	}
	for _, e := range entries {
		data, err := files.ReadFile(e.Name())
		if err != nil {
			panic(err)
		}
		registry.Register(strings.TrimSuffix(e.Name(), path.Ext(e.Name())), data)
	}
}
