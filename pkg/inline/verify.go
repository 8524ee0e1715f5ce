package inline

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// scriptLoaders maps source extensions to the esbuild loader that parses them.
var scriptLoaders = map[string]api.Loader{
	".js":  api.LoaderJS,
	".mjs": api.LoaderJS,
	".cjs": api.LoaderJS,
	".jsx": api.LoaderJSX,
	".ts":  api.LoaderTS,
	".mts": api.LoaderTS,
	".cts": api.LoaderTS,
	".tsx": api.LoaderTSX,
}

// LoaderForPath returns the esbuild loader for a module id, or false for
// files esbuild cannot parse directly (.vue, .svelte).
func LoaderForPath(id string) (api.Loader, bool) {
	l, ok := scriptLoaders[strings.ToLower(filepath.Ext(stripQuery(id)))]
	return l, ok
}

// verifySyntax parses code with esbuild and reports the first errors.
// Files without a known loader are not checked.
func verifySyntax(code, id string) error {
	loader, ok := LoaderForPath(id)
	if !ok {
		return nil
	}

	result := api.Transform(code, api.TransformOptions{
		Loader:     loader,
		Sourcefile: id,
		LogLevel:   api.LogLevelSilent,
	})
	if len(result.Errors) == 0 {
		return nil
	}

	var msgs []string
	for _, e := range result.Errors {
		if e.Location != nil {
			msgs = append(msgs, fmt.Sprintf("%d:%d: %s", e.Location.Line, e.Location.Column, e.Text))
		} else {
			msgs = append(msgs, e.Text)
		}
	}
	return fmt.Errorf("%w: %s", ErrVerify, strings.Join(msgs, "; "))
}
