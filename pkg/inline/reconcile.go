package inline

// bindings describes how the loader and query functions are bound in a file
// before rewriting.
type bindings struct {
	loaderAliases []string // local names bound to the loader other than its own name
	loaderSource  string   // module the loader is imported from, empty if unknown
	queryLocal    string   // local name already bound to the query function
}

// resolveBindings inspects the import model of a file.
func resolveBindings(decls []ImportDecl, loader, query string) bindings {
	var b bindings
	for _, d := range decls {
		local, ok := d.LocalFor(loader)
		if !ok {
			continue
		}
		if b.loaderSource == "" {
			b.loaderSource = d.Source
		}
		if local != loader {
			b.loaderAliases = append(b.loaderAliases, local)
		}
	}

	// Prefer the query function from the loader's own module, alias aware.
	for _, d := range decls {
		if b.loaderSource != "" && d.Source != b.loaderSource {
			continue
		}
		if local, ok := d.LocalFor(query); ok {
			b.queryLocal = local
			return b
		}
	}
	for _, d := range decls {
		if d.Binds(query) {
			b.queryLocal = query
			return b
		}
	}
	return b
}

// reconcileImports makes query importable in src by extending the first value
// import that names loader in braces. The returned bool is false when no
// such declaration exists; src is then returned unchanged.
func reconcileImports(src, loader, query string) (string, bool) {
	decls := ParseImports(src)
	for _, d := range decls {
		if d.Binds(query) {
			return src, true
		}
		if _, ok := d.LocalFor(query); ok {
			return src, true
		}
	}

	for _, d := range decls {
		if !d.HasBraces || d.TypeOnly {
			continue
		}
		if _, ok := d.LocalFor(loader); !ok {
			continue
		}
		at := d.Named[len(d.Named)-1].Span.End.Offset
		return src[:at] + ", " + query + src[at:], true
	}
	return src, false
}
