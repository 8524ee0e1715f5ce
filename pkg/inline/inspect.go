package inline

// Reference is a loader call site together with the outcome of resolving the
// SQL file it names.
type Reference struct {
	CallMatch
	Resolved string // absolute or fileID-relative path the call resolves to
	Bytes    int    // size of the SQL text, zero when Err is set
	Err      error  // nil when the file can be inlined
}

// Inspect reports every loader call in code and whether its SQL file can be
// read, without rewriting anything. Unlike Transform it ignores the
// eligibility filter and reports every failing call site, not just the first
// one per path.
func (t *Transformer) Inspect(code, id string) []Reference {
	matches := t.Scan(code)
	if len(matches) == 0 {
		return nil
	}

	loader := newResourceLoader(id, t.opts.ReadFile, t.opts.Cache)
	refs := make([]Reference, 0, len(matches))
	for _, m := range matches {
		content, _, err := loader.load(m.Path)
		refs = append(refs, Reference{
			CallMatch: m,
			Resolved:  loader.resolve(m.Path),
			Bytes:     len(content),
			Err:       err,
		})
	}
	return refs
}
