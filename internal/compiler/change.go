package compiler

// Status classifies a candidate output against the previous pass.
type Status int

const (
	// StatusNew means no index row exists or its artifact is missing.
	StatusNew Status = iota
	// StatusUpdated means the hash changed or a dependency was recompiled.
	StatusUpdated
	// StatusUnchanged means the recorded output is still current.
	StatusUnchanged
)

func (s Status) String() string {
	switch s {
	case StatusNew:
		return "new"
	case StatusUpdated:
		return "updated"
	case StatusUnchanged:
		return "unchanged"
	}
	return "unknown"
}

// Change is the outcome of change detection for one output. Path is the
// recorded path and is only set for unchanged outputs.
type Change struct {
	Status Status
	Hash   string
	Path   string
}

// detectChange compares a freshly computed hash with the index row recorded
// for the same page and language. Rendered outputs also need their artifact
// on disk to count as unchanged.
func (p *pass) detectChange(typeName string, pageID uint, lang, hash string, rendered bool) Change {
	previous, ok := p.previous[indexKey{pageID: pageID, lang: lang}]
	if !ok {
		return Change{Status: StatusNew, Hash: hash}
	}
	if rendered && !p.writer.exists(previous.Hash) {
		return Change{Status: StatusNew, Hash: hash}
	}
	if previous.Hash != hash {
		return Change{Status: StatusUpdated, Hash: hash}
	}
	for _, dep := range p.registry.DependenciesOf(typeName) {
		if p.isUpdated(dep) {
			return Change{Status: StatusUpdated, Hash: hash}
		}
	}

	return Change{Status: StatusUnchanged, Hash: hash, Path: previous.Path}
}
