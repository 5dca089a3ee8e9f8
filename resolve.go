package fedwire

// ResolvedPath is the outcome of version negotiation for one call: the
// selected variant and the negotiated version it was selected at. The
// version also determines credential placement for legacy-generation
// endpoints.
type ResolvedPath struct {
	Variant PathVariant
	Version SpecVersion
}

// ResolvePath selects the path variant to use against a counterpart that
// supports the given version set. Among variants valid at some negotiated
// version, the one introduced most recently wins; stable variants win ties
// against unstable ones. Unstable variants are considered only when
// allowUnstable is set.
//
// The function is pure: the same Metadata and version set always yield the
// same variant. If no variant is valid for any negotiated version it fails
// with an UnsupportedVersion error carrying the endpoint name and the
// requested set.
func (m *Metadata) ResolvePath(versions []SpecVersion, allowUnstable bool) (ResolvedPath, error) {
	if maxSpecVersion(versions).IsZero() {
		err := newError(KindUnsupportedVersion, m.name, "empty negotiated version set")
		err.Requested = append([]SpecVersion(nil), versions...)
		return ResolvedPath{}, err
	}

	var (
		best            ResolvedPath
		found           bool
		sawOnlyUnstable bool
	)
	for _, pv := range m.variants {
		if pv.Unstable && !allowUnstable {
			// Hint at the opt-in only when this variant would actually
			// have been a candidate for the negotiated set.
			for _, v := range versions {
				if pv.ValidAt(v) {
					sawOnlyUnstable = true
					break
				}
			}
			continue
		}
		// The greatest negotiated version the variant is valid at.
		var at SpecVersion
		var ok bool
		for _, v := range versions {
			if pv.ValidAt(v) && (!ok || at.Less(v)) {
				at, ok = v, true
			}
		}
		if !ok {
			continue
		}
		if !found || better(pv, best.Variant) {
			best = ResolvedPath{Variant: pv, Version: at}
			found = true
		}
	}
	if !found {
		err := newErrorf(KindUnsupportedVersion, m.name,
			"no path variant valid for negotiated versions %s", formatVersions(versions))
		if sawOnlyUnstable {
			err.Message += " (unstable variants exist but were not allowed)"
		}
		err.Requested = append([]SpecVersion(nil), versions...)
		return ResolvedPath{}, err
	}
	return best, nil
}

// better reports whether candidate a should replace current choice b:
// higher introduced-version wins, stable beats unstable at the same
// introduced-version.
func better(a, b PathVariant) bool {
	if c := a.Added.Compare(b.Added); c != 0 {
		return c > 0
	}
	return !a.Unstable && b.Unstable
}
