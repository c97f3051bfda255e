package borealis

// Assets are the on-disk artifacts a Runner needs to execute one test case
// (§3). They must reference files that exist at the moment they are
// returned from the cache (invariant I4).
type Assets struct {
	// Tarball is the absolute path to the package's source tarball.
	Tarball string
	// WebC is the absolute path to the pre-compiled container artifact, if
	// the registry offered one.
	WebC string
	// TotalSize is the combined size in bytes of the files above.
	TotalSize uint64
}

// HasWebC reports whether a pre-compiled container artifact is available.
func (a Assets) HasWebC() bool {
	return a.WebC != ""
}
