package runner

import (
	"os"
	"path/filepath"

	"github.com/wasmerio/borealis"
)

const (
	tarballFilename = "package.tar.gz"
	webcFilename    = "package.webc"
)

// scopes implements the two-tier environment model of §4.3: common
// variables are visible to both host- and guest-side expansion, host-only
// variables are visible exclusively to wasmer.env/wasmer.args expansion.
type scopes struct {
	common   map[string]string
	hostOnly map[string]string
}

func newScopes(baseDir string, tc borealis.TestCase, assets borealis.Assets) scopes {
	common := map[string]string{
		"PKG_NAMESPACE":    tc.Namespace,
		"PKG_NAME":         tc.PackageName,
		"PKG_VERSION":      tc.Version(),
		"TARBALL_FILENAME": tarballFilename,
	}
	if assets.HasWebC() {
		common["WEBC_FILENAME"] = webcFilename
	}

	hostOnly := map[string]string{
		"TARBALL_PATH": absOrEmpty(assets.Tarball),
		"WORKING_DIR":  absOrEmpty(filepath.Join(baseDir, "working")),
	}
	if assets.HasWebC() {
		hostOnly["WEBC_PATH"] = absOrEmpty(assets.WebC)
	}

	return scopes{common: common, hostOnly: hostOnly}
}

func absOrEmpty(p string) string {
	if p == "" {
		return ""
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return abs
}

// hostLookup resolves host ∪ common, host winning on collision (§4.3).
func (s scopes) hostLookup() borealis.Lookup {
	return func(name string) (string, bool) {
		if v, ok := s.hostOnly[name]; ok {
			return v, true
		}
		if v, ok := s.common[name]; ok {
			return v, true
		}
		return "", false
	}
}

// guestLookup resolves common only (§4.3).
func (s scopes) guestLookup() borealis.Lookup {
	return func(name string) (string, bool) {
		v, ok := s.common[name]
		return v, ok
	}
}

// buildEnv computes the child process environment (§4.3 "Process
// invocation" step 3): cleared, then PATH/WASMER_DIR forwarded from the
// parent if present, then wasmer.env expanded against host scope.
func buildEnv(wasmerEnv borealis.OrderedStringMap, s scopes) []string {
	var env []string
	for _, name := range []string{"PATH", "WASMER_DIR"} {
		if v, ok := os.LookupEnv(name); ok {
			env = append(env, name+"="+v)
		}
	}
	hostLookup := s.hostLookup()
	wasmerEnv.Range(func(name string, value borealis.TemplatedString) {
		env = append(env, name+"="+value.Resolve(hostLookup))
	})
	return env
}

// buildArgs computes the child process argument list (§4.3 "Process
// invocation" step 4): run, package, wasmer.args (host scope), then
// --env=K=V for each experiment.env entry (guest scope), then "--", then
// experiment.args (guest scope).
func buildArgs(exp borealis.Experiment, s scopes) []string {
	hostLookup := s.hostLookup()
	guestLookup := s.guestLookup()

	args := []string{"run", exp.Package}
	for _, a := range exp.Wasmer.Args {
		args = append(args, a.Resolve(hostLookup))
	}
	exp.Env.Range(func(name string, value borealis.TemplatedString) {
		args = append(args, "--env="+name+"="+value.Resolve(guestLookup))
	})
	args = append(args, "--")
	for _, a := range exp.Args {
		args = append(args, a.Resolve(guestLookup))
	}
	return args
}
