package borealis

import "testing"

func TestTemplatedStringResolve(t *testing.T) {
	lookup := MapLookup(map[string]string{
		"PKG_NAME": "hello",
		"HOME":     "/home/demo",
	})

	for _, tt := range []struct {
		name string
		in   TemplatedString
		want string
	}{
		{"literal", "no variables here", "no variables here"},
		{"braced", "Hello ${PKG_NAME}", "Hello hello"},
		{"bare", "Hello $PKG_NAME", "Hello hello"},
		{"unknown expands empty", "${MISSING}x", "x"},
		{"tilde prefix", "~/cache", "/home/demo/cache"},
		{"tilde alone", "~", "/home/demo"},
		{"tilde mid-string untouched", "a~b", "a~b"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Resolve(lookup); got != tt.want {
				t.Fatalf("Resolve(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// TestTemplatedStringIdempotent exercises property P6: resolving twice with
// the same lookup is a no-op on the second pass, because the output no
// longer contains variable syntax.
func TestTemplatedStringIdempotent(t *testing.T) {
	lookup := MapLookup(map[string]string{"X": "value"})
	in := TemplatedString("prefix-${X}-suffix")
	once := in.Resolve(lookup)
	twice := TemplatedString(once).Resolve(lookup)
	if once != twice {
		t.Fatalf("resolve not idempotent: %q != %q", once, twice)
	}
	if once != "prefix-value-suffix" {
		t.Fatalf("unexpected resolution: %q", once)
	}
}

func TestTemplatedStringNeverErrors(t *testing.T) {
	in := TemplatedString("${UNSET_A}${UNSET_B}")
	got := in.Resolve(MapLookup(nil))
	if got != "" {
		t.Fatalf("expected empty expansion for unknown vars, got %q", got)
	}
}
