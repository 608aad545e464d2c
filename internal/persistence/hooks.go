package persistence

// hookProbes are representative record strings used to validate that
// afterSerialization/beforeDeserialization round-trip each other. They deliberately exercise the
// empty string, ASCII, embedded quotes/braces (as in a serialized
// document), and non-ASCII text.
var hookProbes = []string{
	"",
	"a",
	`{"_id":"abc123","a":1}`,
	`{"name":"café","tags":["x","y"],"n":null}`,
	"the quick brown fox jumps over the lazy dog 0123456789",
}

// validateHookBijection checks that for every probe, after(probe) can be
// recovered exactly via before(after(probe)). A hook pair that fails this
// cannot safely round-trip the log: data would be silently corrupted on
// reload.
func validateHookBijection(before, after SerializationHook) error {
	for _, probe := range hookProbes {
		encoded, err := after(probe)
		if err != nil {
			return &ErrHookNotBijective{Sample: probe, Err: err}
		}
		decoded, err := before(encoded)
		if err != nil {
			return &ErrHookNotBijective{Sample: probe, Err: err}
		}
		if decoded != probe {
			return &ErrHookNotBijective{Sample: probe, Err: errMismatch(probe, decoded)}
		}
	}
	return nil
}

type mismatchError struct {
	want, got string
}

func (e *mismatchError) Error() string {
	return "round-trip mismatch: want " + quote(e.want) + " got " + quote(e.got)
}

func errMismatch(want, got string) error {
	return &mismatchError{want: want, got: got}
}

func quote(s string) string {
	if len(s) > 40 {
		s = s[:40] + "..."
	}
	return "\"" + s + "\""
}
