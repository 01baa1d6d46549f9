package backend

// extend returns dst unchanged in length together with a writable window of
// at least n bytes starting at len(dst). The window is never empty, so its
// address can always be handed to C.
func extend(dst []byte, n int) ([]byte, []byte) {
	n = max(n, 1)
	if cap(dst)-len(dst) < n {
		grown := make([]byte, len(dst), len(dst)+n)
		copy(grown, dst)
		dst = grown
	}

	return dst, dst[len(dst) : len(dst)+n]
}
