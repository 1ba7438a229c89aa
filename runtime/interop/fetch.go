package interop

// FetchHandles runs the count-then-fill protocol against enumerate and
// returns the handles in the order the runtime produced them. A nil
// enumerate or a non-positive count yields nil.
func FetchHandles[O any](owner O, enumerate func(O, []Handle, *int32)) []Handle {
	if enumerate == nil {
		return nil
	}

	var count int32
	enumerate(owner, nil, &count)
	if count <= 0 {
		return nil
	}

	out := make([]Handle, count)
	written := count
	enumerate(owner, out, &written)

	// the runtime may shrink the list between the two calls
	if written >= 0 && int(written) < len(out) {
		out = out[:written]
	}
	return out
}
