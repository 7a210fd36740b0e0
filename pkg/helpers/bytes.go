package helpers

// CopyBytes returns a copy of the given byte slice.
// Returns nil for a nil input.
func CopyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Uint64ToBE encodes a uint64 as 8 big-endian bytes.
func Uint64ToBE(n uint64) []byte {
	out := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		out[i] = byte(n)
		n >>= 8
	}
	return out
}

// BEToUint64 decodes 8 big-endian bytes into a uint64.
// Shorter inputs are treated as left-padded with zeros.
func BEToUint64(b []byte) uint64 {
	var n uint64
	for _, c := range b {
		n = n<<8 | uint64(c)
	}
	return n
}
