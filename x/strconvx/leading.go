package strconvx

const (
	maxInt32 = 1<<31 - 1
	minInt32 = -1 << 31
)

// LeadingInt parses the integer prefix of s the way C atoi does: optional
// leading spaces, an optional sign, then decimal digits up to the first
// non-digit. Input without digits yields 0. Out-of-range values saturate to
// the int32 range so results are identical on 32-bit targets.
func LeadingInt(s string) int {
	i := 0
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	neg := false
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		neg = s[i] == '-'
		i++
	}
	var v int64
	for ; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		v = v*10 + int64(s[i]-'0')
		if v > maxInt32+1 {
			v = maxInt32 + 1
		}
	}
	if neg {
		v = -v
	}
	if v > maxInt32 {
		v = maxInt32
	}
	if v < minInt32 {
		v = minInt32
	}
	return int(v)
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}
