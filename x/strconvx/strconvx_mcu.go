//go:build rp2040 || rp2350

package strconvx

// Itoa formats i in base 10 without pulling strconv into the firmware image.
func Itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var buf [20]byte
	n := len(buf)
	u := uint64(i)
	if i < 0 {
		u = uint64(-int64(i))
	}
	for u > 0 {
		n--
		buf[n] = byte('0' + u%10)
		u /= 10
	}
	if i < 0 {
		n--
		buf[n] = '-'
	}
	return string(buf[n:])
}
