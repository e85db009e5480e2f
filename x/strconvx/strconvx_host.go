//go:build !(rp2040 || rp2350)

package strconvx

import "strconv"

// Itoa delegates straight through on host builds.
func Itoa(i int) string { return strconv.Itoa(i) }
