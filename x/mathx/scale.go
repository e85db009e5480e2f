package mathx

// MulDiv returns v*num/den with a 64-bit intermediate so firmware maths on
// 12-bit ADC counts and millivolt constants cannot overflow. den==0 yields 0.
func MulDiv(v, num, den uint32) uint32 {
	if den == 0 {
		return 0
	}
	return uint32(uint64(v) * uint64(num) / uint64(den))
}

// Mean returns the truncated integer mean of sum over n samples.
func Mean(sum uint32, n int) uint32 {
	if n <= 0 {
		return 0
	}
	return sum / uint32(n)
}
