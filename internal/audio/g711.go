package audio

var ulawTable [256]int16

func init() {
	for i := 0; i < 256; i++ {
		ulawTable[i] = decodeUlawSample(byte(i))
	}
}

func decodeUlawSample(b byte) int16 {
	b = ^b
	sign := int16(1)
	if b&0x80 != 0 {
		sign = -1
		b &= 0x7F
	}
	exponent := int16((b >> 4) & 0x07)
	mantissa := int16(b & 0x0F)
	sample := (mantissa<<3 + 0x84) << exponent
	sample -= 0x84
	return sign * sample
}

// DecodeUlaw converts G.711 µ-law bytes to 16-bit linear PCM samples.
func DecodeUlaw(data []byte) []int {
	samples := make([]int, len(data))
	for i, b := range data {
		samples[i] = int(ulawTable[b])
	}
	return samples
}
