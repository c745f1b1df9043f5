// SPDX-License-Identifier: EPL-2.0

package utils

// Float32ToInt16 clamps x to [-1, 1] and scales it to 16-bit PCM.
func Float32ToInt16(x float32) int16 {
	if x > 1 {
		x = 1
	} else if x < -1 {
		x = -1
	}

	// 32767 for the positive peak avoids overflow
	return int16(x * 32767.0)
}

// Float32ToPCM clamps x to [-1, 1] and scales it to a signed integer of
// the given bit depth (8, 16, 24 or 32).
func Float32ToPCM(x float32, bitDepth int) int {
	if x > 1 {
		x = 1
	} else if x < -1 {
		x = -1
	}

	return int(float64(x) * float64(PCMScale(bitDepth)-1))
}

// PCMScale returns the magnitude of full scale for a signed PCM bit depth.
// Unknown depths are treated as 16-bit.
func PCMScale(bitDepth int) float32 {
	switch bitDepth {
	case 8:
		return 128.0
	case 24:
		return 8388608.0
	case 32:
		return 2147483648.0
	default:
		return 32768.0
	}
}
