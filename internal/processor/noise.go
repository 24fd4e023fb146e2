// noise.go - Additive Gaussian noise for dataset augmentation

package processor

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/disintegration/imaging"
)

// NoiseOptions parameterizes AddGaussianNoise
type NoiseOptions struct {
	Mean  float64
	Sigma float64
	Rand  *rand.Rand // nil uses a time-seeded source
}

// AddGaussianNoise reads src, adds per-channel Gaussian noise clipped to [0,255] and saves it to dst.
// Formats imaging cannot write (webp) get ".png" appended to the full name, so a.webp and a.png never
// share an output file. The returned path is the file actually written.
func AddGaussianNoise(src, dst string, opts NoiseOptions) (string, error) {
	img, err := imaging.Open(src)
	if err != nil {
		return "", fmt.Errorf("failed to open image: %w", err)
	}

	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	noisy := imaging.Clone(img)
	for i := 0; i < len(noisy.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			v := float64(noisy.Pix[i+c]) + rng.NormFloat64()*opts.Sigma + opts.Mean
			noisy.Pix[i+c] = uint8(math.Max(0, math.Min(255, v)))
		}
	}

	if _, err := imaging.FormatFromFilename(dst); err != nil {
		dst += ".png"
	}
	if err := imaging.Save(noisy, dst); err != nil {
		return "", fmt.Errorf("failed to save noised image: %w", err)
	}
	return dst, nil
}
