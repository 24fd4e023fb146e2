// imageprocessor.go - Image preparation for the vision model and quality measurements

package processor

import (
	"bytes"
	"fmt"
	"image"
	"math"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // register webp decoder for imaging.Open
)

// PreparedImage is an image encoded for transmission to the model
type PreparedImage struct {
	Data           []byte
	MIMEType       string
	Width          int
	Height         int
	OriginalWidth  int
	OriginalHeight int
}

// PrepareImage decodes the image, downscales it so the longest side is at most maxDimension
// (0 disables) and re-encodes it. No enhancement is applied: the model must see the degradation.
func PrepareImage(imagePath string, maxDimension int) (*PreparedImage, error) {
	img, err := imaging.Open(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}

	bounds := img.Bounds()
	prepared := &PreparedImage{
		OriginalWidth:  bounds.Dx(),
		OriginalHeight: bounds.Dy(),
	}

	img = fitWithin(img, maxDimension)
	prepared.Width = img.Bounds().Dx()
	prepared.Height = img.Bounds().Dy()

	// Lossy sources stay JPEG, everything else is sent losslessly
	var buf bytes.Buffer
	ext := strings.ToLower(filepath.Ext(imagePath))
	switch ext {
	case ".jpg", ".jpeg":
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(95))
		prepared.MIMEType = "image/jpeg"
	default:
		err = imaging.Encode(&buf, img, imaging.PNG)
		prepared.MIMEType = "image/png"
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode prepared image: %w", err)
	}

	prepared.Data = buf.Bytes()
	return prepared, nil
}

func fitWithin(img image.Image, maxDimension int) image.Image {
	if maxDimension <= 0 {
		return img
	}
	width := img.Bounds().Dx()
	height := img.Bounds().Dy()
	if width <= maxDimension && height <= maxDimension {
		return img
	}
	if width > height {
		return imaging.Resize(img, maxDimension, 0, imaging.Lanczos)
	}
	return imaging.Resize(img, 0, maxDimension, imaging.Lanczos)
}

// ImageStats are informational measurements of an image
type ImageStats struct {
	Width        int     `json:"width"`
	Height       int     `json:"height"`
	Brightness   float64 `json:"brightness"`    // mean luma, 0-255
	Contrast     float64 `json:"contrast"`      // luma range of sampled pixels
	Sharpness    float64 `json:"sharpness"`     // variance of the Laplacian
	QualityScore float64 `json:"quality_score"` // 0-100
}

// MeasureFile opens the image at path and measures it
func MeasureFile(imagePath string) (ImageStats, error) {
	img, err := imaging.Open(imagePath)
	if err != nil {
		return ImageStats{}, fmt.Errorf("failed to open image: %w", err)
	}
	return MeasureImage(img), nil
}

// MeasureImage computes brightness, contrast and Laplacian-variance sharpness
func MeasureImage(img image.Image) ImageStats {
	bounds := img.Bounds()
	stats := ImageStats{Width: bounds.Dx(), Height: bounds.Dy()}
	if stats.Width == 0 || stats.Height == 0 {
		return stats
	}

	// Sample pixels (every 10th pixel for performance)
	var totalBrightness float64
	minBrightness := 255.0
	maxBrightness := 0.0
	pixelCount := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y += 10 {
		for x := bounds.Min.X; x < bounds.Max.X; x += 10 {
			brightness := luma(img, x, y)
			totalBrightness += brightness
			minBrightness = math.Min(minBrightness, brightness)
			maxBrightness = math.Max(maxBrightness, brightness)
			pixelCount++
		}
	}

	stats.Brightness = totalBrightness / float64(pixelCount)
	stats.Contrast = maxBrightness - minBrightness
	stats.Sharpness = laplacianVariance(img)

	// Ideal: brightness = 128, contrast = 200+
	brightnessScore := 100.0 - math.Abs(stats.Brightness-128.0)/1.28
	contrastScore := math.Min(stats.Contrast/2.0, 100.0)
	stats.QualityScore = (brightnessScore * 0.4) + (contrastScore * 0.6)

	return stats
}

// laplacianVariance convolves the grayscale image with the 4-neighbour Laplacian kernel
func laplacianVariance(img image.Image) float64 {
	gray := imaging.Grayscale(img)
	width := gray.Bounds().Dx()
	height := gray.Bounds().Dy()
	if width < 3 || height < 3 {
		return 0
	}

	at := func(x, y int) float64 {
		return float64(gray.Pix[y*gray.Stride+x*4])
	}

	var sum, sumSq float64
	n := 0
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			v := at(x-1, y) + at(x+1, y) + at(x, y-1) + at(x, y+1) - 4*at(x, y)
			sum += v
			sumSq += v * v
			n++
		}
	}

	mean := sum / float64(n)
	return sumSq/float64(n) - mean*mean
}

func luma(img image.Image, x, y int) float64 {
	r, g, b, _ := img.At(x, y).RGBA()
	return (float64(r>>8) + float64(g>>8) + float64(b>>8)) / 3.0
}
