package detections

import (
	"image"
	"image/color"
	"math"
	"runtime"
	"sync"

	"github.com/disintegration/imaging"
)

// letterbox is a square model input holding an aspect-preserving resize of
// the source image, centered on a grey canvas.
type letterbox struct {
	img   *image.NRGBA
	scale float32
	padX  int
	padY  int
}

// toSource maps a point from letterbox space back to source pixels.
func (l letterbox) toSource(x, y float32) (float32, float32) {
	return (x - float32(l.padX)) / l.scale, (y - float32(l.padY)) / l.scale
}

func newLetterbox(src image.Image, size int) letterbox {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	scale := math.Min(float64(size)/float64(w), float64(size)/float64(h))

	nw := int(math.Round(float64(w) * scale))
	nh := int(math.Round(float64(h) * scale))
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}

	resized := imaging.Resize(src, nw, nh, imaging.Linear)
	canvas := imaging.New(size, size, color.NRGBA{R: LetterboxFill, G: LetterboxFill, B: LetterboxFill, A: 255})

	padX := (size - nw) / 2
	padY := (size - nh) / 2
	canvas = imaging.Paste(canvas, resized, image.Pt(padX, padY))

	return letterbox{
		img:   canvas,
		scale: float32(scale),
		padX:  padX,
		padY:  padY,
	}
}

// fillInput writes img into dst as planar RGB scaled to [0, 1].
// Rows are split across workers.
func fillInput(img *image.NRGBA, dst []float32) {
	width := img.Bounds().Dx()
	height := img.Bounds().Dy()
	channelSize := width * height

	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers > height {
		numWorkers = height
	}
	rowsPerWorker := height / numWorkers

	var wg sync.WaitGroup
	wg.Add(numWorkers)

	for w := 0; w < numWorkers; w++ {
		startRow := w * rowsPerWorker
		endRow := startRow + rowsPerWorker
		if w == numWorkers-1 {
			endRow = height
		}

		go func(start, end int) {
			defer wg.Done()
			for y := start; y < end; y++ {
				src := img.Pix[y*img.Stride:]
				offset := y * width
				for x := 0; x < width; x++ {
					i := offset + x
					p := x * 4
					dst[i] = float32(src[p]) / 255.0
					dst[channelSize+i] = float32(src[p+1]) / 255.0
					dst[channelSize*2+i] = float32(src[p+2]) / 255.0
				}
			}
		}(startRow, endRow)
	}

	wg.Wait()
}
