package detections

import (
	"image"
	"runtime"
	"sync"

	"github.com/disintegration/imaging"
)

// ImageTensor holds an RGB image as float32 CHW values scaled to [0,1].
type ImageTensor struct {
	Data   []float32
	Width  int
	Height int
}

// Shape returns the tensor shape for a graph input of the given rank.
// Rank 4 graphs take an explicit batch dimension of one.
func (t *ImageTensor) Shape(rank int) []int64 {
	if rank == 4 {
		return []int64{1, Channels, int64(t.Height), int64(t.Width)}
	}
	return []int64{Channels, int64(t.Height), int64(t.Width)}
}

type channelProcessor struct {
	width, height int
	channelSize   int
	numWorkers    int
}

func newChannelProcessor(width, height int) *channelProcessor {
	workers := runtime.GOMAXPROCS(0)
	if workers > height {
		workers = height
	}
	if workers < 1 {
		workers = 1
	}
	return &channelProcessor{
		width:       width,
		height:      height,
		channelSize: width * height,
		numWorkers:  workers,
	}
}

// ToTensor converts img to a channel-first tensor. Alpha is dropped.
func ToTensor(img image.Image) *ImageTensor {
	src := imaging.Clone(img)
	b := src.Bounds()
	cp := newChannelProcessor(b.Dx(), b.Dy())

	buffer := make([]float32, cp.channelSize*Channels)
	cp.processParallel(src, buffer)

	return &ImageTensor{
		Data:   buffer,
		Width:  cp.width,
		Height: cp.height,
	}
}

func (cp *channelProcessor) processParallel(img *image.NRGBA, buffer []float32) {
	rowsPerWorker := cp.height / cp.numWorkers

	var wg sync.WaitGroup
	wg.Add(cp.numWorkers)

	for w := 0; w < cp.numWorkers; w++ {
		startRow := w * rowsPerWorker
		endRow := (w + 1) * rowsPerWorker
		if w == cp.numWorkers-1 {
			endRow = cp.height
		}

		go func(start, end int) {
			defer wg.Done()
			for y := start; y < end; y++ {
				row := img.Pix[y*img.Stride : y*img.Stride+cp.width*4]
				offset := y * cp.width
				for x := 0; x < cp.width; x++ {
					i := offset + x
					buffer[i] = float32(row[x*4]) / 255.0
					buffer[cp.channelSize+i] = float32(row[x*4+1]) / 255.0
					buffer[cp.channelSize*2+i] = float32(row[x*4+2]) / 255.0
				}
			}
		}(startRow, endRow)
	}

	wg.Wait()
}
