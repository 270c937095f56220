package detections

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToTensor_ChannelFirstLayout(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	img.Set(1, 0, color.RGBA{G: 255, A: 255})
	img.Set(0, 1, color.RGBA{B: 255, A: 255})
	img.Set(1, 1, color.RGBA{R: 51, G: 102, B: 204, A: 255})

	tensor := ToTensor(img)

	require.Equal(t, 2, tensor.Width)
	require.Equal(t, 2, tensor.Height)
	require.Len(t, tensor.Data, 12)
	require.InDeltaSlice(t, []float32{
		1, 0, 0, 0.2, // R
		0, 1, 0, 0.4, // G
		0, 0, 1, 0.8, // B
	}, tensor.Data, 1e-6)
}

func TestToTensor_NonZeroOriginAndGray(t *testing.T) {
	img := image.NewGray(image.Rect(5, 5, 8, 6))
	for x := 5; x < 8; x++ {
		img.SetGray(x, 5, color.Gray{Y: 255})
	}

	tensor := ToTensor(img)

	require.Equal(t, 3, tensor.Width)
	require.Equal(t, 1, tensor.Height)
	for _, v := range tensor.Data {
		require.InDelta(t, 1.0, v, 1e-6)
	}
}

func TestToTensor_TallImageUsesAllRows(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 37))
	for y := 0; y < 37; y++ {
		img.Set(0, y, color.RGBA{R: uint8(y), A: 255})
	}

	tensor := ToTensor(img)

	for y := 0; y < 37; y++ {
		require.InDelta(t, float32(y)/255.0, tensor.Data[y], 1e-6)
	}
}

func TestImageTensor_Shape(t *testing.T) {
	tensor := &ImageTensor{Width: 640, Height: 480}

	require.Equal(t, []int64{3, 480, 640}, tensor.Shape(3))
	require.Equal(t, []int64{1, 3, 480, 640}, tensor.Shape(4))
}
