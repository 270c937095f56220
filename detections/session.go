package detections

import (
	"context"
	"fmt"

	"github.com/Tutortoise/microplastic-detection-service/models"

	ort "github.com/yalue/onnxruntime_go"
)

// Model is a loaded detector. Infer must be safe for concurrent use.
type Model interface {
	Infer(input *ImageTensor) ([]models.Candidate, error)
	Close() error
}

// Loader builds a Model. It is called at most once per holder.
type Loader interface {
	Load(ctx context.Context) (Model, error)
}

// ModelSession wraps an ONNX Runtime session running a Faster R-CNN graph.
type ModelSession struct {
	Session   *ort.DynamicAdvancedSession
	inputRank int
}

func (m *ModelSession) Infer(input *ImageTensor) ([]models.Candidate, error) {
	inputTensor, err := ort.NewTensor(ort.NewShape(input.Shape(m.inputRank)...), input.Data)
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	// nil outputs are allocated by the runtime, the box count varies per image
	outputs := []ort.Value{nil, nil, nil}
	if err := m.Session.Run([]ort.Value{inputTensor}, outputs); err != nil {
		return nil, fmt.Errorf("model inference: %w", err)
	}
	defer func() {
		for _, v := range outputs {
			if v != nil {
				v.Destroy()
			}
		}
	}()

	boxes, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected %s output type %T", BoxesOutput, outputs[0])
	}
	labels, ok := outputs[1].(*ort.Tensor[int64])
	if !ok {
		return nil, fmt.Errorf("unexpected %s output type %T", LabelsOutput, outputs[1])
	}
	scores, ok := outputs[2].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected %s output type %T", ScoresOutput, outputs[2])
	}

	return decodeOutputs(boxes.GetData(), labels.GetData(), scores.GetData())
}

func (m *ModelSession) Close() error {
	if m.Session != nil {
		return m.Session.Destroy()
	}
	return nil
}

// decodeOutputs zips the flat output buffers into candidates, keeping model order.
func decodeOutputs(boxes []float32, labels []int64, scores []float32) ([]models.Candidate, error) {
	n := len(scores)
	if len(labels) != n || len(boxes) != n*4 {
		return nil, fmt.Errorf("mismatched output lengths: boxes=%d labels=%d scores=%d", len(boxes), len(labels), n)
	}

	candidates := make([]models.Candidate, n)
	for i := 0; i < n; i++ {
		candidates[i] = models.Candidate{
			Box:   [4]float32{boxes[i*4], boxes[i*4+1], boxes[i*4+2], boxes[i*4+3]},
			Score: scores[i],
			Label: labels[i],
		}
	}
	return candidates, nil
}
