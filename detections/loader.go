package detections

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"
)

type ORTConfig struct {
	ModelPath      string
	LibraryPath    string
	Device         Device
	IntraOpThreads int
	InterOpThreads int
}

// ORTLoader loads an exported Faster R-CNN graph into ONNX Runtime.
type ORTLoader struct {
	cfg ORTConfig
	log logrus.FieldLogger
}

func NewORTLoader(cfg ORTConfig, log logrus.FieldLogger) *ORTLoader {
	return &ORTLoader{cfg: cfg, log: log}
}

func (l *ORTLoader) Load(ctx context.Context) (Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, newLoadError(KindUnknown, l.cfg.ModelPath, err)
	}

	data, err := readWeights(l.cfg.ModelPath)
	if err != nil {
		return nil, err
	}
	l.log.WithFields(logrus.Fields{
		"path":   l.cfg.ModelPath,
		"bytes":  len(data),
		"device": l.cfg.Device,
	}).Info("Loading model")

	options, err := l.construct()
	if err != nil {
		return nil, err
	}
	defer options.Destroy()

	return l.loadWeights(options, data)
}

func readWeights(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, newLoadError(KindFileMissing, path, nil)
	}
	if err != nil {
		return nil, newLoadError(KindUnreadable, path, err)
	}
	if info.IsDir() {
		return nil, newLoadError(KindUnreadable, path, errors.New("path is a directory"))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, newLoadError(KindUnreadable, path, err)
	}
	if len(data) == 0 {
		return nil, newLoadError(KindCorrupt, path, errors.New("file is empty"))
	}
	return data, nil
}

// construct prepares the runtime and the session options for the chosen device.
func (l *ORTLoader) construct() (*ort.SessionOptions, error) {
	if !ort.IsInitialized() {
		if l.cfg.LibraryPath != "" {
			ort.SetSharedLibraryPath(l.cfg.LibraryPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, newLoadError(KindUnknown, l.cfg.ModelPath, fmt.Errorf("initialize onnxruntime: %w", err))
		}
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, newLoadError(KindUnknown, l.cfg.ModelPath, fmt.Errorf("create session options: %w", err))
	}

	if l.cfg.IntraOpThreads > 0 {
		if err := options.SetIntraOpNumThreads(l.cfg.IntraOpThreads); err != nil {
			options.Destroy()
			return nil, newLoadError(KindUnknown, l.cfg.ModelPath, fmt.Errorf("set intra-op threads: %w", err))
		}
	}
	if l.cfg.InterOpThreads > 0 {
		if err := options.SetInterOpNumThreads(l.cfg.InterOpThreads); err != nil {
			options.Destroy()
			return nil, newLoadError(KindUnknown, l.cfg.ModelPath, fmt.Errorf("set inter-op threads: %w", err))
		}
	}

	if l.cfg.Device == DeviceCUDA {
		cudaOptions, err := ort.NewCUDAProviderOptions()
		if err != nil {
			options.Destroy()
			return nil, newLoadError(KindUnknown, l.cfg.ModelPath, fmt.Errorf("create cuda options: %w", err))
		}
		defer cudaOptions.Destroy()

		if err := options.AppendExecutionProviderCUDA(cudaOptions); err != nil {
			options.Destroy()
			return nil, newLoadError(KindUnknown, l.cfg.ModelPath, fmt.Errorf("enable cuda provider: %w", err))
		}
	}

	return options, nil
}

// loadWeights checks the graph signature and creates the session.
func (l *ORTLoader) loadWeights(options *ort.SessionOptions, data []byte) (Model, error) {
	inputs, outputs, err := ort.GetInputOutputInfoWithONNXData(data)
	if err != nil {
		return nil, newLoadError(KindCorrupt, l.cfg.ModelPath, err)
	}

	rank, err := checkArchitecture(inputs, outputs)
	if err != nil {
		return nil, newLoadError(KindArchitectureMismatch, l.cfg.ModelPath, err)
	}

	session, err := ort.NewDynamicAdvancedSessionWithONNXData(
		data,
		[]string{InputName},
		[]string{BoxesOutput, LabelsOutput, ScoresOutput},
		options,
	)
	if err != nil {
		return nil, newLoadError(KindUnknown, l.cfg.ModelPath, fmt.Errorf("create session: %w", err))
	}

	return &ModelSession{Session: session, inputRank: rank}, nil
}

func checkArchitecture(inputs, outputs []ort.InputOutputInfo) (int, error) {
	rank := 0
	for _, in := range inputs {
		if in.Name != InputName {
			continue
		}
		if in.DataType != ort.TensorElementDataTypeFloat {
			return 0, fmt.Errorf("input %q has type %v, want float", in.Name, in.DataType)
		}
		rank = len(in.Dimensions)
	}
	if rank != 3 && rank != 4 {
		return 0, fmt.Errorf("graph has no %q input of rank 3 or 4", InputName)
	}

	want := map[string]ort.TensorElementDataType{
		BoxesOutput:  ort.TensorElementDataTypeFloat,
		LabelsOutput: ort.TensorElementDataTypeInt64,
		ScoresOutput: ort.TensorElementDataTypeFloat,
	}
	for _, out := range outputs {
		dataType, ok := want[out.Name]
		if !ok {
			continue
		}
		if out.DataType != dataType {
			return 0, fmt.Errorf("output %q has type %v, want %v", out.Name, out.DataType, dataType)
		}
		delete(want, out.Name)
	}
	for name := range want {
		return 0, fmt.Errorf("graph has no %q output", name)
	}

	return rank, nil
}

// DestroyEnvironment releases the runtime if a load ever initialized it.
func DestroyEnvironment() error {
	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}
