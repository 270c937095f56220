package detections

const (
	InputName    = "images"
	BoxesOutput  = "boxes"
	LabelsOutput = "labels"
	ScoresOutput = "scores"

	Channels              = 3
	DefaultScoreThreshold = 0.5
)
