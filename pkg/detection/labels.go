package detection

import "fmt"

// LabelMap maps class index to a human-readable name.
// It is built once at startup and never mutated afterwards.
type LabelMap struct {
	names []string
}

// NewLabelMap copies names into a LabelMap.
func NewLabelMap(names []string) LabelMap {
	return LabelMap{names: append([]string(nil), names...)}
}

// DefaultLabels returns the COCO names sized to n categories.
// Indices past the COCO table fall back to generic names.
func DefaultLabels(n int) LabelMap {
	names := make([]string, n)
	for i := range names {
		if i < len(COCOClasses) {
			names[i] = COCOClasses[i]
		} else {
			names[i] = genericName(i)
		}
	}
	return LabelMap{names: names}
}

// Name returns the label for id, or "CLS<id>" when unknown.
func (m LabelMap) Name(id int) string {
	if id >= 0 && id < len(m.names) {
		return m.names[id]
	}
	return genericName(id)
}

// Len returns the number of labels
func (m LabelMap) Len() int {
	return len(m.names)
}

// Names returns a copy of the label list in index order.
func (m LabelMap) Names() []string {
	return append([]string(nil), m.names...)
}

func genericName(id int) string {
	return fmt.Sprintf("CLS%d", id)
}

// COCOClasses contains the 80 COCO class names
var COCOClasses = []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck", "boat",
	"traffic light", "fire hydrant", "stop sign", "parking meter", "bench", "bird", "cat",
	"dog", "horse", "sheep", "cow", "elephant", "bear", "zebra", "giraffe", "backpack",
	"umbrella", "handbag", "tie", "suitcase", "frisbee", "skis", "snowboard", "sports ball",
	"kite", "baseball bat", "baseball glove", "skateboard", "surfboard", "tennis racket",
	"bottle", "wine glass", "cup", "fork", "knife", "spoon", "bowl", "banana", "apple",
	"sandwich", "orange", "broccoli", "carrot", "hot dog", "pizza", "donut", "cake", "chair",
	"couch", "potted plant", "bed", "dining table", "toilet", "tv", "laptop", "mouse",
	"remote", "keyboard", "cell phone", "microwave", "oven", "toaster", "sink", "refrigerator",
	"book", "clock", "vase", "scissors", "teddy bear", "hair drier", "toothbrush",
}
