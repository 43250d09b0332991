package telemetry

import (
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Struct converts the report snapshot into a protobuf Struct with the same
// field names as the JSON form.
func (r Report) Struct() (*structpb.Struct, error) {
	objects := make([]interface{}, 0, len(r.Detections))
	for _, o := range r.Objects() {
		objects = append(objects, map[string]interface{}{
			"label":      o.Label,
			"class_id":   o.ClassID,
			"confidence": o.Confidence,
			"box": map[string]interface{}{
				"ymin": o.Box.YMin,
				"xmin": o.Box.XMin,
				"ymax": o.Box.YMax,
				"xmax": o.Box.XMax,
			},
		})
	}

	return structpb.NewStruct(map[string]interface{}{
		"frame":        float64(r.Frame),
		"timestamp_ms": float64(r.Timestamp.UnixMilli()),
		"fps":          r.FPS,
		"resolution":   r.Resolution(),
		"num_objects":  len(r.Detections),
		"detections":   objects,
	})
}

// MarshalProto encodes the report as a serialized protobuf Struct.
func (r Report) MarshalProto() ([]byte, error) {
	s, err := r.Struct()
	if err != nil {
		return nil, err
	}
	return proto.Marshal(s)
}
