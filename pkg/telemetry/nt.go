package telemetry

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/multierr"

	"github.com/teslashibe/go-frcvision/pkg/networktables"
)

// Defaults for the NetworkTables publisher.
const (
	DefaultTable    = "/ML"
	DefaultHardware = "USB Camera"
)

// Setter writes a typed value to a NetworkTables topic.
type Setter interface {
	Set(name string, v networktables.Value) error
}

// PropertySetter is implemented by clients that can update topic
// properties after publishing.
type PropertySetter interface {
	SetProperties(name string, update map[string]interface{}) error
}

// staticKeys rarely change between reports and are kept by the server
// after this process goes away.
var staticKeys = []string{"resolution", "hardware", "labels"}

// NT publishes reports into a NetworkTables table using the WPILib ML
// layout: a JSON "detections" string plus scalar and array entries.
type NT struct {
	client   Setter
	table    string
	hardware string
	retained bool
}

// NewNT creates a NetworkTables publisher writing under table.
func NewNT(client Setter, table, hardware string) *NT {
	if table == "" {
		table = DefaultTable
	}
	if hardware == "" {
		hardware = DefaultHardware
	}
	return &NT{client: client, table: table, hardware: hardware}
}

// Topic returns the full topic name for key.
func (n *NT) Topic(key string) string {
	return n.table + "/" + key
}

// PutData writes every entry for r. All entries are attempted even when
// one fails.
func (n *NT) PutData(_ context.Context, r Report) error {
	objects := r.Objects()
	encoded, err := json.Marshal(objects)
	if err != nil {
		return fmt.Errorf("encode detections: %w", err)
	}

	boxes := make([]float64, 0, 4*len(r.Detections))
	confidences := make([]float64, len(r.Detections))
	classes := make([]int64, len(r.Detections))
	for i, d := range r.Detections {
		boxes = append(boxes,
			float64(d.Box.XMin), float64(d.Box.YMin),
			float64(d.Box.XMax), float64(d.Box.YMax))
		confidences[i] = d.Confidence
		classes[i] = int64(d.ClassID)
	}

	err = multierr.Combine(
		n.client.Set(n.Topic("detections"), networktables.JSON(string(encoded))),
		n.client.Set(n.Topic("fps"), networktables.Double(r.FPS)),
		n.client.Set(n.Topic("num_objects"), networktables.Int(int64(len(r.Detections)))),
		n.client.Set(n.Topic("resolution"), networktables.String(r.Resolution())),
		n.client.Set(n.Topic("hardware"), networktables.String(n.hardware)),
		n.client.Set(n.Topic("labels"), networktables.StringArray(r.Labels.Names())),
		n.client.Set(n.Topic("boxes"), networktables.DoubleArray(boxes)),
		n.client.Set(n.Topic("confidences"), networktables.DoubleArray(confidences)),
		n.client.Set(n.Topic("classes"), networktables.IntArray(classes)),
	)
	if err != nil {
		return err
	}
	return n.retainStatic()
}

// retainStatic marks the static topics retained once they exist.
func (n *NT) retainStatic() error {
	ps, ok := n.client.(PropertySetter)
	if !ok || n.retained {
		return nil
	}
	var err error
	for _, key := range staticKeys {
		err = multierr.Append(err, ps.SetProperties(n.Topic(key), map[string]interface{}{"retained": true}))
	}
	n.retained = err == nil
	return err
}

// Close is a no-op; the client is owned by the caller.
func (n *NT) Close() error {
	return nil
}
