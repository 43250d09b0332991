package networktables

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// rttTopic is the reserved topic id for time synchronisation.
const rttTopic = -1

// Control is a JSON text-frame message.
type Control struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

// PublishParams announces a topic this client will write.
type PublishParams struct {
	Name       string                 `json:"name"`
	PubUID     int                    `json:"pubuid"`
	Type       string                 `json:"type"`
	Properties map[string]interface{} `json:"properties"`
}

// UnpublishParams retracts a publisher.
type UnpublishParams struct {
	PubUID int `json:"pubuid"`
}

// SetPropertiesParams updates topic properties.
type SetPropertiesParams struct {
	Name   string                 `json:"name"`
	Update map[string]interface{} `json:"update"`
}

// SubscribeParams asks the server for topic values.
type SubscribeParams struct {
	Topics  []string               `json:"topics"`
	SubUID  int                    `json:"subuid"`
	Options map[string]interface{} `json:"options"`
}

// AnnounceParams is sent by the server for each known topic.
type AnnounceParams struct {
	Name       string                 `json:"name"`
	ID         int64                  `json:"id"`
	Type       string                 `json:"type"`
	PubUID     *int                   `json:"pubuid,omitempty"`
	Properties map[string]interface{} `json:"properties"`
}

// UnannounceParams is sent by the server when a topic goes away.
type UnannounceParams struct {
	Name string `json:"name"`
	ID   int64  `json:"id"`
}

// EncodeControl encodes control messages as one JSON array text frame.
func EncodeControl(method string, params ...interface{}) ([]byte, error) {
	msgs := make([]Control, 0, len(params))
	for _, p := range params {
		raw, err := json.Marshal(p)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, Control{Method: method, Params: raw})
	}
	return json.Marshal(msgs)
}

// DecodeControl parses a text frame.
func DecodeControl(data []byte) ([]Control, error) {
	var msgs []Control
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, fmt.Errorf("networktables: decode control: %w", err)
	}
	return msgs, nil
}

// Frame is one binary value message.
type Frame struct {
	ID        int64
	Timestamp int64 // Server time, microseconds
	Value     Value
}

// EncodeFrame appends the msgpack form of f to buf.
func EncodeFrame(buf *bytes.Buffer, f Frame) error {
	enc := msgpack.NewEncoder(buf)
	if err := enc.EncodeArrayLen(4); err != nil {
		return err
	}
	if err := enc.EncodeInt(f.ID); err != nil {
		return err
	}
	if err := enc.EncodeInt(f.Timestamp); err != nil {
		return err
	}
	if err := enc.EncodeInt(int64(f.Value.Type)); err != nil {
		return err
	}
	return encodeValue(enc, f.Value)
}

func encodeValue(enc *msgpack.Encoder, v Value) error {
	switch d := v.Data.(type) {
	case bool:
		return enc.EncodeBool(d)
	case float64:
		return enc.EncodeFloat64(d)
	case float32:
		return enc.EncodeFloat32(d)
	case int64:
		return enc.EncodeInt(d)
	case string:
		return enc.EncodeString(d)
	case []byte:
		return enc.EncodeBytes(d)
	case []bool:
		if err := enc.EncodeArrayLen(len(d)); err != nil {
			return err
		}
		for _, x := range d {
			if err := enc.EncodeBool(x); err != nil {
				return err
			}
		}
	case []float64:
		if err := enc.EncodeArrayLen(len(d)); err != nil {
			return err
		}
		for _, x := range d {
			if err := enc.EncodeFloat64(x); err != nil {
				return err
			}
		}
	case []float32:
		if err := enc.EncodeArrayLen(len(d)); err != nil {
			return err
		}
		for _, x := range d {
			if err := enc.EncodeFloat32(x); err != nil {
				return err
			}
		}
	case []int64:
		if err := enc.EncodeArrayLen(len(d)); err != nil {
			return err
		}
		for _, x := range d {
			if err := enc.EncodeInt(x); err != nil {
				return err
			}
		}
	case []string:
		if err := enc.EncodeArrayLen(len(d)); err != nil {
			return err
		}
		for _, x := range d {
			if err := enc.EncodeString(x); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("networktables: unsupported value %T", v.Data)
	}
	return nil
}

// DecodeFrames parses every value message in a binary frame.
func DecodeFrames(data []byte) ([]Frame, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	var frames []Frame
	for {
		n, err := dec.DecodeArrayLen()
		if errors.Is(err, io.EOF) {
			return frames, nil
		}
		if err != nil {
			return frames, fmt.Errorf("networktables: decode frame: %w", err)
		}
		if n != 4 {
			return frames, fmt.Errorf("networktables: frame has %d elements, want 4", n)
		}

		var f Frame
		if f.ID, err = dec.DecodeInt64(); err != nil {
			return frames, err
		}
		if f.Timestamp, err = dec.DecodeInt64(); err != nil {
			return frames, err
		}
		typ, err := dec.DecodeInt()
		if err != nil {
			return frames, err
		}
		if f.Value, err = decodeValue(dec, Type(typ)); err != nil {
			return frames, err
		}
		frames = append(frames, f)
	}
}

func decodeValue(dec *msgpack.Decoder, t Type) (Value, error) {
	switch t {
	case TypeBoolean:
		return decodeAs(Boolean, dec.DecodeBool)
	case TypeDouble:
		return decodeAs(Double, dec.DecodeFloat64)
	case TypeInt:
		return decodeAs(Int, dec.DecodeInt64)
	case TypeFloat:
		return decodeAs(Float, dec.DecodeFloat32)
	case TypeString:
		return decodeAs(String, dec.DecodeString)
	case TypeRaw:
		return decodeAs(Raw, dec.DecodeBytes)
	case TypeBooleanArray:
		v, err := decodeArray(dec, dec.DecodeBool)
		return BooleanArray(v), err
	case TypeDoubleArray:
		v, err := decodeArray(dec, dec.DecodeFloat64)
		return DoubleArray(v), err
	case TypeIntArray:
		v, err := decodeArray(dec, dec.DecodeInt64)
		return IntArray(v), err
	case TypeFloatArray:
		v, err := decodeArray(dec, dec.DecodeFloat32)
		return FloatArray(v), err
	case TypeStringArray:
		v, err := decodeArray(dec, dec.DecodeString)
		return StringArray(v), err
	}

	data, err := dec.DecodeInterface()
	return Value{Type: t, Data: data}, err
}

func decodeAs[T any](wrap func(T) Value, read func() (T, error)) (Value, error) {
	v, err := read()
	if err != nil {
		return Value{}, err
	}
	return wrap(v), nil
}

func decodeArray[T any](dec *msgpack.Decoder, read func() (T, error)) ([]T, error) {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, nil
	}
	out := make([]T, n)
	for i := range out {
		if out[i], err = read(); err != nil {
			return nil, err
		}
	}
	return out, nil
}
