package networktables

import "fmt"

// Type is an NT4 data type.
type Type int

// Binary type ids from the NT4 protocol.
const (
	TypeBoolean      Type = 0
	TypeDouble       Type = 1
	TypeInt          Type = 2
	TypeFloat        Type = 3
	TypeString       Type = 4
	TypeRaw          Type = 5
	TypeBooleanArray Type = 16
	TypeDoubleArray  Type = 17
	TypeIntArray     Type = 18
	TypeFloatArray   Type = 19
	TypeStringArray  Type = 20
)

// Value is a typed topic value. The type string used in publish messages
// can differ from the binary id; "json" travels as a string.
type Value struct {
	Type     Type
	TypeName string
	Data     interface{}
}

// Boolean creates a boolean value
func Boolean(v bool) Value { return Value{Type: TypeBoolean, TypeName: "boolean", Data: v} }

// Double creates a double value
func Double(v float64) Value { return Value{Type: TypeDouble, TypeName: "double", Data: v} }

// Int creates an int value
func Int(v int64) Value { return Value{Type: TypeInt, TypeName: "int", Data: v} }

// Float creates a float value
func Float(v float32) Value { return Value{Type: TypeFloat, TypeName: "float", Data: v} }

// String creates a string value
func String(v string) Value { return Value{Type: TypeString, TypeName: "string", Data: v} }

// JSON creates a string value announced with the "json" type.
func JSON(v string) Value { return Value{Type: TypeString, TypeName: "json", Data: v} }

// Raw creates a raw bytes value
func Raw(v []byte) Value { return Value{Type: TypeRaw, TypeName: "raw", Data: v} }

// BooleanArray creates a boolean[] value
func BooleanArray(v []bool) Value {
	return Value{Type: TypeBooleanArray, TypeName: "boolean[]", Data: v}
}

// DoubleArray creates a double[] value
func DoubleArray(v []float64) Value {
	return Value{Type: TypeDoubleArray, TypeName: "double[]", Data: v}
}

// IntArray creates an int[] value
func IntArray(v []int64) Value {
	return Value{Type: TypeIntArray, TypeName: "int[]", Data: v}
}

// FloatArray creates a float[] value
func FloatArray(v []float32) Value {
	return Value{Type: TypeFloatArray, TypeName: "float[]", Data: v}
}

// StringArray creates a string[] value
func StringArray(v []string) Value {
	return Value{Type: TypeStringArray, TypeName: "string[]", Data: v}
}

// typeFromName maps announce type strings to binary ids.
func typeFromName(name string) (Type, error) {
	switch name {
	case "boolean":
		return TypeBoolean, nil
	case "double":
		return TypeDouble, nil
	case "int":
		return TypeInt, nil
	case "float":
		return TypeFloat, nil
	case "string", "json":
		return TypeString, nil
	case "raw", "rpc", "msgpack", "protobuf":
		return TypeRaw, nil
	case "boolean[]":
		return TypeBooleanArray, nil
	case "double[]":
		return TypeDoubleArray, nil
	case "int[]":
		return TypeIntArray, nil
	case "float[]":
		return TypeFloatArray, nil
	case "string[]":
		return TypeStringArray, nil
	}
	return 0, fmt.Errorf("networktables: unknown type %q", name)
}
