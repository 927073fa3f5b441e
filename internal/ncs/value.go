package ncs

import "fmt"

// ValueType is the runtime type tag of a Value cell on the operand stack.
type ValueType byte

const (
	ValueVoid ValueType = iota
	ValueInt
	ValueFloat
	ValueString
	ValueObject
	ValueEffect
	ValueEvent
	ValueLocation
	ValueTalent
	ValueAction
	// ValueVector tags a Value that logically carries a 3-component
	// vector. It never appears as a single operand-stack cell — on the
	// stack a vector is always three adjacent Float cells — but it is
	// the declared argument/return type routines use for their Vector
	// parameters, and ACTION marshals between the two representations.
	ValueVector
)

var valueTypeNames = [...]string{
	ValueVoid:     "void",
	ValueInt:      "int",
	ValueFloat:    "float",
	ValueString:   "string",
	ValueObject:   "object",
	ValueEffect:   "effect",
	ValueEvent:    "event",
	ValueLocation: "location",
	ValueTalent:   "talent",
	ValueAction:   "action",
	ValueVector:   "vector",
}

// String returns the lower-case type name, matching bytecode's
// ValueTypeNames array-indexed String() idiom.
func (vt ValueType) String() string {
	if int(vt) < len(valueTypeNames) {
		return valueTypeNames[vt]
	}
	return "unknown"
}

// EngineHandle is an opaque, reference-counted engine-type value (Effect,
// Event, Location, Talent). The VM never inspects Payload; it is carried
// through ACTION dispatch for the embedder's routines to interpret.
type EngineHandle struct {
	Kind    ValueType
	Payload interface{}
}

// Value is a single operand-stack cell. It is a value-semantic tagged
// union rather than an interface{}-backed union like bytecode.Value,
// since the NCS type set is closed and small enough to give every
// variant its own field.
type Value struct {
	Type   ValueType
	Int    int32
	Float  float32
	Str    string
	Object uint32
	Engine *EngineHandle
	Action *Continuation
	Vec    Vector
}

func VoidValue() Value                  { return Value{Type: ValueVoid} }
func IntValue(i int32) Value            { return Value{Type: ValueInt, Int: i} }
func FloatValue(f float32) Value        { return Value{Type: ValueFloat, Float: f} }
func StringValue(s string) Value        { return Value{Type: ValueString, Str: s} }
func ObjectValue(id uint32) Value       { return Value{Type: ValueObject, Object: id} }
func ActionValue(c *Continuation) Value { return Value{Type: ValueAction, Action: c} }
func EngineValue(h *EngineHandle) Value { return Value{Type: h.Kind, Engine: h} }
func VectorValue(v Vector) Value        { return Value{Type: ValueVector, Vec: v} }

// Bool reports the script-level truthiness of an Int cell: nonzero is true.
func (v Value) Bool() bool { return v.Int != 0 }

// String renders a Value for disassembly and error messages.
func (v Value) String() string {
	switch v.Type {
	case ValueVoid:
		return "void"
	case ValueInt:
		return fmt.Sprintf("%d", v.Int)
	case ValueFloat:
		return fmt.Sprintf("%g", v.Float)
	case ValueString:
		return fmt.Sprintf("%q", v.Str)
	case ValueObject:
		return fmt.Sprintf("obj#%d", v.Object)
	case ValueAction:
		return "<action>"
	default:
		return fmt.Sprintf("<%s>", v.Type)
	}
}

// Equal implements tag-and-payload equality. Engine handles compare by
// pointer identity, matching their reference-counted-handle semantics.
func (v Value) Equal(o Value) bool {
	if v.Type != o.Type {
		return false
	}
	switch v.Type {
	case ValueInt:
		return v.Int == o.Int
	case ValueFloat:
		return v.Float == o.Float
	case ValueString:
		return v.Str == o.Str
	case ValueObject:
		return v.Object == o.Object
	case ValueEffect, ValueEvent, ValueLocation, ValueTalent:
		return v.Engine == o.Engine
	case ValueVoid:
		return true
	default:
		return false
	}
}

// Vector is a convenience grouping of the three float cells that make up
// a vector argument or return value. It is never stored on the stack as
// a single cell — a vector is always three adjacent Value cells.
type Vector struct {
	X, Y, Z float32
}

// Continuation is a one-shot resumable VM snapshot captured by
// STORESTATE and exposed to scripts as an Action-typed Value.
type Continuation struct {
	Globals []Value
	Locals  []Value
	Program *Program
	Offset  int
}
