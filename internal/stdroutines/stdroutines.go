// Package stdroutines supplies a small, concrete RoutineTable so
// cmd/ncsvm and the VM/decompiler test suite have real ACTION targets
// to dispatch against, grounded on reone's
// src/game/script/routines_math.cpp and routines_objects.cpp (reone is
// the original engine this subsystem's spec was distilled from).
package stdroutines

import (
	"math"
	"math/rand/v2"

	"github.com/ncsvm/go-ncs/internal/ncs"
)

// ObjectLookup resolves a tag to an object id, mirroring the embedder
// query reone's getObjectByTag performs against the active module/area.
type ObjectLookup func(tag string, nth int) (uint32, bool)

// New builds the standard RoutineTable. byTag may be nil, in which case
// GetObjectByTag always reports the object as not found.
func New(byTag ObjectLookup) *ncs.RoutineTable {
	if byTag == nil {
		byTag = func(string, int) (uint32, bool) { return 0, false }
	}

	return ncs.NewRoutineTable([]ncs.Routine{
		{Name: "fabs", Return: ncs.ValueFloat, Args: []ncs.ValueType{ncs.ValueFloat}, Handler: unaryFloat(func(v float32) float32 {
			return float32(math.Abs(float64(v)))
		})},
		{Name: "sqrt", Return: ncs.ValueFloat, Args: []ncs.ValueType{ncs.ValueFloat}, Handler: unaryFloat(func(v float32) float32 {
			if v < 0 {
				return 0
			}
			return float32(math.Sqrt(float64(v)))
		})},
		{Name: "VectorMagnitude", Return: ncs.ValueFloat, Args: []ncs.ValueType{ncs.ValueVector}, Handler: func(ctx *ncs.ExecutionContext, args []ncs.Value) (ncs.Value, error) {
			v := args[0].Vec
			mag := math.Sqrt(float64(v.X*v.X + v.Y*v.Y + v.Z*v.Z))
			return ncs.FloatValue(float32(mag)), nil
		}},
		{Name: "VectorNormalize", Return: ncs.ValueVector, Args: []ncs.ValueType{ncs.ValueVector}, Handler: func(ctx *ncs.ExecutionContext, args []ncs.Value) (ncs.Value, error) {
			v := args[0].Vec
			mag := math.Sqrt(float64(v.X*v.X + v.Y*v.Y + v.Z*v.Z))
			if mag == 0 {
				return ncs.VectorValue(ncs.Vector{}), nil
			}
			return ncs.VectorValue(ncs.Vector{
				X: float32(float64(v.X) / mag),
				Y: float32(float64(v.Y) / mag),
				Z: float32(float64(v.Z) / mag),
			}), nil
		}},
		{Name: "GetObjectByTag", Return: ncs.ValueObject, Args: []ncs.ValueType{ncs.ValueString, ncs.ValueInt}, Handler: func(ctx *ncs.ExecutionContext, args []ncs.Value) (ncs.Value, error) {
			id, ok := byTag(args[0].Str, int(args[1].Int))
			if !ok {
				return ncs.ObjectValue(0), nil
			}
			return ncs.ObjectValue(id), nil
		}},
		dice("d2", 2), dice("d4", 4), dice("d6", 6), dice("d8", 8),
		dice("d10", 10), dice("d12", 12), dice("d20", 20), dice("d100", 100),
	})
}

func unaryFloat(f func(float32) float32) ncs.RoutineFunc {
	return func(ctx *ncs.ExecutionContext, args []ncs.Value) (ncs.Value, error) {
		return ncs.FloatValue(f(args[0].Float)), nil
	}
}

// dice builds a dN routine: roll count dN-sided dice and sum (the
// standard NWScript dice-roll convention referenced throughout
// routines_common.cpp's random-roll helpers, though not carried
// verbatim — reone's source in this pack does not include the dice
// routines themselves).
func dice(name string, sides int32) ncs.Routine {
	return ncs.Routine{
		Name:   name,
		Return: ncs.ValueInt,
		Args:   []ncs.ValueType{ncs.ValueInt},
		Handler: func(ctx *ncs.ExecutionContext, args []ncs.Value) (ncs.Value, error) {
			count := args[0].Int
			if count < 1 {
				count = 1
			}
			var total int32
			for i := int32(0); i < count; i++ {
				total += int32(rand.IntN(int(sides))) + 1
			}
			return ncs.IntValue(total), nil
		},
	}
}
