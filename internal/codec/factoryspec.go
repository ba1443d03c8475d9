package codec

import (
	"fmt"
	"strings"

	"github.com/rilwen/microsimulation-sub000/internal/history"
)

// FactorySpec is the parsed form of a §6.1/§6.5 HISTORY_FACTORY column: a
// value Kind plus whether the history elides repeated values (sparse) or
// records every change (dense).
type FactorySpec struct {
	Kind   history.Kind
	Sparse bool
}

// String renders the spec back to its §6.1 textual form: "[ \"sparse \" ]
// <tag>".
func (s FactorySpec) String() string {
	if s.Sparse {
		return "sparse " + s.Kind.Tag()
	}
	return s.Kind.Tag()
}

// Factory builds the history.Factory this spec describes.
func (s FactorySpec) Factory() history.Factory {
	if s.Sparse {
		return sparseFactoryFor(s.Kind)
	}
	return denseFactoryFor(s.Kind)
}

// ParseFactorySpec parses a §6.1 HISTORY_FACTORY string such as "double" or
// "sparse int16".
func ParseFactorySpec(s string) (FactorySpec, error) {
	tag := s
	sparse := false
	if rest, ok := strings.CutPrefix(s, "sparse "); ok {
		sparse = true
		tag = rest
	}
	kind, ok := history.KindFromTag(tag)
	if !ok {
		return FactorySpec{}, fmt.Errorf("%w: unknown value type %q", ErrInvalidLiteral, tag)
	}
	return FactorySpec{Kind: kind, Sparse: sparse}, nil
}

func denseFactoryFor(k history.Kind) history.Factory {
	switch k {
	case history.KindFloat64:
		return history.NewDenseFactory[float64]()
	case history.KindFloat32:
		return history.NewDenseFactory[float32]()
	case history.KindInt8:
		return history.NewDenseFactory[int8]()
	case history.KindInt16:
		return history.NewDenseFactory[int16]()
	case history.KindInt32:
		return history.NewDenseFactory[int32]()
	case history.KindUint8:
		return history.NewDenseFactory[uint8]()
	case history.KindUint16:
		return history.NewDenseFactory[uint16]()
	case history.KindUint32:
		return history.NewDenseFactory[uint32]()
	default:
		return history.NewDenseFactory[float64]()
	}
}

func sparseFactoryFor(k history.Kind) history.Factory {
	switch k {
	case history.KindFloat64:
		return history.NewSparseFactory[float64]()
	case history.KindFloat32:
		return history.NewSparseFactory[float32]()
	case history.KindInt8:
		return history.NewSparseFactory[int8]()
	case history.KindInt16:
		return history.NewSparseFactory[int16]()
	case history.KindInt32:
		return history.NewSparseFactory[int32]()
	case history.KindUint8:
		return history.NewSparseFactory[uint8]()
	case history.KindUint16:
		return history.NewSparseFactory[uint16]()
	case history.KindUint32:
		return history.NewSparseFactory[uint32]()
	default:
		return history.NewSparseFactory[float64]()
	}
}
