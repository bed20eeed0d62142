package ast

import "fmt"

// NumType is one of the four scalar value types.
type NumType uint8

const (
	I32 NumType = iota
	I64
	F32
	F64
)

func (t NumType) String() string {
	switch t {
	case I32:
		return "i32"
	case I64:
		return "i64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	default:
		return fmt.Sprintf("<unknown numtype %d>", uint8(t))
	}
}

// Nullability is explicit on a Def reference, per the function-references
// extension: a type index can be referenced nullably or not.
type Nullability bool

const (
	NonNullable Nullability = false
	Nullable    Nullability = true
)

// RefKind discriminates the reference-type constructors.
type RefKind uint8

const (
	RefAny RefKind = iota
	RefNullRef
	RefFunc
	RefDef
)

// RefType is a reference type: anyref, nullref, funcref, or a nullable/
// non-nullable reference to a declared type index.
type RefType struct {
	Kind    RefKind
	Null    Nullability // meaningful only when Kind == RefDef
	TypeIdx uint32      // meaningful only when Kind == RefDef
}

func (r RefType) String() string {
	switch r.Kind {
	case RefAny:
		return "anyref"
	case RefNullRef:
		return "nullref"
	case RefFunc:
		return "funcref"
	case RefDef:
		if r.Null == NonNullable {
			return fmt.Sprintf("(ref %d)", r.TypeIdx)
		}
		return fmt.Sprintf("(ref null %d)", r.TypeIdx)
	default:
		return "<unknown reftype>"
	}
}

// ValueKind discriminates the three-way value type union: a concrete
// numeric type, a reference type, or the internal bottom placeholder.
type ValueKind uint8

const (
	ValNum ValueKind = iota
	ValRef
	ValBot
)

// ValueType is the discriminated union {NumType, RefType, BotType} from
// the data model: the unit every stack slot and every declared type is
// built from.
type ValueType struct {
	Kind ValueKind
	Num  NumType
	Ref  RefType
}

// Bot is the internal bottom type: it matches every value type and
// populates slots whose type is unknown because they sit below
// unreachable code.
var Bot = ValueType{Kind: ValBot}

func Num(n NumType) ValueType { return ValueType{Kind: ValNum, Num: n} }
func Ref(r RefType) ValueType { return ValueType{Kind: ValRef, Ref: r} }

func (v ValueType) IsBot() bool { return v.Kind == ValBot }

func (v ValueType) String() string {
	switch v.Kind {
	case ValNum:
		return v.Num.String()
	case ValRef:
		return v.Ref.String()
	case ValBot:
		return "bot"
	default:
		return "<unknown valtype>"
	}
}

// Defaultable reports whether a value type has a canonical zero value:
// every numeric type does, and so does every nullable reference type.
func (v ValueType) Defaultable() bool {
	switch v.Kind {
	case ValNum:
		return true
	case ValRef:
		return v.Ref.Kind != RefDef || v.Ref.Null == Nullable
	default:
		return false
	}
}

// FuncType is the signature of a function: an ordered list of parameter
// types followed by an ordered list of result types.
type FuncType struct {
	Ins, Out []ValueType
}

func (f FuncType) String() string {
	return fmt.Sprintf("%v -> %v", f.Ins, f.Out)
}

// DefType is a defined type in the module's type section. Currently the
// only constructor is FuncDefType, but the interface leaves room for
// struct/array definitions without disturbing callers.
type DefType interface {
	isDefType()
}

type FuncDefType struct {
	Type FuncType
}

func (FuncDefType) isDefType() {}

// Mutability marks whether a global can be written after initialization.
type Mutability bool

const (
	Immutable Mutability = false
	Mutable   Mutability = true
)

// Limits describes the bounds of a table or a linear memory: minimum
// required size and an optional maximum. Well-formedness against a
// profile's addressable range (2^32 for tables, 2^16 pages for memories)
// is checked by validate.wfLimits, which needs unsigned 64-bit comparison
// since the range itself can exceed a uint32.
type Limits struct {
	Min uint32
	Max *uint32 // nil means unbounded
}

type TableType struct {
	Limits Limits
	Elem   RefType
}

type MemoryType struct {
	Limits Limits
}

type GlobalType struct {
	Type ValueType
	Mut  Mutability
}
