package ast

// Instr is implemented by every instruction node. The validator dispatches
// on the concrete type via a type switch rather than re-decoding an opcode
// byte, since decoding is someone else's job by the time this tree exists.
type Instr interface {
	instrNode()
}

// Expr is a straight-line instruction sequence, each carrying its own span.
type Expr []Phrase[Instr]

// BlockType is the result-type signature of a structured block. The
// current profile forbids more than one result (§3 check_arity); the
// slice form is kept so a profile that lifts that restriction needs no
// data-model change.
type BlockType []ValueType

type Unreachable struct{}
type Nop struct{}

type Block struct {
	Type BlockType
	Body Expr
}

type Loop struct {
	Type BlockType
	Body Expr
}

type If struct {
	Type BlockType
	Then Expr
	Else Expr
}

// Let extends the enclosing locals with freshly declared ones for the
// duration of Body, popping their initial values off the incoming stack.
type Let struct {
	Type   BlockType
	Locals []ValueType
	Body   Expr
}

type Br struct{ Label uint32 }
type BrIf struct{ Label uint32 }

type BrTable struct {
	Targets []uint32
	Default uint32
}

type BrOnNull struct{ Label uint32 }

type Return struct{}

type Call struct{ Func uint32 }
type CallRef struct{}
type CallIndirect struct {
	Table uint32
	Type  uint32
}
type ReturnCallRef struct{}

// FuncBind partially applies a function reference, producing a reference
// to a synthesized function of the narrower type at Type.
type FuncBind struct{ Type uint32 }

type LocalGet struct{ Local uint32 }
type LocalSet struct{ Local uint32 }
type LocalTee struct{ Local uint32 }

type GlobalGet struct{ Global uint32 }
type GlobalSet struct{ Global uint32 }

type TableGet struct{ Table uint32 }
type TableSet struct{ Table uint32 }
type TableSize struct{ Table uint32 }
type TableGrow struct{ Table uint32 }
type TableFill struct{ Table uint32 }
type TableCopy struct{ Dst, Src uint32 }
type TableInit struct {
	Table uint32
	Elem  uint32
}
type ElemDrop struct{ Elem uint32 }

// PackSize names the narrow-width memory access descriptor on a load or
// store; PackNone means the full width of Type is transferred.
type PackSize uint8

const (
	PackNone PackSize = iota
	Pack8
	Pack16
	Pack32
)

// Sign distinguishes signed/unsigned for packed loads; stores never need it.
type Sign uint8

const (
	SignNone Sign = iota
	Signed
	Unsigned
)

type Memarg struct {
	Align  uint32 // log2 of the claimed alignment
	Offset uint32
}

type Load struct {
	Type NumType
	Pack PackSize
	Sign Sign
	Memarg
}

type Store struct {
	Type NumType
	Pack PackSize
	Memarg
}

type MemorySize struct{}
type MemoryGrow struct{}
type MemoryFill struct{}
type MemoryCopy struct{}
type MemoryInit struct{ Data uint32 }
type DataDrop struct{ Data uint32 }

type RefNull struct{ Type RefType }
type RefIsNull struct{}
type RefAsNonNull struct{}
type RefFuncInstr struct{ Func uint32 }

type Const struct {
	Type NumType
	// Bits holds the raw value, reinterpreted by type; the validator only
	// cares about Type, not the payload.
	Bits uint64
}

type Test struct{ Type NumType }

type CompareOp uint8

const (
	CmpEq CompareOp = iota
	CmpNe
	CmpLtS
	CmpLtU
	CmpLt // floats
	CmpGtS
	CmpGtU
	CmpGt
	CmpLeS
	CmpLeU
	CmpLe
	CmpGeS
	CmpGeU
	CmpGe
)

type Compare struct {
	Type NumType
	Op   CompareOp
}

type UnaryOp uint8

const (
	UnClz UnaryOp = iota
	UnCtz
	UnPopcnt
	UnAbs
	UnNeg
	UnSqrt
	UnCeil
	UnFloor
	UnTrunc
	UnNearest
)

type Unary struct {
	Type NumType
	Op   UnaryOp
}

type BinaryOp uint8

const (
	BinAdd BinaryOp = iota
	BinSub
	BinMul
	BinDivS
	BinDivU
	BinDiv // floats
	BinRemS
	BinRemU
	BinAnd
	BinOr
	BinXor
	BinShl
	BinShrS
	BinShrU
	BinRotl
	BinRotr
	BinMin
	BinMax
	BinCopysign
)

type Binary struct {
	Type NumType
	Op   BinaryOp
}

// ConvertOp names one row of the §4.2 conversion table.
type ConvertOp uint8

const (
	CvtWrapI64 ConvertOp = iota
	CvtExtendI32S
	CvtExtendI32U
	CvtTruncF32S
	CvtTruncF32U
	CvtTruncF64S
	CvtTruncF64U
	CvtConvertI32S
	CvtConvertI32U
	CvtConvertI64S
	CvtConvertI64U
	CvtDemoteF64
	CvtPromoteF32
	CvtReinterpretI32
	CvtReinterpretI64
	CvtReinterpretF32
	CvtReinterpretF64
)

type Convert struct {
	To NumType // the numeric type the opcode belongs to (the "on i64" etc. in §4.2)
	Op ConvertOp
}

type Drop struct{}

// Select's optional type annotation: nil means the legacy untyped form,
// which must peek the stack to resolve its operand type.
type Select struct{ Type *ValueType }

func (Unreachable) instrNode()   {}
func (Nop) instrNode()           {}
func (Block) instrNode()         {}
func (Loop) instrNode()          {}
func (If) instrNode()            {}
func (Let) instrNode()           {}
func (Br) instrNode()            {}
func (BrIf) instrNode()          {}
func (BrTable) instrNode()       {}
func (BrOnNull) instrNode()      {}
func (Return) instrNode()        {}
func (Call) instrNode()          {}
func (CallRef) instrNode()       {}
func (CallIndirect) instrNode()  {}
func (ReturnCallRef) instrNode() {}
func (FuncBind) instrNode()      {}
func (LocalGet) instrNode()      {}
func (LocalSet) instrNode()      {}
func (LocalTee) instrNode()      {}
func (GlobalGet) instrNode()     {}
func (GlobalSet) instrNode()     {}
func (TableGet) instrNode()      {}
func (TableSet) instrNode()      {}
func (TableSize) instrNode()     {}
func (TableGrow) instrNode()     {}
func (TableFill) instrNode()     {}
func (TableCopy) instrNode()     {}
func (TableInit) instrNode()     {}
func (ElemDrop) instrNode()      {}
func (Load) instrNode()          {}
func (Store) instrNode()         {}
func (MemorySize) instrNode()    {}
func (MemoryGrow) instrNode()    {}
func (MemoryFill) instrNode()    {}
func (MemoryCopy) instrNode()    {}
func (MemoryInit) instrNode()    {}
func (DataDrop) instrNode()      {}
func (RefNull) instrNode()       {}
func (RefIsNull) instrNode()     {}
func (RefAsNonNull) instrNode()  {}
func (RefFuncInstr) instrNode()  {}
func (Const) instrNode()         {}
func (Test) instrNode()          {}
func (Compare) instrNode()       {}
func (Unary) instrNode()         {}
func (Binary) instrNode()        {}
func (Convert) instrNode()       {}
func (Drop) instrNode()          {}
func (Select) instrNode()        {}
