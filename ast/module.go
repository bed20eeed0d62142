package ast

// Module is a fully parsed module: sections for types, imports, funcs,
// tables, memories, globals, elems, datas, start, and exports. Indices
// into each of these are validated to resolve in Context, built by the
// module driver (C9).
type Module struct {
	Types    []Phrase[DefType]
	Imports  []Phrase[Import]
	Funcs    []Phrase[Func]
	Tables   []Phrase[Table]
	Memories []Phrase[Memory]
	Globals  []Phrase[Global]
	Elems    []Phrase[ElemSegment]
	Datas    []Phrase[DataSegment]
	Start    *Phrase[uint32]
	Exports  []Phrase[Export]
}

type Func struct {
	Type   uint32 // index into Module.Types; must resolve to a FuncDefType
	Locals []ValueType
	Body   Expr
}

type Table struct {
	Type TableType
}

type Memory struct {
	Type MemoryType
}

type Global struct {
	Type GlobalType
	Init Expr
}

// ElemMode discriminates the three element-segment modes.
type ElemMode interface{ elemMode() }

type ElemPassive struct{}
type ElemDeclarative struct{}
type ElemActive struct {
	Table  uint32
	Offset Expr
}

func (ElemPassive) elemMode()     {}
func (ElemDeclarative) elemMode() {}
func (ElemActive) elemMode()      {}

type ElemSegment struct {
	Type RefType
	Init []Expr // one constant expression per element
	Mode ElemMode
}

// DataMode discriminates the two data-segment modes; Declarative is
// structurally disallowed (Design Notes §9(b)) rather than represented.
type DataMode interface{ dataMode() }

type DataPassive struct{}
type DataActive struct {
	Memory uint32
	Offset Expr
}

func (DataPassive) dataMode() {}
func (DataActive) dataMode() {}

type DataSegment struct {
	Mode DataMode
}

// ImportDesc discriminates the four import kinds.
type ImportDesc interface{ importDesc() }

type ImportFunc struct{ Type uint32 }
type ImportTable struct{ Type TableType }
type ImportMemory struct{ Type MemoryType }
type ImportGlobal struct{ Type GlobalType }

func (ImportFunc) importDesc()   {}
func (ImportTable) importDesc()  {}
func (ImportMemory) importDesc() {}
func (ImportGlobal) importDesc() {}

type Import struct {
	Module, Name string
	Desc         ImportDesc
}

// ExportDesc discriminates the four export kinds, each naming an index
// into the corresponding index space.
type ExportDesc interface{ exportDesc() }

type ExportFunc struct{ Index uint32 }
type ExportTable struct{ Index uint32 }
type ExportMemory struct{ Index uint32 }
type ExportGlobal struct{ Index uint32 }

func (ExportFunc) exportDesc()   {}
func (ExportTable) exportDesc()  {}
func (ExportMemory) exportDesc() {}
func (ExportGlobal) exportDesc() {}

type Export struct {
	Name string
	Desc ExportDesc
}
