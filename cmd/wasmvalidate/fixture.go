package main

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/stackwasm/wasmvalidate/ast"
)

// fixture is the YAML shape a module is loaded from. There is no binary or
// text decoder in this repo (out of scope), so the CLI and the test
// fixtures both describe a module directly as data rather than as wasm
// bytes.
type fixture struct {
	Types    []typeFixture    `yaml:"types"`
	Imports  []importFixture  `yaml:"imports"`
	Tables   []tableFixture   `yaml:"tables"`
	Memories []memoryFixture  `yaml:"memories"`
	Globals  []globalFixture  `yaml:"globals"`
	Elems    []elemFixture    `yaml:"elems"`
	Datas    []dataFixture    `yaml:"datas"`
	Start    *uint32          `yaml:"start"`
	Funcs    []funcFixture    `yaml:"funcs"`
	Exports  []exportFixture  `yaml:"exports"`
	Profile  profileFixture   `yaml:"profile"`
}

type profileFixture struct {
	AllowMultipleMemories bool `yaml:"allow_multiple_memories"`
	AllowMultiValueBlocks bool `yaml:"allow_multi_value_blocks"`
}

type typeFixture struct {
	Ins []string `yaml:"ins"`
	Out []string `yaml:"out"`
}

type limitsFixture struct {
	Min uint32  `yaml:"min"`
	Max *uint32 `yaml:"max"`
}

type tableFixture struct {
	Min  uint32  `yaml:"min"`
	Max  *uint32 `yaml:"max"`
	Elem string  `yaml:"elem"`
}

type memoryFixture struct {
	Min uint32  `yaml:"min"`
	Max *uint32 `yaml:"max"`
}

type globalFixture struct {
	Type    string        `yaml:"type"`
	Mutable bool          `yaml:"mutable"`
	Init    []instrFixture `yaml:"init"`
}

type elemFixture struct {
	Type   string           `yaml:"type"`
	Mode   string           `yaml:"mode"` // active | passive | declarative
	Table  uint32           `yaml:"table"`
	Offset []instrFixture   `yaml:"offset"`
	Init   [][]instrFixture `yaml:"init"`
}

type dataFixture struct {
	Mode   string         `yaml:"mode"` // active | passive
	Memory uint32         `yaml:"memory"`
	Offset []instrFixture `yaml:"offset"`
}

type funcFixture struct {
	Type   uint32         `yaml:"type"`
	Locals []string       `yaml:"locals"`
	Body   []instrFixture `yaml:"body"`
}

type importFixture struct {
	Module string  `yaml:"module"`
	Name   string  `yaml:"name"`
	Func   *uint32 `yaml:"func"`
	Table  *tableFixture
	Memory *memoryFixture
	Global *globalImportFixture
}

type globalImportFixture struct {
	Type    string `yaml:"type"`
	Mutable bool   `yaml:"mutable"`
}

type exportFixture struct {
	Name   string `yaml:"name"`
	Func   *uint32
	Table  *uint32
	Memory *uint32
	Global *uint32
}

// instrFixture is a loosely typed instruction row: Op names the mnemonic,
// the remaining fields are interpreted according to Op.
type instrFixture struct {
	Op     string  `yaml:"op"`
	Label  *uint32 `yaml:"label"`
	Labels []uint32 `yaml:"labels"`
	Func   *uint32 `yaml:"func"`
	Local  *uint32 `yaml:"local"`
	Global *uint32 `yaml:"global"`
	Table  *uint32 `yaml:"table"`
	Table2 *uint32 `yaml:"table2"`
	Elem   *uint32 `yaml:"elem"`
	Data   *uint32 `yaml:"data"`
	Type   *uint32 `yaml:"type"`
	ValType string `yaml:"valtype"`
	Value  string  `yaml:"value"`
	Align  uint32  `yaml:"align"`
	Offset uint32  `yaml:"offset"`
	Then   []instrFixture `yaml:"then"`
	Else   []instrFixture `yaml:"else"`
	Body   []instrFixture `yaml:"body"`
	Result []string       `yaml:"result"`
	Locals []string       `yaml:"locals"`
}

func parseNumType(s string) (ast.NumType, error) {
	switch s {
	case "i32":
		return ast.I32, nil
	case "i64":
		return ast.I64, nil
	case "f32":
		return ast.F32, nil
	case "f64":
		return ast.F64, nil
	default:
		return 0, fmt.Errorf("unknown numeric type %q", s)
	}
}

// parseRefType accepts funcref, anyref, nullref, and the function-reference
// forms "(ref N)" / "(ref null N)".
func parseRefType(s string) (ast.RefType, error) {
	switch s {
	case "funcref":
		return ast.RefType{Kind: ast.RefFunc}, nil
	case "anyref":
		return ast.RefType{Kind: ast.RefAny}, nil
	case "nullref":
		return ast.RefType{Kind: ast.RefNullRef}, nil
	}
	if strings.HasPrefix(s, "(ref ") && strings.HasSuffix(s, ")") {
		body := strings.TrimSuffix(strings.TrimPrefix(s, "(ref "), ")")
		null := ast.NonNullable
		if strings.HasPrefix(body, "null ") {
			null = ast.Nullable
			body = strings.TrimPrefix(body, "null ")
		}
		idx, err := strconv.ParseUint(strings.TrimSpace(body), 10, 32)
		if err != nil {
			return ast.RefType{}, fmt.Errorf("bad type reference %q: %w", s, err)
		}
		return ast.RefType{Kind: ast.RefDef, Null: null, TypeIdx: uint32(idx)}, nil
	}
	return ast.RefType{}, fmt.Errorf("unknown reference type %q", s)
}

func parseValueType(s string) (ast.ValueType, error) {
	if nt, err := parseNumType(s); err == nil {
		return ast.Num(nt), nil
	}
	rt, err := parseRefType(s)
	if err != nil {
		return ast.ValueType{}, err
	}
	return ast.Ref(rt), nil
}

func parseValueTypes(ss []string) ([]ast.ValueType, error) {
	out := make([]ast.ValueType, len(ss))
	for i, s := range ss {
		v, err := parseValueType(s)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f typeFixture) toDefType() (ast.DefType, error) {
	ins, err := parseValueTypes(f.Ins)
	if err != nil {
		return nil, err
	}
	out, err := parseValueTypes(f.Out)
	if err != nil {
		return nil, err
	}
	return ast.FuncDefType{Type: ast.FuncType{Ins: ins, Out: out}}, nil
}

func (f tableFixture) toTableType() (ast.TableType, error) {
	elem, err := parseRefType(f.Elem)
	if err != nil {
		return ast.TableType{}, err
	}
	return ast.TableType{Limits: ast.Limits{Min: f.Min, Max: f.Max}, Elem: elem}, nil
}

func (f memoryFixture) toMemoryType() ast.MemoryType {
	return ast.MemoryType{Limits: ast.Limits{Min: f.Min, Max: f.Max}}
}

func (f globalFixture) toGlobalType() (ast.GlobalType, error) {
	t, err := parseValueType(f.Type)
	if err != nil {
		return ast.GlobalType{}, err
	}
	mut := ast.Immutable
	if f.Mutable {
		mut = ast.Mutable
	}
	return ast.GlobalType{Type: t, Mut: mut}, nil
}

func toExpr(fs []instrFixture) (ast.Expr, error) {
	out := make(ast.Expr, len(fs))
	for i, f := range fs {
		instr, err := f.toInstr()
		if err != nil {
			return nil, err
		}
		out[i] = ast.At[ast.Instr](instr, ast.Span{Start: i, End: i + 1})
	}
	return out, nil
}

func parseConstBits(valtype string, raw string) (uint64, error) {
	if raw == "" {
		return 0, nil
	}
	switch valtype {
	case "f32":
		f, err := strconv.ParseFloat(raw, 32)
		if err != nil {
			return 0, err
		}
		return uint64(math.Float32bits(float32(f))), nil
	case "f64":
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, err
		}
		return math.Float64bits(f), nil
	default:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, err
		}
		return uint64(n), nil
	}
}

var convertOps = map[string]ast.ConvertOp{
	"wrap_i64":          ast.CvtWrapI64,
	"extend_i32_s":      ast.CvtExtendI32S,
	"extend_i32_u":      ast.CvtExtendI32U,
	"trunc_f32_s":       ast.CvtTruncF32S,
	"trunc_f32_u":       ast.CvtTruncF32U,
	"trunc_f64_s":       ast.CvtTruncF64S,
	"trunc_f64_u":       ast.CvtTruncF64U,
	"convert_i32_s":     ast.CvtConvertI32S,
	"convert_i32_u":     ast.CvtConvertI32U,
	"convert_i64_s":     ast.CvtConvertI64S,
	"convert_i64_u":     ast.CvtConvertI64U,
	"demote_f64":        ast.CvtDemoteF64,
	"promote_f32":       ast.CvtPromoteF32,
	"reinterpret_i32":   ast.CvtReinterpretI32,
	"reinterpret_i64":   ast.CvtReinterpretI64,
	"reinterpret_f32":   ast.CvtReinterpretF32,
	"reinterpret_f64":   ast.CvtReinterpretF64,
}

var compareOps = map[string]ast.CompareOp{
	"eq": ast.CmpEq, "ne": ast.CmpNe,
	"lt_s": ast.CmpLtS, "lt_u": ast.CmpLtU, "lt": ast.CmpLt,
	"gt_s": ast.CmpGtS, "gt_u": ast.CmpGtU, "gt": ast.CmpGt,
	"le_s": ast.CmpLeS, "le_u": ast.CmpLeU, "le": ast.CmpLe,
	"ge_s": ast.CmpGeS, "ge_u": ast.CmpGeU, "ge": ast.CmpGe,
}

var unaryOps = map[string]ast.UnaryOp{
	"clz": ast.UnClz, "ctz": ast.UnCtz, "popcnt": ast.UnPopcnt,
	"abs": ast.UnAbs, "neg": ast.UnNeg, "sqrt": ast.UnSqrt,
	"ceil": ast.UnCeil, "floor": ast.UnFloor, "trunc": ast.UnTrunc, "nearest": ast.UnNearest,
}

var binaryOps = map[string]ast.BinaryOp{
	"add": ast.BinAdd, "sub": ast.BinSub, "mul": ast.BinMul,
	"div_s": ast.BinDivS, "div_u": ast.BinDivU, "div": ast.BinDiv,
	"rem_s": ast.BinRemS, "rem_u": ast.BinRemU,
	"and": ast.BinAnd, "or": ast.BinOr, "xor": ast.BinXor,
	"shl": ast.BinShl, "shr_s": ast.BinShrS, "shr_u": ast.BinShrU,
	"rotl": ast.BinRotl, "rotr": ast.BinRotr,
	"min": ast.BinMin, "max": ast.BinMax, "copysign": ast.BinCopysign,
}

func u32(p *uint32) uint32 {
	if p == nil {
		return 0
	}
	return *p
}

func (f instrFixture) toInstr() (ast.Instr, error) {
	op := f.Op
	if prefix, rest, ok := strings.Cut(op, "."); ok {
		switch prefix {
		case "i32", "i64", "f32", "f64":
			nt, _ := parseNumType(prefix)
			if rest == "const" {
				bits, err := parseConstBits(prefix, f.Value)
				if err != nil {
					return nil, err
				}
				return ast.Const{Type: nt, Bits: bits}, nil
			}
			if rest == "eqz" {
				return ast.Test{Type: nt}, nil
			}
			if cop, ok := compareOps[rest]; ok {
				return ast.Compare{Type: nt, Op: cop}, nil
			}
			if uop, ok := unaryOps[rest]; ok {
				return ast.Unary{Type: nt, Op: uop}, nil
			}
			if bop, ok := binaryOps[rest]; ok {
				return ast.Binary{Type: nt, Op: bop}, nil
			}
			if cvt, ok := convertOps[rest]; ok {
				return ast.Convert{To: nt, Op: cvt}, nil
			}
			if strings.HasPrefix(rest, "load") || strings.HasPrefix(rest, "store") {
				return f.toMemInstr(nt, rest)
			}
		}
	}

	switch op {
	case "unreachable":
		return ast.Unreachable{}, nil
	case "nop":
		return ast.Nop{}, nil
	case "block":
		ts, err := parseValueTypes(f.Result)
		if err != nil {
			return nil, err
		}
		body, err := toExpr(f.Body)
		if err != nil {
			return nil, err
		}
		return ast.Block{Type: ast.BlockType(ts), Body: body}, nil
	case "loop":
		ts, err := parseValueTypes(f.Result)
		if err != nil {
			return nil, err
		}
		body, err := toExpr(f.Body)
		if err != nil {
			return nil, err
		}
		return ast.Loop{Type: ast.BlockType(ts), Body: body}, nil
	case "if":
		ts, err := parseValueTypes(f.Result)
		if err != nil {
			return nil, err
		}
		then, err := toExpr(f.Then)
		if err != nil {
			return nil, err
		}
		els, err := toExpr(f.Else)
		if err != nil {
			return nil, err
		}
		return ast.If{Type: ast.BlockType(ts), Then: then, Else: els}, nil
	case "let":
		ts, err := parseValueTypes(f.Result)
		if err != nil {
			return nil, err
		}
		locals, err := parseValueTypes(f.Locals)
		if err != nil {
			return nil, err
		}
		body, err := toExpr(f.Body)
		if err != nil {
			return nil, err
		}
		return ast.Let{Type: ast.BlockType(ts), Locals: locals, Body: body}, nil
	case "br":
		return ast.Br{Label: u32(f.Label)}, nil
	case "br_if":
		return ast.BrIf{Label: u32(f.Label)}, nil
	case "br_table":
		return ast.BrTable{Targets: f.Labels, Default: u32(f.Label)}, nil
	case "br_on_null":
		return ast.BrOnNull{Label: u32(f.Label)}, nil
	case "return":
		return ast.Return{}, nil
	case "call":
		return ast.Call{Func: u32(f.Func)}, nil
	case "call_ref":
		return ast.CallRef{}, nil
	case "call_indirect":
		return ast.CallIndirect{Table: u32(f.Table), Type: u32(f.Type)}, nil
	case "return_call_ref":
		return ast.ReturnCallRef{}, nil
	case "func.bind":
		return ast.FuncBind{Type: u32(f.Type)}, nil
	case "local.get":
		return ast.LocalGet{Local: u32(f.Local)}, nil
	case "local.set":
		return ast.LocalSet{Local: u32(f.Local)}, nil
	case "local.tee":
		return ast.LocalTee{Local: u32(f.Local)}, nil
	case "global.get":
		return ast.GlobalGet{Global: u32(f.Global)}, nil
	case "global.set":
		return ast.GlobalSet{Global: u32(f.Global)}, nil
	case "table.get":
		return ast.TableGet{Table: u32(f.Table)}, nil
	case "table.set":
		return ast.TableSet{Table: u32(f.Table)}, nil
	case "table.size":
		return ast.TableSize{Table: u32(f.Table)}, nil
	case "table.grow":
		return ast.TableGrow{Table: u32(f.Table)}, nil
	case "table.fill":
		return ast.TableFill{Table: u32(f.Table)}, nil
	case "table.copy":
		return ast.TableCopy{Dst: u32(f.Table), Src: u32(f.Table2)}, nil
	case "table.init":
		return ast.TableInit{Table: u32(f.Table), Elem: u32(f.Elem)}, nil
	case "elem.drop":
		return ast.ElemDrop{Elem: u32(f.Elem)}, nil
	case "memory.size":
		return ast.MemorySize{}, nil
	case "memory.grow":
		return ast.MemoryGrow{}, nil
	case "memory.fill":
		return ast.MemoryFill{}, nil
	case "memory.copy":
		return ast.MemoryCopy{}, nil
	case "memory.init":
		return ast.MemoryInit{Data: u32(f.Data)}, nil
	case "data.drop":
		return ast.DataDrop{Data: u32(f.Data)}, nil
	case "ref.null":
		rt, err := parseRefType(f.ValType)
		if err != nil {
			return nil, err
		}
		return ast.RefNull{Type: rt}, nil
	case "ref.is_null":
		return ast.RefIsNull{}, nil
	case "ref.as_non_null":
		return ast.RefAsNonNull{}, nil
	case "ref.func":
		return ast.RefFuncInstr{Func: u32(f.Func)}, nil
	case "drop":
		return ast.Drop{}, nil
	case "select":
		if f.ValType == "" {
			return ast.Select{}, nil
		}
		vt, err := parseValueType(f.ValType)
		if err != nil {
			return nil, err
		}
		return ast.Select{Type: &vt}, nil
	default:
		return nil, fmt.Errorf("unknown instruction %q", op)
	}
}

func (f instrFixture) toMemInstr(nt ast.NumType, rest string) (ast.Instr, error) {
	memarg := ast.Memarg{Align: f.Align, Offset: f.Offset}
	isStore := strings.HasPrefix(rest, "store")
	body := strings.TrimPrefix(strings.TrimPrefix(rest, "load"), "store")
	pack := ast.PackNone
	sign := ast.SignNone
	switch {
	case body == "":
		// full width
	case strings.HasSuffix(body, "_s"):
		sign = ast.Signed
		pack = packFromWidth(strings.TrimSuffix(body, "_s"))
	case strings.HasSuffix(body, "_u"):
		sign = ast.Unsigned
		pack = packFromWidth(strings.TrimSuffix(body, "_u"))
	default:
		pack = packFromWidth(body)
	}
	if isStore {
		return ast.Store{Type: nt, Pack: pack, Memarg: memarg}, nil
	}
	return ast.Load{Type: nt, Pack: pack, Sign: sign, Memarg: memarg}, nil
}

func packFromWidth(s string) ast.PackSize {
	switch s {
	case "8":
		return ast.Pack8
	case "16":
		return ast.Pack16
	case "32":
		return ast.Pack32
	default:
		return ast.PackNone
	}
}

func (f fixture) toModule() (*ast.Module, error) {
	m := &ast.Module{}

	for i, t := range f.Types {
		dt, err := t.toDefType()
		if err != nil {
			return nil, fmt.Errorf("type %d: %w", i, err)
		}
		m.Types = append(m.Types, ast.At[ast.DefType](dt, ast.Span{Start: i, End: i + 1}))
	}

	for i, imp := range f.Imports {
		desc, err := imp.toImportDesc()
		if err != nil {
			return nil, fmt.Errorf("import %d: %w", i, err)
		}
		m.Imports = append(m.Imports, ast.At(ast.Import{Module: imp.Module, Name: imp.Name, Desc: desc}, ast.Span{Start: i, End: i + 1}))
	}

	for i, t := range f.Tables {
		tt, err := t.toTableType()
		if err != nil {
			return nil, fmt.Errorf("table %d: %w", i, err)
		}
		m.Tables = append(m.Tables, ast.At(ast.Table{Type: tt}, ast.Span{Start: i, End: i + 1}))
	}

	for i, mm := range f.Memories {
		m.Memories = append(m.Memories, ast.At(ast.Memory{Type: mm.toMemoryType()}, ast.Span{Start: i, End: i + 1}))
	}

	for i, g := range f.Globals {
		gt, err := g.toGlobalType()
		if err != nil {
			return nil, fmt.Errorf("global %d: %w", i, err)
		}
		init, err := toExpr(g.Init)
		if err != nil {
			return nil, fmt.Errorf("global %d init: %w", i, err)
		}
		m.Globals = append(m.Globals, ast.At(ast.Global{Type: gt, Init: init}, ast.Span{Start: i, End: i + 1}))
	}

	for i, e := range f.Elems {
		seg, err := e.toElemSegment()
		if err != nil {
			return nil, fmt.Errorf("elem %d: %w", i, err)
		}
		m.Elems = append(m.Elems, ast.At(seg, ast.Span{Start: i, End: i + 1}))
	}

	for i, d := range f.Datas {
		seg, err := d.toDataSegment()
		if err != nil {
			return nil, fmt.Errorf("data %d: %w", i, err)
		}
		m.Datas = append(m.Datas, ast.At(seg, ast.Span{Start: i, End: i + 1}))
	}

	if f.Start != nil {
		s := ast.At(*f.Start, ast.Span{Start: 0, End: 1})
		m.Start = &s
	}

	for i, fn := range f.Funcs {
		locals, err := parseValueTypes(fn.Locals)
		if err != nil {
			return nil, fmt.Errorf("func %d: %w", i, err)
		}
		body, err := toExpr(fn.Body)
		if err != nil {
			return nil, fmt.Errorf("func %d body: %w", i, err)
		}
		m.Funcs = append(m.Funcs, ast.At(ast.Func{Type: fn.Type, Locals: locals, Body: body}, ast.Span{Start: i, End: i + 1}))
	}

	for i, ex := range f.Exports {
		desc, err := ex.toExportDesc()
		if err != nil {
			return nil, fmt.Errorf("export %d: %w", i, err)
		}
		m.Exports = append(m.Exports, ast.At(ast.Export{Name: ex.Name, Desc: desc}, ast.Span{Start: i, End: i + 1}))
	}

	return m, nil
}

func (imp importFixture) toImportDesc() (ast.ImportDesc, error) {
	switch {
	case imp.Func != nil:
		return ast.ImportFunc{Type: *imp.Func}, nil
	case imp.Table != nil:
		tt, err := imp.Table.toTableType()
		if err != nil {
			return nil, err
		}
		return ast.ImportTable{Type: tt}, nil
	case imp.Memory != nil:
		return ast.ImportMemory{Type: imp.Memory.toMemoryType()}, nil
	case imp.Global != nil:
		t, err := parseValueType(imp.Global.Type)
		if err != nil {
			return nil, err
		}
		mut := ast.Immutable
		if imp.Global.Mutable {
			mut = ast.Mutable
		}
		return ast.ImportGlobal{Type: ast.GlobalType{Type: t, Mut: mut}}, nil
	default:
		return nil, fmt.Errorf("import %s.%s names no kind", imp.Module, imp.Name)
	}
}

func (ex exportFixture) toExportDesc() (ast.ExportDesc, error) {
	switch {
	case ex.Func != nil:
		return ast.ExportFunc{Index: *ex.Func}, nil
	case ex.Table != nil:
		return ast.ExportTable{Index: *ex.Table}, nil
	case ex.Memory != nil:
		return ast.ExportMemory{Index: *ex.Memory}, nil
	case ex.Global != nil:
		return ast.ExportGlobal{Index: *ex.Global}, nil
	default:
		return nil, fmt.Errorf("export %q names no kind", ex.Name)
	}
}

func (e elemFixture) toElemSegment() (ast.ElemSegment, error) {
	rt, err := parseRefType(e.Type)
	if err != nil {
		return ast.ElemSegment{}, err
	}
	init := make([]ast.Expr, len(e.Init))
	for i, rows := range e.Init {
		expr, err := toExpr(rows)
		if err != nil {
			return ast.ElemSegment{}, err
		}
		init[i] = expr
	}
	var mode ast.ElemMode
	switch e.Mode {
	case "active", "":
		offset, err := toExpr(e.Offset)
		if err != nil {
			return ast.ElemSegment{}, err
		}
		mode = ast.ElemActive{Table: e.Table, Offset: offset}
	case "passive":
		mode = ast.ElemPassive{}
	case "declarative":
		mode = ast.ElemDeclarative{}
	default:
		return ast.ElemSegment{}, fmt.Errorf("unknown elem mode %q", e.Mode)
	}
	return ast.ElemSegment{Type: rt, Init: init, Mode: mode}, nil
}

func (d dataFixture) toDataSegment() (ast.DataSegment, error) {
	switch d.Mode {
	case "active", "":
		offset, err := toExpr(d.Offset)
		if err != nil {
			return ast.DataSegment{}, err
		}
		return ast.DataSegment{Mode: ast.DataActive{Memory: d.Memory, Offset: offset}}, nil
	case "passive":
		return ast.DataSegment{Mode: ast.DataPassive{}}, nil
	default:
		return ast.DataSegment{}, fmt.Errorf("unknown data mode %q", d.Mode)
	}
}
