package frontend

import (
	"fmt"
	"go/ast"
	"go/constant"
	"go/token"
	"go/types"
	"sort"
	"strings"

	"golang.org/x/tools/go/ssa"

	"loopfuse/internal/ir"
)

var binaryOps = map[token.Token]ir.BinaryOp{
	token.ADD:     ir.OpAdd,
	token.SUB:     ir.OpSub,
	token.MUL:     ir.OpMul,
	token.QUO:     ir.OpDiv,
	token.REM:     ir.OpRem,
	token.AND:     ir.OpAnd,
	token.OR:      ir.OpOr,
	token.XOR:     ir.OpXor,
	token.SHL:     ir.OpShl,
	token.SHR:     ir.OpShr,
	token.AND_NOT: ir.OpAndNot,
}

var predicates = map[token.Token]ir.Predicate{
	token.EQL: ir.PredEQ,
	token.NEQ: ir.PredNE,
	token.LSS: ir.PredLT,
	token.LEQ: ir.PredLE,
	token.GTR: ir.PredGT,
	token.GEQ: ir.PredGE,
}

// builtins that neither panic nor touch memory
var pureBuiltins = map[string]bool{
	"len":     true,
	"cap":     true,
	"min":     true,
	"max":     true,
	"real":    true,
	"imag":    true,
	"complex": true,
}

type pendingPhi struct {
	phi *ir.PhiInstruction
	src *ssa.Phi
}

type functionLowerer struct {
	*Lowerer

	src    *ssa.Function
	fn     *ir.Function
	blocks map[*ssa.BasicBlock]*ir.BasicBlock
	values map[ssa.Value]*ir.Value
	names  map[string]int
	phis   []pendingPhi

	// source position of every lowered instruction, terminators included
	pos map[ir.Instruction]token.Pos

	splits int
}

func newFunctionLowerer(l *Lowerer, src *ssa.Function) *functionLowerer {
	return &functionLowerer{
		Lowerer: l,
		src:     src,
		blocks:  make(map[*ssa.BasicBlock]*ir.BasicBlock),
		values:  make(map[ssa.Value]*ir.Value),
		names:   make(map[string]int),
		pos:     make(map[ir.Instruction]token.Pos),
	}
}

func (lf *functionLowerer) lower() *ir.Function {
	src := lf.src
	lf.fn = ir.NewFunction(functionName(src), resultType(src.Signature.Results()))
	lf.fn.Pos = lf.position(src.Pos())

	for _, p := range src.Params {
		lf.values[p] = lf.fn.AddParam(lf.unique(p.Name()), lowerType(p.Type()))
	}
	for _, b := range src.Blocks {
		lf.blocks[b] = lf.fn.NewBlock(blockLabel(b))
	}

	// Definitions dominate their uses, so visiting blocks in dominator
	// preorder sees every operand before it is used. Phi edges are the
	// exception and are filled in last.
	done := make(map[*ssa.BasicBlock]bool)
	for _, b := range src.DomPreorder() {
		lf.lowerBlock(b)
		done[b] = true
	}
	for _, b := range src.Blocks {
		if !done[b] {
			lf.lowerBlock(b)
		}
	}
	for _, p := range lf.phis {
		for i, edge := range p.src.Edges {
			p.phi.Edges = append(p.phi.Edges, ir.PhiEdge{
				Block: lf.blocks[p.src.Block().Preds[i]],
				Value: lf.operand(edge),
			})
		}
	}

	for _, b := range src.Blocks {
		lf.blocks[b].Pos = lf.blockPos(lf.blocks[b])
	}
	lf.splitPosts()
	return lf.fn
}

func (lf *functionLowerer) lowerBlock(b *ssa.BasicBlock) {
	out := lf.blocks[b]
	for _, instr := range b.Instrs {
		n := len(out.Instructions)
		lf.lowerInstruction(out, instr)
		for _, inst := range out.Instructions[n:] {
			lf.pos[inst] = instr.Pos()
		}
		if out.Terminator != nil {
			if _, seen := lf.pos[out.Terminator]; !seen {
				lf.pos[out.Terminator] = instr.Pos()
			}
		}
	}
}

func (lf *functionLowerer) lowerInstruction(b *ir.BasicBlock, instr ssa.Instruction) {
	switch in := instr.(type) {
	case *ssa.DebugRef:
		// no code

	case *ssa.Alloc:
		lf.define(in, b.Alloca(lf.nameOf(in), lowerType(deref(in.Type()))))

	case *ssa.UnOp:
		lf.lowerUnOp(b, in)

	case *ssa.BinOp:
		x, y := lf.operand(in.X), lf.operand(in.Y)
		if pred, ok := predicates[in.Op]; ok {
			lf.define(in, b.Compare(lf.nameOf(in), pred, x, y))
			return
		}
		if op, ok := binaryOps[in.Op]; ok {
			lf.define(in, b.Binary(lf.nameOf(in), op, x, y))
			return
		}
		lf.opaque(b, instr)

	case *ssa.Store:
		b.Store(lf.operand(in.Addr), lf.operand(in.Val))

	case *ssa.FieldAddr:
		lf.define(in, b.Addr(lf.nameOf(in), lf.operand(in.X), false, ir.ConstInt(ir.I64, int64(in.Field))))

	case *ssa.IndexAddr:
		lf.define(in, b.Addr(lf.nameOf(in), lf.operand(in.X), true, lf.operand(in.Index)))

	case *ssa.Convert:
		lf.define(in, b.Convert(lf.nameOf(in), lowerType(in.Type()), lf.operand(in.X)))

	case *ssa.ChangeType:
		lf.define(in, b.Convert(lf.nameOf(in), lowerType(in.Type()), lf.operand(in.X)))

	case *ssa.Phi:
		phi := b.Phi(lf.nameOf(in), lowerType(in.Type()))
		lf.define(in, phi.Result)
		lf.phis = append(lf.phis, pendingPhi{phi: phi, src: in})

	case *ssa.Call:
		lf.lowerCall(b, in)

	case *ssa.If:
		succs := in.Block().Succs
		b.Branch(lf.operand(in.Cond), lf.blocks[succs[0]], lf.blocks[succs[1]])

	case *ssa.Jump:
		b.Jump(lf.blocks[in.Block().Succs[0]])

	case *ssa.Return:
		lf.lowerReturn(b, in)

	case *ssa.Panic:
		b.Call("", nil, "ssa.Panic", false, lf.operand(in.X))
		b.SetTerminator(&ir.UnreachableTerminator{})

	default:
		lf.opaque(b, instr)
	}
}

func (lf *functionLowerer) lowerUnOp(b *ir.BasicBlock, in *ssa.UnOp) {
	x := lf.operand(in.X)

	switch in.Op {
	case token.MUL:
		lf.define(in, b.Load(lf.nameOf(in), lowerType(in.Type()), x))
		return
	case token.NOT:
		lf.define(in, b.Compare(lf.nameOf(in), ir.PredEQ, x, ir.ConstBool(false)))
		return
	case token.SUB:
		switch t := x.Type.(type) {
		case *ir.IntType:
			lf.define(in, b.Binary(lf.nameOf(in), ir.OpSub, ir.ConstInt(t, 0), x))
			return
		case *ir.FloatType:
			lf.define(in, b.Binary(lf.nameOf(in), ir.OpSub, ir.ConstFloat(t, 0), x))
			return
		}
	case token.XOR:
		if t, ok := x.Type.(*ir.IntType); ok {
			lf.define(in, b.Binary(lf.nameOf(in), ir.OpXor, x, ir.ConstInt(t, -1)))
			return
		}
	}
	// channel receive
	lf.opaque(b, in)
}

func (lf *functionLowerer) lowerCall(b *ir.BasicBlock, in *ssa.Call) {
	common := in.Common()
	noUnwind := false
	var args []*ir.Value
	callee := "ssa.CallIndirect"
	switch {
	case common.IsInvoke():
		callee = "invoke." + symbolName(common.Method.Name())
		args = append(args, lf.operand(common.Value))
	case common.StaticCallee() != nil:
		callee = functionName(common.StaticCallee())
	default:
		if builtin, ok := common.Value.(*ssa.Builtin); ok {
			callee = "builtin." + builtin.Name()
			noUnwind = pureBuiltins[builtin.Name()]
		} else {
			args = append(args, lf.operand(common.Value))
		}
	}
	for _, arg := range common.Args {
		args = append(args, lf.operand(arg))
	}

	var t ir.Type = lowerType(in.Type())
	if tuple, ok := in.Type().(*types.Tuple); ok && tuple.Len() == 0 {
		t = nil
	}
	if res := b.Call(lf.nameOf(in), t, callee, noUnwind, args...); res != nil {
		lf.define(in, res)
	}
}

func (lf *functionLowerer) lowerReturn(b *ir.BasicBlock, in *ssa.Return) {
	switch len(in.Results) {
	case 0:
		b.Return(nil)
	case 1:
		b.Return(lf.operand(in.Results[0]))
	default:
		results := make([]*ir.Value, len(in.Results))
		for i, r := range in.Results {
			results[i] = lf.operand(r)
		}
		b.Return(b.Call(lf.unique("results"), lf.fn.ReturnType, "ssa.Tuple", true, results...))
	}
}

// opaque lowers an instruction the IR has no counterpart for to a call
// named after its SSA kind
func (lf *functionLowerer) opaque(b *ir.BasicBlock, instr ssa.Instruction) {
	var args []*ir.Value
	for _, rand := range instr.Operands(nil) {
		if *rand != nil {
			args = append(args, lf.operand(*rand))
		}
	}

	kind := strings.TrimPrefix(fmt.Sprintf("%T", instr), "*ssa.")
	v, isValue := instr.(ssa.Value)
	if !isValue {
		b.Call("", nil, "ssa."+kind, false, args...)
		return
	}
	lf.define(v, b.Call(lf.nameOf(v), lowerType(v.Type()), "ssa."+kind, valueOnly(instr), args...))
}

// valueOnly reports whether instr neither touches memory nor panics
func valueOnly(instr ssa.Instruction) bool {
	switch instr.(type) {
	case *ssa.Extract, *ssa.Field, *ssa.MakeInterface, *ssa.ChangeInterface, *ssa.MultiConvert:
		return true
	}
	return false
}

func (lf *functionLowerer) define(v ssa.Value, res *ir.Value) {
	lf.values[v] = res
}

// operand returns the IR value for v. Globals, functions and free
// variables have no defining instruction in the function and become
// values of their own.
func (lf *functionLowerer) operand(v ssa.Value) *ir.Value {
	if c, ok := v.(*ssa.Const); ok {
		return constantValue(c)
	}
	if res, ok := lf.values[v]; ok {
		return res
	}
	res := lf.fn.NewValue(lf.unique(v.Name()), lowerType(v.Type()))
	lf.values[v] = res
	return res
}

func (lf *functionLowerer) nameOf(v ssa.Value) string {
	if alloc, ok := v.(*ssa.Alloc); ok && alloc.Comment != "" {
		return lf.unique(alloc.Comment)
	}
	return lf.unique(v.Name())
}

// unique returns name, made printable and distinct from every name handed
// out before
func (lf *functionLowerer) unique(name string) string {
	base := symbolName(name)
	if base == "" {
		base = "v"
	}
	n := lf.names[base]
	lf.names[base] = n + 1
	if n == 0 {
		return base
	}
	return fmt.Sprintf("%s.%d", base, n)
}

func (lf *functionLowerer) blockPos(b *ir.BasicBlock) ir.Position {
	for _, inst := range b.Instructions {
		if p := lf.pos[inst]; p.IsValid() {
			return lf.position(p)
		}
	}
	if b.Terminator != nil {
		return lf.position(lf.pos[b.Terminator])
	}
	return ir.Position{}
}

func constantValue(c *ssa.Const) *ir.Value {
	t := lowerType(c.Type())
	if c.Value == nil {
		if _, ok := t.(*ir.BoolType); ok {
			return ir.ConstBool(false)
		}
		if ft, ok := t.(*ir.FloatType); ok {
			return ir.ConstFloat(ft, 0)
		}
		return ir.ConstInt(t, 0)
	}

	switch t := t.(type) {
	case *ir.IntType:
		if isUnsigned(c.Type()) {
			return ir.ConstInt(t, int64(c.Uint64()))
		}
		return ir.ConstInt(t, c.Int64())
	case *ir.FloatType:
		return ir.ConstFloat(t, c.Float64())
	case *ir.BoolType:
		return ir.ConstBool(constant.BoolVal(c.Value))
	}
	return ir.ConstInt(t, 0)
}

func lowerType(t types.Type) ir.Type {
	switch u := t.Underlying().(type) {
	case *types.Basic:
		info := u.Info()
		switch {
		case info&types.IsBoolean != 0:
			return ir.Bool
		case info&types.IsInteger != 0:
			if bits := intBits(u.Kind()); bits != 64 {
				return &ir.IntType{Bits: bits}
			}
			return ir.I64
		case u.Kind() == types.Float32:
			return &ir.FloatType{Bits: 32}
		case info&types.IsFloat != 0:
			return ir.F64
		case u.Kind() == types.UnsafePointer:
			return ir.Ptr
		}
	case *types.Pointer:
		return ir.Ptr
	}
	return &ir.OpaqueType{Name: t.String()}
}

func intBits(kind types.BasicKind) int {
	switch kind {
	case types.Int8, types.Uint8:
		return 8
	case types.Int16, types.Uint16:
		return 16
	case types.Int32, types.Uint32, types.UntypedRune:
		return 32
	}
	return 64
}

func isUnsigned(t types.Type) bool {
	b, ok := t.Underlying().(*types.Basic)
	return ok && b.Info()&types.IsUnsigned != 0
}

func deref(t types.Type) types.Type {
	if p, ok := t.Underlying().(*types.Pointer); ok {
		return p.Elem()
	}
	return t
}

func resultType(results *types.Tuple) ir.Type {
	switch results.Len() {
	case 0:
		return nil
	case 1:
		return lowerType(results.At(0).Type())
	}
	return &ir.OpaqueType{Name: results.String()}
}

func blockLabel(b *ssa.BasicBlock) string {
	if b.Index == 0 {
		return "entry"
	}
	comment := symbolName(b.Comment)
	if comment == "" {
		comment = "block"
	}
	return fmt.Sprintf("%s.%d", comment, b.Index)
}

func functionName(fn *ssa.Function) string {
	if fn.Pkg != nil {
		return symbolName(fn.RelString(fn.Pkg.Pkg))
	}
	return symbolName(fn.String())
}

// symbolName keeps the characters the textual IR accepts in names
func symbolName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.', r == '$':
			return r
		}
		return -1
	}, s)
}

// packageFunctions returns the functions of pkg that have a body, in
// source order. Synthetic wrappers and functions of other packages are
// skipped.
func packageFunctions(pkg *ssa.Package) []*ssa.Function {
	var fns []*ssa.Function
	seen := make(map[*ssa.Function]bool)

	var add func(fn *ssa.Function)
	add = func(fn *ssa.Function) {
		if fn == nil || seen[fn] || fn.Pkg != pkg || fn.Synthetic != "" || fn.Blocks == nil {
			return
		}
		seen[fn] = true
		fns = append(fns, fn)
		for _, anon := range fn.AnonFuncs {
			add(anon)
		}
	}

	for _, member := range pkg.Members {
		switch m := member.(type) {
		case *ssa.Function:
			add(m)
		case *ssa.Type:
			t := m.Type()
			if types.IsInterface(t) {
				continue
			}
			if named, ok := t.(*types.Named); ok && named.TypeParams().Len() > 0 {
				continue
			}
			for _, recv := range []types.Type{t, types.NewPointer(t)} {
				mset := pkg.Prog.MethodSets.MethodSet(recv)
				for i := 0; i < mset.Len(); i++ {
					add(pkg.Prog.MethodValue(mset.At(i)))
				}
			}
		}
	}

	sort.SliceStable(fns, func(i, j int) bool {
		if fns[i].Pos() != fns[j].Pos() {
			return fns[i].Pos() < fns[j].Pos()
		}
		return fns[i].Name() < fns[j].Name()
	})
	return fns
}

type posRange struct {
	start, end token.Pos
}

func (r posRange) contains(p token.Pos) bool {
	return p.IsValid() && r.start <= p && p < r.end
}

// postRanges returns the source ranges of the post statements of the for
// loops in the body of fn, not counting nested function literals
func postRanges(fn *ssa.Function) []posRange {
	syntax := fn.Syntax()
	if syntax == nil {
		return nil
	}
	var ranges []posRange
	ast.Inspect(syntax, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.FuncLit:
			return ast.Node(n) == syntax
		case *ast.ForStmt:
			if n.Post != nil {
				ranges = append(ranges, posRange{start: n.Post.Pos(), end: n.Post.End()})
			}
		}
		return true
	})
	return ranges
}

// splitPosts undoes the SSA builder's merging of a for loop's post
// statement into the block before it. The statement gets its own block
// again so that the loop's body and latch stay apart.
func (lf *functionLowerer) splitPosts() {
	ranges := postRanges(lf.src)
	if len(ranges) == 0 {
		return
	}

	for _, b := range append([]*ir.BasicBlock(nil), lf.fn.Blocks...) {
		at := lf.postStart(b, ranges)
		if at <= 0 {
			continue
		}
		post := ir.SplitBlock(b, at, "for.post."+b.Label[strings.LastIndex(b.Label, ".")+1:])
		post.Pos = lf.blockPos(post)
		lf.splits++
	}
}

// postStart returns the index of the first instruction of b that belongs
// to a post statement, or -1. Loads without a position right before it are
// the statement's operand reads.
func (lf *functionLowerer) postStart(b *ir.BasicBlock, ranges []posRange) int {
	for i, inst := range b.Instructions {
		p := lf.pos[inst]
		for _, r := range ranges {
			if !r.contains(p) {
				continue
			}
			for i > 0 {
				if _, isLoad := b.Instructions[i-1].(*ir.LoadInstruction); !isLoad || lf.pos[b.Instructions[i-1]].IsValid() {
					break
				}
				i--
			}
			return i
		}
	}
	return -1
}
