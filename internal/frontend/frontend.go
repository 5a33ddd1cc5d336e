// Package frontend lowers Go source to the loop IR.
//
// Go code is type-checked and built into naive-form SSA, where every local
// variable stays an Alloc accessed through loads and stores. That is the
// memory shape the fusion pass pattern-matches on, so the lowering is close
// to one IR instruction per SSA instruction.
package frontend

import (
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/tools/go/ssa"

	"loopfuse/internal/ir"
)

// GoVersion is the language version loops are built with. Before Go 1.22
// a for statement declares its counter once, so a counted loop keeps a
// single slot instead of a per-iteration copy. Type checking is not
// restricted to it.
const GoVersion = "go1.21"

// Mode is the SSA builder mode used for every package
const Mode = ssa.NaiveForm

// LoadFile parses, type-checks and lowers a single Go file
func LoadFile(path string) (*ir.Program, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read file")
	}
	return LoadSource(path, string(src))
}

// LoadSource is LoadFile for source held in memory. Imports are resolved
// from compiler export data.
func LoadSource(filename, src string) (*ir.Program, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filename, src, parser.ParseComments|parser.SkipObjectResolution)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", filename)
	}

	files := []*ast.File{file}
	info := &types.Info{
		Types:        make(map[ast.Expr]types.TypeAndValue),
		Defs:         make(map[*ast.Ident]types.Object),
		Uses:         make(map[*ast.Ident]types.Object),
		Implicits:    make(map[ast.Node]types.Object),
		Instances:    make(map[*ast.Ident]types.Instance),
		Scopes:       make(map[ast.Node]*types.Scope),
		Selections:   make(map[*ast.SelectorExpr]*types.Selection),
		FileVersions: make(map[*ast.File]string),
	}
	conf := &types.Config{Importer: importer.Default()}
	pkg, err := conf.Check(file.Name.Name, fset, files, info)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to type-check %s", filename)
	}

	program := NewLowerer(fset, nil).LowerPackage(BuildPackage(fset, pkg, files, info))
	program.Name = filename
	return program, nil
}

// BuildPackage builds naive-form SSA for a package that was already
// type-checked, as an analysis pass has it. Dependencies are created from
// their type information only.
func BuildPackage(fset *token.FileSet, pkg *types.Package, files []*ast.File, info *types.Info) *ssa.Package {
	prog := ssa.NewProgram(fset, Mode)

	created := make(map[*types.Package]bool)
	var createAll func(pkgs []*types.Package)
	createAll = func(pkgs []*types.Package) {
		for _, p := range pkgs {
			if !created[p] {
				created[p] = true
				prog.CreatePackage(p, nil, nil, true)
				createAll(p.Imports())
			}
		}
	}
	createAll(pkg.Imports())

	local := *info
	local.FileVersions = make(map[*ast.File]string, len(files))
	for _, f := range files {
		local.FileVersions[f] = GoVersion
	}

	ssaPkg := prog.CreatePackage(pkg, files, &local, false)
	ssaPkg.Build()
	return ssaPkg
}

// Lowerer converts SSA functions to IR functions
type Lowerer struct {
	fset *token.FileSet
	log  *zap.SugaredLogger
}

// NewLowerer creates a lowerer. A nil logger discards output.
func NewLowerer(fset *token.FileSet, log *zap.SugaredLogger) *Lowerer {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Lowerer{fset: fset, log: log}
}

// LowerPackage lowers every function with a body declared in pkg,
// including methods and function literals, in source order
func (l *Lowerer) LowerPackage(pkg *ssa.Package) *ir.Program {
	program := &ir.Program{Name: pkg.Pkg.Path()}
	for _, fn := range packageFunctions(pkg) {
		program.Functions = append(program.Functions, l.LowerFunction(fn))
	}
	return program
}

// LowerFunction lowers a single SSA function
func (l *Lowerer) LowerFunction(fn *ssa.Function) *ir.Function {
	lf := newFunctionLowerer(l, fn)
	out := lf.lower()
	l.log.Debugw("lowered function", "func", out.Name, "blocks", len(out.Blocks), "posts", lf.splits)
	return out
}

func (l *Lowerer) position(pos token.Pos) ir.Position {
	if !pos.IsValid() {
		return ir.Position{}
	}
	p := l.fset.Position(pos)
	return ir.Position{Filename: p.Filename, Line: p.Line, Column: p.Column}
}
