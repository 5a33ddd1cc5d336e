package grammar

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// Module is a parsed .lir file
type Module struct {
	Functions []*Function `parser:"@@*"`
}

type Function struct {
	Pos    lexer.Position
	Name   string   `parser:"\"func\" @Global"`
	Params []*Param `parser:"\"(\" [ @@ { \",\" @@ } ] \")\""`
	Return *Type    `parser:"[ @@ ]"`
	Blocks []*Block `parser:"\"{\" @@* \"}\""`
}

type Param struct {
	Pos  lexer.Position
	Name string `parser:"@Local \":\""`
	Type *Type  `parser:"@@"`
}

type Type struct {
	Pos  lexer.Position
	Name string `parser:"@(\"i1\" | \"i8\" | \"i16\" | \"i32\" | \"i64\" | \"f32\" | \"f64\" | \"bool\" | \"ptr\" | \"opaque\" | \"void\")"`
}

type Block struct {
	Pos          lexer.Position
	Label        string         `parser:"@Ident \":\""`
	Instructions []*Instruction `parser:"@@*"`
	Terminator   *Terminator    `parser:"@@"`
}

type Instruction struct {
	Pos    lexer.Position
	Store  *Store  `parser:"  @@"`
	Call   *Call   `parser:"| @@"`
	Assign *Assign `parser:"| @@"`
}

// Assign is an instruction that defines a value
type Assign struct {
	Pos     lexer.Position
	Result  string   `parser:"@Local \"=\""`
	Alloca  *Alloca  `parser:"( @@"`
	Load    *Load    `parser:"| @@"`
	Addr    *Addr    `parser:"| @@"`
	Compare *Compare `parser:"| @@"`
	Convert *Convert `parser:"| @@"`
	Call    *Call    `parser:"| @@"`
	Phi     *Phi     `parser:"| @@"`
	Binary  *Binary  `parser:"| @@ )"`
}

type Alloca struct {
	Type *Type `parser:"\"alloca\" @@"`
}

type Load struct {
	Volatile bool     `parser:"\"load\" @\"volatile\"?"`
	Type     *Type    `parser:"@@ \",\""`
	Address  *Operand `parser:"@@"`
}

type Store struct {
	Pos      lexer.Position
	Volatile bool     `parser:"\"store\" @\"volatile\"?"`
	Value    *Operand `parser:"@@ \",\""`
	Address  *Operand `parser:"@@"`
}

type Addr struct {
	Checked bool       `parser:"\"addr\" @\"checked\"?"`
	Base    *Operand   `parser:"@@"`
	Indices []*Operand `parser:"{ \",\" @@ }"`
}

type Binary struct {
	Op    string   `parser:"@(\"add\" | \"sub\" | \"mul\" | \"div\" | \"rem\" | \"and\" | \"or\" | \"xor\" | \"shl\" | \"shr\" | \"andnot\")"`
	Left  *Operand `parser:"@@ \",\""`
	Right *Operand `parser:"@@"`
}

type Compare struct {
	Predicate string   `parser:"\"cmp\" @(\"eq\" | \"ne\" | \"lt\" | \"le\" | \"gt\" | \"ge\")"`
	Left      *Operand `parser:"@@ \",\""`
	Right     *Operand `parser:"@@"`
}

type Convert struct {
	Value *Operand `parser:"\"convert\" @@ \"to\""`
	Type  *Type    `parser:"@@"`
}

type Call struct {
	Pos      lexer.Position
	Type     *Type      `parser:"\"call\" [ @@ ]"`
	Callee   string     `parser:"@Global"`
	Args     []*Operand `parser:"\"(\" [ @@ { \",\" @@ } ] \")\""`
	NoUnwind bool       `parser:"@\"nounwind\"?"`
}

type Phi struct {
	Type  *Type      `parser:"\"phi\" @@"`
	Edges []*PhiEdge `parser:"@@ { \",\" @@ }"`
}

type PhiEdge struct {
	Value *Operand `parser:"\"[\" @@ \",\""`
	Block string   `parser:"@Ident \"]\""`
}

type Operand struct {
	Pos     lexer.Position
	Local   string   `parser:"  @Local"`
	Literal *Literal `parser:"| @@"`
}

type Literal struct {
	Type  *Type    `parser:"[ @@ ]"`
	Float *float64 `parser:"( @Float"`
	Int   *string  `parser:"| @Int"`
	Bool  *string  `parser:"| @(\"true\" | \"false\") )"`
}

type Terminator struct {
	Pos         lexer.Position
	Jump        *Jump   `parser:"  @@"`
	Branch      *Branch `parser:"| @@"`
	Return      *Return `parser:"| @@"`
	Unreachable bool    `parser:"| @\"unreachable\""`
}

type Jump struct {
	Target   string `parser:"\"jump\" @Ident"`
	Parallel bool   `parser:"@(\"!\" \"parallel\")?"`
}

type Branch struct {
	Condition *Operand `parser:"\"br\" @@ \",\""`
	True      string   `parser:"@Ident \",\""`
	False     string   `parser:"@Ident"`
	Parallel  bool     `parser:"@(\"!\" \"parallel\")?"`
}

type Return struct {
	Value *Operand `parser:"\"ret\" @@?"`
}
