package codegen

import (
	"fmt"
	"io"

	"github.com/TylerDeLorey623/6502-Compiler/pkg/diag"
	"github.com/TylerDeLorey623/6502-Compiler/pkg/semantics"
)

// Image is the fixed-size output of one program's code generation: a
// 256-byte memory layout of [code][static data][unused][heap], all
// initialized to 0x00 until code/heap emission writes into it.
type Image [256]byte

// Dump renders the image as "Code Generation for Program #N" followed by
// its 256 bytes, eight hex pairs per line.
func (img Image) Dump(w io.Writer, sink *diag.Sink, program int) {
	sink.Emit(diag.Info, diag.CodeGenStage, fmt.Sprintf("Code Generation for Program #%d", program), nil)
	for i, b := range img {
		if i != 0 && i%8 == 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%02X ", b)
	}
	fmt.Fprintln(w)
}

// CodeGenerator walks one program's AST + symbol table and emits its Image.
// It is not reused across programs: one instance per program, discarded
// after Generate.
type CodeGenerator struct {
	sink    *diag.Sink
	program int

	code    []byte
	image   Image
	heapTop int
	fatal   bool

	slotCount int
	slotOf    map[*semantics.Symbol]int
	fixups    []fixup

	currentScope *semantics.Scope
}

// New returns a CodeGenerator for one program.
func New(sink *diag.Sink, program int) *CodeGenerator {
	return &CodeGenerator{
		sink:    sink,
		program: program,
		heapTop: 256,
		slotOf:  map[*semantics.Symbol]int{},
	}
}

// Generate emits root's code, back-patches static-slot addresses, and
// returns the finished image. An error means the program overran the
// 256-byte budget; per the compiler's stage gating, no image is produced.
func (cg *CodeGenerator) Generate(root *semantics.Block) (Image, error) {
	cg.emitBlock(root)
	cg.code = append(cg.code, opBRK)

	staticBase := len(cg.code)
	if cg.fatal || staticBase+cg.slotCount > cg.heapTop {
		cg.sink.Emit(diag.Error, diag.CodeGenStage, diag.WithProgram(cg.program, "program exceeds 256 bytes"), nil)
		return Image{}, fmt.Errorf("program #%d exceeds 256 bytes", cg.program)
	}

	for _, fx := range cg.fixups {
		cg.code[fx.pos] = byte(staticBase + fx.slot)
	}

	copy(cg.image[:], cg.code)
	return cg.image, nil
}

// --- instruction emission primitives ---

func (cg *CodeGenerator) emit(bytes ...byte) { cg.code = append(cg.code, bytes...) }

func (cg *CodeGenerator) emitAddrOperand(ref addrRef) {
	if ref.literal {
		cg.emit(ref.value, 0x00)
		return
	}
	pos := len(cg.code)
	cg.emit(0x00, 0x00)
	cg.fixups = append(cg.fixups, fixup{pos: pos, slot: ref.slot})
}

func (cg *CodeGenerator) ldaImm(v byte)      { cg.emit(encodeLDAImm(v)...) }
func (cg *CodeGenerator) ldaAddr(r addrRef)  { cg.emit(opLDAAddr); cg.emitAddrOperand(r) }
func (cg *CodeGenerator) staAddr(r addrRef)  { cg.emit(opSTAAddr); cg.emitAddrOperand(r) }
func (cg *CodeGenerator) adcAddr(r addrRef)  { cg.emit(opADCAddr); cg.emitAddrOperand(r) }
func (cg *CodeGenerator) ldxImm(v byte)      { cg.emit(opLDXImm, v) }
func (cg *CodeGenerator) ldxAddr(r addrRef)  { cg.emit(opLDXAddr); cg.emitAddrOperand(r) }
func (cg *CodeGenerator) ldyImm(v byte)      { cg.emit(opLDYImm, v) }
func (cg *CodeGenerator) ldyAddr(r addrRef)  { cg.emit(opLDYAddr); cg.emitAddrOperand(r) }
func (cg *CodeGenerator) cpxAddr(r addrRef)  { cg.emit(opCPXAddr); cg.emitAddrOperand(r) }
func (cg *CodeGenerator) bneRel(offset byte) { cg.emit(opBNERel, offset) }
func (cg *CodeGenerator) sys()               { cg.emit(opSYS) }

// --- static slot bookkeeping ---

func (cg *CodeGenerator) allocSlotFor(sym *semantics.Symbol) int {
	slot := cg.slotCount
	cg.slotCount++
	cg.slotOf[sym] = slot
	return slot
}

func (cg *CodeGenerator) allocTempSlot() int {
	slot := cg.slotCount
	cg.slotCount++
	return slot
}

func (cg *CodeGenerator) resolveSlot(name string) int {
	sym, _ := cg.currentScope.Resolve(name)
	return cg.slotOf[sym]
}

// allocHeapString copies s plus a trailing 0x00 into the heap, which grows
// down from address 0xFF, and returns the address of its first byte.
func (cg *CodeGenerator) allocHeapString(s string) byte {
	n := len(s) + 1
	cg.heapTop -= n
	if cg.heapTop < 0 {
		cg.fatal = true
		return 0
	}
	for i := 0; i < len(s); i++ {
		cg.image[cg.heapTop+i] = s[i]
	}
	cg.image[cg.heapTop+len(s)] = 0x00
	return byte(cg.heapTop)
}

// --- type lookup (mirrors the analyzer's type switch; codegen only ever
// runs over a tree the analyzer already found well-typed) ---

func (cg *CodeGenerator) typeOf(node semantics.Node) semantics.DataType {
	switch v := node.(type) {
	case *semantics.DigitLit:
		return semantics.Int
	case *semantics.BoolLit:
		return semantics.Boolean
	case *semantics.StringLit:
		return semantics.String
	case *semantics.Ident:
		sym, _ := cg.currentScope.Resolve(v.Name)
		if sym == nil {
			return semantics.Unknown
		}
		return sym.DeclaredType
	case *semantics.ADD:
		return semantics.Int
	case *semantics.IsEq, *semantics.IsNotEq:
		return semantics.Boolean
	default:
		return semantics.Unknown
	}
}

// --- value loading ---

// loadMode describes how an already-emitted expression's value can be
// retrieved: as an immediate constant, from a known static slot, or (for
// ADD/comparison subtrees) already sitting in the Accumulator as well as
// at slot.
type loadMode struct {
	immediate        bool
	imm              byte
	slot             int
	accumulatorReady bool
}

// computeLoad emits whatever code is needed to produce node's value and
// reports how to retrieve it. For ADD and comparisons this emits the full
// subtree; for leaves it emits nothing and just describes the operand.
func (cg *CodeGenerator) computeLoad(node semantics.Node) loadMode {
	switch v := node.(type) {
	case *semantics.DigitLit:
		return loadMode{immediate: true, imm: byte(v.Value)}
	case *semantics.BoolLit:
		b := byte(0)
		if v.Value {
			b = 1
		}
		return loadMode{immediate: true, imm: b}
	case *semantics.StringLit:
		return loadMode{immediate: true, imm: cg.allocHeapString(v.Value)}
	case *semantics.Ident:
		return loadMode{slot: cg.resolveSlot(v.Name)}
	case *semantics.ADD:
		return loadMode{slot: cg.emitADD(v), accumulatorReady: true}
	case *semantics.IsEq:
		return loadMode{slot: cg.emitCompare(v.Lhs, v.Rhs, false), accumulatorReady: true}
	case *semantics.IsNotEq:
		return loadMode{slot: cg.emitCompare(v.Lhs, v.Rhs, true), accumulatorReady: true}
	default:
		return loadMode{}
	}
}

func (cg *CodeGenerator) emitExprIntoAccumulator(node semantics.Node) loadMode {
	lm := cg.computeLoad(node)
	if !lm.accumulatorReady {
		if lm.immediate {
			cg.ldaImm(lm.imm)
		} else {
			cg.ldaAddr(slotRef(lm.slot))
		}
	}
	return lm
}

// emitExprIntoY loads node's value into Y, the register Print needs. There
// is no accumulator-to-Y transfer in this instruction set, so an
// ADD/comparison result (already sitting at its own slot) is read back
// from memory rather than reused from the Accumulator.
func (cg *CodeGenerator) emitExprIntoY(node semantics.Node) {
	lm := cg.computeLoad(node)
	switch {
	case lm.accumulatorReady, !lm.immediate:
		cg.ldyAddr(slotRef(lm.slot))
	default:
		cg.ldyImm(lm.imm)
	}
}

func (cg *CodeGenerator) emitStoreInto(node semantics.Node, ref addrRef) {
	cg.emitExprIntoAccumulator(node)
	cg.staAddr(ref)
}

// --- per-construct emission ---

// emitADD computes digit+Expr into its own fresh static slot and leaves the
// sum in the Accumulator too. A nested ADD recurses first so its subtotal
// is ready in its own slot before this level adds the leading digit.
func (cg *CodeGenerator) emitADD(node *semantics.ADD) int {
	slot := cg.allocTempSlot()
	digit := node.Lhs.(*semantics.DigitLit)

	if rhsAdd, ok := node.Rhs.(*semantics.ADD); ok {
		rhsSlot := cg.emitADD(rhsAdd)
		cg.ldaImm(byte(digit.Value))
		cg.adcAddr(slotRef(rhsSlot))
		cg.staAddr(slotRef(slot))
		return slot
	}

	cg.emitStoreInto(node.Rhs, slotRef(slot))
	cg.ldaImm(byte(digit.Value))
	cg.adcAddr(slotRef(slot))
	cg.staAddr(slotRef(slot))
	return slot
}

// emitCompare evaluates lhs and rhs into two fresh slots, compares them via
// LDX/CPX, and leaves 0/1 in the Accumulator (also persisted to a third
// fresh slot so Print can reload it into Y).
func (cg *CodeGenerator) emitCompare(lhs, rhs semantics.Node, isNotEq bool) int {
	slot1 := cg.allocTempSlot()
	cg.emitStoreInto(lhs, slotRef(slot1))
	slot2 := cg.allocTempSlot()
	cg.emitStoreInto(rhs, slotRef(slot2))

	cg.ldxAddr(slotRef(slot2))
	cg.cpxAddr(slotRef(slot1))

	resultSlot := cg.allocTempSlot()
	skip := byte(len(encodeLDAImm(0)))
	if isNotEq {
		cg.ldaImm(1)
		cg.bneRel(skip)
		cg.ldaImm(0)
	} else {
		cg.ldaImm(0)
		cg.bneRel(skip)
		cg.ldaImm(1)
	}
	cg.staAddr(slotRef(resultSlot))
	return resultSlot
}

func (cg *CodeGenerator) emitDeclare(node *semantics.Declare) {
	sym, _ := cg.currentScope.Own(node.Name)
	slot := cg.allocSlotFor(sym)
	if node.VarType != semantics.String {
		cg.ldaImm(0)
		cg.staAddr(slotRef(slot))
	}
}

func (cg *CodeGenerator) emitAssign(node *semantics.Assign) {
	sym, _ := cg.currentScope.Resolve(node.TargetName)
	cg.emitStoreInto(node.Value, slotRef(cg.slotOf[sym]))
}

func (cg *CodeGenerator) emitPrint(node *semantics.Print) {
	t := cg.typeOf(node.Expr)
	cg.emitExprIntoY(node.Expr)
	if t == semantics.String {
		cg.ldxImm(2)
	} else {
		cg.ldxImm(1)
	}
	cg.sys()
}

// emitIf stages the condition at the scratch cell, compares it against 1,
// restores the scratch cell to 0, then emits a forward BNE that skips the
// body when the condition was false.
func (cg *CodeGenerator) emitIf(node *semantics.If) {
	cg.emitExprIntoAccumulator(node.Cond)
	cg.staAddr(scratchRef)
	cg.ldxImm(1)
	cg.cpxAddr(scratchRef)
	cg.ldaImm(0)
	cg.staAddr(scratchRef)

	jpPos := len(cg.code)
	cg.bneRel(0)
	start := len(cg.code)
	cg.emitBlock(node.Body)
	end := len(cg.code)
	cg.code[jpPos+1] = byte(end - start)
}

// emitWhile is emitIf's condition test, plus a trailing always-taken BNE
// (built by comparing a freshly zeroed scratch cell against X=1, which can
// never match) that jumps back to re-evaluate the condition. When the
// condition is false the forward BNE skips both the body and that trailing
// jump, leaving the loop.
func (cg *CodeGenerator) emitWhile(node *semantics.While) {
	loopStart := len(cg.code)

	cg.emitExprIntoAccumulator(node.Cond)
	cg.staAddr(scratchRef)
	cg.ldxImm(1)
	cg.cpxAddr(scratchRef)
	cg.ldaImm(0)
	cg.staAddr(scratchRef)

	jpPos := len(cg.code)
	cg.bneRel(0)
	start := len(cg.code)
	cg.emitBlock(node.Body)
	end := len(cg.code)
	cg.code[jpPos+1] = byte(end - start)

	cg.ldaImm(0)
	cg.staAddr(scratchRef)
	cg.ldxImm(1)
	cg.cpxAddr(scratchRef)
	backPos := len(cg.code)
	cg.bneRel(0)
	afterBack := len(cg.code)
	cg.code[backPos+1] = byte(int8(loopStart - afterBack))
	cg.code[jpPos+1] = byte(afterBack - start)
}

func (cg *CodeGenerator) emitBlock(block *semantics.Block) {
	prev := cg.currentScope
	cg.currentScope = block.Scope
	for _, stmt := range block.Statements {
		cg.emitStatement(stmt)
	}
	cg.currentScope = prev
}

func (cg *CodeGenerator) emitStatement(node semantics.Node) {
	switch v := node.(type) {
	case *semantics.Declare:
		cg.emitDeclare(v)
	case *semantics.Assign:
		cg.emitAssign(v)
	case *semantics.Print:
		cg.emitPrint(v)
	case *semantics.If:
		cg.emitIf(v)
	case *semantics.While:
		cg.emitWhile(v)
	case *semantics.Block:
		cg.emitBlock(v)
	}
}
