// Package spvreflect extracts resource bindings and their struct layouts from SPIR-V bytecode.
// Only the subset of the binary format needed to describe descriptor bindings is decoded:
// debug names, decorations, type declarations, global variables, and enough of each function
// body to know which globals the entry point touches.
package spvreflect

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"
	"sort"

	"github.com/gogpu/naga/spirv"
)

// ErrInvalidModule is returned when the bytecode is not a well-formed SPIR-V module.
var ErrInvalidModule = errors.New("invalid SPIR-V module")

// Opcodes and decorations that the naga spirv package does not export.
const (
	opTypeImage                    spirv.OpCode = 25
	opTypeSampler                  spirv.OpCode = 26
	opTypeSampledImage             spirv.OpCode = 27
	opLine                         spirv.OpCode = 8
	opNoLine                       spirv.OpCode = 317
	opTypeAccelerationStructureKHR spirv.OpCode = 5341

	decorationBufferBlock spirv.Decoration = 3
)

const headerWords = 5

type instruction struct {
	op    spirv.OpCode
	words []uint32 // operands, excluding the opcode word
}

type variable struct {
	id      uint32
	ptrType uint32
	storage spirv.StorageClass
}

type entryPoint struct {
	model  spirv.ExecutionModel
	funcID uint32
	name   string
}

// parser accumulates module-level facts in one pass over the instruction stream.
type parser struct {
	names       map[uint32]string
	memberNames map[uint32]map[uint32]string
	sets        map[uint32]uint32
	bindings    map[uint32]uint32
	blocks      map[uint32]bool
	bufBlocks   map[uint32]bool
	offsets     map[uint32]map[uint32]uint32
	constants   map[uint32]uint32
	typeDecls   map[uint32]instruction
	variables   []variable
	entryPoints []entryPoint

	// funcRefs maps a function id to every id its body references.
	funcRefs map[uint32]map[uint32]struct{}
	// funcCalls maps a function id to the functions it calls.
	funcCalls map[uint32][]uint32

	resolved map[uint32]*Type
}

// Reflect decodes a SPIR-V module and lists the resource bindings statically used by the named
// fragment entry point, following calls into helper functions. Push-constant blocks and stage
// inputs/outputs are not bindings and are skipped.
//
// Parameters:
//   - code: the SPIR-V module bytes, in either byte order
//   - entry: the entry point name; when empty, "main" is used
//
// Returns:
//   - *Module: the reflected bindings
//   - error: ErrInvalidModule (wrapped) if the bytecode is malformed, or an error if no
//     fragment entry point with that name exists
func Reflect(code []byte, entry string) (*Module, error) {
	if entry == "" {
		entry = "main"
	}
	words, err := decodeWords(code)
	if err != nil {
		return nil, err
	}

	p := &parser{
		names:       make(map[uint32]string),
		memberNames: make(map[uint32]map[uint32]string),
		sets:        make(map[uint32]uint32),
		bindings:    make(map[uint32]uint32),
		blocks:      make(map[uint32]bool),
		bufBlocks:   make(map[uint32]bool),
		offsets:     make(map[uint32]map[uint32]uint32),
		constants:   make(map[uint32]uint32),
		typeDecls:   make(map[uint32]instruction),
		funcRefs:    make(map[uint32]map[uint32]struct{}),
		funcCalls:   make(map[uint32][]uint32),
		resolved:    make(map[uint32]*Type),
	}
	if err := p.parse(words[headerWords:]); err != nil {
		return nil, err
	}

	var ep *entryPoint
	for i := range p.entryPoints {
		e := &p.entryPoints[i]
		if e.model == spirv.ExecutionModelFragment && e.name == entry {
			ep = e
			break
		}
	}
	if ep == nil {
		return nil, fmt.Errorf("no fragment entry point named %q", entry)
	}

	used := p.reachable(ep.funcID)
	mod := &Module{EntryPoint: ep.name}
	for _, v := range p.variables {
		if _, ok := used[v.id]; !ok {
			continue
		}
		switch v.storage {
		case spirv.StorageClassUniform, spirv.StorageClassUniformConstant, spirv.StorageClassStorageBuffer:
		default:
			continue
		}
		ptr := p.resolve(v.ptrType)
		if ptr == nil || ptr.Kind != TypePointer {
			return nil, fmt.Errorf("%w: variable %d is not a pointer", ErrInvalidModule, v.id)
		}
		pointee := ptr.Elem
		count := uint32(1)
		for pointee != nil && (pointee.Kind == TypeArray || pointee.Kind == TypeRuntimeArray) {
			if pointee.Kind == TypeRuntimeArray {
				count = 0
			} else {
				count *= pointee.Count
			}
			pointee = pointee.Elem
		}
		mod.Bindings = append(mod.Bindings, Binding{
			Set:     p.sets[v.id],
			Binding: p.bindings[v.id],
			Name:    p.names[v.id],
			Kind:    descriptorKind(v.storage, pointee),
			Type:    pointee,
			Count:   count,
		})
	}
	sort.SliceStable(mod.Bindings, func(i, j int) bool {
		a, b := mod.Bindings[i], mod.Bindings[j]
		if a.Set != b.Set {
			return a.Set < b.Set
		}
		return a.Binding < b.Binding
	})
	return mod, nil
}

// decodeWords validates the header and converts the bytes into host-order words.
func decodeWords(code []byte) ([]uint32, error) {
	if len(code)%4 != 0 || len(code) < headerWords*4 {
		return nil, fmt.Errorf("%w: length %d", ErrInvalidModule, len(code))
	}
	words := make([]uint32, len(code)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(code[i*4:])
	}
	switch words[0] {
	case spirv.MagicNumber:
	case bits.ReverseBytes32(spirv.MagicNumber):
		for i := range words {
			words[i] = bits.ReverseBytes32(words[i])
		}
	default:
		return nil, fmt.Errorf("%w: bad magic number %#08x", ErrInvalidModule, words[0])
	}
	return words, nil
}

func (p *parser) parse(words []uint32) error {
	var currentFunc uint32
	for len(words) > 0 {
		count := int(words[0] >> 16)
		op := spirv.OpCode(words[0] & 0xffff)
		if count == 0 || count > len(words) {
			return fmt.Errorf("%w: truncated instruction (opcode %d)", ErrInvalidModule, op)
		}
		ins := instruction{op: op, words: words[1:count]}
		words = words[count:]

		if currentFunc != 0 {
			switch ins.op {
			case spirv.OpFunctionEnd:
				currentFunc = 0
			case spirv.OpFunctionCall:
				if len(ins.words) >= 3 {
					p.funcCalls[currentFunc] = append(p.funcCalls[currentFunc], ins.words[2])
				}
				p.recordRefs(currentFunc, ins.words)
			default:
				p.recordRefs(currentFunc, idOperands(ins))
			}
			continue
		}

		if err := p.parseGlobal(ins, &currentFunc); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) parseGlobal(ins instruction, currentFunc *uint32) error {
	w := ins.words
	need := func(n int) error {
		if len(w) < n {
			return fmt.Errorf("%w: opcode %d has %d operands, want %d", ErrInvalidModule, ins.op, len(w), n)
		}
		return nil
	}

	switch ins.op {
	case spirv.OpName:
		if err := need(1); err != nil {
			return err
		}
		p.names[w[0]] = decodeString(w[1:])
	case spirv.OpMemberName:
		if err := need(2); err != nil {
			return err
		}
		if p.memberNames[w[0]] == nil {
			p.memberNames[w[0]] = make(map[uint32]string)
		}
		p.memberNames[w[0]][w[1]] = decodeString(w[2:])
	case spirv.OpEntryPoint:
		if err := need(2); err != nil {
			return err
		}
		p.entryPoints = append(p.entryPoints, entryPoint{
			model:  spirv.ExecutionModel(w[0]),
			funcID: w[1],
			name:   decodeString(w[2:]),
		})
	case spirv.OpDecorate:
		if err := need(2); err != nil {
			return err
		}
		switch spirv.Decoration(w[1]) {
		case spirv.DecorationDescriptorSet:
			if err := need(3); err != nil {
				return err
			}
			p.sets[w[0]] = w[2]
		case spirv.DecorationBinding:
			if err := need(3); err != nil {
				return err
			}
			p.bindings[w[0]] = w[2]
		case spirv.DecorationBlock:
			p.blocks[w[0]] = true
		case decorationBufferBlock:
			p.bufBlocks[w[0]] = true
		}
	case spirv.OpMemberDecorate:
		if err := need(3); err != nil {
			return err
		}
		if spirv.Decoration(w[2]) == spirv.DecorationOffset {
			if err := need(4); err != nil {
				return err
			}
			if p.offsets[w[0]] == nil {
				p.offsets[w[0]] = make(map[uint32]uint32)
			}
			p.offsets[w[0]][w[1]] = w[3]
		}
	case spirv.OpConstant:
		if len(w) >= 3 {
			p.constants[w[1]] = w[2]
		}
	case spirv.OpTypeVoid, spirv.OpTypeBool, spirv.OpTypeInt, spirv.OpTypeFloat, spirv.OpTypeVector,
		spirv.OpTypeMatrix, spirv.OpTypeArray, spirv.OpTypeRuntimeArray, spirv.OpTypeStruct,
		spirv.OpTypePointer, opTypeImage, opTypeSampler, opTypeSampledImage, opTypeAccelerationStructureKHR:
		if err := need(1); err != nil {
			return err
		}
		p.typeDecls[w[0]] = ins
	case spirv.OpVariable:
		if err := need(3); err != nil {
			return err
		}
		p.variables = append(p.variables, variable{id: w[1], ptrType: w[0], storage: spirv.StorageClass(w[2])})
	case spirv.OpFunction:
		if err := need(2); err != nil {
			return err
		}
		*currentFunc = w[1]
		p.funcRefs[w[1]] = make(map[uint32]struct{})
	}
	return nil
}

func (p *parser) recordRefs(fn uint32, ids []uint32) {
	refs := p.funcRefs[fn]
	for _, id := range ids {
		refs[id] = struct{}{}
	}
}

// idOperands drops literal operands from the instructions that carry them, so a literal that
// happens to equal a variable id does not count as a use.
func idOperands(ins instruction) []uint32 {
	w := ins.words
	switch ins.op {
	case opLine, opNoLine, spirv.OpSelectionMerge, spirv.OpLoopMerge:
		return nil
	case spirv.OpCompositeExtract:
		if len(w) >= 3 {
			return w[:3]
		}
	case spirv.OpVectorShuffle:
		if len(w) >= 4 {
			return w[:4]
		}
	case spirv.OpExtInst:
		if len(w) >= 4 {
			return append(w[:3:3], w[4:]...)
		}
	case spirv.OpSwitch:
		if len(w) >= 2 {
			return w[:2]
		}
	}
	return w
}

// reachable returns every id referenced by the function and its transitive callees.
func (p *parser) reachable(root uint32) map[uint32]struct{} {
	used := make(map[uint32]struct{})
	seen := map[uint32]bool{root: true}
	queue := []uint32{root}
	for len(queue) > 0 {
		fn := queue[0]
		queue = queue[1:]
		for id := range p.funcRefs[fn] {
			used[id] = struct{}{}
		}
		for _, callee := range p.funcCalls[fn] {
			if !seen[callee] {
				seen[callee] = true
				queue = append(queue, callee)
			}
		}
	}
	return used
}

// resolve builds the Type for an id, memoizing so shared and self-referencing types terminate.
func (p *parser) resolve(id uint32) *Type {
	if t, ok := p.resolved[id]; ok {
		return t
	}
	decl, ok := p.typeDecls[id]
	if !ok {
		return nil
	}
	t := &Type{ID: id, Name: p.names[id]}
	p.resolved[id] = t

	w := decl.words
	operand := func(i int) uint32 {
		if i < len(w) {
			return w[i]
		}
		return 0
	}
	switch decl.op {
	case spirv.OpTypeVoid:
		t.Kind = TypeVoid
	case spirv.OpTypeBool:
		t.Kind = TypeBool
	case spirv.OpTypeInt:
		t.Kind = TypeInt
		t.Width = operand(1)
		t.Signed = operand(2) == 1
	case spirv.OpTypeFloat:
		t.Kind = TypeFloat
		t.Width = operand(1)
	case spirv.OpTypeVector:
		t.Kind = TypeVector
		t.Elem = p.resolve(operand(1))
		t.Count = operand(2)
	case spirv.OpTypeMatrix:
		t.Kind = TypeMatrix
		t.Elem = p.resolve(operand(1))
		t.Count = operand(2)
	case spirv.OpTypeArray:
		t.Kind = TypeArray
		t.Elem = p.resolve(operand(1))
		t.Count = p.constants[operand(2)]
	case spirv.OpTypeRuntimeArray:
		t.Kind = TypeRuntimeArray
		t.Elem = p.resolve(operand(1))
	case spirv.OpTypeStruct:
		t.Kind = TypeStruct
		t.Block = p.blocks[id]
		t.BufferBlock = p.bufBlocks[id]
		for i, member := range w[1:] {
			idx := uint32(i)
			m := Member{Name: p.memberNames[id][idx], Type: p.resolve(member)}
			m.Offset, m.HasOffset = p.offsets[id][idx]
			t.Members = append(t.Members, m)
		}
	case spirv.OpTypePointer:
		t.Kind = TypePointer
		t.Elem = p.resolve(operand(2))
	case opTypeImage:
		t.Kind = TypeImage
		t.Elem = p.resolve(operand(1))
		t.Dim = operand(2)
		t.Sampled = operand(6)
	case opTypeSampler:
		t.Kind = TypeSampler
	case opTypeSampledImage:
		t.Kind = TypeSampledImage
		t.Elem = p.resolve(operand(1))
	case opTypeAccelerationStructureKHR:
		t.Kind = TypeAccelerationStructure
	}
	return t
}

// descriptorKind maps a storage class and unwrapped pointee type to a descriptor kind.
func descriptorKind(storage spirv.StorageClass, t *Type) DescriptorKind {
	if t == nil {
		return DescriptorUnknown
	}
	switch storage {
	case spirv.StorageClassUniform:
		if t.Kind == TypeStruct && t.BufferBlock {
			return DescriptorStorageBuffer
		}
		return DescriptorUniformBuffer
	case spirv.StorageClassStorageBuffer:
		return DescriptorStorageBuffer
	}

	switch t.Kind {
	case TypeSampler:
		return DescriptorSampler
	case TypeSampledImage:
		if t.Elem != nil && t.Elem.Dim == DimBuffer {
			return DescriptorUniformTexelBuffer
		}
		return DescriptorCombinedImageSampler
	case TypeImage:
		switch {
		case t.Dim == DimBuffer && t.Sampled == 2:
			return DescriptorStorageTexelBuffer
		case t.Dim == DimBuffer:
			return DescriptorUniformTexelBuffer
		case t.Dim == DimSubpass:
			return DescriptorInputAttachment
		case t.Sampled == 2:
			return DescriptorStorageImage
		default:
			return DescriptorSampledImage
		}
	case TypeAccelerationStructure:
		return DescriptorAccelerationStructure
	}
	return DescriptorUnknown
}

// decodeString reads a nul-terminated UTF-8 literal packed little-endian into words.
func decodeString(words []uint32) string {
	buf := make([]byte, 0, len(words)*4)
	for _, w := range words {
		for shift := 0; shift < 32; shift += 8 {
			c := byte(w >> shift)
			if c == 0 {
				return string(buf)
			}
			buf = append(buf, c)
		}
	}
	return string(buf)
}
