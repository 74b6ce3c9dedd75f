package compiler

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/naga/ir"
	"github.com/gogpu/naga/spirv"
)

// spvModule is a little-endian SPIR-V word stream with the ids needed to name resource globals.
type spvModule struct {
	words []uint32

	// debugEnd is the word index where the debug section ends and annotations begin.
	debugEnd int

	named       map[uint32]bool
	memberNamed map[[2]uint32]bool
	sets        map[uint32]uint32
	bindings    map[uint32]uint32
	varTypes    map[uint32]uint32
	pointees    map[uint32]uint32
	arrays      map[uint32]uint32
	structs     map[uint32][]uint32
}

// preamble lists the opcodes that may precede the end of the debug section.
var preamble = map[spirv.OpCode]bool{
	spirv.OpCapability:      true,
	spirv.OpExtension:       true,
	spirv.OpExtInstImport:   true,
	spirv.OpMemoryModel:     true,
	spirv.OpEntryPoint:      true,
	spirv.OpExecutionMode:   true,
	spirv.OpString:          true,
	spirv.OpSource:          true,
	spirv.OpName:            true,
	spirv.OpMemberName:      true,
	2:                       true, // OpSourceContinued
	4:                       true, // OpSourceExtension
	330:                     true, // OpModuleProcessed
	331:                     true, // OpExecutionModeId
}

func parseSPVModule(code []byte) (*spvModule, error) {
	if len(code)%4 != 0 || len(code) < 20 {
		return nil, fmt.Errorf("spir-v length %d", len(code))
	}
	m := &spvModule{
		words:       make([]uint32, len(code)/4),
		named:       make(map[uint32]bool),
		memberNamed: make(map[[2]uint32]bool),
		sets:        make(map[uint32]uint32),
		bindings:    make(map[uint32]uint32),
		varTypes:    make(map[uint32]uint32),
		pointees:    make(map[uint32]uint32),
		arrays:      make(map[uint32]uint32),
		structs:     make(map[uint32][]uint32),
	}
	for i := range m.words {
		m.words[i] = binary.LittleEndian.Uint32(code[i*4:])
	}
	if m.words[0] != spirv.MagicNumber {
		return nil, fmt.Errorf("spir-v magic %#08x", m.words[0])
	}

	for i := 5; i < len(m.words); {
		count := int(m.words[i] >> 16)
		op := spirv.OpCode(m.words[i] & 0xffff)
		if count == 0 || i+count > len(m.words) {
			return nil, fmt.Errorf("truncated spir-v instruction at word %d", i)
		}
		ops := m.words[i+1 : i+count]
		if m.debugEnd == 0 && !preamble[op] {
			m.debugEnd = i
		}
		switch {
		case op == spirv.OpName && len(ops) >= 1:
			m.named[ops[0]] = true
		case op == spirv.OpMemberName && len(ops) >= 2:
			m.memberNamed[[2]uint32{ops[0], ops[1]}] = true
		case op == spirv.OpDecorate && len(ops) >= 3:
			switch spirv.Decoration(ops[1]) {
			case spirv.DecorationDescriptorSet:
				m.sets[ops[0]] = ops[2]
			case spirv.DecorationBinding:
				m.bindings[ops[0]] = ops[2]
			}
		case op == spirv.OpVariable && len(ops) >= 2:
			m.varTypes[ops[1]] = ops[0]
		case op == spirv.OpTypePointer && len(ops) >= 3:
			m.pointees[ops[0]] = ops[2]
		case (op == spirv.OpTypeArray || op == spirv.OpTypeRuntimeArray) && len(ops) >= 2:
			m.arrays[ops[0]] = ops[1]
		case op == spirv.OpTypeStruct && len(ops) >= 1:
			m.structs[ops[0]] = ops[1:]
		}
		i += count
	}
	if m.debugEnd == 0 {
		m.debugEnd = len(m.words)
	}
	return m, nil
}

// variable finds the global decorated with the given descriptor set and binding.
func (m *spvModule) variable(set, binding uint32) (uint32, bool) {
	for id := range m.varTypes {
		s, okSet := m.sets[id]
		b, okBinding := m.bindings[id]
		if okSet && okBinding && s == set && b == binding {
			return id, true
		}
	}
	return 0, false
}

// block follows a variable's pointer type through any arrays to the struct it holds.
func (m *spvModule) block(varID uint32) (uint32, bool) {
	t := m.pointees[m.varTypes[varID]]
	for {
		elem, ok := m.arrays[t]
		if !ok {
			break
		}
		t = elem
	}
	_, ok := m.structs[t]
	return t, ok
}

func encodeString(s string) []uint32 {
	b := append([]byte(s), 0)
	for len(b)%4 != 0 {
		b = append(b, 0)
	}
	out := make([]uint32, len(b)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return out
}

func nameInstruction(op spirv.OpCode, operands []uint32, name string) []uint32 {
	s := encodeString(name)
	words := make([]uint32, 0, 1+len(operands)+len(s))
	words = append(words, uint32(1+len(operands)+len(s))<<16|uint32(op))
	words = append(words, operands...)
	return append(words, s...)
}

// baseType strips binding arrays and fixed arrays from an IR type.
func baseType(mod *ir.Module, h ir.TypeHandle) ir.Type {
	for int(h) < len(mod.Types) {
		switch t := mod.Types[h].Inner.(type) {
		case ir.BindingArrayType:
			h = t.Base
		case ir.ArrayType:
			h = t.Base
		default:
			return mod.Types[h]
		}
	}
	return ir.Type{}
}

// nameResources adds the OpName instructions that identify every bound global and its struct
// type, taking the names from the IR the code was generated from. The generator's own debug
// pass only names struct members.
//
// Parameters:
//   - code: SPIR-V generated from mod
//   - mod: the IR module
//
// Returns:
//   - []byte: the module with the names added
//   - error: an error if code is not a well-formed little-endian module
func nameResources(code []byte, mod *ir.Module) ([]byte, error) {
	m, err := parseSPVModule(code)
	if err != nil {
		return nil, err
	}

	var names []uint32
	for _, gv := range mod.GlobalVariables {
		if gv.Binding == nil {
			continue
		}
		id, ok := m.variable(gv.Binding.Group, gv.Binding.Binding)
		if !ok {
			continue
		}
		if gv.Name != "" && !m.named[id] {
			names = append(names, nameInstruction(spirv.OpName, []uint32{id}, gv.Name)...)
			m.named[id] = true
		}

		block, ok := m.block(id)
		if !ok {
			continue
		}
		base := baseType(mod, gv.Type)
		if _, ok := base.Inner.(ir.StructType); !ok || base.Name == "" {
			continue
		}
		// The generator wraps most struct globals in an anonymous single-member block.
		target := block
		if members := m.structs[block]; len(members) == 1 && !m.named[block] && !m.memberNamed[[2]uint32{block, 0}] && isStructID(m, members[0]) {
			target = members[0]
		}
		if !m.named[target] {
			names = append(names, nameInstruction(spirv.OpName, []uint32{target}, base.Name)...)
			m.named[target] = true
		}
	}
	if len(names) == 0 {
		return code, nil
	}

	words := make([]uint32, 0, len(m.words)+len(names))
	words = append(words, m.words[:m.debugEnd]...)
	words = append(words, names...)
	words = append(words, m.words[m.debugEnd:]...)
	out := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(out[i*4:], w)
	}
	return out, nil
}

func isStructID(m *spvModule, id uint32) bool {
	_, ok := m.structs[id]
	return ok
}
