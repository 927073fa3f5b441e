// Package ncs implements a stack-based bytecode virtual machine for NCS
// ("NWScript compiled") programs: the compiled form of a role-playing
// game engine's scripting language.
//
// Architecture: stack-based VM, variable-length instructions read from
// an immutable Program. Opcodes are dispatched with a single switch in
// the VM's run loop, the same shape bytecode.VM uses, since
// the opcode set here is likewise closed and small enough for Go's
// switch to stay fast.
package ncs

// OpCode identifies an NCS instruction. The set is closed and fixed.
type OpCode byte

const (
	OpCPDOWNSP  OpCode = 0x01
	OpRSADD     OpCode = 0x02
	OpCPTOPSP   OpCode = 0x03
	OpCONST     OpCode = 0x04
	OpACTION    OpCode = 0x05
	OpLOGAND    OpCode = 0x06
	OpLOGOR     OpCode = 0x07
	OpINCOR     OpCode = 0x08
	OpEXCOR     OpCode = 0x09
	OpBOOLAND   OpCode = 0x0A
	OpEQUAL     OpCode = 0x0B
	OpNEQUAL    OpCode = 0x0C
	OpGEQ       OpCode = 0x0D
	OpGT        OpCode = 0x0E
	OpLT        OpCode = 0x0F
	OpLEQ       OpCode = 0x10
	OpSHLEFT    OpCode = 0x11
	OpSHRIGHT   OpCode = 0x12
	OpUSHRIGHT  OpCode = 0x13
	OpADD       OpCode = 0x14
	OpSUB       OpCode = 0x15
	OpMUL       OpCode = 0x16
	OpDIV       OpCode = 0x17
	OpMOD       OpCode = 0x18
	OpNEG       OpCode = 0x19
	OpCOMP      OpCode = 0x1A
	OpMOVSP     OpCode = 0x1B
	opStoreHdr  OpCode = 0x1C // storestate header byte; never dispatched on its own
	OpJMP       OpCode = 0x1D
	OpJSR       OpCode = 0x1E
	OpJZ        OpCode = 0x1F
	OpRETN      OpCode = 0x20
	OpDESTRUCT  OpCode = 0x21
	OpNOT       OpCode = 0x22
	OpDECISP    OpCode = 0x23
	OpINCISP    OpCode = 0x24
	OpJNZ       OpCode = 0x25
	OpCPDOWNBP  OpCode = 0x26
	OpCPTOPBP   OpCode = 0x27
	OpDECIBP    OpCode = 0x28
	OpINCIBP    OpCode = 0x29
	OpSAVEBP    OpCode = 0x2A
	OpRESTOREBP OpCode = 0x2B
	OpSTORESTATE OpCode = 0x2C
	OpNOP       OpCode = 0x2D
	OpNOP2      OpCode = 0x2E
)

// opCodeNames mirrors bytecode's ValueTypeNames array-indexed String()
// idiom: a sparse lookup table keyed by the raw opcode byte.
var opCodeNames = map[OpCode]string{
	OpCPDOWNSP:   "CPDOWNSP",
	OpRSADD:      "RSADD",
	OpCPTOPSP:    "CPTOPSP",
	OpCONST:      "CONST",
	OpACTION:     "ACTION",
	OpLOGAND:     "LOGAND",
	OpLOGOR:      "LOGOR",
	OpINCOR:      "INCOR",
	OpEXCOR:      "EXCOR",
	OpBOOLAND:    "BOOLAND",
	OpEQUAL:      "EQUAL",
	OpNEQUAL:     "NEQUAL",
	OpGEQ:        "GEQ",
	OpGT:         "GT",
	OpLT:         "LT",
	OpLEQ:        "LEQ",
	OpSHLEFT:     "SHLEFT",
	OpSHRIGHT:    "SHRIGHT",
	OpUSHRIGHT:   "USHRIGHT",
	OpADD:        "ADD",
	OpSUB:        "SUB",
	OpMUL:        "MUL",
	OpDIV:        "DIV",
	OpMOD:        "MOD",
	OpNEG:        "NEG",
	OpCOMP:       "COMP",
	OpMOVSP:      "MOVSP",
	OpJMP:        "JMP",
	OpJSR:        "JSR",
	OpJZ:         "JZ",
	OpRETN:       "RETN",
	OpDESTRUCT:   "DESTRUCT",
	OpNOT:        "NOT",
	OpDECISP:     "DECISP",
	OpINCISP:     "INCISP",
	OpJNZ:        "JNZ",
	OpCPDOWNBP:   "CPDOWNBP",
	OpCPTOPBP:    "CPTOPBP",
	OpDECIBP:     "DECIBP",
	OpINCIBP:     "INCIBP",
	OpSAVEBP:     "SAVEBP",
	OpRESTOREBP:  "RESTOREBP",
	OpSTORESTATE: "STORESTATE",
	OpNOP:        "NOP",
	OpNOP2:       "NOP2",
}

// String returns the mnemonic for op, or "UNKNOWN" for unknown opcodes.
func (op OpCode) String() string {
	if name, ok := opCodeNames[op]; ok {
		return name
	}
	return "UNKNOWN"
}

// TypeSuffix is the second instruction byte: an operand-type discriminator.
type TypeSuffix byte

const (
	TypeInt      TypeSuffix = 0x03
	TypeFloat    TypeSuffix = 0x04
	TypeString   TypeSuffix = 0x05
	TypeObject   TypeSuffix = 0x06
	TypeEffect   TypeSuffix = 0x10
	TypeEvent    TypeSuffix = 0x11
	TypeLocation TypeSuffix = 0x12
	TypeTalent   TypeSuffix = 0x13

	TypeII TypeSuffix = 0x20 // int, int
	TypeIF TypeSuffix = 0x21 // int, float
	TypeFI TypeSuffix = 0x22 // float, int
	TypeFF TypeSuffix = 0x23 // float, float
	TypeSS TypeSuffix = 0x24 // string, string
	TypeOO TypeSuffix = 0x25 // object, object

	TypeEffEff TypeSuffix = 0x30
	TypeEvtEvt TypeSuffix = 0x31
	TypeLocLoc TypeSuffix = 0x32
	TypeTalTal TypeSuffix = 0x33

	TypeFV TypeSuffix = 0x1A // float, vector
	TypeVF TypeSuffix = 0x1B // vector, float
	TypeVV TypeSuffix = 0x3A // vector, vector

	// TypeTT marks the EQUALTT/NEQUALTT structural (N-cell) comparison
	// forms, distinct from the two-cell II/FF/SS/OO forms.
	TypeTT TypeSuffix = 0x26
)

var typeSuffixNames = map[TypeSuffix]string{
	TypeInt:      "I",
	TypeFloat:    "F",
	TypeString:   "S",
	TypeObject:   "O",
	TypeEffect:   "Eff",
	TypeEvent:    "Evt",
	TypeLocation: "Loc",
	TypeTalent:   "Tal",
	TypeII:       "II",
	TypeIF:       "IF",
	TypeFI:       "FI",
	TypeFF:       "FF",
	TypeSS:       "SS",
	TypeOO:       "OO",
	TypeEffEff:   "EffEff",
	TypeEvtEvt:   "EvtEvt",
	TypeLocLoc:   "LocLoc",
	TypeTalTal:   "TalTal",
	TypeFV:       "FV",
	TypeVF:       "VF",
	TypeVV:       "VV",
	TypeTT:       "TT",
}

// String returns the mnemonic suffix for t, or "?" for unknown suffixes.
func (t TypeSuffix) String() string {
	if name, ok := typeSuffixNames[t]; ok {
		return name
	}
	return "?"
}
