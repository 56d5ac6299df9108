// Package input holds small, dependency-light helpers for assembling
// Bitcoin transaction inputs, outputs and scripts shared by the escrow and
// SPV-vault swap kinds.
package input

import (
	"fmt"

	"github.com/decred/dcrd/txscript/v4/stdaddr"
)

// PayToAddrScript returns the locking script paying addr.
func PayToAddrScript(addr stdaddr.Address) ([]byte, error) {
	version, script := addr.PaymentScript()
	if version != 0 {
		return nil, fmt.Errorf("incompatible script version %d", version)
	}

	return script, nil
}

// OpReturnMax1Byte is the largest payload that fits a single-byte OP_RETURN
// push (`6a len ...`); larger payloads need the OP_PUSHDATA1 form
// (`6a 4c len ...`).
const OpReturnMax1Byte = 75

// OpReturn is the opcode byte itself.
const OpReturn = 0x6a

// opPushData1 is OP_PUSHDATA1.
const opPushData1 = 0x4c

// BuildOpReturnScript encodes payload as an OP_RETURN output script,
// choosing the direct push form for payloads up to 75 bytes and the
// OP_PUSHDATA1 form above that.
func BuildOpReturnScript(payload []byte) ([]byte, error) {
	if len(payload) > 255 {
		return nil, fmt.Errorf("op_return payload too large: %d bytes", len(payload))
	}

	if len(payload) <= OpReturnMax1Byte {
		script := make([]byte, 0, len(payload)+2)
		script = append(script, OpReturn, byte(len(payload)))
		script = append(script, payload...)
		return script, nil
	}

	script := make([]byte, 0, len(payload)+3)
	script = append(script, OpReturn, opPushData1, byte(len(payload)))
	script = append(script, payload...)
	return script, nil
}

// ParseOpReturnScript is the inverse of BuildOpReturnScript: it validates
// the leading opcode bytes and returns the embedded payload.
func ParseOpReturnScript(script []byte) ([]byte, error) {
	if len(script) < 2 || script[0] != OpReturn {
		return nil, fmt.Errorf("not an op_return script")
	}

	if script[1] == opPushData1 {
		if len(script) < 3 {
			return nil, fmt.Errorf("truncated op_return pushdata1 script")
		}
		n := int(script[2])
		if len(script) != 3+n {
			return nil, fmt.Errorf("op_return length mismatch: declared %d, have %d", n, len(script)-3)
		}
		return script[3:], nil
	}

	n := int(script[1])
	if len(script) != 2+n {
		return nil, fmt.Errorf("op_return length mismatch: declared %d, have %d", n, len(script)-2)
	}
	return script[2:], nil
}
