package dimse

import "github.com/jas88/sharpdicom/pkg/upperlayer/pdu"

// pduOverhead is the PDU header plus single-PDV-item overhead: 6-byte PDU
// header, 4-byte PDV length prefix, 2-byte PDV control bytes
// (context id + message-control-header).
const pduOverhead = 6 + 4 + 2

// FragmentPDVs splits payload into one or more PDVs, each small enough
// that header + PDV fits within maxPDU. is-last-fragment is set only on
// the final fragment; command and data payloads are never mixed in one
// call, matching the "never mix command and data fragments in a single
// PDV" rule.
func FragmentPDVs(contextID byte, isCommand bool, payload []byte, maxPDU uint32) []pdu.PDV {
	chunkSize := int(maxPDU) - pduOverhead
	if chunkSize <= 0 {
		chunkSize = len(payload)
	}
	if len(payload) == 0 {
		return []pdu.PDV{{ContextID: contextID, IsCommand: isCommand, IsLastFragment: true, Data: nil}}
	}

	var pdvs []pdu.PDV
	for offset := 0; offset < len(payload); offset += chunkSize {
		end := offset + chunkSize
		if end > len(payload) {
			end = len(payload)
		}
		pdvs = append(pdvs, pdu.PDV{
			ContextID:      contextID,
			IsCommand:      isCommand,
			IsLastFragment: end == len(payload),
			Data:           payload[offset:end],
		})
	}
	return pdvs
}

// Reassembler accumulates PDV fragments per {context, role} until an
// is-last-fragment PDV arrives.
type Reassembler struct {
	command []byte
	data    []byte
	context byte
	haveCmd bool
	haveData bool
}

// NewReassembler returns a Reassembler for a single DIMSE exchange on
// presContextID.
func NewReassembler(presContextID byte) *Reassembler {
	return &Reassembler{context: presContextID}
}

// AddCommand accumulates a command PDV fragment, returning the completed
// bytes once the last fragment has been added.
func (r *Reassembler) AddCommand(pdv pdu.PDV) (complete []byte, done bool) {
	r.command = append(r.command, pdv.Data...)
	if pdv.IsLastFragment {
		r.haveCmd = true
		return r.command, true
	}
	return nil, false
}

// AddData accumulates a dataset PDV fragment, returning the completed
// bytes once the last fragment has been added.
func (r *Reassembler) AddData(pdv pdu.PDV) (complete []byte, done bool) {
	r.data = append(r.data, pdv.Data...)
	if pdv.IsLastFragment {
		r.haveData = true
		return r.data, true
	}
	return nil, false
}

// DataBytes returns whatever dataset bytes have been accumulated so far,
// regardless of whether the last fragment has arrived.
func (r *Reassembler) DataBytes() []byte { return r.data }
