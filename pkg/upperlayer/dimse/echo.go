package dimse

import "github.com/jas88/sharpdicom/pkg/upperlayer/common"

// NewCEchoRequest builds a C-ECHO-RQ command set.
func NewCEchoRequest(messageID uint16) *CommandSet {
	cs := NewCommandSet()
	cs.SetUI(TagAffectedSOPClassUID, VerificationSOPClass)
	cs.SetUS(TagCommandField, CommandCEchoRQ)
	cs.SetUS(TagMessageID, messageID)
	cs.SetUS(TagCommandDataSetType, NoDataSet)
	return cs
}

// NewCEchoResponse builds a C-ECHO-RSP command set for the given request
// message ID and status.
func NewCEchoResponse(messageID uint16, status uint16) *CommandSet {
	cs := NewCommandSet()
	cs.SetUI(TagAffectedSOPClassUID, VerificationSOPClass)
	cs.SetUS(TagCommandField, CommandCEchoRSP)
	cs.SetUS(TagMessageIDBeingRespondedTo, messageID)
	cs.SetUS(TagCommandDataSetType, NoDataSet)
	cs.SetUS(TagStatus, status)
	return cs
}

// CEchoResponseStatus extracts the status and responding message ID from a
// decoded C-ECHO-RSP command set.
func CEchoResponseStatus(cs *CommandSet) (messageID uint16, status uint16, err error) {
	field, ok := cs.US(TagCommandField)
	if !ok || field != CommandCEchoRSP {
		return 0, 0, common.NewProtocolError("expected C-ECHO-RSP command field, got %v (present=%v)", field, ok)
	}
	messageID, _ = cs.US(TagMessageIDBeingRespondedTo)
	status, _ = cs.US(TagStatus)
	return messageID, status, nil
}
