package dimse

import "github.com/jas88/sharpdicom/pkg/upperlayer/common"

// CStoreRequest is a decoded C-STORE-RQ: command-set fields plus the
// dataset bytes assembled from its data PDVs.
type CStoreRequest struct {
	MessageID            uint16
	Priority              uint16
	AffectedSOPClassUID   string
	AffectedSOPInstanceUID string
	Dataset               []byte
}

// NewCStoreRequest builds a C-STORE-RQ command set. CommandDataSetType is
// set to a value other than NoDataSet, signalling that a dataset follows.
func NewCStoreRequest(messageID, priority uint16, sopClassUID, sopInstanceUID string) *CommandSet {
	cs := NewCommandSet()
	cs.SetUI(TagAffectedSOPClassUID, sopClassUID)
	cs.SetUS(TagCommandField, CommandCStoreRQ)
	cs.SetUS(TagMessageID, messageID)
	cs.SetUS(TagPriority, priority)
	cs.SetUI(TagAffectedSOPInstanceUID, sopInstanceUID)
	cs.SetUS(TagCommandDataSetType, 0x0001)
	return cs
}

// ParseCStoreRequest extracts a CStoreRequest's command-set fields; the
// caller supplies the dataset bytes separately (assembled from PDVs).
func ParseCStoreRequest(cs *CommandSet, dataset []byte) (CStoreRequest, error) {
	field, ok := cs.US(TagCommandField)
	if !ok || field != CommandCStoreRQ {
		return CStoreRequest{}, common.NewProtocolError("expected C-STORE-RQ command field, got %v (present=%v)", field, ok)
	}
	messageID, _ := cs.US(TagMessageID)
	priority, _ := cs.US(TagPriority)
	sopClass, _ := cs.UI(TagAffectedSOPClassUID)
	sopInstance, _ := cs.UI(TagAffectedSOPInstanceUID)
	return CStoreRequest{
		MessageID:              messageID,
		Priority:               priority,
		AffectedSOPClassUID:    sopClass,
		AffectedSOPInstanceUID: sopInstance,
		Dataset:                dataset,
	}, nil
}

// NewCStoreResponse builds a C-STORE-RSP command set.
func NewCStoreResponse(messageID uint16, status uint16, sopClassUID, sopInstanceUID string) *CommandSet {
	cs := NewCommandSet()
	cs.SetUS(TagCommandField, CommandCStoreRSP)
	cs.SetUS(TagMessageIDBeingRespondedTo, messageID)
	cs.SetUS(TagCommandDataSetType, NoDataSet)
	cs.SetUS(TagStatus, status)
	cs.SetUI(TagAffectedSOPClassUID, sopClassUID)
	cs.SetUI(TagAffectedSOPInstanceUID, sopInstanceUID)
	return cs
}

// CStoreResponseStatus extracts the status and responding message ID from
// a decoded C-STORE-RSP command set.
func CStoreResponseStatus(cs *CommandSet) (messageID uint16, status uint16, err error) {
	field, ok := cs.US(TagCommandField)
	if !ok || field != CommandCStoreRSP {
		return 0, 0, common.NewProtocolError("expected C-STORE-RSP command field, got %v (present=%v)", field, ok)
	}
	messageID, _ = cs.US(TagMessageIDBeingRespondedTo)
	status, _ = cs.US(TagStatus)
	return messageID, status, nil
}
