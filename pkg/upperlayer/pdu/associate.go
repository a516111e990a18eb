package pdu

import (
	"encoding/binary"
	"fmt"

	"github.com/jas88/sharpdicom/pkg/upperlayer/common"
)

const associateFixedFieldsLength = 68

// ApplicationContextUID is the one application context this stack proposes
// and accepts.
const ApplicationContextUID = "1.2.840.10008.3.1.1.1"

// PresentationContextRQ is one proposed {id, abstract syntax, transfer
// syntax candidates} triple within an A-ASSOCIATE-RQ.
type PresentationContextRQ struct {
	ID               byte
	AbstractSyntax   string
	TransferSyntaxes []string
}

// PresentationContextAC is the negotiation outcome for one context within
// an A-ASSOCIATE-AC: Result == ResultAcceptance carries the single chosen
// TransferSyntax, anything else carries none.
type PresentationContextAC struct {
	ID             byte
	Result         byte
	TransferSyntax string
}

// UserInformation is the subset of the User Information item this stack
// negotiates: maximum PDU length plus implementation identification.
type UserInformation struct {
	MaxPDULength              uint32
	ImplementationClassUID    string
	ImplementationVersionName string
}

// AssociateRQ is a parsed/to-be-serialised A-ASSOCIATE-RQ PDU body.
type AssociateRQ struct {
	CalledAETitle        string
	CallingAETitle       string
	ApplicationContext   string
	PresentationContexts []PresentationContextRQ
	UserInformation      UserInformation
}

// AssociateAC is a parsed/to-be-serialised A-ASSOCIATE-AC PDU body.
type AssociateAC struct {
	CalledAETitle        string
	CallingAETitle       string
	ApplicationContext   string
	PresentationContexts []PresentationContextAC
	UserInformation      UserInformation
}

// AssociateRJ is a parsed/to-be-serialised A-ASSOCIATE-RJ PDU body.
type AssociateRJ struct {
	Result common.RejectResult
	Source common.AssociationRejectSource
	Reason common.AssociationRejectReason
}

func marshalFixedFields(called, calling string) []byte {
	buf := make([]byte, associateFixedFieldsLength)
	binary.BigEndian.PutUint16(buf[0:2], 0x0001)
	copy(buf[4:20], []byte(common.PadAETitle(called)))
	copy(buf[20:36], []byte(common.PadAETitle(calling)))
	return buf
}

func marshalUserInformation(ui UserInformation) []byte {
	var maxLenValue [4]byte
	binary.BigEndian.PutUint32(maxLenValue[:], ui.MaxPDULength)
	var data []byte
	data = marshalItem(data, ItemMaxLength, maxLenValue[:])
	data = marshalItem(data, ItemImplementationClassUID, []byte(ui.ImplementationClassUID))
	if ui.ImplementationVersionName != "" {
		data = marshalItem(data, ItemImplementationVersionName, []byte(ui.ImplementationVersionName))
	}
	return data
}

func parseUserInformation(value []byte) (UserInformation, error) {
	items, err := readItems(value)
	if err != nil {
		return UserInformation{}, err
	}
	var ui UserInformation
	for _, it := range items {
		switch it.Type {
		case ItemMaxLength:
			if len(it.Value) != 4 {
				return UserInformation{}, fmt.Errorf("dicom: maximum-length item has length %d, want 4", len(it.Value))
			}
			ui.MaxPDULength = binary.BigEndian.Uint32(it.Value)
		case ItemImplementationClassUID:
			ui.ImplementationClassUID = string(it.Value)
		case ItemImplementationVersionName:
			ui.ImplementationVersionName = string(it.Value)
		}
	}
	return ui, nil
}

// MarshalAssociateRQ serialises an AssociateRQ to its PDU body bytes.
func MarshalAssociateRQ(rq AssociateRQ) []byte {
	body := marshalFixedFields(rq.CalledAETitle, rq.CallingAETitle)

	appCtx := rq.ApplicationContext
	if appCtx == "" {
		appCtx = ApplicationContextUID
	}
	body = marshalItem(body, ItemApplicationContext, []byte(appCtx))

	for _, pc := range rq.PresentationContexts {
		var sub []byte
		sub = marshalItem(sub, ItemAbstractSyntax, []byte(pc.AbstractSyntax))
		for _, ts := range pc.TransferSyntaxes {
			sub = marshalItem(sub, ItemTransferSyntax, []byte(ts))
		}
		value := append([]byte{pc.ID, 0x00, 0x00, 0x00}, sub...)
		body = marshalItem(body, ItemPresentationContextRQ, value)
	}

	body = marshalItem(body, ItemUserInformation, marshalUserInformation(rq.UserInformation))
	return body
}

// UnmarshalAssociateRQ parses an A-ASSOCIATE-RQ PDU body.
func UnmarshalAssociateRQ(data []byte) (AssociateRQ, error) {
	if len(data) < associateFixedFieldsLength {
		return AssociateRQ{}, fmt.Errorf("dicom: A-ASSOCIATE-RQ body too short: %d bytes", len(data))
	}
	rq := AssociateRQ{
		CalledAETitle:  common.TrimAETitle(data[4:20]),
		CallingAETitle: common.TrimAETitle(data[20:36]),
	}

	items, err := readItems(data[associateFixedFieldsLength:])
	if err != nil {
		return AssociateRQ{}, err
	}
	for _, it := range items {
		switch it.Type {
		case ItemApplicationContext:
			rq.ApplicationContext = string(it.Value)
		case ItemPresentationContextRQ:
			pc, err := parsePresentationContextRQ(it.Value)
			if err != nil {
				return AssociateRQ{}, err
			}
			rq.PresentationContexts = append(rq.PresentationContexts, pc)
		case ItemUserInformation:
			ui, err := parseUserInformation(it.Value)
			if err != nil {
				return AssociateRQ{}, err
			}
			rq.UserInformation = ui
		}
	}
	return rq, nil
}

func parsePresentationContextRQ(data []byte) (PresentationContextRQ, error) {
	if len(data) < 4 {
		return PresentationContextRQ{}, fmt.Errorf("dicom: presentation context item too short: %d bytes", len(data))
	}
	pc := PresentationContextRQ{ID: data[0]}
	items, err := readItems(data[4:])
	if err != nil {
		return PresentationContextRQ{}, err
	}
	for _, it := range items {
		switch it.Type {
		case ItemAbstractSyntax:
			pc.AbstractSyntax = string(it.Value)
		case ItemTransferSyntax:
			pc.TransferSyntaxes = append(pc.TransferSyntaxes, string(it.Value))
		}
	}
	if pc.AbstractSyntax == "" {
		return PresentationContextRQ{}, fmt.Errorf("dicom: presentation context %d missing abstract syntax", pc.ID)
	}
	return pc, nil
}

// MarshalAssociateAC serialises an AssociateAC to its PDU body bytes.
func MarshalAssociateAC(ac AssociateAC) []byte {
	body := marshalFixedFields(ac.CalledAETitle, ac.CallingAETitle)

	appCtx := ac.ApplicationContext
	if appCtx == "" {
		appCtx = ApplicationContextUID
	}
	body = marshalItem(body, ItemApplicationContext, []byte(appCtx))

	for _, pc := range ac.PresentationContexts {
		var sub []byte
		if pc.Result == ResultAcceptance && pc.TransferSyntax != "" {
			sub = marshalItem(sub, ItemTransferSyntax, []byte(pc.TransferSyntax))
		}
		value := append([]byte{pc.ID, 0x00, pc.Result, 0x00}, sub...)
		body = marshalItem(body, ItemPresentationContextAC, value)
	}

	body = marshalItem(body, ItemUserInformation, marshalUserInformation(ac.UserInformation))
	return body
}

// UnmarshalAssociateAC parses an A-ASSOCIATE-AC PDU body.
func UnmarshalAssociateAC(data []byte) (AssociateAC, error) {
	if len(data) < associateFixedFieldsLength {
		return AssociateAC{}, fmt.Errorf("dicom: A-ASSOCIATE-AC body too short: %d bytes", len(data))
	}
	ac := AssociateAC{
		CalledAETitle:  common.TrimAETitle(data[4:20]),
		CallingAETitle: common.TrimAETitle(data[20:36]),
	}

	items, err := readItems(data[associateFixedFieldsLength:])
	if err != nil {
		return AssociateAC{}, err
	}
	for _, it := range items {
		switch it.Type {
		case ItemApplicationContext:
			ac.ApplicationContext = string(it.Value)
		case ItemPresentationContextAC:
			pc, err := parsePresentationContextAC(it.Value)
			if err != nil {
				return AssociateAC{}, err
			}
			ac.PresentationContexts = append(ac.PresentationContexts, pc)
		case ItemUserInformation:
			ui, err := parseUserInformation(it.Value)
			if err != nil {
				return AssociateAC{}, err
			}
			ac.UserInformation = ui
		}
	}
	return ac, nil
}

func parsePresentationContextAC(data []byte) (PresentationContextAC, error) {
	if len(data) < 4 {
		return PresentationContextAC{}, fmt.Errorf("dicom: presentation context (AC) item too short: %d bytes", len(data))
	}
	pc := PresentationContextAC{ID: data[0], Result: data[2]}
	items, err := readItems(data[4:])
	if err != nil {
		return PresentationContextAC{}, err
	}
	for _, it := range items {
		if it.Type == ItemTransferSyntax {
			pc.TransferSyntax = string(it.Value)
		}
	}
	return pc, nil
}

// MarshalAssociateRJ serialises an AssociateRJ to its 4-byte PDU body.
func MarshalAssociateRJ(rj AssociateRJ) []byte {
	return []byte{0x00, byte(rj.Result), byte(rj.Source), byte(rj.Reason)}
}

// UnmarshalAssociateRJ parses an A-ASSOCIATE-RJ PDU body.
func UnmarshalAssociateRJ(data []byte) (AssociateRJ, error) {
	if len(data) != 4 {
		return AssociateRJ{}, fmt.Errorf("dicom: A-ASSOCIATE-RJ body has length %d, want 4", len(data))
	}
	return AssociateRJ{
		Result: common.RejectResult(data[1]),
		Source: common.AssociationRejectSource(data[2]),
		Reason: common.AssociationRejectReason(data[3]),
	}, nil
}
