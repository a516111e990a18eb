package assoc

import (
	"fmt"
	"net"
	"time"

	"github.com/jas88/sharpdicom/pkg/upperlayer/common"
	"github.com/jas88/sharpdicom/pkg/upperlayer/dimse"
	"github.com/jas88/sharpdicom/pkg/upperlayer/pdu"
)

// ImplementationClassUID and ImplementationVersionName identify this
// stack in the User Information item of every association it negotiates.
const (
	ImplementationClassUID    = "1.2.826.0.1.3680043.9.9999.1"
	ImplementationVersionName = "SHARPDICOM_1"
)

// SCU is one established outbound association.
type SCU struct {
	conn             net.Conn
	machine          *Machine
	opts             SCUOptions
	negotiatedMaxPDU uint32
	nextMessageID    uint16
	proposedByID     map[byte]ProposedContext
	acceptedByID     map[byte]pdu.PresentationContextAC
}

// Connect opens a TCP connection, negotiates an association over the
// given proposed presentation contexts, and returns an established SCU.
func Connect(opts SCUOptions, contexts []ProposedContext) (*SCU, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if len(contexts) == 0 {
		return nil, common.NewProtocolError("Connect requires at least one proposed presentation context")
	}

	m := NewMachine()
	if _, err := m.Fire(EvtAssociateRequest); err != nil {
		return nil, err
	}

	addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
	conn, err := net.DialTimeout("tcp", addr, opts.ConnectTimeout)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil, &common.TimeoutError{Timer: "connect", Detail: addr}
		}
		return nil, err
	}

	if _, err := m.Fire(EvtTransportConnConfirm); err != nil {
		conn.Close()
		return nil, err
	}

	scu := &SCU{
		conn:         conn,
		machine:      m,
		opts:         opts,
		proposedByID: make(map[byte]ProposedContext, len(contexts)),
		acceptedByID: make(map[byte]pdu.PresentationContextAC),
		nextMessageID: 1,
	}

	rq := pdu.AssociateRQ{
		CalledAETitle:  opts.CalledAE,
		CallingAETitle: opts.CallingAE,
		UserInformation: pdu.UserInformation{
			MaxPDULength:              opts.maxPDU(),
			ImplementationClassUID:    ImplementationClassUID,
			ImplementationVersionName: ImplementationVersionName,
		},
	}
	for _, c := range contexts {
		scu.proposedByID[c.ID] = c
		rq.PresentationContexts = append(rq.PresentationContexts, pdu.PresentationContextRQ{
			ID: c.ID, AbstractSyntax: c.AbstractSyntax, TransferSyntaxes: c.TransferSyntaxes,
		})
	}

	if err := pdu.WritePDU(conn, pdu.TypeAssociateRQ, pdu.MarshalAssociateRQ(rq)); err != nil {
		conn.Close()
		return nil, err
	}

	if err := conn.SetReadDeadline(time.Now().Add(opts.AssociationTimeout)); err != nil {
		conn.Close()
		return nil, err
	}
	pduType, body, err := pdu.ReadBody(conn, 0)
	if err != nil {
		conn.Close()
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			m.Fire(EvtARTIMTimeout)
			return nil, &common.TimeoutError{Timer: "ARTIM", Detail: "awaiting A-ASSOCIATE-AC/RJ"}
		}
		return nil, err
	}
	_ = conn.SetReadDeadline(time.Time{})

	switch pduType {
	case pdu.TypeAssociateAC:
		ac, err := pdu.UnmarshalAssociateAC(body)
		if err != nil {
			conn.Close()
			return nil, err
		}
		if _, err := m.Fire(EvtAssociateACReceived); err != nil {
			conn.Close()
			return nil, err
		}
		for _, pc := range ac.PresentationContexts {
			scu.acceptedByID[pc.ID] = pc
		}
		scu.negotiatedMaxPDU = opts.maxPDU()
		if ac.UserInformation.MaxPDULength > 0 && ac.UserInformation.MaxPDULength < scu.negotiatedMaxPDU {
			scu.negotiatedMaxPDU = ac.UserInformation.MaxPDULength
		}
		return scu, nil

	case pdu.TypeAssociateRJ:
		rj, err := pdu.UnmarshalAssociateRJ(body)
		if err != nil {
			conn.Close()
			return nil, err
		}
		m.Fire(EvtAssociateRJReceived)
		conn.Close()
		return nil, &common.AssociationError{Result: rj.Result, Source: rj.Source, Reason: rj.Reason, Msg: "peer rejected association"}

	default:
		conn.Close()
		return nil, common.NewProtocolError("unexpected PDU type 0x%02x awaiting A-ASSOCIATE-AC/RJ", pduType)
	}
}

// contextForAbstractSyntax finds the accepted presentation context whose
// proposed abstract syntax matches uid.
func (s *SCU) contextForAbstractSyntax(uid string) (byte, string, error) {
	for id, pc := range s.acceptedByID {
		if pc.Result != pdu.ResultAcceptance {
			continue
		}
		if proposed, ok := s.proposedByID[id]; ok && proposed.AbstractSyntax == uid {
			return id, pc.TransferSyntax, nil
		}
	}
	return 0, "", common.NewProtocolError("no accepted presentation context for abstract syntax %s", uid)
}

func (s *SCU) sendCommand(contextID byte, cs *dimse.CommandSet) error {
	payload := dimse.EncodeCommandSet(cs)
	pdvs := dimse.FragmentPDVs(contextID, true, payload, s.negotiatedMaxPDU)
	if _, err := s.machine.Fire(EvtPDataRequest); err != nil {
		return err
	}
	return pdu.WritePDU(s.conn, pdu.TypePDataTF, pdu.MarshalPDataTF(pdvs))
}

func (s *SCU) readCommandResponse(contextID byte, timeout time.Duration) (*dimse.CommandSet, error) {
	if err := s.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, err
	}
	defer s.conn.SetReadDeadline(time.Time{})

	reasm := dimse.NewReassembler(contextID)
	for {
		pduType, body, err := pdu.ReadBody(s.conn, s.negotiatedMaxPDU)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				return nil, &common.TimeoutError{Timer: "DIMSE", Detail: "awaiting response"}
			}
			return nil, err
		}
		switch pduType {
		case pdu.TypePDataTF:
			pdvs, err := pdu.UnmarshalPDataTF(body)
			if err != nil {
				return nil, err
			}
			for _, p := range pdvs {
				if !p.IsCommand {
					continue
				}
				if complete, done := reasm.AddCommand(p); done {
					return dimse.DecodeCommandSet(complete)
				}
			}
		case pdu.TypeAbort:
			a, _ := pdu.UnmarshalAbort(body)
			s.machine.Fire(EvtAbortReceived)
			return nil, &common.AbortError{Source: a.Source, Reason: a.Reason}
		default:
			return nil, common.NewProtocolError("unexpected PDU type 0x%02x awaiting DIMSE response", pduType)
		}
	}
}

// CEcho issues one C-ECHO request over the Verification presentation
// context and returns the status the SCP reported.
func (s *SCU) CEcho() (uint16, error) {
	contextID, _, err := s.contextForAbstractSyntax(dimse.VerificationSOPClass)
	if err != nil {
		return 0, err
	}
	messageID := s.nextMessageID
	s.nextMessageID++

	if err := s.sendCommand(contextID, dimse.NewCEchoRequest(messageID)); err != nil {
		return 0, err
	}
	cs, err := s.readCommandResponse(contextID, s.opts.DIMSETimeout)
	if err != nil {
		return 0, err
	}
	_, status, err := dimse.CEchoResponseStatus(cs)
	return status, err
}

// CStore sends a dataset under sopClassUID/sopInstanceUID over the
// presentation context negotiated for that abstract syntax, fragmenting
// command and dataset into separate PDV streams, and returns the status
// the SCP reported.
func (s *SCU) CStore(sopClassUID, sopInstanceUID string, dataset []byte) (uint16, error) {
	contextID, _, err := s.contextForAbstractSyntax(sopClassUID)
	if err != nil {
		return 0, err
	}
	messageID := s.nextMessageID
	s.nextMessageID++

	const priorityMedium = 0x0000
	if err := s.sendCommand(contextID, dimse.NewCStoreRequest(messageID, priorityMedium, sopClassUID, sopInstanceUID)); err != nil {
		return 0, err
	}

	pdvs := dimse.FragmentPDVs(contextID, false, dataset, s.negotiatedMaxPDU)
	if _, err := s.machine.Fire(EvtPDataRequest); err != nil {
		return 0, err
	}
	if err := pdu.WritePDU(s.conn, pdu.TypePDataTF, pdu.MarshalPDataTF(pdvs)); err != nil {
		return 0, err
	}

	cs, err := s.readCommandResponse(contextID, s.opts.DIMSETimeout)
	if err != nil {
		return 0, err
	}
	_, status, err := dimse.CStoreResponseStatus(cs)
	return status, err
}

// Release issues A-RELEASE.request and waits for A-RELEASE-RP.
func (s *SCU) Release() error {
	if _, err := s.machine.Fire(EvtReleaseRequest); err != nil {
		return err
	}
	if err := pdu.WritePDU(s.conn, pdu.TypeReleaseRQ, pdu.MarshalReleaseRQ()); err != nil {
		return err
	}
	if err := s.conn.SetReadDeadline(time.Now().Add(s.opts.AssociationTimeout)); err != nil {
		return err
	}
	defer s.conn.SetReadDeadline(time.Time{})

	pduType, _, err := pdu.ReadBody(s.conn, s.negotiatedMaxPDU)
	if err != nil {
		s.conn.Close()
		return err
	}
	if pduType != pdu.TypeReleaseRP {
		s.conn.Close()
		return common.NewProtocolError("expected A-RELEASE-RP, got PDU type 0x%02x", pduType)
	}
	s.machine.Fire(EvtReleaseRPReceived)
	return s.conn.Close()
}

// Abort sends A-ABORT and closes the connection immediately.
func (s *SCU) Abort(source, reason byte) error {
	s.machine.Fire(EvtAbortRequest)
	_ = pdu.WritePDU(s.conn, pdu.TypeAbort, pdu.MarshalAbort(pdu.Abort{Source: source, Reason: reason}))
	return s.conn.Close()
}
