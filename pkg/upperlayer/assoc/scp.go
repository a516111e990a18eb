package assoc

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/jas88/sharpdicom/pkg/upperlayer/common"
	"github.com/jas88/sharpdicom/pkg/upperlayer/dimse"
	"github.com/jas88/sharpdicom/pkg/upperlayer/pdu"
)

// SCP accepts inbound associations and services C-ECHO/C-STORE requests
// against caller-supplied handlers.
type SCP struct {
	opts     SCPOptions
	logger   *slog.Logger
	listener net.Listener
	gate     *semaphore.Weighted
	wg       sync.WaitGroup
	stopping chan struct{}
	stopOnce sync.Once
}

// NewSCP returns an SCP bound to opts; Start must be called to begin
// accepting connections.
func NewSCP(opts SCPOptions, logger *slog.Logger) (*SCP, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SCP{
		opts:     opts,
		logger:   logger,
		gate:     semaphore.NewWeighted(int64(opts.maxConcurrent())),
		stopping: make(chan struct{}),
	}, nil
}

// Start binds the listening socket and spawns the accept loop.
func (s *SCP) Start() error {
	addr := fmt.Sprintf("%s:%d", s.opts.BindAddress, s.opts.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("dicom: SCP listen on %s: %w", addr, err)
	}
	s.listener = ln
	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// StopAsync closes the listener and waits up to the configured shutdown
// timeout for in-flight associations to finish, or ctx's own deadline,
// whichever is sooner.
func (s *SCP) StopAsync(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stopping) })
	if s.listener != nil {
		s.listener.Close()
	}

	done := make(chan struct{})
	go func() { s.wg.Wait(); close(done) }()

	timeout := time.NewTimer(s.opts.shutdownTimeout())
	defer timeout.Stop()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timeout.C:
		return &common.TimeoutError{Timer: "shutdown", Detail: "waiting for in-flight associations"}
	}
}

func (s *SCP) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.stopping:
				return
			default:
				s.logger.Warn("accept failed", "error", err)
				return
			}
		}
		if !s.gate.TryAcquire(1) {
			conn.Close()
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.gate.Release(1)
			s.handleConn(conn)
		}()
	}
}

func (s *SCP) handleConn(conn net.Conn) {
	defer conn.Close()
	m := NewMachine()
	if _, err := m.Fire(EvtTransportConnIndication); err != nil {
		return
	}

	if err := conn.SetReadDeadline(time.Now().Add(s.opts.artimTimeout())); err != nil {
		return
	}
	pduType, body, err := pdu.ReadBody(conn, 0)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			m.Fire(EvtARTIMTimeout)
			return
		}
		m.Fire(EvtInvalidPDU)
		return
	}
	if pduType != pdu.TypeAssociateRQ {
		m.Fire(EvtInvalidPDU)
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	rq, err := pdu.UnmarshalAssociateRQ(body)
	if err != nil {
		m.Fire(EvtInvalidPDU)
		return
	}
	if _, err := m.Fire(EvtAssociateRQReceived); err != nil {
		return
	}

	decision := s.opts.AcceptanceHandler(context.Background(), AssociateRequest{
		CallingAE:          rq.CallingAETitle,
		CalledAE:           rq.CalledAETitle,
		ProposedContexts:   rq.PresentationContexts,
		RemoteMaxPDULength: rq.UserInformation.MaxPDULength,
	})

	if !decision.Accept {
		m.Fire(EvtAssociateResponseReject)
		rj := pdu.AssociateRJ{Result: decision.Result, Source: decision.Source, Reason: decision.Reason}
		_ = pdu.WritePDU(conn, pdu.TypeAssociateRJ, pdu.MarshalAssociateRJ(rj))
		return
	}

	m.Fire(EvtAssociateResponseAccept)
	ac := pdu.AssociateAC{
		CalledAETitle:        rq.CalledAETitle,
		CallingAETitle:       rq.CallingAETitle,
		PresentationContexts: decision.Contexts,
		UserInformation: pdu.UserInformation{
			MaxPDULength:              s.opts.maxPDU(),
			ImplementationClassUID:    ImplementationClassUID,
			ImplementationVersionName: ImplementationVersionName,
		},
	}
	if err := pdu.WritePDU(conn, pdu.TypeAssociateAC, pdu.MarshalAssociateAC(ac)); err != nil {
		return
	}

	negotiatedMaxPDU := s.opts.maxPDU()
	if rq.UserInformation.MaxPDULength > 0 && rq.UserInformation.MaxPDULength < negotiatedMaxPDU {
		negotiatedMaxPDU = rq.UserInformation.MaxPDULength
	}

	acceptedContexts := make(map[byte]bool, len(decision.Contexts))
	for _, pc := range decision.Contexts {
		if pc.Result == pdu.ResultAcceptance {
			acceptedContexts[pc.ID] = true
		}
	}

	s.dimseLoop(conn, m, negotiatedMaxPDU, acceptedContexts)
}

func (s *SCP) dimseLoop(conn net.Conn, m *Machine, maxPDU uint32, acceptedContexts map[byte]bool) {
	reassemblers := make(map[byte]*dimse.Reassembler)

	for {
		pduType, body, err := pdu.ReadBody(conn, maxPDU)
		if err != nil {
			return
		}

		switch pduType {
		case pdu.TypePDataTF:
			if _, err := m.Fire(EvtPDataReceived); err != nil {
				s.abort(conn, m)
				return
			}
			pdvs, err := pdu.UnmarshalPDataTF(body)
			if err != nil {
				s.abort(conn, m)
				return
			}
			for _, p := range pdvs {
				if !acceptedContexts[p.ContextID] {
					s.logger.Warn("PDV references unaccepted presentation context", "context_id", p.ContextID)
					s.abort(conn, m)
					return
				}
				reasm, ok := reassemblers[p.ContextID]
				if !ok {
					reasm = dimse.NewReassembler(p.ContextID)
					reassemblers[p.ContextID] = reasm
				}
				if p.IsCommand {
					if complete, done := reasm.AddCommand(p); done {
						s.dispatchCommand(conn, p.ContextID, complete, reasm, maxPDU)
					}
				} else {
					reasm.AddData(p)
				}
			}

		case pdu.TypeReleaseRQ:
			m.Fire(EvtReleaseRQReceived)
			m.Fire(EvtReleaseResponse)
			_ = pdu.WritePDU(conn, pdu.TypeReleaseRP, pdu.MarshalReleaseRP())
			return

		case pdu.TypeAbort:
			m.Fire(EvtAbortReceived)
			return

		default:
			s.abort(conn, m)
			return
		}
	}
}

func (s *SCP) abort(conn net.Conn, m *Machine) {
	m.Fire(EvtInvalidPDU)
	_ = pdu.WritePDU(conn, pdu.TypeAbort, pdu.MarshalAbort(pdu.Abort{Source: pdu.AbortSourceServiceProvider, Reason: 0x00}))
}

func (s *SCP) dispatchCommand(conn net.Conn, contextID byte, commandBytes []byte, reasm *dimse.Reassembler, maxPDU uint32) {
	cs, err := dimse.DecodeCommandSet(commandBytes)
	if err != nil {
		s.logger.Warn("malformed command set", "error", err)
		return
	}
	field, _ := cs.US(dimse.TagCommandField)

	switch field {
	case dimse.CommandCEchoRQ:
		messageID, _ := cs.US(dimse.TagMessageID)
		status := common.StatusSuccess
		if s.opts.EchoHandler != nil {
			status = s.opts.EchoHandler(context.Background(), messageID)
		}
		s.sendResponse(conn, contextID, dimse.NewCEchoResponse(messageID, status), maxPDU)

	case dimse.CommandCStoreRQ:
		messageID, _ := cs.US(dimse.TagMessageID)
		sopClass, _ := cs.UI(dimse.TagAffectedSOPClassUID)
		sopInstance, _ := cs.UI(dimse.TagAffectedSOPInstanceUID)
		var status uint16 = common.StatusNoSuchSOPClass
		if s.opts.StoreHandler != nil {
			status = s.opts.StoreHandler(context.Background(), StoreRequest{
				AffectedSOPClassUID:    sopClass,
				AffectedSOPInstanceUID: sopInstance,
				Dataset:                reasm.DataBytes(),
			})
		}
		s.sendResponse(conn, contextID, dimse.NewCStoreResponse(messageID, status, sopClass, sopInstance), maxPDU)

	default:
		s.logger.Warn("unhandled command field", "field", fmt.Sprintf("0x%04x", field))
	}
}

func (s *SCP) sendResponse(conn net.Conn, contextID byte, cs *dimse.CommandSet, maxPDU uint32) {
	payload := dimse.EncodeCommandSet(cs)
	pdvs := dimse.FragmentPDVs(contextID, true, payload, maxPDU)
	if err := pdu.WritePDU(conn, pdu.TypePDataTF, pdu.MarshalPDataTF(pdvs)); err != nil {
		s.logger.Warn("failed to send DIMSE response", "error", err)
	}
}
