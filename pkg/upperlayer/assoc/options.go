package assoc

import (
	"context"
	"time"

	"github.com/jas88/sharpdicom/pkg/upperlayer/common"
	"github.com/jas88/sharpdicom/pkg/upperlayer/pdu"
)

// ProposedContext is one presentation context an SCU proposes at connect
// time.
type ProposedContext struct {
	ID               byte
	AbstractSyntax   string
	TransferSyntaxes []string
}

// SCUOptions configures an outbound association.
type SCUOptions struct {
	Host               string
	Port               int
	CalledAE           string
	CallingAE          string
	ConnectTimeout     time.Duration
	AssociationTimeout time.Duration // bounds the ARTIM wait for AC/RJ
	DIMSETimeout       time.Duration
	MaxPDULength       uint32
}

func (o SCUOptions) validate() error {
	if o.Port < 1 || o.Port > 65535 {
		return common.NewProtocolError("SCU port %d out of range 1..65535", o.Port)
	}
	if err := common.ValidateAETitle(o.CalledAE); err != nil {
		return err
	}
	if err := common.ValidateAETitle(o.CallingAE); err != nil {
		return err
	}
	if o.ConnectTimeout <= 0 || o.AssociationTimeout <= 0 || o.DIMSETimeout <= 0 {
		return common.NewProtocolError("SCU timeouts must all be > 0")
	}
	if o.MaxPDULength != 0 && o.MaxPDULength < common.MinMaxPDULength {
		return common.NewProtocolError("SCU max PDU length %d below minimum %d", o.MaxPDULength, common.MinMaxPDULength)
	}
	return nil
}

func (o SCUOptions) maxPDU() uint32 {
	if o.MaxPDULength == 0 {
		return common.DefaultMaxPDULength
	}
	return o.MaxPDULength
}

// AssociateRequest is what an SCP's acceptance handler inspects to decide
// whether to accept an incoming association.
type AssociateRequest struct {
	CallingAE            string
	CalledAE             string
	ProposedContexts     []pdu.PresentationContextRQ
	RemoteMaxPDULength   uint32
}

// AcceptanceDecision is what an SCP's acceptance handler returns.
type AcceptanceDecision struct {
	Accept    bool
	Contexts  []pdu.PresentationContextAC // only consulted when Accept is true
	Result    common.RejectResult
	Source    common.AssociationRejectSource
	Reason    common.AssociationRejectReason
}

// AcceptanceHandler decides whether to accept a proposed association.
type AcceptanceHandler func(ctx context.Context, req AssociateRequest) AcceptanceDecision

// EchoHandler services a C-ECHO request, returning the status to report.
// A nil handler yields StatusSuccess for every request.
type EchoHandler func(ctx context.Context, messageID uint16) uint16

// StoreHandler services a C-STORE request. A nil handler yields
// StatusNoSuchSOPClass (0xA900), per spec.
type StoreHandler func(ctx context.Context, req StoreRequest) uint16

// StoreRequest is the assembled C-STORE request passed to a StoreHandler.
type StoreRequest struct {
	AffectedSOPClassUID    string
	AffectedSOPInstanceUID string
	Dataset                []byte
}

// SCPOptions configures a listening association endpoint.
type SCPOptions struct {
	BindAddress               string
	Port                      int
	AETitle                   string
	MaxConcurrentAssociations int
	ARTIMTimeout              time.Duration
	ShutdownTimeout           time.Duration
	AcceptanceHandler         AcceptanceHandler
	EchoHandler               EchoHandler
	StoreHandler              StoreHandler
	MaxPDULength              uint32
}

func (o SCPOptions) validate() error {
	if o.Port < 1 || o.Port > 65535 {
		return common.NewProtocolError("SCP port %d out of range 1..65535", o.Port)
	}
	if err := common.ValidateAETitle(o.AETitle); err != nil {
		return err
	}
	if o.AcceptanceHandler == nil {
		return common.NewProtocolError("SCP requires an AcceptanceHandler")
	}
	return nil
}

func (o SCPOptions) maxConcurrent() int {
	if o.MaxConcurrentAssociations <= 0 {
		return 100
	}
	return o.MaxConcurrentAssociations
}

func (o SCPOptions) artimTimeout() time.Duration {
	if o.ARTIMTimeout <= 0 {
		return 30 * time.Second
	}
	return o.ARTIMTimeout
}

func (o SCPOptions) shutdownTimeout() time.Duration {
	if o.ShutdownTimeout <= 0 {
		return 30 * time.Second
	}
	return o.ShutdownTimeout
}

func (o SCPOptions) maxPDU() uint32 {
	if o.MaxPDULength == 0 {
		return common.DefaultMaxPDULength
	}
	return o.MaxPDULength
}
