package assoc

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/jas88/sharpdicom/pkg/upperlayer/common"
	"github.com/jas88/sharpdicom/pkg/upperlayer/dimse"
	"github.com/jas88/sharpdicom/pkg/upperlayer/pdu"
)

func acceptEverything(ctx context.Context, req AssociateRequest) AcceptanceDecision {
	var contexts []pdu.PresentationContextAC
	for _, pc := range req.ProposedContexts {
		ts := ""
		if len(pc.TransferSyntaxes) > 0 {
			ts = pc.TransferSyntaxes[0]
		}
		contexts = append(contexts, pdu.PresentationContextAC{ID: pc.ID, Result: pdu.ResultAcceptance, TransferSyntax: ts})
	}
	return AcceptanceDecision{Accept: true, Contexts: contexts}
}

func startTestSCP(t *testing.T, opts SCPOptions) (*SCP, int) {
	t.Helper()
	opts.BindAddress = "127.0.0.1"
	opts.Port = 0
	scp, err := NewSCP(opts, nil)
	if err != nil {
		t.Fatalf("NewSCP: %v", err)
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	scp.listener = ln
	scp.wg.Add(1)
	go scp.acceptLoop()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		scp.StopAsync(ctx)
	})
	return scp, ln.Addr().(*net.TCPAddr).Port
}

// S4: SCU connects, negotiates Verification with ImplicitVRLittleEndian,
// issues one C-ECHO, and reads back Status 0x0000.
func TestScenarioS4CEchoRoundTrip(t *testing.T) {
	_, port := startTestSCP(t, SCPOptions{AETitle: "STORESCP", AcceptanceHandler: acceptEverything})

	scu, err := Connect(SCUOptions{
		Host: "127.0.0.1", Port: port,
		CalledAE: "STORESCP", CallingAE: "STORESCU",
		ConnectTimeout: 2 * time.Second, AssociationTimeout: 2 * time.Second, DIMSETimeout: 2 * time.Second,
	}, []ProposedContext{
		{ID: 1, AbstractSyntax: dimse.VerificationSOPClass, TransferSyntaxes: []string{"1.2.840.10008.1.2"}},
	})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer scu.Release()

	status, err := scu.CEcho()
	if err != nil {
		t.Fatalf("c-echo: %v", err)
	}
	if status != common.StatusSuccess {
		t.Fatalf("expected status 0x0000, got 0x%04x", status)
	}
}

// S5: SCU connects to a listener that never responds; connect-timeout
// fires and the operation fails with a timeout error naming host:port.
func TestScenarioS5ConnectTimeout(t *testing.T) {
	// 192.0.2.0/24 (TEST-NET-1, RFC 5737) is reserved for documentation and
	// never routed; dialing it reliably hangs until the connect timeout.
	host := "192.0.2.1"
	_, err := Connect(SCUOptions{
		Host: host, Port: 104,
		CalledAE: "STORESCP", CallingAE: "STORESCU",
		ConnectTimeout: 200 * time.Millisecond, AssociationTimeout: 2 * time.Second, DIMSETimeout: 2 * time.Second,
	}, []ProposedContext{
		{ID: 1, AbstractSyntax: dimse.VerificationSOPClass, TransferSyntaxes: []string{"1.2.840.10008.1.2"}},
	})
	if err == nil {
		t.Fatal("expected a timeout error")
	}
	var te *common.TimeoutError
	if !asTimeoutError(err, &te) {
		t.Fatalf("expected a *common.TimeoutError, got %T: %v", err, err)
	}
	if te.Timer != "connect" {
		t.Fatalf("expected the connect timer to have fired, got %q", te.Timer)
	}
}

func asTimeoutError(err error, target **common.TimeoutError) bool {
	if te, ok := err.(*common.TimeoutError); ok {
		*target = te
		return true
	}
	return false
}

// S6: an SCP receiving a P-DATA-TF whose first PDV references a
// not-accepted context must abort with source=service-provider and close
// the socket.
func TestScenarioS6UnacceptedContextAborts(t *testing.T) {
	_, port := startTestSCP(t, SCPOptions{AETitle: "STORESCP", AcceptanceHandler: acceptEverything})

	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(port))
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	rq := pdu.AssociateRQ{
		CalledAETitle:  "STORESCP",
		CallingAETitle: "STORESCU",
		PresentationContexts: []pdu.PresentationContextRQ{
			{ID: 1, AbstractSyntax: dimse.VerificationSOPClass, TransferSyntaxes: []string{"1.2.840.10008.1.2"}},
		},
		UserInformation: pdu.UserInformation{MaxPDULength: 16384, ImplementationClassUID: "1.2.3.4"},
	}
	if err := pdu.WritePDU(conn, pdu.TypeAssociateRQ, pdu.MarshalAssociateRQ(rq)); err != nil {
		t.Fatalf("write RQ: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	pduType, _, err := pdu.ReadBody(conn, 0)
	if err != nil || pduType != pdu.TypeAssociateAC {
		t.Fatalf("expected A-ASSOCIATE-AC, got type=%v err=%v", pduType, err)
	}

	// Send a P-DATA-TF referencing context id 99, which was never proposed.
	pdvs := []pdu.PDV{{ContextID: 99, IsCommand: true, IsLastFragment: true, Data: []byte{0x01}}}
	if err := pdu.WritePDU(conn, pdu.TypePDataTF, pdu.MarshalPDataTF(pdvs)); err != nil {
		t.Fatalf("write P-DATA-TF: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	pduType, body, err := pdu.ReadBody(conn, 0)
	if err != nil {
		t.Fatalf("expected an A-ABORT, got error: %v", err)
	}
	if pduType != pdu.TypeAbort {
		t.Fatalf("expected A-ABORT PDU, got type 0x%02x", pduType)
	}
	abort, err := pdu.UnmarshalAbort(body)
	if err != nil {
		t.Fatalf("unmarshal abort: %v", err)
	}
	if abort.Source != pdu.AbortSourceServiceProvider {
		t.Fatalf("expected source=service-provider, got %v", abort.Source)
	}
}
