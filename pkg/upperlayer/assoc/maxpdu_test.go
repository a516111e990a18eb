package assoc

import (
	"testing"
	"time"

	"github.com/jas88/sharpdicom/pkg/upperlayer/dimse"
)

// Property #9: for any advertised local L and remote R both >= 4096, the
// negotiated max-PDU equals min(L, R).
func TestMaxPDUNegotiation(t *testing.T) {
	cases := []struct{ local, remote, want uint32 }{
		{16384, 32768, 16384},
		{65536, 16384, 16384},
		{4096, 4096, 4096},
	}
	for _, c := range cases {
		_, port := startTestSCP(t, SCPOptions{
			AETitle:           "STORESCP",
			AcceptanceHandler: acceptEverything,
			MaxPDULength:      c.remote,
		})

		scu, err := Connect(SCUOptions{
			Host: "127.0.0.1", Port: port,
			CalledAE: "STORESCP", CallingAE: "STORESCU",
			ConnectTimeout: 2 * time.Second, AssociationTimeout: 2 * time.Second, DIMSETimeout: 2 * time.Second,
			MaxPDULength: c.local,
		}, []ProposedContext{
			{ID: 1, AbstractSyntax: dimse.VerificationSOPClass, TransferSyntaxes: []string{"1.2.840.10008.1.2"}},
		})
		if err != nil {
			t.Fatalf("local=%d remote=%d: connect: %v", c.local, c.remote, err)
		}
		if scu.negotiatedMaxPDU != c.want {
			t.Fatalf("local=%d remote=%d: negotiated=%d want=%d", c.local, c.remote, scu.negotiatedMaxPDU, c.want)
		}
		scu.Release()
	}
}
