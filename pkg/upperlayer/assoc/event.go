package assoc

// Event names a PS3.8 transition trigger: a local primitive request, a PDU
// arrival, a transport-layer notification, or a timer expiry.
type Event int

const (
	EvtAssociateRequest Event = iota + 1 // A-ASSOCIATE.request (SCU)
	EvtTransportConnIndication            // incoming TCP connection (SCP)
	EvtTransportConnConfirm                // outbound TCP connect succeeded (SCU)
	EvtAssociateRQReceived
	EvtAssociateACReceived
	EvtAssociateRJReceived
	EvtAssociateResponseAccept // local A-ASSOCIATE response: accept (SCP)
	EvtAssociateResponseReject // local A-ASSOCIATE response: reject (SCP)
	EvtPDataReceived
	EvtPDataRequest
	EvtReleaseRequest // A-RELEASE.request (local)
	EvtReleaseRQReceived
	EvtReleaseRPReceived
	EvtReleaseResponse // local A-RELEASE response (SCP)
	EvtAbortRequest    // A-ABORT.request (local)
	EvtAbortReceived
	EvtTransportClosed
	EvtARTIMTimeout
	EvtInvalidPDU
)

func (e Event) String() string {
	names := map[Event]string{
		EvtAssociateRequest:         "A-ASSOCIATE.request",
		EvtTransportConnIndication:  "Transport-Conn-Indication",
		EvtTransportConnConfirm:     "Transport-Conn-Confirm",
		EvtAssociateRQReceived:      "Associate-RQ-PDU",
		EvtAssociateACReceived:      "Associate-AC-PDU",
		EvtAssociateRJReceived:      "Associate-RJ-PDU",
		EvtAssociateResponseAccept:  "A-ASSOCIATE.response(accept)",
		EvtAssociateResponseReject:  "A-ASSOCIATE.response(reject)",
		EvtPDataReceived:            "P-DATA-TF-PDU",
		EvtPDataRequest:             "P-DATA.request",
		EvtReleaseRequest:           "A-RELEASE.request",
		EvtReleaseRQReceived:        "Release-RQ-PDU",
		EvtReleaseRPReceived:        "Release-RP-PDU",
		EvtReleaseResponse:          "A-RELEASE.response",
		EvtAbortRequest:             "A-ABORT.request",
		EvtAbortReceived:            "Abort-PDU",
		EvtTransportClosed:          "Transport-Closed",
		EvtARTIMTimeout:             "ARTIM-timeout",
		EvtInvalidPDU:               "invalid-PDU",
	}
	if n, ok := names[e]; ok {
		return n
	}
	return "EvtUnknown"
}
