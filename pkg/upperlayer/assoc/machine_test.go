package assoc

import "testing"

// Property #8, first clause: Sta5 + Associate-AC -> Sta6.
func TestSta5AssociateACGoesToSta6(t *testing.T) {
	m := NewMachine()
	for _, evt := range []Event{EvtAssociateRequest, EvtTransportConnConfirm} {
		if _, err := m.Fire(evt); err != nil {
			t.Fatalf("fire %s: %v", evt, err)
		}
	}
	if m.State() != Sta5 {
		t.Fatalf("expected Sta5 before AC, got %s", m.State())
	}
	action, err := m.Fire(EvtAssociateACReceived)
	if err != nil {
		t.Fatalf("fire AC: %v", err)
	}
	if m.State() != Sta6 {
		t.Fatalf("expected Sta6 after AC, got %s", m.State())
	}
	if action != ActionIndicateAssociateAccept {
		t.Fatalf("expected ActionIndicateAssociateAccept, got %v", action)
	}
}

// Property #8, second clause: Sta2 + ARTIM timeout -> Sta1, closed without abort.
func TestSta2ARTIMTimeoutGoesToSta1NoAbort(t *testing.T) {
	m := NewMachine()
	if _, err := m.Fire(EvtTransportConnIndication); err != nil {
		t.Fatalf("fire transport indication: %v", err)
	}
	if m.State() != Sta2 {
		t.Fatalf("expected Sta2, got %s", m.State())
	}
	action, err := m.Fire(EvtARTIMTimeout)
	if err != nil {
		t.Fatalf("fire ARTIM timeout: %v", err)
	}
	if m.State() != Sta1 {
		t.Fatalf("expected Sta1 after ARTIM timeout, got %s", m.State())
	}
	if action != ActionCloseTransportNoAbort {
		t.Fatalf("expected ActionCloseTransportNoAbort (no A-ABORT), got %v", action)
	}
}

func TestUnexpectedEventAbortsToSta13(t *testing.T) {
	m := NewMachine()
	action, err := m.Fire(EvtReleaseRQReceived)
	if err == nil {
		t.Fatal("expected a protocol-violation error")
	}
	if m.State() != Sta13 {
		t.Fatalf("expected Sta13, got %s", m.State())
	}
	if action != ActionSendAbortAndCloseTransport {
		t.Fatalf("expected ActionSendAbortAndCloseTransport, got %v", action)
	}
}

func TestFullSCPHappyPath(t *testing.T) {
	m := NewMachine()
	steps := []struct {
		evt    Event
		want   State
		action Action
	}{
		{EvtTransportConnIndication, Sta2, ActionStartARTIM},
		{EvtAssociateRQReceived, Sta3, ActionIndicateAssociateRQ},
		{EvtAssociateResponseAccept, Sta6, ActionSendAssociateAC},
		{EvtReleaseRQReceived, Sta8, ActionIndicateReleaseRequest},
		{EvtReleaseResponse, Sta13, ActionSendReleaseRP},
		{EvtTransportClosed, Sta1, ActionNone},
	}
	for _, s := range steps {
		action, err := m.Fire(s.evt)
		if err != nil {
			t.Fatalf("fire %s: %v", s.evt, err)
		}
		if m.State() != s.want {
			t.Fatalf("after %s: expected %s, got %s", s.evt, s.want, m.State())
		}
		if action != s.action {
			t.Fatalf("after %s: expected action %v, got %v", s.evt, s.action, action)
		}
	}
}
