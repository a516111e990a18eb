package assoc

import "github.com/jas88/sharpdicom/pkg/upperlayer/common"

// Action is the side effect the orchestrator must perform after a
// transition fires. The state machine itself never touches the network;
// it only says what the caller must now do.
type Action int

const (
	ActionNone Action = iota
	ActionOpenTransport
	ActionSendAssociateRQ
	ActionIndicateAssociateRQ
	ActionSendAssociateAC
	ActionSendAssociateRJ
	ActionIndicateAssociateAccept
	ActionIndicateAssociateReject
	ActionSendPDataTF
	ActionIndicatePDataTF
	ActionSendReleaseRQ
	ActionIndicateReleaseRequest
	ActionSendReleaseRP
	ActionIndicateReleaseConfirm
	ActionSendAbortAndCloseTransport
	ActionCloseTransportNoAbort
	ActionCloseTransport
	ActionStartARTIM
	ActionStopARTIM
)

type transitionKey struct {
	From State
	Evt  Event
}

type transitionResult struct {
	To     State
	Action Action
}

// transitions is the authoritative PS3.8 table for the subset of
// primitives this stack implements (C-ECHO/C-STORE over a single
// association; no asynchronous-operations window).
var transitions = map[transitionKey]transitionResult{
	// SCU: establishing.
	{Sta1, EvtAssociateRequest}:     {Sta4, ActionOpenTransport},
	{Sta4, EvtTransportConnConfirm}: {Sta5, ActionSendAssociateRQ},
	{Sta5, EvtAssociateACReceived}:  {Sta6, ActionIndicateAssociateAccept},
	{Sta5, EvtAssociateRJReceived}:  {Sta1, ActionIndicateAssociateReject},
	{Sta5, EvtARTIMTimeout}:         {Sta1, ActionCloseTransportNoAbort},

	// SCP: establishing.
	{Sta1, EvtTransportConnIndication}: {Sta2, ActionStartARTIM},
	{Sta2, EvtAssociateRQReceived}:     {Sta3, ActionIndicateAssociateRQ},
	{Sta2, EvtARTIMTimeout}:            {Sta1, ActionCloseTransportNoAbort},
	{Sta2, EvtInvalidPDU}:              {Sta1, ActionCloseTransportNoAbort},
	{Sta3, EvtAssociateResponseAccept}: {Sta6, ActionSendAssociateAC},
	{Sta3, EvtAssociateResponseReject}: {Sta13, ActionSendAssociateRJ},

	// Established: data transfer.
	{Sta6, EvtPDataRequest}:    {Sta6, ActionSendPDataTF},
	{Sta6, EvtPDataReceived}:   {Sta6, ActionIndicatePDataTF},
	{Sta6, EvtReleaseRequest}:  {Sta7, ActionSendReleaseRQ},
	{Sta6, EvtReleaseRQReceived}: {Sta8, ActionIndicateReleaseRequest},
	{Sta6, EvtAbortRequest}:    {Sta1, ActionSendAbortAndCloseTransport},
	{Sta6, EvtAbortReceived}:   {Sta1, ActionCloseTransport},
	{Sta6, EvtInvalidPDU}:      {Sta13, ActionSendAbortAndCloseTransport},

	// SCU: releasing.
	{Sta7, EvtReleaseRPReceived}: {Sta1, ActionCloseTransport},
	{Sta7, EvtReleaseRQReceived}: {Sta9, ActionIndicateReleaseRequest},
	{Sta7, EvtAbortReceived}:     {Sta1, ActionCloseTransport},

	// SCP: releasing.
	{Sta8, EvtReleaseResponse}: {Sta13, ActionSendReleaseRP},
	{Sta8, EvtAbortReceived}:   {Sta1, ActionCloseTransport},

	// Release collision.
	{Sta9, EvtReleaseResponse}:   {Sta11, ActionSendReleaseRP},
	{Sta10, EvtReleaseRPReceived}: {Sta12, ActionSendReleaseRP},
	{Sta11, EvtReleaseRPReceived}: {Sta1, ActionCloseTransport},
	{Sta12, EvtTransportClosed}:   {Sta1, ActionNone},

	// Transport teardown.
	{Sta13, EvtTransportClosed}: {Sta1, ActionNone},
	{Sta13, EvtReleaseRPReceived}: {Sta13, ActionNone},
	{Sta13, EvtARTIMTimeout}:    {Sta1, ActionCloseTransportNoAbort},
}

// Machine drives one association's state. It is not safe for concurrent
// use; an association owns exactly one worker (per the concurrency model).
type Machine struct {
	state State
}

// NewMachine returns a Machine starting at Sta1 (idle).
func NewMachine() *Machine { return &Machine{state: Sta1} }

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Fire applies event to the current state, returning the action the caller
// must now perform. An event with no transition from the current state is
// a protocol violation: the machine moves to Sta13 and reports
// ActionSendAbortAndCloseTransport, per PS3.8's "unexpected PDU" handling.
func (m *Machine) Fire(evt Event) (Action, error) {
	key := transitionKey{From: m.state, Evt: evt}
	t, ok := transitions[key]
	if !ok {
		m.state = Sta13
		return ActionSendAbortAndCloseTransport, common.NewProtocolError("event %s has no transition from state %s", evt, key.From)
	}
	m.state = t.To
	return t.Action, nil
}
