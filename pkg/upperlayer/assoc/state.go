// Package assoc implements the PS3.8 association state machine (Sta1..Sta13)
// and the orchestrator that drives it over a TCP connection for both the
// SCU and SCP roles.
package assoc

// State is one of the thirteen PS3.8 association states.
type State int

const (
	Sta1  State = iota + 1 // idle
	Sta2                   // awaiting transport open (SCP)
	Sta3                   // awaiting local A-ASSOCIATE response (SCP)
	Sta4                   // awaiting transport confirm (SCU)
	Sta5                   // awaiting A-ASSOCIATE-AC/RJ (SCU)
	Sta6                   // association established
	Sta7                   // awaiting A-RELEASE-RP (SCU)
	Sta8                   // awaiting local A-RELEASE response (SCP)
	Sta9                   // release collision: awaiting local response
	Sta10                  // release collision: awaiting A-RELEASE-RP
	Sta11                  // awaiting A-RELEASE-RP after collision
	Sta12                  // awaiting release-primitive ack
	Sta13                  // awaiting transport closed
)

func (s State) String() string {
	names := map[State]string{
		Sta1: "Sta1", Sta2: "Sta2", Sta3: "Sta3", Sta4: "Sta4", Sta5: "Sta5",
		Sta6: "Sta6", Sta7: "Sta7", Sta8: "Sta8", Sta9: "Sta9", Sta10: "Sta10",
		Sta11: "Sta11", Sta12: "Sta12", Sta13: "Sta13",
	}
	if n, ok := names[s]; ok {
		return n
	}
	return "StaUnknown"
}

// Established reports whether the association is usable for DIMSE exchange.
func (s State) Established() bool { return s == Sta6 }
