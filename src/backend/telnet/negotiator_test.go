package telnet

import "testing"

func TestNegotiatorIdempotence(t *testing.T) {
	n := NewNegotiator("xterm-256color", 80, 24)

	reply := n.HandleEvent(Event{Negotiation: &Negotiation{Command: CmdDO, Option: OptSGA}})
	if len(reply) == 0 {
		t.Fatal("first DO SGA should produce a WILL reply")
	}

	// Redundant affirmation must not be echoed again.
	reply = n.HandleEvent(Event{Negotiation: &Negotiation{Command: CmdDO, Option: OptSGA}})
	if len(reply) != 0 {
		t.Fatalf("redundant DO SGA should produce no reply, got %x", reply)
	}
}

func TestNegotiatorRefusesUnsupportedOption(t *testing.T) {
	n := NewNegotiator("xterm", 80, 24)
	reply := n.HandleEvent(Event{Negotiation: &Negotiation{Command: CmdDO, Option: 99}})
	if len(reply) != 3 || reply[1] != telnetWONT {
		t.Fatalf("expected WONT for unsupported option, got %x", reply)
	}
}

func TestNegotiatorNAWSOnEnable(t *testing.T) {
	n := NewNegotiator("xterm", 80, 24)
	reply := n.HandleEvent(Event{Negotiation: &Negotiation{Command: CmdDO, Option: OptNAWS}})

	// reply should be IAC WILL NAWS followed by IAC SB NAWS <w><h> IAC SE
	if len(reply) <= 3 {
		t.Fatalf("expected WILL + NAWS subnegotiation, got %x", reply)
	}
	if reply[0] != telnetIAC || reply[1] != telnetWILL || reply[2] != OptNAWS {
		t.Fatalf("expected leading WILL NAWS, got %x", reply[:3])
	}
}

func TestNegotiatorTTypeResponse(t *testing.T) {
	n := NewNegotiator("xterm-256color", 80, 24)
	reply := n.HandleEvent(Event{Subnegotiation: &Subnegotiation{Option: OptTTYPE, Data: []byte{ttypeSend}}})

	want := frameSub(append([]byte{OptTTYPE, ttypeIs}, []byte("xterm-256color")...))
	if string(reply) != string(want) {
		t.Fatalf("got %x want %x", reply, want)
	}
}

func TestSetWindowSizeEmitsNAWSOnlyWhenEnabled(t *testing.T) {
	n := NewNegotiator("xterm", 80, 24)
	if raw := n.SetWindowSize(100, 40); raw != nil {
		t.Fatalf("NAWS not yet enabled, expected nil, got %x", raw)
	}

	n.HandleEvent(Event{Negotiation: &Negotiation{Command: CmdDO, Option: OptNAWS}})
	raw := n.SetWindowSize(120, 50)
	if raw == nil {
		t.Fatal("expected NAWS subnegotiation after enabling")
	}
}
