package telnet

// Telnet option codes.
const (
	OptBINARY = 0
	OptECHO   = 1
	OptSGA    = 3
	OptTTYPE  = 24
	OptNAWS   = 31
)

const (
	ttypeSend = 1
	ttypeIs   = 0
)

// optionSupport records whether we (local) or the peer (remote) are allowed
// to enable a given option.
type optionSupport struct {
	local  bool
	remote bool
}

var supportedOptions = map[byte]optionSupport{
	OptBINARY: {local: true, remote: true},
	OptECHO:   {local: false, remote: true},
	OptSGA:    {local: true, remote: true},
	OptTTYPE:  {local: true, remote: false},
	OptNAWS:   {local: true, remote: false},
}

// Negotiator implements a simplified Q-method option negotiation state
// machine: it consumes parser Events and produces raw bytes to send back
// (replies and subnegotiations). Redundant affirmations from the peer get
// no reply; refusals are always answered.
type Negotiator struct {
	localEnabled  map[byte]bool
	remoteEnabled map[byte]bool

	termType   string
	cols, rows uint16
}

// NewNegotiator creates a negotiator that will answer TTYPE SEND with
// termType and report the given initial window size in NAWS.
func NewNegotiator(termType string, cols, rows uint16) *Negotiator {
	return &Negotiator{
		localEnabled:  make(map[byte]bool),
		remoteEnabled: make(map[byte]bool),
		termType:      termType,
		cols:          cols,
		rows:          rows,
	}
}

// HandleEvent processes one parser Event and returns the raw bytes (already
// IAC-framed) that should be sent back to the peer, if any.
func (n *Negotiator) HandleEvent(ev Event) []byte {
	switch {
	case ev.Negotiation != nil:
		return n.handleNegotiation(*ev.Negotiation)
	case ev.Subnegotiation != nil:
		return n.handleSubnegotiation(*ev.Subnegotiation)
	}
	return nil
}

func (n *Negotiator) handleNegotiation(neg Negotiation) []byte {
	sup := supportedOptions[neg.Option]

	switch neg.Command {
	case CmdDO:
		if n.localEnabled[neg.Option] {
			return nil // already enabled, idempotent, no reply
		}
		if !sup.local {
			return frameCmd(telnetWONT, neg.Option)
		}
		n.localEnabled[neg.Option] = true
		reply := frameCmd(telnetWILL, neg.Option)
		if neg.Option == OptNAWS {
			reply = append(reply, n.nawsSubnegotiation()...)
		}
		return reply

	case CmdDONT:
		if !n.localEnabled[neg.Option] {
			return nil
		}
		n.localEnabled[neg.Option] = false
		return frameCmd(telnetWONT, neg.Option)

	case CmdWILL:
		if n.remoteEnabled[neg.Option] {
			return nil
		}
		if !sup.remote {
			return frameCmd(telnetDONT, neg.Option)
		}
		n.remoteEnabled[neg.Option] = true
		return frameCmd(telnetDO, neg.Option)

	case CmdWONT:
		if !n.remoteEnabled[neg.Option] {
			return nil
		}
		n.remoteEnabled[neg.Option] = false
		return frameCmd(telnetDONT, neg.Option)
	}
	return nil
}

func (n *Negotiator) handleSubnegotiation(sub Subnegotiation) []byte {
	if sub.Option != OptTTYPE {
		return nil
	}
	if len(sub.Data) == 0 || sub.Data[0] != ttypeSend {
		return nil
	}
	return n.ttypeResponse()
}

func (n *Negotiator) ttypeResponse() []byte {
	payload := append([]byte{OptTTYPE, ttypeIs}, EscapeIAC([]byte(n.termType))...)
	return frameSub(payload)
}

// SetWindowSize updates the stored dimensions and, if NAWS is locally
// enabled, emits the subnegotiation announcing the new size.
func (n *Negotiator) SetWindowSize(cols, rows uint16) []byte {
	n.cols, n.rows = cols, rows
	if !n.localEnabled[OptNAWS] {
		return nil
	}
	return n.nawsSubnegotiation()
}

func (n *Negotiator) nawsSubnegotiation() []byte {
	raw := []byte{
		byte(n.cols >> 8), byte(n.cols),
		byte(n.rows >> 8), byte(n.rows),
	}
	payload := append([]byte{OptNAWS}, EscapeIAC(raw)...)
	return frameSub(payload)
}

func frameCmd(cmd, opt byte) []byte {
	return []byte{telnetIAC, cmd, opt}
}

func frameSub(payload []byte) []byte {
	out := make([]byte, 0, len(payload)+4)
	out = append(out, telnetIAC, telnetSB)
	out = append(out, payload...)
	out = append(out, telnetIAC, telnetSE)
	return out
}
