package telnet

import (
	"bytes"
	"testing"
)

func TestParserEscapedIAC(t *testing.T) {
	p := NewParser()
	data, events := p.Process([]byte{telnetIAC, telnetIAC, 'A'})
	if !bytes.Equal(data, []byte{0xff, 'A'}) {
		t.Fatalf("got %x", data)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events, got %v", events)
	}
}

func TestParserNegotiation(t *testing.T) {
	p := NewParser()
	data, events := p.Process([]byte{telnetIAC, telnetDO, OptTTYPE})
	if len(data) != 0 {
		t.Fatalf("expected no data, got %x", data)
	}
	if len(events) != 1 || events[0].Negotiation == nil {
		t.Fatalf("expected one negotiation event, got %v", events)
	}
	neg := events[0].Negotiation
	if neg.Command != CmdDO || neg.Option != OptTTYPE {
		t.Fatalf("got %+v", neg)
	}
}

func TestParserSplitSafety(t *testing.T) {
	full := append([]byte{telnetIAC, telnetSB, OptTTYPE, ttypeSend}, telnetIAC, telnetSE)

	for split := 0; split <= len(full); split++ {
		p := NewParser()
		_, ev1 := p.Process(full[:split])
		_, ev2 := p.Process(full[split:])

		subCount := 0
		for _, e := range append(ev1, ev2...) {
			if e.Subnegotiation != nil {
				subCount++
			}
		}
		if subCount != 1 {
			t.Fatalf("split at %d: expected exactly one subnegotiation event, got %d", split, subCount)
		}
	}
}

func TestParserSubnegotiationWithEscapedIAC(t *testing.T) {
	p := NewParser()
	// IAC SB OPT 0xff 0xff IAC SE  -> subnegotiation data contains one 0xff
	chunk := []byte{telnetIAC, telnetSB, 7, 0xff, 0xff, telnetIAC, telnetSE}
	_, events := p.Process(chunk)
	if len(events) != 1 || events[0].Subnegotiation == nil {
		t.Fatalf("expected one subnegotiation, got %v", events)
	}
	sub := events[0].Subnegotiation
	if sub.Option != 7 || !bytes.Equal(sub.Data, []byte{0xff}) {
		t.Fatalf("got %+v", sub)
	}
}

func TestLineEndingNormalization(t *testing.T) {
	in := []byte("line1\nline2\n")

	cr := normalizeLineEnding(in, LineEndingCR)
	if bytes.Contains(cr, []byte{'\n'}) {
		t.Fatalf("cr output should contain no \\n: %q", cr)
	}
	if string(cr) != "line1\rline2\r" {
		t.Fatalf("got %q", cr)
	}

	crlf := normalizeLineEnding(in, LineEndingCRLF)
	if string(crlf) != "line1\r\nline2\r\n" {
		t.Fatalf("got %q", crlf)
	}

	lf := normalizeLineEnding(in, LineEndingLF)
	if !bytes.Equal(lf, in) {
		t.Fatalf("lf should be unchanged, got %q", lf)
	}

	pass := normalizeLineEnding(in, LineEndingPassThrough)
	if !bytes.Equal(pass, in) {
		t.Fatalf("pass_through should be unchanged, got %q", pass)
	}
}
