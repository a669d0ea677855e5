package session

// KeyBytes translates a symbolic key name to its fixed byte sequence.
// Enter differs by protocol (Telnet line discipline wants \r, SSH's PTY
// line discipline is happy with \n); every other key is
// protocol-independent.
func KeyBytes(key string, proto Protocol) ([]byte, bool) {
	switch key {
	case "Enter":
		if proto == ProtocolTelnet {
			return []byte("\r"), true
		}
		return []byte("\n"), true
	case "Tab":
		return []byte("\t"), true
	case "Escape", "Esc":
		return []byte{0x1b}, true
	case "Backspace":
		return []byte{0x7f}, true
	case "Up":
		return []byte("\x1b[A"), true
	case "Down":
		return []byte("\x1b[B"), true
	case "Right":
		return []byte("\x1b[C"), true
	case "Left":
		return []byte("\x1b[D"), true
	case "Home":
		return []byte("\x1b[H"), true
	case "End":
		return []byte("\x1b[F"), true
	case "PageUp":
		return []byte("\x1b[5~"), true
	case "PageDown":
		return []byte("\x1b[6~"), true
	case "Delete":
		return []byte("\x1b[3~"), true
	case "Ctrl-C":
		return []byte{0x03}, true
	case "Ctrl-D":
		return []byte{0x04}, true
	case "Ctrl-Z":
		return []byte{0x1a}, true
	case "Ctrl-\\":
		return []byte{0x1c}, true
	case "Ctrl-A":
		return []byte{0x01}, true
	case "Ctrl-E":
		return []byte{0x05}, true
	case "Ctrl-K":
		return []byte{0x0b}, true
	case "Ctrl-U":
		return []byte{0x15}, true
	case "Ctrl-L":
		return []byte{0x0c}, true
	default:
		return nil, false
	}
}
