package modem

import (
	"bytes"
	"strings"
)

// AT protocol tokens used by the gate session. The session runs with echo off
// (ATE0), so every line read is a modem response.
const (
	crlf   = "\r\n"
	prompt = "> "
	ctrlZ  = "\x1A"

	respOK       = "OK"
	respError    = "ERROR"
	respCmeError = "+CME ERROR:"
	respCmsError = "+CMS ERROR:"
	respCmgs     = "+CMGS:"
	urcSMS       = "+CMT:"

	cmdProbe       = "AT"
	cmdEchoOff     = "ATE0"
	cmdTextMode    = "AT+CMGF=1"
	cmdNotifyOnSMS = "AT+CNMI=2,2,0,0,0"
	cmdSendSMS     = `AT+CMGS="%s"`
)

// responseType classifies a single line coming from the modem.
type responseType int

const (
	typeFinal responseType = iota
	typeURC
	typeData
	typePrompt
)

// finalError reports whether a final line signals failure.
func finalError(line string) bool {
	return line == respError ||
		strings.HasPrefix(line, respCmeError) ||
		strings.HasPrefix(line, respCmsError)
}

func classify(line string) responseType {
	switch {
	case line == prompt || line == ">":
		return typePrompt
	case line == respOK || finalError(line):
		return typeFinal
	case strings.HasPrefix(line, urcSMS),
		strings.HasPrefix(line, "+CMTI:"),
		line == "RING":
		return typeURC
	default:
		return typeData
	}
}

// splitLines is a bufio.SplitFunc yielding CRLF-terminated lines without the
// terminator, skipping blank lines. The SMS prompt "> " has no terminator and
// is emitted as its own token.
func splitLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := 0
	for start < len(data) && (data[start] == '\r' || data[start] == '\n') {
		start++
	}
	if start == len(data) {
		if atEOF {
			return len(data), nil, nil
		}
		return start, nil, nil
	}
	rest := data[start:]
	if bytes.HasPrefix(rest, []byte(prompt)) {
		return start + len(prompt), []byte(prompt), nil
	}
	if i := bytes.IndexAny(rest, "\r\n"); i >= 0 {
		return start + i + 1, bytes.TrimSpace(rest[:i]), nil
	}
	if atEOF {
		return len(data), bytes.TrimSpace(rest), nil
	}
	// A lone ">" may still become the prompt once the space arrives.
	return start, nil, nil
}
