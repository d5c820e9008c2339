package server

import (
	"bytes"
	"fmt"
	"github.com/ValentinKolb/dFrame/rpc/transport"
	"sort"
	"strings"
)

// --------------------------------------------------------------------------
// Application Handlers
// --------------------------------------------------------------------------

// Echo replies with the request payload
func Echo(req []byte) ([]byte, bool) {
	return req, true
}

// Ping answers "ping" with "pong" and echoes every other payload
func Ping(req []byte) ([]byte, bool) {
	if bytes.Equal(req, []byte("ping")) {
		return []byte("pong"), true
	}
	return req, true
}

// Upper replies with the request converted to upper case
func Upper(req []byte) ([]byte, bool) {
	return bytes.ToUpper(req), true
}

// Discard consumes the request and never replies
func Discard([]byte) ([]byte, bool) {
	return nil, false
}

// Hello answers every request with a fixed greeting
func Hello([]byte) ([]byte, bool) {
	return []byte("Hello from server"), true
}

// --------------------------------------------------------------------------
// Handler Registry
// --------------------------------------------------------------------------

var handlers = map[string]transport.HandleFunc{
	"echo":    Echo,
	"ping":    Ping,
	"upper":   Upper,
	"discard": Discard,
	"hello":   Hello,
}

// GetHandler returns the handler registered under name
func GetHandler(name string) (transport.HandleFunc, error) {
	h, ok := handlers[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown handler %q (available: %s)", name, strings.Join(HandlerNames(), ", "))
	}
	return h, nil
}

// HandlerNames returns the names of all registered handlers in sorted order
func HandlerNames() []string {
	names := make([]string, 0, len(handlers))
	for name := range handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
