//go:build !(linux || darwin)

package tcp

import (
	"context"
	"github.com/ValentinKolb/dFrame/rpc/transport/base"
	"net"
)

// listen falls back to the standard listener. The accept backlog and
// SO_REUSEADDR are left to the runtime defaults on this platform.
func listen(endpoint string, backlog int, _ bool) (net.Listener, error) {
	base.Logger.Debugf("Accept backlog %d is not configurable on this platform", backlog)

	var lc net.ListenConfig
	return lc.Listen(context.Background(), "tcp", endpoint)
}
