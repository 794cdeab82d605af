package waylens

import "github.com/waylens/waylens/internal/constants"

// Re-export of the wire protocol and scheduling constants for external
// callers (the config loader, the CLI) that need the same numbers the
// core uses internally.
const (
	MinClientID  = constants.MinClientID
	MaxClientID  = constants.MaxClientID
	ServerIDBase = constants.ServerIDBase
	MaxServerID  = constants.MaxServerID

	MessageHeaderSize = constants.MessageHeaderSize
	MaxMessageSize    = constants.MaxMessageSize
	MessageAlignment  = constants.MessageAlignment

	DefaultInputBufferSize   = constants.DefaultInputBufferSize
	DefaultInputMaxFds       = constants.DefaultInputMaxFds
	DefaultOutboundWatermark = constants.DefaultOutboundWatermark

	DefaultTitleBarHeight = constants.DefaultTitleBarHeight
	DefaultTitleUnderline = constants.DefaultTitleUnderline
	DefaultBorderWidth    = constants.DefaultBorderWidth
)
