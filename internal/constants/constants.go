package constants

import "time"

// Object id range split, per the wire protocol's namespace rules: ids
// below ServerIDBase are allocated by clients when they send a
// constructor request; ids at or above it are allocated by the server
// (e.g. globals, or server-created objects like xdg_popup positioners).
const (
	MinClientID     = 1
	MaxClientID     = 0xFEFFFFFF
	ServerIDBase    = 0xFF000000
	MaxServerID     = 0xFFFFFFFF
)

// Wire message framing limits.
const (
	// MessageHeaderSize is [object_id:u32][size:u16][opcode:u16].
	MessageHeaderSize = 8

	// MaxMessageSize is the largest a single message (header + payload)
	// may be. The header's u16 size field counts header and payload
	// together, so a decoded size never exceeds this bound.
	MaxMessageSize = 1 << 16

	// MessageAlignment is the required alignment, in bytes, of every
	// message and of every length-prefixed array/string within a message.
	MessageAlignment = 4
)

// Default ring buffer sizing for the wire codec.
const (
	DefaultInputBufferSize = 4096
	DefaultInputMaxFds     = 32
)

// Default output backlog watermark: once a connection's outbound queue
// has held this many bytes for longer than SlowClientGracePeriod, the
// connection's write loop ends with wire.ErrRingFull and the connection
// is torn down rather than let a stalled client pin server memory
// indefinitely. The root package's ErrSlowClient is not used for this.
const (
	DefaultOutboundWatermark = 8 * 1024 * 1024
	SlowClientGracePeriod    = 5 * time.Second
)

// Frame scheduling defaults.
const (
	// DefaultRefreshPeriod is used when an output hasn't yet reported a
	// real modeline (e.g. in tests, or the first tick after enable).
	DefaultRefreshPeriod = 16_666_667 * time.Nanosecond // 60Hz

	// RenderDeadlineFraction is the soft per-output deadline from §5,
	// as a fraction of the refresh period: missing it marks the frame
	// dropped but never blocks input.
	RenderDeadlineFraction = 1.0
)

// Input router defaults.
const (
	DefaultIdleGracePeriod = 0
	DefaultRepeatRateHz    = 25
	DefaultRepeatDelay     = 600 * time.Millisecond
)

// Scene graph layout defaults, grounded in the concrete scenarios of
// §8: a decorated toplevel reserves a title bar plus an underline.
const (
	DefaultTitleBarHeight = 24
	DefaultTitleUnderline = 2
	DefaultBorderWidth    = 1
)
