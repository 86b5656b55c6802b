// Package videoframe is an illustrative record type for the admin
// CLI: a fixed-layout camera frame broadcast over one NanoBroker
// channel.
package videoframe

import "github.com/nanobroker/nanobroker/broker/fixedtext"

const (
	Width    = 640
	Height   = 480
	Channels = 3
	MaxBytes = Width * Height * Channels

	// TopicName is the channel name the admin CLI attaches to.
	TopicName = "video_stream"

	// Capacity is a ring size for a Frame channel; no code in this
	// module creates a channel with it.
	Capacity = 30
)

// Frame is trivially relocatable: no pointers, slices, or strings, so
// it satisfies the no-pointer-bearing-field constraint a channel's
// record type must meet.
type Frame struct {
	ProducerID  int32
	FrameID     int64
	TimestampNs int64
	Width       int32
	Height      int32
	Channels    int32
	DataSize    uint32
	Format      [16]byte
	Pixels      [MaxBytes]byte
}

// SetFormat writes s into the fixed-size Format field.
func (f *Frame) SetFormat(s string) {
	fixedtext.Put(f.Format[:], s)
}

// GetFormat reads the fixed-size Format field back out as a string.
func (f *Frame) GetFormat() string {
	return fixedtext.Get(f.Format[:])
}
