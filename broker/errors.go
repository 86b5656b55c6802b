package broker

// brokerError is a comparable sentinel error: a plain string that
// implements error, so callers compare with errors.Is against the
// exported Err* values instead of parsing messages.
type brokerError string

var _ error = brokerError("")

func (err brokerError) Error() string {
	return string(err)
}

const (
	// ErrOpenFailed means the segment could not be created or opened.
	ErrOpenFailed = brokerError("nanobroker: failed to create or open shared memory segment")

	// ErrMapFailed means mapping the segment into the process failed.
	ErrMapFailed = brokerError("nanobroker: failed to map shared memory segment")

	// ErrStaleMemory means the segment exists but its magic value does
	// not match: foreign or corrupt memory.
	ErrStaleMemory = brokerError("nanobroker: magic mismatch, stale or foreign memory")

	// ErrVersionMismatch means the segment's protocol version differs
	// from this build's.
	ErrVersionMismatch = brokerError("nanobroker: protocol version mismatch")

	// ErrLayoutMismatch means the segment's record size differs from
	// the record type this process was built against.
	ErrLayoutMismatch = brokerError("nanobroker: record layout size mismatch")

	// ErrInvalidConsumerID means the requested consumer id is outside
	// [0, MaxConsumers).
	ErrInvalidConsumerID = brokerError("nanobroker: consumer id out of range")

	// ErrDisconnected means the consumer's active flag was cleared by
	// the producer (evicted); the caller must re-attach.
	ErrDisconnected = brokerError("nanobroker: consumer was disconnected")

	// ErrFull is returned by PreparePublish under the BLOCK policy
	// when the next slot is still held by a live consumer.
	ErrFull = brokerError("nanobroker: buffer full")

	// ErrInvalidRecord means the record type is not safe to place in
	// shared memory (it contains a pointer-bearing field).
	ErrInvalidRecord = brokerError("nanobroker: record type is not trivially relocatable")

	// ErrSecondProducer means NewProducer found a live
	// segment it could not exclusively create, suggesting another
	// producer already owns this name.
	ErrSecondProducer = brokerError("nanobroker: a producer for this name appears to already be running")
)
