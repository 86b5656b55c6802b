package broker

import (
	"fmt"
	"os"
	"unsafe"

	"github.com/edsrzf/mmap-go"

	"github.com/nanobroker/nanobroker/internal/memutil"
)

// channel is the shared-memory mapping common to producers,
// consumers, and the admin surface: a Header followed by a fixed
// array of Slot[T]. Creating one and attaching to one follow the
// same create-or-open, mmap, then cast-header-in-place sequence.
type channel[T any] struct {
	name     string
	file     *os.File
	data     mmap.MMap
	header   *Header
	capacity int64
	settings Settings
}

func payloadSize[T any]() int64 {
	var t T
	return int64(unsafe.Sizeof(t))
}

func createChannel[T any](name string, capacity int, settings Settings) (*channel[T], error) {
	if err := validateRecordType[T](); err != nil {
		return nil, err
	}

	if capacity < 1 {
		return nil, fmt.Errorf("%w: capacity must be at least 1", ErrOpenFailed)
	}

	size := headerSize() + int64(capacity)*slotSize[T]()

	file, err := createSegment(name, size)
	if err != nil {
		return nil, err
	}

	data, err := mmap.Map(file, mmap.RDWR, 0)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("%w: %v", ErrMapFailed, err)
	}

	ch := &channel[T]{
		name:     name,
		file:     file,
		data:     data,
		header:   memutil.BytesToPointer[Header](data),
		capacity: int64(capacity),
		settings: settings,
	}

	ch.initHeader(capacity)

	return ch, nil
}

func (ch *channel[T]) initHeader(capacity int) {
	h := ch.header

	h.magic = magicValue
	h.version = protocolVersion
	h.structSize = uint32(payloadSize[T]())
	h.bufferCapacity = uint32(capacity)
	h.producerEpoch.v.Store(randomEpoch())
	h.head.v.Store(0)
	h.writeLock.v.Store(false)

	for i := 0; i < MaxConsumers; i++ {
		h.tails[i].v.Store(0)
		h.slotActive[i].v.Store(false)
		h.heartbeats[i].v.Store(0)
	}

	for i := int64(0); i < ch.capacity; i++ {
		s := ch.slot(i)
		s.sequence.Store(0)
		s.state.Store(uint32(SlotFree))
	}
}

// attachChannel maps an existing segment without creating or
// registering anything — the shape both Consumer and Admin attach
// through, registration itself is layered on top by NewConsumer.
func attachChannel[T any](name string) (*channel[T], error) {
	if err := validateRecordType[T](); err != nil {
		return nil, err
	}

	size, err := statSegment(name)
	if err != nil {
		return nil, err
	}

	if size < headerSize() {
		return nil, ErrStaleMemory
	}

	file, err := openSegment(name)
	if err != nil {
		return nil, err
	}

	data, err := mmap.Map(file, mmap.RDWR, 0)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("%w: %v", ErrMapFailed, err)
	}

	header := memutil.BytesToPointer[Header](data)

	if err := header.validateIdentity(uint32(payloadSize[T]())); err != nil {
		data.Unmap()
		file.Close()
		return nil, err
	}

	capacity := int64(header.bufferCapacity)

	if size != headerSize()+capacity*slotSize[T]() {
		data.Unmap()
		file.Close()
		return nil, ErrStaleMemory
	}

	return &channel[T]{
		name:     name,
		file:     file,
		data:     data,
		header:   header,
		capacity: capacity,
	}, nil
}

func (ch *channel[T]) slot(index int64) *Slot[T] {
	offset := headerSize() + index*slotSize[T]()
	return memutil.AtOffset[Slot[T]](ch.data, offset)
}

func (ch *channel[T]) wrap(index int64) int64 {
	return ((index % ch.capacity) + ch.capacity) % ch.capacity
}

func (ch *channel[T]) close() error {
	if err := ch.data.Flush(); err != nil {
		ch.file.Close()
		return fmt.Errorf("%w: %v", ErrMapFailed, err)
	}

	if err := ch.data.Unmap(); err != nil {
		ch.file.Close()
		return fmt.Errorf("%w: %v", ErrMapFailed, err)
	}

	return ch.file.Close()
}
