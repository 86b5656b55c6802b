// Package memutil reinterprets raw mmap'd bytes as typed pointers
// without copying.
package memutil

import (
	"unsafe"
)

type sliceHeader struct {
	Data unsafe.Pointer
	Len  int
	Cap  int
}

// PointerToBytes exposes length bytes starting at val's address as a
// byte slice. The caller is responsible for keeping val alive for as
// long as the returned slice is used.
func PointerToBytes[T any](val *T, length int) []byte {
	header := sliceHeader{
		Data: unsafe.Pointer(val),
		Len:  length,
		Cap:  length,
	}

	return *(*[]byte)(unsafe.Pointer(&header))
}

// BytesToPointer reinterprets the first bytes of b as *T. b must be
// at least as large as T and must outlive the returned pointer.
func BytesToPointer[T any](b []byte) *T {
	header := *(*sliceHeader)(unsafe.Pointer(&b))
	return (*T)(header.Data)
}

// AtOffset reinterprets b[offset:] as *T, used to address the slot
// array that sits immediately after the header in the mapped region.
func AtOffset[T any](b []byte, offset int64) *T {
	return BytesToPointer[T](b[offset:])
}
