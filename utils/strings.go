package utils

import (
	"unsafe"
)

// BytesToString reinterprets b as a string without copying. The caller must
// not mutate b afterwards.
func BytesToString(b []byte) string {
	return *(*string)(unsafe.Pointer(&b))
}

func StringToBytes(s string) []byte {
	return unsafe.Slice(unsafe.StringData(s), len(s))
}
