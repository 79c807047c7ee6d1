package gcoll

import "unsafe"

// toVal returns a byte view of s without copying. Engines copy input on
// write and never modify it. The empty string maps to a non-nil empty slice
// because a nil value means "every duplicate" to Txn.Del.
func toVal(s string) []byte {
	if len(s) == 0 {
		return []byte{}
	}
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

// fromVal copies engine memory into an owned string. The source is only
// valid until its transaction ends.
func fromVal(b []byte) string {
	return string(b)
}
