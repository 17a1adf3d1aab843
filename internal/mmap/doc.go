// Package mmap maps checkpoint files read-only so they can be decoded
// without copying them through a read buffer.
//
//	m, err := mmap.Open("checkpoint.dat")
//	if err != nil { ... }
//	defer m.Close()
//
//	_ = m.Advise(mmap.AccessSequential)
//	data := m.Bytes()
//
// On Unix the file is mapped with mmap(2) and access hints go to madvise(2).
// Other platforms read the file into memory and ignore hints.
//
// The slice returned by Bytes is valid until Close. Close is idempotent.
package mmap
