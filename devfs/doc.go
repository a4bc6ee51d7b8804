// Package devfs exposes a card's engine nodes as a FUSE filesystem,
// mirroring the device directory a kernel driver would register.
//
// The mount root holds one regular file per engine node, named
// exactly like the node ("card0_h2c_0"). Host-to-device files are
// write-only and device-to-host files read-only, size zero, matching
// character-device convention. Opening a file claims the node; reads
// and writes run transfers, with the file offset steering the device
// address on addressed engines; closing releases the node. Sentinel
// errors surface as the errnos a kernel device node would report
// ([Errno] holds the mapping).
//
// When the card carries a stats recorder, the root also holds a
// read-only "stats" file whose content is a CBOR-encoded counter
// snapshot, regenerated on every open.
//
// All files are served with direct I/O so the kernel page cache never
// short-circuits a transfer.
package devfs
