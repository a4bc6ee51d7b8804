//go:build linux

// Package pciid provides access to the PCI ID database for looking up
// vendor and device names.
//
// The PCI ID database is a standard file distributed with most Linux
// systems. It maps PCI vendor IDs and device IDs to human-readable
// names.
//
// This package automatically searches common database locations and
// provides efficient cached lookups. A small built-in table covers the
// vendors commonly seen on DMA cards, so [Database.LookupVendor]
// produces a name for those even when no database file is installed.
//
// # Usage
//
// Load the database once at startup:
//
//	db := pciid.New()
//	db.Load()
//
// Then look up vendor and device names:
//
//	vendorName := db.LookupVendor(0x10ee)
//	deviceName := db.LookupDevice(0x10ee, 0x9038)
//
// # Database Locations
//
// The package searches for the PCI ID database in these locations:
//
//   - /usr/share/hwdata/pci.ids
//   - /usr/share/misc/pci.ids
//   - /usr/share/pci.ids
//
// If no database file is found, lookups fall back to the built-in
// vendor table and otherwise return empty strings.
//
// # Thread Safety
//
// All methods are safe for concurrent use. The database uses
// read-write locks to allow concurrent lookups while protecting
// against concurrent loads.
package pciid
