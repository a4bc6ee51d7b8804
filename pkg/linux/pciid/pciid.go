//go:build linux

package pciid

import (
	"bufio"
	"os"
	"strconv"
	"strings"
	"sync"
)

// DefaultPaths lists the standard locations for the PCI ID database.
var DefaultPaths = []string{
	"/usr/share/hwdata/pci.ids",
	"/usr/share/misc/pci.ids",
	"/usr/share/pci.ids",
}

// builtinVendors names the vendors commonly found on DMA-capable
// cards, for systems without a pci.ids file.
var builtinVendors = map[uint16]string{
	0x1002: "Advanced Micro Devices, Inc. [AMD/ATI]",
	0x10de: "NVIDIA Corporation",
	0x10ee: "Xilinx Corporation",
	0x1172: "Altera Corporation",
	0x8086: "Intel Corporation",
}

// Database caches vendor and device names from the PCI ID database.
type Database struct {
	vendors map[uint16]string // vendor ID -> vendor name
	devices map[uint32]string // (vendor<<16)|device -> device name
	loaded  bool
	mu      sync.RWMutex
	paths   []string
}

// New creates a PCI ID database that searches the default paths.
func New() *Database {
	return NewWithPaths(DefaultPaths)
}

// NewWithPaths creates a PCI ID database that searches the specified paths.
func NewWithPaths(paths []string) *Database {
	return &Database{
		vendors: make(map[uint16]string),
		devices: make(map[uint32]string),
		paths:   paths,
	}
}

// Load parses the PCI ID database file. This method is idempotent;
// subsequent calls do nothing once the database is loaded.
//
// Returns true if a database file was loaded (or already loaded),
// false if no database file could be found.
func (db *Database) Load() bool {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.loaded {
		return true
	}

	for _, path := range db.paths {
		file, err := os.Open(path)
		if err != nil {
			continue
		}
		db.parseDatabase(file)
		file.Close()
		db.loaded = true
		return true
	}

	// Mark as loaded even if no file was found to prevent repeated
	// searches; lookups fall back to the built-in table.
	db.loaded = true
	return false
}

// parseDatabase parses the pci.ids format: vendor lines start in
// column zero ("xxxx  Vendor Name"), device lines are indented one tab
// ("\txxxx  Device Name"), and subsystem lines two tabs. The class
// section at the end of the file ("C xx  Class Name") is ignored.
func (db *Database) parseDatabase(file *os.File) {
	scanner := bufio.NewScanner(file)
	var currentVendor uint16
	haveVendor := false

	for scanner.Scan() {
		line := scanner.Text()

		// Skip empty lines and comments
		if len(line) == 0 || line[0] == '#' {
			continue
		}

		if line[0] == '\t' {
			// Device line; subsystem lines keep a second tab and are
			// skipped by the parse failure below.
			if !haveVendor {
				continue
			}
			line = line[1:]
			if len(line) < 6 {
				continue
			}
			device, err := strconv.ParseUint(line[:4], 16, 16)
			if err != nil {
				continue
			}
			if line[4] == ' ' {
				name := strings.TrimLeft(line[5:], " ")
				key := uint32(currentVendor)<<16 | uint32(device)
				db.devices[key] = name
			}
		} else if len(line) >= 6 {
			// Vendor line; the trailing class section fails the parse
			// and clears the current vendor.
			vendor, err := strconv.ParseUint(line[:4], 16, 16)
			if err != nil {
				haveVendor = false
				continue
			}
			currentVendor = uint16(vendor)
			haveVendor = true
			if line[4] == ' ' {
				name := strings.TrimLeft(line[5:], " ")
				db.vendors[currentVendor] = name
			}
		} else {
			haveVendor = false
		}
	}
}

// LookupVendor returns the vendor name for the given vendor ID. The
// built-in table answers for well-known vendors when the database has
// no entry. Returns an empty string for unknown vendors.
func (db *Database) LookupVendor(vendor uint16) string {
	db.mu.RLock()
	name := db.vendors[vendor]
	db.mu.RUnlock()

	if name == "" {
		name = builtinVendors[vendor]
	}
	return name
}

// LookupDevice returns the device name for the given vendor/device ID
// pair. Returns an empty string if the device is not found or the
// database has not been loaded.
func (db *Database) LookupDevice(vendor, device uint16) string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.devices[uint32(vendor)<<16|uint32(device)]
}

// IsLoaded returns true once a load has been attempted.
func (db *Database) IsLoaded() bool {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.loaded
}

// VendorCount returns the number of vendors parsed from the database.
func (db *Database) VendorCount() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.vendors)
}

// DeviceCount returns the number of devices parsed from the database.
func (db *Database) DeviceCount() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.devices)
}
