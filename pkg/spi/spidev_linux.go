// Linux spidev transport
//
// Copyright (C) 2026  SJA1105-Go Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

//go:build linux

package spi

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// DeviceConfig holds spidev transport configuration.
type DeviceConfig struct {
	// Device path (e.g. /dev/spidev0.1)
	Device string

	// Clock rate in Hz (default: 4 MHz, the chip accepts up to 25 MHz)
	SpeedHz uint32

	// SPI mode bits (the switch samples on the falling edge: mode 1)
	Mode uint8
}

// DefaultDeviceConfig returns a DeviceConfig with default values.
func DefaultDeviceConfig() DeviceConfig {
	return DeviceConfig{
		SpeedHz: 4000000,
		Mode:    SPIMode1,
	}
}

// Mode bits from linux/spi/spidev.h. The unix package exposes no spidev
// interface, so everything spidev is defined locally.
const (
	spiCPHA = 0x01

	// SPIMode1 samples on the falling clock edge (CPOL=0, CPHA=1).
	SPIMode1 = spiCPHA
)

// spidev ioctl request layout, linux/spi/spidev.h. The ioctl numbers are
// _IOW macros over the magic, a request number and the argument size.
type spiIOCTransfer struct {
	txBuf       uint64
	rxBuf       uint64
	len         uint32
	speedHz     uint32
	delayUsecs  uint16
	bitsPerWord uint8
	csChange    uint8
	txNbits     uint8
	rxNbits     uint8
	pad         uint16
}

const (
	iocWrite     = 1
	iocNrShift   = 0
	iocTypeShift = 8
	iocSizeShift = 16
	iocDirShift  = 30
	spiIOCMagic  = 'k'
)

// spiIOW computes _IOW(SPI_IOC_MAGIC, nr, size).
func spiIOW(nr, size int) uint {
	return uint(iocWrite)<<iocDirShift |
		uint(size)<<iocSizeShift |
		uint(spiIOCMagic)<<iocTypeShift |
		uint(nr)<<iocNrShift
}

// Write-direction ioctl numbers for mode, word size and clock rate.
var (
	spiIOCWrMode        = spiIOW(1, 1)
	spiIOCWrBitsPerWord = spiIOW(3, 1)
	spiIOCWrMaxSpeedHz  = spiIOW(4, 4)
)

// The full-duplex message ioctl number is a macro over the transfer count.
func spiIOCMessage(n int) uint {
	return spiIOW(0, n*int(unsafe.Sizeof(spiIOCTransfer{})))
}

// Device is a Transport over a Linux spidev character device.
type Device struct {
	fd     int
	config DeviceConfig
}

// OpenDevice opens a spidev node and applies mode and clock settings.
func OpenDevice(cfg DeviceConfig) (*Device, error) {
	if cfg.Device == "" {
		return nil, fmt.Errorf("spi: device path required")
	}
	if cfg.SpeedHz == 0 {
		cfg.SpeedHz = DefaultDeviceConfig().SpeedHz
	}

	fd, err := unix.Open(cfg.Device, unix.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("spi: open %s: %w", cfg.Device, err)
	}

	if err := unix.IoctlSetPointerInt(fd, spiIOCWrMode, int(cfg.Mode)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("spi: set mode: %w", err)
	}
	if err := unix.IoctlSetPointerInt(fd, spiIOCWrMaxSpeedHz, int(cfg.SpeedHz)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("spi: set speed: %w", err)
	}
	if err := unix.IoctlSetPointerInt(fd, spiIOCWrBitsPerWord, 8); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("spi: set word size: %w", err)
	}

	return &Device{fd: fd, config: cfg}, nil
}

// Transfer performs one full-duplex transfer with chip select held for its
// duration.
func (d *Device) Transfer(tx, rx []byte) error {
	if len(tx) != len(rx) {
		return fmt.Errorf("spi: tx/rx length mismatch: %d != %d", len(tx), len(rx))
	}
	transfer := spiIOCTransfer{
		txBuf:   uint64(uintptr(unsafe.Pointer(&tx[0]))),
		rxBuf:   uint64(uintptr(unsafe.Pointer(&rx[0]))),
		len:     uint32(len(tx)),
		speedHz: d.config.SpeedHz,
	}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd),
		uintptr(spiIOCMessage(1)), uintptr(unsafe.Pointer(&transfer)))
	if errno != 0 {
		return fmt.Errorf("spi: transfer on %s: %w", d.config.Device, errno)
	}
	return nil
}

// Close releases the device node.
func (d *Device) Close() error {
	return unix.Close(d.fd)
}
