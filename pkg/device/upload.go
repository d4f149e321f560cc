// Static configuration upload protocol
//
// Copyright (C) 2026  SJA1105-Go Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package device

import (
	"time"

	"sja1105-go/pkg/sjaerr"
	"sja1105-go/pkg/spi"
	"sja1105-go/pkg/static"
)

const (
	uploadRetries = 10
	// The chip needs a moment to come out of cold reset before it
	// accepts the configuration stream.
	resetSettleTime = 5 * time.Millisecond
)

// PrepareUpload validates the configuration against this chip and packs
// it into an upload-ready buffer: the packed stream with the final
// header's placeholder CRC replaced by the global CRC over everything
// before it. The configuration itself is not modified.
func (d *Device) PrepareUpload(config *static.Config) ([]byte, error) {
	if valid := config.CheckValid(); valid != static.ConfigOK {
		return nil, sjaerr.StaticInvalidError(valid.String())
	}
	if config.DeviceID != d.DeviceID {
		return nil, sjaerr.StaticDeviceIDError(config.DeviceID, d.DeviceID)
	}

	buf := make([]byte, config.PackedLen())
	config.Pack(buf)

	// The global CRC covers the whole stream up to, but not including,
	// its own word, which is the last word of the final header.
	crc := static.CRC32(buf[:len(buf)-4])
	finalHeader := buf[len(buf)-static.SizeTableHeader:]
	packField(finalHeader, crc, 95, 64)

	return buf, nil
}

// UploadStaticConfig programs a static configuration into the chip: cold
// reset, stream the configuration into the staging area, then check the
// general status for the chip's verdict. Every hardware-reported failure
// restarts the sequence, up to the retry budget.
func (d *Device) UploadStaticConfig(config *static.Config) error {
	buf, err := d.PrepareUpload(config)
	if err != nil {
		return err
	}

	for try := 1; try <= uploadRetries; try++ {
		// Put the chip in configuration-loading mode.
		if err := d.ColdReset(); err != nil {
			logger.Error("reset failed, retrying: %v", err)
			continue
		}
		time.Sleep(resetSettleTime)

		if err := d.bus.SendLongPackedBuf(spi.Write, d.Regs.Config, buf); err != nil {
			logger.Error("configuration upload failed, retrying: %v", err)
			continue
		}

		status, err := d.GeneralStatus()
		if err != nil {
			logger.Error("status readout failed, retrying: %v", err)
			continue
		}
		if status.Ids == 1 {
			logger.Chip(d.DeviceID).Error("chip rejected the device id in the stream (%#x); chip is %s",
				config.DeviceID, d.Name())
			continue
		}
		if status.Crcchkl == 1 {
			logger.Error("chip reported an invalid local CRC, retrying")
			continue
		}
		if status.Crcchkg == 1 {
			logger.Error("chip reported an invalid global CRC, retrying")
			continue
		}
		if status.Configs == 0 {
			logger.Error("chip reported the configuration as invalid, retrying")
			continue
		}

		if try > 1 {
			logger.Info("upload succeeded after %d tries", try)
		}
		logger.Chip(d.DeviceID).Info("reset switch and programmed static config (%d bytes)", len(buf))
		return nil
	}

	return sjaerr.DeviceUploadError("chip did not accept the configuration")
}
