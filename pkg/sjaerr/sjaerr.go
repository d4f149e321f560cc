// Unified error handling for the switch driver
//
// Copyright (C) 2026  SJA1105-Go Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package sjaerr

import (
	"fmt"
	"runtime"
)

// ErrorCode represents the category of error
type ErrorCode string

const (
	// Configuration file errors
	ErrConfigParse      ErrorCode = "CONFIG_PARSE"
	ErrConfigOption     ErrorCode = "CONFIG_OPTION"
	ErrConfigValidation ErrorCode = "CONFIG_VALIDATION"

	// Static configuration errors
	ErrStaticInvalid  ErrorCode = "STATIC_INVALID"
	ErrStaticDeviceID ErrorCode = "STATIC_DEVICE_ID"
	ErrStaticDecode   ErrorCode = "STATIC_DECODE"

	// Transport errors
	ErrTransport     ErrorCode = "TRANSPORT"
	ErrTransportSize ErrorCode = "TRANSPORT_SIZE"

	// Device errors
	ErrDeviceProbe   ErrorCode = "DEVICE_PROBE"
	ErrDeviceReset   ErrorCode = "DEVICE_RESET"
	ErrDeviceUpload  ErrorCode = "DEVICE_UPLOAD"
	ErrDeviceStatus  ErrorCode = "DEVICE_STATUS"
	ErrDeviceUnknown ErrorCode = "DEVICE_UNKNOWN"

	// Dynamic reconfiguration errors
	ErrDynAccess ErrorCode = "DYN_ACCESS"

	// Schedule builder errors
	ErrTASConflict ErrorCode = "TAS_CONFLICT"
	ErrTASLimits   ErrorCode = "TAS_LIMITS"

	// Runtime errors
	ErrRuntime     ErrorCode = "RUNTIME"
	ErrRuntimeInit ErrorCode = "RUNTIME_INIT"
)

// DriverError is the unified error type for the driver
type DriverError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Table is the configuration table involved (if applicable)
	Table string

	// Port is the switch port involved, or -1
	Port int

	// Err wraps the underlying error
	Err error

	// Context provides additional context
	Context map[string]interface{}
}

// Error implements the error interface
func (e *DriverError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("[%s:%s] %s", e.Code, e.Table, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DriverError) Unwrap() error {
	return e.Err
}

// SetTable sets the configuration table context
func (e *DriverError) SetTable(table string) *DriverError {
	e.Table = table
	return e
}

// SetPort sets the switch port context
func (e *DriverError) SetPort(port int) *DriverError {
	e.Port = port
	return e
}

// SetContext adds additional context
func (e *DriverError) SetContext(key string, value interface{}) *DriverError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new DriverError
func New(code ErrorCode, message string) *DriverError {
	return &DriverError{
		Code:    code,
		Message: message,
		Port:    -1,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, code ErrorCode, message string) *DriverError {
	e := New(code, message)
	e.Err = err
	return e
}

// Config errors

// ConfigParseError creates an error for an unreadable config file
func ConfigParseError(path string, err error) *DriverError {
	return Wrap(err, ErrConfigParse, fmt.Sprintf("cannot parse config file '%s'", path)).
		SetContext("config_path", path)
}

// ConfigOptionError creates an error for a missing or invalid option
func ConfigOptionError(option, reason string) *DriverError {
	return New(ErrConfigOption, fmt.Sprintf("option '%s': %s", option, reason)).
		SetContext("option", option)
}

// ConfigValidationError creates an error for config validation failure
func ConfigValidationError(reason string) *DriverError {
	return New(ErrConfigValidation, reason)
}

// Static configuration errors

// StaticInvalidError reports a configuration the chip would reject
func StaticInvalidError(reason string) *DriverError {
	return New(ErrStaticInvalid, reason)
}

// StaticDeviceIDError reports a staged config built for the wrong chip
func StaticDeviceIDError(configID, chipID uint64) *DriverError {
	return New(ErrStaticDeviceID,
		fmt.Sprintf("static config is for device id %#x but the chip is %#x", configID, chipID))
}

// StaticDecodeError reports a packed stream that failed to parse
func StaticDecodeError(reason string) *DriverError {
	return New(ErrStaticDecode, reason)
}

// Transport errors

// TransportError wraps a failed SPI transfer
func TransportError(operation string, err error) *DriverError {
	return Wrap(err, ErrTransport, fmt.Sprintf("SPI %s failed", operation))
}

// TransportSizeError reports a message exceeding the transfer limit
func TransportSizeError(size, max int) *DriverError {
	return New(ErrTransportSize,
		fmt.Sprintf("SPI message (%d bytes) longer than max of %d", size, max))
}

// Device errors

// DeviceProbeError reports a failure to identify the chip
func DeviceProbeError(reason string) *DriverError {
	return New(ErrDeviceProbe, reason)
}

// DeviceUnknownError reports an unrecognized device ID readout
func DeviceUnknownError(deviceID uint64) *DriverError {
	return New(ErrDeviceUnknown,
		fmt.Sprintf("unrecognized device id %#x", deviceID))
}

// DeviceUploadError reports a static config upload failure
func DeviceUploadError(reason string) *DriverError {
	return New(ErrDeviceUpload, reason)
}

// DeviceResetError wraps a failed reset command
func DeviceResetError(err error) *DriverError {
	return Wrap(err, ErrDeviceReset, "failed to reset switch")
}

// Dynamic reconfiguration errors

// DynAccessError creates an error for a failed dynamic table operation
func DynAccessError(table, operation string, index int, err error) *DriverError {
	return Wrap(err, ErrDynAccess,
		fmt.Sprintf("dynamic %s at index %d failed", operation, index)).
		SetTable(table).
		SetContext("index", index)
}

// Schedule builder errors

// TASConflictError reports overlapping gate windows on a port
func TASConflictError(port int, reason string) *DriverError {
	return New(ErrTASConflict, reason).SetPort(port)
}

// TASLimitsError reports a schedule the hardware cannot represent
func TASLimitsError(reason string) *DriverError {
	return New(ErrTASLimits, reason)
}

// Runtime errors

// RuntimeError creates a general runtime error
func RuntimeError(message string) *DriverError {
	return New(ErrRuntime, message)
}

// RuntimeErrorInit creates an error for initialization failure
func RuntimeErrorInit(component string, reason string) *DriverError {
	return New(ErrRuntimeInit, fmt.Sprintf("failed to initialize %s: %s", component, reason))
}

// RecoverPanic safely recovers from panic and converts to error
func RecoverPanic() *DriverError {
	if r := recover(); r != nil {
		var err error
		switch x := r.(type) {
		case string:
			err = RuntimeError(fmt.Sprintf("panic: %s", x))
		case runtime.Error:
			err = RuntimeError(x.Error())
		case error:
			err = RuntimeError(x.Error())
		default:
			err = RuntimeError(fmt.Sprintf("panic: %v", x))
		}
		return err.(*DriverError)
	}
	return nil
}

// Is checks if error matches given error code
func Is(err error, code ErrorCode) bool {
	if drvErr, ok := err.(*DriverError); ok {
		return drvErr.Code == code
	}
	return false
}

// IsConfig checks if error is a config error
func IsConfig(err error) bool {
	return Is(err, ErrConfigParse) ||
		Is(err, ErrConfigOption) ||
		Is(err, ErrConfigValidation)
}

// IsTransport checks if error is a transport error
func IsTransport(err error) bool {
	return Is(err, ErrTransport) || Is(err, ErrTransportSize)
}

// IsDevice checks if error is a device error
func IsDevice(err error) bool {
	return Is(err, ErrDeviceProbe) ||
		Is(err, ErrDeviceReset) ||
		Is(err, ErrDeviceUpload) ||
		Is(err, ErrDeviceStatus) ||
		Is(err, ErrDeviceUnknown)
}
