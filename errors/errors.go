package errors

import (
	"github.com/pingcap/errors"
)

// errors
var (
	// queue related errors
	ErrQueueCorrupted = errors.Normalize(
		"queue is corrupted: %s",
		errors.RFCCodeText("QTEST:ErrQueueCorrupted"),
	)
	ErrQueueAllocFailed = errors.Normalize(
		"%s failed to allocate",
		errors.RFCCodeText("QTEST:ErrQueueAllocFailed"),
	)
	ErrQueueOpFailed = errors.Normalize(
		"%s failed",
		errors.RFCCodeText("QTEST:ErrQueueOpFailed"),
	)
	ErrQueueOpSucceeded = errors.Normalize(
		"%s unexpectedly succeeded on %s queue",
		errors.RFCCodeText("QTEST:ErrQueueOpSucceeded"),
	)
	ErrUnexpectedAllocation = errors.Normalize(
		"%s allocated or released storage %d times",
		errors.RFCCodeText("QTEST:ErrUnexpectedAllocation"),
	)
	ErrQueueSizeMismatch = errors.Normalize(
		"computed queue size as %d, but correct value is %d",
		errors.RFCCodeText("QTEST:ErrQueueSizeMismatch"),
	)
	ErrQueueNotSorted = errors.Normalize(
		"queue not sorted in ascending order at position %d: %q > %q",
		errors.RFCCodeText("QTEST:ErrQueueNotSorted"),
	)
	ErrRemoveMismatch = errors.Normalize(
		"removed value %q, expected %q",
		errors.RFCCodeText("QTEST:ErrRemoveMismatch"),
	)
	ErrRemoveBufferCorrupted = errors.Normalize(
		"remove buffer is not terminated within %d bytes",
		errors.RFCCodeText("QTEST:ErrRemoveBufferCorrupted"),
	)
	ErrLeakedBlocks = errors.Normalize(
		"%d blocks (%s) still allocated",
		errors.RFCCodeText("QTEST:ErrLeakedBlocks"),
	)

	// console related errors
	ErrUnknownCommand = errors.Normalize(
		"unknown command %q",
		errors.RFCCodeText("QTEST:ErrUnknownCommand"),
	)
	ErrInvalidArgument = errors.Normalize(
		"invalid argument for %s: %v",
		errors.RFCCodeText("QTEST:ErrInvalidArgument"),
	)
	ErrUnknownOption = errors.Normalize(
		"unknown option %q",
		errors.RFCCodeText("QTEST:ErrUnknownOption"),
	)
	ErrParseCommandLine = errors.Normalize(
		"parse command line failed",
		errors.RFCCodeText("QTEST:ErrParseCommandLine"),
	)
	ErrSourceScript = errors.Normalize(
		"source script failed",
		errors.RFCCodeText("QTEST:ErrSourceScript"),
	)
	ErrErrorLimitReached = errors.Normalize(
		"error limit %d reached",
		errors.RFCCodeText("QTEST:ErrErrorLimitReached"),
	)
	ErrConsoleErrors = errors.Normalize(
		"%d errors occurred",
		errors.RFCCodeText("QTEST:ErrConsoleErrors"),
	)

	// config related errors
	ErrDecodeConfigFile = errors.Normalize(
		"decode config file failed",
		errors.RFCCodeText("QTEST:ErrDecodeConfigFile"),
	)
	ErrConfigUnknownItem = errors.Normalize(
		"unknown config items: %s",
		errors.RFCCodeText("QTEST:ErrConfigUnknownItem"),
	)
	ErrConfigInvalid = errors.Normalize(
		"invalid config %s: %v",
		errors.RFCCodeText("QTEST:ErrConfigInvalid"),
	)
	ErrInitLogger = errors.Normalize(
		"init logger failed",
		errors.RFCCodeText("QTEST:ErrInitLogger"),
	)
)
