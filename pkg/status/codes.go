// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package status

import (
	"errors"
	"fmt"
)

// Code is a fine grained error code merged into the low bits of a Word.
type Code uint32

// Error codes. The second byte groups them by the component which raised
// them.
const (
	CodeNone Code = 0x000000

	// Element directory.
	CodeDirectoryCorrupt Code = 0x000101
	CodeElementNotFound  Code = 0x000102

	// Image structure.
	CodeSentinelMismatch     Code = 0x000201
	CodeHeaderSizeOutOfRange Code = 0x000202
	CodeIdentityMismatch     Code = 0x000203
	CodePackageTypeMismatch  Code = 0x000204
	CodeSectionOutOfRange    Code = 0x000205
	CodeUnknownSectionType   Code = 0x000206
	CodeDecompressionFailed  Code = 0x000207
	CodeSectionCollision     Code = 0x000208
	CodeSectionOrder         Code = 0x000209
	CodeInvalidStartAddress  Code = 0x00020a
	CodeLoadAddressInvalid   Code = 0x00020b

	// Transport.
	CodeTransportInit    Code = 0x000301
	CodeTransportRead    Code = 0x000302
	CodeTransportFinish  Code = 0x000303
	CodeTransportTimeout Code = 0x000304

	// Trust.
	CodeSignatureUnverifiable Code = 0x000401
	CodeBadSecret             Code = 0x000402
	CodeKeysNotDerived        Code = 0x000403
	CodeKeysAlreadyDerived    Code = 0x000404
	CodeSecretsRevoked        Code = 0x000405

	// Orchestration.
	CodeStatusRegister    Code = 0x000501
	CodeStatusRegression  Code = 0x000502
	CodePreviousBootFail  Code = 0x000503
	CodeBootControl       Code = 0x000504
	CodeNoBootableImage   Code = 0x000505
	CodeLaunchFailed      Code = 0x000506
	CodeUnexpectedFailure Code = 0x0005ff
)

var codeNames = map[Code]string{
	CodeNone:                  "NONE",
	CodeDirectoryCorrupt:      "DIRECTORY_CORRUPT",
	CodeElementNotFound:       "ELEMENT_NOT_FOUND",
	CodeSentinelMismatch:      "SENTINEL_MISMATCH",
	CodeHeaderSizeOutOfRange:  "HEADER_SIZE_OUT_OF_RANGE",
	CodeIdentityMismatch:      "IDENTITY_MISMATCH",
	CodePackageTypeMismatch:   "PACKAGE_TYPE_MISMATCH",
	CodeSectionOutOfRange:     "SECTION_OUT_OF_RANGE",
	CodeUnknownSectionType:    "UNKNOWN_SECTION_TYPE",
	CodeDecompressionFailed:   "DECOMPRESSION_FAILED",
	CodeSectionCollision:      "SECTION_COLLISION",
	CodeSectionOrder:          "SECTION_ORDER",
	CodeInvalidStartAddress:   "INVALID_START_ADDRESS",
	CodeLoadAddressInvalid:    "LOAD_ADDRESS_INVALID",
	CodeTransportInit:         "TRANSPORT_INIT",
	CodeTransportRead:         "TRANSPORT_READ",
	CodeTransportFinish:       "TRANSPORT_FINISH",
	CodeTransportTimeout:      "TRANSPORT_TIMEOUT",
	CodeSignatureUnverifiable: "SIGNATURE_UNVERIFIABLE",
	CodeBadSecret:             "BAD_SECRET",
	CodeKeysNotDerived:        "KEYS_NOT_DERIVED",
	CodeKeysAlreadyDerived:    "KEYS_ALREADY_DERIVED",
	CodeSecretsRevoked:        "SECRETS_REVOKED",
	CodeStatusRegister:        "STATUS_REGISTER",
	CodeStatusRegression:      "STATUS_REGRESSION",
	CodePreviousBootFail:      "PREVIOUS_BOOT_FAILED",
	CodeBootControl:           "BOOT_CONTROL",
	CodeNoBootableImage:       "NO_BOOTABLE_IMAGE",
	CodeLaunchFailed:          "LAUNCH_FAILED",
	CodeUnexpectedFailure:     "UNEXPECTED_FAILURE",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("CODE_%#06x", uint32(c))
}

// Coder is implemented by errors which carry a status Code.
type Coder interface {
	Code() Code
}

// CodeOf returns the first Code found in err's chain. Errors which carry
// no code map to CodeUnexpectedFailure, a nil error to CodeNone.
func CodeOf(err error) Code {
	if err == nil {
		return CodeNone
	}
	var c Coder
	if errors.As(err, &c) {
		return c.Code()
	}
	return CodeUnexpectedFailure
}

// Error is a plain error tagged with a Code.
type Error struct {
	C   Code
	Err error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.C.String()
	}
	return fmt.Sprintf("%s: %v", e.C, e.Err)
}

// Code implements Coder.
func (e *Error) Code() Code {
	return e.C
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf returns an *Error with code c and a formatted cause.
func Errorf(c Code, format string, args ...interface{}) error {
	return &Error{C: c, Err: fmt.Errorf(format, args...)}
}
