package errors

import (
	"encoding/json"
	"fmt"

	log "github.com/sirupsen/logrus"
	grpccodes "google.golang.org/grpc/codes"
)

// Class groups error codes into the three failure families callers have to
// distinguish: precondition violations are final for the given call,
// external-not-ready failures are safe to retry, terminal replays signal an
// already resolved request.
type Class uint8

const (
	ClassPreconditionViolation Class = iota
	ClassExternalNotReady
	ClassTerminalReplay
	ClassInternal
)

func (c Class) String() string {
	return []string{
		"PreconditionViolation",
		"ExternalNotReady",
		"TerminalReplay",
		"Internal",
	}[c]
}

// Code is the type representing a namespace error code.
type Code[MT any] struct {
	Code     uint16
	Name     string
	Class    Class
	GrpcCode grpccodes.Code
}

// New creates a new error with the given code and the message
func (c Code[MT]) New(msg string, args ...any) TypedError[MT] {
	return &ErrorImpl[MT]{
		code:  c,
		cause: fmt.Errorf(msg, args...),
	}
}

// Wrap creates a new Error with the given code and the cause error
func (c Code[MT]) Wrap(cause error) TypedError[MT] {
	return &ErrorImpl[MT]{
		code:  c,
		cause: cause,
	}
}

func (c Code[MT]) String() string {
	return fmt.Sprintf("%s (%d)", c.Name, c.Code)
}

type Error interface {
	error
	Log() *log.Entry
	Code() uint16
	CodeName() string
	Class() Class
	GrpcCode() grpccodes.Code
	Metadata() map[string]string
}

type TypedError[MT any] interface {
	Error
	WithMetadata(MT) TypedError[MT]
}

// ErrorImpl is the default concrete implementation of TypedError.
type ErrorImpl[MT any] struct {
	code     Code[MT]
	cause    error
	metadata MT
}

func (e *ErrorImpl[MT]) Log() *log.Entry {
	return log.WithField("name", e.code.Name).
		WithField("code", e.code.Code).
		WithField("class", e.code.Class.String()).
		WithField("metadata", e.metadata)
}

func (e *ErrorImpl[MT]) Metadata() map[string]string {
	// convert any metadata to map[string]string
	metadata := make(map[string]string)
	buf, err := json.Marshal(e.metadata)
	if err == nil {
		var genericMap map[string]any
		if err := json.Unmarshal(buf, &genericMap); err == nil {
			for k, v := range genericMap {
				vStr := ""
				if v != nil {
					vStr = fmt.Sprintf("%v", v)
				}
				metadata[k] = vStr
			}
		}
	}
	return metadata
}

func (e *ErrorImpl[MT]) GrpcCode() grpccodes.Code {
	return e.code.GrpcCode
}

func (e *ErrorImpl[MT]) Code() uint16 {
	return e.code.Code
}

func (e *ErrorImpl[MT]) CodeName() string {
	return e.code.Name
}

func (e *ErrorImpl[MT]) Class() Class {
	return e.code.Class
}

// Error() implements the error interface.
func (e *ErrorImpl[MT]) Error() string {
	return fmt.Sprintf("%s: %s", e.code.String(), e.cause.Error())
}

func (e *ErrorImpl[MT]) WithMetadata(metadata MT) TypedError[MT] {
	e.metadata = metadata
	return e
}

// IsClass reports whether err carries a code of the given class.
func IsClass(err error, class Class) bool {
	typed, ok := err.(Error)
	if !ok {
		return false
	}
	return typed.Class() == class
}

type TokenMetadata struct {
	TokenId string `json:"token_id"`
}

type RequestMetadata struct {
	RequestId string `json:"request_id"`
	TokenId   string `json:"token_id"`
}

type RequestStatusMetadata struct {
	RequestId string `json:"request_id"`
	Status    string `json:"status"`
}

type AddressMetadata struct {
	Address string `json:"address"`
}

type TimeoutMetadata struct {
	TimeoutAt int64 `json:"timeout_at"`
	Now       int64 `json:"now"`
}

type FeeMetadata struct {
	Required uint64 `json:"required"`
	Got      uint64 `json:"got"`
}

type DisputeMetadata struct {
	DisputeHandle string `json:"dispute_handle"`
}

type SuccessionMetadata struct {
	StartAddress string `json:"start_address"`
	MaxDepth     int    `json:"max_depth"`
}

type ReputationMetadata struct {
	Address  string `json:"address"`
	Required int64  `json:"required"`
	Got      int64  `json:"got"`
}

type StrayRecoveryMetadata struct {
	Contract string `json:"contract"`
	Amount   uint64 `json:"amount"`
}

var INTERNAL_ERROR = Code[map[string]any]{
	0, "INTERNAL_ERROR", ClassInternal, grpccodes.Internal,
}

var TOKEN_NOT_FOUND = Code[TokenMetadata]{
	1, "TOKEN_NOT_FOUND", ClassPreconditionViolation, grpccodes.NotFound,
}

var NOT_AUTHORIZED = Code[AddressMetadata]{
	2, "NOT_AUTHORIZED", ClassPreconditionViolation, grpccodes.PermissionDenied,
}

var REQUEST_ALREADY_LIVE = Code[RequestMetadata]{
	3, "REQUEST_ALREADY_LIVE", ClassPreconditionViolation, grpccodes.AlreadyExists,
}

var REQUEST_NOT_FOUND = Code[TokenMetadata]{
	4, "REQUEST_NOT_FOUND", ClassPreconditionViolation, grpccodes.NotFound,
}

var WRONG_REQUEST_STATUS = Code[RequestStatusMetadata]{
	5, "WRONG_REQUEST_STATUS", ClassPreconditionViolation, grpccodes.FailedPrecondition,
}

var TIMEOUT_NOT_ELAPSED = Code[TimeoutMetadata]{
	6, "TIMEOUT_NOT_ELAPSED", ClassPreconditionViolation, grpccodes.FailedPrecondition,
}

var UNREGISTERED_ADDRESS = Code[AddressMetadata]{
	7, "UNREGISTERED_ADDRESS", ClassPreconditionViolation, grpccodes.FailedPrecondition,
}

var SELF_TARGET_FORBIDDEN = Code[AddressMetadata]{
	8, "SELF_TARGET_FORBIDDEN", ClassPreconditionViolation, grpccodes.InvalidArgument,
}

var INSUFFICIENT_FEE = Code[FeeMetadata]{
	9, "INSUFFICIENT_FEE", ClassPreconditionViolation, grpccodes.FailedPrecondition,
}

var TRANSFER_LOCKED = Code[RequestMetadata]{
	10, "TRANSFER_LOCKED", ClassPreconditionViolation, grpccodes.FailedPrecondition,
}

var SUCCESSION_TOO_DEEP = Code[SuccessionMetadata]{
	11, "SUCCESSION_TOO_DEEP", ClassPreconditionViolation, grpccodes.FailedPrecondition,
}

var REPUTATION_TOO_LOW = Code[ReputationMetadata]{
	12, "REPUTATION_TOO_LOW", ClassPreconditionViolation, grpccodes.FailedPrecondition,
}

var INVALID_ASSET = Code[map[string]any]{
	13, "INVALID_ASSET", ClassPreconditionViolation, grpccodes.InvalidArgument,
}

var STRAY_RECOVERY_FORBIDDEN = Code[StrayRecoveryMetadata]{
	14, "STRAY_RECOVERY_FORBIDDEN", ClassPreconditionViolation, grpccodes.FailedPrecondition,
}

var RULING_NOT_READY = Code[DisputeMetadata]{
	15, "RULING_NOT_READY", ClassExternalNotReady, grpccodes.Unavailable,
}

var TERMINAL_REPLAY = Code[RequestStatusMetadata]{
	16, "TERMINAL_REPLAY", ClassTerminalReplay, grpccodes.FailedPrecondition,
}

var ARBITRATOR_NOT_FOUND = Code[map[string]any]{
	17, "ARBITRATOR_NOT_FOUND", ClassPreconditionViolation, grpccodes.NotFound,
}

var DEPOSIT_GATE_BUSY = Code[TokenMetadata]{
	18, "DEPOSIT_GATE_BUSY", ClassPreconditionViolation, grpccodes.Aborted,
}

var ALREADY_RECOGNIZED_OWNER = Code[AddressMetadata]{
	19, "ALREADY_RECOGNIZED_OWNER", ClassPreconditionViolation, grpccodes.FailedPrecondition,
}
