package cerr

import (
	"net/http"
	"strconv"

	"connectrpc.com/connect"

	"github.com/kazz187/taskmarket/pkg/clog"
)

// Code follows the gRPC status code numbering so it converts to connect
// codes one to one.
type Code int

const (
	OK                 = Code(0)
	Canceled           = Code(1)
	Unknown            = Code(2)
	InvalidArgument    = Code(3)
	DeadlineExceeded   = Code(4)
	NotFound           = Code(5)
	AlreadyExists      = Code(6)
	PermissionDenied   = Code(7)
	ResourceExhausted  = Code(8)
	FailedPrecondition = Code(9)
	Aborted            = Code(10)
	OutOfRange         = Code(11)
	Unimplemented      = Code(12)
	Internal           = Code(13)
	Unavailable        = Code(14)
	DataLoss           = Code(15)
	Unauthenticated    = Code(16)
)

type codeInfo struct {
	name   string
	status int
	severe bool // server side fault, logged at error level with a stack
}

var codes = map[Code]codeInfo{
	OK:                 {"ok", http.StatusOK, false},
	Canceled:           {"canceled", 499, false},
	Unknown:            {"unknown", http.StatusInternalServerError, true},
	InvalidArgument:    {"invalid_argument", http.StatusBadRequest, false},
	DeadlineExceeded:   {"deadline_exceeded", http.StatusGatewayTimeout, false},
	NotFound:           {"not_found", http.StatusNotFound, false},
	AlreadyExists:      {"already_exists", http.StatusConflict, false},
	PermissionDenied:   {"permission_denied", http.StatusForbidden, false},
	ResourceExhausted:  {"resource_exhausted", http.StatusTooManyRequests, true},
	FailedPrecondition: {"failed_precondition", http.StatusPreconditionFailed, false},
	Aborted:            {"aborted", http.StatusConflict, false},
	OutOfRange:         {"out_of_range", http.StatusBadRequest, false},
	Unimplemented:      {"unimplemented", http.StatusNotImplemented, true},
	Internal:           {"internal", http.StatusInternalServerError, true},
	Unavailable:        {"unavailable", http.StatusServiceUnavailable, true},
	DataLoss:           {"data_loss", http.StatusInternalServerError, true},
	Unauthenticated:    {"unauthenticated", http.StatusUnauthorized, false},
}

func (c Code) info() (codeInfo, bool) {
	info, ok := codes[c]
	return info, ok
}

// ConnectCode returns the connect code for c. OK maps to 0, which connect
// does not define.
func (c Code) ConnectCode() connect.Code {
	if _, ok := c.info(); !ok {
		return connect.CodeUnknown
	}
	return connect.Code(c)
}

func (c Code) HTTPCode() int {
	if info, ok := c.info(); ok {
		return info.status
	}
	return http.StatusInternalServerError
}

// Level is the log level a failure with this code is reported at.
func (c Code) Level() clog.Level {
	if info, ok := c.info(); ok && !info.severe {
		return clog.LevelInfo
	}
	return clog.LevelError
}

func (c Code) String() string {
	if info, ok := c.info(); ok {
		return info.name
	}
	return "code_" + strconv.Itoa(int(c))
}
