// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package httpd

import "fmt"

// Status is an HTTP response status code.
type Status int

const (
	StatusOK                          Status = 200
	StatusCreated                     Status = 201
	StatusAccepted                    Status = 202
	StatusNoContent                   Status = 204
	StatusMovedPermanently            Status = 301
	StatusFound                       Status = 302
	StatusNotModified                 Status = 304
	StatusBadRequest                  Status = 400
	StatusUnauthorized                Status = 401
	StatusForbidden                   Status = 403
	StatusNotFound                    Status = 404
	StatusMethodNotAllowed            Status = 405
	StatusRequestTimeout              Status = 408
	StatusConflict                    Status = 409
	StatusLengthRequired              Status = 411
	StatusPayloadTooLarge             Status = 413
	StatusURITooLong                  Status = 414
	StatusUnsupportedMediaType        Status = 415
	StatusTooManyRequests             Status = 429
	StatusRequestHeaderFieldsTooLarge Status = 431
	StatusInternalServerError         Status = 500
	StatusNotImplemented              Status = 501
	StatusServiceUnavailable          Status = 503
	StatusHTTPVersionNotSupported     Status = 505
)

var reasonPhrases = map[Status]string{
	StatusOK:                          "OK",
	StatusCreated:                     "Created",
	StatusAccepted:                    "Accepted",
	StatusNoContent:                   "No Content",
	StatusMovedPermanently:            "Moved Permanently",
	StatusFound:                       "Found",
	StatusNotModified:                 "Not Modified",
	StatusBadRequest:                  "Bad Request",
	StatusUnauthorized:                "Unauthorized",
	StatusForbidden:                   "Forbidden",
	StatusNotFound:                    "Not Found",
	StatusMethodNotAllowed:            "Method Not Allowed",
	StatusRequestTimeout:              "Request Timeout",
	StatusConflict:                    "Conflict",
	StatusLengthRequired:              "Length Required",
	StatusPayloadTooLarge:             "Payload Too Large",
	StatusURITooLong:                  "URI Too Long",
	StatusUnsupportedMediaType:        "Unsupported Media Type",
	StatusTooManyRequests:             "Too Many Requests",
	StatusRequestHeaderFieldsTooLarge: "Request Header Fields Too Large",
	StatusInternalServerError:         "Internal Server Error",
	StatusNotImplemented:              "Not Implemented",
	StatusServiceUnavailable:          "Service Unavailable",
	StatusHTTPVersionNotSupported:     "HTTP Version Not Supported",
}

// String returns the reason phrase of s. Codes without a
// registered phrase fall back to the generic phrase of their class.
func (s Status) String() string {
	if phrase, ok := reasonPhrases[s]; ok {
		return phrase
	}
	switch {
	case s >= 100 && s < 200:
		return "Informational"
	case s >= 200 && s < 300:
		return "Success"
	case s >= 300 && s < 400:
		return "Redirection"
	case s >= 400 && s < 500:
		return "Client Error"
	case s >= 500 && s < 600:
		return "Server Error"
	default:
		return "Unknown"
	}
}

// Reference returns the URL of a document describing s.
func (s Status) Reference() string {
	return fmt.Sprintf("https://developer.mozilla.org/en-US/docs/Web/HTTP/Status/%d", int(s))
}

func (s Status) valid() bool {
	return s >= 100 && s <= 599
}
