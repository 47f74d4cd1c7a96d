// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package httpd

// Well known header names.
const (
	HeaderUserAgent      = "User-Agent"
	HeaderHost           = "Host"
	HeaderAcceptLanguage = "Accept-Language"
	HeaderAcceptEncoding = "Accept-Encoding"
	HeaderConnection     = "Connection"
	HeaderContentType    = "Content-Type"
	HeaderContentLength  = "Content-Length"
	HeaderLocation       = "Location"
	HeaderAllow          = "Allow"
)

// Media types set by the server itself.
const (
	ContentTypeText = "text/plain"
	ContentTypeHTML = "text/html"
	ContentTypeJSON = "application/json"
)
