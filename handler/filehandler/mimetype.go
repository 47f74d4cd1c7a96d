// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package filehandler

import (
	"mime"
	"path/filepath"
	"strings"
)

// DefaultMediaType is used for files whose extension is unknown.
const DefaultMediaType = "application/octet-stream"

var mediaTypes = map[string]string{
	"7z":    "application/x-7z-compressed",
	"atom":  "application/atom+xml",
	"bin":   "application/octet-stream",
	"bmp":   "image/bmp",
	"css":   "text/css",
	"csv":   "text/csv",
	"doc":   "application/msword",
	"docx":  "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"gif":   "image/gif",
	"gz":    "application/gzip",
	"htm":   "text/html",
	"html":  "text/html",
	"ico":   "image/x-icon",
	"jar":   "application/java-archive",
	"jpeg":  "image/jpeg",
	"jpg":   "image/jpeg",
	"js":    "text/javascript",
	"json":  "application/json",
	"map":   "application/json",
	"md":    "text/markdown",
	"mjs":   "text/javascript",
	"mp3":   "audio/mpeg",
	"mp4":   "video/mp4",
	"mpeg":  "video/mpeg",
	"ogg":   "audio/ogg",
	"otf":   "font/otf",
	"pdf":   "application/pdf",
	"png":   "image/png",
	"ppt":   "application/vnd.ms-powerpoint",
	"rar":   "application/vnd.rar",
	"rss":   "application/rss+xml",
	"rtf":   "application/rtf",
	"svg":   "image/svg+xml",
	"tar":   "application/x-tar",
	"ttf":   "font/ttf",
	"txt":   "text/plain",
	"wasm":  "application/wasm",
	"wav":   "audio/wav",
	"webm":  "video/webm",
	"webp":  "image/webp",
	"woff":  "font/woff",
	"woff2": "font/woff2",
	"xls":   "application/vnd.ms-excel",
	"xml":   "text/xml",
	"zip":   "application/zip",
}

// Lookup returns the media type for the extension of name. Extensions
// missing from the built-in table are looked up in the system mime
// database before falling back to [DefaultMediaType].
func Lookup(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return DefaultMediaType
	}
	if t, ok := mediaTypes[ext[1:]]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return DefaultMediaType
}
