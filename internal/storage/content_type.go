package storage

import (
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

const sniffLen = 512

// DetectContentType settles the MIME type of an upload. A conclusive
// content sniff wins over what the client declared, so a renamed file
// cannot pass as a different type. Declared type, then extension, cover
// formats the sniffer does not know (HEIC, Office documents).
func DetectContentType(declared, filename string, data io.Reader) string {
	if data != nil {
		buf := make([]byte, sniffLen)
		n, _ := io.ReadFull(data, buf)
		if n > 0 {
			if sniffed := baseType(http.DetectContentType(buf[:n])); conclusive(sniffed) {
				return sniffed
			}
		}
	}
	if declared != "" {
		return baseType(declared)
	}
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); t != "" {
		return baseType(t)
	}
	return "application/octet-stream"
}

// conclusive rejects the sniffer's fallbacks, which say nothing about
// binary formats it does not recognise. Office documents sniff as zip.
func conclusive(t string) bool {
	return t != "application/octet-stream" && t != "application/zip" && !strings.HasPrefix(t, "text/")
}

func baseType(t string) string {
	t, _, _ = strings.Cut(t, ";")
	return strings.ToLower(strings.TrimSpace(t))
}

var imageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/heic": true,
	"image/heif": true,
}

var documentTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.oasis.opendocument.text":                                 true,
}

// IsAllowedImageType reports whether photos of this type are accepted.
func IsAllowedImageType(contentType string) bool {
	return imageTypes[baseType(contentType)]
}

// IsDocument reports whether contentType is an accepted document format.
func IsDocument(contentType string) bool {
	return documentTypes[baseType(contentType)]
}
