package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/DukeRupert/tradeslink/internal/domain"
)

// multipartMemory is how much of a multipart body is buffered in memory
// before spilling to temp files.
const multipartMemory = 8 << 20

type upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// readUpload reads a single file part, refusing bodies over maxBytes.
func readUpload(w http.ResponseWriter, r *http.Request, op, field string, maxBytes int64) (*upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, domain.Errorf(domain.ETOOLARGE, op, "Upload exceeds the %d MB limit", maxBytes>>20)
		}
		return nil, domain.Invalid(op, "Request must be multipart/form-data")
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, domain.NewValidationError(op, field, fmt.Sprintf("%s is required", field))
	}
	defer file.Close()

	if header.Size > maxBytes {
		return nil, domain.Errorf(domain.ETOOLARGE, op, "Upload exceeds the %d MB limit", maxBytes>>20)
	}
	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return nil, domain.Internal(err, op, "failed to read upload")
	}
	if int64(len(data)) > maxBytes {
		return nil, domain.Errorf(domain.ETOOLARGE, op, "Upload exceeds the %d MB limit", maxBytes>>20)
	}

	return &upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
