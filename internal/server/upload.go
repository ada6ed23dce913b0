package server

import (
	"encoding/base64"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/sells-group/solar-engine/internal/apperr"
	"github.com/sells-group/solar-engine/internal/vision"
)

// allowedImageTypes are the accepted upload media types.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/heic": true,
}

// multipartOverhead is the body allowance on top of the image limit for form
// fields and boundaries.
const multipartOverhead = 1 << 20

// imageType resolves the media type of an upload from the declared type,
// falling back to content sniffing. HEIC cannot be sniffed and relies on the
// declared type.
func imageType(declared string, data []byte) string {
	if mt, _, err := mime.ParseMediaType(declared); err == nil {
		mt = strings.ToLower(mt)
		if mt == "image/jpg" {
			mt = "image/jpeg"
		}
		if allowedImageTypes[mt] {
			return mt
		}
	}
	sniffed, _, _ := mime.ParseMediaType(http.DetectContentType(data))
	return sniffed
}

// checkImage validates presence, type and size of an upload.
func checkImage(data []byte, declared string, maxBytes int64) (vision.Image, error) {
	if len(data) == 0 {
		return vision.Image{}, apperr.Validation(apperr.CodeMissingImage, "a roof image is required")
	}
	if int64(len(data)) > maxBytes {
		return vision.Image{}, tooLarge(maxBytes)
	}
	mt := imageType(declared, data)
	if !allowedImageTypes[mt] {
		return vision.Image{}, apperr.Validation(apperr.CodeInvalidType, "image must be JPEG, PNG, WebP or HEIC")
	}
	return vision.Image{Data: data, MediaType: mt}, nil
}

func tooLarge(maxBytes int64) error {
	return apperr.Validation(apperr.CodeFileTooLarge,
		"image exceeds the "+formatMB(maxBytes)+" upload limit")
}

func formatMB(n int64) string {
	return strconv.FormatInt(max(n>>20, 1), 10) + " MB"
}

// readFormImage reads the "image" part of a parsed multipart form.
func readFormImage(form *multipart.Form, maxBytes int64) ([]byte, string, error) {
	files := form.File["image"]
	if len(files) == 0 {
		return nil, "", nil
	}
	fh := files[0]
	if fh.Size > maxBytes {
		return nil, "", tooLarge(maxBytes)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, "", apperr.Validation(apperr.CodeInvalidRequest, "image could not be read")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return nil, "", apperr.Validation(apperr.CodeInvalidRequest, "image could not be read")
	}
	return data, fh.Header.Get("Content-Type"), nil
}

// decodeBase64Image accepts raw base64 or a data URL. A media type in the
// data URL wins over declared.
func decodeBase64Image(encoded, declared string) ([]byte, string, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, declared, nil
	}
	if rest, ok := strings.CutPrefix(encoded, "data:"); ok {
		meta, payload, found := strings.Cut(rest, ",")
		if !found {
			return nil, "", apperr.Validation(apperr.CodeInvalidRequest, "malformed image data URL")
		}
		declared = strings.TrimSuffix(meta, ";base64")
		encoded = payload
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, "", apperr.Validation(apperr.CodeInvalidRequest, "image is not valid base64")
	}
	return data, declared, nil
}

// bodyError converts a body read failure into an application error.
func bodyError(err error, maxBytes int64) error {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return tooLarge(maxBytes)
	}
	return apperr.Validation(apperr.CodeInvalidRequest, "request body could not be parsed")
}
