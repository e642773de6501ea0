package http

import "mime/multipart"

// uploadedFile is an open multipart file with its client-side name.
type uploadedFile struct {
	multipart.File
	Name string
	Size int64
}
