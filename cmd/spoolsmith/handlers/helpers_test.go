package handlers

import (
	"bytes"
	"io"
	"os"
)

// captureOutput redirects stdout while fn runs and returns what was written.
func captureOutput(fn func()) string {
	orig := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	fn()

	_ = w.Close()
	os.Stdout = orig

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}
