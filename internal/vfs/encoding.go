package vfs

import "bytes"

var bomUTF8 = []byte{0xEF, 0xBB, 0xBF}

// StripBOM removes a UTF-8 byte order mark.
// It reports whether one was present.
func StripBOM(content []byte) ([]byte, bool) {
	if bytes.HasPrefix(content, bomUTF8) {
		return content[len(bomUTF8):], true
	}
	return content, false
}

// AddBOM prepends a UTF-8 byte order mark unless one is already present.
func AddBOM(content []byte) []byte {
	if bytes.HasPrefix(content, bomUTF8) {
		return content
	}
	out := make([]byte, 0, len(content)+len(bomUTF8))
	out = append(out, bomUTF8...)
	return append(out, content...)
}

// IsBinary reports whether content looks like binary data.
// It checks the first 8000 bytes for a NUL byte, the same heuristic git uses.
func IsBinary(content []byte) bool {
	n := len(content)
	if n > 8000 {
		n = 8000
	}
	return bytes.IndexByte(content[:n], 0) >= 0
}
