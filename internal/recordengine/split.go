// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package recordengine

// splitBytes chops data into chunks of at most size bytes, generalizing the
// teacher's UDP-MTU handshake fragmenter (conn.go's fragmentHandshake) to
// this engine's fixed 2^14 TLS plaintext fragment limit. Returns nil for
// empty input; callers that need at least one (possibly empty) chunk
// handle that themselves.
func splitBytes(data []byte, size int) [][]byte {
	if len(data) == 0 {
		return nil
	}
	chunks := make([][]byte, 0, (len(data)+size-1)/size)
	for len(data) > 0 {
		n := size
		if n > len(data) {
			n = len(data)
		}
		chunks = append(chunks, data[:n])
		data = data[n:]
	}
	return chunks
}
