package log

import (
	"io"
	"time"
)

var _ io.Writer = (*rfc3339Writer)(nil)

type rfc3339Writer struct {
	w io.Writer
}

func (w *rfc3339Writer) Write(p []byte) (int, error) {
	str := time.Now().UTC().Format(time.RFC3339) + " " + string(p)
	if _, err := io.WriteString(w.w, str); err != nil {
		return 0, err
	}
	return len(p), nil
}
