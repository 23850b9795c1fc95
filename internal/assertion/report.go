package assertion

import (
	"encoding/json"
	"fmt"
	"io"
)

// Reporter prints operator facing output of the tool.
type Reporter struct {
	w io.Writer
}

func NewReporter(w io.Writer) *Reporter {
	return &Reporter{w: w}
}

func (r *Reporter) Notice(format string, args ...any) {
	fmt.Fprintf(r.w, format+"\n", args...)
}

// Report prints the compact token followed by its decoded header and payload.
func (r *Reporter) Report(raw string, decoded *DecodedToken) error {
	header, err := json.Marshal(decoded.Header)
	if err != nil {
		return fmt.Errorf("%w: failed to marshal header: %w", ErrInternal, err)
	}
	if _, err := fmt.Fprintf(r.w, "token: JWT=%s\nheader: %s\npayload: %s\n", raw, header, decoded.Payload); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
