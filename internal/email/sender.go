package email

import (
	"context"
)

// Sender delivers one HTML email. Implementations report failure through
// the error; callers in notification paths log and swallow it.
type Sender interface {
	Send(ctx context.Context, to, subject, html string) error
}
