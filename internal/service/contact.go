package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/kjstillabower/stem-explorer/internal/contact"
	"github.com/kjstillabower/stem-explorer/internal/observability"
)

// Contact acknowledges contact form submissions. Accepted messages are logged;
// nothing is sent or stored.
type Contact struct{}

// NewContact creates a Contact service.
func NewContact() *Contact {
	return &Contact{}
}

// Submit validates f and records the outcome. An incomplete form returns
// contact.ErrIncomplete together with a Result listing the missing fields.
func (c *Contact) Submit(ctx context.Context, f contact.Form) (contact.Result, error) {
	logger := observability.LoggerOrNop(ctx)
	clean, res, err := contact.Submit(f)
	if err != nil {
		observability.ContactSubmissionsTotal.WithLabelValues("incomplete").Inc()
		logger.Debug("contact form incomplete",
			zap.Strings("missing", res.Missing),
			zap.Strings("invalid", res.Invalid),
		)
		return res, err
	}
	observability.ContactSubmissionsTotal.WithLabelValues("accepted").Inc()
	logger.Info("contact message received",
		zap.String("name", clean.Name),
		zap.String("email", clean.Email),
		zap.Int("messageLength", len([]rune(clean.Message))),
	)
	return res, nil
}
