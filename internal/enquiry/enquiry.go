package enquiry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vbonduro/propertydesk/internal/domain"
)

const (
	MsgMissingFields = "Please fill in all fields"
	MsgThanks        = "Thank you! We will contact you soon."
	MsgFailed        = "Something went wrong. Please try again."
)

type Store interface {
	Create(ctx context.Context, e *domain.Enquiry) error
}

// Service accepts contact-form enquiries from the public site.
type Service struct {
	store  Store
	mailer Mailer
	to     string
	logger *slog.Logger
	now    func() time.Time
}

// NewService returns a Service that stores every enquiry and, when to is
// set, mails a copy there.
func NewService(store Store, mailer Mailer, to string, logger *slog.Logger) *Service {
	return &Service{store: store, mailer: mailer, to: to, logger: logger, now: time.Now}
}

// Submit validates and stores e. A mail failure is logged but does not fail
// the submission since the enquiry is already stored.
func (s *Service) Submit(ctx context.Context, e domain.Enquiry) (*domain.Enquiry, error) {
	const op = "enquiry.Submit"

	e.Name = strings.TrimSpace(e.Name)
	e.Phone = strings.TrimSpace(e.Phone)
	e.Email = strings.TrimSpace(e.Email)
	e.Interest = strings.TrimSpace(e.Interest)
	e.Message = strings.TrimSpace(e.Message)
	if e.Name == "" || e.Phone == "" || e.Email == "" || e.Interest == "" || e.Message == "" {
		return nil, domain.Validation(op, MsgMissingFields)
	}
	e.CreatedAt = s.now().UTC().Truncate(time.Millisecond)

	if err := s.store.Create(ctx, &e); err != nil {
		return nil, domain.NewError(domain.KindWrite, op, err)
	}
	s.logger.Info("enquiry received", "enquiry_id", e.ID, "interest", e.Interest)

	if s.to != "" && s.mailer != nil {
		if err := s.mailer.Send(ctx, s.to, subject(e), body(e)); err != nil {
			s.logger.Error("failed to mail enquiry", "enquiry_id", e.ID, "error", err)
		}
	}
	return &e, nil
}

func subject(e domain.Enquiry) string {
	return fmt.Sprintf("New enquiry from %s: %s", e.Name, e.Interest)
}

func body(e domain.Enquiry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", e.Name)
	fmt.Fprintf(&b, "Phone: %s\n", e.Phone)
	fmt.Fprintf(&b, "Email: %s\n", e.Email)
	fmt.Fprintf(&b, "Interested in: %s\n", e.Interest)
	fmt.Fprintf(&b, "Received: %s\n\n", e.CreatedAt.Format(time.RFC1123))
	b.WriteString(e.Message)
	b.WriteString("\n")
	return b.String()
}
