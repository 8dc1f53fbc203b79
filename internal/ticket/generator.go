package ticket

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/robertarktes/ticket-checkout/internal/domain"
	"github.com/robertarktes/ticket-checkout/internal/observability"
)

// Notices printed on every ticket.
var Notices = []string{
	"Arrive 15 minutes before event starts",
	"Bring valid photo ID (18+ years required)",
	"Present this ticket at venue entry",
	"This booking is non-refundable",
}

// Renderer turns ticket details into a binary artifact.
type Renderer interface {
	Format() domain.ArtifactFormat
	Render(ctx context.Context, d domain.TicketDetails) ([]byte, error)
}

// Generator renders with the primary renderer and falls back to plain text.
// Generate never fails.
type Generator struct {
	primary  Renderer
	fallback *TextRenderer
	logger   observability.Logger
}

func NewGenerator(primary Renderer, fallback *TextRenderer, logger observability.Logger) *Generator {
	return &Generator{primary: primary, fallback: fallback, logger: logger}
}

func (g *Generator) Generate(ctx context.Context, d domain.TicketDetails) domain.TicketArtifact {
	ctx, span := observability.Tracer("ticket").Start(ctx, "ticket.Generate")
	defer span.End()

	if g.primary != nil {
		content, err := g.renderPrimary(ctx, d)
		if err == nil {
			observability.ArtifactsTotal.WithLabelValues(string(g.primary.Format())).Inc()
			return domain.TicketArtifact{
				Format:   g.primary.Format(),
				Content:  content,
				Filename: Filename(d.Reference, g.primary.Format()),
			}
		}
		observability.LoggerFromContext(ctx, g.logger).
			WithField("payment_reference", d.Reference).
			WithError(err).
			Warn("ticket rendering failed, using text ticket")
	}

	observability.ArtifactsTotal.WithLabelValues(string(domain.ArtifactPlainText)).Inc()
	return domain.TicketArtifact{
		Format:   domain.ArtifactPlainText,
		Content:  g.fallback.Text(d),
		Filename: Filename(d.Reference, domain.ArtifactPlainText),
	}
}

func (g *Generator) renderPrimary(ctx context.Context, d domain.TicketDetails) (content []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Mark(errors.Newf("renderer panic: %v", r), domain.ErrArtifactGeneration)
		}
	}()

	content, err = g.primary.Render(ctx, d)
	if err != nil {
		return nil, errors.Mark(err, domain.ErrArtifactGeneration)
	}
	if len(content) == 0 {
		return nil, errors.Mark(errors.New("renderer produced no content"), domain.ErrArtifactGeneration)
	}
	return content, nil
}

// Filename derives the attachment name from the payment reference.
func Filename(reference string, format domain.ArtifactFormat) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		}
		return '_'
	}, reference)

	ext := "txt"
	if format == domain.ArtifactPDF {
		ext = "pdf"
	}
	return fmt.Sprintf("ticket-%s.%s", safe, ext)
}
