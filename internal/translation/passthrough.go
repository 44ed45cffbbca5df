// Package translation forwards Cloud Translation v3 TranslateText requests
// in their protobuf wire form.
package translation

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/translate/apiv3/translatepb"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/protobuf/proto"

	"github.com/Joseph-Rai/translationapis/internal/domain"
	"github.com/Joseph-Rai/translationapis/internal/session"
	"github.com/Joseph-Rai/translationapis/internal/telemetry"
)

// Passthrough decodes a TranslateTextRequest, sends it unmodified through the
// current session's translation client and encodes the response.
type Passthrough struct {
	sessions *session.Manager
	timeout  time.Duration
}

// NewPassthrough creates a passthrough. timeout bounds each vendor call; zero
// leaves the caller's context deadline in charge.
func NewPassthrough(sessions *session.Manager, timeout time.Duration) *Passthrough {
	return &Passthrough{sessions: sessions, timeout: timeout}
}

// Translate forwards one serialized request and returns the serialized
// response. No session means no vendor call.
func (p *Passthrough) Translate(ctx context.Context, requestBytes []byte) ([]byte, error) {
	s, release, err := p.sessions.Acquire()
	if err != nil {
		return nil, fmt.Errorf("translate: %w", err)
	}
	defer release()

	req := &translatepb.TranslateTextRequest{}
	if err := proto.Unmarshal(requestBytes, req); err != nil {
		return nil, domain.Wrap(domain.ErrorTypeInvalidRequest, "translate: undecodable TranslateTextRequest", err)
	}

	ctx, span := telemetry.StartSpan(ctx, "translation.translate_text",
		attribute.String("tenant_id", s.TenantID),
		attribute.String("target_language", req.GetTargetLanguageCode()),
		attribute.Int("contents", len(req.GetContents())),
	)

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	resp, err := s.Translation.TranslateText(ctx, req, session.NoRetry)
	if err != nil {
		err = domain.VendorError("translate", err)
		telemetry.EndSpan(span, err)
		return nil, err
	}
	telemetry.EndSpan(span, nil)

	out, err := proto.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("translate: failed to encode response: %w", err)
	}
	return out, nil
}
