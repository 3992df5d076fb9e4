package bench

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"benchd/internal/provider"
	"benchd/pkg/types"
)

// runImage is the image-mode variant: one blocking request bounded by the
// connect and read timeouts together, then a single final write.
func (s *session) runImage(p provider.Provider, req provider.Request) Outcome {
	gen, ok := p.(provider.ImageGenerator)
	if !ok {
		return s.fail(&SessionError{
			Kind:    KindProviderError,
			ModelID: s.spec.model.ID,
			Err:     fmt.Errorf("%w: image generation on provider %q", provider.ErrUnsupported, s.spec.model.Provider),
		})
	}
	limit := s.spec.config.ConnectTimeout() + s.spec.config.ReadTimeout()
	cause := timeoutCause{kind: KindReadTimeout, ms: limit.Milliseconds()}
	ctx, cancel := context.WithTimeoutCause(s.ctx, limit, cause)
	defer cancel()

	images, err := gen.GenerateImages(ctx, req)
	if err != nil {
		if errors.Is(context.Cause(ctx), cause) && s.ctx.Err() == nil {
			return s.fail(&SessionError{Kind: KindReadTimeout, ModelID: s.spec.model.ID, Err: cause})
		}
		return s.fail(s.classify(err))
	}
	total := msSince(s.start, s.e.now())
	return s.succeed(imageMarkdown(images), "", types.Metrics{TTFT: total, TotalDuration: total})
}

// imageMarkdown embeds generated images as markdown image links.
func imageMarkdown(images []provider.Image) string {
	parts := make([]string, 0, len(images))
	for i, img := range images {
		src := img.URL
		if src == "" {
			mime := img.MimeType
			if mime == "" {
				mime = "image/png"
			}
			src = "data:" + mime + ";base64," + img.B64JSON
		}
		parts = append(parts, fmt.Sprintf("![image %d](%s)", i+1, src))
	}
	return strings.Join(parts, "\n\n")
}
