// Package monitoring - tokens.go estimates prompt token counts for logging.
package monitoring

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog/log"

	"github.com/sketchwise/ai-gateway/internal/config"
)

var (
	encoderOnce sync.Once
	encoder     *tiktoken.Tiktoken
)

// EstimateTokens returns an approximate token count for text. Uses the
// cl100k_base tokenizer when available; falls back to the chars-per-token
// ratio when the encoding cannot be loaded (e.g. offline first run). Counts
// feed logs and metrics only; billing-grade accuracy is not needed.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	encoderOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			log.Debug().Err(err).Msg("tokenizer unavailable, using char ratio estimate")
			return
		}
		encoder = enc
	})
	if encoder == nil {
		return len(text) / config.TokenEstimateRatio
	}
	return len(encoder.Encode(text, nil, nil))
}
