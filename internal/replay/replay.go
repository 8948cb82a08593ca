// Package replay implements the batch replay driver behind the `forward`
// CLI command: it reads every unanswered request left in the cache and
// sends each one, in stored order, straight to Adobe, independent of
// whatever mode the proxy would currently be serving live traffic under.
package replay

import (
	"context"

	"github.com/ManuGH/adlu-proxy/internal/cache"
	"github.com/ManuGH/adlu-proxy/internal/forward"
	"github.com/rs/zerolog"
)

// Summary tallies the outcome of one replay run, printed by the CLI
// command the way the original's forward_stored_requests did with its
// two eprintln calls.
type Summary struct {
	Found     int
	Successes int
	Failures  int
}

// Run fetches every unanswered FRL request from c, in the interleaved
// timestamp order FetchUnansweredRequests already provides, and forwards
// each one via fwd. A successful send stores its response, which retires
// the matching queued request; a failed send is left in place for a
// future replay attempt.
func Run(ctx context.Context, c *cache.Cache, fwd *forward.Config, log zerolog.Logger) (Summary, error) {
	reqs, err := c.FetchUnansweredRequests()
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{Found: len(reqs)}
	if summary.Found == 0 {
		log.Info().Msg("No requests to forward.")
		return summary, nil
	}
	log.Info().Int("count", summary.Found).Msg("found requests to forward")

	for _, req := range reqs {
		outcome := forward.Send(ctx, fwd, req)
		if outcome.Kind != forward.Success {
			summary.Failures++
			log.Info().Stringer("kind", outcome.Kind).Msgf("failed to forward %s, will retry later", req)
			continue
		}
		c.StoreResponse(req, outcome.Response)
		summary.Successes++
	}

	log.Info().
		Int("successes", summary.Successes).
		Int("failures", summary.Failures).
		Msg("forwarding produced successes and failures")
	return summary, nil
}
