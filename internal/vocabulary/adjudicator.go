package vocabulary

import (
	"context"
	"fmt"
	"strings"

	"github.com/kgraph/kgraph/internal/llmclient"
)

// LLMAdjudicator backs Adjudicator with a free-form model prompt, asking
// whether two relationship types are synonymous enough to merge.
type LLMAdjudicator struct {
	asker llmclient.Asker
}

// NewLLMAdjudicator wraps an Asker (satisfied by both llmclient providers).
func NewLLMAdjudicator(asker llmclient.Asker) *LLMAdjudicator {
	return &LLMAdjudicator{asker: asker}
}

func (a *LLMAdjudicator) Adjudicate(ctx context.Context, sourceName, sourceDesc, targetName, targetDesc string) (AdjudicationDecision, string, error) {
	prompt := fmt.Sprintf(`Two relationship types in a knowledge graph's vocabulary look similar.

Type A: %s (%s)
Type B: %s (%s)

Should every edge labeled "%s" be re-typed as "%s" because they mean the same
thing in this vocabulary? Reply with exactly one line: "MERGE: <reason>" or
"REJECT: <reason>".`, sourceName, sourceDesc, targetName, targetDesc, sourceName, targetName)

	reply, err := a.asker.Ask(ctx, prompt)
	if err != nil {
		return "", "", err
	}
	return parseAdjudication(reply)
}

func parseAdjudication(reply string) (AdjudicationDecision, string, error) {
	line := strings.TrimSpace(reply)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	upper := strings.ToUpper(line)
	switch {
	case strings.HasPrefix(upper, "MERGE"):
		return DecisionMerge, reasonAfterColon(line), nil
	case strings.HasPrefix(upper, "REJECT"):
		return DecisionReject, reasonAfterColon(line), nil
	default:
		return DecisionReject, "unparseable adjudicator response, defaulting to reject", nil
	}
}

func reasonAfterColon(line string) string {
	if i := strings.IndexByte(line, ':'); i >= 0 {
		return strings.TrimSpace(line[i+1:])
	}
	return ""
}
