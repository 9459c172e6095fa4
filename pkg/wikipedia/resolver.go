package wikipedia

import (
	"context"
	"fmt"
	"strings"

	"github.com/mnandhu/learningpath/pkg/logger"

	"github.com/agext/levenshtein"
)

// State names a position in the per-candidate resolution state machine.
type State int

const (
	StateRequested State = iota
	StateDirect
	StateRedirected
	StateDisambiguation
	StateNotFound
	StateResolved
	StateUnresolved
)

func (s State) String() string {
	switch s {
	case StateRequested:
		return "requested"
	case StateDirect:
		return "direct"
	case StateRedirected:
		return "redirected"
	case StateDisambiguation:
		return "disambiguation"
	case StateNotFound:
		return "not_found"
	case StateResolved:
		return "resolved"
	case StateUnresolved:
		return "unresolved"
	default:
		return "unknown"
	}
}

// Resolution is the terminal outcome for one candidate title.
type Resolution struct {
	State State
	// Via records the intermediate state the resolution went through
	// (direct, redirected, disambiguation) when State is StateResolved.
	Via    State
	Page   *Page
	Reason string
}

// acceptThreshold is the minimum disambiguation score for a candidate page
// to be accepted.
const acceptThreshold = 0.55

// hintBonus is added to a disambiguation candidate's lexical score when its
// title or short description matches the structured-source hints.
const hintBonus = 0.2

// Resolver maps candidate titles to canonical encyclopedia pages, handling
// redirects, disambiguation pages, and missing pages. Resolution is
// deterministic: the same upstream responses always produce the same choice.
type Resolver struct {
	client *Client
	hints  []string
}

// NewResolverParams defines the configuration for creating a Resolver.
type NewResolverParams struct {
	Client *Client
	// HintTerms bias disambiguation scoring and not-found searches towards
	// the domain being built.
	HintTerms []string
}

// NewResolver creates a Resolver.
func NewResolver(params NewResolverParams) *Resolver {
	return &Resolver{
		client: params.Client,
		hints:  params.HintTerms,
	}
}

// Resolve runs the state machine for one candidate. The description and
// topicType hints come from the structured source and inform disambiguation
// scoring. Network errors are returned to the caller; Unresolved and
// NotFound are terminal states, not errors.
func (r *Resolver) Resolve(ctx context.Context, title, description, topicType string) (Resolution, error) {
	page, err := r.client.Lookup(ctx, title)
	if err != nil {
		return Resolution{State: StateRequested}, err
	}

	if page == nil {
		return r.resolveNotFound(ctx, title)
	}

	if page.IsDisambiguation {
		return r.resolveDisambiguation(ctx, title, description, topicType, page)
	}

	via := StateDirect
	if page.RedirectedFrom != "" {
		via = StateRedirected
		logger.Debug("Followed redirect", "from", page.RedirectedFrom, "to", page.Title)
	}
	return Resolution{State: StateResolved, Via: via, Page: page}, nil
}

// resolveNotFound searches with domain hint terms appended before giving
// up on a missing page.
func (r *Resolver) resolveNotFound(ctx context.Context, title string) (Resolution, error) {
	for _, hint := range r.hints {
		results, err := r.client.Search(ctx, title+" "+hint)
		if err != nil {
			logger.Debug("Search failed", "term", title+" "+hint, "err", err)
			continue
		}
		if len(results) == 0 {
			continue
		}
		page, err := r.client.Lookup(ctx, results[0])
		if err != nil || page == nil || page.IsDisambiguation {
			continue
		}
		logger.Debug("Resolved via search", "title", title, "page", page.Title)
		return Resolution{State: StateResolved, Via: StateNotFound, Page: page}, nil
	}
	return Resolution{
		State:  StateNotFound,
		Reason: fmt.Sprintf("no encyclopedia page found for %q", title),
	}, nil
}

func (r *Resolver) resolveDisambiguation(ctx context.Context, title, description, topicType string, page *Page) (Resolution, error) {
	options, err := r.client.DisambiguationOptions(ctx, page.Title)
	if err != nil {
		return Resolution{State: StateDisambiguation}, err
	}
	if len(options) == 0 {
		return Resolution{
			State:  StateUnresolved,
			Reason: fmt.Sprintf("disambiguation page for %q lists no candidates", title),
		}, nil
	}

	descriptions, err := r.client.Descriptions(ctx, options)
	if err != nil {
		logger.Debug("Description fetch failed, scoring on titles only", "title", title, "err", err)
		descriptions = map[string]string{}
	}

	best, bestScore := r.pickOption(title, description, topicType, options, descriptions)
	if bestScore < acceptThreshold {
		return Resolution{
			State:  StateUnresolved,
			Reason: fmt.Sprintf("no disambiguation candidate for %q scored above %.2f (best %.2f)", title, acceptThreshold, bestScore),
		}, nil
	}

	chosen, err := r.client.Lookup(ctx, best)
	if err != nil {
		return Resolution{State: StateDisambiguation}, err
	}
	if chosen == nil || chosen.IsDisambiguation {
		return Resolution{
			State:  StateUnresolved,
			Reason: fmt.Sprintf("disambiguation candidate %q did not resolve to an article", best),
		}, nil
	}
	logger.Debug("Resolved via disambiguation", "title", title, "page", chosen.Title, "score", bestScore)
	return Resolution{State: StateResolved, Via: StateDisambiguation, Page: chosen}, nil
}

// pickOption scores every candidate and returns the winner. Candidates are
// visited in the page's listing order and a later candidate must score
// strictly higher to replace the incumbent, so ties break deterministically
// towards the earlier listing.
func (r *Resolver) pickOption(title, description, topicType string, options []string, descriptions map[string]string) (string, float64) {
	best := ""
	bestScore := -1.0
	for _, option := range options {
		score := r.scoreOption(title, description, topicType, option, descriptions[option])
		if score > bestScore {
			best = option
			bestScore = score
		}
	}
	return best, bestScore
}

// scoreOption combines lexical similarity between the original title and the
// candidate with a fixed bonus when the candidate matches the
// structured-source hints.
func (r *Resolver) scoreOption(title, description, topicType, option, optionDescription string) float64 {
	base := levenshtein.Match(normalizeTitle(title), normalizeTitle(option), nil)

	if r.matchesHints(option, optionDescription, description, topicType) {
		base += hintBonus
	}
	return base
}

func (r *Resolver) matchesHints(option, optionDescription, description, topicType string) bool {
	haystack := strings.ToLower(option + " " + optionDescription)

	for _, hint := range r.hints {
		if strings.Contains(haystack, strings.ToLower(hint)) {
			return true
		}
	}
	for _, word := range strings.FieldsFunc(strings.ToLower(topicType), func(r rune) bool { return r == '_' || r == ' ' }) {
		if len(word) > 3 && strings.Contains(haystack, word) {
			return true
		}
	}
	if optionDescription != "" && description != "" {
		for _, word := range strings.Fields(strings.ToLower(description)) {
			if len(word) > 3 && strings.Contains(strings.ToLower(optionDescription), word) {
				return true
			}
		}
	}
	return false
}

// normalizeTitle strips the parenthetical qualifier so "Python (programming
// language)" scores well against "Python".
func normalizeTitle(title string) string {
	if idx := strings.Index(title, " ("); idx != -1 {
		title = title[:idx]
	}
	return strings.ToLower(strings.TrimSpace(title))
}
