package usecase

import (
	"context"
	"fmt"

	"SigFlow/internal/domain/models"
	"SigFlow/internal/domain/repository"
	"SigFlow/pkg/logger"
)

// RoutingContext carries the resolved IDs a rule match needs. Nil means
// the symbol or key is not registered, so ID-scoped rules cannot match.
type RoutingContext struct {
	InstrumentID *int64
	StrategyID   *int64
}

// MatchesRule reports whether a signal satisfies every non-nil field of
// a routing rule. Nil fields are wildcards.
func MatchesRule(rule models.RoutingRule, sig *models.Signal, rctx RoutingContext) bool {
	if rule.AssetType != nil && *rule.AssetType != sig.AssetType {
		return false
	}
	if rule.InstrumentID != nil {
		if rctx.InstrumentID == nil || *rctx.InstrumentID != *rule.InstrumentID {
			return false
		}
	}
	if rule.StrategyID != nil {
		if rctx.StrategyID == nil || *rctx.StrategyID != *rule.StrategyID {
			return false
		}
	}
	if rule.Interval != nil && *rule.Interval != sig.Interval {
		return false
	}
	if rule.MinConfidence != nil && sig.Confidence < *rule.MinConfidence {
		return false
	}
	return true
}

// Router resolves which destinations a signal should reach. When no
// routing rules exist at all it provisions the configured default
// destinations instead of dropping the signal.
type Router struct {
	store    repository.RoutingStore
	defaults []models.Destination
	log      *logger.Logger
}

func NewRouter(store repository.RoutingStore, defaults []models.Destination, log *logger.Logger) *Router {
	return &Router{store: store, defaults: defaults, log: log}
}

// ResolveDestinations returns the active destinations matching the
// signal, deduplicated in first-match order.
func (r *Router) ResolveDestinations(ctx context.Context, sig *models.Signal) ([]models.Destination, error) {
	count, err := r.store.CountRoutingRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("count routing rules: %w", err)
	}
	if count == 0 {
		dests, err := r.store.UpsertDefaultDestinations(ctx, r.defaults)
		if err != nil {
			return nil, fmt.Errorf("provision default destinations: %w", err)
		}
		return dests, nil
	}

	rules, err := r.store.ActiveRoutingRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("load routing rules: %w", err)
	}

	rctx := r.resolveContext(ctx, sig)

	seen := make(map[int64]bool)
	var destIDs []int64
	for _, rule := range rules {
		if !MatchesRule(rule, sig, rctx) {
			continue
		}
		if seen[rule.DestinationID] {
			continue
		}
		seen[rule.DestinationID] = true
		destIDs = append(destIDs, rule.DestinationID)
	}
	if len(destIDs) == 0 {
		return nil, nil
	}

	byID, err := r.store.ActiveDestinationsByIDs(ctx, destIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve destinations: %w", err)
	}

	out := make([]models.Destination, 0, len(destIDs))
	for _, id := range destIDs {
		if dest, ok := byID[id]; ok {
			out = append(out, dest)
		}
	}
	return out, nil
}

// Lookup failures degrade to nil IDs so wildcard rules still match.
func (r *Router) resolveContext(ctx context.Context, sig *models.Signal) RoutingContext {
	var rctx RoutingContext

	inst, err := r.store.InstrumentBySymbol(ctx, sig.Instrument)
	if err != nil {
		r.log.Debug("instrument lookup failed",
			logger.String("symbol", sig.Instrument), logger.Error(err))
	} else if inst != nil {
		rctx.InstrumentID = &inst.ID
	}

	strat, err := r.store.StrategyByKey(ctx, sig.Strategy)
	if err != nil {
		r.log.Debug("strategy lookup failed",
			logger.String("key", sig.Strategy), logger.Error(err))
	} else if strat != nil {
		rctx.StrategyID = &strat.ID
	}
	return rctx
}
