package usecase

import (
	"context"
	"fmt"
	"time"

	"SigFlow/internal/domain/models"
	"SigFlow/internal/domain/repository"
	"SigFlow/internal/marketdata"
	"SigFlow/pkg/logger"
)

// AlertEvaluator checks one-shot price alert rules against live prices.
// Rules are deactivated before the notification is enqueued so a crash
// between the two steps drops a message instead of repeating one.
type AlertEvaluator struct {
	alerts   repository.AlertStore
	routing  repository.RoutingStore
	feeds    *marketdata.FeedRegistry
	emitter  *Emitter
	metrics  repository.Metrics
	goldSyms map[string]bool
	log      *logger.Logger
}

func NewAlertEvaluator(
	alerts repository.AlertStore,
	routing repository.RoutingStore,
	feeds *marketdata.FeedRegistry,
	emitter *Emitter,
	metrics repository.Metrics,
	goldAllowlist []string,
	log *logger.Logger,
) *AlertEvaluator {
	goldSyms := make(map[string]bool, len(goldAllowlist))
	for _, s := range goldAllowlist {
		goldSyms[marketdata.NormalizeSymbol(s)] = true
	}
	return &AlertEvaluator{
		alerts:   alerts,
		routing:  routing,
		feeds:    feeds,
		emitter:  emitter,
		metrics:  metrics,
		goldSyms: goldSyms,
		log:      log,
	}
}

// Tick evaluates all active rules once. Prices are fetched at most once
// per symbol per tick, and one broken rule never blocks the rest.
func (a *AlertEvaluator) Tick(ctx context.Context, now time.Time) {
	rules, err := a.alerts.ActiveAlertRules(ctx, now)
	if err != nil {
		a.log.Error("alert rules load failed", logger.Error(err))
		return
	}

	prices := make(map[string]float64)
	for _, rule := range rules {
		if err := a.evaluateRule(ctx, rule, prices); err != nil {
			a.log.Error("alert rule evaluation failed",
				logger.Int64("ruleId", rule.ID), logger.Error(err))
		}
	}
}

func (a *AlertEvaluator) evaluateRule(ctx context.Context, rule models.AlertRule, prices map[string]float64) error {
	symbol := marketdata.NormalizeSymbol(rule.Instrument)

	price, ok := prices[symbol]
	if !ok {
		var err error
		price, err = a.fetchPrice(ctx, symbol)
		if err != nil {
			return fmt.Errorf("fetch price for %s: %w", symbol, err)
		}
		prices[symbol] = price
		a.metrics.RecordLastPrice(symbol, price)
	}

	if !Triggered(rule, price) {
		return nil
	}

	if err := a.alerts.DeactivateAlertRule(ctx, rule.ID); err != nil {
		return fmt.Errorf("deactivate rule %d: %w", rule.ID, err)
	}
	a.metrics.RecordAlertTriggered(string(rule.Type))

	text := formatAlert(rule, price)
	if err := a.emitter.EmitText(ctx, rule.UserID, text, "HTML"); err != nil {
		return fmt.Errorf("notify user %d: %w", rule.UserID, err)
	}

	a.log.Info("alert triggered",
		logger.Int64("ruleId", rule.ID),
		logger.String("instrument", symbol),
		logger.String("type", string(rule.Type)),
		logger.Float64("price", price))
	return nil
}

// Asset type comes from the instrument registry when the symbol is
// known, otherwise from the gold allowlist.
func (a *AlertEvaluator) fetchPrice(ctx context.Context, symbol string) (float64, error) {
	assetType := models.AssetCrypto
	inst, err := a.routing.InstrumentBySymbol(ctx, symbol)
	switch {
	case err == nil && inst != nil:
		assetType = inst.AssetType
	case a.goldSyms[symbol]:
		assetType = models.AssetGold
	}

	provider, ok := a.feeds.Provider(assetType)
	if !ok {
		return 0, fmt.Errorf("no price feed for asset type %s", assetType)
	}

	price, err := provider.LastPrice(ctx, symbol)
	if err != nil {
		a.metrics.RecordFetchError(provider.Name())
		return 0, err
	}
	return price, nil
}

// Triggered reports whether a rule fires at the given price. Rules with
// the required parameters missing never fire.
func Triggered(rule models.AlertRule, price float64) bool {
	switch rule.Type {
	case models.AlertUpPct:
		if rule.BasePrice == nil || rule.Threshold == nil || *rule.BasePrice <= 0 {
			return false
		}
		return price >= *rule.BasePrice*(1+*rule.Threshold/100)
	case models.AlertDownPct:
		if rule.BasePrice == nil || rule.Threshold == nil || *rule.BasePrice <= 0 {
			return false
		}
		return price <= *rule.BasePrice*(1-*rule.Threshold/100)
	case models.AlertTP1:
		if rule.Threshold == nil {
			return false
		}
		// Target hit in the direction away from the base price; with no
		// base the target is treated as an upside level.
		if rule.BasePrice != nil && *rule.BasePrice > *rule.Threshold {
			return price <= *rule.Threshold
		}
		return price >= *rule.Threshold
	default:
		return false
	}
}

func formatAlert(rule models.AlertRule, price float64) string {
	switch rule.Type {
	case models.AlertUpPct:
		return fmt.Sprintf("🔔 <b>%s</b> is up %.2f%% from %.6f, now at <b>%.6f</b>",
			rule.Instrument, deref(rule.Threshold), deref(rule.BasePrice), price)
	case models.AlertDownPct:
		return fmt.Sprintf("🔔 <b>%s</b> is down %.2f%% from %.6f, now at <b>%.6f</b>",
			rule.Instrument, deref(rule.Threshold), deref(rule.BasePrice), price)
	case models.AlertTP1:
		return fmt.Sprintf("🎯 <b>%s</b> reached target %.6f, now at <b>%.6f</b>",
			rule.Instrument, deref(rule.Threshold), price)
	default:
		return fmt.Sprintf("🔔 <b>%s</b> alert at %.6f", rule.Instrument, price)
	}
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
