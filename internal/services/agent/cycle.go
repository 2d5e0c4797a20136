package agent

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/argus/internal/models"
)

// cycle runs one pipeline pass from MONITORING through, at most, a
// completed trade. Returns false when the pass made no progress and the
// loop should back off.
func (a *Agent) cycle(ctx context.Context) bool {
	a.transition(ctx, models.StateMonitoring)

	portfolio, article := a.monitor(ctx)
	if article == nil {
		return false
	}

	a.transition(ctx, models.StateAnalyzing)

	analysis, err := a.analyze(ctx, portfolio, article)
	if err != nil {
		return false
	}
	if analysis == nil {
		return true
	}

	a.transition(ctx, models.StateDeciding)

	decision := a.decide(ctx, analysis)

	a.transition(ctx, models.StateRiskCheck)

	passed, err := a.riskCheck(ctx, decision)
	if err != nil {
		return false
	}
	if !passed {
		return true
	}

	a.transition(ctx, models.StateExecuting)

	trade := a.execute(ctx, decision)
	if trade == nil {
		return false
	}

	a.transition(ctx, models.StateExplaining)

	a.explain(ctx, article, analysis, decision, trade)
	a.clearWorking(ctx)
	return true
}

// monitor searches for news mentioning held tickers and selects the
// highest-scored unprocessed article. The article is marked processed
// before any analysis work so a crash cannot cause double-processing.
func (a *Agent) monitor(ctx context.Context) (*models.Portfolio, *models.NewsArticle) {
	portfolio, err := a.deps.Store.GetPortfolio(ctx, a.tenant)
	if err != nil {
		a.errorEvent(ctx, fmt.Sprintf("failed to load portfolio: %v", err))
		return nil, nil
	}
	if portfolio == nil {
		a.logger.Debug().Str("tenant", a.tenant).Msg("No portfolio configured, waiting")
		return nil, nil
	}

	tickers := portfolio.Tickers()
	if len(tickers) == 0 {
		a.logger.Debug().Str("tenant", a.tenant).Msg("Portfolio holds no tickers, waiting")
		return nil, nil
	}

	searchCtx, cancel := a.callCtx(ctx)
	articles, err := a.deps.News.Search(searchCtx, tickers)
	cancel()
	if err != nil {
		a.errorEvent(ctx, fmt.Sprintf("news search failed: %v", err))
		return nil, nil
	}

	relevant := articles[:0]
	for _, article := range articles {
		if article.TotalMentions(tickers) > 0 {
			relevant = append(relevant, article)
		}
	}
	sort.SliceStable(relevant, func(i, j int) bool {
		return relevant[i].Score > relevant[j].Score
	})

	for _, article := range relevant {
		processed, err := a.deps.Store.HasProcessedArticle(ctx, a.tenant, article.URL)
		if err != nil {
			a.errorEvent(ctx, fmt.Sprintf("failed to check article dedup: %v", err))
			return nil, nil
		}
		if processed {
			continue
		}

		if err := a.deps.Store.MarkProcessed(ctx, a.tenant, article.URL); err != nil {
			a.errorEvent(ctx, fmt.Sprintf("failed to mark article processed: %v", err))
			return nil, nil
		}

		a.mu.Lock()
		a.news = article
		a.mu.Unlock()

		a.logEvent(ctx, "info", fmt.Sprintf("Selected article: %s", article.Title))
		return portfolio, article
	}

	a.logger.Debug().Str("tenant", a.tenant).Int("candidates", len(relevant)).Msg("No unprocessed articles")
	return nil, nil
}

// analyze resolves the article's target ticker, extracts full text for
// thin articles, and gates the analysis on impact, confidence, and a
// non-hold action. A nil analysis with nil error means the article was
// cleanly skipped; an error means the pass failed and should back off.
func (a *Agent) analyze(ctx context.Context, portfolio *models.Portfolio, article *models.NewsArticle) (*models.Analysis, error) {
	ticker := article.MostMentioned(portfolio.Tickers())
	if ticker == "" {
		a.logEvent(ctx, "info", "Article mentions no held ticker, skipping")
		a.clearWorking(ctx)
		return nil, nil
	}

	if len(article.Content) < a.settings.MinContentSize {
		extractCtx, cancel := a.callCtx(ctx)
		full, err := a.deps.News.Extract(extractCtx, article.URL)
		cancel()
		if err != nil {
			a.logger.Warn().Err(err).Str("tenant", a.tenant).Str("url", article.URL).Msg("Article extraction failed")
		} else if full != nil && full.Content != "" {
			article.Content = full.Content
		}
	}

	analyzeCtx, cancel := a.callCtx(ctx)
	analysis, err := a.deps.Reasoning.AnalyzeImpact(analyzeCtx, article, ticker, portfolio.Holdings)
	cancel()
	if err != nil {
		a.errorEvent(ctx, fmt.Sprintf("impact analysis failed: %v", err))
		a.clearWorking(ctx)
		return nil, err
	}

	a.mu.Lock()
	a.analysis = analysis
	a.mu.Unlock()

	a.logEvent(ctx, "info", fmt.Sprintf("Analysis for %s: impact=%.1f sentiment=%s action=%s confidence=%.2f",
		ticker, analysis.ImpactScore, analysis.Sentiment, analysis.Action, analysis.Confidence))

	if analysis.Action == models.AnalysisActionHold ||
		analysis.ImpactScore < a.settings.MinImpactScore ||
		analysis.Confidence < a.settings.MinConfidence {
		a.logEvent(ctx, "info", "Analysis below action thresholds, no trade")
		a.clearWorking(ctx)
		return nil, nil
	}

	return analysis, nil
}

// decide converts the analysis into a concrete trade proposal using a
// live quote, or the configured fallback price when no quote is available.
func (a *Agent) decide(ctx context.Context, analysis *models.Analysis) *models.Decision {
	price := a.settings.FallbackPrice
	source := "fallback"

	if a.deps.Quotes != nil {
		quoteCtx, cancel := a.callCtx(ctx)
		quote, err := a.deps.Quotes.GetRealTimeQuote(quoteCtx, analysis.Ticker)
		cancel()
		if err != nil {
			a.logger.Warn().Err(err).Str("tenant", a.tenant).Str("ticker", analysis.Ticker).Msg("Quote lookup failed, using fallback price")
		} else if quote > 0 {
			price = quote
			source = "quote"
		}
	}

	decision := models.NewDecision(analysis, price, source)

	a.mu.Lock()
	a.decision = decision
	a.mu.Unlock()

	a.logEvent(ctx, "info", fmt.Sprintf("Decision: %s %.0f %s @ $%.2f (%s price, $%.2f total)",
		decision.Action, decision.Shares, decision.Ticker, decision.Price, decision.PriceSource, decision.AmountUSD))
	return decision
}

// riskCheck evaluates the decision against a fresh portfolio read and
// the trailing trade history. A false result with nil error is a veto.
func (a *Agent) riskCheck(ctx context.Context, decision *models.Decision) (bool, error) {
	portfolio, err := a.deps.Store.GetPortfolio(ctx, a.tenant)
	if err != nil || portfolio == nil {
		a.errorEvent(ctx, fmt.Sprintf("failed to reload portfolio for risk check: %v", err))
		a.clearWorking(ctx)
		if err == nil {
			err = fmt.Errorf("portfolio missing for tenant '%s'", a.tenant)
		}
		return false, err
	}

	trades, err := a.deps.Store.GetTrades(ctx, a.tenant, 0)
	if err != nil {
		a.errorEvent(ctx, fmt.Sprintf("failed to load trade history: %v", err))
		a.clearWorking(ctx)
		return false, err
	}

	check := a.gate.Evaluate(portfolio, decision, trades, time.Now())
	a.logEvent(ctx, "info", fmt.Sprintf("Risk check: balance=%t position=%t frequency=%t passed=%t",
		check.SufficientBalance, check.PositionLimit, check.DailyTradeLimit, check.Passed))

	if !check.Passed {
		a.logEvent(ctx, "warn", "Trade vetoed by risk gate")
		a.clearWorking(ctx)
		return false, nil
	}
	return true, nil
}

// execute validates the trade against the current portfolio, settles it
// on the ledger, then applies the mutations as one unit. Validation runs
// before settlement so an impossible trade never reaches the ledger. A
// store failure after settlement is a reconciliation case: logged loudly,
// never retried automatically.
func (a *Agent) execute(ctx context.Context, decision *models.Decision) *models.Trade {
	portfolio, err := a.deps.Store.GetPortfolio(ctx, a.tenant)
	if err != nil || portfolio == nil {
		a.errorEvent(ctx, fmt.Sprintf("failed to reload portfolio for execution: %v", err))
		a.clearWorking(ctx)
		return nil
	}

	trade := &models.Trade{
		ID:        uuid.NewString(),
		Tenant:    a.tenant,
		Ticker:    decision.Ticker,
		Action:    decision.Action,
		Shares:    decision.Shares,
		Price:     decision.Price,
		AmountUSD: decision.AmountUSD,
		Timestamp: time.Now(),
	}

	applied := portfolio.Clone()
	if err := applied.Apply(trade); err != nil {
		a.errorEvent(ctx, fmt.Sprintf("trade rejected: %v", err))
		a.clearWorking(ctx)
		return nil
	}

	a.mu.Lock()
	walletID := a.walletID
	a.mu.Unlock()

	settleCtx, cancel := a.callCtx(ctx)
	settlement, err := a.deps.Ledger.SubmitTrade(settleCtx, walletID, decision.Action, decision.Ticker, decision.AmountUSD, decision.Price)
	cancel()
	if err != nil {
		a.errorEvent(ctx, fmt.Sprintf("settlement failed: %v", err))
		a.clearWorking(ctx)
		return nil
	}

	trade.SettlementTx = settlement.TxHash
	trade.SettlementLink = settlement.AuditLink

	if err := a.deps.Store.ApplyTrade(ctx, a.tenant, applied, trade); err != nil {
		a.logger.Error().
			Err(err).
			Str("tenant", a.tenant).
			Str("trade_id", trade.ID).
			Str("settlement_tx", trade.SettlementTx).
			Msg("Settlement succeeded but portfolio update failed, manual reconciliation required")
		a.errorEvent(ctx, fmt.Sprintf("reconciliation required: settlement %s recorded on ledger but portfolio update failed: %v", trade.SettlementTx, err))
		a.clearWorking(ctx)
		return nil
	}

	a.logEvent(ctx, "info", fmt.Sprintf("Executed %s: %.0f %s @ $%.2f (tx %s)",
		trade.Action, trade.Shares, trade.Ticker, trade.Price, trade.SettlementTx))
	return trade
}

// explain produces the trade narrative and emits the tradeComplete event.
// A failed explanation falls back to the analysis reasoning.
func (a *Agent) explain(ctx context.Context, article *models.NewsArticle, analysis *models.Analysis, decision *models.Decision, trade *models.Trade) {
	explainCtx, cancel := a.callCtx(ctx)
	narrative, err := a.deps.Reasoning.ExplainTrade(explainCtx, article, analysis, decision)
	cancel()
	if err != nil || narrative == "" {
		if err != nil {
			a.logger.Warn().Err(err).Str("tenant", a.tenant).Msg("Trade explanation failed, using analysis reasoning")
		}
		narrative = analysis.Reasoning
	}

	a.emit(ctx, models.EventTypeTradeComplete, models.TradeCompleteData{
		Article:   article,
		Analysis:  analysis,
		Decision:  decision,
		Trade:     trade,
		Narrative: narrative,
	})
	a.logEvent(ctx, "info", fmt.Sprintf("Trade complete: %s", narrative))
}
