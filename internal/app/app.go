package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samvad-hq/samvad-debts-client/internal/config"
	"github.com/samvad-hq/samvad-debts-client/internal/logger"
	"github.com/samvad-hq/samvad-debts-client/internal/presets"
	"github.com/samvad-hq/samvad-debts-client/internal/storage"
	"github.com/samvad-hq/samvad-debts-client/internal/telemetry"
	"github.com/samvad-hq/samvad-debts-client/pkg/httpclient"
	"github.com/samvad-hq/samvad-debts-client/pkg/obligations"
	"github.com/samvad-hq/samvad-debts-client/pkg/publishers"
)

// App wires the debts client with its supporting infrastructure: metrics,
// tracing, the mutation journal, event publishers and filter presets.
type App struct {
	cfg      *config.Config
	log      logger.Logger
	client   *obligations.Client
	metrics  *telemetry.Metrics
	journal  storage.Store
	fanout   *publishers.Fanout
	presets  *presets.Registry
	shutdown telemetry.ShutdownFunc
}

// New builds an App from config. Close must be called to flush metrics and
// release the journal and publisher connections.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = logger.NopLogger()
	}

	a := &App{cfg: cfg, log: log, shutdown: func(context.Context) error { return nil }}
	if err := a.init(ctx); err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.cfg

	mode, err := obligations.ParseSummaryMode(cfg.SummaryMode)
	if err != nil {
		return err
	}

	a.metrics, err = telemetry.NewMetrics(prometheus.NewRegistry())
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	var transport http.RoundTripper
	if cfg.OTelEnabled {
		a.shutdown, err = telemetry.InitTracing(ctx, cfg, a.log)
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		transport = telemetry.Transport(nil)
	}

	httpClient := httpclient.NewRestyClient(httpclient.Options{
		BaseURL:   cfg.APIBaseURL,
		Timeout:   cfg.APITimeout,
		AuthToken: cfg.APIToken,
		Transport: transport,
	})
	a.client, err = obligations.NewClient(httpClient, a.log, obligations.Options{
		SummaryMode: mode,
		Observer:    a.metrics,
	})
	if err != nil {
		return fmt.Errorf("init debts client: %w", err)
	}

	a.journal, err = storage.NewStore(cfg.JournalType, cfg.JournalPath, storage.Options{
		EntryTTL:        cfg.JournalTTL,
		CleanupInterval: cfg.JournalCleanupInterval,
	})
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}

	if strings.TrimSpace(cfg.PresetsFile) != "" {
		a.presets, err = presets.Load(cfg.PresetsFile)
		if err != nil {
			return fmt.Errorf("load presets: %w", err)
		}
		a.log.DebugObj("presets loaded", "presets", a.presets.Names())
	}

	if strings.TrimSpace(cfg.PublishersFile) != "" {
		publisherReg, err := publishers.LoadRegistry(cfg.PublishersFile)
		if err != nil {
			return fmt.Errorf("load publishers registry: %w", err)
		}
		enabled := publisherReg.Enabled()
		pubClients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, a.log)
		if err != nil {
			return fmt.Errorf("build publishers: %w", err)
		}
		a.fanout = publishers.NewFanout(pubClients)
		a.log.InfoObj("publishers registry loaded", "publishers", enabled)
	}
	return nil
}

// Close flushes metrics to the configured textfile and releases resources.
func (a *App) Close(ctx context.Context) error {
	if a == nil {
		return nil
	}
	var errs []error
	if a.metrics != nil {
		if err := a.metrics.WriteTextfile(a.cfg.MetricsFile); err != nil {
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		}
	}
	if err := a.fanout.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close publishers: %w", err))
	}
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close journal: %w", err))
		}
	}
	if a.shutdown != nil {
		if err := a.shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracing: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Client exposes the underlying debts client.
func (a *App) Client() *obligations.Client { return a.client }

// Filters merges the named preset (if any) with explicit filters; explicit keys win.
func (a *App) Filters(preset string, explicit obligations.FilterSet) (obligations.FilterSet, error) {
	out := obligations.FilterSet{}
	if preset = strings.TrimSpace(preset); preset != "" {
		base, ok := a.presets.Get(preset)
		if !ok {
			return nil, fmt.Errorf("unknown preset %q", preset)
		}
		for k, v := range base {
			out[k] = v
		}
	}
	for k, v := range explicit {
		out[k] = v
	}
	return out, nil
}

// List returns debts matching filters.
func (a *App) List(ctx context.Context, filters obligations.FilterSet) ([]obligations.Obligation, error) {
	return a.client.List(ctx, filters)
}

// Get fetches one debt by id.
func (a *App) Get(ctx context.Context, id obligations.ID) (obligations.Obligation, error) {
	return a.client.Get(ctx, id)
}

// Summary fetches the server-computed summary over all debts.
func (a *App) Summary(ctx context.Context) (obligations.SummaryReport, error) {
	return a.client.GetSummary(ctx)
}

// Snapshot fetches filtered debts and the unfiltered summary together.
func (a *App) Snapshot(ctx context.Context, filters obligations.FilterSet) (obligations.Snapshot, error) {
	return a.client.Snapshot(ctx, filters)
}

// Create creates a debt, journals the attempt and announces it on success.
func (a *App) Create(ctx context.Context, data obligations.Obligation) (obligations.Obligation, error) {
	created, err := a.client.Create(ctx, data)
	id := data.Identifier()
	if err == nil && !created.Identifier().IsZero() {
		id = created.Identifier()
	}
	a.record(obligations.OpCreate, id, data, err)
	if err != nil {
		return created, err
	}
	a.publish(ctx, publishers.NewEvent(publishers.EventDebtCreated, obligations.ID{}, &created))
	return created, nil
}

// Update patches a debt, journals the attempt and announces it on success.
func (a *App) Update(ctx context.Context, id obligations.ID, data obligations.Obligation) (obligations.Obligation, error) {
	updated, err := a.client.Update(ctx, id, data)
	a.record(obligations.OpUpdate, id, data, err)
	if err != nil {
		return updated, err
	}
	a.publish(ctx, publishers.NewEvent(publishers.EventDebtUpdated, id, &updated))
	return updated, nil
}

// Remove deletes a debt, journals the attempt and announces it on success.
func (a *App) Remove(ctx context.Context, id obligations.ID) (obligations.Acknowledgement, error) {
	ack, err := a.client.Remove(ctx, id)
	a.record(obligations.OpRemove, id, nil, err)
	if err != nil {
		return ack, err
	}
	a.publish(ctx, publishers.NewEvent(publishers.EventDebtRemoved, id, nil))
	return ack, nil
}

// History returns the most recent journaled mutations, newest first.
func (a *App) History(limit int) ([]storage.Entry, error) {
	return a.journal.Recent(limit)
}

// record journals a mutation attempt. Journal failures never fail the mutation.
func (a *App) record(op string, id obligations.ID, payload any, callErr error) {
	entry := storage.Entry{
		Op:         op,
		DebtID:     id.String(),
		Outcome:    storage.OutcomeOK,
		RecordedAt: time.Now().UTC(),
	}
	if payload != nil {
		if raw, err := json.Marshal(payload); err == nil {
			entry.Payload = raw
		}
	}
	if callErr != nil {
		entry.Outcome = storage.OutcomeFailed
		entry.Error = callErr.Error()
		var remote *obligations.RemoteRequestError
		if errors.As(callErr, &remote) {
			entry.StatusCode = remote.StatusCode
		}
	}
	if err := a.journal.Record(entry); err != nil {
		a.log.WarnObj("journal record failed", "journal_error", map[string]any{
			"op":    op,
			"error": err.Error(),
		})
	}
}

// publish fans the event out. Delivery failures are logged only.
func (a *App) publish(ctx context.Context, evt publishers.Event) {
	if a.fanout.Size() == 0 {
		return
	}
	delivered, err := a.fanout.Publish(ctx, evt)
	if err != nil {
		a.log.WarnObj("event publish failed", "publish_error", map[string]any{
			"event_id":   evt.ID,
			"event_type": evt.Type,
			"delivered":  delivered,
			"error":      err.Error(),
		})
		return
	}
	a.log.DebugObj("event published", "publish", map[string]any{
		"event_id":   evt.ID,
		"event_type": evt.Type,
		"delivered":  delivered,
	})
}
