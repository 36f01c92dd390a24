package automation

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/robfig/cron/v3"

	"github.com/sandraschi/notion-mcp/internal/notion"
	"github.com/sandraschi/notion-mcp/internal/service"
)

// ─────────────────────────────────────────────────────────────
// Automation Scheduler — cron-driven saved database queries
// ─────────────────────────────────────────────────────────────
// Automations are in-memory for the lifetime of the process: each one
// pairs a cron schedule with a saved database query and logs the
// result count on every run. Webhook triggers are recognized but
// rejected with a clear error because the process has no inbound
// listener.

// TriggerKind names how an automation fires.
type TriggerKind string

const (
	TriggerSchedule TriggerKind = "schedule"
	TriggerWebhook  TriggerKind = "webhook"
)

// Automation is one registered scheduled query.
type Automation struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Schedule   string         `json:"schedule"`
	DatabaseID string         `json:"database_id"`
	Filter     map[string]any `json:"filter,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	LastRun    time.Time      `json:"last_run,omitzero"`
	LastCount  int            `json:"last_count"`
	Runs       int            `json:"runs"`
}

// Scheduler owns the cron runner and the automation registry.
type Scheduler struct {
	databases *service.DatabaseService
	cron      *cron.Cron
	log       hclog.Logger

	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	automation Automation
	cronID     cron.EntryID
}

// NewScheduler creates a scheduler. Start must be called before any
// automation fires.
func NewScheduler(databases *service.DatabaseService, logger hclog.Logger) *Scheduler {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Scheduler{
		databases: databases,
		cron:      cron.New(),
		log:       logger.Named("automation"),
		entries:   make(map[string]*entry),
	}
}

// Start launches the cron runner.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts the runner and waits for in-flight jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// SetupInput describes an automation to register.
type SetupInput struct {
	Name       string
	Trigger    string // "schedule" or "webhook"
	Schedule   string // standard 5-field cron expression
	DatabaseID string
	Filter     map[string]any
}

// Setup validates and registers an automation. The cron expression and
// the database ID are checked before anything is scheduled.
func (s *Scheduler) Setup(in SetupInput) (*Automation, error) {
	if in.Name == "" {
		return nil, notion.NewError(notion.KindValidation, "automation name is required")
	}
	switch TriggerKind(in.Trigger) {
	case TriggerSchedule, "":
	case TriggerWebhook:
		return nil, notion.NewError(notion.KindValidation,
			"webhook triggers are not supported: this process has no inbound listener, use a schedule trigger")
	default:
		return nil, notion.NewError(notion.KindValidation,
			"unknown trigger %q: use %q", in.Trigger, TriggerSchedule)
	}
	if _, err := cron.ParseStandard(in.Schedule); err != nil {
		return nil, notion.NewError(notion.KindValidation, "invalid cron schedule %q: %v", in.Schedule, err)
	}
	databaseID, err := notion.NormalizeID(in.DatabaseID)
	if err != nil {
		return nil, err
	}

	automation := Automation{
		ID:         uuid.NewString(),
		Name:       in.Name,
		Schedule:   in.Schedule,
		DatabaseID: databaseID,
		Filter:     in.Filter,
		CreatedAt:  time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.automation.Name == in.Name {
			return nil, notion.NewError(notion.KindValidation, "automation %q already exists", in.Name)
		}
	}
	id := automation.ID
	cronID, err := s.cron.AddFunc(in.Schedule, func() { s.run(id) })
	if err != nil {
		return nil, notion.NewError(notion.KindValidation, "schedule automation: %v", err)
	}
	s.entries[id] = &entry{automation: automation, cronID: cronID}
	s.log.Info("automation registered", "name", in.Name, "schedule", in.Schedule)
	return &automation, nil
}

// run executes one automation tick.
func (s *Scheduler) run(id string) {
	s.mu.Lock()
	e, ok := s.entries[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	automation := e.automation
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	result, err := s.databases.Query(ctx, service.QueryInput{
		DatabaseID: automation.DatabaseID,
		Filter:     automation.Filter,
		All:        true,
	})
	count := 0
	if err != nil {
		s.log.Error("automation run failed", "name", automation.Name, "error", err)
	} else {
		count = len(result.Records)
		s.log.Info("automation ran", "name", automation.Name, "matched", count)
	}

	s.mu.Lock()
	if e, ok := s.entries[id]; ok {
		e.automation.LastRun = time.Now().UTC()
		e.automation.Runs++
		if err == nil {
			e.automation.LastCount = count
		}
	}
	s.mu.Unlock()
}

// List returns registered automations sorted by name.
func (s *Scheduler) List() []Automation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Automation, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.automation)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Remove unregisters an automation by name.
func (s *Scheduler) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.entries {
		if e.automation.Name == name {
			s.cron.Remove(e.cronID)
			delete(s.entries, id)
			s.log.Info("automation removed", "name", name)
			return nil
		}
	}
	return notion.NewError(notion.KindNotFound, "automation %q not found", name)
}
