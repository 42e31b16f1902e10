package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	assistantrepo "github.com/voxlane/voxlane/internal/assistant/repository"
	"github.com/voxlane/voxlane/internal/config"
	"github.com/voxlane/voxlane/internal/enforcement/domain"
	phonerepo "github.com/voxlane/voxlane/internal/phonenumber/repository"
	"github.com/voxlane/voxlane/internal/providers/voice"
	quotadomain "github.com/voxlane/voxlane/internal/quota/domain"
	quotarepo "github.com/voxlane/voxlane/internal/quota/repository"
	quotaservice "github.com/voxlane/voxlane/internal/quota/service"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// handlerAdapter mirrors the fx binding that feeds breaches from the
// quota service into enforcement.
type handlerAdapter struct {
	svc domain.Service
}

func (a *handlerAdapter) HandleBreach(ctx context.Context, report quotadomain.BreachReport) (*quotadomain.EnforcementOutcome, error) {
	result, err := a.svc.HandleBreach(ctx, report)
	return result.Outcome(), err
}

func TestBreachDeletesOldestAssistantEndToEnd(t *testing.T) {
	node := mustNode(t)
	accountID := node.Generate()
	fixture := setupEnforcement(t, node)
	ctx := context.Background()

	quotaSvc := quotaservice.New(quotaservice.Params{
		DB:       fixture.db,
		Log:      zap.NewNop(),
		GenID:    node,
		Repo:     quotarepo.Provide(),
		Enforcer: &handlerAdapter{svc: fixture.svc},
	})

	base := time.Now().UTC().Add(-time.Hour)
	oldest := seedAssistant(t, fixture, accountID, "Oldest Bot", base)
	newest := seedAssistant(t, fixture, accountID, "Newest Bot", base.Add(10*time.Minute))
	numberA := seedNumber(t, fixture, accountID, oldest, "+15550000001", base)
	numberB := seedNumber(t, fixture, accountID, newest, "+15550000002", base)

	// Pre-breach state: free plan, both slots used, no call time yet.
	seedQuota(t, fixture.db, node, accountID, 2, 600, 2, 0)

	result, err := quotaSvc.AddCallTime(ctx, accountID, quotadomain.PlanFree, 650, "call_long")
	if err != nil {
		t.Fatalf("add call time: %v", err)
	}
	if !result.Exceeded || result.NewTotal != 650 {
		t.Fatalf("expected breach at 650/600, got %+v", result)
	}
	if result.Enforcement == nil {
		t.Fatalf("caller must see the enforcement outcome: %+v", result)
	}
	if result.Enforcement.DeletedAssistantID != oldest.rowID || result.Enforcement.DeletedAssistantName != "Oldest Bot" {
		t.Fatalf("outcome must name the deleted assistant: %+v", result.Enforcement)
	}
	if len(result.Enforcement.DeletedPhoneNumbers) != 1 || result.Enforcement.DeletedPhoneNumbers[0].Number != "+15550000001" {
		t.Fatalf("outcome must carry the number cascade: %+v", result.Enforcement)
	}
	if result.Enforcement.CallTimeReset {
		t.Fatalf("enforcement must never reset call time: %+v", result.Enforcement)
	}

	if rowExists(t, fixture.db, `SELECT COUNT(1) FROM assistants WHERE id = ?`, oldest.rowID) {
		t.Fatalf("oldest assistant must be deleted")
	}
	if !rowExists(t, fixture.db, `SELECT COUNT(1) FROM assistants WHERE id = ?`, newest.rowID) {
		t.Fatalf("newest assistant must survive")
	}
	if fixture.fake.HasAssistant(oldest.providerID) {
		t.Fatalf("victim's provider record must be deleted")
	}
	if fixture.fake.HasPhoneNumber(numberA.providerID) {
		t.Fatalf("victim's phone number must be deleted at the provider")
	}
	if !fixture.fake.HasPhoneNumber(numberB.providerID) {
		t.Fatalf("other assistant's number must survive")
	}

	var record quotadomain.QuotaRecord
	if err := fixture.db.Raw(`SELECT * FROM quota_records WHERE account_id = ?`, accountID).Scan(&record).Error; err != nil {
		t.Fatalf("read quota: %v", err)
	}
	if record.CurrentAssistants != 1 {
		t.Fatalf("expected 1 assistant after enforcement, got %d", record.CurrentAssistants)
	}
	if record.UsedCallTimeSeconds != 650 {
		t.Fatalf("call time must not be reset by enforcement, got %d", record.UsedCallTimeSeconds)
	}
	if record.DeletionCount != 1 || record.LastDeletionAt == nil {
		t.Fatalf("deletion bookkeeping missing: count=%d last=%v", record.DeletionCount, record.LastDeletionAt)
	}

	for _, action := range []string{
		quotadomain.ActionCallCompleted,
		quotadomain.ActionLimitExceeded,
		quotadomain.ActionPhoneNumberDeleted,
		quotadomain.ActionAutoDeletionTriggered,
	} {
		if got := countLedger(t, fixture.db, accountID, action); got != 1 {
			t.Fatalf("expected 1 %s entry, got %d", action, got)
		}
	}
}

func TestVictimSelectionIsDeterministic(t *testing.T) {
	node := mustNode(t)
	accountID := node.Generate()
	fixture := setupEnforcement(t, node)
	ctx := context.Background()

	// Identical created_at: the lower id wins the tiebreak.
	at := time.Now().UTC().Add(-time.Hour)
	first := seedAssistant(t, fixture, accountID, "First", at)
	seedAssistant(t, fixture, accountID, "Second", at)
	seedQuota(t, fixture.db, node, accountID, 2, 600, 2, 650)

	result, err := fixture.svc.HandleBreach(ctx, quotadomain.BreachReport{
		AccountID: accountID, Plan: quotadomain.PlanFree,
		NewTotal: 650, Limit: 600, Overage: 50,
	})
	if err != nil {
		t.Fatalf("handle breach: %v", err)
	}
	if result.DeletedAssistantID != first.rowID {
		t.Fatalf("expected deterministic victim %s, got %s", first.rowID, result.DeletedAssistantID)
	}
}

func TestNoResourceToDelete(t *testing.T) {
	node := mustNode(t)
	accountID := node.Generate()
	fixture := setupEnforcement(t, node)

	seedQuota(t, fixture.db, node, accountID, 2, 600, 0, 650)

	_, err := fixture.svc.HandleBreach(context.Background(), quotadomain.BreachReport{
		AccountID: accountID, NewTotal: 650, Limit: 600, Overage: 50,
	})
	if !errors.Is(err, domain.ErrNoResourceToDelete) {
		t.Fatalf("expected ErrNoResourceToDelete, got %v", err)
	}
}

func TestAssistantDeleteFailureAborts(t *testing.T) {
	node := mustNode(t)
	accountID := node.Generate()
	fixture := setupEnforcement(t, node)
	ctx := context.Background()

	victim := seedAssistant(t, fixture, accountID, "Stuck Bot", time.Now().UTC().Add(-time.Hour))
	fixture.fake.DeleteAssistantErr = map[string]error{
		victim.providerID: &voice.ProviderError{StatusCode: 502, Message: "upstream down"},
	}
	seedQuota(t, fixture.db, node, accountID, 2, 600, 1, 650)

	_, err := fixture.svc.HandleBreach(ctx, quotadomain.BreachReport{
		AccountID: accountID, NewTotal: 650, Limit: 600, Overage: 50,
	})
	if !errors.Is(err, domain.ErrAssistantDeleteFailed) {
		t.Fatalf("expected ErrAssistantDeleteFailed, got %v", err)
	}

	// Abort edge: nothing else changes.
	if !rowExists(t, fixture.db, `SELECT COUNT(1) FROM assistants WHERE id = ?`, victim.rowID) {
		t.Fatalf("victim row must survive an aborted run")
	}
	var record quotadomain.QuotaRecord
	if err := fixture.db.Raw(`SELECT * FROM quota_records WHERE account_id = ?`, accountID).Scan(&record).Error; err != nil {
		t.Fatalf("read quota: %v", err)
	}
	if record.CurrentAssistants != 1 || record.DeletionCount != 0 {
		t.Fatalf("counters must stay untouched on abort: %+v", record)
	}
	if got := countLedger(t, fixture.db, accountID, quotadomain.ActionAutoDeletionTriggered); got != 0 {
		t.Fatalf("no auto_deletion_triggered entry on abort, got %d", got)
	}
}

func TestPhoneNumberFailureIsTolerated(t *testing.T) {
	node := mustNode(t)
	accountID := node.Generate()
	fixture := setupEnforcement(t, node)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	victim := seedAssistant(t, fixture, accountID, "Bot", base)
	bad := seedNumber(t, fixture, accountID, victim, "+15550000001", base)
	good := seedNumber(t, fixture, accountID, victim, "+15550000002", base.Add(time.Minute))
	fixture.fake.DeletePhoneNumberErr = map[string]error{
		bad.providerID: &voice.ProviderError{StatusCode: 500, Message: "flaky"},
	}
	seedQuota(t, fixture.db, node, accountID, 2, 600, 1, 650)

	result, err := fixture.svc.HandleBreach(ctx, quotadomain.BreachReport{
		AccountID: accountID, NewTotal: 650, Limit: 600, Overage: 50,
	})
	if err != nil {
		t.Fatalf("a failed number must not abort the run: %v", err)
	}
	if result.DeletedAssistantID != victim.rowID {
		t.Fatalf("assistant must still be deleted, got %+v", result)
	}
	if len(result.DeletedPhoneNumbers) != 2 {
		t.Fatalf("expected 2 number results, got %d", len(result.DeletedPhoneNumbers))
	}

	byID := map[snowflake.ID]domain.PhoneNumberResult{}
	for _, nr := range result.DeletedPhoneNumbers {
		byID[nr.PhoneNumberID] = nr
	}
	if byID[bad.rowID].Deleted || byID[bad.rowID].Error == "" {
		t.Fatalf("failed number must be reported, got %+v", byID[bad.rowID])
	}
	if !byID[good.rowID].Deleted {
		t.Fatalf("healthy number must be deleted, got %+v", byID[good.rowID])
	}

	// The failed number's row stays; its provider record was never removed.
	if !rowExists(t, fixture.db, `SELECT COUNT(1) FROM phone_numbers WHERE id = ?`, bad.rowID) {
		t.Fatalf("failed number row must survive")
	}
	if rowExists(t, fixture.db, `SELECT COUNT(1) FROM phone_numbers WHERE id = ?`, good.rowID) {
		t.Fatalf("deleted number row must be gone")
	}
}

type fixture struct {
	svc  domain.Service
	db   *gorm.DB
	fake *voice.Fake
	node *snowflake.Node
}

type seeded struct {
	rowID      snowflake.ID
	providerID string
}

func setupEnforcement(t *testing.T, node *snowflake.Node) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_loc=auto", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	prepareSchema(t, db)

	fake := voice.NewFake()
	svc := New(Params{
		Config:        config.Config{},
		DB:            db,
		Log:           zap.NewNop(),
		GenID:         node,
		QuotaRepo:     quotarepo.Provide(),
		AssistantRepo: assistantrepo.Provide(),
		PhoneRepo:     phonerepo.Provide(),
		Voice:         fake,
	})
	return &fixture{svc: svc, db: db, fake: fake, node: node}
}

func prepareSchema(t *testing.T, db *gorm.DB) {
	t.Helper()
	statements := []string{
		`CREATE TABLE quota_records (
			id BIGINT PRIMARY KEY,
			account_id BIGINT NOT NULL UNIQUE,
			plan TEXT NOT NULL,
			max_assistants INTEGER NOT NULL,
			max_call_time_seconds BIGINT NOT NULL,
			current_assistants INTEGER NOT NULL DEFAULT 0,
			used_call_time_seconds BIGINT NOT NULL DEFAULT 0,
			last_deletion_at DATETIME,
			deletion_count INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE usage_ledger_entries (
			id BIGINT PRIMARY KEY,
			account_id BIGINT NOT NULL,
			action TEXT NOT NULL,
			resource_id TEXT,
			assistant_delta INTEGER NOT NULL DEFAULT 0,
			call_time_delta BIGINT NOT NULL DEFAULT 0,
			reason TEXT NOT NULL,
			detail JSON,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE assistants (
			id BIGINT PRIMARY KEY,
			account_id BIGINT NOT NULL,
			provider_assistant_id TEXT NOT NULL,
			name TEXT NOT NULL,
			model TEXT NOT NULL,
			voice TEXT,
			transcriber TEXT,
			prompt TEXT,
			max_duration_seconds INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE phone_numbers (
			id BIGINT PRIMARY KEY,
			account_id BIGINT NOT NULL,
			assistant_id BIGINT,
			provider_number_id TEXT NOT NULL,
			number TEXT NOT NULL,
			carrier TEXT NOT NULL DEFAULT 'twilio',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("prepare schema: %v", err)
		}
	}
}

func seedAssistant(t *testing.T, f *fixture, accountID snowflake.ID, name string, createdAt time.Time) seeded {
	t.Helper()
	created, err := f.fake.CreateAssistant(context.Background(), voice.AssistantParams{Name: name, Model: "gpt-4o"})
	if err != nil {
		t.Fatalf("provider assistant: %v", err)
	}
	id := f.node.Generate()
	if err := f.db.Exec(
		`INSERT INTO assistants (id, account_id, provider_assistant_id, name, model, max_duration_seconds, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 'gpt-4o', 0, ?, ?)`,
		id, accountID, created.ID, name, createdAt, createdAt,
	).Error; err != nil {
		t.Fatalf("seed assistant: %v", err)
	}
	return seeded{rowID: id, providerID: created.ID}
}

func seedNumber(t *testing.T, f *fixture, accountID snowflake.ID, assistant seeded, number string, createdAt time.Time) seeded {
	t.Helper()
	created, err := f.fake.CreatePhoneNumber(context.Background(), voice.PhoneNumberParams{Number: number})
	if err != nil {
		t.Fatalf("provider number: %v", err)
	}
	id := f.node.Generate()
	if err := f.db.Exec(
		`INSERT INTO phone_numbers (id, account_id, assistant_id, provider_number_id, number, carrier, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, 'twilio', ?, ?)`,
		id, accountID, assistant.rowID, created.ID, number, createdAt, createdAt,
	).Error; err != nil {
		t.Fatalf("seed number: %v", err)
	}
	return seeded{rowID: id, providerID: created.ID}
}

func seedQuota(t *testing.T, db *gorm.DB, node *snowflake.Node, accountID snowflake.ID, maxAssistants int, maxSeconds int64, current int, used int64) {
	t.Helper()
	now := time.Now().UTC()
	if err := db.Exec(
		`INSERT INTO quota_records (id, account_id, plan, max_assistants, max_call_time_seconds,
			current_assistants, used_call_time_seconds, deletion_count, created_at, updated_at)
		 VALUES (?, ?, 'free', ?, ?, ?, ?, 0, ?, ?)`,
		node.Generate(), accountID, maxAssistants, maxSeconds, current, used, now, now,
	).Error; err != nil {
		t.Fatalf("seed quota: %v", err)
	}
}

func rowExists(t *testing.T, db *gorm.DB, query string, args ...any) bool {
	t.Helper()
	var count int
	if err := db.Raw(query, args...).Scan(&count).Error; err != nil {
		t.Fatalf("query: %v", err)
	}
	return count > 0
}

func countLedger(t *testing.T, db *gorm.DB, accountID snowflake.ID, action string) int {
	t.Helper()
	var count int
	if err := db.Raw(`SELECT COUNT(1) FROM usage_ledger_entries WHERE account_id = ? AND action = ?`, accountID, action).Scan(&count).Error; err != nil {
		t.Fatalf("count ledger: %v", err)
	}
	return count
}

func mustNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(5)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	return node
}
