package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	assistantrepo "github.com/voxlane/voxlane/internal/assistant/repository"
	"github.com/voxlane/voxlane/internal/phonenumber/domain"
	"github.com/voxlane/voxlane/internal/phonenumber/repository"
	"github.com/voxlane/voxlane/internal/providers/voice"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestCreateRollsBackProviderOnInsertFailure(t *testing.T) {
	node := mustNode(t)
	svc, _, fake := setupPhoneService(t, node, false)

	_, err := svc.Create(context.Background(), domain.CreateRequest{
		AccountID:        node.Generate(),
		Number:           "+15550001111",
		TwilioAccountSID: "AC123",
		TwilioAuthToken:  "secret",
	})
	if err == nil {
		t.Fatalf("expected insert failure")
	}
	if fake.HasPhoneNumber("vp_1") {
		t.Fatalf("provider number must be rolled back after storage failure")
	}
}

func TestCreateWithAssistantAssignment(t *testing.T) {
	node := mustNode(t)
	accountID := node.Generate()
	svc, db, fake := setupPhoneService(t, node, true)
	ctx := context.Background()

	assistantID := seedAssistant(t, db, node, accountID, fake)

	number, err := svc.Create(ctx, domain.CreateRequest{
		AccountID:        accountID,
		Number:           "+15550001111",
		TwilioAccountSID: "AC123",
		TwilioAuthToken:  "secret",
		AssistantID:      assistantID.String(),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if number.AssistantID == nil || *number.AssistantID != assistantID {
		t.Fatalf("expected number assigned to assistant, got %+v", number)
	}
	if !fake.HasPhoneNumber(number.ProviderNumberID) {
		t.Fatalf("provider number missing after create")
	}
}

func TestCreateRejectsUnknownAssistant(t *testing.T) {
	node := mustNode(t)
	svc, _, _ := setupPhoneService(t, node, true)

	_, err := svc.Create(context.Background(), domain.CreateRequest{
		AccountID:        node.Generate(),
		Number:           "+15550001111",
		TwilioAccountSID: "AC123",
		TwilioAuthToken:  "secret",
		AssistantID:      node.Generate().String(),
	})
	if err != domain.ErrAssistantNotFound {
		t.Fatalf("expected ErrAssistantNotFound, got %v", err)
	}
}

func TestAssignAndRelease(t *testing.T) {
	node := mustNode(t)
	accountID := node.Generate()
	svc, db, fake := setupPhoneService(t, node, true)
	ctx := context.Background()

	assistantID := seedAssistant(t, db, node, accountID, fake)

	number, err := svc.Create(ctx, domain.CreateRequest{
		AccountID:        accountID,
		Number:           "+15550001111",
		TwilioAccountSID: "AC123",
		TwilioAuthToken:  "secret",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	assigned, err := svc.Assign(ctx, accountID, number.ID, assistantID)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if assigned.AssistantID == nil || *assigned.AssistantID != assistantID {
		t.Fatalf("expected assignment, got %+v", assigned)
	}

	released, err := svc.Release(ctx, accountID, number.ID)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if released.AssistantID != nil {
		t.Fatalf("expected detached number, got %+v", released)
	}

	// Releasing an already-detached number is a no-op.
	if _, err := svc.Release(ctx, accountID, number.ID); err != nil {
		t.Fatalf("second release: %v", err)
	}
}

func TestDeleteRemovesProviderRecord(t *testing.T) {
	node := mustNode(t)
	accountID := node.Generate()
	svc, db, fake := setupPhoneService(t, node, true)
	ctx := context.Background()

	number, err := svc.Create(ctx, domain.CreateRequest{
		AccountID:        accountID,
		Number:           "+15550001111",
		TwilioAccountSID: "AC123",
		TwilioAuthToken:  "secret",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Delete(ctx, accountID, number.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if fake.HasPhoneNumber(number.ProviderNumberID) {
		t.Fatalf("provider number must be deleted")
	}

	var count int
	if err := db.Raw(`SELECT COUNT(1) FROM phone_numbers`).Scan(&count).Error; err != nil {
		t.Fatalf("count numbers: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 rows after delete, got %d", count)
	}
}

func setupPhoneService(t *testing.T, node *snowflake.Node, withSchema bool) (domain.Service, *gorm.DB, *voice.Fake) {
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
	if withSchema {
		preparePhoneSchema(t, db)
	}

	fake := voice.NewFake()
	svc := New(Params{
		DB:            db,
		Log:           zap.NewNop(),
		GenID:         node,
		Repo:          repository.Provide(),
		AssistantRepo: assistantrepo.Provide(),
		Voice:         fake,
	})
	return svc, db, fake
}

func preparePhoneSchema(t *testing.T, db *gorm.DB) {
	t.Helper()
	if err := db.Exec(`CREATE TABLE assistants (
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
	)`).Error; err != nil {
		t.Fatalf("create assistants: %v", err)
	}
	if err := db.Exec(`CREATE TABLE phone_numbers (
		id BIGINT PRIMARY KEY,
		account_id BIGINT NOT NULL,
		assistant_id BIGINT,
		provider_number_id TEXT NOT NULL,
		number TEXT NOT NULL,
		carrier TEXT NOT NULL DEFAULT 'twilio',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`).Error; err != nil {
		t.Fatalf("create phone_numbers: %v", err)
	}
}

func seedAssistant(t *testing.T, db *gorm.DB, node *snowflake.Node, accountID snowflake.ID, fake *voice.Fake) snowflake.ID {
	t.Helper()
	created, err := fake.CreateAssistant(context.Background(), voice.AssistantParams{Name: "Support Bot", Model: "gpt-4o"})
	if err != nil {
		t.Fatalf("provider assistant: %v", err)
	}
	id := node.Generate()
	now := time.Now().UTC()
	if err := db.Exec(
		`INSERT INTO assistants (id, account_id, provider_assistant_id, name, model, max_duration_seconds, created_at, updated_at)
		 VALUES (?, ?, ?, 'Support Bot', 'gpt-4o', 0, ?, ?)`,
		id, accountID, created.ID, now, now,
	).Error; err != nil {
		t.Fatalf("seed assistant: %v", err)
	}
	return id
}

func mustNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(3)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	return node
}
