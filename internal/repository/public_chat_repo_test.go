package repository_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/quocanhngo/publicchat/internal/matching"
	"github.com/quocanhngo/publicchat/internal/model"
	"github.com/quocanhngo/publicchat/internal/repository"
	"github.com/quocanhngo/publicchat/internal/service"
	"github.com/quocanhngo/publicchat/migrations"
	"github.com/quocanhngo/publicchat/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// openTestDB connects to TEST_DATABASE_URL (a postgres:// URL) and applies migrations
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	if err := migrations.Run(url, logger.Nop()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	db, err := gorm.Open(postgres.Open(url), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	return db
}

type pgFixture struct {
	chats *repository.PublicChatRepository
	users *repository.UserRepository
	svc   *service.MatchmakingService
}

func newPGFixture(t *testing.T) *pgFixture {
	db := openTestDB(t)
	f := &pgFixture{
		chats: repository.NewPublicChatRepository(db),
		users: repository.NewUserRepository(db),
	}
	f.svc = service.NewMatchmakingService(f.chats, repository.NewProfileRepository(db), f.users,
		matching.NewScorer(), nil, service.Options{}, logger.Nop())
	return f
}

func (f *pgFixture) user(t *testing.T) uuid.UUID {
	t.Helper()
	u := &model.User{Username: "u_" + uuid.NewString()[:12]}
	if err := f.users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u.ID
}

func (f *pgFixture) chat(t *testing.T, creator uuid.UUID, maxMembers int) *model.PublicChat {
	t.Helper()
	chat, err := f.svc.Create(context.Background(), creator, service.CreateChatInput{
		Name:          "pg chat",
		ScheduledDate: time.Now().Add(time.Hour),
		MaxMembers:    &maxMembers,
	})
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}
	return chat
}

func TestPostgres_ConcurrentJoinsRespectCapacity(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()
	const capacity, joiners = 4, 12

	chat := f.chat(t, f.user(t), capacity)
	users := make([]uuid.UUID, joiners)
	for i := range users {
		users[i] = f.user(t)
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		joined int
	)
	for _, u := range users {
		wg.Add(1)
		go func(u uuid.UUID) {
			defer wg.Done()
			_, err := f.svc.Join(ctx, u, chat.ID, nil)
			switch {
			case err == nil:
				mu.Lock()
				joined++
				mu.Unlock()
			case !errors.Is(err, model.ErrChatFull):
				t.Errorf("Join() unexpected error = %v", err)
			}
		}(u)
	}
	wg.Wait()

	if joined != capacity-1 {
		t.Errorf("joined = %d, want %d", joined, capacity-1)
	}
	ids, err := f.chats.JoinedUserIDs(ctx, chat.ID)
	if err != nil {
		t.Fatalf("JoinedUserIDs() error = %v", err)
	}
	if len(ids) != capacity {
		t.Errorf("joined members = %d, want %d", len(ids), capacity)
	}
}

func TestPostgres_RevealAndAudit(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()
	host, alice := f.user(t), f.user(t)
	chat := f.chat(t, host, 5)

	if _, err := f.svc.Join(ctx, alice, chat.ID, nil); err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	if _, err := f.svc.Reveal(ctx, alice, chat.ID); err != nil {
		t.Fatalf("Reveal() error = %v", err)
	}
	if _, err := f.svc.Reveal(ctx, alice, chat.ID); !errors.Is(err, model.ErrAlreadyRevealed) {
		t.Errorf("second Reveal() error = %v, want ErrAlreadyRevealed", err)
	}
	if _, err := f.svc.Leave(ctx, alice, chat.ID); err != nil {
		t.Fatalf("Leave() error = %v", err)
	}

	trail, err := f.chats.AuditTrail(ctx, chat.ID, alice)
	if err != nil {
		t.Fatalf("AuditTrail() error = %v", err)
	}
	if len(trail) != 2 || trail[0].Action != model.ChatActionJoined || trail[1].Action != model.ChatActionLeft {
		t.Fatalf("audit trail = %+v, want joined then left", trail)
	}

	member, err := f.chats.FindMember(ctx, chat.ID, alice)
	if err != nil {
		t.Fatalf("FindMember() error = %v", err)
	}
	if member.RevealedAt == nil || member.IsAnonymous {
		t.Errorf("reveal should survive leaving: %+v", member)
	}
}

func TestPostgres_BrowseTopicFilter(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()
	host := f.user(t)
	chat := f.chat(t, host, 5)
	topic := "pgtopic" + uuid.NewString()[:8]

	if _, err := f.svc.UpsertSummary(ctx, host, chat.ID, "a test summary", []string{topic}); err != nil {
		t.Fatalf("UpsertSummary() error = %v", err)
	}

	chats, total, err := f.chats.Browse(ctx, repository.BrowseFilter{Now: time.Now(), Topic: topic, Limit: 10})
	if err != nil {
		t.Fatalf("Browse() error = %v", err)
	}
	if total != 1 || len(chats) != 1 || chats[0].ID != chat.ID {
		t.Fatalf("Browse(%q) = %d chats, total %d", topic, len(chats), total)
	}
	if chats[0].JoinedCount != 1 || chats[0].SummaryText() != "a test summary" {
		t.Errorf("browse row = %+v", chats[0])
	}
}
