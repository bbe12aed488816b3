package seed

import (
	"context"
	"testing"
	"time"

	"github.com/quocanhngo/publicchat/internal/matching"
	"github.com/quocanhngo/publicchat/internal/repository/memory"
	"github.com/quocanhngo/publicchat/internal/service"
	"github.com/quocanhngo/publicchat/pkg/logger"
)

func TestRun_CoffeeNightTopsAliceRecommendations(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 2, 12, 0, 0, 0, time.UTC)

	store := memory.NewStore()
	svc := service.NewMatchmakingService(store, store, store.Users(), matching.NewScorer(), nil, service.Options{}, logger.Nop())
	svc.SetClock(func() time.Time { return now })

	res, err := Run(ctx, store, svc, now)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(res.Users) != len(demoUsers) || len(res.Chats) != len(demoChats) {
		t.Fatalf("seeded %d users and %d chats", len(res.Users), len(res.Chats))
	}

	var alice = res.Users[1]
	if alice.Username != "alice" {
		t.Fatalf("second user = %q, want alice", alice.Username)
	}

	page, err := svc.Recommend(ctx, alice.ID, 1, 5, matching.Weights{})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(page.Items) == 0 {
		t.Fatal("no recommendations")
	}
	if got := page.Items[0].Chat.Name; got != "Coffee Night" {
		t.Errorf("top recommendation = %q, want Coffee Night", got)
	}
}
