package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/quocanhngo/publicchat/internal/cache"
	"github.com/quocanhngo/publicchat/internal/config"
	"github.com/quocanhngo/publicchat/internal/matching"
	"github.com/quocanhngo/publicchat/internal/model"
	"github.com/quocanhngo/publicchat/internal/repository"
	"github.com/quocanhngo/publicchat/internal/seed"
	"github.com/quocanhngo/publicchat/internal/service"
	"github.com/quocanhngo/publicchat/migrations"
	"github.com/quocanhngo/publicchat/pkg/auth"
	"github.com/quocanhngo/publicchat/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// writer stores seed data through the gorm repositories
type writer struct {
	users    *repository.UserRepository
	profiles *repository.ProfileRepository
}

func (w writer) AddUser(ctx context.Context, u *model.User) error { return w.users.Create(ctx, u) }
func (w writer) AddPreference(ctx context.Context, p *model.UserPreference) error {
	return w.profiles.AddPreference(ctx, p)
}
func (w writer) AddPost(ctx context.Context, p *model.Post) error { return w.profiles.AddPost(ctx, p) }
func (w writer) AddFavoriteLocation(ctx context.Context, l *model.FavoriteLocation) error {
	return w.profiles.AddFavoriteLocation(ctx, l)
}

func main() {
	cfg := config.Load()

	log, err := logger.NewDevelopment("info")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Force DB logging off to avoid noise
	db, err := gorm.Open(postgres.Open(cfg.DB.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		log.Fatal("❌ Failed to connect to database", zap.Error(err))
	}
	log.Info("✅ Connected to Database")

	if err := migrations.Run(cfg.DB.URL(), log); err != nil {
		log.Fatal("❌ Failed to migrate database", zap.Error(err))
	}

	ctx := context.Background()
	users := repository.NewUserRepository(db)
	profiles := repository.NewProfileRepository(db)
	chats := repository.NewPublicChatRepository(db)
	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, 30*24*time.Hour)

	svc := service.NewMatchmakingService(chats, profiles, users, matching.NewScorer(), nil, service.Options{
		DefaultMaxMembers: cfg.PublicChat.DefaultMaxMembers,
		DefaultDuration:   cfg.PublicChat.DefaultDuration,
	}, log)

	var seeded []model.User
	if existing, err := users.FindByUsername(ctx, "linh"); err == nil {
		log.Info("🔄 Demo data already present, printing tokens only", zap.String("host_id", existing.ID.String()))
		for _, name := range []string{"linh", "alice", "bao", "chi", "duc", "mai"} {
			if u, err := users.FindByUsername(ctx, name); err == nil {
				seeded = append(seeded, *u)
			}
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Fatal("❌ Failed to look up demo host", zap.Error(err))
	} else {
		log.Info("🌱 Seeding demo users and chats...")
		res, err := seed.Run(ctx, writer{users: users, profiles: profiles}, svc, time.Now())
		if err != nil {
			log.Fatal("❌ Seeding failed", zap.Error(err))
		}
		for _, c := range res.Chats {
			log.Info("✅ Created chat", zap.String("name", c.Name), zap.String("id", c.ID.String()))
		}
		seeded = res.Users
		invalidateProfiles(ctx, cfg, profiles, seeded, log)
	}

	fmt.Println("\n📋 Dev tokens (valid 30 days):")
	for _, u := range seeded {
		token, err := jwtManager.GenerateToken(u.ID, u.Username)
		if err != nil {
			log.Error("token generation failed", zap.String("username", u.Username), zap.Error(err))
			continue
		}
		fmt.Printf("  %-6s %s\n         %s\n", u.Username, u.ID, token)
	}
	fmt.Println("\n✨ Seeding completed!")
}

// invalidateProfiles drops cached profiles of seeded users so a running server rebuilds them
func invalidateProfiles(ctx context.Context, cfg *config.Config, profiles *repository.ProfileRepository, users []model.User, log *logger.Logger) {
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr(), Password: cfg.Redis.Password})
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("⚠️  Redis not available, skipping profile cache invalidation", zap.Error(err))
		return
	}

	profileCache := cache.NewProfileCache(profiles, rdb, cfg.Redis.ProfileCacheTTL, log)
	for _, u := range users {
		if err := profileCache.Invalidate(ctx, u.ID); err != nil {
			log.Warn("profile cache invalidation failed", zap.String("username", u.Username), zap.Error(err))
		}
	}
	log.Info("🧹 Profile cache invalidated", zap.Int("users", len(users)))
}
