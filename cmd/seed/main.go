// Package main provides a tool to seed the database with demo feed content.
//
// It creates posts from a handful of demo users and then has every user
// react to and view a random selection of them, so recommendations and tag
// affinity have something to work with. Run it while the server is stopped;
// it writes to the search index too.
//
// Usage:
//
//	go run ./cmd/seed -data-path ~/Enterra/data
//	go run ./cmd/seed -users 8 -interactions 15
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/ProtheticGlitch/Enterra/internal/affinity"
	"github.com/ProtheticGlitch/Enterra/internal/cache"
	"github.com/ProtheticGlitch/Enterra/internal/category"
	"github.com/ProtheticGlitch/Enterra/internal/config"
	"github.com/ProtheticGlitch/Enterra/internal/domain"
	"github.com/ProtheticGlitch/Enterra/internal/duplicate"
	domainerrors "github.com/ProtheticGlitch/Enterra/internal/errors"
	"github.com/ProtheticGlitch/Enterra/internal/logger"
	"github.com/ProtheticGlitch/Enterra/internal/moderation"
	"github.com/ProtheticGlitch/Enterra/internal/recommend"
	"github.com/ProtheticGlitch/Enterra/internal/search"
	"github.com/ProtheticGlitch/Enterra/internal/service"
	"github.com/ProtheticGlitch/Enterra/internal/store/sqlite"
)

var (
	numUsers        = flag.Int("users", 5, "Number of demo users")
	numInteractions = flag.Int("interactions", 10, "Posts each user reacts to or views")
)

// samplePosts is the demo content; tags are chosen to hit the default
// category mapping.
var samplePosts = []struct {
	title string
	body  string
	tags  []string
}{
	{"Лучшие фильмы девяностых", "Подборка фильмов, которые стоит пересмотреть этой осенью.", []string{"кино", "ретро"}},
	{"Новый альбом любимой группы", "Послушал три раза подряд, делюсь впечатлениями по каждому треку.", []string{"музыка", "рецензия"}},
	{"Sourdough starter from scratch", "Seven days, flour, water and a lot of patience. Notes from my kitchen.", []string{"baking", "food"}},
	{"Marathon training, week one", "Easy runs, one long run and far too much stretching.", []string{"running", "sport"}},
	{"Jazz records for a rainy day", "Slow piano trios and a couple of vocal classics for grey afternoons.", []string{"музыка", "jazz"}},
	{"Сериалы, которые затягивают", "Короткий список сериалов, от которых сложно оторваться.", []string{"кино", "сериалы"}},
	{"Weekend hike above the clouds", "Eighteen kilometres, one summit and fog everywhere until noon.", []string{"travel", "hiking"}},
	{"Budget film camera guide", "What to look for in a second-hand camera and which lenses to skip.", []string{"photo", "кино"}},
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		Environment: cfg.App.Environment,
	})

	fmt.Printf("Opening database at: %s\n", cfg.Data.DatabasePath())

	st, err := sqlite.Open(cfg.Data.DatabasePath(), log.Component("store"))
	if err != nil {
		log.Fatal("failed to open database", "error", err)
	}
	defer st.Close()

	index, err := search.NewSearchIndex(search.Options{DataPath: cfg.Data.SearchPath(), Logger: log.Component("search")})
	if err != nil {
		log.Fatal("failed to open search index", "error", err)
	}
	defer index.Close()

	mapper, err := category.NewMapper(cfg.Moderation.CategoryMapFile, log.Component("category"))
	if err != nil {
		log.Fatal("failed to load category mapping", "error", err)
	}

	gate := moderation.NewGate(st, moderation.NewWordList(), log.Component("moderation"))
	ledger := affinity.NewLedger(st, log.Component("affinity"))
	recs := service.NewRecommendationService(st, recommend.New(st, log.Component("recommend")), cache.Noop{}, 0, cfg.Recommend.DefaultLimit, log.Component("recommend"))

	ctx := context.Background()
	moderationSvc := service.NewModerationService(st, gate, nil, index, log.Component("moderation"))
	seed, err := service.ReadWordsFile(cfg.Moderation.BannedWordsFile)
	if err != nil {
		log.Fatal("failed to read banned words file", "error", err)
	}
	if err := moderationSvc.LoadBannedWords(ctx, seed); err != nil {
		log.Fatal("failed to load banned words", "error", err)
	}

	thresholds := service.DuplicateThresholds{
		Similar: cfg.Duplicate.SimilarThreshold,
		Danger:  cfg.Duplicate.CheckThreshold,
		Warn:    cfg.Duplicate.WarnThreshold,
	}
	posts := service.NewPostService(st, gate, duplicate.NewDetector(st, log.Component("duplicate")), mapper, nil, index, nil, thresholds, log.Component("posts"))
	interactions := service.NewInteractionService(st, ledger, gate, recs, nil, log.Component("interactions"))

	users := make([]domain.Identity, *numUsers)
	for i := range users {
		users[i] = domain.Identity{
			UserID:   fmt.Sprintf("u-demo%d", i+1),
			Username: fmt.Sprintf("demo%d", i+1),
		}
	}
	if len(users) == 0 {
		log.Fatal("at least one user is required")
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	var created []*domain.Post
	for i, sp := range samplePosts {
		author := users[i%len(users)]
		res, err := posts.Create(ctx, author, service.PostInput{
			Title: sp.title,
			Body:  sp.body,
			Tags:  sp.tags,
		})
		var derr *domainerrors.Error
		if errors.As(err, &derr) {
			fmt.Printf("  Skipped %q: %s\n", sp.title, derr.Message)
			continue
		}
		if err != nil {
			log.Fatal("failed to create post", "title", sp.title, "error", err)
		}
		created = append(created, res.Post)
		fmt.Printf("  Created post %s (%s): %s\n", res.Post.ID, res.Outcome, res.Post.Title)
	}
	if len(created) == 0 {
		log.Fatal("no posts were created")
	}

	for _, user := range users {
		reactions, views := 0, 0
		for _, idx := range rng.Perm(len(created))[:min(*numInteractions, len(created))] {
			post := created[idx]
			if post.AuthorID == user.UserID {
				continue
			}

			progress := rng.Float64()
			if _, err := interactions.RecordView(ctx, user, post.ID, service.ViewInput{
				Progress:     progress,
				IsComplete:   progress > 0.9,
				ViewDuration: float64(5 + rng.Intn(120)),
			}); err != nil {
				log.Warn("failed to record view", "user_id", user.UserID, "post_id", post.ID, "error", err)
				continue
			}
			views++

			// Mostly likes, with the occasional dislike.
			code := string(domain.ReactionLike)
			switch r := rng.Float32(); {
			case r < 0.15:
				code = string(domain.ReactionDislike)
			case r > 0.7:
				continue
			}
			if _, err := interactions.React(ctx, user, post.ID, code); err != nil {
				log.Warn("failed to react", "user_id", user.UserID, "post_id", post.ID, "error", err)
				continue
			}
			reactions++
		}
		fmt.Printf("  %s: %d views, %d reactions\n", user.Username, views, reactions)
	}

	fmt.Println("\nSeeding complete!")
}
