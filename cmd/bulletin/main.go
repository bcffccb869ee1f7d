// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/poiesic/bulletin"
	"github.com/poiesic/bulletin/board"
	"github.com/poiesic/bulletin/embed"
	"github.com/poiesic/bulletin/embed/mock"
	"github.com/poiesic/bulletin/embed/openai"
	"github.com/poiesic/bulletin/rank"
	"github.com/urfave/cli/v2"
)

var dbFlag = &cli.StringFlag{
	Name:     "db",
	Aliases:  []string{"d"},
	Usage:    "Path to BadgerDB database directory",
	Required: true,
}

var embedFlags = []cli.Flag{
	&cli.StringFlag{
		Name:  "embedding-host",
		Usage: "Embedding service host URL",
		Value: "http://localhost:11434/v1",
	},
	&cli.StringFlag{
		Name:  "embedding-model",
		Usage: "Embedding model name",
		Value: "all-minilm",
	},
	&cli.BoolFlag{
		Name:  "mock-embedder",
		Usage: "Use the deterministic mock embedder instead of a live service",
	},
}

func main() {
	app := &cli.App{
		Name:  "bulletin",
		Usage: "Embedding-backed bulletin board",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "seed",
				Usage:  "Register a demo identity and post demo content",
				Action: seedCommand,
				Flags:  append([]cli.Flag{dbFlag}, embedFlags...),
			},
			{
				Name:   "list",
				Usage:  "List threads, newest first",
				Action: listCommand,
				Flags: []cli.Flag{
					dbFlag,
					&cli.StringFlag{Name: "hashtag", Usage: "Only threads carrying this hashtag"},
					&cli.IntFlag{Name: "limit", Usage: "Maximum threads to list", Value: 20},
					&cli.IntFlag{Name: "offset", Usage: "Threads to skip"},
				},
			},
			{
				Name:   "hot",
				Usage:  "List threads by hotness",
				Action: hotCommand,
				Flags: []cli.Flag{
					dbFlag,
					&cli.StringFlag{Name: "hashtag", Usage: "Only threads carrying this hashtag"},
					&cli.IntFlag{Name: "limit", Usage: "Maximum threads to list", Value: 20},
				},
			},
			{
				Name:      "search",
				Usage:     "Semantic search over all posts",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: append([]cli.Flag{
					dbFlag,
					&cli.StringFlag{Name: "hashtag", Usage: "Only posts carrying this hashtag"},
					&cli.IntFlag{Name: "limit", Usage: "Maximum results", Value: 10},
					&cli.IntFlag{Name: "offset", Usage: "Results to skip"},
					&cli.BoolFlag{Name: "ranked", Usage: "Blend similarity with likes and recency"},
				}, embedFlags...),
			},
			{
				Name:   "pending",
				Usage:  "List identities awaiting approval",
				Action: pendingCommand,
				Flags:  []cli.Flag{dbFlag},
			},
			{
				Name:      "approve",
				Usage:     "Approve a pending identity",
				ArgsUsage: "<public-key>",
				Action:    approveCommand,
				Flags:     []cli.Flag{dbFlag},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func openDatabase(c *cli.Context) (*bulletin.Database, error) {
	db, err := bulletin.NewDatabase(c.String("db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func newEmbedder(c *cli.Context) (embed.Embedder, error) {
	if c.Bool("mock-embedder") {
		return mock.NewMockEmbedder(), nil
	}

	config := embed.NewConfig(
		embed.WithHost(c.String("embedding-host")),
		embed.WithModel(c.String("embedding-model")),
	)
	embedder, err := openai.NewEmbedder(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return embedder, nil
}

var seedPosts = []struct {
	content  string
	hashtags []string
}{
	{"Hello board. First post from the seed identity.", []string{"meta"}},
	{"Comparing brute-force cosine scans against ANN indexes for small corpora.", []string{"search", "vectors"}},
	{"Reminder: the board stores vectors, it never computes them.", []string{"meta", "vectors"}},
}

func seedCommand(c *cli.Context) error {
	ctx := context.Background()

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	embedder, err := newEmbedder(c)
	if err != nil {
		return err
	}

	svc, err := db.NewBoard()
	if err != nil {
		return fmt.Errorf("failed to create board service: %w", err)
	}
	defer svc.Release()

	shibboleth := "The quick brown fox prefers hand-written prose over template text."
	shibbolethVector, err := embedder.EmbedText(ctx, shibboleth)
	if err != nil {
		return fmt.Errorf("failed to embed shibboleth: %w", err)
	}

	const seedKey = "seed-identity-key"
	err = svc.Register(ctx, board.RegisterRequest{
		PublicKey:        seedKey,
		DisplayName:      "seed",
		NetworkAddress:   "seed.local:0",
		Shibboleth:       shibboleth,
		ShibbolethVector: shibbolethVector,
	})
	if err != nil {
		return fmt.Errorf("failed to register seed identity: %w", err)
	}

	if _, err := db.IdentityStore().Approve(ctx, seedKey); err != nil {
		return fmt.Errorf("failed to approve seed identity: %w", err)
	}

	for _, seed := range seedPosts {
		vector, err := embedder.EmbedText(ctx, seed.content)
		if err != nil {
			return fmt.Errorf("failed to embed seed post: %w", err)
		}
		receipt, err := svc.Post(ctx, board.PostRequest{
			AuthorKey: seedKey,
			Content:   seed.content,
			Vector:    vector,
			Hashtags:  seed.hashtags,
		})
		if err != nil {
			return fmt.Errorf("failed to post seed content: %w", err)
		}
		if receipt.Warning != nil {
			fmt.Fprintf(os.Stderr, "skipped near-duplicate seed post: %s\n", receipt.Warning.Message)
			continue
		}
		fmt.Printf("posted %s\n", receipt.Post.ID)
	}
	return nil
}

func listCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	threads, err := db.PostStore().ListThreads(context.Background(),
		c.String("hashtag"), c.Int("limit"), c.Int("offset"))
	if err != nil {
		return fmt.Errorf("failed to list threads: %w", err)
	}

	for _, thread := range threads {
		fmt.Printf("%s  %s  likes=%d replies=%d\n  %s\n",
			thread.Post.ID, thread.Post.Author, thread.Post.Likes,
			thread.ReplyCount, thread.Post.Content)
	}
	return nil
}

func hotCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	svc, err := db.NewBoard()
	if err != nil {
		return fmt.Errorf("failed to create board service: %w", err)
	}
	defer svc.Release()

	hot, err := svc.ListHot(context.Background(), c.String("hashtag"), c.Int("limit"))
	if err != nil {
		return fmt.Errorf("failed to rank threads: %w", err)
	}

	for _, item := range hot {
		fmt.Printf("%.3f  %s  %s\n  %s\n",
			item.Hotness, item.Post.ID, item.Post.Author, item.Post.Content)
	}
	return nil
}

func searchCommand(c *cli.Context) error {
	ctx := context.Background()

	query := c.Args().First()
	if query == "" {
		return fmt.Errorf("query argument is required")
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	embedder, err := newEmbedder(c)
	if err != nil {
		return err
	}

	vector, err := embedder.EmbedText(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to embed query: %w", err)
	}

	svc, err := db.NewBoard()
	if err != nil {
		return fmt.Errorf("failed to create board service: %w", err)
	}
	defer svc.Release()

	req := board.SearchRequest{
		Vector:  vector,
		Hashtag: c.String("hashtag"),
		Limit:   c.Int("limit"),
		Offset:  c.Int("offset"),
	}
	if c.Bool("ranked") {
		weights := rank.DefaultWeights()
		req.Weights = &weights
	}

	results, err := svc.Search(ctx, req)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	for _, result := range results {
		fmt.Printf("%.3f  %s  %s\n  %s\n",
			result.Similarity, result.Post.ID, result.Post.Author, result.Post.Content)
	}
	return nil
}

func pendingCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	pending, err := db.IdentityStore().ListPending(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list pending identities: %w", err)
	}

	for _, identity := range pending {
		fmt.Printf("%s  %s  %s\n  %s\n",
			identity.PublicKey, identity.DisplayName,
			identity.CreatedAt.Format("2006-01-02 15:04:05"), identity.Shibboleth)
	}
	return nil
}

func approveCommand(c *cli.Context) error {
	publicKey := c.Args().First()
	if publicKey == "" {
		return fmt.Errorf("public-key argument is required")
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	changed, err := db.IdentityStore().Approve(context.Background(), publicKey)
	if err != nil {
		return fmt.Errorf("failed to approve identity: %w", err)
	}
	if !changed {
		fmt.Println("nothing to do: identity is unknown or already approved")
		return nil
	}
	fmt.Printf("approved %s\n", publicKey)
	return nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
