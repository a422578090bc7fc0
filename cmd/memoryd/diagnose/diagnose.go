// Package diagnosecmder provides "memoryd diagnose", a read-only CLI
// command reporting the health of each memory backend and, when given a
// session or user ID, the raw contents held about it. Grounded on
// _examples/original_source/backend/scripts/memory_diagnostics.py, which
// the spec's distillation dropped; supplemented here per the process's
// "original_source may supplement the spec" rule.
package diagnosecmder

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Valino123/trip-memory/pkg/cliexit"
	"github.com/Valino123/trip-memory/pkg/config"
	"github.com/Valino123/trip-memory/pkg/logger"
	"github.com/Valino123/trip-memory/pkg/memory"
	"github.com/Valino123/trip-memory/pkg/vector"
	"github.com/Valino123/trip-memory/pkg/wiring"
)

type commander struct {
	userID    string
	sessionID string
	last      int

	redisOnly  bool
	docOnly    bool
	vectorOnly bool

	configDir string
	debug     bool
}

const longDesc = `Report the health of, and optionally the raw contents held
in, each memory backend:

  memoryd diagnose --session s_xxx         intra-session Redis log + doc summary
  memoryd diagnose --user u_xxx            preferences doc + vector point count

This command never mutates state; it only reads.`

// NewCmd returns the "diagnose" command.
func NewCmd() *cobra.Command {
	cmder := &commander{}

	cmd := &cobra.Command{
		Use:   "diagnose",
		Short: "Report memory backend health and contents (read-only)",
		Long:  longDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString(config.FlagConfigDir)
			cmder.debug, _ = cmd.Flags().GetBool(config.FlagDebug)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run()
		},
	}

	cmd.Flags().StringVar(&cmder.userID, "user", "", "user_id to inspect")
	cmd.Flags().StringVar(&cmder.sessionID, "session", "", "session_id to inspect")
	cmd.Flags().IntVar(&cmder.last, "last", 10, "last N messages from the intra-session log")
	cmd.Flags().BoolVar(&cmder.redisOnly, "redis-only", false, "only check the kv backend")
	cmd.Flags().BoolVar(&cmder.docOnly, "doc-only", false, "only check the doc backend")
	cmd.Flags().BoolVar(&cmder.vectorOnly, "vector-only", false, "only check the vector backend")

	return cmd
}

func (c *commander) run() error {
	log := logger.NewLogger(c.debug)
	defer func() { _ = log.Sync() }()

	ctx := context.Background()

	cfg, err := config.LoadConfig(c.configDir)
	if err != nil {
		return cliexit.ArgumentError(fmt.Errorf("loading config: %w", err))
	}

	backends, err := wiring.Connect(ctx, cfg, log)
	if err != nil {
		return cliexit.BackendUnavailable(fmt.Errorf("connecting to backends: %w", err))
	}
	defer backends.Close(log)

	checkAll := !c.redisOnly && !c.docOnly && !c.vectorOnly

	if checkAll || c.redisOnly {
		c.checkKV(ctx, backends)
	}
	if checkAll || c.docOnly {
		c.checkDoc(ctx, backends)
	}
	if checkAll || c.vectorOnly {
		c.checkVector(ctx, backends, cfg)
	}

	fmt.Println("\nDone.")
	return nil
}

func (c *commander) checkKV(ctx context.Context, b *wiring.Backends) {
	fmt.Println("=== KV (intra-session) ===")
	if b.KV == nil {
		fmt.Println("kv backend not available.")
		return
	}
	if err := b.KV.Ping(ctx); err != nil {
		fmt.Printf("kv ping failed: %v\n", err)
		return
	}
	fmt.Println("kv backend reachable.")

	if c.sessionID == "" {
		fmt.Println("provide --session to inspect a session's message log.")
		return
	}
	key := "session:" + c.sessionID
	raw, err := b.KV.LRange(ctx, key, -int64(c.last), -1)
	if err != nil {
		fmt.Printf("reading %s failed: %v\n", key, err)
		return
	}
	fmt.Printf("key: %s (last %d)\n", key, c.last)
	for i, r := range raw {
		fmt.Printf("%02d. %s\n", i+1, r)
	}
}

func (c *commander) checkDoc(ctx context.Context, b *wiring.Backends) {
	fmt.Println("\n=== Doc (conversations) ===")
	if b.Doc == nil {
		fmt.Println("doc backend not available.")
		return
	}
	if err := b.Doc.Ping(ctx); err != nil {
		fmt.Printf("doc ping failed: %v\n", err)
		return
	}
	fmt.Println("doc backend reachable.")

	if c.sessionID != "" {
		convo, ok, err := b.Doc.GetConversation(ctx, memory.SessionID(c.sessionID))
		if err != nil {
			fmt.Printf("reading conversation failed: %v\n", err)
		} else if !ok {
			fmt.Println("no conversation doc found.")
		} else {
			printJSON(map[string]any{
				"user_id":       convo.UserID,
				"session_id":    convo.SessionID,
				"summary":       convo.Summary,
				"message_count": convo.MessageCount,
				"updated_at":    convo.UpdatedAt,
			})
		}
	}

	fmt.Println("\n=== Doc (user preferences) ===")
	if c.userID == "" {
		fmt.Println("provide --user to check preferences.")
		return
	}
	pref, ok, err := b.Doc.GetPreference(ctx, memory.UserID(c.userID))
	if err != nil {
		fmt.Printf("reading preferences failed: %v\n", err)
		return
	}
	if !ok {
		fmt.Println("no preferences doc for this user.")
		return
	}
	printJSON(pref)
}

func (c *commander) checkVector(ctx context.Context, b *wiring.Backends, cfg *config.Config) {
	fmt.Println("\n=== Vector (conversations) ===")
	if b.Vector == nil {
		fmt.Println("vector backend not available.")
		return
	}

	if c.userID == "" {
		fmt.Println("provide --user to count that user's vector points.")
		return
	}

	// This client's Search is a cosine similarity query, not a raw count
	// RPC, so "how many points does this user have" is approximated by a
	// zero-threshold search capped at a generous limit rather than an
	// exact count (the source's qdrant-specific `count_filter` has no
	// analogue in the narrower vector.Client capability interface).
	hits, err := b.Vector.Search(ctx, cfg.Vector.Collection, vector.Query{
		Vector:         make([]float32, cfg.Vector.Dimensions),
		UserID:         c.userID,
		Limit:          1000,
		ScoreThreshold: -1,
	})
	if err != nil {
		fmt.Printf("vector query failed: %v\n", err)
		return
	}
	fmt.Printf("points matched (capped at 1000): %d\n", len(hits))
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("marshalling diagnostic output failed: %v\n", err)
		return
	}
	fmt.Println(string(b))
}
