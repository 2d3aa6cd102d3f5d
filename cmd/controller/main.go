package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mairylabs/triadic-controller/internal/learn"
	"github.com/mairylabs/triadic-controller/internal/memory"
	"github.com/mairylabs/triadic-controller/internal/mistral"
	"github.com/mairylabs/triadic-controller/internal/orchestrator"
	"github.com/mairylabs/triadic-controller/internal/pipeline"
	"github.com/mairylabs/triadic-controller/internal/policy"
	"github.com/mairylabs/triadic-controller/internal/provenance"
	"github.com/mairylabs/triadic-controller/internal/shell"
	"github.com/mairylabs/triadic-controller/internal/triad"
)

// #region main
func main() {
	dbPath := envOr("TRIADIC_DB", "triadic_state.db")
	userKey := envOr("MAIRY_USER", "local")

	apiKey := os.Getenv("MISTRAL_API_KEY")
	if apiKey == "" {
		log.Fatal("MISTRAL_API_KEY not set")
	}

	clientConfig := mistral.DefaultConfig()
	clientConfig.APIKey = apiKey
	clientConfig.BaseURL = envOr("MISTRAL_BASE_URL", clientConfig.BaseURL)
	clientConfig.Model = envOr("MISTRAL_MODEL", clientConfig.Model)
	clientConfig.EmbedModel = envOr("MISTRAL_EMBED_MODEL", clientConfig.EmbedModel)

	client, err := mistral.New(clientConfig)
	if err != nil {
		log.Fatalf("failed to init API client: %v", err)
	}

	store, err := memory.NewStore(dbPath)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	shellMgr, err := shell.NewManager(store.DB(), shell.DefaultConfig())
	if err != nil {
		log.Fatalf("failed to init shell state: %v", err)
	}
	learner, err := learn.NewDeviationLog(store.DB())
	if err != nil {
		log.Fatalf("failed to init deviation log: %v", err)
	}
	if err := provenance.Init(store.DB()); err != nil {
		log.Fatalf("failed to init provenance: %v", err)
	}

	config := orchestrator.DefaultConfig()
	engine := orchestrator.NewEngine(client, client, policy.New(policy.DefaultConfig()), learner, config)
	pipe := pipeline.New(client, client, store, shellMgr, engine, config)

	fmt.Println("Triadic Controller ready.")
	fmt.Printf("  DB: %s | Model: %s | User: %s\n", dbPath, clientConfig.Model, userKey)
	fmt.Println("Type a message, '/remember <fact>' to store durable knowledge, or 'quit' to exit:")

	scanner := bufio.NewScanner(os.Stdin)
	threadID := ""

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		message := strings.TrimSpace(scanner.Text())
		if message == "" {
			continue
		}
		if message == "quit" || message == "exit" {
			break
		}

		if fact, ok := strings.CutPrefix(message, "/remember "); ok {
			if err := remember(client, store, strings.TrimSpace(fact)); err != nil {
				log.Printf("remember error: %v", err)
			} else {
				fmt.Println("Stored in identity memory.")
			}
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
		result, err := pipe.ProcessMessage(ctx, pipeline.Request{
			Message:  message,
			ThreadID: threadID,
			UserKey:  userKey,
		})
		cancel()
		if err != nil {
			log.Printf("turn error: %v", err)
			continue
		}
		threadID = result.ThreadID

		fmt.Printf("\n%s\n\n", result.Response)

		err = provenance.Log(store.DB(), provenance.Entry{
			TurnID:       uuid.NewString(),
			Status:       string(result.FinalizerStatus),
			AttemptsUsed: result.AttemptsUsed,
			CandidateID:  result.CandidateID,
			InputTriad:   result.InputTriad,
			OutputTriad:  result.OutputTriad,
			CreatedAt:    time.Now().UTC(),
		})
		if err != nil {
			log.Printf("provenance error: %v", err)
		}

		fmt.Printf("[%s] attempts=%d in=%s out=%s trajectory=%s\n",
			result.FinalizerStatus, result.AttemptsUsed,
			result.InputTriad.String(), result.OutputTriad.String(), result.ShellTrajectory)
	}
}

// #endregion main

// #region helpers

// remember stores a fact in the identity channel so retrieval can surface
// it in any future thread.
func remember(client *mistral.Client, store *memory.Store, fact string) error {
	if fact == "" {
		return fmt.Errorf("empty fact")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	embedding, err := client.Embed(ctx, fact)
	if err != nil {
		return err
	}
	_, err = store.Persist(ctx, memory.Exchange{
		Role:          triad.RoleRequester,
		Content:       fact,
		EmotionalTone: memory.InferTone(fact),
	}, memory.ChannelIdentity, embedding, "")
	return err
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
